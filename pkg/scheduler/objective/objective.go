// Package objective 组合三层字典序目标：非主医院覆盖、半容量阈值、总分配数
package objective

import (
	"fmt"
	"math/big"

	"github.com/paiban/dutyplan/pkg/scheduler/constraint"
)

// Tiers 目标的三层分量，按字典序比较
type Tiers struct {
	Coverage  int64 `json:"coverage"`
	Threshold int64 `json:"threshold"`
	Total     int64 `json:"total"`
}

// Compare 字典序比较，a<b 返回 -1，相等 0，a>b 返回 1
func (a Tiers) Compare(b Tiers) int {
	switch {
	case a.Coverage != b.Coverage:
		return sign(a.Coverage - b.Coverage)
	case a.Threshold != b.Threshold:
		return sign(a.Threshold - b.Threshold)
	default:
		return sign(a.Total - b.Total)
	}
}

// Better 是否严格优于 b
func (a Tiers) Better(b Tiers) bool {
	return a.Compare(b) > 0
}

// Add 分量相加
func (a Tiers) Add(b Tiers) Tiers {
	return Tiers{a.Coverage + b.Coverage, a.Threshold + b.Threshold, a.Total + b.Total}
}

// Sub 分量相减
func (a Tiers) Sub(b Tiers) Tiers {
	return Tiers{a.Coverage - b.Coverage, a.Threshold - b.Threshold, a.Total - b.Total}
}

// Neg 取反
func (a Tiers) Neg() Tiers {
	return Tiers{-a.Coverage, -a.Threshold, -a.Total}
}

// IsZero 是否全为 0
func (a Tiers) IsZero() bool {
	return a == Tiers{}
}

func (a Tiers) String() string {
	return fmt.Sprintf("(%d,%d,%d)", a.Coverage, a.Threshold, a.Total)
}

func sign(v int64) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}

// Slot 一个 (日期, 医院) 位置
type Slot struct {
	Capacity int
	Primary  bool
}

// Half 阈值指标个数 ceil(cap/2)
func (s Slot) Half() int {
	return (s.Capacity + 1) / 2
}

// Gain 第 k 个人（从 1 开始）带来的目标增量，关于 k 单调不增
func (s Slot) Gain(k int) Tiers {
	if k < 1 || k > s.Capacity {
		return Tiers{}
	}
	g := Tiers{Total: 1}
	if k == 1 && !s.Primary {
		g.Coverage = 1
	}
	if k <= s.Half() {
		g.Threshold = 1
	}
	return g
}

// Value 负载为 load 时该位置的目标值
func (s Slot) Value(load int) Tiers {
	var v Tiers
	if load <= 0 || s.Capacity <= 0 {
		return v
	}
	if load > s.Capacity {
		load = s.Capacity
	}
	v.Total = int64(load)
	if !s.Primary {
		v.Coverage = 1
	}
	if load < s.Half() {
		v.Threshold = int64(load)
	} else {
		v.Threshold = int64(s.Half())
	}
	return v
}

// Objective 目标函数
type Objective struct {
	Slots        [][]Slot // [day][facility]
	NumCoverage  int64
	NumThreshold int64
	SumCapacity  int64
}

// New 根据约束模型生成目标
func New(m *constraint.Model) *Objective {
	o := &Objective{Slots: make([][]Slot, len(m.Days))}
	for d := range m.Days {
		o.Slots[d] = make([]Slot, len(m.Facilities))
		for f := range m.Facilities {
			s := Slot{Capacity: m.Capacity[d][f], Primary: m.IsPrimary(f)}
			o.Slots[d][f] = s
			if s.Capacity <= 0 {
				continue
			}
			o.SumCapacity += int64(s.Capacity)
			o.NumThreshold += int64(s.Half())
			if !s.Primary {
				o.NumCoverage++
			}
		}
	}
	return o
}

// Weights 返回 (W_coverage, W_primary, W_total)
func (o *Objective) Weights() (wCoverage, wThreshold, wTotal *big.Int) {
	wTotal = big.NewInt(o.SumCapacity + 1)
	wThreshold = new(big.Int).Mul(wTotal, big.NewInt(o.NumThreshold+1))
	wCoverage = new(big.Int).Mul(wThreshold, big.NewInt(o.NumCoverage+1))
	return wCoverage, wThreshold, wTotal
}

// Weighted 加权目标值 W_coverage·cov + W_primary·thr + total
// 总分配数系数为 1，W_total 作为阈值层权重的基数
func (o *Objective) Weighted(t Tiers) *big.Int {
	wc, wt, _ := o.Weights()
	v := new(big.Int).Mul(wc, big.NewInt(t.Coverage))
	v.Add(v, new(big.Int).Mul(wt, big.NewInt(t.Threshold)))
	v.Add(v, big.NewInt(t.Total))
	return v
}

// Evaluate 根据每个位置的负载计算目标
func (o *Objective) Evaluate(loads [][]int) Tiers {
	var t Tiers
	for d := range o.Slots {
		for f, s := range o.Slots[d] {
			t = t.Add(s.Value(loads[d][f]))
		}
	}
	return t
}

// Max 所有位置满载时的目标，忽略人员约束
func (o *Objective) Max() Tiers {
	return Tiers{Coverage: o.NumCoverage, Threshold: o.NumThreshold, Total: o.SumCapacity}
}
