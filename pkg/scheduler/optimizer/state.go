package optimizer

import (
	"math/rand"

	"github.com/paiban/dutyplan/pkg/scheduler/constraint"
	"github.com/paiban/dutyplan/pkg/scheduler/objective"
)

// Unassigned 当日未分配
const Unassigned = -1

// Solution 表示一个排班方案：Assign[r][d] 为医院下标或 Unassigned
type Solution struct {
	Assign [][]int
	Tiers  objective.Tiers
}

// Clone 深拷贝解决方案
func (s *Solution) Clone() *Solution {
	clone := &Solution{
		Assign: make([][]int, len(s.Assign)),
		Tiers:  s.Tiers,
	}
	for r, row := range s.Assign {
		clone.Assign[r] = append([]int(nil), row...)
	}
	return clone
}

// Count 方案中的分配总数
func (s *Solution) Count() int {
	n := 0
	for _, row := range s.Assign {
		for _, f := range row {
			if f != Unassigned {
				n++
			}
		}
	}
	return n
}

// Values 展开为约束模型的 0/1 变量
func (s *Solution) Values(m *constraint.Model) []bool {
	values := make([]bool, m.NumVars())
	for r, row := range s.Assign {
		for d, f := range row {
			if f != Unassigned {
				values[m.VarIndex(r, d, f)] = true
			}
		}
	}
	return values
}

// State 可增量维护的搜索状态，满足除需求次数下界以外的全部硬约束
type State struct {
	Model *constraint.Model
	Obj   *objective.Objective

	assign   [][]int // [resident][day]
	load     [][]int // [day][facility]
	count    []int   // [resident]
	facCount [][]int // [resident][facility]
	tiers    objective.Tiers

	// 每个位置上的住院医，用于弹出链
	occupants [][][]int
}

// NewState 创建空状态
func NewState(m *constraint.Model, obj *objective.Objective) *State {
	R, D, F := len(m.Residents), len(m.Days), len(m.Facilities)
	st := &State{
		Model:     m,
		Obj:       obj,
		assign:    make([][]int, R),
		load:      make([][]int, D),
		count:     make([]int, R),
		facCount:  make([][]int, R),
		occupants: make([][][]int, D),
	}
	for r := 0; r < R; r++ {
		st.assign[r] = make([]int, D)
		for d := range st.assign[r] {
			st.assign[r][d] = Unassigned
		}
		st.facCount[r] = make([]int, F)
	}
	for d := 0; d < D; d++ {
		st.load[d] = make([]int, F)
		st.occupants[d] = make([][]int, F)
	}
	return st
}

// Load 返回 (d, f) 的当前人数
func (st *State) Load(d, f int) int {
	return st.load[d][f]
}

// Count 返回住院医当前分配次数
func (st *State) Count(r int) int {
	return st.count[r]
}

// At 返回住院医 r 第 d 天的医院
func (st *State) At(r, d int) int {
	return st.assign[r][d]
}

// Tiers 当前目标值
func (st *State) Tiers() objective.Tiers {
	return st.tiers
}

// CanAssign 检查把 r 放到 (d, f) 是否满足全部硬约束
func (st *State) CanAssign(r, d, f int) bool {
	m := st.Model
	return st.assign[r][d] == Unassigned &&
		m.Allowed(r, d, f) &&
		st.load[d][f] < m.Capacity[d][f] &&
		st.count[r] < m.Required[r] &&
		st.facCount[r][f] < m.PerPersonCap[f]
}

// GainAdd 在 (d, f) 增加一人的目标增量
func (st *State) GainAdd(d, f int) objective.Tiers {
	return st.Obj.Slots[d][f].Gain(st.load[d][f] + 1)
}

// LossRemove 从 (d, f) 移除一人的目标减量（为负值）
func (st *State) LossRemove(d, f int) objective.Tiers {
	return st.Obj.Slots[d][f].Gain(st.load[d][f]).Neg()
}

// Add 分配，调用方需先确认 CanAssign
func (st *State) Add(r, d, f int) {
	st.tiers = st.tiers.Add(st.GainAdd(d, f))
	st.assign[r][d] = f
	st.load[d][f]++
	st.count[r]++
	st.facCount[r][f]++
	st.occupants[d][f] = append(st.occupants[d][f], r)
}

// Remove 取消 r 在第 d 天的分配
func (st *State) Remove(r, d int) {
	f := st.assign[r][d]
	if f == Unassigned {
		return
	}
	st.tiers = st.tiers.Add(st.LossRemove(d, f))
	st.assign[r][d] = Unassigned
	st.load[d][f]--
	st.count[r]--
	st.facCount[r][f]--
	occ := st.occupants[d][f]
	for i, x := range occ {
		if x == r {
			occ[i] = occ[len(occ)-1]
			st.occupants[d][f] = occ[:len(occ)-1]
			break
		}
	}
}

// Occupants 返回 (d, f) 上的住院医
func (st *State) Occupants(d, f int) []int {
	return st.occupants[d][f]
}

// Snapshot 导出当前方案
func (st *State) Snapshot() *Solution {
	sol := &Solution{Assign: make([][]int, len(st.assign)), Tiers: st.tiers}
	for r, row := range st.assign {
		sol.Assign[r] = append([]int(nil), row...)
	}
	return sol
}

// LoadSolution 用方案重置状态，方案中违反硬约束的分配会被丢弃，返回丢弃个数
func (st *State) LoadSolution(sol *Solution) int {
	st.Reset()
	dropped := 0
	for r, row := range sol.Assign {
		for d, f := range row {
			if f == Unassigned {
				continue
			}
			if !st.CanAssign(r, d, f) {
				dropped++
				continue
			}
			st.Add(r, d, f)
		}
	}
	return dropped
}

// Reset 清空全部分配
func (st *State) Reset() {
	for r := range st.assign {
		for d := range st.assign[r] {
			st.assign[r][d] = Unassigned
		}
		st.count[r] = 0
		for f := range st.facCount[r] {
			st.facCount[r][f] = 0
		}
	}
	for d := range st.load {
		for f := range st.load[d] {
			st.load[d][f] = 0
			st.occupants[d][f] = st.occupants[d][f][:0]
		}
	}
	st.tiers = objective.Tiers{}
}

// GreedyFill 按目标层级逐层补充分配：先补覆盖，再补阈值，最后补总数
// rng 为 nil 时按输入顺序遍历，结果确定
func (st *State) GreedyFill(rng *rand.Rand) int {
	m := st.Model
	R, D, F := len(m.Residents), len(m.Days), len(m.Facilities)

	days := identity(D)
	facilities := identity(F)
	residents := identity(R)
	if rng != nil {
		rng.Shuffle(D, func(i, j int) { days[i], days[j] = days[j], days[i] })
		rng.Shuffle(F, func(i, j int) { facilities[i], facilities[j] = facilities[j], facilities[i] })
		rng.Shuffle(R, func(i, j int) { residents[i], residents[j] = residents[j], residents[i] })
	}

	added := 0
	for tier := 0; tier < 3; tier++ {
		for _, d := range days {
			for _, f := range facilities {
				for _, r := range residents {
					if !st.CanAssign(r, d, f) {
						continue
					}
					if !reachesTier(st.GainAdd(d, f), tier) {
						break
					}
					st.Add(r, d, f)
					added++
					if tier < 2 && !reachesTier(st.GainAdd(d, f), tier) {
						break
					}
				}
			}
		}
	}
	return added
}

// reachesTier 增量在给定层级上是否为正
func reachesTier(g objective.Tiers, tier int) bool {
	switch tier {
	case 0:
		return g.Coverage > 0
	case 1:
		return g.Threshold > 0
	default:
		return g.Total > 0
	}
}

func identity(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}
