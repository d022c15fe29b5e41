// Package optimizer 提供排班局部搜索与并行优化
package optimizer

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/paiban/dutyplan/pkg/scheduler/constraint"
	"github.com/paiban/dutyplan/pkg/scheduler/objective"
)

// OptimizationConfig 优化配置
type OptimizationConfig struct {
	MaxTime          time.Duration `json:"max_time"`          // 最大运行时间
	InitialTemp      float64       `json:"initial_temp"`      // 模拟退火初始温度
	CoolingRate      float64       `json:"cooling_rate"`      // 冷却速率
	TabuSize         int           `json:"tabu_size"`         // 禁忌表大小
	PlateauThreshold int           `json:"plateau_threshold"` // 无改进多少步后扰动
	KickSize         int           `json:"kick_size"`         // 每次扰动移除的分配数
	StopOnPlateau    bool          `json:"stop_on_plateau"`   // 连续扰动无改进时停止
	MaxKicks         int           `json:"max_kicks"`         // 连续无改进扰动次数上限
	ParallelWorkers  int           `json:"parallel_workers"`  // 并行工作数
	Seed             int64         `json:"seed"`
}

// DefaultOptConfig 默认优化配置
func DefaultOptConfig() *OptimizationConfig {
	return &OptimizationConfig{
		MaxTime:          10 * time.Second,
		InitialTemp:      2.0,
		CoolingRate:      0.999,
		TabuSize:         64,
		PlateauThreshold: 2000,
		KickSize:         4,
		StopOnPlateau:    true,
		MaxKicks:         500,
		ParallelWorkers:  8,
		Seed:             1,
	}
}

// SearchResult 单个工作协程的搜索结果
type SearchResult struct {
	Worker     int
	Best       *Solution
	Iterations int64
	Kicks      int
	ReachedCap bool // 达到上界
}

// LocalSearchOptimizer 迭代局部搜索：插入/移除/重分配/交换/弹出链 + 扰动
type LocalSearchOptimizer struct {
	config    *OptimizationConfig
	model     *constraint.Model
	obj       *objective.Objective
	neighbors *NeighborhoodGenerator
	tabuList  *TabuList
	rng       *rand.Rand
	log       zerolog.Logger
}

// NewLocalSearchOptimizer 创建局部搜索优化器
func NewLocalSearchOptimizer(config *OptimizationConfig, m *constraint.Model, obj *objective.Objective, seed int64, log zerolog.Logger) *LocalSearchOptimizer {
	if config == nil {
		config = DefaultOptConfig()
	}
	rng := rand.New(rand.NewSource(seed))
	return &LocalSearchOptimizer{
		config:    config,
		model:     m,
		obj:       obj,
		neighbors: NewNeighborhoodGenerator(rng),
		tabuList:  NewTabuList(config.TabuSize),
		rng:       rng,
		log:       log,
	}
}

// Optimize 从初始方案出发搜索，直到截止时间、ctx 取消、达到上界或平台期
func (o *LocalSearchOptimizer) Optimize(ctx context.Context, initial *Solution, bound objective.Tiers, deadline time.Time) *SearchResult {
	st := NewState(o.model, o.obj)
	st.LoadSolution(initial)
	best := st.Snapshot()

	result := &SearchResult{Best: best}
	temperature := o.config.InitialTemp
	noImprovement := 0
	kicksWithoutGain := 0

	for {
		if best.Tiers.Compare(bound) >= 0 {
			result.ReachedCap = true
			break
		}
		if result.Iterations&255 == 0 {
			if ctx.Err() != nil || time.Now().After(deadline) {
				break
			}
		}
		result.Iterations++

		if mv := o.neighbors.Propose(st); mv != nil && o.accept(mv, best, st, temperature) {
			st.Apply(mv)
			if mv.Type == MoveRemove || mv.Type == MoveRelocate {
				o.tabuList.Add(mv.Key())
			}
			if st.Tiers().Better(best.Tiers) {
				best = st.Snapshot()
				noImprovement = 0
				kicksWithoutGain = 0
				continue
			}
		}
		noImprovement++

		if noImprovement >= o.config.PlateauThreshold {
			if o.config.StopOnPlateau && kicksWithoutGain >= o.config.MaxKicks {
				o.log.Debug().Int64("iterations", result.Iterations).Int("kicks", result.Kicks).Msg("达到平台期阈值，停止优化")
				break
			}
			if st.Tiers().Compare(best.Tiers) < 0 {
				st.LoadSolution(best)
			}
			o.kick(st)
			result.Kicks++
			kicksWithoutGain++
			noImprovement = 0
			if st.Tiers().Better(best.Tiers) {
				best = st.Snapshot()
				kicksWithoutGain = 0
			}
		}

		temperature *= o.config.CoolingRate
	}

	result.Best = best
	return result
}

// accept 接受准则：改进或持平（非禁忌）总是接受，变差时按退火概率接受
func (o *LocalSearchOptimizer) accept(mv *Move, best *Solution, st *State, temperature float64) bool {
	switch c := mv.Delta.Compare(objective.Tiers{}); {
	case c > 0:
		return true
	case c == 0:
		return mv.Type == MoveSwap || !o.tabuList.Contains(mv.Key())
	default:
		if o.tabuList.Contains(mv.Key()) && !st.Tiers().Add(mv.Delta).Better(best.Tiers) {
			return false
		}
		return o.rng.Float64() < boltzmannProbability(energy(mv.Delta), temperature)
	}
}

// kick 扰动：随机移除若干分配后随机顺序贪心补齐
func (o *LocalSearchOptimizer) kick(st *State) {
	for i := 0; i < o.config.KickSize; i++ {
		if mv := o.neighbors.remove(st); mv != nil {
			st.Remove(mv.Resident, mv.Day)
			o.tabuList.Add(mv.Key())
		}
	}
	st.GreedyFill(o.rng)
}

// energy 把目标增量折算为退火使用的能量差（正值表示变差）
func energy(delta objective.Tiers) float64 {
	return -float64(delta.Coverage*100 + delta.Threshold*10 + delta.Total)
}

// boltzmannProbability 计算模拟退火的接受概率
// delta: 能量差 (new - old)
// temperature: 当前温度
func boltzmannProbability(delta, temperature float64) float64 {
	if delta <= 0 {
		return 1.0
	}
	if temperature <= 0 {
		return 0.0
	}
	return math.Exp(-delta / temperature)
}

// TabuList 禁忌表（使用uint64哈希作为键提高性能）
type TabuList struct {
	items   map[uint64]struct{}
	order   []uint64
	maxSize int
	mu      sync.RWMutex
}

// NewTabuList 创建禁忌表
func NewTabuList(size int) *TabuList {
	if size <= 0 {
		size = 1
	}
	return &TabuList{
		items:   make(map[uint64]struct{}),
		order:   make([]uint64, 0, size),
		maxSize: size,
	}
}

// Add 添加到禁忌表
func (t *TabuList) Add(key uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.items[key]; exists {
		return
	}

	// 超出容量时移除最旧的
	if len(t.order) >= t.maxSize {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.items, oldest)
	}

	t.items[key] = struct{}{}
	t.order = append(t.order, key)
}

// Contains 检查是否在禁忌表中
func (t *TabuList) Contains(key uint64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, exists := t.items[key]
	return exists
}

// Len 当前条目数
func (t *TabuList) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

// Clear 清空禁忌表
func (t *TabuList) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = make(map[uint64]struct{})
	t.order = t.order[:0]
}
