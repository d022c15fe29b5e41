package solver

import (
	"context"
	"time"

	"github.com/paiban/dutyplan/pkg/logger"
	"github.com/paiban/dutyplan/pkg/scheduler/constraint"
	"github.com/paiban/dutyplan/pkg/scheduler/objective"
	"github.com/paiban/dutyplan/pkg/scheduler/optimizer"
)

// LexSolver 松弛上界 + 修复 + 并行迭代局部搜索
type LexSolver struct {
	opts Options
}

// NewLexSolver 创建求解器
func NewLexSolver(opts Options) *LexSolver {
	return &LexSolver{opts: opts.withDefaults()}
}

// Name 返回求解器名称
func (s *LexSolver) Name() string {
	return "LexSolver"
}

// Options 返回生效参数
func (s *LexSolver) Options() Options {
	return s.opts
}

// Solve 求解：时间用尽或 ctx 取消时返回当前最优，状态为 feasible
func (s *LexSolver) Solve(ctx context.Context, m *constraint.Model, obj *objective.Objective) (*Result, error) {
	start := time.Now()
	deadline := start.Add(s.opts.TimeLimit)
	log := logger.NewSolverLogger(ctx)

	searchCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	result := &Result{
		Status:     StatusUnknown,
		Workers:    s.opts.Workers,
		BestWorker: -1,
	}

	// 1. 松弛上界
	phase := time.Now()
	bound, places, err := newRelaxation(m, obj, nil).solve(searchCtx)
	if err != nil {
		bound = obj.Max()
	}
	result.Bound = bound
	log.Phase("relaxation", bound.Coverage, bound.Threshold, bound.Total, time.Since(phase))

	// 2. 修复同日冲突
	phase = time.Now()
	banned := make(banSet)
	for round := 0; err == nil && round < s.opts.RepairRounds; round++ {
		if conflicts(m, places, banned) == 0 {
			break
		}
		_, places, err = newRelaxation(m, obj, banned).solve(searchCtx)
	}
	st := optimizer.NewState(m, obj)
	initial, dropped := toSolution(st, places)
	log.Phase("repair", initial.Tiers.Coverage, initial.Tiers.Threshold, initial.Tiers.Total, time.Since(phase))
	if dropped > 0 {
		log.Logger().Debug().Int("dropped", dropped).Msg("修复阶段丢弃同日冲突分配")
	}

	best := initial
	if initial.Tiers.Compare(bound) < 0 && searchCtx.Err() == nil {
		// 3. 并行迭代局部搜索
		phase = time.Now()
		io := optimizer.NewIslandOptimizer(s.opts.optimizerConfig(time.Until(deadline)), m, obj, *log.Logger())
		islands, err := io.OptimizeIslands(searchCtx, initial, bound)
		if err != nil {
			return nil, err
		}
		best = islands.Best
		result.Iterations = islands.Iterations
		result.Kicks = islands.Kicks
		result.BestWorker = islands.Worker
		log.Phase("search", best.Tiers.Coverage, best.Tiers.Threshold, best.Tiers.Total, time.Since(phase))
	}

	if check := m.Check(best.Values(m)); !check.IsValid {
		return nil, check.Err()
	}

	result.Solution = best
	result.Objective = best.Tiers
	result.Duration = time.Since(start)
	if best.Tiers.Compare(bound) >= 0 {
		result.Status = StatusOptimal
	} else {
		result.Status = StatusFeasible
	}
	return result, nil
}
