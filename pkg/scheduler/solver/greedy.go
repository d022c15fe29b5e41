package solver

import (
	"context"
	"time"

	"github.com/paiban/dutyplan/pkg/logger"
	"github.com/paiban/dutyplan/pkg/scheduler/constraint"
	"github.com/paiban/dutyplan/pkg/scheduler/objective"
	"github.com/paiban/dutyplan/pkg/scheduler/optimizer"
)

// GreedySolver 贪心求解器：按目标层级逐层填充，不做搜索
type GreedySolver struct{}

// NewGreedySolver 创建贪心求解器
func NewGreedySolver() *GreedySolver {
	return &GreedySolver{}
}

// Name 返回求解器名称
func (s *GreedySolver) Name() string {
	return "GreedySolver"
}

// Solve 使用贪心算法生成排班，达到松弛上界时标记为 optimal
func (s *GreedySolver) Solve(ctx context.Context, m *constraint.Model, obj *objective.Objective) (*Result, error) {
	start := time.Now()
	log := logger.NewSolverLogger(ctx)

	st := optimizer.NewState(m, obj)
	st.GreedyFill(nil)
	sol := st.Snapshot()

	bound, _, err := newRelaxation(m, obj, nil).solve(ctx)
	if err != nil {
		bound = obj.Max()
	}
	log.Phase("greedy", sol.Tiers.Coverage, sol.Tiers.Threshold, sol.Tiers.Total, time.Since(start))

	result := &Result{
		Status:     StatusFeasible,
		Solution:   sol,
		Objective:  sol.Tiers,
		Bound:      bound,
		Workers:    1,
		BestWorker: -1,
		Duration:   time.Since(start),
	}
	if sol.Tiers.Compare(bound) >= 0 {
		result.Status = StatusOptimal
	}
	return result, nil
}
