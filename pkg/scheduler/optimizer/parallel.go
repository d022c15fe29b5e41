package optimizer

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/paiban/dutyplan/pkg/scheduler/constraint"
	"github.com/paiban/dutyplan/pkg/scheduler/objective"
)

// IslandOptimizer 岛屿模型并行优化器
// 每个岛屿从同一初始方案出发，使用独立的随机种子 seed+i 搜索
type IslandOptimizer struct {
	config *OptimizationConfig
	model  *constraint.Model
	obj    *objective.Objective
	log    zerolog.Logger
}

// NewIslandOptimizer 创建岛屿模型优化器
func NewIslandOptimizer(config *OptimizationConfig, m *constraint.Model, obj *objective.Objective, log zerolog.Logger) *IslandOptimizer {
	if config == nil {
		config = DefaultOptConfig()
	}
	if config.ParallelWorkers < 1 {
		config.ParallelWorkers = 1
	}
	return &IslandOptimizer{config: config, model: m, obj: obj, log: log}
}

// IslandResult 并行优化汇总结果
type IslandResult struct {
	Best       *Solution
	Worker     int // 产生最优解的岛屿，初始方案最优时为 -1
	Iterations int64
	Kicks      int
	ReachedCap bool
}

// OptimizeIslands 并行运行所有岛屿，目标相同时取编号最小的岛屿
// 任一岛屿达到上界后其余岛屿随之停止
func (io *IslandOptimizer) OptimizeIslands(ctx context.Context, initial *Solution, bound objective.Tiers) (*IslandResult, error) {
	deadline := time.Now().Add(io.config.MaxTime)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	n := io.config.ParallelWorkers
	results := make([]*SearchResult, n)

	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(searchCtx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			opt := NewLocalSearchOptimizer(io.config, io.model, io.obj, io.config.Seed+int64(i),
				io.log.With().Int("worker", i).Logger())
			res := opt.Optimize(gctx, initial, bound, deadline)
			res.Worker = i
			results[i] = res
			if res.ReachedCap {
				cancel()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &IslandResult{Best: initial, Worker: -1}
	for _, res := range results {
		out.Iterations += res.Iterations
		out.Kicks += res.Kicks
		if res.Best.Tiers.Better(out.Best.Tiers) {
			out.Best = res.Best
			out.Worker = res.Worker
		}
	}
	out.ReachedCap = out.Best.Tiers.Compare(bound) >= 0

	io.log.Debug().
		Int("islands", n).
		Int("best_worker", out.Worker).
		Str("best", out.Best.Tiers.String()).
		Int64("iterations", out.Iterations).
		Msg("岛屿模型优化完成")

	return out, nil
}
