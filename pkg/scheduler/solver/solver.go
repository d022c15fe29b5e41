// Package solver 提供排班求解器
package solver

import (
	"context"
	"time"

	"github.com/paiban/dutyplan/pkg/scheduler/constraint"
	"github.com/paiban/dutyplan/pkg/scheduler/objective"
	"github.com/paiban/dutyplan/pkg/scheduler/optimizer"
)

// Status 求解器终止状态
type Status string

const (
	StatusOptimal    Status = "optimal"    // 达到上界
	StatusFeasible   Status = "feasible"   // 时间用尽，返回当前最优
	StatusInfeasible Status = "infeasible" // 无可行解
	StatusUnknown    Status = "unknown"
)

// HasSolution 是否返回了可用方案
func (s Status) HasSolution() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// Options 求解参数
type Options struct {
	TimeLimit        time.Duration `json:"time_limit" yaml:"time_limit" toml:"time_limit"`
	Workers          int           `json:"workers" yaml:"workers" toml:"workers"`
	Seed             int64         `json:"seed" yaml:"seed" toml:"seed"`
	PlateauThreshold int           `json:"plateau_threshold" yaml:"plateau_threshold" toml:"plateau_threshold"`
	MaxKicks         int           `json:"max_kicks" yaml:"max_kicks" toml:"max_kicks"`
	RepairRounds     int           `json:"repair_rounds" yaml:"repair_rounds" toml:"repair_rounds"`
	// MIPMaxVars 超过该变量数时 MIP 求解器直接转交局部搜索
	MIPMaxVars int `json:"mip_max_vars" yaml:"mip_max_vars" toml:"mip_max_vars"`
	// MIPShare MIP 可使用的时间比例，剩余时间留给局部搜索兜底
	MIPShare float64 `json:"mip_share" yaml:"mip_share" toml:"mip_share"`
}

// DefaultOptions 默认参数：10 秒、8 个工作协程
func DefaultOptions() Options {
	return Options{
		TimeLimit:        10 * time.Second,
		Workers:          8,
		Seed:             1,
		PlateauThreshold: 2000,
		MaxKicks:         500,
		RepairRounds:     8,
		MIPMaxVars:       20000,
		MIPShare:         0.5,
	}
}

// withDefaults 补齐未设置的参数
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.TimeLimit <= 0 {
		o.TimeLimit = def.TimeLimit
	}
	if o.Workers <= 0 {
		o.Workers = def.Workers
	}
	if o.PlateauThreshold <= 0 {
		o.PlateauThreshold = def.PlateauThreshold
	}
	if o.MaxKicks <= 0 {
		o.MaxKicks = def.MaxKicks
	}
	if o.RepairRounds <= 0 {
		o.RepairRounds = def.RepairRounds
	}
	if o.MIPMaxVars <= 0 {
		o.MIPMaxVars = def.MIPMaxVars
	}
	if o.MIPShare <= 0 || o.MIPShare > 1 {
		o.MIPShare = def.MIPShare
	}
	return o
}

// optimizerConfig 转换为局部搜索配置
func (o Options) optimizerConfig(remaining time.Duration) *optimizer.OptimizationConfig {
	cfg := optimizer.DefaultOptConfig()
	cfg.MaxTime = remaining
	cfg.ParallelWorkers = o.Workers
	cfg.Seed = o.Seed
	cfg.PlateauThreshold = o.PlateauThreshold
	cfg.MaxKicks = o.MaxKicks
	return cfg
}

// Result 求解结果
type Result struct {
	Status     Status              `json:"status"`
	Solution   *optimizer.Solution `json:"-"`
	Objective  objective.Tiers     `json:"objective"`
	Bound      objective.Tiers     `json:"bound"`
	Iterations int64               `json:"iterations"`
	Kicks      int                 `json:"kicks"`
	Workers    int                 `json:"workers"`
	BestWorker int                 `json:"best_worker"`
	Duration   time.Duration       `json:"duration"`
	Message    string              `json:"message,omitempty"`
}

// Solver 求解器接口
type Solver interface {
	// Solve 对约束模型求解
	Solve(ctx context.Context, m *constraint.Model, obj *objective.Objective) (*Result, error)

	// Name 返回求解器名称
	Name() string
}

// New 按名称创建求解器，未知名称返回 MIP 求解器
func New(name string, opts Options) Solver {
	switch name {
	case "greedy":
		return NewGreedySolver()
	case "lexsearch":
		return NewLexSolver(opts)
	default:
		return NewMIPSolver(opts)
	}
}
