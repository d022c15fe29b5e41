// Package engine 串联日历、容量、需求、建模、求解与结果组装，对外提供一次性同步求解
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/paiban/dutyplan/pkg/calendar"
	"github.com/paiban/dutyplan/pkg/capacity"
	"github.com/paiban/dutyplan/pkg/diagnostics"
	apperrors "github.com/paiban/dutyplan/pkg/errors"
	"github.com/paiban/dutyplan/pkg/logger"
	"github.com/paiban/dutyplan/pkg/model"
	"github.com/paiban/dutyplan/pkg/requirement"
	"github.com/paiban/dutyplan/pkg/scheduler/constraint"
	"github.com/paiban/dutyplan/pkg/scheduler/objective"
	"github.com/paiban/dutyplan/pkg/scheduler/solver"
)

// DefaultPrimaryFacility 默认主医院名称
const DefaultPrimaryFacility = "大学病院"

// Config 引擎配置
type Config struct {
	Solver          solver.Options
	SolverName      string
	DefaultRequired int
	PrimaryFacility string
	Shortfall       diagnostics.ShortfallPolicy
	Requirement     requirement.Policy
}

// DefaultConfig 默认引擎配置
func DefaultConfig() Config {
	return Config{
		Solver:          solver.DefaultOptions(),
		SolverName:      "mip",
		DefaultRequired: model.DefaultRequiredPerResident,
		PrimaryFacility: DefaultPrimaryFacility,
		Shortfall:       diagnostics.ShortfallReject,
		Requirement:     requirement.DefaultPolicy(model.DefaultRequiredPerResident),
	}
}

// Engine 排班引擎，无状态，可并发使用
type Engine struct {
	cfg      Config
	solver   solver.Solver
	validate *validator.Validate
	recorder RunRecorder
	observer Observer
}

// Option 引擎选项
type Option func(*Engine)

// WithRecorder 设置运行记录器
func WithRecorder(r RunRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithObserver 设置指标观察者
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithSolver 替换求解器
func WithSolver(s solver.Solver) Option {
	return func(e *Engine) { e.solver = s }
}

// New 创建引擎
func New(cfg Config, opts ...Option) *Engine {
	if !cfg.Shortfall.IsValid() {
		cfg.Shortfall = diagnostics.ShortfallReject
	}
	if cfg.PrimaryFacility == "" {
		cfg.PrimaryFacility = DefaultPrimaryFacility
	}
	if cfg.DefaultRequired <= 0 {
		cfg.DefaultRequired = model.DefaultRequiredPerResident
	}
	if cfg.Requirement.Classes == nil {
		cfg.Requirement = requirement.DefaultPolicy(cfg.DefaultRequired)
	}
	e := &Engine{
		cfg:      cfg,
		solver:   solver.New(cfg.SolverName, cfg.Solver),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config 返回引擎配置
func (e *Engine) Config() Config {
	return e.cfg
}

// Solve 对月度请求求解
// 上游输入格式错误（月份、日期、姓名）返回 error；配置错误、容量不足等业务结果以 Result 返回
func (e *Engine) Solve(ctx context.Context, req *model.Request) (*model.Result, error) {
	start := time.Now()
	runID := uuid.New()
	ctx = context.WithValue(ctx, logger.RunIDKey, runID.String())
	log := logger.NewSolverLogger(ctx)

	result, err := e.solve(ctx, req, log)
	if err != nil {
		return nil, err
	}

	if result.Statistics == nil {
		result.Statistics = &model.SolveStatistics{}
	}
	result.Statistics.RunID = runID.String()
	result.Statistics.DurationMs = time.Since(start).Milliseconds()

	log.SolveComplete(string(result.Status), time.Since(start), result.TotalAssigned, result.TotalRequired)
	e.observe(KindMonthly, string(result.Status), time.Since(start), result.Statistics)
	e.record(ctx, &RunRecord{
		ID:        runID,
		Kind:      KindMonthly,
		Month:     req.Month,
		Status:    result.Status,
		Request:   req,
		Result:    result,
		Duration:  time.Since(start),
		CreatedAt: start,
	})
	return result, nil
}

func (e *Engine) solve(ctx context.Context, req *model.Request, log *logger.SolverLogger) (*model.Result, error) {
	month, err := e.checkRequest(req)
	if err != nil {
		return nil, err
	}

	resolver, err := capacity.NewResolver(req.FacilityConfig)
	if err != nil {
		cfgErr := apperrors.Configuration(err.Error())
		log.Logger().Warn().Str("code", string(cfgErr.Code)).Msg(cfgErr.Message)
		return model.NewErrorResult(cfgErr.Message), nil
	}

	primary := req.PrimaryFacilityName
	if primary == "" {
		primary = e.cfg.PrimaryFacility
	}
	if _, ok := req.FacilityConfig[primary]; !ok && len(req.FacilityConfig) > 0 {
		log.Logger().Warn().Str("primary", primary).Msg("主医院不在容量配置中，所有医院按非主医院处理")
	}
	for _, name := range req.FacilityOrder {
		if _, ok := req.FacilityConfig[name]; !ok {
			log.Logger().Warn().Str("facility", name).Msg("医院顺序中的医院没有容量配置，已忽略")
		}
	}
	if keys := resolver.OutOfMonthKeys(month); len(keys) > 0 {
		log.Logger().Warn().Strs("keys", keys).Msg("容量配置中包含当月以外的日期键，已忽略")
	}

	policy := e.cfg.Requirement.WithDefault(e.cfg.DefaultRequired)
	if req.DefaultRequiredPerResident != nil {
		policy = policy.WithDefault(*req.DefaultRequiredPerResident)
	}
	required, err := policy.ResolveAll(req.Residents)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "需求次数无效")
	}

	facilities := model.FacilityNames(req.FacilityConfig, req.FacilityOrder)
	grid := resolver.Grid(month.Days(), facilities)
	log.StartSolve(month.String(), len(req.Residents), len(grid.Days), len(facilities))

	summary := diagnostics.Check(grid, req.Residents, required)
	if summary.Shortfall() {
		log.CapacityShortfall(summary.TotalCapacity, summary.TotalRequired)
		if e.cfg.Shortfall == diagnostics.ShortfallReject {
			return &model.Result{
				Status:        model.StatusInfeasible,
				Message:       fmt.Sprintf("总容量 %d 小于总需求 %d", summary.TotalCapacity, summary.TotalRequired),
				Dates:         calendar.ISODates(grid.Days),
				Facilities:    facilities,
				TotalRequired: summary.TotalRequired,
				Diagnostics:   summary.Diagnostics,
			}, nil
		}
	}

	m := constraint.Build(constraint.Input{
		Residents: req.Residents,
		Required:  required,
		Grid:      grid,
		Primary:   primary,
	})
	obj := objective.New(m)

	solved, err := e.solver.Solve(ctx, m, obj)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "求解失败")
	}
	if !solved.Status.HasSolution() {
		return &model.Result{
			Status:        model.StatusInfeasible,
			Message:       "未找到可行的排班方案",
			TotalRequired: summary.TotalRequired,
			Diagnostics:   summary.Diagnostics,
		}, nil
	}

	result, err := Assemble(m, obj, solved)
	if err != nil {
		log.ConstraintViolation("assemble", err.Error())
		return nil, apperrors.ConstraintViolation("assemble", err.Error()).WithCause(err)
	}
	result.Diagnostics = summary.Diagnostics

	if under := result.UnderAssigned(); len(under) > 0 {
		log.UnderAssigned(under)
	}
	return result, nil
}

// checkRequest 校验上游输入：结构标签、月份、姓名唯一、不可排日期格式
func (e *Engine) checkRequest(req *model.Request) (calendar.Month, error) {
	if req == nil {
		return calendar.Month{}, apperrors.InvalidInput("request", "请求不能为空")
	}

	month, err := calendar.ParseMonth(req.Month)
	if err != nil {
		return calendar.Month{}, apperrors.InvalidMonth(req.Month, err)
	}

	ve := &apperrors.ValidationErrors{}
	collectFieldErrors(ve, e.validate.Struct(req))

	seen := make(map[string]bool, len(req.Residents))
	for i, r := range req.Residents {
		name := strings.TrimSpace(r.Name)
		field := fmt.Sprintf("residents[%d].name", i)
		switch {
		case name == "":
			ve.Add(field, "姓名不能为空")
		case seen[name]:
			ve.Add(field, "姓名重复: "+name)
		}
		seen[name] = true
		for j, d := range r.ExcludedDates {
			if _, err := calendar.ParseDate(d); err != nil {
				ve.Add(fmt.Sprintf("residents[%d].excludedDates[%d]", i, j), "日期格式应为 YYYY-MM-DD: "+d)
			}
		}
	}

	if ve.HasErrors() {
		return calendar.Month{}, ve.ToAppError()
	}
	return month, nil
}

// collectFieldErrors 把结构标签校验错误并入 ve
func collectFieldErrors(ve *apperrors.ValidationErrors, err error) {
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		ve.Add("request", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		ve.Add(fe.Namespace(), fe.Tag())
	}
}

// observe 上报指标
func (e *Engine) observe(kind, status string, d time.Duration, stats *model.SolveStatistics) {
	if e.observer == nil {
		return
	}
	e.observer.ObserveSolve(kind, status, d, stats)
}

// record 持久化运行记录，失败只记录日志
func (e *Engine) record(ctx context.Context, rec *RunRecord) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordRun(ctx, rec); err != nil {
		logger.WithContext(ctx).Error().Err(err).Str("run_id", rec.ID.String()).Msg("保存运行记录失败")
	}
}
