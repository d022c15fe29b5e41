package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/paiban/dutyplan/pkg/engine"
	"github.com/paiban/dutyplan/pkg/model"
)

// Solver 排班求解接口
type Solver interface {
	Solve(ctx context.Context, req *model.Request) (*model.Result, error)
	SolveAggregate(ctx context.Context, req *model.AggregateRequest) (*model.AggregateResult, error)
}

var _ Solver = (*engine.Engine)(nil)

// ScheduleHandler 排班处理器
type ScheduleHandler struct {
	solver  Solver
	timeout time.Duration
	active  func() func()
}

// ScheduleOption 排班处理器选项
type ScheduleOption func(*ScheduleHandler)

// WithTimeout 设置单次请求的求解时长上限，0 表示使用引擎配置
func WithTimeout(d time.Duration) ScheduleOption {
	return func(h *ScheduleHandler) { h.timeout = d }
}

// WithActiveTracker 设置进行中求解计数回调
func WithActiveTracker(start func() func()) ScheduleOption {
	return func(h *ScheduleHandler) { h.active = start }
}

// NewScheduleHandler 创建排班处理器
func NewScheduleHandler(solver Solver, opts ...ScheduleOption) *ScheduleHandler {
	h := &ScheduleHandler{solver: solver}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *ScheduleHandler) context(r *http.Request) (context.Context, context.CancelFunc) {
	if h.timeout > 0 {
		return context.WithTimeout(r.Context(), h.timeout)
	}
	return context.WithCancel(r.Context())
}

func (h *ScheduleHandler) track() func() {
	if h.active == nil {
		return func() {}
	}
	return h.active()
}

// Solve 生成月度排班
func (h *ScheduleHandler) Solve(w http.ResponseWriter, r *http.Request) {
	var req model.Request
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()
	defer h.track()()

	result, err := h.solver.Solve(ctx, &req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, resultStatus(result.Status), result)
}

// SolveAggregate 汇总模式排班
func (h *ScheduleHandler) SolveAggregate(w http.ResponseWriter, r *http.Request) {
	var req model.AggregateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()
	defer h.track()()

	result, err := h.solver.SolveAggregate(ctx, &req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, resultStatus(result.Status), result)
}

// resultStatus 配置错误返回 422，可行与不可行均为 200
func resultStatus(status model.Status) int {
	if status == model.StatusError {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}
