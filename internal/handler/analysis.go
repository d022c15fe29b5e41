package handler

import (
	"net/http"

	apperrors "github.com/paiban/dutyplan/pkg/errors"
	"github.com/paiban/dutyplan/pkg/model"
	"github.com/paiban/dutyplan/pkg/stats"
	"github.com/paiban/dutyplan/pkg/validator"
)

// ResultInput 请求与其排班结果
type ResultInput struct {
	Request *model.Request `json:"request"`
	Result  *model.Result  `json:"result"`
}

func (in *ResultInput) check() error {
	if in.Request == nil {
		return apperrors.InvalidInput("request", "不能为空")
	}
	if in.Result == nil {
		return apperrors.InvalidInput("result", "不能为空")
	}
	return nil
}

// invalidRequest 请求中的月份或容量配置无法解析
func invalidRequest(err error) error {
	return apperrors.Wrap(err, apperrors.CodeInvalidInput, "请求无效").WithDetails(err.Error())
}

// ValidateResponse 冲突检测响应
type ValidateResponse struct {
	Valid     bool                           `json:"valid"`
	Conflicts []validator.Conflict           `json:"conflicts"`
	ByType    map[validator.ConflictType]int `json:"by_type"`
}

// StatsResponse 统计响应
type StatsResponse struct {
	Fairness *stats.FairnessMetrics `json:"fairness"`
	Coverage *stats.CoverageMetrics `json:"coverage"`
}

// ScheduleObserver 排班质量指标记录接口
type ScheduleObserver interface {
	ObserveSchedule(fairness *stats.FairnessMetrics, coverage *stats.CoverageMetrics)
}

// AnalysisHandler 结果检测与统计处理器
type AnalysisHandler struct {
	detector *validator.ConflictDetector
	fairness *stats.FairnessAnalyzer
	coverage *stats.CoverageAnalyzer
	observer ScheduleObserver
}

// NewAnalysisHandler 创建结果检测与统计处理器，observer 可为 nil
func NewAnalysisHandler(
	detector *validator.ConflictDetector,
	fairness *stats.FairnessAnalyzer,
	coverage *stats.CoverageAnalyzer,
	observer ScheduleObserver,
) *AnalysisHandler {
	return &AnalysisHandler{
		detector: detector,
		fairness: fairness,
		coverage: coverage,
		observer: observer,
	}
}

// Validate 检测排班结果与请求之间的冲突
func (h *AnalysisHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var in ResultInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	if err := in.check(); err != nil {
		respondError(w, r, err)
		return
	}

	conflicts, err := h.detector.DetectAll(in.Request, in.Result)
	if err != nil {
		respondError(w, r, invalidRequest(err))
		return
	}
	if conflicts == nil {
		conflicts = []validator.Conflict{}
	}
	respondJSON(w, http.StatusOK, ValidateResponse{
		Valid:     !validator.HasErrors(conflicts),
		Conflicts: conflicts,
		ByType:    validator.GroupByType(conflicts),
	})
}

// Stats 计算排班结果的公平性与覆盖率
func (h *AnalysisHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var in ResultInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	if err := in.check(); err != nil {
		respondError(w, r, err)
		return
	}

	coverage, err := h.coverage.AnalyzeRequest(in.Request, in.Result)
	if err != nil {
		respondError(w, r, invalidRequest(err))
		return
	}
	fairness := h.fairness.Analyze(in.Result)
	if h.observer != nil {
		h.observer.ObserveSchedule(fairness, coverage)
	}
	respondJSON(w, http.StatusOK, StatsResponse{Fairness: fairness, Coverage: coverage})
}
