package handler

import (
	"net/http"

	apperrors "github.com/paiban/dutyplan/pkg/errors"
	"github.com/paiban/dutyplan/pkg/model"
	"github.com/paiban/dutyplan/pkg/swap"
)

// SwapRecommendInput 换班推荐请求
type SwapRecommendInput struct {
	ResultInput
	Source  swap.Slot              `json:"source"`
	Options *swap.RecommendOptions `json:"options,omitempty"`
}

// SwapApplyInput 换班执行请求
type SwapApplyInput struct {
	ResultInput
	Swap swap.SwapRequest `json:"swap"`
}

// SwapApplyResponse 换班执行响应，不可行时 Result 为空
type SwapApplyResponse struct {
	Applied    bool             `json:"applied"`
	Evaluation *swap.Evaluation `json:"evaluation"`
	Result     *model.Result    `json:"result,omitempty"`
}

// SwapHandler 换班处理器
type SwapHandler struct {
	evaluator   *swap.Evaluator
	recommender *swap.Recommender
}

// NewSwapHandler 创建换班处理器
func NewSwapHandler(evaluator *swap.Evaluator) *SwapHandler {
	return &SwapHandler{
		evaluator:   evaluator,
		recommender: swap.NewRecommender(evaluator),
	}
}

// Recommend 推荐接替人或互换对象
func (h *SwapHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var in SwapRecommendInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	if err := in.check(); err != nil {
		respondError(w, r, err)
		return
	}

	recs, err := h.recommender.Recommend(in.Request, in.Result, in.Source, in.Options)
	if err != nil {
		respondError(w, r, swapError(err))
		return
	}
	if recs == nil {
		recs = []swap.Recommendation{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"source":          in.Source,
		"recommendations": recs,
	})
}

// Apply 评估并执行换班，存在新增冲突时返回 422
func (h *SwapHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var in SwapApplyInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	if err := in.check(); err != nil {
		respondError(w, r, err)
		return
	}

	eval, err := h.evaluator.Evaluate(in.Request, in.Result, &in.Swap)
	if err != nil {
		respondError(w, r, swapError(err))
		return
	}
	if !eval.Feasible {
		respondJSON(w, http.StatusUnprocessableEntity, SwapApplyResponse{Evaluation: eval})
		return
	}
	respondJSON(w, http.StatusOK, SwapApplyResponse{
		Applied:    true,
		Evaluation: eval,
		Result:     swap.Apply(in.Request, in.Result, &in.Swap),
	})
}

// swapError 非 AppError 来自请求中的月份或容量配置
func swapError(err error) error {
	if apperrors.GetCode(err) != apperrors.CodeUnknown {
		return err
	}
	return invalidRequest(err)
}
