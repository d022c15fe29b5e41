package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/paiban/dutyplan/internal/repository"
	apperrors "github.com/paiban/dutyplan/pkg/errors"
)

// maxPageSize 单页记录上限
const maxPageSize = 200

// RunListResponse 运行记录列表响应
type RunListResponse struct {
	Items  []*repository.Run `json:"items"`
	Total  int               `json:"total"`
	Offset int               `json:"offset"`
	Limit  int               `json:"limit"`
}

// RunHandler 运行记录处理器
type RunHandler struct {
	repo repository.RunRepositoryInterface
}

// NewRunHandler 创建运行记录处理器
func NewRunHandler(repo repository.RunRepositoryInterface) *RunHandler {
	return &RunHandler{repo: repo}
}

// List 列出运行记录
// 查询参数: status, kind, from, to (YYYY-MM), order_by, order_dir, limit, offset
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	runs, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if runs == nil {
		runs = []*repository.Run{}
	}
	respondJSON(w, http.StatusOK, RunListResponse{
		Items:  runs,
		Total:  total,
		Offset: filter.Offset,
		Limit:  filter.Limit,
	})
}

// Get 获取单条运行记录
func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, r, apperrors.InvalidInput("id", "不是有效的UUID"))
		return
	}

	run, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, run)
}

func parseListFilter(r *http.Request) (repository.ListFilter, error) {
	q := r.URL.Query()
	filter := repository.DefaultListFilter().
		WithStatus(q.Get("status")).
		WithMonthRange(q.Get("from"), q.Get("to"))
	if kind := q.Get("kind"); kind != "" {
		filter = filter.WithKind(kind)
	}
	if v := q.Get("order_by"); v != "" {
		filter.OrderBy = v
	}
	if v := q.Get("order_dir"); v != "" {
		filter.OrderDir = v
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxPageSize {
			return filter, apperrors.InvalidInput("limit", "应为 1-200 的整数")
		}
		filter = filter.WithLimit(limit)
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return filter, apperrors.InvalidInput("offset", "应为非负整数")
		}
		filter = filter.WithOffset(offset)
	}
	return filter, nil
}
