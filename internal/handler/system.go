package handler

import (
	"context"
	"net/http"
	"time"
)

// BuildInfo 构建信息
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// HealthChecker 依赖健康检查
type HealthChecker interface {
	Health(ctx context.Context) error
}

// SystemHandler 健康检查与版本信息处理器
type SystemHandler struct {
	build BuildInfo
	db    HealthChecker
}

// NewSystemHandler 创建系统处理器，db 为 nil 表示未启用数据库
func NewSystemHandler(build BuildInfo, db HealthChecker) *SystemHandler {
	return &SystemHandler{build: build, db: db}
}

// Health 健康检查
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":  "ok",
		"service": "dutyplan",
	}
	status := http.StatusOK

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Health(ctx); err != nil {
			body["status"] = "degraded"
			body["database"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			body["database"] = "ok"
		}
	}
	respondJSON(w, status, body)
}

// Version 版本信息
func (h *SystemHandler) Version(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.build)
}
