package handler

import "net/http"

// Routes 路由依赖，Runs 为 nil 时不注册运行记录接口
type Routes struct {
	Schedule *ScheduleHandler
	Analysis *AnalysisHandler
	Swap     *SwapHandler
	Runs     *RunHandler
	System   *SystemHandler
	Metrics  http.Handler
	// MetricsPath 指标路径，缺省 /metrics
	MetricsPath string
}

// Register 注册所有路由
func (rt *Routes) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", rt.System.Health)
	mux.HandleFunc("GET /version", rt.System.Version)
	if rt.Metrics != nil {
		path := rt.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, rt.Metrics)
	}

	mux.HandleFunc("POST /api/v1/solve", rt.Schedule.Solve)
	mux.HandleFunc("POST /api/v1/solve/aggregate", rt.Schedule.SolveAggregate)
	mux.HandleFunc("POST /api/v1/validate", rt.Analysis.Validate)
	mux.HandleFunc("POST /api/v1/stats", rt.Analysis.Stats)
	mux.HandleFunc("POST /api/v1/swap/recommend", rt.Swap.Recommend)
	mux.HandleFunc("POST /api/v1/swap/apply", rt.Swap.Apply)

	if rt.Runs != nil {
		mux.HandleFunc("GET /api/v1/runs", rt.Runs.List)
		mux.HandleFunc("GET /api/v1/runs/{id}", rt.Runs.Get)
	}
}
