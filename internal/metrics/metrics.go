// Package metrics 提供Prometheus监控指标
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paiban/dutyplan/pkg/engine"
	"github.com/paiban/dutyplan/pkg/model"
	"github.com/paiban/dutyplan/pkg/stats"
)

const namespace = "dutyplan"

// Metrics 服务指标集合
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	solveTotal      *prometheus.CounterVec
	solveDuration   *prometheus.HistogramVec
	solveIterations prometheus.Counter
	solveGap        prometheus.Gauge
	activeSolves    prometheus.Gauge

	fulfilmentGini prometheus.Gauge
	coverageRate   prometheus.Gauge
}

var _ engine.Observer = (*Metrics)(nil)

// New 创建指标集合，每个实例使用独立的注册表
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP请求总数",
		}, []string{"method", "path", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP请求延迟",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "path"}),
		solveTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "runs_total",
			Help:      "求解次数",
		}, []string{"kind", "status"}),
		solveDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "duration_seconds",
			Help:      "求解耗时",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 15, 30},
		}, []string{"kind"}),
		solveIterations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "iterations_total",
			Help:      "局部搜索迭代次数",
		}),
		solveGap: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "last_total_gap",
			Help:      "最近一次求解分配总数与上界之差",
		}),
		activeSolves: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "active",
			Help:      "当前进行中的求解数",
		}),
		fulfilmentGini: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "schedule",
			Name:      "fulfilment_gini",
			Help:      "最近一次排班的完成率基尼系数",
		}),
		coverageRate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "schedule",
			Name:      "coverage_rate",
			Help:      "最近一次排班的名额覆盖率 (%)",
		}),
	}
}

// Registry 返回底层注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回Prometheus格式的指标HTTP处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest 记录请求指标
func (m *Metrics) RecordRequest(method, path string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// SolveStarted 求解开始，返回结束回调
func (m *Metrics) SolveStarted() func() {
	m.activeSolves.Inc()
	return m.activeSolves.Dec
}

// ObserveSolve 实现 engine.Observer
func (m *Metrics) ObserveSolve(kind, status string, duration time.Duration, st *model.SolveStatistics) {
	m.solveTotal.WithLabelValues(kind, status).Inc()
	m.solveDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if st == nil {
		return
	}
	m.solveIterations.Add(float64(st.Iterations))
	m.solveGap.Set(float64(st.UpperBound.Total - st.Objective.Total))
}

// ObserveSchedule 记录排班质量指标
func (m *Metrics) ObserveSchedule(fairness *stats.FairnessMetrics, coverage *stats.CoverageMetrics) {
	if fairness != nil {
		m.fulfilmentGini.Set(fairness.FulfilmentGini)
	}
	if coverage != nil {
		m.coverageRate.Set(coverage.OverallCoverage)
	}
}
