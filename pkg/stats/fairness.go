// Package stats 提供排班统计分析功能
package stats

import (
	"math"
	"sort"

	"github.com/paiban/dutyplan/pkg/calendar"
	"github.com/paiban/dutyplan/pkg/model"
)

// FairnessMetrics 公平性指标
type FairnessMetrics struct {
	// 完成率公平性
	FulfilmentGini   float64 `json:"fulfilment_gini"`   // 完成率基尼系数 (0=完全公平, 1=完全不公平)
	FulfilmentStdDev float64 `json:"fulfilment_std_dev"` // 完成率标准差
	AvgFulfilment    float64 `json:"avg_fulfilment"`    // 平均完成率
	RedDayGini       float64 `json:"red_day_gini"`      // 周末及节假日分配基尼系数

	// 人数统计（仅需求 > 0 的住院医）
	Fulfilled  int `json:"fulfilled"`  // 完全满足
	Partial    int `json:"partial"`    // 部分满足
	Unassigned int `json:"unassigned"` // 一次也未分配
	Exempt     int `json:"exempt"`     // 需求为 0

	ResidentStats []ResidentStat `json:"resident_stats"`

	// 综合评分
	OverallFairnessScore float64 `json:"overall_fairness_score"` // 综合公平性评分 (0-100)
}

// ResidentStat 住院医统计
type ResidentStat struct {
	Name       string         `json:"name"`
	Assigned   int            `json:"assigned"`
	Required   int            `json:"required"`
	Fulfilment float64        `json:"fulfilment"` // 已分配/需求，需求为 0 时为 1
	RedDays    int            `json:"red_days"`
	Facilities map[string]int `json:"facilities"`
}

// FairnessAnalyzer 公平性分析器
type FairnessAnalyzer struct {
	holidays calendar.HolidayCalendar
}

// NewFairnessAnalyzer 创建公平性分析器，holidays 可为 nil（只统计周末）
func NewFairnessAnalyzer(holidays calendar.HolidayCalendar) *FairnessAnalyzer {
	return &FairnessAnalyzer{holidays: holidays}
}

// Analyze 分析排班公平性
func (f *FairnessAnalyzer) Analyze(result *model.Result) *FairnessMetrics {
	if result == nil || len(result.PerResidentRequired) == 0 {
		return &FairnessMetrics{OverallFairnessScore: 100}
	}

	stats := f.residentStats(result)

	metrics := &FairnessMetrics{ResidentStats: stats}
	var fulfilment, redDays []float64
	for _, s := range stats {
		switch {
		case s.Required == 0:
			metrics.Exempt++
			continue
		case s.Assigned >= s.Required:
			metrics.Fulfilled++
		case s.Assigned == 0:
			metrics.Unassigned++
		default:
			metrics.Partial++
		}
		fulfilment = append(fulfilment, s.Fulfilment)
		redDays = append(redDays, float64(s.RedDays))
	}

	metrics.AvgFulfilment = mean(fulfilment)
	metrics.FulfilmentStdDev = math.Sqrt(variance(fulfilment, metrics.AvgFulfilment))
	// 对缺口 (1 - 完成率) 求基尼系数
	shortfall := make([]float64, len(fulfilment))
	for i, v := range fulfilment {
		shortfall[i] = 1 - v
	}
	metrics.FulfilmentGini = gini(shortfall)
	metrics.RedDayGini = gini(redDays)
	metrics.OverallFairnessScore = overallScore(metrics)
	return metrics
}

// residentStats 统计每个住院医，按完成率升序、姓名排序
func (f *FairnessAnalyzer) residentStats(result *model.Result) []ResidentStat {
	byName := make(map[string]*ResidentStat, len(result.PerResidentRequired))
	for name, required := range result.PerResidentRequired {
		byName[name] = &ResidentStat{
			Name:       name,
			Assigned:   result.PerResidentAssigned[name],
			Required:   required,
			Facilities: make(map[string]int),
		}
	}

	for date, byFacility := range result.Assignments {
		red := false
		if t, err := calendar.ParseDate(date); err == nil {
			red = calendar.IsRedDay(f.holidays, t)
		}
		for facility, names := range byFacility {
			for _, name := range names {
				s, ok := byName[name]
				if !ok {
					continue
				}
				s.Facilities[facility]++
				if red {
					s.RedDays++
				}
			}
		}
	}

	out := make([]ResidentStat, 0, len(byName))
	for _, s := range byName {
		s.Fulfilment = 1
		if s.Required > 0 {
			s.Fulfilment = math.Min(1, float64(s.Assigned)/float64(s.Required))
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Fulfilment != out[j].Fulfilment {
			return out[i].Fulfilment < out[j].Fulfilment
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// mean 计算平均值
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// variance 计算方差
func variance(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - m
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

// gini 计算基尼系数
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	g := 0.0
	for i, v := range sorted {
		g += (2*float64(i+1) - float64(n) - 1) * v
	}
	g = g / (float64(n) * sum)
	return math.Max(0, math.Min(1, g))
}

// overallScore 综合公平性评分
func overallScore(m *FairnessMetrics) float64 {
	const (
		fulfilmentWeight = 0.5
		spreadWeight     = 0.3
		redDayWeight     = 0.2
	)

	fulfilmentScore := m.AvgFulfilment * 100
	spreadScore := math.Max(0, 100-m.FulfilmentStdDev*200)
	redDayScore := (1 - m.RedDayGini) * 100

	score := fulfilmentWeight*fulfilmentScore +
		spreadWeight*spreadScore +
		redDayWeight*redDayScore
	return math.Max(0, math.Min(100, score))
}

// CompareResults 比较两个排班结果的公平性
func (f *FairnessAnalyzer) CompareResults(a, b *model.Result) map[string]float64 {
	m1 := f.Analyze(a)
	m2 := f.Analyze(b)

	return map[string]float64{
		"fulfilment_gini_diff":  m2.FulfilmentGini - m1.FulfilmentGini,
		"red_day_gini_diff":     m2.RedDayGini - m1.RedDayGini,
		"overall_score_diff":    m2.OverallFairnessScore - m1.OverallFairnessScore,
		"result1_overall_score": m1.OverallFairnessScore,
		"result2_overall_score": m2.OverallFairnessScore,
	}
}
