package stats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paiban/dutyplan/pkg/calendar"
	"github.com/paiban/dutyplan/pkg/capacity"
	"github.com/paiban/dutyplan/pkg/model"
)

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	// 整体
	TotalCapacity   int     `json:"total_capacity"`   // 总名额
	Assigned        int     `json:"assigned"`         // 已分配名额
	FillRate        float64 `json:"fill_rate"`        // 名额填充率 (%)
	OpenSlots       int     `json:"open_slots"`       // 容量 > 0 的 (日期, 医院)
	CoveredSlots    int     `json:"covered_slots"`    // 至少一人的 (日期, 医院)
	OverallCoverage float64 `json:"overall_coverage"` // 覆盖率 (%)

	FacilityCoverage []FacilityCoverage     `json:"facility_coverage"`
	DailyCoverage    map[string]DayCoverage `json:"daily_coverage"`

	// 问题识别
	UncoveredSlots []UncoveredSlot `json:"uncovered_slots"`
}

// FacilityCoverage 每家医院的覆盖情况
type FacilityCoverage struct {
	Facility     string  `json:"facility"`
	Primary      bool    `json:"primary"`
	Capacity     int     `json:"capacity"`
	Assigned     int     `json:"assigned"`
	OpenSlots    int     `json:"open_slots"`
	CoveredSlots int     `json:"covered_slots"`
	CoverageRate float64 `json:"coverage_rate"`
	FillRate     float64 `json:"fill_rate"`
}

// DayCoverage 每日覆盖情况
type DayCoverage struct {
	Date     string  `json:"date"`
	Capacity int     `json:"capacity"`
	Assigned int     `json:"assigned"`
	FillRate float64 `json:"fill_rate"`
	RedDay   bool    `json:"red_day"`
}

// UncoveredSlot 有容量但无人的 (日期, 医院)
type UncoveredSlot struct {
	Date     string `json:"date"`
	Facility string `json:"facility"`
	Capacity int    `json:"capacity"`
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct {
	holidays calendar.HolidayCalendar
}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer(holidays calendar.HolidayCalendar) *CoverageAnalyzer {
	return &CoverageAnalyzer{holidays: holidays}
}

// AnalyzeRequest 由请求重建容量矩阵后分析覆盖率
func (c *CoverageAnalyzer) AnalyzeRequest(req *model.Request, result *model.Result) (*CoverageMetrics, error) {
	month, err := calendar.ParseMonth(req.Month)
	if err != nil {
		return nil, err
	}
	resolver, err := capacity.NewResolver(req.FacilityConfig)
	if err != nil {
		return nil, err
	}
	grid := resolver.Grid(month.Days(), model.FacilityNames(req.FacilityConfig, req.FacilityOrder))
	return c.Analyze(grid, req.PrimaryFacilityName, result), nil
}

// Analyze 分析覆盖率，结果中不在矩阵内的日期或医院被忽略
func (c *CoverageAnalyzer) Analyze(grid *capacity.Grid, primary string, result *model.Result) *CoverageMetrics {
	metrics := &CoverageMetrics{
		FacilityCoverage: make([]FacilityCoverage, len(grid.Facilities)),
		DailyCoverage:    make(map[string]DayCoverage, len(grid.Days)),
	}
	for f, name := range grid.Facilities {
		metrics.FacilityCoverage[f] = FacilityCoverage{Facility: name, Primary: name == primary}
	}

	for d, day := range grid.Days {
		dc := DayCoverage{Date: day.ISO, RedDay: calendar.IsRedDay(c.holidays, day.Date)}
		for f, name := range grid.Facilities {
			limit := grid.At(d, f)
			assigned := 0
			if result != nil {
				assigned = len(result.AssignedOn(day.ISO, name))
			}

			fc := &metrics.FacilityCoverage[f]
			fc.Capacity += limit
			fc.Assigned += assigned
			dc.Capacity += limit
			dc.Assigned += assigned

			if limit == 0 {
				continue
			}
			fc.OpenSlots++
			if assigned > 0 {
				fc.CoveredSlots++
			} else {
				metrics.UncoveredSlots = append(metrics.UncoveredSlots, UncoveredSlot{
					Date:     day.ISO,
					Facility: name,
					Capacity: limit,
				})
			}
		}
		dc.FillRate = percent(dc.Assigned, dc.Capacity)
		metrics.DailyCoverage[day.ISO] = dc
	}

	for i := range metrics.FacilityCoverage {
		fc := &metrics.FacilityCoverage[i]
		fc.CoverageRate = percent(fc.CoveredSlots, fc.OpenSlots)
		fc.FillRate = percent(fc.Assigned, fc.Capacity)
		metrics.TotalCapacity += fc.Capacity
		metrics.Assigned += fc.Assigned
		metrics.OpenSlots += fc.OpenSlots
		metrics.CoveredSlots += fc.CoveredSlots
	}
	metrics.FillRate = percent(metrics.Assigned, metrics.TotalCapacity)
	metrics.OverallCoverage = percent(metrics.CoveredSlots, metrics.OpenSlots)

	sort.SliceStable(metrics.UncoveredSlots, func(i, j int) bool {
		return metrics.UncoveredSlots[i].Date < metrics.UncoveredSlots[j].Date
	})
	return metrics
}

// percent 没有分母时视为 100%
func percent(n, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(n) / float64(total) * 100
}

// GenerateCoverageReport 生成覆盖率报告
func (c *CoverageAnalyzer) GenerateCoverageReport(metrics *CoverageMetrics) string {
	var b strings.Builder
	b.WriteString("=== 覆盖率分析报告 ===\n\n")

	b.WriteString("【整体覆盖情况】\n")
	fmt.Fprintf(&b, "  总名额: %d\n", metrics.TotalCapacity)
	fmt.Fprintf(&b, "  已分配: %d\n", metrics.Assigned)
	fmt.Fprintf(&b, "  填充率: %.1f%%\n", metrics.FillRate)
	fmt.Fprintf(&b, "  覆盖率: %.1f%% (%d/%d)\n\n", metrics.OverallCoverage, metrics.CoveredSlots, metrics.OpenSlots)

	b.WriteString("【按医院】\n")
	for _, fc := range metrics.FacilityCoverage {
		mark := ""
		if fc.Primary {
			mark = " (主)"
		}
		fmt.Fprintf(&b, "  - %s%s: 名额 %d，已分配 %d，覆盖 %d/%d\n",
			fc.Facility, mark, fc.Capacity, fc.Assigned, fc.CoveredSlots, fc.OpenSlots)
	}

	if len(metrics.UncoveredSlots) > 0 {
		b.WriteString("\n【未覆盖】\n")
		for _, s := range metrics.UncoveredSlots {
			fmt.Fprintf(&b, "  - %s %s (容量 %d)\n", s.Date, s.Facility, s.Capacity)
		}
	}
	return b.String()
}
