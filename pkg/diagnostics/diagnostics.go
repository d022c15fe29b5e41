// Package diagnostics 比较总容量与总需求，并在容量不足时给出诊断信息
package diagnostics

import (
	"github.com/paiban/dutyplan/pkg/capacity"
	"github.com/paiban/dutyplan/pkg/model"
)

// ShortfallPolicy 总容量不足时的处理策略
type ShortfallPolicy string

const (
	// ShortfallReject 直接返回 infeasible 和诊断信息，不求解
	ShortfallReject ShortfallPolicy = "reject"
	// ShortfallPartial 仍然求解，返回 ok 并附带诊断信息
	ShortfallPartial ShortfallPolicy = "partial"
)

// IsValid 检查策略取值
func (p ShortfallPolicy) IsValid() bool {
	return p == ShortfallReject || p == ShortfallPartial
}

// Summary 预检查结果
type Summary struct {
	TotalCapacity int
	TotalRequired int
	// Diagnostics 仅在总容量不足时非空
	Diagnostics *model.Diagnostics
}

// Shortfall 是否总容量不足
func (s *Summary) Shortfall() bool {
	return s.TotalCapacity < s.TotalRequired
}

// Check 计算总容量与总需求，不足时生成每日容量与每人可用天数
func Check(grid *capacity.Grid, residents []model.Resident, required []int) *Summary {
	s := &Summary{TotalCapacity: grid.Total()}
	for _, r := range required {
		s.TotalRequired += r
	}

	if !s.Shortfall() {
		return s
	}

	perDate := make(map[string]int, len(grid.Days))
	for d, day := range grid.Days {
		perDate[day.ISO] = grid.DateTotal(d)
	}

	perResident := make(map[string]int, len(residents))
	for i := range residents {
		perResident[residents[i].Name] = AvailableDays(grid, &residents[i])
	}

	s.Diagnostics = &model.Diagnostics{
		TotalCapacity:            s.TotalCapacity,
		TotalRequired:            s.TotalRequired,
		PerDateCapacity:          perDate,
		PerResidentAvailableDays: perResident,
	}
	return s
}

// AvailableDays 当月中不属于该住院医不可排日期的天数
func AvailableDays(grid *capacity.Grid, r *model.Resident) int {
	excluded := r.ExcludedSet()
	n := 0
	for _, day := range grid.Days {
		if !excluded[day.ISO] {
			n++
		}
	}
	return n
}
