package constraint

import (
	"fmt"

	"github.com/paiban/dutyplan/pkg/calendar"
	"github.com/paiban/dutyplan/pkg/capacity"
	"github.com/paiban/dutyplan/pkg/model"
)

// Var 决策变量：住院医 r 在第 d 天去医院 f
type Var struct {
	Resident int
	Day      int
	Facility int
	Upper    int // 0 或 1
}

// Row 线性约束行：Σ vars ≤ Bound
type Row struct {
	Type     Type
	Vars     []int
	Bound    int
	Resident int // 不适用时为 -1
	Day      int
	Facility int
}

// Input 建模输入
type Input struct {
	Residents []model.Resident
	Required  []int
	Grid      *capacity.Grid
	Primary   string
}

// Model 排班约束模型
type Model struct {
	Residents    []string
	Required     []int
	Days         []calendar.Day
	Facilities   []string
	PerPersonCap []int
	Capacity     [][]int // [day][facility]
	Primary      int     // 主医院下标，无则为 -1

	Vars []Var
	Rows []Row

	excluded [][]bool // [resident][day]
}

// Build 为每个 (住院医, 日期, 医院) 建立 0/1 变量并编码全部硬约束
func Build(in Input) *Model {
	R, D, F := len(in.Residents), len(in.Grid.Days), len(in.Grid.Facilities)

	m := &Model{
		Residents:    make([]string, R),
		Required:     append([]int(nil), in.Required...),
		Days:         in.Grid.Days,
		Facilities:   in.Grid.Facilities,
		PerPersonCap: make([]int, F),
		Capacity:     make([][]int, D),
		Primary:      in.Grid.FacilityIndex(in.Primary),
		Vars:         make([]Var, R*D*F),
		excluded:     make([][]bool, R),
	}

	for f, name := range m.Facilities {
		facility := model.Facility{Name: name, Primary: f == m.Primary}
		m.PerPersonCap[f] = facility.PerPersonCap()
	}
	for d := range m.Days {
		m.Capacity[d] = make([]int, F)
		for f := range m.Facilities {
			m.Capacity[d][f] = in.Grid.At(d, f)
		}
	}

	for r := range in.Residents {
		m.Residents[r] = in.Residents[r].Name
		excluded := in.Residents[r].ExcludedSet()
		m.excluded[r] = make([]bool, D)
		for d, day := range m.Days {
			m.excluded[r][d] = excluded[day.ISO]
			for f := range m.Facilities {
				upper := 1
				if m.excluded[r][d] {
					upper = 0
				}
				m.Vars[m.VarIndex(r, d, f)] = Var{Resident: r, Day: d, Facility: f, Upper: upper}
			}
		}
	}

	m.buildRows()
	return m
}

// buildRows 生成约束行
func (m *Model) buildRows() {
	R, D, F := len(m.Residents), len(m.Days), len(m.Facilities)

	for r := 0; r < R; r++ {
		vars := make([]int, 0, D*F)
		for d := 0; d < D; d++ {
			for f := 0; f < F; f++ {
				vars = append(vars, m.VarIndex(r, d, f))
			}
		}
		m.Rows = append(m.Rows, Row{Type: TypeQuota, Vars: vars, Bound: m.Required[r], Resident: r, Day: -1, Facility: -1})
	}

	for d := 0; d < D; d++ {
		for f := 0; f < F; f++ {
			vars := make([]int, 0, R)
			for r := 0; r < R; r++ {
				vars = append(vars, m.VarIndex(r, d, f))
			}
			m.Rows = append(m.Rows, Row{Type: TypeCapacity, Vars: vars, Bound: m.Capacity[d][f], Resident: -1, Day: d, Facility: f})
		}
	}

	for r := 0; r < R; r++ {
		for f := 0; f < F; f++ {
			vars := make([]int, 0, D)
			for d := 0; d < D; d++ {
				vars = append(vars, m.VarIndex(r, d, f))
			}
			m.Rows = append(m.Rows, Row{Type: TypeFacilityCap, Vars: vars, Bound: m.PerPersonCap[f], Resident: r, Day: -1, Facility: f})
		}
	}

	for r := 0; r < R; r++ {
		for d := 0; d < D; d++ {
			vars := make([]int, 0, F)
			for f := 0; f < F; f++ {
				vars = append(vars, m.VarIndex(r, d, f))
			}
			m.Rows = append(m.Rows, Row{Type: TypeSinglePerDay, Vars: vars, Bound: 1, Resident: r, Day: d, Facility: -1})
			if m.excluded[r][d] {
				m.Rows = append(m.Rows, Row{Type: TypeExclusion, Vars: vars, Bound: 0, Resident: r, Day: d, Facility: -1})
			}
		}
	}
}

// VarIndex 变量下标
func (m *Model) VarIndex(r, d, f int) int {
	return (r*len(m.Days)+d)*len(m.Facilities) + f
}

// NumVars 变量个数
func (m *Model) NumVars() int {
	return len(m.Vars)
}

// Excluded 住院医 r 第 d 天是否不可排
func (m *Model) Excluded(r, d int) bool {
	return m.excluded[r][d]
}

// Allowed 变量是否可能取 1（非不可排日期且容量 > 0）
func (m *Model) Allowed(r, d, f int) bool {
	return m.Vars[m.VarIndex(r, d, f)].Upper > 0 && m.Capacity[d][f] > 0
}

// IsPrimary 是否为主医院
func (m *Model) IsPrimary(f int) bool {
	return f == m.Primary
}

// TotalCapacity 总容量
func (m *Model) TotalCapacity() int {
	total := 0
	for d := range m.Capacity {
		for _, c := range m.Capacity[d] {
			total += c
		}
	}
	return total
}

// RowsOf 返回某类约束行
func (m *Model) RowsOf(t Type) []Row {
	var rows []Row
	for _, row := range m.Rows {
		if row.Type == t {
			rows = append(rows, row)
		}
	}
	return rows
}

// Check 评估一组 0/1 赋值是否满足全部约束行
func (m *Model) Check(values []bool) *Result {
	result := &Result{
		IsValid:        true,
		HardViolations: make([]ViolationDetail, 0),
	}
	if len(values) != len(m.Vars) {
		result.IsValid = false
		result.HardViolations = append(result.HardViolations, ViolationDetail{
			ConstraintName: "变量个数",
			Message:        fmt.Sprintf("赋值长度 %d 与变量个数 %d 不一致", len(values), len(m.Vars)),
			Severity:       "error",
			Value:          len(values),
			Bound:          len(m.Vars),
		})
		return result
	}

	for _, row := range m.Rows {
		result.RowsChecked++
		sum := 0
		for _, v := range row.Vars {
			if values[v] {
				sum++
			}
		}
		if sum <= row.Bound {
			continue
		}
		result.IsValid = false
		result.HardViolations = append(result.HardViolations, m.violation(row, sum))
	}
	return result
}

// violation 构造违反详情
func (m *Model) violation(row Row, sum int) ViolationDetail {
	v := ViolationDetail{
		ConstraintType: row.Type,
		ConstraintName: row.Type.Name(),
		Severity:       "error",
		Value:          sum,
		Bound:          row.Bound,
	}
	if row.Resident >= 0 {
		v.Resident = m.Residents[row.Resident]
	}
	if row.Day >= 0 {
		v.Date = m.Days[row.Day].ISO
	}
	if row.Facility >= 0 {
		v.Facility = m.Facilities[row.Facility]
	}
	v.Message = fmt.Sprintf("%s: %d > %d (住院医=%s 日期=%s 医院=%s)",
		v.ConstraintName, sum, row.Bound, v.Resident, v.Date, v.Facility)
	return v
}
