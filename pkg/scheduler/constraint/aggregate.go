package constraint

import (
	"fmt"

	"github.com/paiban/dutyplan/pkg/model"
)

// SlotMismatchError 总名额与总需求不相等
type SlotMismatchError struct {
	TotalSlots    int
	TotalRequired int
}

// Error 实现 error 接口
func (e *SlotMismatchError) Error() string {
	return fmt.Sprintf("总名额 %d 与总需求 %d 不相等", e.TotalSlots, e.TotalRequired)
}

// AggregateModel 等式模式模型：每人每院一个整数变量
type AggregateModel struct {
	Residents    []string
	Facilities   []string
	Slots        []int
	PerPersonCap []int
	PerResident  int
	Primary      int
}

// BuildAggregate 构建等式模式模型，总名额 ≠ 人数 × 每人需求时返回 SlotMismatchError
func BuildAggregate(residents, facilities []string, slots map[string]int, perResident int, primary string) (*AggregateModel, error) {
	m := &AggregateModel{
		Residents:    residents,
		Facilities:   facilities,
		Slots:        make([]int, len(facilities)),
		PerPersonCap: make([]int, len(facilities)),
		PerResident:  perResident,
		Primary:      -1,
	}

	total := 0
	for f, name := range facilities {
		m.Slots[f] = slots[name]
		total += m.Slots[f]
		if name == primary {
			m.Primary = f
		}
		facility := model.Facility{Name: name, Primary: name == primary}
		m.PerPersonCap[f] = facility.PerPersonCap()
	}

	required := len(residents) * perResident
	if total != required {
		return nil, &SlotMismatchError{TotalSlots: total, TotalRequired: required}
	}
	return m, nil
}

// TotalSlots 总名额
func (m *AggregateModel) TotalSlots() int {
	total := 0
	for _, s := range m.Slots {
		total += s
	}
	return total
}

// Check 校验计数矩阵 counts[resident][facility]
func (m *AggregateModel) Check(counts [][]int) *Result {
	result := &Result{
		IsValid:        true,
		HardViolations: make([]ViolationDetail, 0),
	}
	add := func(v ViolationDetail) {
		result.IsValid = false
		v.ConstraintName = v.ConstraintType.Name()
		v.Severity = "error"
		result.HardViolations = append(result.HardViolations, v)
	}

	colSum := make([]int, len(m.Facilities))
	for r, name := range m.Residents {
		rowSum := 0
		for f := range m.Facilities {
			c := counts[r][f]
			result.RowsChecked++
			if c < 0 || c > m.PerPersonCap[f] {
				add(ViolationDetail{
					ConstraintType: TypeFacilityCap,
					Resident:       name,
					Facility:       m.Facilities[f],
					Value:          c,
					Bound:          m.PerPersonCap[f],
					Message:        fmt.Sprintf("%s 在 %s 分配 %d 次，上限 %d", name, m.Facilities[f], c, m.PerPersonCap[f]),
				})
			}
			rowSum += c
			colSum[f] += c
		}
		result.RowsChecked++
		if rowSum != m.PerResident {
			add(ViolationDetail{
				ConstraintType: TypeQuotaEquality,
				Resident:       name,
				Value:          rowSum,
				Bound:          m.PerResident,
				Message:        fmt.Sprintf("%s 分配 %d 次，应为 %d", name, rowSum, m.PerResident),
			})
		}
	}

	for f, name := range m.Facilities {
		result.RowsChecked++
		if colSum[f] != m.Slots[f] {
			add(ViolationDetail{
				ConstraintType: TypeCapacityEquality,
				Facility:       name,
				Value:          colSum[f],
				Bound:          m.Slots[f],
				Message:        fmt.Sprintf("%s 分配 %d 个名额，应为 %d", name, colSum[f], m.Slots[f]),
			})
		}
	}
	return result
}
