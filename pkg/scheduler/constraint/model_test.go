package constraint

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/dutyplan/pkg/calendar"
	"github.com/paiban/dutyplan/pkg/capacity"
	"github.com/paiban/dutyplan/pkg/model"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()
	config := map[string]map[string]int{
		"大学病院": {"2025-04-01": 2},
		"B":    {"2025-04-01": 1, "2025-04-02": 1},
	}
	res, err := capacity.NewResolver(config)
	require.NoError(t, err)
	month, err := calendar.ParseMonth("2025-04")
	require.NoError(t, err)
	grid := res.Grid(month.Days(), []string{"大学病院", "B"})

	return Build(Input{
		Residents: []model.Resident{
			{Name: "r1", ExcludedDates: []string{"2025-04-02"}},
			{Name: "r2"},
		},
		Required: []int{2, 1},
		Grid:     grid,
		Primary:  "大学病院",
	})
}

func TestBuild_VarsAndRows(t *testing.T) {
	m := newTestModel(t)

	assert.Equal(t, 2*30*2, m.NumVars())
	assert.Equal(t, 0, m.Primary)
	assert.Equal(t, []int{2, 1}, m.PerPersonCap)
	assert.Equal(t, 4, m.TotalCapacity())

	assert.Len(t, m.RowsOf(TypeQuota), 2)
	assert.Len(t, m.RowsOf(TypeCapacity), 30*2)
	assert.Len(t, m.RowsOf(TypeFacilityCap), 2*2)
	assert.Len(t, m.RowsOf(TypeSinglePerDay), 2*30)
	assert.Len(t, m.RowsOf(TypeExclusion), 1)

	assert.True(t, m.Excluded(0, 1))
	assert.False(t, m.Allowed(0, 1, 1), "excluded date must not be allowed")
	assert.True(t, m.Allowed(1, 1, 1))
	assert.False(t, m.Allowed(1, 2, 1), "zero capacity must not be allowed")
}

func TestModel_Check(t *testing.T) {
	m := newTestModel(t)

	tests := []struct {
		name  string
		set   [][3]int
		valid bool
		typ   Type
	}{
		{name: "空赋值", valid: true},
		{name: "合法赋值", set: [][3]int{{0, 0, 0}, {1, 0, 1}}, valid: true},
		{name: "同日两次", set: [][3]int{{0, 0, 0}, {0, 0, 1}}, typ: TypeSinglePerDay},
		{name: "不可排日期", set: [][3]int{{0, 1, 1}}, typ: TypeExclusion},
		{name: "超出需求", set: [][3]int{{1, 0, 0}, {1, 1, 1}}, typ: TypeQuota},
		{name: "超出容量", set: [][3]int{{1, 1, 0}}, typ: TypeCapacity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := make([]bool, m.NumVars())
			for _, s := range tt.set {
				values[m.VarIndex(s[0], s[1], s[2])] = true
			}
			result := m.Check(values)
			if result.IsValid != tt.valid {
				t.Fatalf("IsValid = %v, want %v (%v)", result.IsValid, tt.valid, result.HardViolations)
			}
			if !tt.valid {
				if result.ByType()[tt.typ] == 0 {
					t.Errorf("expected violation of %s, got %v", tt.typ, result.HardViolations)
				}
				if result.Err() == nil {
					t.Error("expected non-nil error")
				}
			}
		})
	}
}

func TestModel_CheckLength(t *testing.T) {
	m := newTestModel(t)
	result := m.Check(make([]bool, 3))
	assert.False(t, result.IsValid)
}

func TestBuildAggregate(t *testing.T) {
	_, err := BuildAggregate([]string{"a", "b"}, []string{"P", "X"}, map[string]int{"P": 2, "X": 1}, 2, "P")
	var mismatch *SlotMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 3, mismatch.TotalSlots)
	assert.Equal(t, 4, mismatch.TotalRequired)

	m, err := BuildAggregate([]string{"a", "b"}, []string{"P", "X"}, map[string]int{"P": 2, "X": 2}, 2, "P")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, m.PerPersonCap)
	assert.Equal(t, 4, m.TotalSlots())

	assert.True(t, m.Check([][]int{{1, 1}, {1, 1}}).IsValid)

	bad := m.Check([][]int{{0, 2}, {2, 0}})
	assert.False(t, bad.IsValid)
	assert.Equal(t, 1, bad.ByType()[TypeFacilityCap])
}
