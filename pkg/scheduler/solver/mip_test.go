package solver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/dutyplan/pkg/model"
	"github.com/paiban/dutyplan/pkg/scheduler/objective"
)

func TestMIPSolver_Solve(t *testing.T) {
	tests := []struct {
		name      string
		residents []model.Resident
		required  []int
		config    map[string]map[string]int
		primary   string
		want      objective.Tiers
	}{
		{
			name:      "同日两家医院只能去一家",
			residents: []model.Resident{{Name: "r1"}},
			required:  []int{2},
			config:    map[string]map[string]int{"P": {"2025-04-10": 1}, "B": {"2025-04-10": 1}},
			primary:   "P",
			want:      objective.Tiers{Coverage: 1, Threshold: 1, Total: 1},
		},
		{
			name:      "主医院单日容量 2",
			residents: []model.Resident{{Name: "r1"}},
			required:  []int{2},
			config:    map[string]map[string]int{"大学病院": {"2025-04-01": 2}},
			primary:   "大学病院",
			want:      objective.Tiers{Coverage: 0, Threshold: 1, Total: 1},
		},
		{
			name:      "覆盖优先于总数",
			residents: []model.Resident{{Name: "r1"}, {Name: "r2"}},
			required:  []int{1, 1},
			config:    map[string]map[string]int{"A": {"2025-04-01": 1}, "P": {"2025-04-01": 2}},
			primary:   "P",
			want:      objective.Tiers{Coverage: 1, Threshold: 2, Total: 2},
		},
		{
			name:      "需求为 0",
			residents: []model.Resident{{Name: "r1"}},
			required:  []int{0},
			config:    map[string]map[string]int{"A": {"0": 1}},
			want:      objective.Tiers{},
		},
		{
			name:      "不可排日期",
			residents: []model.Resident{{Name: "r1", ExcludedDates: []string{"2025-04-01"}}, {Name: "r2"}},
			required:  []int{1, 1},
			config:    map[string]map[string]int{"A": {"2025-04-01": 1}},
			want:      objective.Tiers{Coverage: 1, Threshold: 1, Total: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, obj := buildModel(t, tt.residents, tt.required, tt.config, tt.primary)

			start := time.Now()
			res, err := NewMIPSolver(testOptions()).Solve(context.Background(), m, obj)
			require.NoError(t, err)

			assert.Equal(t, StatusOptimal, res.Status)
			assert.Equal(t, tt.want, res.Objective)
			assert.Equal(t, res.Objective, res.Bound)
			assert.Empty(t, res.Message)
			assert.Less(t, time.Since(start), time.Second)
			assert.True(t, m.Check(res.Solution.Values(m)).IsValid)
		})
	}
}

func TestMIPSolver_PicksNonPrimaryForCoverage(t *testing.T) {
	m, obj := buildModel(t, []model.Resident{{Name: "r1"}}, []int{2},
		map[string]map[string]int{"P": {"2025-04-10": 1}, "B": {"2025-04-10": 1}}, "P")

	res, err := NewMIPSolver(testOptions()).Solve(context.Background(), m, obj)
	require.NoError(t, err)

	d := 9 // 2025-04-10
	f := res.Solution.Assign[0][d]
	require.NotEqual(t, -1, f)
	assert.Equal(t, "B", m.Facilities[f])
}

func TestMIPSolver_FallsBackOnLargeModel(t *testing.T) {
	m, obj := buildModel(t, []model.Resident{{Name: "r1"}, {Name: "r2"}}, []int{2, 2},
		map[string]map[string]int{"A": {"0": 1}, "B": {"1": 1}}, "")

	opts := testOptions()
	opts.MIPMaxVars = 1
	res, err := NewMIPSolver(opts).Solve(context.Background(), m, obj)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Message)
	assert.True(t, res.Status.HasSolution())
	assert.Equal(t, int64(4), res.Objective.Total)
	assert.True(t, m.Check(res.Solution.Values(m)).IsValid)
}

func TestNew_SelectsSolver(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"mip", "MIPSolver"},
		{"", "MIPSolver"},
		{"lexsearch", "LexSolver"},
		{"greedy", "GreedySolver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.name, Options{}).Name())
		})
	}
}
