package solver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/dutyplan/pkg/calendar"
	"github.com/paiban/dutyplan/pkg/capacity"
	"github.com/paiban/dutyplan/pkg/model"
	"github.com/paiban/dutyplan/pkg/scheduler/constraint"
	"github.com/paiban/dutyplan/pkg/scheduler/objective"
)

func buildModel(t *testing.T, residents []model.Resident, required []int, config map[string]map[string]int, primary string) (*constraint.Model, *objective.Objective) {
	t.Helper()
	res, err := capacity.NewResolver(config)
	require.NoError(t, err)
	month, err := calendar.ParseMonth("2025-04")
	require.NoError(t, err)
	grid := res.Grid(month.Days(), model.FacilityNames(config, nil))
	m := constraint.Build(constraint.Input{Residents: residents, Required: required, Grid: grid, Primary: primary})
	return m, objective.New(m)
}

func testOptions() Options {
	return Options{TimeLimit: 2 * time.Second, Workers: 2, Seed: 42, PlateauThreshold: 200, MaxKicks: 20}
}

func TestRelaxation_UpperBoundIgnoresSameDay(t *testing.T) {
	// 一人需求 2，同一天两家医院各 1 个名额：松弛可同日两次，真实最优只能一次
	m, obj := buildModel(t, []model.Resident{{Name: "r1"}}, []int{2},
		map[string]map[string]int{"A": {"2025-04-01": 1}, "B": {"2025-04-01": 1}}, "")

	bound, places, err := newRelaxation(m, obj, nil).solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, objective.Tiers{Coverage: 2, Threshold: 2, Total: 2}, bound)
	assert.Len(t, places, 2)

	banned := make(banSet)
	assert.Equal(t, 1, conflicts(m, places, banned))

	repaired, places, err := newRelaxation(m, obj, banned).solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, objective.Tiers{Coverage: 1, Threshold: 1, Total: 1}, repaired)
	assert.Len(t, places, 1)
	assert.Equal(t, 0, places[0].Facility)
}

func TestLexSolver_Solve(t *testing.T) {
	tests := []struct {
		name      string
		residents []model.Resident
		required  []int
		config    map[string]map[string]int
		primary   string
		wantTotal int64
		status    Status
	}{
		{
			name:      "主医院单日容量 2",
			residents: []model.Resident{{Name: "r1"}},
			required:  []int{2},
			config:    map[string]map[string]int{"大学病院": {"2025-04-01": 2}},
			primary:   "大学病院",
			wantTotal: 1,
			status:    StatusOptimal,
		},
		{
			name:      "同日冲突需要修复",
			residents: []model.Resident{{Name: "r1"}, {Name: "r2"}},
			required:  []int{2, 2},
			config: map[string]map[string]int{
				"A": {"2025-04-01": 1, "2025-04-02": 1},
				"B": {"2025-04-01": 1, "2025-04-02": 1},
			},
			wantTotal: 4,
			status:    StatusOptimal,
		},
		{
			name:      "需求为 0",
			residents: []model.Resident{{Name: "r1"}},
			required:  []int{0},
			config:    map[string]map[string]int{"A": {"0": 1}},
			wantTotal: 0,
			status:    StatusOptimal,
		},
		{
			name: "每日覆盖优先",
			residents: []model.Resident{
				{Name: "r1"}, {Name: "r2"}, {Name: "r3"},
			},
			required: []int{2, 2, 2},
			config: map[string]map[string]int{
				"P": {"1": 2},
				"A": {"2025-04-01": 1, "2025-04-08": 1},
				"B": {"3": 1},
			},
			primary:   "P",
			wantTotal: 6,
			status:    StatusOptimal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, obj := buildModel(t, tt.residents, tt.required, tt.config, tt.primary)
			res, err := NewLexSolver(testOptions()).Solve(context.Background(), m, obj)
			require.NoError(t, err)
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.wantTotal, res.Objective.Total)
			assert.True(t, m.Check(res.Solution.Values(m)).IsValid)
			assert.Equal(t, res.Bound, res.Objective)
		})
	}
}

func TestLexSolver_CoverageBeatsTotal(t *testing.T) {
	// 两人各需 1 次：A 当天 1 个名额（非主医院），P 当天 2 个名额
	// 覆盖优先：一人去 A，一人去 P
	m, obj := buildModel(t, []model.Resident{{Name: "r1"}, {Name: "r2"}}, []int{1, 1},
		map[string]map[string]int{"A": {"2025-04-01": 1}, "P": {"2025-04-01": 2}}, "P")

	res, err := NewLexSolver(testOptions()).Solve(context.Background(), m, obj)
	require.NoError(t, err)
	assert.Equal(t, objective.Tiers{Coverage: 1, Threshold: 2, Total: 2}, res.Objective)
}

func TestLexSolver_CancelledContextReturnsSolution(t *testing.T) {
	m, obj := buildModel(t, []model.Resident{{Name: "r1"}}, []int{2},
		map[string]map[string]int{"A": {"0": 1}}, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewLexSolver(testOptions()).Solve(ctx, m, obj)
	require.NoError(t, err)
	assert.True(t, res.Status.HasSolution())
	assert.True(t, m.Check(res.Solution.Values(m)).IsValid)
}

func TestGreedySolver(t *testing.T) {
	m, obj := buildModel(t, []model.Resident{{Name: "r1"}, {Name: "r2"}}, []int{2, 2},
		map[string]map[string]int{"A": {"0": 1}, "B": {"1": 1}}, "")

	res, err := New("greedy", Options{}).Solve(context.Background(), m, obj)
	require.NoError(t, err)
	assert.Equal(t, "GreedySolver", NewGreedySolver().Name())
	assert.True(t, res.Status.HasSolution())
	assert.Equal(t, int64(4), res.Objective.Total)
	assert.True(t, m.Check(res.Solution.Values(m)).IsValid)
}

func TestOptions_WithDefaults(t *testing.T) {
	o := Options{Workers: 3}.withDefaults()
	assert.Equal(t, 10*time.Second, o.TimeLimit)
	assert.Equal(t, 3, o.Workers)
	assert.Equal(t, 8, o.RepairRounds)
}

func TestSolveAggregate(t *testing.T) {
	tests := []struct {
		name      string
		residents []string
		slots     map[string]int
		status    Status
	}{
		{
			name:      "可行",
			residents: []string{"a", "b", "c"},
			slots:     map[string]int{"P": 4, "X": 1, "Y": 1},
			status:    StatusOptimal,
		},
		{
			name:      "每人每院上限导致不可行",
			residents: []string{"a", "b"},
			slots:     map[string]int{"P": 0, "X": 4},
			status:    StatusInfeasible,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facilities := model.FacilitySlotNames(tt.slots, nil)
			m, err := constraint.BuildAggregate(tt.residents, facilities, tt.slots, 2, "P")
			require.NoError(t, err)

			res := SolveAggregate(m)
			assert.Equal(t, tt.status, res.Status)
			if tt.status == StatusOptimal {
				assert.True(t, m.Check(res.Counts).IsValid)
			}
		})
	}
}
