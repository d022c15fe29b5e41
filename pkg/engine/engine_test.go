package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/dutyplan/pkg/calendar"
	"github.com/paiban/dutyplan/pkg/capacity"
	"github.com/paiban/dutyplan/pkg/diagnostics"
	apperrors "github.com/paiban/dutyplan/pkg/errors"
	"github.com/paiban/dutyplan/pkg/model"
	"github.com/paiban/dutyplan/pkg/scheduler/constraint"
	"github.com/paiban/dutyplan/pkg/scheduler/solver"
)

type memRecorder struct {
	mu      sync.Mutex
	records []*RunRecord
}

func (m *memRecorder) RecordRun(_ context.Context, rec *RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

type countObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *countObserver) ObserveSolve(kind, status string, _ time.Duration, _ *model.SolveStatistics) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = make(map[string]int)
	}
	o.counts[kind+"/"+status]++
}

func testEngine(opts ...Option) *Engine {
	cfg := DefaultConfig()
	cfg.Solver = solver.Options{TimeLimit: 2 * time.Second, Workers: 2, Seed: 7, PlateauThreshold: 200, MaxKicks: 20}
	return New(cfg, opts...)
}

func TestEngine_Solve_Scenarios(t *testing.T) {
	t.Run("总容量不足返回诊断", func(t *testing.T) {
		req := &model.Request{
			Month:     "2025-04",
			Residents: []model.Resident{{Name: "甲"}, {Name: "乙"}},
			FacilityConfig: map[string]map[string]int{
				"A": {"2025-04-03": 1, "2025-04-17": 1},
			},
		}

		result, err := testEngine().Solve(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, model.StatusInfeasible, result.Status)
		require.NotNil(t, result.Diagnostics)
		assert.Equal(t, 2, result.Diagnostics.TotalCapacity)
		assert.Equal(t, 4, result.Diagnostics.TotalRequired)
		assert.Equal(t, 1, result.Diagnostics.PerDateCapacity["2025-04-03"])
		assert.Equal(t, 0, result.Diagnostics.PerDateCapacity["2025-04-04"])
		assert.Equal(t, 30, result.Diagnostics.PerResidentAvailableDays["甲"])
		assert.Empty(t, result.Assignments)
	})

	t.Run("主医院单日容量只能部分满足", func(t *testing.T) {
		req := &model.Request{
			Month:               "2025-04",
			Residents:           []model.Resident{{Name: "甲"}},
			PrimaryFacilityName: "大学病院",
			FacilityConfig: map[string]map[string]int{
				"大学病院": {"2025-04-10": 2},
			},
		}

		result, err := testEngine().Solve(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, model.StatusOK, result.Status)
		assert.Equal(t, 1, result.TotalAssigned)
		assert.Equal(t, 2, result.TotalRequired)
		assert.Equal(t, []string{"甲"}, result.AssignedOn("2025-04-10", "大学病院"))
		assert.Equal(t, []string{"甲"}, result.UnderAssigned())
		assert.Nil(t, result.Diagnostics)
	})

	t.Run("不可排日期不占用他人名额", func(t *testing.T) {
		req := &model.Request{
			Month: "2025-04",
			Residents: []model.Resident{
				{Name: "甲", ExcludedDates: []string{"2025-04-05"}, RequiredAssignments: model.IntPtr(1)},
				{Name: "乙", RequiredAssignments: model.IntPtr(1)},
			},
			FacilityConfig: map[string]map[string]int{
				"A": {"2025-04-05": 1},
				"B": {"2025-04-06": 1},
			},
		}

		result, err := testEngine().Solve(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, model.StatusOK, result.Status)
		assert.Equal(t, []string{"乙"}, result.AssignedOn("2025-04-05", "A"))
		assert.Equal(t, []string{"甲"}, result.AssignedOn("2025-04-06", "B"))
		assert.Equal(t, 2, result.TotalAssigned)
	})
}

func TestEngine_Solve_Invariants(t *testing.T) {
	req := &model.Request{
		Month: "2025-02",
		Residents: []model.Resident{
			{Name: "r1"},
			{Name: "r2", ExcludedDates: []string{"2025-02-03", "2025-02-10"}},
			{Name: "r3", RotationClass: "OFFSITE_NO_ER"},
			{Name: "r4"},
			{Name: "r5", RequiredAssignments: model.IntPtr(3)},
		},
		PrimaryFacilityName: "大学病院",
		FacilityConfig: map[string]map[string]int{
			"大学病院": {"0": 2, "3": 2},
			"A":    {"5": 1},
			"B":    {"2025-02-14": 1, "6": 0},
		},
		FacilityOrder: []string{"大学病院", "B"},
	}

	result, err := testEngine().Solve(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, model.StatusOK, result.Status)

	assert.Equal(t, []string{"大学病院", "B", "A"}, result.Facilities)
	assert.Len(t, result.Dates, 28)
	assert.Equal(t, 0, result.PerResidentRequired["r3"])
	assert.Equal(t, 3, result.PerResidentRequired["r5"])

	month, err := calendar.ParseMonth(req.Month)
	require.NoError(t, err)
	resolver, err := capacity.NewResolver(req.FacilityConfig)
	require.NoError(t, err)
	grid := resolver.Grid(month.Days(), result.Facilities)
	capOf := func(facility, date string) int {
		return grid.At(grid.DayIndex(date), grid.FacilityIndex(facility))
	}
	assert.Zero(t, capOf("B", "2025-02-09"))
	assert.Equal(t, 1, capOf("B", "2025-02-14"))

	perFacility := map[string]map[string]int{}
	total := 0
	for date, byFacility := range result.Assignments {
		seen := map[string]bool{}
		for facility, names := range byFacility {
			assert.LessOrEqual(t, len(names), capOf(facility, date))
			for _, name := range names {
				assert.False(t, seen[name], "resident %s assigned twice on %s", name, date)
				seen[name] = true
				if name == "r2" {
					assert.NotContains(t, []string{"2025-02-03", "2025-02-10"}, date)
				}
				if perFacility[name] == nil {
					perFacility[name] = map[string]int{}
				}
				perFacility[name][facility]++
				total++
			}
		}
	}
	assert.Equal(t, result.TotalAssigned, total)

	for name, counts := range perFacility {
		for facility, n := range counts {
			limit := model.SecondaryPerPersonCap
			if facility == "大学病院" {
				limit = model.PrimaryPerPersonCap
			}
			assert.LessOrEqual(t, n, limit, "%s at %s", name, facility)
		}
		assert.LessOrEqual(t, result.PerResidentAssigned[name], result.PerResidentRequired[name])
	}
	assert.Empty(t, perFacility["r3"])

	require.NotNil(t, result.Statistics)
	assert.NotEmpty(t, result.Statistics.RunID)
	assert.NotEmpty(t, result.Statistics.Objective.Weighted)
	assert.Equal(t, int64(result.TotalAssigned), result.Statistics.Objective.Total)
}

func TestEngine_Solve_ExactOnSmallMonth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Solver = solver.Options{TimeLimit: 2 * time.Second, Workers: 1}
	e := New(cfg)

	req := &model.Request{
		Month:               "2025-04",
		Residents:           []model.Resident{{Name: "甲"}},
		PrimaryFacilityName: "P",
		FacilityConfig: map[string]map[string]int{
			"P": {"2025-04-10": 1},
			"B": {"2025-04-10": 1},
		},
	}

	start := time.Now()
	result, err := e.Solve(context.Background(), req)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	assert.Equal(t, model.StatusOK, result.Status)
	assert.Equal(t, 1, result.TotalAssigned)
	assert.Equal(t, []string{"甲"}, result.AssignedOn("2025-04-10", "B"))
	require.NotNil(t, result.Statistics)
	assert.Equal(t, "optimal", result.Statistics.SolverStatus)
	assert.Equal(t, result.Statistics.UpperBound, result.Statistics.Objective)
}

func TestEngine_New_DefaultsRequired(t *testing.T) {
	e := New(Config{Solver: solver.Options{TimeLimit: time.Second, Workers: 1}})
	assert.Equal(t, model.DefaultRequiredPerResident, e.Config().DefaultRequired)

	req := &model.Request{
		Month:          "2025-04",
		Residents:      []model.Resident{{Name: "甲"}, {Name: "乙"}},
		FacilityConfig: map[string]map[string]int{"A": {"0": 1}, "B": {"1": 1}},
	}
	result, err := e.Solve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOK, result.Status)
	assert.Equal(t, 2, result.PerResidentRequired["甲"])
	assert.Equal(t, 2, result.PerResidentRequired["乙"])
	assert.Equal(t, 4, result.TotalRequired)
	assert.Equal(t, 4, result.TotalAssigned)
}

func TestEngine_Solve_PartialPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Shortfall = diagnostics.ShortfallPartial
	cfg.Solver = solver.Options{TimeLimit: time.Second, Workers: 1}
	e := New(cfg)

	req := &model.Request{
		Month:          "2025-04",
		Residents:      []model.Resident{{Name: "甲"}, {Name: "乙"}},
		FacilityConfig: map[string]map[string]int{"A": {"2025-04-03": 1, "2025-04-17": 1}},
	}

	result, err := e.Solve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOK, result.Status)
	assert.Equal(t, 2, result.TotalAssigned)
	require.NotNil(t, result.Diagnostics)
	assert.Equal(t, 4, result.Diagnostics.TotalRequired)
}

func TestEngine_Solve_InputErrors(t *testing.T) {
	tests := []struct {
		name string
		req  *model.Request
		code apperrors.Code
	}{
		{
			name: "月份格式错误",
			req:  &model.Request{Month: "2025/04"},
			code: apperrors.CodeInvalidMonth,
		},
		{
			name: "姓名重复",
			req: &model.Request{
				Month:     "2025-04",
				Residents: []model.Resident{{Name: "甲"}, {Name: "甲"}},
			},
			code: apperrors.CodeValidationFail,
		},
		{
			name: "去除空白后姓名重复",
			req: &model.Request{
				Month:     "2025-04",
				Residents: []model.Resident{{Name: "甲"}, {Name: "甲 "}},
			},
			code: apperrors.CodeValidationFail,
		},
		{
			name: "不可排日期格式错误",
			req: &model.Request{
				Month:     "2025-04",
				Residents: []model.Resident{{Name: "甲", ExcludedDates: []string{"04/05"}}},
			},
			code: apperrors.CodeValidationFail,
		},
		{
			name: "负数需求",
			req: &model.Request{
				Month:     "2025-04",
				Residents: []model.Resident{{Name: "甲", RequiredAssignments: model.IntPtr(-1)}},
			},
			code: apperrors.CodeValidationFail,
		},
		{
			name: "空请求",
			req:  nil,
			code: apperrors.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := testEngine().Solve(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, tt.code, apperrors.GetCode(err))
		})
	}
}

func TestEngine_Solve_ConfigError(t *testing.T) {
	req := &model.Request{
		Month:          "2025-04",
		Residents:      []model.Resident{{Name: "甲"}},
		FacilityConfig: map[string]map[string]int{"A": {"7": 1, "2025-04-01": -1}},
	}

	result, err := testEngine().Solve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.StatusError, result.Status)
	assert.NotEmpty(t, result.Message)
}

func TestEngine_RecorderAndObserver(t *testing.T) {
	rec := &memRecorder{}
	obs := &countObserver{}
	e := testEngine(WithRecorder(rec), WithObserver(obs))

	req := &model.Request{
		Month:          "2025-04",
		Residents:      []model.Resident{{Name: "甲", RequiredAssignments: model.IntPtr(1)}},
		FacilityConfig: map[string]map[string]int{"A": {"0": 1}},
	}
	result, err := e.Solve(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, rec.records, 1)
	assert.Equal(t, KindMonthly, rec.records[0].Kind)
	assert.Equal(t, result.Statistics.RunID, rec.records[0].ID.String())
	assert.Equal(t, 1, obs.counts["monthly/ok"])
}

func TestEngine_SolveAggregate(t *testing.T) {
	tests := []struct {
		name   string
		req    *model.AggregateRequest
		status model.Status
	}{
		{
			name: "名额恰好用完",
			req: &model.AggregateRequest{
				Residents:           []string{"a", "b", "c"},
				FacilitySlots:       map[string]int{"大学病院": 3, "X": 2, "Y": 1},
				PrimaryFacilityName: "大学病院",
			},
			status: model.StatusOK,
		},
		{
			name: "名额与需求不等",
			req: &model.AggregateRequest{
				Residents:     []string{"a", "b"},
				FacilitySlots: map[string]int{"X": 3},
			},
			status: model.StatusError,
		},
		{
			name: "每人每院上限不可行",
			req: &model.AggregateRequest{
				Residents:     []string{"a", "b"},
				FacilitySlots: map[string]int{"X": 4},
			},
			status: model.StatusInfeasible,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := testEngine().SolveAggregate(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, result.Status)
			if tt.status != model.StatusOK {
				assert.NotEmpty(t, result.Message)
				return
			}

			total := 0
			for facility, names := range result.Assignments {
				assert.Equal(t, tt.req.FacilitySlots[facility], len(names))
				total += len(names)
			}
			assert.Equal(t, 6, total)
			for _, name := range tt.req.Residents {
				n := 0
				for facility, c := range result.PerResidentCounts[name] {
					if facility == "大学病院" {
						assert.LessOrEqual(t, c, 2)
					} else {
						assert.LessOrEqual(t, c, 1)
					}
					n += c
				}
				assert.Equal(t, 2, n)
			}
		})
	}
}

func TestEngine_FillAggregate_RejectsInvalidCounts(t *testing.T) {
	m, err := constraint.BuildAggregate([]string{"a", "b"}, []string{"X", "Y"}, map[string]int{"X": 2, "Y": 2}, 2, "大学病院")
	require.NoError(t, err)

	tests := []struct {
		name   string
		counts [][]int
		code   apperrors.Code
	}{
		{"同院两次超过上限", [][]int{{2, 0}, {0, 2}}, apperrors.CodeConstraintViolation},
		{"合法计数", [][]int{{1, 1}, {1, 1}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := &model.AggregateResult{}
			err := testEngine().fillAggregate(result, m, &solver.AggregateResult{Status: solver.StatusOptimal, Counts: tt.counts})
			if tt.code != "" {
				require.Error(t, err)
				assert.Equal(t, tt.code, apperrors.GetCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.StatusOK, result.Status)
			assert.Len(t, result.Assignments["X"], 2)
		})
	}
}
