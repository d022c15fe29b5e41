package engine

import (
	"fmt"

	"github.com/paiban/dutyplan/pkg/model"
	"github.com/paiban/dutyplan/pkg/scheduler/constraint"
	"github.com/paiban/dutyplan/pkg/scheduler/objective"
	"github.com/paiban/dutyplan/pkg/scheduler/optimizer"
	"github.com/paiban/dutyplan/pkg/scheduler/solver"
)

// Assemble 把求解结果转换为对外结果，并重新校验全部约束
func Assemble(m *constraint.Model, obj *objective.Objective, solved *solver.Result) (*model.Result, error) {
	sol := solved.Solution
	if check := m.Check(sol.Values(m)); !check.IsValid {
		return nil, check.Err()
	}

	result := &model.Result{
		Status:              model.StatusOK,
		Dates:               make([]string, len(m.Days)),
		Facilities:          append([]string(nil), m.Facilities...),
		Assignments:         make(map[string]map[string][]string, len(m.Days)),
		PerResidentAssigned: make(map[string]int, len(m.Residents)),
		PerResidentRequired: make(map[string]int, len(m.Residents)),
	}

	for d, day := range m.Days {
		result.Dates[d] = day.ISO
		perFacility := make(map[string][]string, len(m.Facilities))
		for _, f := range m.Facilities {
			perFacility[f] = []string{}
		}
		result.Assignments[day.ISO] = perFacility
	}

	for r, name := range m.Residents {
		count := 0
		for d, f := range sol.Assign[r] {
			if f == optimizer.Unassigned {
				continue
			}
			day := m.Days[d].ISO
			result.Assignments[day][m.Facilities[f]] = append(result.Assignments[day][m.Facilities[f]], name)
			count++
		}
		if count > m.Required[r] {
			return nil, fmt.Errorf("住院医 %s 分配 %d 次，超过需求 %d", name, count, m.Required[r])
		}
		result.PerResidentAssigned[name] = count
		result.PerResidentRequired[name] = m.Required[r]
		result.TotalAssigned += count
		result.TotalRequired += m.Required[r]
	}

	result.Statistics = &model.SolveStatistics{
		SolverStatus: string(solved.Status),
		Objective:    objectiveValue(obj, solved.Objective),
		UpperBound:   objectiveValue(obj, solved.Bound),
		Workers:      solved.Workers,
		Iterations:   solved.Iterations,
	}
	return result, nil
}

func objectiveValue(obj *objective.Objective, t objective.Tiers) model.ObjectiveValue {
	return model.ObjectiveValue{
		Coverage:  t.Coverage,
		Threshold: t.Threshold,
		Total:     t.Total,
		Weighted:  obj.Weighted(t).String(),
	}
}
