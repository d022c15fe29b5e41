package swap

import (
	"testing"

	"github.com/paiban/dutyplan/pkg/model"
	"github.com/paiban/dutyplan/pkg/validator"
)

func swapFixture() (*model.Request, *model.Result) {
	req := &model.Request{
		Month:               "2025-04",
		PrimaryFacilityName: "大学病院",
		Residents:           []model.Resident{{Name: "甲"}, {Name: "乙"}, {Name: "丙"}},
		FacilityConfig: map[string]map[string]int{
			"大学病院": {"2025-04-01": 1, "2025-04-05": 1},
			"A":    {"2025-04-02": 1, "2025-04-06": 1},
		},
	}
	result := &model.Result{
		Status: model.StatusOK,
		Assignments: map[string]map[string][]string{
			"2025-04-01": {"大学病院": {"甲"}, "A": {}},
			"2025-04-02": {"大学病院": {}, "A": {"甲"}},
			"2025-04-05": {"大学病院": {"乙"}, "A": {}},
			"2025-04-06": {"大学病院": {}, "A": {"丙"}},
		},
		PerResidentAssigned: map[string]int{"甲": 2, "乙": 1, "丙": 1},
		PerResidentRequired: map[string]int{"甲": 2, "乙": 2, "丙": 2},
		TotalAssigned:       4,
		TotalRequired:       6,
	}
	return req, result
}

var source = Slot{Resident: "甲", Date: "2025-04-01", Facility: "大学病院"}

func TestRecommender_Recommend(t *testing.T) {
	type want struct {
		target string
		typ    Type
	}

	tests := []struct {
		name   string
		modify func(req *model.Request)
		opts   *RecommendOptions
		want   []want
	}{
		{
			name: "接替优先于互换",
			want: []want{{"乙", TypeTakeOver}, {"丙", TypeTakeOver}, {"乙", TypeExchange}},
		},
		{
			name: "排除住院医",
			opts: &RecommendOptions{MaxRecommendations: 5, Exclude: []string{"乙"}, AllowExchange: true},
			want: []want{{"丙", TypeTakeOver}},
		},
		{
			name:   "不可排日期",
			modify: func(req *model.Request) { req.Residents[2].ExcludedDates = []string{"2025-04-01"} },
			want:   []want{{"乙", TypeTakeOver}, {"乙", TypeExchange}},
		},
		{
			name: "不允许互换",
			opts: &RecommendOptions{MaxRecommendations: 5},
			want: []want{{"乙", TypeTakeOver}, {"丙", TypeTakeOver}},
		},
		{
			name: "优先住院医加分",
			opts: &RecommendOptions{MaxRecommendations: 1, Preferred: []string{"丙"}},
			want: []want{{"丙", TypeTakeOver}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, result := swapFixture()
			if tt.modify != nil {
				tt.modify(req)
			}
			rec := NewRecommender(NewEvaluator(nil, nil))

			recs, err := rec.Recommend(req, result, source, tt.opts)
			if err != nil {
				t.Fatalf("Recommend() error = %v", err)
			}
			if len(recs) != len(tt.want) {
				t.Fatalf("got %d recommendations, want %d: %+v", len(recs), len(tt.want), recs)
			}
			for i, w := range tt.want {
				if recs[i].Target != w.target || recs[i].Type != w.typ {
					t.Errorf("recs[%d] = %s/%s, want %s/%s", i, recs[i].Target, recs[i].Type, w.target, w.typ)
				}
				if recs[i].Rank != i+1 {
					t.Errorf("recs[%d].Rank = %d, want %d", i, recs[i].Rank, i+1)
				}
			}
		})
	}
}

func TestEvaluator_Evaluate(t *testing.T) {
	req, result := swapFixture()
	e := NewEvaluator(validator.NewConflictDetector(nil), nil)

	t.Run("接替", func(t *testing.T) {
		eval, err := e.Evaluate(req, result, &SwapRequest{Source: source, Target: "乙"})
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if !eval.Feasible {
			t.Fatalf("expected feasible, issues = %+v", eval.Issues)
		}
		if eval.Score != 80 {
			t.Errorf("score = %v, want 80", eval.Score)
		}
		if eval.Impact.Source.AssignedChange != -1 || eval.Impact.Target.AssignedChange != 1 {
			t.Errorf("impact = %+v", eval.Impact)
		}
	})

	t.Run("互换超过每院上限", func(t *testing.T) {
		eval, err := e.Evaluate(req, result, &SwapRequest{
			Source:     source,
			Target:     "丙",
			TargetSlot: &Slot{Resident: "丙", Date: "2025-04-06", Facility: "A"},
		})
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if eval.Feasible {
			t.Fatal("expected infeasible")
		}
		if len(eval.Issues) != 1 || eval.Issues[0].Type != validator.ConflictFacilityCap {
			t.Errorf("issues = %+v, want one facility_cap", eval.Issues)
		}
	})

	t.Run("互换休日", func(t *testing.T) {
		eval, err := e.Evaluate(req, result, &SwapRequest{
			Source:     source,
			Target:     "乙",
			TargetSlot: &Slot{Resident: "乙", Date: "2025-04-05", Facility: "大学病院"},
		})
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if eval.Impact.Source.RedDayChange != 1 || eval.Impact.Target.RedDayChange != -1 {
			t.Errorf("red day change = %d/%d, want 1/-1",
				eval.Impact.Source.RedDayChange, eval.Impact.Target.RedDayChange)
		}
	})

	invalid := []struct {
		name string
		sr   *SwapRequest
	}{
		{"原值班不存在", &SwapRequest{Source: Slot{Resident: "乙", Date: "2025-04-01", Facility: "大学病院"}, Target: "丙"}},
		{"目标为本人", &SwapRequest{Source: source, Target: "甲"}},
		{"目标不在请求中", &SwapRequest{Source: source, Target: "丁"}},
		{"目标值班不属于目标", &SwapRequest{Source: source, Target: "乙", TargetSlot: &Slot{Resident: "丙", Date: "2025-04-06", Facility: "A"}}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Evaluate(req, result, tt.sr); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestApply(t *testing.T) {
	req, result := swapFixture()
	swapped := Apply(req, result, &SwapRequest{
		Source:     source,
		Target:     "乙",
		TargetSlot: &Slot{Resident: "乙", Date: "2025-04-05", Facility: "大学病院"},
	})

	if got := swapped.AssignedOn("2025-04-01", "大学病院"); len(got) != 1 || got[0] != "乙" {
		t.Errorf("04-01 = %v, want [乙]", got)
	}
	if got := swapped.AssignedOn("2025-04-05", "大学病院"); len(got) != 1 || got[0] != "甲" {
		t.Errorf("04-05 = %v, want [甲]", got)
	}
	if swapped.TotalAssigned != 4 || swapped.PerResidentAssigned["甲"] != 2 {
		t.Errorf("totals = %d / %v", swapped.TotalAssigned, swapped.PerResidentAssigned)
	}
	if got := result.AssignedOn("2025-04-01", "大学病院"); got[0] != "甲" {
		t.Error("Apply must not modify the original result")
	}
}

func TestRecommender_FindBestTakeOver(t *testing.T) {
	req, result := swapFixture()
	best, err := NewRecommender(NewEvaluator(nil, nil)).FindBestTakeOver(req, result, source)
	if err != nil {
		t.Fatalf("FindBestTakeOver() error = %v", err)
	}
	if best == nil || best.Target != "乙" {
		t.Errorf("best = %+v, want 乙", best)
	}

	req.Residents = req.Residents[:1]
	best, err = NewRecommender(NewEvaluator(nil, nil)).FindBestTakeOver(req, result, source)
	if err != nil {
		t.Fatalf("FindBestTakeOver() error = %v", err)
	}
	if best != nil {
		t.Errorf("best = %+v, want nil", best)
	}
}
