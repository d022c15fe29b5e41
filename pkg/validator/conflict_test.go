package validator

import (
	"testing"

	"github.com/paiban/dutyplan/pkg/model"
)

func baseRequest() *model.Request {
	return &model.Request{
		Month: "2025-04",
		Residents: []model.Resident{
			{Name: "甲", ExcludedDates: []string{"2025-04-02"}},
			{Name: "乙", RequiredAssignments: model.IntPtr(1)},
		},
		PrimaryFacilityName: "大学病院",
		FacilityConfig: map[string]map[string]int{
			"大学病院": {"2025-04-01": 2, "2025-04-02": 1},
			"A":    {"2025-04-01": 1, "2025-04-03": 1},
		},
	}
}

func TestConflictDetector_DetectAll(t *testing.T) {
	detector := NewConflictDetector(DefaultDetectorConfig())

	result := &model.Result{
		Status: model.StatusOK,
		Assignments: map[string]map[string][]string{
			"2025-04-01": {"大学病院": {"甲"}, "A": {"乙"}},
			"2025-04-03": {"A": {}},
		},
	}

	conflicts, err := detector.DetectAll(baseRequest(), result)
	if err != nil {
		t.Fatalf("DetectAll() error = %v", err)
	}
	// 正常排班不应有冲突
	if len(conflicts) != 0 {
		t.Errorf("Expected 0 conflicts, got %d", len(conflicts))
		for _, c := range conflicts {
			t.Logf("Conflict: %s", c.Message)
		}
	}
}

func TestConflictDetector_Types(t *testing.T) {
	tests := []struct {
		name        string
		assignments map[string]map[string][]string
		want        ConflictType
	}{
		{
			name:        "超出容量",
			assignments: map[string]map[string][]string{"2025-04-03": {"A": {"甲", "乙"}}},
			want:        ConflictCapacity,
		},
		{
			name: "超过需求次数",
			assignments: map[string]map[string][]string{
				"2025-04-01": {"大学病院": {"乙"}},
				"2025-04-03": {"A": {"乙"}},
			},
			want: ConflictQuota,
		},
		{
			name: "同日重复",
			assignments: map[string]map[string][]string{
				"2025-04-01": {"大学病院": {"甲"}, "A": {"甲"}},
			},
			want: ConflictDoubleBooking,
		},
		{
			name: "超过每人每院上限",
			assignments: map[string]map[string][]string{
				"2025-04-01": {"A": {"甲"}},
				"2025-04-03": {"A": {"甲"}},
			},
			want: ConflictFacilityCap,
		},
		{
			name:        "不可排日期",
			assignments: map[string]map[string][]string{"2025-04-02": {"大学病院": {"甲"}}},
			want:        ConflictExcludedDate,
		},
		{
			name:        "未知住院医",
			assignments: map[string]map[string][]string{"2025-04-01": {"A": {"丙"}}},
			want:        ConflictUnknown,
		},
		{
			name:        "未知医院",
			assignments: map[string]map[string][]string{"2025-04-01": {"B": {"甲"}}},
			want:        ConflictUnknown,
		},
		{
			name:        "月外日期",
			assignments: map[string]map[string][]string{"2025-05-01": {"A": {"甲"}}},
			want:        ConflictUnknown,
		},
	}

	detector := NewConflictDetector(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conflicts, err := detector.DetectAll(baseRequest(), &model.Result{Assignments: tt.assignments})
			if err != nil {
				t.Fatalf("DetectAll() error = %v", err)
			}
			if len(conflicts) != 1 {
				t.Fatalf("Expected 1 conflict, got %d: %+v", len(conflicts), conflicts)
			}
			if conflicts[0].Type != tt.want {
				t.Errorf("Expected %s conflict, got %s", tt.want, conflicts[0].Type)
			}
			if !HasErrors(conflicts) {
				t.Error("Expected error severity")
			}
		})
	}
}

func TestConflictDetector_PrimaryAllowsTwo(t *testing.T) {
	detector := NewConflictDetector(nil)
	req := baseRequest()
	req.FacilityConfig["大学病院"]["2025-04-03"] = 1

	result := &model.Result{Assignments: map[string]map[string][]string{
		"2025-04-01": {"大学病院": {"甲"}},
		"2025-04-03": {"大学病院": {"甲"}},
	}}

	conflicts, err := detector.DetectAll(req, result)
	if err != nil {
		t.Fatalf("DetectAll() error = %v", err)
	}
	if len(conflicts) != 0 {
		t.Errorf("Expected 0 conflicts, got %+v", conflicts)
	}
}

func TestConflictDetector_InvalidRequest(t *testing.T) {
	detector := NewConflictDetector(nil)

	req := baseRequest()
	req.Month = "bad"
	if _, err := detector.DetectAll(req, &model.Result{}); err == nil {
		t.Error("Expected error for malformed month")
	}

	req = baseRequest()
	req.FacilityConfig["A"]["9"] = 1
	if _, err := detector.DetectAll(req, &model.Result{}); err == nil {
		t.Error("Expected error for invalid capacity key")
	}
}

func TestGroupByType(t *testing.T) {
	conflicts := []Conflict{
		{Type: ConflictQuota}, {Type: ConflictQuota}, {Type: ConflictCapacity},
	}
	groups := GroupByType(conflicts)
	if groups[ConflictQuota] != 2 || groups[ConflictCapacity] != 1 {
		t.Errorf("Unexpected groups: %v", groups)
	}
}
