package requirement

import (
	"testing"

	"github.com/paiban/dutyplan/pkg/model"
)

func TestPolicy_Resolve(t *testing.T) {
	policy := DefaultPolicy(2)
	policy.Classes["HALF"] = 1

	tests := []struct {
		name     string
		resident model.Resident
		expected int
		wantErr  bool
	}{
		{
			name:     "默认值",
			resident: model.Resident{Name: "a"},
			expected: 2,
		},
		{
			name:     "不参与类别",
			resident: model.Resident{Name: "b", RotationClass: "OFFSITE_NO_ER"},
			expected: 0,
		},
		{
			name:     "日文类别",
			resident: model.Resident{Name: "c", RotationClass: "大学外-院外のみ希望"},
			expected: 0,
		},
		{
			name:     "自定义类别",
			resident: model.Resident{Name: "d", RotationClass: "HALF"},
			expected: 1,
		},
		{
			name:     "未知类别回退默认",
			resident: model.Resident{Name: "e", RotationClass: "UNKNOWN"},
			expected: 2,
		},
		{
			name:     "显式覆盖优先于类别",
			resident: model.Resident{Name: "f", RotationClass: "OFFSITE_NO_ER", RequiredAssignments: model.IntPtr(3)},
			expected: 3,
		},
		{
			name:     "显式零",
			resident: model.Resident{Name: "g", RequiredAssignments: model.IntPtr(0)},
			expected: 0,
		},
		{
			name:     "负数覆盖",
			resident: model.Resident{Name: "h", RequiredAssignments: model.IntPtr(-1)},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := policy.Resolve(&tt.resident)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Resolve() = %d, expected %d", got, tt.expected)
			}
		})
	}
}

func TestPolicy_ResolveAll(t *testing.T) {
	policy := DefaultPolicy(2).WithDefault(1)
	residents := []model.Resident{
		{Name: "a"},
		{Name: "b", RotationClass: "OFFSITE_NO_PREF"},
		{Name: "c", RequiredAssignments: model.IntPtr(2)},
	}

	required, err := policy.ResolveAll(residents)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := []int{1, 0, 2}
	for i := range expected {
		if required[i] != expected[i] {
			t.Errorf("required[%d] = %d, expected %d", i, required[i], expected[i])
		}
	}
}
