package model

// Resident 住院医（排班对象）
type Resident struct {
	Name string `json:"name" yaml:"name" toml:"name" validate:"required"`
	// RequiredAssignments 显式指定的需求次数，优先于轮转类别
	RequiredAssignments *int     `json:"requiredAssignments,omitempty" yaml:"requiredAssignments,omitempty" toml:"requiredAssignments,omitempty" validate:"omitempty,min=0"`
	RotationClass       string   `json:"rotationClass,omitempty" yaml:"rotationClass,omitempty" toml:"rotationClass,omitempty"`
	ExcludedDates       []string `json:"excludedDates,omitempty" yaml:"excludedDates,omitempty" toml:"excludedDates,omitempty" validate:"dive,datetime=2006-01-02"`
}

// IsExcluded 检查某日期是否为不可排日期
func (r *Resident) IsExcluded(date string) bool {
	for _, d := range r.ExcludedDates {
		if d == date {
			return true
		}
	}
	return false
}

// ExcludedSet 返回不可排日期集合
func (r *Resident) ExcludedSet() map[string]bool {
	set := make(map[string]bool, len(r.ExcludedDates))
	for _, d := range r.ExcludedDates {
		set[d] = true
	}
	return set
}

// IntPtr 返回整数指针，便于构造显式需求次数
func IntPtr(v int) *int {
	return &v
}
