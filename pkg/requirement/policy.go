// Package requirement 根据显式覆盖或轮转类别计算住院医的需求次数
package requirement

import (
	"fmt"

	"github.com/paiban/dutyplan/pkg/model"
)

// NoAssignmentClasses 不参与院外值班的轮转类别（上游表格词汇）
var NoAssignmentClasses = []string{
	"OFFSITE_OFFSITE_ONLY",
	"OFFSITE_NO_PREF",
	"OFFSITE_NO_ER",
	"院外-救急しない",
	"大学外‐院外のみ希望",
	"大学外-院外のみ希望",
	"大学外‐院外も救急も希望しない",
	"大学外-院外も救急も希望しない",
}

// Policy 需求次数策略表
type Policy struct {
	// Default 未命中类别表时的需求次数
	Default int `json:"default" yaml:"default" toml:"default" validate:"min=0"`
	// Classes 轮转类别 -> 需求次数
	Classes map[string]int `json:"classes" yaml:"classes" toml:"classes" validate:"dive,min=0"`
}

// DefaultPolicy 返回默认策略：不参与类别为 0，其余为 defaultRequired
func DefaultPolicy(defaultRequired int) Policy {
	classes := make(map[string]int, len(NoAssignmentClasses))
	for _, c := range NoAssignmentClasses {
		classes[c] = 0
	}
	return Policy{Default: defaultRequired, Classes: classes}
}

// WithDefault 返回替换默认值后的副本
func (p Policy) WithDefault(defaultRequired int) Policy {
	return Policy{Default: defaultRequired, Classes: p.Classes}
}

// Resolve 计算住院医需求次数：显式覆盖 > 类别表 > 默认值
func (p Policy) Resolve(r *model.Resident) (int, error) {
	if r.RequiredAssignments != nil {
		if *r.RequiredAssignments < 0 {
			return 0, fmt.Errorf("住院医 %s 的需求次数不能为负数: %d", r.Name, *r.RequiredAssignments)
		}
		return *r.RequiredAssignments, nil
	}
	if r.RotationClass != "" {
		if v, ok := p.Classes[r.RotationClass]; ok {
			return v, nil
		}
	}
	return p.Default, nil
}

// ResolveAll 按输入顺序计算所有住院医的需求次数
func (p Policy) ResolveAll(residents []model.Resident) ([]int, error) {
	required := make([]int, len(residents))
	for i := range residents {
		v, err := p.Resolve(&residents[i])
		if err != nil {
			return nil, err
		}
		required[i] = v
	}
	return required, nil
}
