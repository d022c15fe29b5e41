// Package constraint 构建排班决策变量与硬约束行，并对赋值进行约束评估
package constraint

import (
	"fmt"
)

// Type 约束类型标识
type Type string

const (
	TypeQuota        Type = "quota"          // 每人总次数 ≤ 需求次数
	TypeCapacity     Type = "capacity"       // 每日每院人数 ≤ 容量
	TypeFacilityCap  Type = "facility_cap"   // 每人每院整月次数 ≤ 上限
	TypeSinglePerDay Type = "single_per_day" // 每人每日至多一次
	TypeExclusion    Type = "exclusion"      // 不可排日期为 0

	// 等式模式
	TypeQuotaEquality    Type = "quota_equality"
	TypeCapacityEquality Type = "capacity_equality"
)

// Name 返回约束的中文名称
func (t Type) Name() string {
	switch t {
	case TypeQuota:
		return "需求次数上限"
	case TypeCapacity:
		return "每日容量"
	case TypeFacilityCap:
		return "每院次数上限"
	case TypeSinglePerDay:
		return "每日至多一次"
	case TypeExclusion:
		return "不可排日期"
	case TypeQuotaEquality:
		return "需求次数相等"
	case TypeCapacityEquality:
		return "名额全部分配"
	default:
		return string(t)
	}
}

// Category 约束类别
type Category string

const (
	CategoryHard Category = "hard" // 硬约束（必须满足）
	CategorySoft Category = "soft" // 软约束（尽量满足）
)

// ViolationDetail 约束违反详情
type ViolationDetail struct {
	ConstraintType Type   `json:"constraint_type"`
	ConstraintName string `json:"constraint_name"`
	Resident       string `json:"resident,omitempty"`
	Date           string `json:"date,omitempty"`
	Facility       string `json:"facility,omitempty"`
	Message        string `json:"message"`
	Severity       string `json:"severity"` // error/warning
	Value          int    `json:"value"`
	Bound          int    `json:"bound"`
}

// Result 约束评估结果
type Result struct {
	IsValid        bool              `json:"is_valid"`
	RowsChecked    int               `json:"rows_checked"`
	HardViolations []ViolationDetail `json:"hard_violations"`
}

// ByType 按约束类型统计违反次数
func (r *Result) ByType() map[Type]int {
	counts := make(map[Type]int)
	for _, v := range r.HardViolations {
		counts[v.ConstraintType]++
	}
	return counts
}

// Err 将违反转换为 error，无违反返回 nil
func (r *Result) Err() error {
	if r.IsValid {
		return nil
	}
	first := r.HardViolations[0]
	return fmt.Errorf("存在 %d 个硬约束违反，首个: %s", len(r.HardViolations), first.Message)
}
