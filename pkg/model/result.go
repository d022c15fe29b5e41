package model

import "sort"

// Result 月度排班结果
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`

	Dates      []string `json:"dates,omitempty"`
	Facilities []string `json:"facilities,omitempty"`
	// Assignments 日期 -> 医院 -> 住院医姓名（按输入顺序）
	Assignments map[string]map[string][]string `json:"assignments,omitempty"`

	PerResidentAssigned map[string]int `json:"perResidentAssigned,omitempty"`
	PerResidentRequired map[string]int `json:"perResidentRequired,omitempty"`
	TotalAssigned       int            `json:"totalAssigned"`
	TotalRequired       int            `json:"totalRequired"`

	Diagnostics *Diagnostics     `json:"diagnostics,omitempty"`
	Statistics  *SolveStatistics `json:"statistics,omitempty"`
}

// Diagnostics 容量不足诊断
type Diagnostics struct {
	TotalCapacity            int            `json:"totalCapacity"`
	TotalRequired            int            `json:"totalRequired"`
	PerDateCapacity          map[string]int `json:"perDateCapacity"`
	PerResidentAvailableDays map[string]int `json:"perResidentAvailableDays"`
}

// SolveStatistics 求解统计
type SolveStatistics struct {
	RunID        string         `json:"runId,omitempty"`
	SolverStatus string         `json:"solverStatus"`
	Objective    ObjectiveValue `json:"objective"`
	UpperBound   ObjectiveValue `json:"upperBound"`
	Workers      int            `json:"workers"`
	Iterations   int64          `json:"iterations"`
	DurationMs   int64          `json:"durationMs"`
}

// ObjectiveValue 目标函数三层取值
type ObjectiveValue struct {
	Coverage  int64 `json:"coverage"`
	Threshold int64 `json:"threshold"`
	Total     int64 `json:"total"`
	// Weighted 加权后的单一目标值（十进制字符串，可能超出 int64）
	Weighted string `json:"weighted,omitempty"`
}

// IsOK 检查是否得到可行方案
func (r *Result) IsOK() bool {
	return r.Status == StatusOK
}

// AssignedOn 返回某日某医院的住院医
func (r *Result) AssignedOn(date, facility string) []string {
	if r.Assignments == nil {
		return nil
	}
	return r.Assignments[date][facility]
}

// UnderAssigned 返回未达到需求次数的住院医（按姓名排序）
func (r *Result) UnderAssigned() []string {
	var names []string
	for name, required := range r.PerResidentRequired {
		if r.PerResidentAssigned[name] < required {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// NewErrorResult 创建配置错误结果
func NewErrorResult(message string) *Result {
	return &Result{Status: StatusError, Message: message}
}

// AggregateResult 汇总排班结果
type AggregateResult struct {
	Status     Status   `json:"status"`
	Message    string   `json:"message,omitempty"`
	Facilities []string `json:"facilities,omitempty"`
	// Assignments 医院 -> 住院医姓名（每个名额一次）
	Assignments       map[string][]string       `json:"assignments,omitempty"`
	PerResidentCounts map[string]map[string]int `json:"perResidentCounts,omitempty"`
}
