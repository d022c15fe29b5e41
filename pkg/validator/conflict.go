// Package validator 对已有排班结果（含人工修改后）重新检查硬约束
package validator

import (
	"fmt"
	"sort"

	"github.com/paiban/dutyplan/pkg/calendar"
	"github.com/paiban/dutyplan/pkg/capacity"
	"github.com/paiban/dutyplan/pkg/model"
	"github.com/paiban/dutyplan/pkg/requirement"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictQuota         ConflictType = "quota"          // 超过需求次数
	ConflictCapacity      ConflictType = "capacity"       // 超过当日医院容量
	ConflictFacilityCap   ConflictType = "facility_cap"   // 超过每人每院上限
	ConflictDoubleBooking ConflictType = "double_booking" // 同日多次
	ConflictExcludedDate  ConflictType = "excluded_date"  // 不可排日期
	ConflictUnknown       ConflictType = "unknown"        // 未知住院医、医院或日期
)

// Conflict 冲突信息
type Conflict struct {
	Type     ConflictType `json:"type"`
	Severity string       `json:"severity"` // error/warning
	Resident string       `json:"resident,omitempty"`
	Date     string       `json:"date,omitempty"`
	Facility string       `json:"facility,omitempty"`
	Message  string       `json:"message"`
}

// ConflictDetector 冲突检测器
type ConflictDetector struct {
	config *DetectorConfig
}

// DetectorConfig 检测器配置
type DetectorConfig struct {
	DefaultRequired int                // 请求未指定时的默认需求次数
	PrimaryFacility string             // 请求未指定时的主医院
	Requirement     requirement.Policy // 轮转类别需求表
}

// DefaultDetectorConfig 返回默认配置
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		DefaultRequired: model.DefaultRequiredPerResident,
		PrimaryFacility: "大学病院",
		Requirement:     requirement.DefaultPolicy(model.DefaultRequiredPerResident),
	}
}

// NewConflictDetector 创建冲突检测器
func NewConflictDetector(config *DetectorConfig) *ConflictDetector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &ConflictDetector{config: config}
}

// DetectAll 检测结果相对请求的所有冲突，按类型、日期、医院、住院医排序
func (d *ConflictDetector) DetectAll(req *model.Request, result *model.Result) ([]Conflict, error) {
	month, err := calendar.ParseMonth(req.Month)
	if err != nil {
		return nil, err
	}
	resolver, err := capacity.NewResolver(req.FacilityConfig)
	if err != nil {
		return nil, err
	}

	policy := d.config.Requirement.WithDefault(d.config.DefaultRequired)
	if req.DefaultRequiredPerResident != nil {
		policy = policy.WithDefault(*req.DefaultRequiredPerResident)
	}
	primary := req.PrimaryFacilityName
	if primary == "" {
		primary = d.config.PrimaryFacility
	}
	perPersonCap := make(map[string]int, len(req.FacilityConfig))
	for _, f := range model.BuildFacilities(req.FacilityConfig, req.FacilityOrder, primary) {
		perPersonCap[f.Name] = f.PerPersonCap()
	}

	residents := make(map[string]*model.Resident, len(req.Residents))
	for i := range req.Residents {
		residents[req.Residents[i].Name] = &req.Residents[i]
	}
	days := make(map[string]calendar.Day)
	for _, day := range month.Days() {
		days[day.ISO] = day
	}

	var conflicts []Conflict
	counts := make(map[string]int)
	facilityCounts := make(map[string]map[string]int)

	for date, byFacility := range result.Assignments {
		day, ok := days[date]
		if !ok {
			conflicts = append(conflicts, unknown("", date, "", fmt.Sprintf("日期 %s 不在 %s 月内", date, req.Month)))
			continue
		}

		daily := make(map[string][]string)
		for facility, names := range byFacility {
			if _, ok := req.FacilityConfig[facility]; !ok {
				conflicts = append(conflicts, unknown("", date, facility, fmt.Sprintf("医院 %s 没有容量配置", facility)))
				continue
			}
			if limit := resolver.Capacity(facility, day); len(names) > limit {
				conflicts = append(conflicts, Conflict{
					Type:     ConflictCapacity,
					Severity: "error",
					Date:     date,
					Facility: facility,
					Message:  fmt.Sprintf("%s %s 分配 %d 人，超过容量 %d", date, facility, len(names), limit),
				})
			}

			for _, name := range names {
				r, ok := residents[name]
				if !ok {
					conflicts = append(conflicts, unknown(name, date, facility, fmt.Sprintf("住院医 %s 不在请求中", name)))
					continue
				}
				if r.IsExcluded(date) {
					conflicts = append(conflicts, Conflict{
						Type:     ConflictExcludedDate,
						Severity: "error",
						Resident: name,
						Date:     date,
						Facility: facility,
						Message:  fmt.Sprintf("住院医 %s 在不可排日期 %s 被分配", name, date),
					})
				}
				daily[name] = append(daily[name], facility)
				counts[name]++
				if facilityCounts[name] == nil {
					facilityCounts[name] = make(map[string]int)
				}
				facilityCounts[name][facility]++
			}
		}

		for name, facilities := range daily {
			if len(facilities) > 1 {
				sort.Strings(facilities)
				conflicts = append(conflicts, Conflict{
					Type:     ConflictDoubleBooking,
					Severity: "error",
					Resident: name,
					Date:     date,
					Message:  fmt.Sprintf("住院医 %s 在 %s 被分配 %d 次: %v", name, date, len(facilities), facilities),
				})
			}
		}
	}

	for i := range req.Residents {
		r := &req.Residents[i]
		required, err := policy.Resolve(r)
		if err != nil {
			return nil, err
		}
		if counts[r.Name] > required {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictQuota,
				Severity: "error",
				Resident: r.Name,
				Message:  fmt.Sprintf("住院医 %s 分配 %d 次，超过需求 %d", r.Name, counts[r.Name], required),
			})
		}
		for facility, n := range facilityCounts[r.Name] {
			limit, ok := perPersonCap[facility]
			if !ok {
				unknown := model.Facility{Name: facility, Primary: facility == primary}
				limit = unknown.PerPersonCap()
			}
			if n > limit {
				conflicts = append(conflicts, Conflict{
					Type:     ConflictFacilityCap,
					Severity: "error",
					Resident: r.Name,
					Facility: facility,
					Message:  fmt.Sprintf("住院医 %s 在 %s 分配 %d 次，超过上限 %d", r.Name, facility, n, limit),
				})
			}
		}
	}

	sortConflicts(conflicts)
	return conflicts, nil
}

// HasErrors 检查冲突中是否有错误级别
func HasErrors(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.Severity == "error" {
			return true
		}
	}
	return false
}

// GroupByType 按类型统计冲突数
func GroupByType(conflicts []Conflict) map[ConflictType]int {
	out := make(map[ConflictType]int)
	for _, c := range conflicts {
		out[c.Type]++
	}
	return out
}

func unknown(resident, date, facility, message string) Conflict {
	return Conflict{
		Type:     ConflictUnknown,
		Severity: "error",
		Resident: resident,
		Date:     date,
		Facility: facility,
		Message:  message,
	}
}

func sortConflicts(conflicts []Conflict) {
	sort.Slice(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Facility != b.Facility {
			return a.Facility < b.Facility
		}
		return a.Resident < b.Resident
	})
}
