package model

import "sort"

// Facility 医院（排班地点）
type Facility struct {
	Name string `json:"name"`
	// CapacityByKey 键为 YYYY-MM-DD 或星期索引 "0".."6"（0=周一）
	CapacityByKey map[string]int `json:"capacityByKey"`
	Primary       bool           `json:"primary"`
}

// PerPersonCap 每名住院医在该医院整月的最大排班次数
func (f *Facility) PerPersonCap() int {
	if f.Primary {
		return PrimaryPerPersonCap
	}
	return SecondaryPerPersonCap
}

// FacilityNames 确定医院顺序：显式顺序优先，其余按名称排序追加
func FacilityNames(config map[string]map[string]int, order []string) []string {
	known := make(map[string]bool, len(config))
	for name := range config {
		known[name] = true
	}
	return orderNames(known, order)
}

// FacilitySlotNames 汇总模式下的医院顺序，规则同 FacilityNames
func FacilitySlotNames(slots map[string]int, order []string) []string {
	known := make(map[string]bool, len(slots))
	for name := range slots {
		known[name] = true
	}
	return orderNames(known, order)
}

func orderNames(known map[string]bool, order []string) []string {
	seen := make(map[string]bool, len(known))
	names := make([]string, 0, len(known))
	for _, name := range order {
		if known[name] && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}

	var rest []string
	for name := range known {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// BuildFacilities 由配置构造医院列表
func BuildFacilities(config map[string]map[string]int, order []string, primary string) []*Facility {
	names := FacilityNames(config, order)
	facilities := make([]*Facility, 0, len(names))
	for _, name := range names {
		facilities = append(facilities, &Facility{
			Name:          name,
			CapacityByKey: config[name],
			Primary:       name == primary,
		})
	}
	return facilities
}
