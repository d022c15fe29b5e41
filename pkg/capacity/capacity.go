// Package capacity 解析医院容量配置并计算每日容量
package capacity

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/paiban/dutyplan/pkg/calendar"
)

// KeyKind 容量键类型
type KeyKind int

const (
	KeyWeekday KeyKind = iota // "0".."6"
	KeyDate                   // YYYY-MM-DD
)

// Key 容量配置键
type Key struct {
	Kind    KeyKind
	Weekday int
	Date    string
}

// ParseKey 解析容量键
func ParseKey(s string) (Key, error) {
	if len(s) == 1 && s[0] >= '0' && s[0] <= '6' {
		wd, _ := strconv.Atoi(s)
		return Key{Kind: KeyWeekday, Weekday: wd}, nil
	}
	if _, err := calendar.ParseDate(s); err == nil {
		return Key{Kind: KeyDate, Date: s}, nil
	}
	return Key{}, fmt.Errorf("容量键 %q 既不是星期索引 0-6 也不是 YYYY-MM-DD 日期", s)
}

// ConfigError 单项容量配置错误
type ConfigError struct {
	Facility string `json:"facility"`
	Key      string `json:"key,omitempty"`
	Reason   string `json:"reason"`
}

// Error 实现 error 接口
func (e ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("医院 %s: %s", e.Facility, e.Reason)
	}
	return fmt.Sprintf("医院 %s 键 %s: %s", e.Facility, e.Key, e.Reason)
}

// ConfigErrors 容量配置错误集合
type ConfigErrors []ConfigError

// Error 实现 error 接口
func (es ConfigErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return "容量配置无效: " + strings.Join(msgs, "; ")
}

// Validate 校验容量配置：键为星期或日期，值为非负整数
func Validate(config map[string]map[string]int) error {
	var errs ConfigErrors

	facilities := make([]string, 0, len(config))
	for name := range config {
		facilities = append(facilities, name)
	}
	sort.Strings(facilities)

	for _, name := range facilities {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, ConfigError{Facility: name, Reason: "医院名称不能为空"})
			continue
		}
		keys := make([]string, 0, len(config[name]))
		for k := range config[name] {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			if _, err := ParseKey(k); err != nil {
				errs = append(errs, ConfigError{Facility: name, Key: k, Reason: err.Error()})
				continue
			}
			if v := config[name][k]; v < 0 {
				errs = append(errs, ConfigError{Facility: name, Key: k, Reason: fmt.Sprintf("容量不能为负数: %d", v)})
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Resolver 容量解析器
type Resolver struct {
	config map[string]map[string]int
}

// NewResolver 创建容量解析器，配置无效时返回 ConfigErrors
func NewResolver(config map[string]map[string]int) (*Resolver, error) {
	if err := Validate(config); err != nil {
		return nil, err
	}
	return &Resolver{config: config}, nil
}

// Capacity 返回某医院某日容量：日期键 > 星期键 > 0
func (r *Resolver) Capacity(facility string, day calendar.Day) int {
	keys, ok := r.config[facility]
	if !ok {
		return 0
	}
	if v, ok := keys[day.ISO]; ok {
		return v
	}
	if v, ok := keys[strconv.Itoa(day.Weekday)]; ok {
		return v
	}
	return 0
}

// OutOfMonthKeys 返回不属于该月的日期键（这些键不会生效）
func (r *Resolver) OutOfMonthKeys(month calendar.Month) []string {
	var out []string
	for facility, keys := range r.config {
		for k := range keys {
			key, err := ParseKey(k)
			if err != nil || key.Kind != KeyDate {
				continue
			}
			t, _ := calendar.ParseDate(key.Date)
			if !month.Contains(t) {
				out = append(out, facility+"/"+k)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Grid 日期 x 医院 容量矩阵
type Grid struct {
	Days       []calendar.Day
	Facilities []string
	cells      [][]int
}

// Grid 物化整月容量矩阵
func (r *Resolver) Grid(days []calendar.Day, facilities []string) *Grid {
	g := &Grid{
		Days:       days,
		Facilities: facilities,
		cells:      make([][]int, len(days)),
	}
	for d, day := range days {
		g.cells[d] = make([]int, len(facilities))
		for f, name := range facilities {
			g.cells[d][f] = r.Capacity(name, day)
		}
	}
	return g
}

// At 返回第 d 天第 f 家医院的容量
func (g *Grid) At(d, f int) int {
	return g.cells[d][f]
}

// DateTotal 某日所有医院容量之和
func (g *Grid) DateTotal(d int) int {
	total := 0
	for _, v := range g.cells[d] {
		total += v
	}
	return total
}

// Total 整月总容量
func (g *Grid) Total() int {
	total := 0
	for d := range g.cells {
		total += g.DateTotal(d)
	}
	return total
}

// FacilityIndex 返回医院下标，不存在返回 -1
func (g *Grid) FacilityIndex(name string) int {
	for i, f := range g.Facilities {
		if f == name {
			return i
		}
	}
	return -1
}

// DayIndex 返回日期下标，不存在返回 -1
func (g *Grid) DayIndex(iso string) int {
	for i, d := range g.Days {
		if d.ISO == iso {
			return i
		}
	}
	return -1
}
