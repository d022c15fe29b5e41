package calendar

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/paiban/dutyplan/pkg/model"
)

// HolidayCalendar 节假日查询（外部协作方）
type HolidayCalendar interface {
	// HolidayName 返回节假日名称，非节假日返回 false
	HolidayName(t time.Time) (string, bool)
}

// HolidayEntry 节假日配置项，Date 与 RRule 二选一
type HolidayEntry struct {
	Name  string `json:"name" yaml:"name" toml:"name" validate:"required"`
	Date  string `json:"date,omitempty" yaml:"date,omitempty" toml:"date,omitempty" validate:"required_without=RRule,omitempty,datetime=2006-01-02"`
	RRule string `json:"rrule,omitempty" yaml:"rrule,omitempty" toml:"rrule,omitempty" validate:"required_without=Date"`
}

// StaticHolidays 基于固定日期和重复规则的节假日表
type StaticHolidays struct {
	fixed     map[string]string
	recurring []HolidayEntry
}

// NewStaticHolidays 创建节假日表，校验日期和 RRULE 语法
func NewStaticHolidays(entries []HolidayEntry) (*StaticHolidays, error) {
	h := &StaticHolidays{fixed: make(map[string]string)}
	for i, e := range entries {
		switch {
		case e.Date != "":
			if _, err := ParseDate(e.Date); err != nil {
				return nil, fmt.Errorf("holidays[%d]: %w", i, err)
			}
			h.fixed[e.Date] = e.Name
		case e.RRule != "":
			if _, err := rrule.StrToRRule(e.RRule); err != nil {
				return nil, fmt.Errorf("holidays[%d] RRULE 无效: %w", i, err)
			}
			h.recurring = append(h.recurring, e)
		default:
			return nil, fmt.Errorf("holidays[%d]: 需要 date 或 rrule", i)
		}
	}
	return h, nil
}

// HolidayName 实现 HolidayCalendar
func (h *StaticHolidays) HolidayName(t time.Time) (string, bool) {
	if h == nil {
		return "", false
	}
	if name, ok := h.fixed[t.Format(model.DateLayout)]; ok {
		return name, true
	}

	dayStart := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24*time.Hour - time.Nanosecond)
	for _, e := range h.recurring {
		// 每次重新解析，DTStart 会修改规则状态
		rule, err := rrule.StrToRRule(e.RRule)
		if err != nil {
			continue
		}
		rule.DTStart(time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC))
		if len(rule.Between(dayStart, dayEnd, true)) > 0 {
			return e.Name, true
		}
	}
	return "", false
}

// IsRedDay 周六、周日或节假日，用于报表红色标记
func IsRedDay(cal HolidayCalendar, t time.Time) bool {
	if WeekdayIndex(t) >= 5 {
		return true
	}
	if cal == nil {
		return false
	}
	_, ok := cal.HolidayName(t)
	return ok
}
