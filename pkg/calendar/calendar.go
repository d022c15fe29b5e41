// Package calendar 展开月份日期并提供星期与节假日判断
package calendar

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/paiban/dutyplan/pkg/model"
)

// Month 排班月份
type Month struct {
	Year  int
	Month time.Month
}

// Day 月内某一天
type Day struct {
	Date    time.Time `json:"-"`
	ISO     string    `json:"date"`
	Weekday int       `json:"weekday"` // 0=周一 .. 6=周日
}

// ParseMonth 解析 YYYY-MM
func ParseMonth(value string) (Month, error) {
	t, err := time.Parse(model.MonthLayout, value)
	if err != nil {
		return Month{}, fmt.Errorf("解析月份 %q 失败: %w", value, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// String 返回 YYYY-MM
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// First 返回月初
func (m Month) First() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Last 返回月末
func (m Month) Last() time.Time {
	return m.First().AddDate(0, 1, -1)
}

// Days 按日期顺序返回当月所有日期
func (m Month) Days() []Day {
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: m.First(),
		Until:   m.Last(),
	})
	if err != nil {
		// 规则参数固定，仅在日期非法时失败
		return m.daysByStep()
	}

	occurrences := rule.All()
	days := make([]Day, 0, len(occurrences))
	for _, t := range occurrences {
		days = append(days, NewDay(t))
	}
	return days
}

// daysByStep 逐日展开
func (m Month) daysByStep() []Day {
	var days []Day
	for d := m.First(); d.Month() == m.Month; d = d.AddDate(0, 0, 1) {
		days = append(days, NewDay(d))
	}
	return days
}

// Contains 检查日期是否在当月
func (m Month) Contains(t time.Time) bool {
	return t.Year() == m.Year && t.Month() == m.Month
}

// NewDay 由时间构造 Day
func NewDay(t time.Time) Day {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return Day{
		Date:    d,
		ISO:     d.Format(model.DateLayout),
		Weekday: WeekdayIndex(d),
	}
}

// WeekdayIndex 返回星期索引，周一为 0
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("解析日期 %q 失败: %w", value, err)
	}
	return t, nil
}

// ISODates 返回日期字符串列表
func ISODates(days []Day) []string {
	dates := make([]string, len(days))
	for i, d := range days {
		dates[i] = d.ISO
	}
	return dates
}
