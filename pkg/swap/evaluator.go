// Package swap 为已生成的值班表推荐接替或互换方案
package swap

import (
	"fmt"
	"sort"

	"github.com/paiban/dutyplan/pkg/calendar"
	apperrors "github.com/paiban/dutyplan/pkg/errors"
	"github.com/paiban/dutyplan/pkg/model"
	"github.com/paiban/dutyplan/pkg/validator"
)

// Type 换班方式
type Type string

const (
	TypeTakeOver Type = "take_over" // 目标住院医接替该次值班
	TypeExchange Type = "exchange"  // 双方互换各自一次值班
)

// Slot 一次值班分配
type Slot struct {
	Resident string `json:"resident"`
	Date     string `json:"date"`
	Facility string `json:"facility"`
}

// SwapRequest 换班请求，TargetSlot 为空表示接替
type SwapRequest struct {
	Source     Slot   `json:"source"`
	Target     string `json:"target"`
	TargetSlot *Slot  `json:"target_slot,omitempty"`
}

// Type 返回换班方式
func (r *SwapRequest) Type() Type {
	if r.TargetSlot != nil {
		return TypeExchange
	}
	return TypeTakeOver
}

// Evaluation 换班评估结果
type Evaluation struct {
	Feasible bool                 `json:"feasible"`
	Score    float64              `json:"score"`  // 0-100
	Issues   []validator.Conflict `json:"issues"` // 换班后新增的冲突
	Impact   *Impact              `json:"impact"`
}

// Impact 换班对双方的影响
type Impact struct {
	Source ResidentImpact `json:"source"`
	Target ResidentImpact `json:"target"`
}

// ResidentImpact 单个住院医的变化
type ResidentImpact struct {
	Resident       string `json:"resident"`
	AssignedChange int    `json:"assigned_change"`
	RedDayChange   int    `json:"red_day_change"`
	Shortfall      int    `json:"shortfall"` // 换班后距需求次数的缺口
}

// Evaluator 换班评估器
type Evaluator struct {
	detector *validator.ConflictDetector
	holidays calendar.HolidayCalendar
}

// NewEvaluator 创建换班评估器
func NewEvaluator(detector *validator.ConflictDetector, holidays calendar.HolidayCalendar) *Evaluator {
	if detector == nil {
		detector = validator.NewConflictDetector(nil)
	}
	return &Evaluator{detector: detector, holidays: holidays}
}

// Evaluate 评估换班可行性，只有换班前已存在的冲突不影响可行性
func (e *Evaluator) Evaluate(req *model.Request, result *model.Result, sr *SwapRequest) (*Evaluation, error) {
	if err := checkSwap(req, result, sr); err != nil {
		return nil, err
	}

	baseline, err := e.detector.DetectAll(req, result)
	if err != nil {
		return nil, err
	}
	swapped := Apply(req, result, sr)
	after, err := e.detector.DetectAll(req, swapped)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]bool, len(baseline))
	for _, c := range baseline {
		existing[conflictKey(c)] = true
	}
	eval := &Evaluation{Feasible: true, Issues: []validator.Conflict{}}
	for _, c := range after {
		if existing[conflictKey(c)] {
			continue
		}
		eval.Issues = append(eval.Issues, c)
		if c.Severity == "error" {
			eval.Feasible = false
		}
	}

	eval.Impact = &Impact{
		Source: e.residentImpact(sr.Source.Resident, result, swapped),
		Target: e.residentImpact(sr.Target, result, swapped),
	}
	if eval.Feasible {
		eval.Score = e.score(sr, result, eval.Impact)
	}
	return eval, nil
}

// score 接替时缺口越大得分越高，互换时休日分配越均衡得分越高
func (e *Evaluator) score(sr *SwapRequest, before *model.Result, impact *Impact) float64 {
	if sr.Type() == TypeTakeOver {
		required := before.PerResidentRequired[sr.Target]
		if required == 0 {
			return 60
		}
		gap := float64(impact.Target.Shortfall+1) / float64(required)
		return 60 + 40*gap
	}

	srcRed := e.redDays(sr.Source.Resident, before)
	tgtRed := e.redDays(sr.Target, before)
	gapBefore := abs(srcRed - tgtRed)
	gapAfter := abs(srcRed + impact.Source.RedDayChange - tgtRed - impact.Target.RedDayChange)
	switch {
	case gapAfter < gapBefore:
		return 90
	case gapAfter > gapBefore:
		return 70
	default:
		return 80
	}
}

func (e *Evaluator) residentImpact(name string, before, after *model.Result) ResidentImpact {
	assigned := countAssigned(name, after)
	return ResidentImpact{
		Resident:       name,
		AssignedChange: assigned - countAssigned(name, before),
		RedDayChange:   e.redDays(name, after) - e.redDays(name, before),
		Shortfall:      max(after.PerResidentRequired[name]-assigned, 0),
	}
}

func (e *Evaluator) redDays(name string, result *model.Result) int {
	n := 0
	for date, byFacility := range result.Assignments {
		t, err := calendar.ParseDate(date)
		if err != nil || !calendar.IsRedDay(e.holidays, t) {
			continue
		}
		for _, names := range byFacility {
			for _, n2 := range names {
				if n2 == name {
					n++
				}
			}
		}
	}
	return n
}

// Apply 返回应用换班后的结果副本，原结果不变
func Apply(req *model.Request, result *model.Result, sr *SwapRequest) *model.Result {
	out := *result
	out.Assignments = make(map[string]map[string][]string, len(result.Assignments))
	for date, byFacility := range result.Assignments {
		m := make(map[string][]string, len(byFacility))
		for f, names := range byFacility {
			m[f] = append([]string(nil), names...)
		}
		out.Assignments[date] = m
	}

	replace(out.Assignments, sr.Source, sr.Target)
	if sr.TargetSlot != nil {
		replace(out.Assignments, *sr.TargetSlot, sr.Source.Resident)
	}

	order := make(map[string]int, len(req.Residents))
	for i := range req.Residents {
		order[req.Residents[i].Name] = i
	}
	out.PerResidentAssigned = make(map[string]int, len(result.PerResidentAssigned))
	for name := range result.PerResidentAssigned {
		out.PerResidentAssigned[name] = 0
	}
	out.TotalAssigned = 0
	for _, byFacility := range out.Assignments {
		for _, names := range byFacility {
			sort.SliceStable(names, func(i, j int) bool { return order[names[i]] < order[names[j]] })
			for _, name := range names {
				out.PerResidentAssigned[name]++
				out.TotalAssigned++
			}
		}
	}
	return &out
}

// replace 把 slot 中的住院医替换为 name
func replace(assignments map[string]map[string][]string, slot Slot, name string) {
	names := assignments[slot.Date][slot.Facility]
	for i, n := range names {
		if n == slot.Resident {
			names[i] = name
			return
		}
	}
}

func checkSwap(req *model.Request, result *model.Result, sr *SwapRequest) error {
	if req == nil || result == nil || sr == nil {
		return apperrors.New(apperrors.CodeInvalidInput, "换班请求不完整")
	}
	if !hasSlot(result, sr.Source) {
		return apperrors.InvalidInput("source", fmt.Sprintf("%s 在 %s %s 没有值班", sr.Source.Resident, sr.Source.Date, sr.Source.Facility))
	}
	if sr.Target == "" || sr.Target == sr.Source.Resident {
		return apperrors.InvalidInput("target", "目标住院医不能为空或与原住院医相同")
	}
	known := false
	for i := range req.Residents {
		if req.Residents[i].Name == sr.Target {
			known = true
			break
		}
	}
	if !known {
		return apperrors.InvalidInput("target", fmt.Sprintf("住院医 %s 不在请求中", sr.Target))
	}
	if sr.TargetSlot != nil && (sr.TargetSlot.Resident != sr.Target || !hasSlot(result, *sr.TargetSlot)) {
		return apperrors.InvalidInput("target_slot", "目标值班不存在或不属于目标住院医")
	}
	return nil
}

func hasSlot(result *model.Result, slot Slot) bool {
	for _, n := range result.AssignedOn(slot.Date, slot.Facility) {
		if n == slot.Resident {
			return true
		}
	}
	return false
}

func countAssigned(name string, result *model.Result) int {
	n := 0
	for _, byFacility := range result.Assignments {
		for _, names := range byFacility {
			for _, n2 := range names {
				if n2 == name {
					n++
				}
			}
		}
	}
	return n
}

func conflictKey(c validator.Conflict) string {
	return fmt.Sprintf("%s|%s|%s|%s", c.Type, c.Resident, c.Date, c.Facility)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
