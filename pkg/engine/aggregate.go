package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/paiban/dutyplan/pkg/errors"
	"github.com/paiban/dutyplan/pkg/logger"
	"github.com/paiban/dutyplan/pkg/model"
	"github.com/paiban/dutyplan/pkg/scheduler/constraint"
	"github.com/paiban/dutyplan/pkg/scheduler/solver"
)

// SolveAggregate 求解不按日期的汇总模式：每人恰好 perResident 次，每院名额恰好用完
func (e *Engine) SolveAggregate(ctx context.Context, req *model.AggregateRequest) (*model.AggregateResult, error) {
	start := time.Now()
	runID := uuid.New()
	ctx = context.WithValue(ctx, logger.RunIDKey, runID.String())
	log := logger.WithContext(ctx)

	if req == nil {
		return nil, apperrors.InvalidInput("request", "请求不能为空")
	}
	if err := e.checkAggregate(req); err != nil {
		return nil, err
	}

	perResident := model.DefaultRequiredPerResident
	if req.PerResident != nil {
		perResident = *req.PerResident
	}
	primary := req.PrimaryFacilityName
	if primary == "" {
		primary = e.cfg.PrimaryFacility
	}

	facilities := model.FacilitySlotNames(req.FacilitySlots, req.FacilityOrder)
	result := &model.AggregateResult{Facilities: facilities}

	m, err := constraint.BuildAggregate(req.Residents, facilities, req.FacilitySlots, perResident, primary)
	var mismatch *constraint.SlotMismatchError
	switch {
	case errors.As(err, &mismatch):
		cfgErr := apperrors.Configuration(mismatch.Error())
		log.Warn().Str("code", string(cfgErr.Code)).Msg(cfgErr.Message)
		result.Status = model.StatusError
		result.Message = cfgErr.Message
	case err != nil:
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "构建汇总模型失败")
	default:
		if err := e.fillAggregate(result, m, solver.SolveAggregate(m)); err != nil {
			return nil, err
		}
	}

	log.Info().
		Str("status", string(result.Status)).
		Int("residents", len(req.Residents)).
		Int("facilities", len(facilities)).
		Dur("duration", time.Since(start)).
		Msg("汇总排班完成")

	e.observe(KindAggregate, string(result.Status), time.Since(start), nil)
	e.record(ctx, &RunRecord{
		ID:        runID,
		Kind:      KindAggregate,
		Status:    result.Status,
		Request:   req,
		Result:    result,
		Duration:  time.Since(start),
		CreatedAt: start,
	})
	return result, nil
}

func (e *Engine) fillAggregate(result *model.AggregateResult, m *constraint.AggregateModel, solved *solver.AggregateResult) error {
	if !solved.Status.HasSolution() {
		result.Status = model.StatusInfeasible
		result.Message = fmt.Sprintf("每人每院上限下最多分配 %d 次，需要 %d 次", solved.Flow, solved.Need)
		return nil
	}
	if check := m.Check(solved.Counts); !check.IsValid {
		return apperrors.ConstraintViolation("aggregate", check.Err().Error())
	}

	result.Status = model.StatusOK
	result.Assignments = make(map[string][]string, len(m.Facilities))
	result.PerResidentCounts = make(map[string]map[string]int, len(m.Residents))
	for _, f := range m.Facilities {
		result.Assignments[f] = []string{}
	}
	for r, name := range m.Residents {
		counts := make(map[string]int, len(m.Facilities))
		for f, facility := range m.Facilities {
			n := solved.Counts[r][f]
			if n == 0 {
				continue
			}
			counts[facility] = n
			for i := 0; i < n; i++ {
				result.Assignments[facility] = append(result.Assignments[facility], name)
			}
		}
		result.PerResidentCounts[name] = counts
	}
	return nil
}

func (e *Engine) checkAggregate(req *model.AggregateRequest) error {
	ve := &apperrors.ValidationErrors{}
	collectFieldErrors(ve, e.validate.Struct(req))
	seen := make(map[string]bool, len(req.Residents))
	for i, name := range req.Residents {
		if seen[name] {
			ve.Add(fmt.Sprintf("residents[%d]", i), "姓名重复: "+name)
		}
		seen[name] = true
	}
	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}
