package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/lukpank/go-glpk/glpk"

	"github.com/paiban/dutyplan/pkg/logger"
	"github.com/paiban/dutyplan/pkg/scheduler/constraint"
	"github.com/paiban/dutyplan/pkg/scheduler/objective"
	"github.com/paiban/dutyplan/pkg/scheduler/optimizer"
)

// MIPSolver 用 GLPK 分支定界精确求解，三层目标逐层优化
// 模型过大、超出时间份额或 GLPK 失败时转交 LexSolver
type MIPSolver struct {
	opts Options
}

// NewMIPSolver 创建 MIP 求解器
func NewMIPSolver(opts Options) *MIPSolver {
	return &MIPSolver{opts: opts.withDefaults()}
}

// Name 返回求解器名称
func (s *MIPSolver) Name() string {
	return "MIPSolver"
}

// Options 返回生效参数
func (s *MIPSolver) Options() Options {
	return s.opts
}

// mipOutcome 一次精确求解的结果
type mipOutcome struct {
	assign [][]int
	proven bool
	err    error
}

// Solve 求解：GLPK 在时间份额内完成时返回其结果，否则用剩余时间运行局部搜索
func (s *MIPSolver) Solve(ctx context.Context, m *constraint.Model, obj *objective.Objective) (*Result, error) {
	start := time.Now()
	log := logger.NewSolverLogger(ctx)

	if m.NumVars() > s.opts.MIPMaxVars {
		log.Logger().Info().Int("vars", m.NumVars()).Int("max_vars", s.opts.MIPMaxVars).Msg("模型超过 MIP 规模上限，改用局部搜索")
		return s.fallback(ctx, m, obj, start)
	}

	budget := time.Duration(float64(s.opts.TimeLimit) * s.opts.MIPShare)
	timer := time.NewTimer(budget)
	defer timer.Stop()

	// GLPK 调用不可中断，超时后结果被丢弃
	done := make(chan mipOutcome, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		assign, proven, err := solveMIP(m)
		done <- mipOutcome{assign: assign, proven: proven, err: err}
	}()

	var out mipOutcome
	select {
	case out = <-done:
	case <-timer.C:
		log.Logger().Warn().Dur("budget", budget).Msg("MIP 未在时间份额内完成，改用局部搜索")
		return s.fallback(ctx, m, obj, start)
	case <-ctx.Done():
		return s.fallback(ctx, m, obj, start)
	}
	if out.err != nil {
		log.Logger().Warn().Err(out.err).Msg("MIP 求解失败，改用局部搜索")
		return s.fallback(ctx, m, obj, start)
	}

	st := optimizer.NewState(m, obj)
	if dropped := st.LoadSolution(&optimizer.Solution{Assign: out.assign}); dropped > 0 {
		log.Logger().Warn().Int("dropped", dropped).Msg("MIP 解不满足约束，改用局部搜索")
		return s.fallback(ctx, m, obj, start)
	}
	best := st.Snapshot()
	if check := m.Check(best.Values(m)); !check.IsValid {
		return nil, check.Err()
	}
	log.Phase("mip", best.Tiers.Coverage, best.Tiers.Threshold, best.Tiers.Total, time.Since(start))

	result := &Result{
		Status:     StatusFeasible,
		Solution:   best,
		Objective:  best.Tiers,
		Bound:      obj.Max(),
		Workers:    1,
		BestWorker: -1,
		Duration:   time.Since(start),
	}
	if out.proven {
		result.Status = StatusOptimal
		result.Bound = best.Tiers
	}
	return result, nil
}

// fallback 用剩余时间运行局部搜索
func (s *MIPSolver) fallback(ctx context.Context, m *constraint.Model, obj *objective.Objective, start time.Time) (*Result, error) {
	opts := s.opts
	opts.TimeLimit -= time.Since(start)
	if opts.TimeLimit < 100*time.Millisecond {
		opts.TimeLimit = 100 * time.Millisecond
	}
	result, err := NewLexSolver(opts).Solve(ctx, m, obj)
	if err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)
	result.Message = "MIP 未完成，返回局部搜索结果"
	return result, nil
}

// mipModel GLPK 问题及列号映射，列号从 1 开始，0 表示未建列（变量固定为 0）
type mipModel struct {
	lp        *glpk.Prob
	x         []int
	coverage  []int
	threshold []int
	numCols   int
	numRows   int
}

// solveMIP 依次最大化覆盖、阈值、总分配，每层最优值作为下一层的约束
func solveMIP(m *constraint.Model) ([][]int, bool, error) {
	mm := buildMIP(m)
	defer mm.lp.Delete()

	tiers := []struct {
		name string
		cols []int
	}{
		{"coverage", mm.coverage},
		{"threshold", mm.threshold},
		{"total", mm.cols(allVars(m))},
	}

	proven := true
	var prev []int
	for i, tier := range tiers {
		for _, j := range prev {
			mm.lp.SetObjCoef(j, 0)
		}
		for _, j := range tier.cols {
			mm.lp.SetObjCoef(j, 1)
		}

		optimal, err := mm.optimize()
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", tier.name, err)
		}
		proven = proven && optimal

		if i < len(tiers)-1 {
			mm.addRow(glpk.BndsType(glpk.LO), float64(mm.sum(tier.cols)), 0, tier.cols)
		}
		prev = tier.cols
	}

	assign := make([][]int, len(m.Residents))
	for r := range assign {
		assign[r] = make([]int, len(m.Days))
		for d := range assign[r] {
			assign[r][d] = optimizer.Unassigned
		}
	}
	for v, j := range mm.x {
		if j > 0 && mm.lp.MipColVal(j) > 0.5 {
			vr := m.Vars[v]
			assign[vr.Resident][vr.Day] = vr.Facility
		}
	}
	return assign, proven, nil
}

// buildMIP 每个可取 1 的变量一列，约束行原样转为上界行，另加覆盖与阈值辅助列
func buildMIP(m *constraint.Model) *mipModel {
	lp := glpk.New()
	lp.SetProbName("dutyplan")
	lp.SetObjDir(glpk.ObjDir(glpk.MAX))

	mm := &mipModel{lp: lp, x: make([]int, m.NumVars())}

	for v, vr := range m.Vars {
		if !m.Allowed(vr.Resident, vr.Day, vr.Facility) {
			continue
		}
		mm.x[v] = mm.addCol(fmt.Sprintf("x_%d_%d_%d", vr.Resident, vr.Day, vr.Facility), glpk.VarType(glpk.BV), 0, 1)
	}

	for _, row := range m.Rows {
		mm.addRow(glpk.BndsType(glpk.UP), 0, float64(row.Bound), mm.cols(row.Vars))
	}

	// 覆盖：y ≤ Σx；阈值：h ≤ Σx，h ∈ [0, ceil(cap/2)]
	for d := range m.Days {
		for f := range m.Facilities {
			capacity := m.Capacity[d][f]
			if capacity <= 0 {
				continue
			}
			slot := make([]int, 0, len(m.Residents))
			for r := range m.Residents {
				slot = append(slot, m.VarIndex(r, d, f))
			}
			xs := mm.cols(slot)
			if len(xs) == 0 {
				continue
			}

			if !m.IsPrimary(f) {
				y := mm.addCol(fmt.Sprintf("y_%d_%d", d, f), glpk.VarType(glpk.BV), 0, 1)
				mm.coverage = append(mm.coverage, y)
				mm.addLink(y, xs)
			}
			half := (capacity + 1) / 2
			h := mm.addCol(fmt.Sprintf("h_%d_%d", d, f), glpk.VarType(glpk.IV), 0, float64(half))
			mm.threshold = append(mm.threshold, h)
			mm.addLink(h, xs)
		}
	}
	return mm
}

func (mm *mipModel) addCol(name string, kind glpk.VarType, lower, upper float64) int {
	mm.numCols++
	mm.lp.AddCols(1)
	mm.lp.SetColName(mm.numCols, name)
	mm.lp.SetColKind(mm.numCols, kind)
	mm.lp.SetColBnds(mm.numCols, glpk.BndsType(glpk.DB), lower, upper)
	return mm.numCols
}

// addRow 添加 Σ cols 行，cols 为空时跳过
func (mm *mipModel) addRow(bnds glpk.BndsType, lower, upper float64, cols []int) {
	if len(cols) == 0 {
		return
	}
	mm.numRows++
	mm.lp.AddRows(1)
	mm.lp.SetRowBnds(mm.numRows, bnds, lower, upper)

	// GLPK 数组下标 0 不使用
	ind := make([]int32, 1, len(cols)+1)
	val := make([]float64, 1, len(cols)+1)
	for _, j := range cols {
		ind = append(ind, int32(j))
		val = append(val, 1)
	}
	mm.lp.SetMatRow(mm.numRows, ind, val)
}

// addLink 添加 Σx − aux ≥ 0
func (mm *mipModel) addLink(aux int, xs []int) {
	mm.numRows++
	mm.lp.AddRows(1)
	mm.lp.SetRowBnds(mm.numRows, glpk.BndsType(glpk.LO), 0, 0)

	ind := make([]int32, 1, len(xs)+2)
	val := make([]float64, 1, len(xs)+2)
	for _, j := range xs {
		ind = append(ind, int32(j))
		val = append(val, 1)
	}
	ind = append(ind, int32(aux))
	val = append(val, -1)
	mm.lp.SetMatRow(mm.numRows, ind, val)
}

func allVars(m *constraint.Model) []int {
	vars := make([]int, m.NumVars())
	for v := range vars {
		vars[v] = v
	}
	return vars
}

// cols 变量下标转为已建列的列号
func (mm *mipModel) cols(vars []int) []int {
	cols := make([]int, 0, len(vars))
	for _, v := range vars {
		if j := mm.x[v]; j > 0 {
			cols = append(cols, j)
		}
	}
	return cols
}

// optimize 先解 LP 松弛再分支定界，返回是否证明最优
func (mm *mipModel) optimize() (bool, error) {
	smcp := glpk.NewSmcp()
	smcp.SetMsgLev(glpk.MsgLev(glpk.MSG_ERR))
	if err := mm.lp.Simplex(smcp); err != nil {
		return false, fmt.Errorf("simplex: %w", err)
	}

	iocp := glpk.NewIocp()
	iocp.SetPresolve(true)
	iocp.SetMsgLev(glpk.MsgLev(glpk.MSG_ERR))
	if err := mm.lp.Intopt(iocp); err != nil {
		return false, fmt.Errorf("intopt: %w", err)
	}

	switch mm.lp.MipStatus() {
	case glpk.OPT:
		return true, nil
	case glpk.FEAS:
		return false, nil
	default:
		return false, errors.New("未得到整数解")
	}
}

// sum 当前整数解中各列取值之和
func (mm *mipModel) sum(cols []int) int {
	total := 0.0
	for _, j := range cols {
		total += mm.lp.MipColVal(j)
	}
	return int(math.Round(total))
}
