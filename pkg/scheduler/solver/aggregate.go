package solver

import (
	"github.com/paiban/dutyplan/pkg/scheduler/constraint"
	"github.com/paiban/dutyplan/pkg/scheduler/flow"
)

// AggregateResult 等式模式求解结果
type AggregateResult struct {
	Status Status
	// Counts[r][f] 住院医 r 在医院 f 的次数
	Counts [][]int
	Flow   int64
	Need   int64
}

// SolveAggregate 用最大流求解等式模式：流量等于总需求时可行
// 网络：S → 住院医 (perResident) → 医院 (每人每院上限) → T (名额)
func SolveAggregate(m *constraint.AggregateModel) *AggregateResult {
	R, F := len(m.Residents), len(m.Facilities)
	g := flow.NewGraph(2 + R + F)
	source, sink := 0, 1

	arcs := make([][]int, R)
	for r := 0; r < R; r++ {
		g.AddEdge(source, 2+r, int64(m.PerResident), flow.Cost{})
		arcs[r] = make([]int, F)
		for f := 0; f < F; f++ {
			arcs[r][f] = g.AddEdge(2+r, 2+R+f, int64(m.PerPersonCap[f]), flow.Cost{})
		}
	}
	for f := 0; f < F; f++ {
		g.AddEdge(2+R+f, sink, int64(m.Slots[f]), flow.Cost{})
	}

	res := &AggregateResult{
		Flow: g.MaxFlow(source, sink),
		Need: int64(R * m.PerResident),
	}
	if res.Flow < res.Need {
		res.Status = StatusInfeasible
		return res
	}

	res.Status = StatusOptimal
	res.Counts = make([][]int, R)
	for r := 0; r < R; r++ {
		res.Counts[r] = make([]int, F)
		for f := 0; f < F; f++ {
			res.Counts[r][f] = int(g.Flow(arcs[r][f]))
		}
	}
	return res
}
