package solver

import (
	"context"

	"github.com/paiban/dutyplan/pkg/scheduler/constraint"
	"github.com/paiban/dutyplan/pkg/scheduler/flow"
	"github.com/paiban/dutyplan/pkg/scheduler/objective"
	"github.com/paiban/dutyplan/pkg/scheduler/optimizer"
)

// placement 一次分配
type placement struct {
	Resident int
	Day      int
	Facility int
}

// banSet 被禁止的 (住院医, 日期, 医院) 变量
type banSet map[int]bool

// relaxation 去掉每日至多一次约束后的最小费用流松弛
// 网络：S → 住院医 → (住院医, 医院) → (日期, 医院) → 每个名额单位弧 → T
type relaxation struct {
	m   *constraint.Model
	obj *objective.Objective

	g      *flow.Graph
	source int
	sink   int
	arcs   []int // 与 places 对应的 (住院医, 医院) → 位置 弧
	places []placement
}

func toCost(t objective.Tiers) flow.Cost {
	return flow.Cost{t.Coverage, t.Threshold, t.Total}
}

func toTiers(c flow.Cost) objective.Tiers {
	return objective.Tiers{Coverage: c[0], Threshold: c[1], Total: c[2]}
}

// newRelaxation 建立网络
func newRelaxation(m *constraint.Model, obj *objective.Objective, banned banSet) *relaxation {
	R, D, F := len(m.Residents), len(m.Days), len(m.Facilities)

	// 节点编号：0=S，1=T，住院医，(住院医, 医院)，(日期, 医院)
	resNode := func(r int) int { return 2 + r }
	rfNode := func(r, f int) int { return 2 + R + r*F + f }
	slotNode := func(d, f int) int { return 2 + R + R*F + d*F + f }

	rel := &relaxation{
		m:      m,
		obj:    obj,
		g:      flow.NewGraph(2 + R + R*F + D*F),
		source: 0,
		sink:   1,
	}

	for r := 0; r < R; r++ {
		if m.Required[r] <= 0 {
			continue
		}
		rel.g.AddEdge(rel.source, resNode(r), int64(m.Required[r]), flow.Cost{})
		for f := 0; f < F; f++ {
			rel.g.AddEdge(resNode(r), rfNode(r, f), int64(m.PerPersonCap[f]), flow.Cost{})
			for d := 0; d < D; d++ {
				if !m.Allowed(r, d, f) || banned[m.VarIndex(r, d, f)] {
					continue
				}
				id := rel.g.AddEdge(rfNode(r, f), slotNode(d, f), 1, flow.Cost{})
				rel.arcs = append(rel.arcs, id)
				rel.places = append(rel.places, placement{Resident: r, Day: d, Facility: f})
			}
		}
	}

	for d := 0; d < D; d++ {
		for f := 0; f < F; f++ {
			slot := obj.Slots[d][f]
			for k := 1; k <= slot.Capacity; k++ {
				rel.g.AddEdge(slotNode(d, f), rel.sink, 1, toCost(slot.Gain(k).Neg()))
			}
		}
	}
	return rel
}

// solve 求解并返回松弛目标值与分配（可能同一天多次）
func (rel *relaxation) solve(ctx context.Context) (objective.Tiers, []placement, error) {
	_, cost, err := rel.g.MinCostFlow(ctx, rel.source, rel.sink)
	var out []placement
	for i, id := range rel.arcs {
		if rel.g.Flow(id) > 0 {
			out = append(out, rel.places[i])
		}
	}
	return toTiers(cost.Neg()), out, err
}

// conflicts 找出同一天多次分配，保留医院下标最小的一个，其余加入禁止集
func conflicts(m *constraint.Model, places []placement, banned banSet) int {
	kept := make(map[[2]int]int)
	for _, p := range places {
		key := [2]int{p.Resident, p.Day}
		if f, ok := kept[key]; !ok || p.Facility < f {
			kept[key] = p.Facility
		}
	}
	n := 0
	for _, p := range places {
		if kept[[2]int{p.Resident, p.Day}] != p.Facility {
			banned[m.VarIndex(p.Resident, p.Day, p.Facility)] = true
			n++
		}
	}
	return n
}

// toSolution 把分配装入搜索状态，丢弃冲突项后贪心补齐
func toSolution(st *optimizer.State, places []placement) (*optimizer.Solution, int) {
	sol := st.Snapshot()
	for r := range sol.Assign {
		for d := range sol.Assign[r] {
			sol.Assign[r][d] = optimizer.Unassigned
		}
	}
	dropped := 0
	for _, p := range places {
		if sol.Assign[p.Resident][p.Day] != optimizer.Unassigned {
			dropped++
			continue
		}
		sol.Assign[p.Resident][p.Day] = p.Facility
	}
	dropped += st.LoadSolution(sol)
	st.GreedyFill(nil)
	return st.Snapshot(), dropped
}
