package optimizer

import (
	"math/rand"

	"github.com/paiban/dutyplan/pkg/scheduler/objective"
)

// MoveType 邻域移动类型
type MoveType int

const (
	MoveInsert   MoveType = iota // 插入新分配
	MoveRemove                   // 移除分配
	MoveRelocate                 // 把一次分配移到另一个日期或医院
	MoveSwap                     // 交换两个住院医的位置
	MoveChain                    // 弹出链：挤掉满员位置上的人并为其另找位置
)

func (t MoveType) String() string {
	switch t {
	case MoveInsert:
		return "insert"
	case MoveRemove:
		return "remove"
	case MoveRelocate:
		return "relocate"
	case MoveSwap:
		return "swap"
	case MoveChain:
		return "chain"
	}
	return "unknown"
}

// Move 邻域移动操作
type Move struct {
	Type MoveType

	Resident int
	Day      int
	Facility int

	// 第二个住院医（交换、弹出链）
	Other int

	// 目标位置（重新分配、交换、弹出链中被挤出者的新位置）
	ToDay      int
	ToFacility int

	Delta objective.Tiers
}

// Key 禁忌表键：住院医、日期、医院
func (m *Move) Key() uint64 {
	return uint64(m.Resident)<<40 | uint64(m.Day)<<20 | uint64(m.Facility)
}

// NeighborhoodGenerator 邻域生成器
type NeighborhoodGenerator struct {
	rng         *rand.Rand
	moveWeights []float64 // 按 MoveType 索引
	attempts    int
}

// NewNeighborhoodGenerator 创建邻域生成器
func NewNeighborhoodGenerator(rng *rand.Rand) *NeighborhoodGenerator {
	return &NeighborhoodGenerator{
		rng: rng,
		moveWeights: []float64{
			MoveInsert:   0.25,
			MoveRemove:   0.05,
			MoveRelocate: 0.30,
			MoveSwap:     0.20,
			MoveChain:    0.20,
		},
		attempts: 8,
	}
}

// selectMoveType 按权重选择移动类型
func (n *NeighborhoodGenerator) selectMoveType() MoveType {
	total := 0.0
	for _, w := range n.moveWeights {
		total += w
	}
	r := n.rng.Float64() * total
	cumulative := 0.0
	for t, w := range n.moveWeights {
		cumulative += w
		if r < cumulative {
			return MoveType(t)
		}
	}
	return MoveRelocate
}

// Propose 生成一个可行的邻域移动，找不到时返回 nil
func (n *NeighborhoodGenerator) Propose(st *State) *Move {
	if len(st.Model.Residents) == 0 || len(st.Model.Days) == 0 || len(st.Model.Facilities) == 0 {
		return nil
	}
	t := n.selectMoveType()
	for i := 0; i < n.attempts; i++ {
		var mv *Move
		switch t {
		case MoveInsert:
			mv = n.insert(st)
		case MoveRemove:
			mv = n.remove(st)
		case MoveRelocate:
			mv = n.relocate(st)
		case MoveSwap:
			mv = n.swap(st)
		case MoveChain:
			mv = n.chain(st)
		}
		if mv != nil {
			mv.Type = t
			return mv
		}
	}
	return nil
}

// randomAssigned 随机选一个已有分配，返回 (r, d, f)
func (n *NeighborhoodGenerator) randomAssigned(st *State) (int, int, int, bool) {
	R := len(st.Model.Residents)
	D := len(st.Model.Days)
	if R == 0 || D == 0 {
		return 0, 0, 0, false
	}
	r := n.rng.Intn(R)
	if st.count[r] == 0 {
		return 0, 0, 0, false
	}
	k := n.rng.Intn(st.count[r])
	for d, f := range st.assign[r] {
		if f == Unassigned {
			continue
		}
		if k == 0 {
			return r, d, f, true
		}
		k--
	}
	return 0, 0, 0, false
}

// randomSlot 随机选一个位置
func (n *NeighborhoodGenerator) randomSlot(st *State) (int, int) {
	return n.rng.Intn(len(st.Model.Days)), n.rng.Intn(len(st.Model.Facilities))
}

// insert 把未满额的住院医放到随机可用位置
func (n *NeighborhoodGenerator) insert(st *State) *Move {
	r := n.rng.Intn(len(st.Model.Residents))
	d, f := n.randomSlot(st)
	if !st.CanAssign(r, d, f) {
		return nil
	}
	return &Move{Resident: r, Day: d, Facility: f, Other: -1, Delta: st.GainAdd(d, f)}
}

// remove 随机移除一次分配
func (n *NeighborhoodGenerator) remove(st *State) *Move {
	r, d, f, ok := n.randomAssigned(st)
	if !ok {
		return nil
	}
	return &Move{Resident: r, Day: d, Facility: f, Other: -1, Delta: st.LossRemove(d, f)}
}

// relocate 把一次分配移到另一个位置
func (n *NeighborhoodGenerator) relocate(st *State) *Move {
	r, d, f, ok := n.randomAssigned(st)
	if !ok {
		return nil
	}
	d2, f2 := n.randomSlot(st)
	if d2 == d && f2 == f {
		return nil
	}
	if !n.canMove(st, r, d, f, d2, f2) {
		return nil
	}
	delta := st.LossRemove(d, f).Add(st.GainAdd(d2, f2))
	return &Move{Resident: r, Day: d, Facility: f, Other: -1, ToDay: d2, ToFacility: f2, Delta: delta}
}

// canMove r 从 (d, f) 移到 (d2, f2) 是否可行，不改变 r 的总次数
func (n *NeighborhoodGenerator) canMove(st *State, r, d, f, d2, f2 int) bool {
	m := st.Model
	if !m.Allowed(r, d2, f2) || st.load[d2][f2] >= m.Capacity[d2][f2] {
		return false
	}
	if d2 != d && st.assign[r][d2] != Unassigned {
		return false
	}
	if f2 != f && st.facCount[r][f2] >= m.PerPersonCap[f2] {
		return false
	}
	return true
}

// swap 交换两个住院医的位置，负载不变
func (n *NeighborhoodGenerator) swap(st *State) *Move {
	r1, d1, f1, ok := n.randomAssigned(st)
	if !ok {
		return nil
	}
	r2, d2, f2, ok := n.randomAssigned(st)
	if !ok || r1 == r2 || (d1 == d2 && f1 == f2) {
		return nil
	}
	if !n.canTake(st, r1, d1, f1, d2, f2) || !n.canTake(st, r2, d2, f2, d1, f1) {
		return nil
	}
	return &Move{Resident: r1, Day: d1, Facility: f1, Other: r2, ToDay: d2, ToFacility: f2}
}

// canTake r 放弃 (d, f) 后能否接手 (d2, f2)，不检查位置容量
func (n *NeighborhoodGenerator) canTake(st *State, r, d, f, d2, f2 int) bool {
	m := st.Model
	if !m.Allowed(r, d2, f2) {
		return false
	}
	if d2 != d && st.assign[r][d2] != Unassigned {
		return false
	}
	if f2 != f && st.facCount[r][f2] >= m.PerPersonCap[f2] {
		return false
	}
	return true
}

// chain 住院医 r 占用满员位置 (d, f)，原占用者 o 移到 (d2, f2)
func (n *NeighborhoodGenerator) chain(st *State) *Move {
	m := st.Model
	r := n.rng.Intn(len(m.Residents))
	d, f := n.randomSlot(st)
	if st.count[r] >= m.Required[r] || st.assign[r][d] != Unassigned ||
		!m.Allowed(r, d, f) || st.facCount[r][f] >= m.PerPersonCap[f] {
		return nil
	}
	if st.load[d][f] < m.Capacity[d][f] {
		return nil
	}
	occ := st.occupants[d][f]
	if len(occ) == 0 {
		return nil
	}
	o := occ[n.rng.Intn(len(occ))]

	d2, f2 := n.randomSlot(st)
	if d2 == d && f2 == f {
		return nil
	}
	if !n.canMove(st, o, d, f, d2, f2) {
		return nil
	}
	return &Move{Resident: r, Day: d, Facility: f, Other: o, ToDay: d2, ToFacility: f2, Delta: st.GainAdd(d2, f2)}
}

// Apply 执行移动
func (st *State) Apply(mv *Move) {
	switch mv.Type {
	case MoveInsert:
		st.Add(mv.Resident, mv.Day, mv.Facility)
	case MoveRemove:
		st.Remove(mv.Resident, mv.Day)
	case MoveRelocate:
		st.Remove(mv.Resident, mv.Day)
		st.Add(mv.Resident, mv.ToDay, mv.ToFacility)
	case MoveSwap:
		st.Remove(mv.Resident, mv.Day)
		st.Remove(mv.Other, mv.ToDay)
		st.Add(mv.Resident, mv.ToDay, mv.ToFacility)
		st.Add(mv.Other, mv.Day, mv.Facility)
	case MoveChain:
		st.Remove(mv.Other, mv.Day)
		st.Add(mv.Other, mv.ToDay, mv.ToFacility)
		st.Add(mv.Resident, mv.Day, mv.Facility)
	}
}
