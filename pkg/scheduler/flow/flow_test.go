package flow

import (
	"context"
	"testing"
)

func TestCost_Less(t *testing.T) {
	tests := []struct {
		name string
		a, b Cost
		want bool
	}{
		{"第一维", Cost{-1, 5, 5}, Cost{0, 0, 0}, true},
		{"第二维", Cost{0, 1, -9}, Cost{0, 2, 0}, true},
		{"相等", Cost{1, 1, 1}, Cost{1, 1, 1}, false},
		{"第三维", Cost{0, 0, 1}, Cost{0, 0, 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Less(tt.b); got != tt.want {
				t.Errorf("Less() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMaxFlow(t *testing.T) {
	// s=0, a=1, b=2, t=3
	g := NewGraph(4)
	g.AddEdge(0, 1, 3, Cost{})
	g.AddEdge(0, 2, 2, Cost{})
	g.AddEdge(1, 2, 1, Cost{})
	e13 := g.AddEdge(1, 3, 2, Cost{})
	g.AddEdge(2, 3, 3, Cost{})

	if got := g.MaxFlow(0, 3); got != 5 {
		t.Fatalf("MaxFlow() = %d, want 5", got)
	}
	if f := g.Flow(e13); f != 2 {
		t.Errorf("Flow(1->3) = %d, want 2", f)
	}
}

func TestMinCostFlow_PrefersHigherTier(t *testing.T) {
	// 一个单位供给，两条路径：一条只有总数收益，一条带覆盖收益
	g := NewGraph(4)
	s, a, b, sink := 0, 1, 2, 3
	g.AddEdge(s, a, 1, Cost{})
	g.AddEdge(s, b, 1, Cost{})
	ea := g.AddEdge(a, sink, 1, Cost{0, 0, -1})
	eb := g.AddEdge(b, sink, 1, Cost{-1, 0, -1})

	src := g.AddNode()
	g.AddEdge(src, s, 1, Cost{})

	flow, cost, err := g.MinCostFlow(context.Background(), src, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if flow != 1 {
		t.Errorf("flow = %d, want 1", flow)
	}
	if cost != (Cost{-1, 0, -1}) {
		t.Errorf("cost = %v", cost)
	}
	if g.Flow(eb) != 1 || g.Flow(ea) != 0 {
		t.Errorf("expected coverage path to carry the unit")
	}
}

func TestMinCostFlow_StopsAtNonNegative(t *testing.T) {
	g := NewGraph(3)
	g.AddEdge(0, 1, 5, Cost{})
	g.AddEdge(1, 2, 2, Cost{0, 0, -1})
	g.AddEdge(1, 2, 3, Cost{0, 0, 0})

	flow, cost, err := g.MinCostFlow(context.Background(), 0, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if flow != 2 || cost != (Cost{0, 0, -2}) {
		t.Errorf("flow=%d cost=%v, want 2 and (0,0,-2)", flow, cost)
	}
}

func TestMinCostFlow_Rerouting(t *testing.T) {
	// r1 可去 x 或 y，r2 只能去 x；最优需要把 r1 改到 y
	g := NewGraph(6)
	s, r1, r2, x, y, sink := 0, 1, 2, 3, 4, 5
	g.AddEdge(s, r1, 1, Cost{})
	g.AddEdge(s, r2, 1, Cost{})
	g.AddEdge(r1, x, 1, Cost{})
	g.AddEdge(r1, y, 1, Cost{})
	g.AddEdge(r2, x, 1, Cost{})
	g.AddEdge(x, sink, 1, Cost{-1, 0, -1})
	g.AddEdge(y, sink, 1, Cost{0, 0, -1})

	flow, cost, err := g.MinCostFlow(context.Background(), s, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if flow != 2 || cost != (Cost{-1, 0, -2}) {
		t.Errorf("flow=%d cost=%v", flow, cost)
	}
}

func TestMinCostFlow_Cancelled(t *testing.T) {
	g := NewGraph(2)
	g.AddEdge(0, 1, 1, Cost{0, 0, -1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := g.MinCostFlow(ctx, 0, 1); err == nil {
		t.Error("expected context error")
	}
}
