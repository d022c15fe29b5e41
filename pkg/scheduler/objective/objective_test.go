package objective

import (
	"math/big"
	"testing"
)

func TestTiers_Compare(t *testing.T) {
	tests := []struct {
		name string
		a, b Tiers
		want int
	}{
		{"覆盖优先", Tiers{1, 0, 0}, Tiers{0, 100, 100}, 1},
		{"阈值其次", Tiers{1, 2, 0}, Tiers{1, 1, 50}, 1},
		{"总数最后", Tiers{1, 1, 3}, Tiers{1, 1, 4}, -1},
		{"相等", Tiers{2, 2, 2}, Tiers{2, 2, 2}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Compare(tt.b); got != tt.want {
				t.Errorf("Compare() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSlot_GainMatchesValue(t *testing.T) {
	for _, s := range []Slot{{Capacity: 1}, {Capacity: 4}, {Capacity: 5, Primary: true}, {Capacity: 0}} {
		var sum Tiers
		for k := 1; k <= s.Capacity; k++ {
			g := s.Gain(k)
			if k > 1 && g.Better(s.Gain(k-1)) {
				t.Errorf("gain not concave at cap=%d k=%d", s.Capacity, k)
			}
			sum = sum.Add(g)
			if v := s.Value(k); v != sum {
				t.Errorf("Value(%d) = %v, want %v (cap=%d)", k, v, sum, s.Capacity)
			}
		}
	}
}

func TestSlot_Value(t *testing.T) {
	s := Slot{Capacity: 3}
	if v := s.Value(2); v != (Tiers{1, 2, 2}) {
		t.Errorf("Value(2) = %v", v)
	}
	if v := s.Value(3); v != (Tiers{1, 2, 3}) {
		t.Errorf("Value(3) = %v", v)
	}
	p := Slot{Capacity: 2, Primary: true}
	if v := p.Value(1); v != (Tiers{0, 1, 1}) {
		t.Errorf("primary Value(1) = %v", v)
	}
}

func TestObjective_WeightedOrderMatchesTiers(t *testing.T) {
	o := &Objective{
		Slots:        [][]Slot{{{Capacity: 3}, {Capacity: 2, Primary: true}}},
		NumCoverage:  1,
		NumThreshold: 3,
		SumCapacity:  5,
	}

	wc, wt, wx := o.Weights()
	if wx.Cmp(big.NewInt(6)) != 0 || wt.Cmp(big.NewInt(24)) != 0 || wc.Cmp(big.NewInt(48)) != 0 {
		t.Fatalf("unexpected weights %v %v %v", wc, wt, wx)
	}

	a := Tiers{1, 0, 0}
	b := Tiers{0, 3, 5}
	if o.Weighted(a).Cmp(o.Weighted(b)) <= 0 {
		t.Error("coverage tier must dominate threshold and total")
	}
	if o.Weighted(Tiers{0, 1, 0}).Cmp(o.Weighted(Tiers{0, 0, 5})) <= 0 {
		t.Error("threshold tier must dominate total")
	}
	if got := o.Weighted(Tiers{1, 2, 3}); got.Cmp(big.NewInt(48+2*24+3)) != 0 {
		t.Errorf("Weighted() = %v", got)
	}

	loads := [][]int{{2, 1}}
	if got := o.Evaluate(loads); got != (Tiers{1, 3, 3}) {
		t.Errorf("Evaluate() = %v", got)
	}
	if o.Max() != (Tiers{1, 3, 5}) {
		t.Errorf("Max() = %v", o.Max())
	}
}
