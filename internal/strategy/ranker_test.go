package strategy

import (
	"testing"
	"time"

	"TargetSentinel/internal/model"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return t0.Add(time.Duration(sec) * time.Second) }

func order(qty, exec, price float64, sec int) model.CandidateOrder {
	return model.CandidateOrder{OriginalQuantity: qty, ExecutedQuantity: exec, Price: price, PlacedAt: at(sec)}
}

func quantities(orders []model.CandidateOrder) []float64 {
	out := make([]float64, len(orders))
	for i, o := range orders {
		out[i] = o.OriginalQuantity
	}
	return out
}

func TestRankOrders_ByOriginalQuantity(t *testing.T) {
	a := order(10, 0, 10, 10)
	b := order(20, 0, 10, 10)
	c := order(50, 0, 10, 10)

	got := quantities(RankOrders([]model.CandidateOrder{a, b, c}))
	want := []float64{50, 20, 10}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestRankOrders_OriginalQuantityDominatesRemaining(t *testing.T) {
	a := order(50, 45, 10, 10)
	b := order(20, 0, 10, 10)
	c := order(10, 0, 10, 10)

	got := quantities(RankOrders([]model.CandidateOrder{c, b, a}))
	want := []float64{50, 20, 10}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestCompareOrders_Tiers(t *testing.T) {
	tests := []struct {
		name  string
		first model.CandidateOrder
		then  model.CandidateOrder
	}{
		{"larger original quantity", order(20, 0, 1, 5), order(10, 0, 100, 1)},
		{"smaller remaining quantity", order(20, 15, 1, 5), order(20, 5, 1, 1)},
		{"larger notional", order(20, 10, 3, 5), order(20, 10, 2, 1)},
		{"earlier placement", order(20, 10, 3, 1), order(20, 10, 3, 5)},
	}
	for _, tt := range tests {
		if c := CompareOrders(tt.first, tt.then); c >= 0 {
			t.Errorf("%s: expected first < then, got %d", tt.name, c)
		}
		if c := CompareOrders(tt.then, tt.first); c <= 0 {
			t.Errorf("%s: expected antisymmetric result, got %d", tt.name, c)
		}
	}
	if c := CompareOrders(order(1, 0, 1, 1), order(1, 0, 1, 1)); c != 0 {
		t.Errorf("identical orders should compare equal, got %d", c)
	}
}

func TestRankOrders_DeterministicAcrossPermutations(t *testing.T) {
	orders := []model.CandidateOrder{
		order(20, 5, 2, 3),
		order(20, 5, 2, 1),
		order(20, 0, 2, 2),
		order(30, 29, 1, 9),
		order(20, 5, 4, 7),
	}
	want := RankOrders(orders)
	perms := [][]int{{4, 3, 2, 1, 0}, {2, 0, 4, 1, 3}, {1, 4, 0, 3, 2}}
	for _, p := range perms {
		in := make([]model.CandidateOrder, len(p))
		for i, idx := range p {
			in[i] = orders[idx]
		}
		got := RankOrders(in)
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("permutation %v: position %d expected %+v, got %+v", p, i, want[i], got[i])
			}
		}
	}
	if want[0].OriginalQuantity != 30 {
		t.Errorf("expected largest order first, got %+v", want[0])
	}
	if want[1].Price != 4 {
		t.Errorf("expected larger notional to win among equal remaining, got %+v", want[1])
	}
	if last := want[len(want)-1]; last.ExecutedQuantity != 0 {
		t.Errorf("expected the least executed order last, got %+v", last)
	}
}

func TestRankOrders_DoesNotMutateInput(t *testing.T) {
	in := []model.CandidateOrder{order(1, 0, 1, 1), order(2, 0, 1, 1)}
	_ = RankOrders(in)
	if in[0].OriginalQuantity != 1 {
		t.Error("input slice was reordered")
	}
}

func TestBestOrder(t *testing.T) {
	if _, ok := BestOrder(nil); ok {
		t.Error("expected no best order for empty input")
	}
	best, ok := BestOrder([]model.CandidateOrder{order(5, 0, 1, 2), order(5, 0, 1, 1)})
	if !ok {
		t.Fatal("expected a best order")
	}
	if !best.PlacedAt.Equal(at(1)) {
		t.Errorf("expected the oldest order, got %v", best.PlacedAt)
	}
}
