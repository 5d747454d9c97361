package strategy

import (
	"cmp"
	"slices"

	"TargetSentinel/internal/model"
)

// CompareOrders orders candidates by preference. A negative result means a
// should be acted on before b. Tiers, each breaking ties of the previous one:
//  1. larger original quantity
//  2. smaller remaining (unexecuted) quantity
//  3. larger notional value (original quantity * price)
//  4. earlier placement time
func CompareOrders(a, b model.CandidateOrder) int {
	if c := cmp.Compare(b.OriginalQuantity, a.OriginalQuantity); c != 0 {
		return c
	}
	if c := cmp.Compare(a.RemainingQuantity(), b.RemainingQuantity()); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Notional(), a.Notional()); c != 0 {
		return c
	}
	return a.PlacedAt.Compare(b.PlacedAt)
}

// RankOrders returns a sorted copy of orders, most preferable first.
func RankOrders(orders []model.CandidateOrder) []model.CandidateOrder {
	ranked := slices.Clone(orders)
	slices.SortStableFunc(ranked, CompareOrders)
	return ranked
}

// BestOrder returns the most preferable order, or false if there are none.
func BestOrder(orders []model.CandidateOrder) (model.CandidateOrder, bool) {
	if len(orders) == 0 {
		return model.CandidateOrder{}, false
	}
	return slices.MinFunc(orders, CompareOrders), true
}
