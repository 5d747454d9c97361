package model

import "time"

// CandidateOrder is an open exchange order considered for action.
type CandidateOrder struct {
	OriginalQuantity float64
	ExecutedQuantity float64
	Price            float64
	PlacedAt         time.Time
}

// RemainingQuantity is the part of the order not yet executed.
func (o CandidateOrder) RemainingQuantity() float64 {
	return o.OriginalQuantity - o.ExecutedQuantity
}

// Notional is the order's original quantity valued at its price.
func (o CandidateOrder) Notional() float64 {
	return o.OriginalQuantity * o.Price
}
