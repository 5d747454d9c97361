package model

import (
	"errors"
	"time"
)

// PredictionRecord is one sell-target prediction for a symbol and horizon.
// (Symbol, Variant, CreatedAt) is unique. NextHorizonMaxPrice only grows.
type PredictionRecord struct {
	Symbol               string
	Variant              Variant
	CreatedAt            time.Time
	SellTarget           float64
	SellTargetPercentage float64
	NextHorizonMaxPrice  float64
}

// NewPredictionRecord builds a record with its max price still at zero.
// createdAt is truncated to the millisecond, the precision records are
// stored at.
func NewPredictionRecord(symbol string, variant Variant, createdAt time.Time, referencePrice, sellTarget float64) (PredictionRecord, error) {
	if symbol == "" {
		return PredictionRecord{}, errors.New("symbol is required")
	}
	if !variant.Valid() {
		return PredictionRecord{}, ErrUnknownVariant
	}
	if referencePrice <= 0 {
		return PredictionRecord{}, errors.New("reference price must be positive")
	}
	return PredictionRecord{
		Symbol:               symbol,
		Variant:              variant,
		CreatedAt:            createdAt.Truncate(time.Millisecond),
		SellTarget:           sellTarget,
		SellTargetPercentage: (sellTarget - referencePrice) / referencePrice * 100,
	}, nil
}

// Succeeded reports whether the realized max reached the sell target.
func (r PredictionRecord) Succeeded() bool {
	return r.NextHorizonMaxPrice >= r.SellTarget
}

// InsufficientData is the success rate reported for a window with no samples.
const InsufficientData = -1.0

// StatisticsWindow aggregates predictions created in [Start, End).
type StatisticsWindow struct {
	Label              string
	Start              time.Time
	End                time.Time
	SampleCount        int64
	SuccessCount       int64
	SuccessRatePercent float64
}

// NewStatisticsWindow derives the success rate, using InsufficientData when
// there are no samples.
func NewStatisticsWindow(label string, r TimeRange, samples, successes int64) StatisticsWindow {
	w := StatisticsWindow{
		Label:              label,
		Start:              r.From,
		End:                r.To,
		SampleCount:        samples,
		SuccessCount:       successes,
		SuccessRatePercent: InsufficientData,
	}
	if samples > 0 {
		w.SuccessRatePercent = float64(successes) / float64(samples) * 100
	}
	return w
}

// HasData reports whether the window contained any predictions.
func (w StatisticsWindow) HasData() bool { return w.SampleCount > 0 }

// WindowStatistics holds the day, week and month windows anchored at EndDate.
// A nil Variant means every horizon is counted together.
type WindowStatistics struct {
	Variant *Variant
	EndDate time.Time
	Day     StatisticsWindow
	Week    StatisticsWindow
	Month   StatisticsWindow
}

// AverageProfit is the mean SellTargetPercentage of a horizon.
type AverageProfit struct {
	Variant Variant
	Value   float64
}
