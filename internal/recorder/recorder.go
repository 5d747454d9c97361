package recorder

import (
	"context"
	"time"

	"TargetSentinel/internal/model"
)

// Store persists prediction records and answers the windowed queries the
// threshold updater and statistics aggregator need.
type Store interface {
	// Insert stores a new record. It reports false, without error, when a
	// record with the same (symbol, variant, createdAt) already exists.
	Insert(ctx context.Context, rec model.PredictionRecord) (bool, error)

	// FindRecords returns records of symbol and variant created in r.
	FindRecords(ctx context.Context, symbol string, variant model.Variant, r model.TimeRange) ([]model.PredictionRecord, error)

	// ConditionalUpdateMax raises NextHorizonMaxPrice to newMax on every
	// record of symbol and variant created in (windowFrom, windowTo] whose
	// current max is lower. It is a single atomic statement and returns the
	// number of rows changed; zero is not an error.
	// Creation times are compared at millisecond precision; bounds are
	// floored to the millisecond, which is exact for millisecond createdAt.
	ConditionalUpdateMax(ctx context.Context, symbol string, variant model.Variant, windowFrom, windowTo time.Time, newMax float64) (int64, error)

	// CountInRange counts records created in r. A nil variant counts all horizons.
	CountInRange(ctx context.Context, variant *model.Variant, r model.TimeRange) (int64, error)

	// CountSuccessInRange counts records created in r whose max reached the sell target.
	CountSuccessInRange(ctx context.Context, variant *model.Variant, r model.TimeRange) (int64, error)

	// AverageSellPercentage averages SellTargetPercentage for variant, over r
	// when given. ok is false when no record qualifies.
	AverageSellPercentage(ctx context.Context, variant model.Variant, r *model.TimeRange) (avg float64, ok bool, err error)

	Close() error
}
