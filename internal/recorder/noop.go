package recorder

import (
	"context"
	"time"

	"TargetSentinel/internal/model"
)

// NoopStore is used when no database is configured. It holds nothing, so
// every update is a no-op and every window is empty.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (n *NoopStore) Insert(_ context.Context, _ model.PredictionRecord) (bool, error) {
	return false, nil
}

func (n *NoopStore) FindRecords(_ context.Context, _ string, _ model.Variant, _ model.TimeRange) ([]model.PredictionRecord, error) {
	return nil, nil
}

func (n *NoopStore) ConditionalUpdateMax(_ context.Context, _ string, _ model.Variant, _, _ time.Time, _ float64) (int64, error) {
	return 0, nil
}

func (n *NoopStore) CountInRange(_ context.Context, _ *model.Variant, _ model.TimeRange) (int64, error) {
	return 0, nil
}

func (n *NoopStore) CountSuccessInRange(_ context.Context, _ *model.Variant, _ model.TimeRange) (int64, error) {
	return 0, nil
}

func (n *NoopStore) AverageSellPercentage(_ context.Context, _ model.Variant, _ *model.TimeRange) (float64, bool, error) {
	return 0, false, nil
}

func (n *NoopStore) Close() error { return nil }
