package collector

import (
	"context"
	"errors"

	"TargetSentinel/internal/model"
)

// ErrFeed marks a failure to obtain data from the price feed
// (network, malformed response, unknown symbol).
var ErrFeed = errors.New("price feed error")

// Feed is the price-feed collaborator polled by the ingestion driver.
type Feed interface {
	ListInstruments(ctx context.Context) ([]string, error)
	LatestDailyCandle(ctx context.Context, symbol string) (model.Candle, error)
	Name() string
}
