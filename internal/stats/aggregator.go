package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"TargetSentinel/internal/cache"
	"TargetSentinel/internal/calculator"
	"TargetSentinel/internal/model"
	"TargetSentinel/internal/recorder"
)

// ProfitPrecision is the number of decimal digits kept in average profits.
const ProfitPrecision = 8

// Aggregator computes success-rate and profit statistics from stored
// predictions. It only reads; results may lag the latest ingestion.
type Aggregator struct {
	store    recorder.Store
	cache    cache.BytesCache
	cacheTTL time.Duration
	log      zerolog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithCache memoizes window statistics per (variant, end date) for ttl.
func WithCache(c cache.BytesCache, ttl time.Duration) Option {
	return func(a *Aggregator) {
		a.cache = c
		a.cacheTTL = ttl
	}
}

func NewAggregator(store recorder.Store, log zerolog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		store: store,
		log:   log.With().Str("component", "stats").Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Windows computes the one-day, one-week and one-month windows ending at
// endDate (exclusive). A nil variant aggregates every horizon together.
// Empty windows report model.InsufficientData as their success rate.
func (a *Aggregator) Windows(ctx context.Context, variant *model.Variant, endDate time.Time) (model.WindowStatistics, error) {
	if variant != nil && !variant.Valid() {
		return model.WindowStatistics{}, fmt.Errorf("%w: %q", model.ErrUnknownVariant, *variant)
	}

	key := cacheKey(variant, endDate)
	if ws, ok := a.cached(ctx, key); ok {
		return ws, nil
	}

	ws := model.WindowStatistics{Variant: variant, EndDate: endDate}
	var err error
	if ws.Day, err = a.window(ctx, "day", variant, model.TimeRange{From: endDate.AddDate(0, 0, -1), To: endDate}); err != nil {
		return model.WindowStatistics{}, err
	}
	if ws.Week, err = a.window(ctx, "week", variant, model.TimeRange{From: endDate.AddDate(0, 0, -7), To: endDate}); err != nil {
		return model.WindowStatistics{}, err
	}
	if ws.Month, err = a.window(ctx, "month", variant, model.TimeRange{From: endDate.AddDate(0, -1, 0), To: endDate}); err != nil {
		return model.WindowStatistics{}, err
	}

	a.storeCached(ctx, key, ws)
	return ws, nil
}

func (a *Aggregator) window(ctx context.Context, label string, variant *model.Variant, r model.TimeRange) (model.StatisticsWindow, error) {
	samples, err := a.store.CountInRange(ctx, variant, r)
	if err != nil {
		return model.StatisticsWindow{}, fmt.Errorf("%s window: %w", label, err)
	}
	if samples == 0 {
		return model.NewStatisticsWindow(label, r, 0, 0), nil
	}
	successes, err := a.store.CountSuccessInRange(ctx, variant, r)
	if err != nil {
		return model.StatisticsWindow{}, fmt.Errorf("%s window: %w", label, err)
	}
	return model.NewStatisticsWindow(label, r, samples, successes), nil
}

// AverageProfit averages SellTargetPercentage over every record of variant,
// rounded half up to ProfitPrecision digits. No records yields 0.
func (a *Aggregator) AverageProfit(ctx context.Context, variant model.Variant) (model.AverageProfit, error) {
	if !variant.Valid() {
		return model.AverageProfit{}, fmt.Errorf("%w: %q", model.ErrUnknownVariant, variant)
	}
	avg, ok, err := a.store.AverageSellPercentage(ctx, variant, nil)
	if err != nil {
		return model.AverageProfit{}, fmt.Errorf("average profit %s: %w", variant, err)
	}
	if !ok {
		return model.AverageProfit{Variant: variant}, nil
	}
	return model.AverageProfit{Variant: variant, Value: roundHalfUp(avg, ProfitPrecision)}, nil
}

// AverageProfits returns AverageProfit for every horizon in ascending order.
func (a *Aggregator) AverageProfits(ctx context.Context) ([]model.AverageProfit, error) {
	out := make([]model.AverageProfit, 0, len(model.AllVariants))
	for _, v := range model.AllVariants {
		p, err := a.AverageProfit(ctx, v)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// DailySuccessSeries returns the success rate of each of the last days
// one-day windows ending at endDate, oldest first. Days without predictions
// are skipped.
func (a *Aggregator) DailySuccessSeries(ctx context.Context, variant *model.Variant, endDate time.Time, days int) ([]float64, error) {
	series := make([]float64, 0, days)
	for i := days - 1; i >= 0; i-- {
		end := endDate.AddDate(0, 0, -i)
		w, err := a.window(ctx, "day", variant, model.TimeRange{From: end.AddDate(0, 0, -1), To: end})
		if err != nil {
			return nil, err
		}
		if w.HasData() {
			series = append(series, w.SuccessRatePercent)
		}
	}
	return series, nil
}

// SuccessTrend is the least-squares slope of DailySuccessSeries, in
// percentage points per day. Fewer than two populated days yield 0.
func (a *Aggregator) SuccessTrend(ctx context.Context, variant *model.Variant, endDate time.Time, days int) (float64, error) {
	series, err := a.DailySuccessSeries(ctx, variant, endDate, days)
	if err != nil {
		return 0, err
	}
	return calculator.LeastSquaresSlope(series), nil
}

func roundHalfUp(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func cacheKey(variant *model.Variant, end time.Time) string {
	name := "all"
	if variant != nil {
		name = variant.String()
	}
	return fmt.Sprintf("stats:%s:%d", name, end.UnixMilli())
}

func (a *Aggregator) cached(ctx context.Context, key string) (model.WindowStatistics, bool) {
	if a.cache == nil {
		return model.WindowStatistics{}, false
	}
	b, ok, err := a.cache.GetBytes(ctx, key)
	if err != nil {
		a.log.Warn().Err(err).Str("key", key).Msg("stats cache read failed")
		return model.WindowStatistics{}, false
	}
	if !ok {
		return model.WindowStatistics{}, false
	}
	var ws model.WindowStatistics
	if err := json.Unmarshal(b, &ws); err != nil {
		a.log.Warn().Err(err).Str("key", key).Msg("stats cache entry corrupt")
		return model.WindowStatistics{}, false
	}
	return ws, true
}

func (a *Aggregator) storeCached(ctx context.Context, key string, ws model.WindowStatistics) {
	if a.cache == nil {
		return
	}
	b, err := json.Marshal(ws)
	if err != nil {
		return
	}
	if err := a.cache.SetBytes(ctx, key, b, a.cacheTTL); err != nil {
		a.log.Warn().Err(err).Str("key", key).Msg("stats cache write failed")
	}
}
