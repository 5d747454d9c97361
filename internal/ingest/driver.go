package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"TargetSentinel/internal/collector"
	"TargetSentinel/internal/model"
	"TargetSentinel/internal/threshold"
)

// ErrCycleInProgress is returned when RunCycle is called while another
// cycle is still running. The call is skipped, not queued.
var ErrCycleInProgress = errors.New("ingestion cycle already in progress")

const (
	DefaultWorkers  = 20
	DefaultLookback = 24 * time.Hour
)

// Applier applies one price observation to stored predictions.
type Applier interface {
	Apply(ctx context.Context, obs model.Observation) (int64, error)
}

// Metrics receives ingestion measurements.
type Metrics interface {
	RecordCycle(outcome string, seconds float64)
	RecordInstrumentError(kind string)
	RecordRowsUpdated(n int64)
	RecordHigh(symbol string, high float64)
}

type nopMetrics struct{}

func (nopMetrics) RecordCycle(string, float64)  {}
func (nopMetrics) RecordInstrumentError(string) {}
func (nopMetrics) RecordRowsUpdated(int64)      {}
func (nopMetrics) RecordHigh(string, float64)   {}

// CycleResult summarizes one ingestion cycle.
type CycleResult struct {
	Instruments int
	Updated     int
	Failed      int
	RowsChanged int64
	Duration    time.Duration
}

// Driver polls the feed and pushes each instrument's daily high to the
// threshold updater.
type Driver struct {
	feed     collector.Feed
	updater  Applier
	metrics  Metrics
	log      zerolog.Logger
	workers  int
	lookback time.Duration
	now      func() time.Time

	busy atomic.Bool
}

// Option configures a Driver.
type Option func(*Driver)

// WithWorkers bounds how many instruments are processed concurrently.
func WithWorkers(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithLookback sets how far before the cycle start observations are anchored.
func WithLookback(l time.Duration) Option {
	return func(d *Driver) {
		if l > 0 {
			d.lookback = l
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(d *Driver) {
		if m != nil {
			d.metrics = m
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

func NewDriver(feed collector.Feed, updater Applier, log zerolog.Logger, opts ...Option) *Driver {
	d := &Driver{
		feed:     feed,
		updater:  updater,
		metrics:  nopMetrics{},
		log:      log.With().Str("component", "ingest").Str("feed", feed.Name()).Logger(),
		workers:  DefaultWorkers,
		lookback: DefaultLookback,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Running reports whether a cycle is currently in flight.
func (d *Driver) Running() bool { return d.busy.Load() }

// RunCycle performs one ingestion pass over every listed instrument. A
// failing instrument is logged and counted; it never stops the others.
// Only a failure to list instruments fails the cycle.
func (d *Driver) RunCycle(ctx context.Context) (CycleResult, error) {
	if !d.busy.CompareAndSwap(false, true) {
		d.metrics.RecordCycle("skipped", 0)
		d.log.Warn().Msg("previous ingestion cycle still running, skipping")
		return CycleResult{}, ErrCycleInProgress
	}
	defer d.busy.Store(false)

	start := d.now()
	symbols, err := d.feed.ListInstruments(ctx)
	if err != nil {
		d.metrics.RecordCycle("failed", d.now().Sub(start).Seconds())
		return CycleResult{}, fmt.Errorf("list instruments: %w", err)
	}

	observeAt := start.Add(-d.lookback)
	var updated, failed, rows atomic.Int64

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < min(d.workers, len(symbols)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				n, err := d.ingest(ctx, symbol, observeAt)
				if err != nil {
					failed.Add(1)
					continue
				}
				updated.Add(1)
				rows.Add(n)
			}
		}()
	}
	for _, s := range symbols {
		jobs <- s
	}
	close(jobs)
	wg.Wait()

	res := CycleResult{
		Instruments: len(symbols),
		Updated:     int(updated.Load()),
		Failed:      int(failed.Load()),
		RowsChanged: rows.Load(),
		Duration:    d.now().Sub(start),
	}
	d.metrics.RecordRowsUpdated(res.RowsChanged)
	d.metrics.RecordCycle("completed", res.Duration.Seconds())
	d.log.Info().
		Int("instruments", res.Instruments).
		Int("updated", res.Updated).
		Int("failed", res.Failed).
		Int64("rows", res.RowsChanged).
		Dur("duration", res.Duration).
		Msg("ingestion cycle finished")
	return res, nil
}

func (d *Driver) ingest(ctx context.Context, symbol string, at time.Time) (int64, error) {
	candle, err := d.feed.LatestDailyCandle(ctx, symbol)
	if err != nil {
		d.metrics.RecordInstrumentError("feed")
		d.log.Warn().Err(err).Str("symbol", symbol).Msg("candle fetch failed, skipping instrument")
		return 0, err
	}
	d.metrics.RecordHigh(symbol, candle.High)

	n, err := d.updater.Apply(ctx, model.Observation{Symbol: symbol, High: candle.High, At: at})
	if err != nil {
		kind := "store"
		if errors.Is(err, threshold.ErrInvalidObservation) {
			kind = "invalid"
		}
		d.metrics.RecordInstrumentError(kind)
		d.log.Error().Err(err).Str("symbol", symbol).Msg("threshold update failed")
		return 0, err
	}
	return n, nil
}
