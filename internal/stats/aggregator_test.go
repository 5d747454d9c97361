package stats

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"TargetSentinel/internal/cache"
	"TargetSentinel/internal/model"
	"TargetSentinel/internal/recorder"
)

var end = time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *recorder.SQLiteStore {
	t.Helper()
	s, err := recorder.NewSQLiteStore(filepath.Join(t.TempDir(), "stats.db"), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func add(t *testing.T, s recorder.Store, v model.Variant, at time.Time, target, max, pct float64) {
	t.Helper()
	rec := model.PredictionRecord{
		Symbol:               "BTCUSDT",
		Variant:              v,
		CreatedAt:            at,
		SellTarget:           target,
		SellTargetPercentage: pct,
		NextHorizonMaxPrice:  max,
	}
	if _, err := s.Insert(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
}

func TestWindows_Containment(t *testing.T) {
	s := openStore(t)
	v := model.Variant2h
	add(t, s, v, end.Add(-time.Hour), 100, 100, 1)           // day, week, month; success
	add(t, s, v, end.Add(-3*24*time.Hour), 100, 90, 1)       // week, month
	add(t, s, v, end.Add(-20*24*time.Hour), 100, 120, 1)     // month; success
	add(t, s, v, end, 100, 120, 1)                           // end is exclusive
	add(t, s, v, end.Add(-40*24*time.Hour), 100, 120, 1)     // outside every window
	add(t, s, model.Variant5h, end.Add(-time.Hour), 1, 0, 1) // other variant

	a := NewAggregator(s, zerolog.Nop())
	ws, err := a.Windows(context.Background(), &v, end)
	if err != nil {
		t.Fatal(err)
	}

	checks := []struct {
		w       model.StatisticsWindow
		samples int64
		success int64
		rate    float64
	}{
		{ws.Day, 1, 1, 100},
		{ws.Week, 2, 1, 50},
		{ws.Month, 3, 2, 200.0 / 3},
	}
	for _, c := range checks {
		if c.w.SampleCount != c.samples || c.w.SuccessCount != c.success {
			t.Errorf("%s: expected %d/%d, got %d/%d", c.w.Label, c.success, c.samples, c.w.SuccessCount, c.w.SampleCount)
		}
		if math.Abs(c.w.SuccessRatePercent-c.rate) > 1e-9 {
			t.Errorf("%s: expected rate %v, got %v", c.w.Label, c.rate, c.w.SuccessRatePercent)
		}
	}
	if !(ws.Month.SampleCount >= ws.Week.SampleCount && ws.Week.SampleCount >= ws.Day.SampleCount) {
		t.Errorf("windows not nested: %d/%d/%d", ws.Day.SampleCount, ws.Week.SampleCount, ws.Month.SampleCount)
	}

	all, err := a.Windows(context.Background(), nil, end)
	if err != nil {
		t.Fatal(err)
	}
	if all.Day.SampleCount != 2 || all.Day.SuccessCount != 1 {
		t.Errorf("all-variant day window: expected 1/2, got %d/%d", all.Day.SuccessCount, all.Day.SampleCount)
	}
}

func TestWindows_EmptyWindowSentinel(t *testing.T) {
	s := openStore(t)
	v := model.Variant24h
	add(t, s, v, end.Add(-10*24*time.Hour), 100, 0, 1)

	ws, err := NewAggregator(s, zerolog.Nop()).Windows(context.Background(), &v, end)
	if err != nil {
		t.Fatal(err)
	}
	if ws.Day.SuccessRatePercent != model.InsufficientData || ws.Week.SuccessRatePercent != model.InsufficientData {
		t.Errorf("expected -1 for empty windows, got day=%v week=%v", ws.Day.SuccessRatePercent, ws.Week.SuccessRatePercent)
	}
	if ws.Month.SuccessRatePercent != 0 {
		t.Errorf("expected 0%% for a populated window without successes, got %v", ws.Month.SuccessRatePercent)
	}
}

func TestWindows_UnknownVariant(t *testing.T) {
	bad := model.Variant("3h")
	if _, err := NewAggregator(recorder.NewNoopStore(), zerolog.Nop()).Windows(context.Background(), &bad, end); err == nil {
		t.Error("expected error for unknown variant")
	}
}

func TestAverageProfit(t *testing.T) {
	s := openStore(t)
	for i, pct := range []float64{2, 4, 6} {
		add(t, s, model.Variant1h, end.Add(-time.Duration(i)*time.Hour), 1, 0, pct)
	}
	for i, pct := range []float64{1, 0, 0} {
		add(t, s, model.Variant10h, end.Add(-time.Duration(i)*time.Hour), 1, 0, pct)
	}
	a := NewAggregator(s, zerolog.Nop())
	ctx := context.Background()

	p, err := a.AverageProfit(ctx, model.Variant1h)
	if err != nil {
		t.Fatal(err)
	}
	if p.Value != 4 {
		t.Errorf("expected 4, got %v", p.Value)
	}

	p, err = a.AverageProfit(ctx, model.Variant10h)
	if err != nil {
		t.Fatal(err)
	}
	if p.Value != 0.33333333 {
		t.Errorf("expected 0.33333333, got %v", p.Value)
	}

	p, err = a.AverageProfit(ctx, model.Variant24h)
	if err != nil {
		t.Fatal(err)
	}
	if p.Value != 0 {
		t.Errorf("expected 0 for empty variant, got %v", p.Value)
	}

	all, err := a.AverageProfits(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != len(model.AllVariants) {
		t.Fatalf("expected %d entries, got %d", len(model.AllVariants), len(all))
	}
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1.000000005, 1.00000001},
		{1.000000004, 1},
		{-1.000000005, -1.00000001},
		{4, 4},
	}
	for _, tt := range tests {
		if got := roundHalfUp(tt.in, ProfitPrecision); got != tt.want {
			t.Errorf("roundHalfUp(%v): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestSuccessTrend(t *testing.T) {
	s := openStore(t)
	v := model.Variant5h
	// three days ago: 0%, two days ago: 50%, yesterday: 100%
	add(t, s, v, end.Add(-2*24*time.Hour-time.Hour), 10, 0, 1)
	add(t, s, v, end.Add(-24*time.Hour-time.Hour), 10, 10, 1)
	add(t, s, v, end.Add(-24*time.Hour-2*time.Hour), 10, 5, 1)
	add(t, s, v, end.Add(-time.Hour), 10, 11, 1)

	a := NewAggregator(s, zerolog.Nop())
	series, err := a.DailySuccessSeries(context.Background(), &v, end, 7)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 50, 100}
	if len(series) != len(want) {
		t.Fatalf("expected %v, got %v", want, series)
	}
	for i := range want {
		if series[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, series)
		}
	}

	slope, err := a.SuccessTrend(context.Background(), &v, end, 7)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(slope-50) > 1e-9 {
		t.Errorf("expected slope 50, got %v", slope)
	}
}

type countingStore struct {
	recorder.Store
	counts int
}

func (c *countingStore) CountInRange(ctx context.Context, v *model.Variant, r model.TimeRange) (int64, error) {
	c.counts++
	return c.Store.CountInRange(ctx, v, r)
}

func TestWindows_Cached(t *testing.T) {
	cs := &countingStore{Store: openStore(t)}
	a := NewAggregator(cs, zerolog.Nop(), WithCache(cache.NewTTLCache(), time.Minute))
	v := model.Variant1h

	first, err := a.Windows(context.Background(), &v, end)
	if err != nil {
		t.Fatal(err)
	}
	calls := cs.counts
	second, err := a.Windows(context.Background(), &v, end)
	if err != nil {
		t.Fatal(err)
	}
	if cs.counts != calls {
		t.Errorf("expected cached result, store queried %d more times", cs.counts-calls)
	}
	if second.Day.SuccessRatePercent != first.Day.SuccessRatePercent || second.Month.Label != "month" {
		t.Errorf("cached result differs: %+v vs %+v", second, first)
	}
}
