package collector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"TargetSentinel/internal/model"
)

// MockFeed returns controllable fixed data for development and testing.
type MockFeed struct {
	mu      sync.Mutex
	Candles map[string]model.Candle
	Errors  map[string]error
	ListErr error
	Delay   time.Duration
	calls   map[string]int
}

func NewMockFeed() *MockFeed {
	return &MockFeed{
		Candles: make(map[string]model.Candle),
		Errors:  make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (m *MockFeed) Name() string { return "mock" }

// SetHigh registers a completed daily candle for symbol with the given high.
func (m *MockFeed) SetHigh(symbol string, high float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	day := time.Now().UTC().Truncate(24 * time.Hour)
	m.Candles[symbol] = model.Candle{
		OpenTime:  day.Add(-24 * time.Hour),
		CloseTime: day.Add(-time.Millisecond),
		Open:      high * 0.98,
		High:      high,
		Low:       high * 0.95,
		Close:     high * 0.99,
		Volume:    1000,
	}
}

// Fail makes every candle request for symbol return err.
func (m *MockFeed) Fail(symbol string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[symbol] = err
}

func (m *MockFeed) ListInstruments(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	seen := make(map[string]struct{}, len(m.Candles)+len(m.Errors))
	for s := range m.Candles {
		seen[s] = struct{}{}
	}
	for s := range m.Errors {
		seen[s] = struct{}{}
	}
	symbols := make([]string, 0, len(seen))
	for s := range seen {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (m *MockFeed) LatestDailyCandle(ctx context.Context, symbol string) (model.Candle, error) {
	m.mu.Lock()
	m.calls[symbol]++
	delay := m.Delay
	err := m.Errors[symbol]
	c, ok := m.Candles[symbol]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return model.Candle{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return model.Candle{}, fmt.Errorf("%w: %s: %w", ErrFeed, symbol, err)
	}
	if !ok {
		return model.Candle{}, fmt.Errorf("%w: unknown symbol %s", ErrFeed, symbol)
	}
	return c, nil
}

// Calls returns how many candle requests were made for symbol.
func (m *MockFeed) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}
