package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestFeed(t *testing.T, h http.HandlerFunc) *BinanceFeed {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewBinanceFeed(BinanceOptions{
		BaseURL:        srv.URL,
		QuoteAsset:     "USDT",
		Timeout:        2 * time.Second,
		RequestsPerSec: 100,
		MaxRetries:     2,
	})
}

func TestBinanceFeed_ListInstruments(t *testing.T) {
	f := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/exchangeInfo" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"symbols":[
			{"symbol":"BTCUSDT","status":"TRADING","quoteAsset":"USDT"},
			{"symbol":"ETHBTC","status":"TRADING","quoteAsset":"BTC"},
			{"symbol":"LUNAUSDT","status":"BREAK","quoteAsset":"USDT"},
			{"symbol":"ETHUSDT","status":"TRADING","quoteAsset":"USDT"}]}`)
	})

	got, err := f.ListInstruments(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "BTCUSDT" || got[1] != "ETHUSDT" {
		t.Errorf("expected [BTCUSDT ETHUSDT], got %v", got)
	}
}

func TestBinanceFeed_LatestDailyCandle(t *testing.T) {
	day := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	prevOpen := day.Add(-24 * time.Hour).UnixMilli()
	prevClose := day.UnixMilli() - 1
	curOpen := day.UnixMilli()
	curClose := day.Add(24*time.Hour).UnixMilli() - 1

	f := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") != "BTCUSDT" || r.URL.Query().Get("interval") != "1d" {
			http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, `[[%d,"100.0","110.5","95.0","105.0","1234.5",%d,"0",1,"0","0","0"],
			[%d,"105.0","120.0","104.0","118.0","99.0",%d,"0",1,"0","0","0"]]`,
			prevOpen, prevClose, curOpen, curClose)
	})
	f.now = func() time.Time { return day.Add(6 * time.Hour) }

	c, err := f.LatestDailyCandle(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}
	if c.High != 110.5 {
		t.Errorf("expected completed candle high 110.5, got %v", c.High)
	}
	if !c.OpenTime.Equal(day.Add(-24 * time.Hour)) {
		t.Errorf("unexpected open time %v", c.OpenTime)
	}

	_, err = f.LatestDailyCandle(context.Background(), "NOPE")
	if !errors.Is(err, ErrFeed) {
		t.Errorf("expected ErrFeed, got %v", err)
	}
}

func TestBinanceFeed_MalformedResponse(t *testing.T) {
	f := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[[1,"abc"]]`)
	})
	if _, err := f.LatestDailyCandle(context.Background(), "BTCUSDT"); !errors.Is(err, ErrFeed) {
		t.Errorf("expected ErrFeed, got %v", err)
	}
}

func TestBinanceFeed_RetriesOnlyTransientErrors(t *testing.T) {
	var hits atomic.Int32
	f := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	if _, err := f.ListInstruments(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("expected 1 attempt + 2 retries, got %d", got)
	}

	hits.Store(0)
	f = newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})
	_, err := f.ListInstruments(context.Background())
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadRequest {
		t.Errorf("expected HTTPStatusError 400, got %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("expected no retry on 400, got %d attempts", got)
	}
}

func TestMockFeed(t *testing.T) {
	m := NewMockFeed()
	m.SetHigh("BTCUSDT", 100)
	m.Fail("ETHUSDT", errors.New("boom"))

	symbols, err := m.ListInstruments(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(symbols) != 2 {
		t.Fatalf("expected 2 symbols, got %v", symbols)
	}
	if _, err := m.LatestDailyCandle(context.Background(), "ETHUSDT"); !errors.Is(err, ErrFeed) {
		t.Errorf("expected ErrFeed, got %v", err)
	}
	c, err := m.LatestDailyCandle(context.Background(), "BTCUSDT")
	if err != nil || c.High != 100 {
		t.Errorf("expected high 100, got %v (%v)", c.High, err)
	}
	if m.Calls("BTCUSDT") != 1 {
		t.Errorf("expected 1 call, got %d", m.Calls("BTCUSDT"))
	}
}
