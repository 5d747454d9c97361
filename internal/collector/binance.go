package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"TargetSentinel/internal/calculator"
	"TargetSentinel/internal/model"
)

// BinanceOptions configures a BinanceFeed.
type BinanceOptions struct {
	BaseURL        string
	QuoteAsset     string // only list symbols quoted in this asset; empty lists all
	Proxy          string
	Timeout        time.Duration
	RequestsPerSec float64
	MaxRetries     uint64
}

// BinanceFeed implements Feed using the public Binance spot REST API.
type BinanceFeed struct {
	pacedClient
	BaseURL    string
	QuoteAsset string

	now func() time.Time
}

// NewBinanceFeed creates a feed with optional proxy support. Every request
// is bounded by opts.Timeout and paced by the rate limiter.
func NewBinanceFeed(opts BinanceOptions) *BinanceFeed {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.binance.com"
	}
	return &BinanceFeed{
		pacedClient: newPacedClient(opts.Proxy, opts.Timeout, opts.RequestsPerSec, opts.MaxRetries),
		BaseURL:     opts.BaseURL,
		QuoteAsset:  opts.QuoteAsset,
		now:         time.Now,
	}
}

func (f *BinanceFeed) Name() string { return "binance" }

type exchangeInfo struct {
	Symbols []struct {
		Symbol     string `json:"symbol"`
		Status     string `json:"status"`
		QuoteAsset string `json:"quoteAsset"`
	} `json:"symbols"`
}

// ListInstruments returns every symbol currently in TRADING status.
func (f *BinanceFeed) ListInstruments(ctx context.Context) ([]string, error) {
	body, err := f.get(ctx, f.BaseURL+"/api/v3/exchangeInfo")
	if err != nil {
		return nil, fmt.Errorf("%w: exchange info: %w", ErrFeed, err)
	}
	var info exchangeInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%w: decode exchange info: %w", ErrFeed, err)
	}
	symbols := make([]string, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status != "TRADING" {
			continue
		}
		if f.QuoteAsset != "" && s.QuoteAsset != f.QuoteAsset {
			continue
		}
		symbols = append(symbols, s.Symbol)
	}
	return symbols, nil
}

// LatestDailyCandle returns the most recent completed 1d kline for symbol.
func (f *BinanceFeed) LatestDailyCandle(ctx context.Context, symbol string) (model.Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", "1d")
	q.Set("limit", "2")
	body, err := f.get(ctx, f.BaseURL+"/api/v3/klines?"+q.Encode())
	if err != nil {
		return model.Candle{}, fmt.Errorf("%w: klines %s: %w", ErrFeed, symbol, err)
	}
	candles, err := parseKlines(body)
	if err != nil {
		return model.Candle{}, fmt.Errorf("%w: klines %s: %w", ErrFeed, symbol, err)
	}
	c, err := calculator.LatestClosed(candles, f.now())
	if err != nil {
		return model.Candle{}, fmt.Errorf("%w: klines %s: %w", ErrFeed, symbol, err)
	}
	return c, nil
}

// parseKlines decodes Binance's array-of-arrays kline format:
// [openTime, open, high, low, close, volume, closeTime, ...].
func parseKlines(body []byte) ([]model.Candle, error) {
	var raw [][]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}
	candles := make([]model.Candle, 0, len(raw))
	for i, k := range raw {
		if len(k) < 7 {
			return nil, fmt.Errorf("kline %d: expected at least 7 fields, got %d", i, len(k))
		}
		var (
			openMs, closeMs int64
			fields          [5]float64
		)
		if err := json.Unmarshal(k[0], &openMs); err != nil {
			return nil, fmt.Errorf("kline %d open time: %w", i, err)
		}
		if err := json.Unmarshal(k[6], &closeMs); err != nil {
			return nil, fmt.Errorf("kline %d close time: %w", i, err)
		}
		for j := range fields {
			var s string
			if err := json.Unmarshal(k[j+1], &s); err != nil {
				return nil, fmt.Errorf("kline %d field %d: %w", i, j+1, err)
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("kline %d field %d: %w", i, j+1, err)
			}
			fields[j] = v
		}
		candles = append(candles, model.Candle{
			OpenTime:  time.UnixMilli(openMs).UTC(),
			CloseTime: time.UnixMilli(closeMs).UTC(),
			Open:      fields[0],
			High:      fields[1],
			Low:       fields[2],
			Close:     fields[3],
			Volume:    fields[4],
		})
	}
	return candles, nil
}
