package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"

	"TargetSentinel/internal/calculator"
	"TargetSentinel/internal/model"
)

// YahooOptions configures a YahooFeed.
type YahooOptions struct {
	BaseURL        string
	Symbols        []string // instruments to track; Yahoo has no listing endpoint
	Proxy          string
	Timeout        time.Duration
	RequestsPerSec float64
	MaxRetries     uint64
}

// YahooFeed implements Feed using the Yahoo Finance chart API for a fixed
// set of tickers (e.g. BTC-USD).
type YahooFeed struct {
	pacedClient
	BaseURL   string
	Symbols   []string
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker

	now func() time.Time
}

// NewYahooFeed creates a new Yahoo Finance feed.
func NewYahooFeed(opts YahooOptions) *YahooFeed {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://query1.finance.yahoo.com"
	}
	pc := newPacedClient(opts.Proxy, opts.Timeout, opts.RequestsPerSec, opts.MaxRetries)
	pc.UserAgent = "Mozilla/5.0"
	return &YahooFeed{
		pacedClient: pc,
		BaseURL:     opts.BaseURL,
		Symbols:     slices.Clone(opts.Symbols),
		SymbolMap: map[string]string{
			"BTCUSDT": "BTC-USD",
			"ETHUSDT": "ETH-USD",
		},
		now: time.Now,
	}
}

func (f *YahooFeed) Name() string { return "yahoo" }

func (f *YahooFeed) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// ListInstruments returns the configured symbols.
func (f *YahooFeed) ListInstruments(_ context.Context) ([]string, error) {
	if len(f.Symbols) == 0 {
		return nil, fmt.Errorf("%w: no symbols configured", ErrFeed)
	}
	return slices.Clone(f.Symbols), nil
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func quoteAt(vals []*float64, i int) float64 {
	if i >= len(vals) || vals[i] == nil {
		return 0
	}
	return *vals[i]
}

// LatestDailyCandle returns the most recent completed daily bar for symbol.
func (f *YahooFeed) LatestDailyCandle(ctx context.Context, symbol string) (model.Candle, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=5d",
		f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)))
	body, err := f.get(ctx, u)
	if err != nil {
		return model.Candle{}, fmt.Errorf("%w: yahoo %s: %w", ErrFeed, symbol, err)
	}
	candles, err := parseChart(body)
	if err != nil {
		return model.Candle{}, fmt.Errorf("%w: yahoo %s: %w", ErrFeed, symbol, err)
	}
	c, err := calculator.LatestClosed(candles, f.now())
	if err != nil {
		return model.Candle{}, fmt.Errorf("%w: yahoo %s: %w", ErrFeed, symbol, err)
	}
	return c, nil
}

func parseChart(body []byte) ([]model.Candle, error) {
	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("decode chart: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, errors.New("no data returned")
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	candles := make([]model.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		h := quoteAt(quote.High, i)
		if h == 0 {
			continue // null bar
		}
		open := time.Unix(ts, 0).UTC()
		candles = append(candles, model.Candle{
			OpenTime:  open,
			CloseTime: open.Add(24*time.Hour - time.Millisecond),
			Open:      quoteAt(quote.Open, i),
			High:      h,
			Low:       quoteAt(quote.Low, i),
			Close:     quoteAt(quote.Close, i),
			Volume:    quoteAt(quote.Volume, i),
		})
	}
	return candles, nil
}
