package model

import "time"

// Candle represents a single candlestick bar as reported by the price feed.
type Candle struct {
	OpenTime  time.Time
	CloseTime time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Observation is the (symbol, high, time) tuple fed to the threshold updater.
type Observation struct {
	Symbol string
	High   float64
	At     time.Time
}

// TimeRange is a half-open [From, To) span.
type TimeRange struct {
	From time.Time
	To   time.Time
}
