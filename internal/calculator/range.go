package calculator

import (
	"errors"
	"time"

	"TargetSentinel/internal/model"
)

// LatestClosed returns the most recent candle whose close time is before now.
func LatestClosed(candles []model.Candle, now time.Time) (model.Candle, error) {
	var (
		latest model.Candle
		found  bool
	)
	for _, c := range candles {
		if !c.CloseTime.Before(now) {
			continue
		}
		if !found || c.CloseTime.After(latest.CloseTime) {
			latest = c
			found = true
		}
	}
	if !found {
		return model.Candle{}, errors.New("no completed candle")
	}
	return latest, nil
}
