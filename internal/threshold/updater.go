package threshold

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"TargetSentinel/internal/model"
	"TargetSentinel/internal/recorder"
)

// ErrInvalidObservation is returned for observations that cannot be applied.
var ErrInvalidObservation = errors.New("invalid observation")

// Updater raises the realized max price of every prediction whose horizon
// window contains an observation. It holds no per-symbol state; ordering of
// concurrent updates is left to the store's conditional update.
type Updater struct {
	store    recorder.Store
	variants []model.Variant
	log      zerolog.Logger
}

// NewUpdater creates an Updater over all horizon variants.
func NewUpdater(store recorder.Store, log zerolog.Logger) *Updater {
	return &Updater{
		store:    store,
		variants: model.AllVariants,
		log:      log.With().Str("component", "threshold").Logger(),
	}
}

// Apply records obs.High as the max price for every prediction of obs.Symbol
// with createdAt <= obs.At < createdAt+horizon, where the stored max is lower.
// It returns the number of rows changed. No matching rows is not an error.
func (u *Updater) Apply(ctx context.Context, obs model.Observation) (int64, error) {
	if obs.Symbol == "" {
		return 0, fmt.Errorf("%w: empty symbol", ErrInvalidObservation)
	}
	if math.IsNaN(obs.High) || math.IsInf(obs.High, 0) || obs.High <= 0 {
		return 0, fmt.Errorf("%w: high %v for %s", ErrInvalidObservation, obs.High, obs.Symbol)
	}

	var total int64
	for _, v := range u.variants {
		after, upTo := v.CreatedBounds(obs.At)
		n, err := u.store.ConditionalUpdateMax(ctx, obs.Symbol, v, after, upTo, obs.High)
		if err != nil {
			return total, fmt.Errorf("apply %s %s: %w", obs.Symbol, v, err)
		}
		if n > 0 {
			u.log.Debug().
				Str("symbol", obs.Symbol).
				Str("variant", v.String()).
				Float64("high", obs.High).
				Int64("rows", n).
				Msg("max price raised")
		}
		total += n
	}
	return total, nil
}
