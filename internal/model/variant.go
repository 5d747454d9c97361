package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownVariant is returned when a horizon name is not recognised.
var ErrUnknownVariant = errors.New("unknown horizon variant")

// Variant is a forward-looking prediction horizon.
type Variant string

const (
	Variant1h  Variant = "1h"
	Variant2h  Variant = "2h"
	Variant5h  Variant = "5h"
	Variant10h Variant = "10h"
	Variant24h Variant = "24h"
)

// AllVariants lists every horizon in ascending duration order.
var AllVariants = []Variant{Variant1h, Variant2h, Variant5h, Variant10h, Variant24h}

var variantDurations = map[Variant]time.Duration{
	Variant1h:  time.Hour,
	Variant2h:  2 * time.Hour,
	Variant5h:  5 * time.Hour,
	Variant10h: 10 * time.Hour,
	Variant24h: 24 * time.Hour,
}

// Duration returns the length of the horizon window. Unknown variants return 0.
func (v Variant) Duration() time.Duration {
	return variantDurations[v]
}

// Valid reports whether v is one of AllVariants.
func (v Variant) Valid() bool {
	_, ok := variantDurations[v]
	return ok
}

func (v Variant) String() string { return string(v) }

// CreatedBounds returns the creation times whose horizon window contains at.
// A record created at c covers at (c <= at < c+Duration) iff
// after < c <= upTo.
func (v Variant) CreatedBounds(at time.Time) (after, upTo time.Time) {
	return at.Add(-v.Duration()), at
}

// ParseVariant converts a horizon name such as "5h" into a Variant.
func ParseVariant(s string) (Variant, error) {
	v := Variant(s)
	if !v.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownVariant, s)
	}
	return v, nil
}
