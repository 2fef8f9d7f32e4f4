// Package analysis holds the pure computations behind deal detection and
// price tracking: market-value estimation over sold comps, trend statistics
// over a price history, and the composite deal score. Nothing in this
// package performs I/O; every function is safe for concurrent use.
package analysis

import (
	"errors"
	"math"
	"sort"
)

var (
	// ErrInsufficientData is returned when a trend is requested for an
	// empty observation window.
	ErrInsufficientData = errors.New("analysis: no price observations in window")

	// ErrInsufficientSample is returned when a market baseline is requested
	// from an empty sold-listing sample.
	ErrInsufficientSample = errors.New("analysis: empty sold-listing sample")
)

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// median returns the textbook median: the middle value for odd counts, the
// mean of the two middle values for even counts. values must be non-empty.
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func minMax(values []float64) (lo, hi float64) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
