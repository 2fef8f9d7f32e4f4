package analysis

import (
	"sort"
	"time"
)

// Trend labels for a price history window.
const (
	TrendDecreasing = "decreasing"
	TrendIncreasing = "increasing"
	TrendStable     = "stable"
)

// TrendThresholdPct is the percent change magnitude a window must exceed
// before it is labeled increasing or decreasing. Changes inside the band
// are noise and reported as stable. Tunable.
const TrendThresholdPct = 1.0

// PricePoint is one (timestamp, price) pair fed to AnalyzeTrend.
type PricePoint struct {
	Timestamp time.Time
	Price     float64
}

// TrendStats summarizes a price history window.
type TrendStats struct {
	DataPoints    int     `json:"data_points"`
	Current       float64 `json:"current_price"`
	Lowest        float64 `json:"lowest_price"`
	Highest       float64 `json:"highest_price"`
	Average       float64 `json:"average_price"`
	Median        float64 `json:"median_price"`
	Trend         string  `json:"price_trend"`
	PercentChange float64 `json:"percent_change"`
}

// AnalyzeTrend computes summary statistics and a trend label for a sequence
// of price observations. Points are sorted by timestamp internally, so
// callers may pass them in any order. Returns ErrInsufficientData for an
// empty input.
func AnalyzeTrend(points []PricePoint) (*TrendStats, error) {
	if len(points) == 0 {
		return nil, ErrInsufficientData
	}

	sorted := make([]PricePoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	prices := make([]float64, len(sorted))
	for i, p := range sorted {
		prices[i] = p.Price
	}

	lo, hi := minMax(prices)
	stats := &TrendStats{
		DataPoints: len(prices),
		Current:    round2(prices[len(prices)-1]),
		Lowest:     round2(lo),
		Highest:    round2(hi),
		Average:    round2(mean(prices)),
		Median:     round2(median(prices)),
	}

	// Percent change runs earliest to latest within the window. A single
	// observation has no direction and reads as stable.
	if len(prices) >= 2 && prices[0] != 0 {
		stats.PercentChange = round2((prices[len(prices)-1] - prices[0]) / prices[0] * 100)
	}

	switch {
	case stats.PercentChange < -TrendThresholdPct:
		stats.Trend = TrendDecreasing
	case stats.PercentChange > TrendThresholdPct:
		stats.Trend = TrendIncreasing
	default:
		stats.Trend = TrendStable
	}

	return stats, nil
}
