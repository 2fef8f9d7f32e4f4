package analysis

import (
	"errors"
	"math"
	"testing"
	"time"
)

func pointsAt(prices ...float64) []PricePoint {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]PricePoint, len(prices))
	for i, p := range prices {
		points[i] = PricePoint{Timestamp: base.Add(time.Duration(i) * 24 * time.Hour), Price: p}
	}
	return points
}

func TestAnalyzeTrendEmpty(t *testing.T) {
	_, err := AnalyzeTrend(nil)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestAnalyzeTrendMedian(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   float64
	}{
		{"odd count", []float64{10, 30, 20}, 20},
		{"even count", []float64{10, 20, 30, 40}, 25},
		{"single", []float64{42}, 42},
		{"two values", []float64{10, 20}, 15},
		{"unsorted even", []float64{50, 10, 40, 20}, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats, err := AnalyzeTrend(pointsAt(tt.prices...))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if stats.Median != tt.want {
				t.Errorf("median = %v, want %v", stats.Median, tt.want)
			}
		})
	}
}

func TestAnalyzeTrendLabels(t *testing.T) {
	tests := []struct {
		name       string
		prices     []float64
		wantTrend  string
		wantChange float64
	}{
		{"decreasing", []float64{100, 95, 90}, TrendDecreasing, -10},
		{"increasing", []float64{90, 95, 100}, TrendIncreasing, 11.11},
		{"stable within band", []float64{100, 101, 100.5}, TrendStable, 0.5},
		{"exactly at negative threshold", []float64{100, 99}, TrendStable, -1},
		{"just past negative threshold", []float64{100, 98.9}, TrendDecreasing, -1.1},
		{"single point", []float64{100}, TrendStable, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats, err := AnalyzeTrend(pointsAt(tt.prices...))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if stats.Trend != tt.wantTrend {
				t.Errorf("trend = %q, want %q", stats.Trend, tt.wantTrend)
			}
			if math.Abs(stats.PercentChange-tt.wantChange) > 0.01 {
				t.Errorf("percent change = %v, want %v", stats.PercentChange, tt.wantChange)
			}
		})
	}
}

func TestAnalyzeTrendSummary(t *testing.T) {
	stats, err := AnalyzeTrend(pointsAt(120, 80, 100, 90))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.DataPoints != 4 {
		t.Errorf("data points = %d, want 4", stats.DataPoints)
	}
	if stats.Current != 90 {
		t.Errorf("current = %v, want 90 (latest by timestamp)", stats.Current)
	}
	if stats.Lowest != 80 || stats.Highest != 120 {
		t.Errorf("range = [%v, %v], want [80, 120]", stats.Lowest, stats.Highest)
	}
	if stats.Average != 97.5 {
		t.Errorf("average = %v, want 97.5", stats.Average)
	}
	if stats.Median != 95 {
		t.Errorf("median = %v, want 95", stats.Median)
	}
}

func TestAnalyzeTrendUnorderedInput(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	points := []PricePoint{
		{Timestamp: base.Add(48 * time.Hour), Price: 80},
		{Timestamp: base, Price: 100},
		{Timestamp: base.Add(24 * time.Hour), Price: 90},
	}

	stats, err := AnalyzeTrend(points)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Current != 80 {
		t.Errorf("current = %v, want 80", stats.Current)
	}
	if stats.PercentChange != -20 {
		t.Errorf("percent change = %v, want -20", stats.PercentChange)
	}
}
