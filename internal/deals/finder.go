// Package deals composes the listing provider, the market estimator, and
// the deal scorer into the end-to-end "find deals for a keyword" operation.
package deals

import (
	"context"
	"fmt"
	"log"

	"github.com/guarzo/dealwatch/internal/analysis"
	"github.com/guarzo/dealwatch/internal/ebay"
)

// Defaults for deal searches. MinSampleSize is the policy floor below which
// a sold sample is considered too thin to estimate a market baseline.
const (
	DefaultLookbackDays = 90
	DefaultSampleSize   = 75
	DefaultLimit        = 10
	MinSampleSize       = 5
	// MaxSampleSize caps per-call sold fetches, matching the bound the
	// configuration enforces on the default.
	MaxSampleSize = 100
)

// Config carries the finder's tunables.
type Config struct {
	LookbackDays int
	SampleSize   int
	// MinSample overrides MinSampleSize when positive.
	MinSample int
	// DiscountThreshold is the default minimum discount percent when a
	// call does not set its own; zero means the scorer default.
	DiscountThreshold float64
}

func (c Config) lookback() int {
	if c.LookbackDays > 0 {
		return c.LookbackDays
	}
	return DefaultLookbackDays
}

func (c Config) sampleSize() int {
	if c.SampleSize > 0 {
		return c.SampleSize
	}
	return DefaultSampleSize
}

func (c Config) minSample() int {
	if c.MinSample > 0 {
		return c.MinSample
	}
	return MinSampleSize
}

func (c Config) discountThreshold() float64 {
	if c.DiscountThreshold > 0 {
		return c.DiscountThreshold
	}
	return analysis.DefaultDiscountThreshold
}

// FindOptions are the per-call knobs for FindDeals.
type FindOptions struct {
	// DiscountThreshold is the minimum discount percent; zero means the
	// scorer default (15).
	DiscountThreshold float64
	// Condition filters active listings upstream when set.
	Condition string
	// CategoryID scopes both searches when set.
	CategoryID string
	// Limit caps returned deals; zero means DefaultLimit.
	Limit int
}

// MarketOptions are the per-call knobs for MarketValue.
type MarketOptions struct {
	LookbackDays int
	SampleSize   int
	CategoryID   string
}

// DealReport is the result of one deal search: the baseline the deals were
// judged against plus the ranked candidates.
type DealReport struct {
	Keywords          string                   `json:"keywords"`
	DiscountThreshold float64                  `json:"discount_threshold"`
	Baseline          analysis.MarketBaseline  `json:"market_baseline"`
	Deals             []analysis.DealCandidate `json:"deals"`
	ActiveConsidered  int                      `json:"active_considered"`
	SkippedListings   int                      `json:"skipped_listings"`
}

// MarketReport is the result of a market-value estimate.
type MarketReport struct {
	Keywords     string                  `json:"keywords"`
	LookbackDays int                     `json:"lookback_days"`
	Baseline     analysis.MarketBaseline `json:"market_baseline"`
}

// Finder orchestrates deal detection.
type Finder struct {
	provider ebay.Provider
	cfg      Config
}

// NewFinder builds a finder over the given listing provider.
func NewFinder(provider ebay.Provider, cfg Config) *Finder {
	return &Finder{provider: provider, cfg: cfg}
}

// FindDeals estimates the market baseline from sold comps, scores active
// listings against it, and returns the ranked deals. Provider failures in
// either search fail the whole call; individual malformed active listings
// are skipped and counted, never fatal.
func (f *Finder) FindDeals(ctx context.Context, keywords string, opts FindOptions) (*DealReport, error) {
	baseline, err := f.baseline(ctx, keywords, opts.CategoryID, f.cfg.lookback(), f.cfg.sampleSize())
	if err != nil {
		return nil, err
	}

	activeFilters := ebay.Filters{
		Condition:  opts.Condition,
		CategoryID: opts.CategoryID,
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	// Fetch more than the requested limit so scoring has something to rank
	// after sub-threshold listings drop out.
	active, err := f.provider.SearchActive(ctx, keywords, activeFilters, limit*5)
	if err != nil {
		return nil, fmt.Errorf("find deals %q: active search: %w", keywords, err)
	}

	threshold := opts.DiscountThreshold
	if threshold <= 0 {
		threshold = f.cfg.discountThreshold()
	}

	report := &DealReport{
		Keywords:          keywords,
		DiscountThreshold: threshold,
		Baseline:          *baseline,
		ActiveConsidered:  len(active),
	}

	scoreCfg := analysis.ScoreConfig{DiscountThreshold: threshold}
	for _, listing := range active {
		if listing.ItemID == "" || listing.Price <= 0 {
			report.SkippedListings++
			log.Printf("deals: skipping malformed listing %q (%s)", listing.Title, listing.ItemID)
			continue
		}
		if candidate, ok := analysis.ScoreListing(listing, baseline, scoreCfg); ok {
			report.Deals = append(report.Deals, candidate)
		}
	}

	analysis.SortCandidates(report.Deals)
	if len(report.Deals) > limit {
		report.Deals = report.Deals[:limit]
	}
	return report, nil
}

// MarketValue estimates the market baseline only.
func (f *Finder) MarketValue(ctx context.Context, keywords string, opts MarketOptions) (*MarketReport, error) {
	lookback := opts.LookbackDays
	if lookback <= 0 {
		lookback = f.cfg.lookback()
	}
	sampleSize := opts.SampleSize
	if sampleSize <= 0 {
		sampleSize = f.cfg.sampleSize()
	}
	if sampleSize > MaxSampleSize {
		sampleSize = MaxSampleSize
	}

	baseline, err := f.baseline(ctx, keywords, opts.CategoryID, lookback, sampleSize)
	if err != nil {
		return nil, err
	}
	return &MarketReport{
		Keywords:     keywords,
		LookbackDays: lookback,
		Baseline:     *baseline,
	}, nil
}

// baseline fetches the sold sample and aggregates it, enforcing the minimum
// viable sample policy.
func (f *Finder) baseline(ctx context.Context, keywords, categoryID string, lookbackDays, sampleSize int) (*analysis.MarketBaseline, error) {
	sold, err := f.provider.SearchSold(ctx, keywords, ebay.Filters{CategoryID: categoryID}, lookbackDays, sampleSize)
	if err != nil {
		return nil, fmt.Errorf("find deals %q: sold search: %w", keywords, err)
	}

	prices := make([]float64, 0, len(sold))
	for _, listing := range sold {
		if listing.Price > 0 {
			prices = append(prices, listing.Price)
		}
	}
	if len(prices) > sampleSize {
		prices = prices[:sampleSize]
	}
	if len(prices) < f.cfg.minSample() {
		return nil, fmt.Errorf("market baseline %q: %d sold listings, need %d: %w",
			keywords, len(prices), f.cfg.minSample(), analysis.ErrInsufficientSample)
	}

	baseline, err := analysis.EstimateMarket(prices)
	if err != nil {
		return nil, fmt.Errorf("market baseline %q: %w", keywords, err)
	}
	return baseline, nil
}
