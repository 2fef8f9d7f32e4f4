package analysis

// MarketBaseline is a statistical snapshot of sold-listing prices for one
// keyword query. It is recomputed on every deal search and never persisted.
type MarketBaseline struct {
	SampleSize int     `json:"sample_size"`
	Average    float64 `json:"average_price"`
	Median     float64 `json:"median_price"`
	MinPrice   float64 `json:"min_price"`
	MaxPrice   float64 `json:"max_price"`
}

// EstimateMarket aggregates a sample of sold-listing prices into a market
// baseline. The caller is responsible for capping the sample size; this
// function aggregates whatever it is given and performs no fetching.
//
// No outlier rejection is applied: an extreme sale can skew the average.
// The median is included precisely so callers have a robustness check.
// Returns ErrInsufficientSample for an empty sample.
func EstimateMarket(prices []float64) (*MarketBaseline, error) {
	if len(prices) == 0 {
		return nil, ErrInsufficientSample
	}

	lo, hi := minMax(prices)
	return &MarketBaseline{
		SampleSize: len(prices),
		Average:    round2(mean(prices)),
		Median:     round2(median(prices)),
		MinPrice:   round2(lo),
		MaxPrice:   round2(hi),
	}, nil
}
