package analysis

import (
	"sort"

	"github.com/guarzo/dealwatch/internal/model"
)

// Deal score component weights. The composite score is the sum of three
// clamped components and always lands in [0, MaxDealScore].
const (
	// DiscountScaleCapPct is the discount percent that earns the full
	// discount component. The mapping is linear: 0% -> 0 points,
	// DiscountScaleCapPct% and above -> MaxDiscountPoints. Tunable.
	DiscountScaleCapPct = 50.0

	MaxDiscountPoints  = 5.0
	MaxConditionPoints = 3.0
	FreeShippingPoints = 2.0

	MaxDealScore = MaxDiscountPoints + MaxConditionPoints + FreeShippingPoints

	// DefaultDiscountThreshold is the minimum discount percent a listing
	// needs before it is considered a deal at all.
	DefaultDiscountThreshold = 15.0
)

// conditionPoints is the explicit ordinal table for the condition
// component. Display names are normalized first; anything unrecognized
// lands on Used.
var conditionPoints = map[model.Condition]float64{
	model.ConditionNew:      3,
	model.ConditionRefurb:   2,
	model.ConditionUsed:     1,
	model.ConditionForParts: 0,
}

// ScoreConfig carries the scoring knobs a caller may adjust.
type ScoreConfig struct {
	// DiscountThreshold is the minimum discount percent for a listing to
	// qualify. Zero means DefaultDiscountThreshold.
	DiscountThreshold float64
}

func (c ScoreConfig) threshold() float64 {
	if c.DiscountThreshold > 0 {
		return c.DiscountThreshold
	}
	return DefaultDiscountThreshold
}

// DealCandidate pairs an active listing with its computed discount and
// composite score against a market baseline. Candidates exist only for the
// duration of one deal search response.
type DealCandidate struct {
	Listing         model.ListingRecord `json:"listing"`
	DiscountAmount  float64             `json:"discount_amount"`
	DiscountPercent float64             `json:"discount_percent"`
	DealScore       float64             `json:"deal_score"`
}

// ScoreListing scores one active listing against a market baseline. The
// second return value is false when the listing does not clear the discount
// threshold and should be excluded from results.
func ScoreListing(l model.ListingRecord, baseline *MarketBaseline, cfg ScoreConfig) (DealCandidate, bool) {
	discountAmount := baseline.Average - l.Price
	discountPercent := discountAmount / baseline.Average * 100

	if discountPercent < cfg.threshold() {
		return DealCandidate{}, false
	}

	score := discountComponent(discountPercent) +
		conditionPoints[model.NormalizeCondition(l.Condition)] +
		shippingComponent(l.ShippingCost)

	return DealCandidate{
		Listing:         l,
		DiscountAmount:  round2(discountAmount),
		DiscountPercent: round2(discountPercent),
		DealScore:       round2(score),
	}, true
}

func discountComponent(discountPercent float64) float64 {
	if discountPercent >= DiscountScaleCapPct {
		return MaxDiscountPoints
	}
	if discountPercent <= 0 {
		return 0
	}
	return discountPercent / DiscountScaleCapPct * MaxDiscountPoints
}

func shippingComponent(shippingCost float64) float64 {
	if shippingCost == 0 {
		return FreeShippingPoints
	}
	return 0
}

// SortCandidates orders candidates best-first: score descending, ties by
// higher discount percent, then by lower absolute price.
func SortCandidates(candidates []DealCandidate) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.DealScore != b.DealScore {
			return a.DealScore > b.DealScore
		}
		if a.DiscountPercent != b.DiscountPercent {
			return a.DiscountPercent > b.DiscountPercent
		}
		return a.Listing.Price < b.Listing.Price
	})
}
