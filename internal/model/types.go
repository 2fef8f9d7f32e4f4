package model

import (
	"strings"
	"time"
)

// Condition buckets used for deal scoring. eBay reports many display names
// ("Certified - Refurbished", "Seller refurbished", "New other", ...);
// NormalizeCondition collapses them into these four.
type Condition string

const (
	ConditionNew      Condition = "New"
	ConditionRefurb   Condition = "Refurbished"
	ConditionUsed     Condition = "Used"
	ConditionForParts Condition = "For parts or not working"
)

// CheckFrequency controls how often a tracked item is expected to be
// re-checked. Scheduling itself is not implemented; the value is stored so
// a future scheduler can act on it.
type CheckFrequency string

const (
	CheckHourly CheckFrequency = "hourly"
	CheckDaily  CheckFrequency = "daily"
	CheckWeekly CheckFrequency = "weekly"
)

// ValidFrequency reports whether f is a supported check frequency.
func ValidFrequency(f CheckFrequency) bool {
	switch f {
	case CheckHourly, CheckDaily, CheckWeekly:
		return true
	}
	return false
}

// ListingRecord is the normalized shape of one marketplace listing, active
// or sold. The eBay client maps upstream API shapes into this at the
// boundary; everything downstream depends only on this type.
type ListingRecord struct {
	ItemID       string    `json:"item_id"`
	Title        string    `json:"title"`
	Price        float64   `json:"price"`
	ShippingCost float64   `json:"shipping_cost"`
	Currency     string    `json:"currency"`
	Condition    string    `json:"condition"`
	SellerRating float64   `json:"seller_rating,omitempty"`
	URL          string    `json:"url"`
	Location     string    `json:"location,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	ListingType  string    `json:"listing_type,omitempty"`
	BuyItNow     bool      `json:"buy_it_now,omitempty"`
	EndTime      time.Time `json:"end_time,omitempty"`
}

// TrackedItem is a persisted subscription to an item's price history.
type TrackedItem struct {
	ItemID          string         `json:"item_id"`
	Title           string         `json:"title"`
	Category        string         `json:"category"`
	URL             string         `json:"url"`
	FirstSeenPrice  float64        `json:"first_seen_price"`
	FirstSeenDate   time.Time      `json:"first_seen_date"`
	AlertThreshold  float64        `json:"alert_threshold,omitempty"`
	AlertPercentage float64        `json:"alert_percentage,omitempty"`
	CheckFrequency  CheckFrequency `json:"check_frequency"`
	Notes           string         `json:"notes,omitempty"`
	Active          bool           `json:"active"`
	CreatedAt       time.Time      `json:"created_at"`
}

// PriceObservation is one timestamped price sample for a tracked item.
// Observations are append-only and never mutated after insert.
type PriceObservation struct {
	ID           int64     `json:"id"`
	ItemID       string    `json:"item_id"`
	Price        float64   `json:"price"`
	ShippingCost float64   `json:"shipping_cost"`
	Currency     string    `json:"currency"`
	Condition    string    `json:"condition"`
	Timestamp    time.Time `json:"timestamp"`
}

// NormalizeCondition maps an upstream condition display name onto one of
// the four scoring buckets. Unknown names map to Used so an unrecognized
// condition is scored conservatively rather than excluded.
func NormalizeCondition(display string) Condition {
	d := strings.ToLower(display)
	switch {
	case strings.Contains(d, "refurb"):
		return ConditionRefurb
	case strings.Contains(d, "parts"), strings.Contains(d, "not working"):
		return ConditionForParts
	case strings.Contains(d, "new"):
		return ConditionNew
	default:
		return ConditionUsed
	}
}
