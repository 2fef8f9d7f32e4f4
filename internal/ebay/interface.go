// Package ebay implements the listing provider: keyword search over active
// and sold/completed listings via the eBay Finding API, item detail lookup
// via the Shopping API, and an HTML scraper fallback for sold comps.
// Upstream response shapes are normalized into model.ListingRecord at this
// boundary so the rest of the system never sees raw API payloads.
package ebay

import (
	"context"
	"errors"

	"github.com/guarzo/dealwatch/internal/model"
)

var (
	// ErrNotFound is returned when an item identifier does not resolve
	// upstream. Not retried.
	ErrNotFound = errors.New("ebay: item not found")

	// ErrUnavailable is returned after the retry budget is exhausted on
	// network errors, timeouts, or upstream 5xx responses.
	ErrUnavailable = errors.New("ebay: service unavailable")
)

// ShippingFilter narrows search results by shipping option.
type ShippingFilter string

const (
	ShippingAny         ShippingFilter = ""
	ShippingFree        ShippingFilter = "free"
	ShippingLocalPickup ShippingFilter = "local-pickup"
)

// Filters are the search refinements supported by both active and sold
// searches. Zero values mean "no filter".
type Filters struct {
	MinPrice          float64
	MaxPrice          float64
	Condition         string
	ItemLocation      string
	Shipping          ShippingFilter
	SellerType        string
	ListingType       string
	CategoryID        string
	ExcludeKeywords   []string
	SearchDescription bool
}

// Provider is the listing-provider capability consumed by the deal finder
// and the tracking service.
type Provider interface {
	// Available reports whether the provider is configured and usable.
	Available() bool

	// SearchActive returns up to limit active listings matching keywords.
	SearchActive(ctx context.Context, keywords string, f Filters, limit int) ([]model.ListingRecord, error)

	// SearchSold returns up to sampleSize completed/sold listings matching
	// keywords, scoped to the lookback window.
	SearchSold(ctx context.Context, keywords string, f Filters, lookbackDays, sampleSize int) ([]model.ListingRecord, error)

	// GetDetail returns the full record for one item identifier, or
	// ErrNotFound if it does not resolve.
	GetDetail(ctx context.Context, itemID string) (*model.ListingRecord, error)
}

// Ensure Client implements Provider.
var _ Provider = (*Client)(nil)
