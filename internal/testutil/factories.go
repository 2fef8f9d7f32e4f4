// Package testutil provides deterministic test data factories and
// environment helpers shared across package tests.
package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/guarzo/dealwatch/internal/model"
)

// Factory generates domain test data from a seeded random source so tests
// are reproducible.
type Factory struct {
	rand *rand.Rand
}

// NewFactory creates a factory. A zero seed falls back to the current time.
func NewFactory(seed int64) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{rand: rand.New(rand.NewSource(seed))}
}

// ItemID generates a plausible twelve-digit eBay item identifier.
func (f *Factory) ItemID() string {
	return fmt.Sprintf("1%011d", f.rand.Int63n(1e11))
}

// Listing generates one active listing around basePrice.
func (f *Factory) Listing(basePrice float64) model.ListingRecord {
	id := f.ItemID()
	conditions := []string{"New", "Used", "Certified - Refurbished", "For parts or not working"}
	return model.ListingRecord{
		ItemID:       id,
		Title:        fmt.Sprintf("Test Listing %s", id),
		Price:        basePrice * (0.8 + f.rand.Float64()*0.4),
		ShippingCost: float64(f.rand.Intn(3)) * 4.99,
		Currency:     "USD",
		Condition:    conditions[f.rand.Intn(len(conditions))],
		SellerRating: 90 + f.rand.Float64()*10,
		URL:          fmt.Sprintf("https://www.ebay.com/itm/%s", id),
		EndTime:      time.Now().Add(time.Duration(1+f.rand.Intn(10)) * 24 * time.Hour),
	}
}

// SoldPrices generates n sold prices spread around basePrice.
func (f *Factory) SoldPrices(n int, basePrice float64) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = basePrice * (0.85 + f.rand.Float64()*0.3)
	}
	return prices
}

// Observation generates one observation for itemID at the given age.
func (f *Factory) Observation(itemID string, price float64, age time.Duration) model.PriceObservation {
	return model.PriceObservation{
		ItemID:    itemID,
		Price:     price,
		Currency:  "USD",
		Condition: "Used",
		Timestamp: time.Now().UTC().Add(-age),
	}
}
