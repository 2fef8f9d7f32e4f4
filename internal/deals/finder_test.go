package deals

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/guarzo/dealwatch/internal/analysis"
	"github.com/guarzo/dealwatch/internal/ebay"
	"github.com/guarzo/dealwatch/internal/model"
)

func soldAt(prices ...float64) []model.ListingRecord {
	listings := make([]model.ListingRecord, len(prices))
	for i, p := range prices {
		listings[i] = model.ListingRecord{
			ItemID:    "220000000001",
			Title:     "sold comp",
			Price:     p,
			Condition: "Used",
		}
	}
	return listings
}

func activeListing(id string, price float64, condition string, shipping float64) model.ListingRecord {
	return model.ListingRecord{
		ItemID:       id,
		Title:        "active listing " + id,
		Price:        price,
		Condition:    condition,
		ShippingCost: shipping,
	}
}

func TestFindDealsScenario(t *testing.T) {
	provider := ebay.NewMockProvider()
	provider.SoldListings = soldAt(400, 420, 450, 480, 500) // baseline avg 450
	provider.ActiveListings = []model.ListingRecord{
		activeListing("1", 380, "Certified - Refurbished", 0), // 15.56% off
		activeListing("2", 445, "New", 0),                     // 1.1% off, excluded
		activeListing("3", 300, "Used", 9.99),                 // 33.3% off
	}

	finder := NewFinder(provider, Config{})
	report, err := finder.FindDeals(context.Background(), "nintendo switch oled", FindOptions{
		DiscountThreshold: 15,
	})
	if err != nil {
		t.Fatalf("find deals: %v", err)
	}

	if report.Baseline.Average != 450 {
		t.Errorf("baseline average = %v, want 450", report.Baseline.Average)
	}
	if report.ActiveConsidered != 3 {
		t.Errorf("active considered = %d, want 3", report.ActiveConsidered)
	}
	if report.SkippedListings != 0 {
		t.Errorf("skipped = %d, want 0", report.SkippedListings)
	}
	if len(report.Deals) != 2 {
		t.Fatalf("deals = %d, want 2 (sub-threshold listing excluded)", len(report.Deals))
	}

	// Condition and free shipping push the refurbished listing past the
	// deeper-discount used one: 1.56+2+2 = 5.56 vs 3.33+1+0 = 4.33.
	if report.Deals[0].Listing.ItemID != "1" {
		t.Errorf("top deal = %s, want item 1", report.Deals[0].Listing.ItemID)
	}
	if report.Deals[0].DiscountPercent != 15.56 {
		t.Errorf("discount percent = %v, want 15.56", report.Deals[0].DiscountPercent)
	}
	if report.Deals[0].DealScore != 5.56 {
		t.Errorf("deal score = %v, want 5.56", report.Deals[0].DealScore)
	}
	if report.Deals[1].Listing.ItemID != "3" {
		t.Errorf("second deal = %s, want item 3", report.Deals[1].Listing.ItemID)
	}
}

func TestFindDealsInsufficientSample(t *testing.T) {
	provider := ebay.NewMockProvider()
	provider.SoldListings = soldAt(100, 110, 120) // below the floor of 5

	finder := NewFinder(provider, Config{})
	_, err := finder.FindDeals(context.Background(), "rare widget", FindOptions{})
	if !errors.Is(err, analysis.ErrInsufficientSample) {
		t.Fatalf("error = %v, want analysis.ErrInsufficientSample", err)
	}
	// The message carries both counts so a client can explain the failure.
	for _, want := range []string{"3 sold listings", "need 5"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err.Error(), want)
		}
	}
}

func TestFindDealsSkipsMalformedListings(t *testing.T) {
	provider := ebay.NewMockProvider()
	provider.SoldListings = soldAt(100, 100, 100, 100, 100)
	provider.ActiveListings = []model.ListingRecord{
		activeListing("", 50, "Used", 0),    // missing id
		activeListing("2", 0, "Used", 0),    // non-positive price
		activeListing("3", 60, "Used", 0),   // fine, 40% off
		activeListing("4", -10, "Used", 0),  // negative price
		activeListing("5", 99.5, "Used", 0), // fine but sub-threshold
	}

	finder := NewFinder(provider, Config{})
	report, err := finder.FindDeals(context.Background(), "widget", FindOptions{})
	if err != nil {
		t.Fatalf("malformed listings must not fail the call: %v", err)
	}
	if report.SkippedListings != 3 {
		t.Errorf("skipped = %d, want 3", report.SkippedListings)
	}
	if report.ActiveConsidered != 5 {
		t.Errorf("active considered = %d, want 5", report.ActiveConsidered)
	}
	if len(report.Deals) != 1 || report.Deals[0].Listing.ItemID != "3" {
		t.Errorf("deals = %+v, want only item 3", report.Deals)
	}
}

func TestFindDealsLimitAndOrder(t *testing.T) {
	provider := ebay.NewMockProvider()
	provider.SoldListings = soldAt(100, 100, 100, 100, 100)

	// Twelve qualifying listings at increasing discounts.
	var active []model.ListingRecord
	for i := 0; i < 12; i++ {
		price := 80 - float64(i*3)
		active = append(active, activeListing(string(rune('a'+i)), price, "Used", 5))
	}
	provider.ActiveListings = active

	finder := NewFinder(provider, Config{})
	report, err := finder.FindDeals(context.Background(), "widget", FindOptions{Limit: 4})
	if err != nil {
		t.Fatalf("find deals: %v", err)
	}
	if len(report.Deals) != 4 {
		t.Fatalf("deals = %d, want limit 4", len(report.Deals))
	}
	for i := 1; i < len(report.Deals); i++ {
		if report.Deals[i].DealScore > report.Deals[i-1].DealScore {
			t.Fatalf("deals not in descending score order at %d", i)
		}
	}
	// Cheapest price = deepest discount = best score.
	if report.Deals[0].Listing.Price != 47 {
		t.Errorf("top deal price = %v, want 47", report.Deals[0].Listing.Price)
	}
}

func TestFindDealsConfiguredThreshold(t *testing.T) {
	provider := ebay.NewMockProvider()
	provider.SoldListings = soldAt(100, 100, 100, 100, 100)
	provider.ActiveListings = []model.ListingRecord{
		activeListing("1", 75, "Used", 0), // 25% off
		activeListing("2", 60, "Used", 0), // 40% off
	}

	// The finder-level default applies when the call does not set one.
	finder := NewFinder(provider, Config{DiscountThreshold: 30})
	report, err := finder.FindDeals(context.Background(), "widget", FindOptions{})
	if err != nil {
		t.Fatalf("find deals: %v", err)
	}
	if report.DiscountThreshold != 30 {
		t.Errorf("threshold = %v, want configured 30", report.DiscountThreshold)
	}
	if len(report.Deals) != 1 || report.Deals[0].Listing.ItemID != "2" {
		t.Errorf("deals = %+v, want only the 40%%-off listing", report.Deals)
	}

	// A per-call threshold still wins.
	report, err = finder.FindDeals(context.Background(), "widget", FindOptions{DiscountThreshold: 20})
	if err != nil {
		t.Fatalf("find deals with override: %v", err)
	}
	if report.DiscountThreshold != 20 {
		t.Errorf("threshold = %v, want override 20", report.DiscountThreshold)
	}
	if len(report.Deals) != 2 {
		t.Errorf("deals = %d, want 2 at a 20%% threshold", len(report.Deals))
	}
}

func TestMarketValueSampleSizeCap(t *testing.T) {
	provider := ebay.NewMockProvider()
	sold := make([]model.ListingRecord, 150)
	for i := range sold {
		sold[i] = model.ListingRecord{ItemID: "2", Price: 100, Condition: "Used"}
	}
	provider.SoldListings = sold

	finder := NewFinder(provider, Config{})
	report, err := finder.MarketValue(context.Background(), "widget", MarketOptions{SampleSize: 1000})
	if err != nil {
		t.Fatalf("market value: %v", err)
	}
	if report.Baseline.SampleSize != MaxSampleSize {
		t.Errorf("sample size = %d, want capped at %d", report.Baseline.SampleSize, MaxSampleSize)
	}
}

func TestFindDealsProviderErrors(t *testing.T) {
	soldErr := errors.New("finding api down")
	provider := ebay.NewMockProvider()
	provider.SoldErr = soldErr

	finder := NewFinder(provider, Config{})
	if _, err := finder.FindDeals(context.Background(), "widget", FindOptions{}); !errors.Is(err, soldErr) {
		t.Fatalf("sold search error not propagated: %v", err)
	}

	activeErr := errors.New("finding api flaky")
	provider = ebay.NewMockProvider()
	provider.SoldListings = soldAt(100, 100, 100, 100, 100)
	provider.ActiveErr = activeErr

	finder = NewFinder(provider, Config{})
	if _, err := finder.FindDeals(context.Background(), "widget", FindOptions{}); !errors.Is(err, activeErr) {
		t.Fatalf("active search error not propagated: %v", err)
	}
}

func TestMarketValue(t *testing.T) {
	provider := ebay.NewMockProvider()
	provider.SoldListings = soldAt(400, 420, 450, 480, 500)

	finder := NewFinder(provider, Config{})
	report, err := finder.MarketValue(context.Background(), "nintendo switch oled", MarketOptions{
		LookbackDays: 30,
	})
	if err != nil {
		t.Fatalf("market value: %v", err)
	}
	if report.LookbackDays != 30 {
		t.Errorf("lookback = %d, want the per-call override 30", report.LookbackDays)
	}
	if report.Baseline.SampleSize != 5 {
		t.Errorf("sample size = %d, want 5", report.Baseline.SampleSize)
	}
	if report.Baseline.Median != 450 {
		t.Errorf("median = %v, want 450", report.Baseline.Median)
	}
	if report.Baseline.MinPrice != 400 || report.Baseline.MaxPrice != 500 {
		t.Errorf("range = [%v, %v], want [400, 500]",
			report.Baseline.MinPrice, report.Baseline.MaxPrice)
	}
}
