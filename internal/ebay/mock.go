package ebay

import (
	"context"
	"fmt"
	"time"

	"github.com/guarzo/dealwatch/internal/model"
)

// MockProvider is a configurable in-memory Provider for tests. Unset
// fields fall back to deterministic generated data.
type MockProvider struct {
	ActiveListings []model.ListingRecord
	SoldListings   []model.ListingRecord
	Details        map[string]*model.ListingRecord

	ActiveErr error
	SoldErr   error
	DetailErr error

	available bool
}

// Ensure MockProvider implements Provider.
var _ Provider = (*MockProvider)(nil)

// NewMockProvider creates a mock provider with deterministic generated data.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Details:   make(map[string]*model.ListingRecord),
		available: true,
	}
}

func (m *MockProvider) Available() bool {
	return m.available
}

// SetAvailable toggles the simulated configuration state.
func (m *MockProvider) SetAvailable(available bool) {
	m.available = available
}

// SetDetail registers a detail record keyed by its item ID.
func (m *MockProvider) SetDetail(l model.ListingRecord) {
	m.Details[l.ItemID] = &l
}

func (m *MockProvider) SearchActive(ctx context.Context, keywords string, f Filters, limit int) ([]model.ListingRecord, error) {
	if m.ActiveErr != nil {
		return nil, m.ActiveErr
	}
	if m.ActiveListings != nil {
		return truncate(m.ActiveListings, limit), nil
	}
	return m.generateListings(keywords, limit, false), nil
}

func (m *MockProvider) SearchSold(ctx context.Context, keywords string, f Filters, lookbackDays, sampleSize int) ([]model.ListingRecord, error) {
	if m.SoldErr != nil {
		return nil, m.SoldErr
	}
	if m.SoldListings != nil {
		return truncate(m.SoldListings, sampleSize), nil
	}
	return m.generateListings(keywords, sampleSize, true), nil
}

func (m *MockProvider) GetDetail(ctx context.Context, itemID string) (*model.ListingRecord, error) {
	if m.DetailErr != nil {
		return nil, m.DetailErr
	}
	if detail, ok := m.Details[itemID]; ok {
		copied := *detail
		return &copied, nil
	}
	return nil, fmt.Errorf("get detail %s: %w", itemID, ErrNotFound)
}

// generateListings produces deterministic plausible listings keyed off the
// query, so tests get stable data without fixtures.
func (m *MockProvider) generateListings(keywords string, count int, sold bool) []model.ListingRecord {
	basePrice := 50.0 + float64(len(keywords)*7%200)
	conditions := []string{"New", "Used", "Certified - Refurbished", "Used", "New"}
	variations := []float64{0.85, 0.95, 1.0, 1.1, 1.2}

	if count > 25 {
		count = 25
	}
	var listings []model.ListingRecord
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("%d%04d", 110000000000, i+1)
		if sold {
			id = fmt.Sprintf("%d%04d", 220000000000, i+1)
		}
		listings = append(listings, model.ListingRecord{
			ItemID:       id,
			Title:        fmt.Sprintf("%s - listing %d", keywords, i+1),
			Price:        basePrice * variations[i%len(variations)],
			ShippingCost: float64((i % 3) * 5),
			Currency:     "USD",
			Condition:    conditions[i%len(conditions)],
			SellerRating: 95 + float64(i%5),
			URL:          fmt.Sprintf("https://www.ebay.com/itm/%s", id),
			BuyItNow:     i%2 == 0,
			EndTime:      time.Now().Add(time.Duration(i+1) * 24 * time.Hour),
		})
	}
	return listings
}

func truncate(listings []model.ListingRecord, max int) []model.ListingRecord {
	if max > 0 && len(listings) > max {
		return listings[:max]
	}
	return listings
}
