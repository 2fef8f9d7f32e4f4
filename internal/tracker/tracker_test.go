package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/guarzo/dealwatch/internal/analysis"
	"github.com/guarzo/dealwatch/internal/ebay"
	"github.com/guarzo/dealwatch/internal/model"
	"github.com/guarzo/dealwatch/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store, *ebay.MockProvider) {
	t.Helper()
	st, err := store.Open(store.DefaultConfig(":memory:"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	provider := ebay.NewMockProvider()
	return NewService(st, provider), st, provider
}

func detailListing(itemID string, price float64) model.ListingRecord {
	return model.ListingRecord{
		ItemID:       itemID,
		Title:        "Nintendo Switch OLED Console",
		Price:        price,
		ShippingCost: 0,
		Currency:     "USD",
		Condition:    "Used",
		URL:          "https://www.ebay.com/itm/" + itemID,
	}
}

func TestTrackNewItem(t *testing.T) {
	svc, st, provider := newTestService(t)
	ctx := context.Background()

	provider.SetDetail(detailListing("110000000001", 249.99))

	result, err := svc.Track(ctx, "110000000001", TrackOptions{
		AlertThreshold: 200,
		CheckFrequency: model.CheckDaily,
		Notes:          "birthday gift",
	})
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if result.Reactivated {
		t.Error("fresh subscription reported as reactivated")
	}
	if result.Item.FirstSeenPrice != 249.99 {
		t.Errorf("first seen price = %v, want 249.99", result.Item.FirstSeenPrice)
	}
	if !result.Item.Active {
		t.Error("new subscription should be active")
	}

	// The initial observation is seeded together with the row.
	count, err := st.CountObservations(ctx, "110000000001")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("observation count = %d, want 1", count)
	}
}

func TestTrackUnknownUpstreamItem(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	// The mock has no detail registered for this id, so the provider
	// reports NotFound. No partial row may be left behind.
	_, err := svc.Track(ctx, "999999999999", TrackOptions{})
	if !errors.Is(err, ebay.ErrNotFound) {
		t.Fatalf("error = %v, want ebay.ErrNotFound", err)
	}
	if _, err := st.GetTrackedItem(ctx, "999999999999"); !errors.Is(err, store.ErrUnknownItem) {
		t.Error("failed track left a tracked-item row behind")
	}
}

func TestTrackInvalidFrequency(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Track(context.Background(), "110000000001", TrackOptions{CheckFrequency: "fortnightly"})
	if err == nil {
		t.Fatal("invalid frequency accepted")
	}
}

func TestRetrackReactivates(t *testing.T) {
	svc, st, provider := newTestService(t)
	ctx := context.Background()

	provider.SetDetail(detailListing("110000000002", 100))
	if _, err := svc.Track(ctx, "110000000002", TrackOptions{}); err != nil {
		t.Fatalf("first track: %v", err)
	}
	if _, err := svc.Untrack(ctx, "110000000002", false); err != nil {
		t.Fatalf("untrack: %v", err)
	}

	result, err := svc.Track(ctx, "110000000002", TrackOptions{
		AlertThreshold: 80,
		CheckFrequency: model.CheckHourly,
	})
	if err != nil {
		t.Fatalf("re-track: %v", err)
	}
	if !result.Reactivated {
		t.Error("re-tracking a deactivated item should report reactivation")
	}
	if !result.Item.Active {
		t.Error("re-tracked item should be active")
	}
	if result.Item.AlertThreshold != 80 || result.Item.CheckFrequency != model.CheckHourly {
		t.Errorf("options not refreshed: threshold=%v frequency=%q",
			result.Item.AlertThreshold, result.Item.CheckFrequency)
	}

	// No duplicate row or duplicate seed observation.
	all, err := st.ListTrackedItems(ctx, false, store.SortDateAdded)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("tracked rows = %d, want 1", len(all))
	}
	count, err := st.CountObservations(ctx, "110000000002")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("observation count = %d, want 1 (no duplicate seed)", count)
	}
}

func TestCheckPriceRecordsAndAlerts(t *testing.T) {
	svc, st, provider := newTestService(t)
	ctx := context.Background()

	provider.SetDetail(detailListing("110000000003", 100))
	if _, err := svc.Track(ctx, "110000000003", TrackOptions{
		AlertThreshold:  85,
		AlertPercentage: 10,
	}); err != nil {
		t.Fatalf("track: %v", err)
	}

	// Price drops to 80: at/below the $85 threshold and a 20% drop.
	provider.SetDetail(detailListing("110000000003", 80))
	result, err := svc.CheckPrice(ctx, "110000000003")
	if err != nil {
		t.Fatalf("check price: %v", err)
	}
	if !result.Alert {
		t.Fatal("expected an alert at price 80")
	}
	if len(result.AlertReasons) != 2 {
		t.Errorf("alert reasons = %v, want both conditions", result.AlertReasons)
	}
	if result.DropFromFirst != 20 {
		t.Errorf("drop from first = %v, want 20", result.DropFromFirst)
	}
	if result.DropPercentage != 20 {
		t.Errorf("drop percentage = %v, want 20", result.DropPercentage)
	}
	if result.Observation.Price != 80 {
		t.Errorf("observation price = %v, want 80", result.Observation.Price)
	}

	count, err := st.CountObservations(ctx, "110000000003")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("observation count = %d, want 2", count)
	}

	// A small rise triggers nothing but still reports the movement.
	provider.SetDetail(detailListing("110000000003", 95))
	result, err = svc.CheckPrice(ctx, "110000000003")
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if result.Alert {
		t.Errorf("unexpected alert at price 95: %v", result.AlertReasons)
	}
	if result.DropPercentage != 5 {
		t.Errorf("drop percentage = %v, want 5", result.DropPercentage)
	}
}

func TestCheckPriceUnknownItem(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CheckPrice(context.Background(), "999999999999")
	if !errors.Is(err, store.ErrUnknownItem) {
		t.Fatalf("error = %v, want store.ErrUnknownItem", err)
	}
}

func TestHistoryWindow(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	itemID := "110000000004"
	now := time.Now().UTC()
	item := &model.TrackedItem{
		ItemID:         itemID,
		Title:          "Tracked item",
		FirstSeenPrice: 120,
		FirstSeenDate:  now.AddDate(0, 0, -35),
		CheckFrequency: model.CheckDaily,
		Active:         true,
		CreatedAt:      now.AddDate(0, 0, -35),
	}
	if err := st.UpsertTrackedItem(ctx, item, false); err != nil {
		t.Fatalf("insert: %v", err)
	}
	for _, pt := range []struct {
		price   float64
		daysAgo int
	}{
		{120, 35}, // outside a 30-day window
		{110, 10},
		{105, 2},
	} {
		obs := model.PriceObservation{ItemID: itemID, Price: pt.price,
			Timestamp: now.AddDate(0, 0, -pt.daysAgo)}
		if _, err := st.RecordObservation(ctx, &obs); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	report, err := svc.History(ctx, itemID, 30, true)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if report.Days != 30 {
		t.Errorf("days = %d, want 30", report.Days)
	}
	if len(report.Observations) != 2 {
		t.Fatalf("window returned %d observations, want 2", len(report.Observations))
	}
	if report.Observations[0].Price != 110 {
		t.Errorf("first in-window price = %v, want 110", report.Observations[0].Price)
	}
	if report.Stats == nil {
		t.Fatal("stats requested but missing")
	}
	// Stats cover only the windowed points: 110 -> 105.
	if report.Stats.DataPoints != 2 {
		t.Errorf("stats data points = %d, want 2", report.Stats.DataPoints)
	}
	if report.Stats.Highest != 110 {
		t.Errorf("stats highest = %v, want 110 (day-35 point excluded)", report.Stats.Highest)
	}
	if report.Stats.Trend != analysis.TrendDecreasing {
		t.Errorf("trend = %q, want decreasing", report.Stats.Trend)
	}
}

func TestHistoryEmptyWindow(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	itemID := "110000000005"
	item := &model.TrackedItem{ItemID: itemID, FirstSeenPrice: 10,
		FirstSeenDate: time.Now().UTC(), Active: true}
	if err := st.UpsertTrackedItem(ctx, item, false); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Without stats an empty window is just an empty series.
	report, err := svc.History(ctx, itemID, 7, false)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(report.Observations) != 0 {
		t.Errorf("expected empty series, got %d", len(report.Observations))
	}

	// With stats it is an insufficient-data error.
	if _, err := svc.History(ctx, itemID, 7, true); !errors.Is(err, analysis.ErrInsufficientData) {
		t.Fatalf("error = %v, want analysis.ErrInsufficientData", err)
	}
}

func TestUntrack(t *testing.T) {
	svc, st, provider := newTestService(t)
	ctx := context.Background()

	provider.SetDetail(detailListing("110000000006", 60))
	if _, err := svc.Track(ctx, "110000000006", TrackOptions{}); err != nil {
		t.Fatalf("track: %v", err)
	}

	// Default untrack deactivates but preserves everything.
	result, err := svc.Untrack(ctx, "110000000006", false)
	if err != nil {
		t.Fatalf("untrack: %v", err)
	}
	if result.HistoryDeleted {
		t.Error("history reported deleted on a preserve untrack")
	}
	item, err := st.GetTrackedItem(ctx, "110000000006")
	if err != nil {
		t.Fatalf("get after untrack: %v", err)
	}
	if item.Active {
		t.Error("item still active after untrack")
	}
	count, err := st.CountObservations(ctx, "110000000006")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("history not preserved: %d observations", count)
	}

	// Purge removes the row and its observations.
	result, err = svc.Untrack(ctx, "110000000006", true)
	if err != nil {
		t.Fatalf("purge untrack: %v", err)
	}
	if !result.HistoryDeleted {
		t.Error("purge untrack did not report history deletion")
	}
	if _, err := st.GetTrackedItem(ctx, "110000000006"); !errors.Is(err, store.ErrUnknownItem) {
		t.Error("item row survived purge")
	}

	// Untracking an unknown item is an error either way.
	if _, err := svc.Untrack(ctx, "999999999999", false); !errors.Is(err, store.ErrUnknownItem) {
		t.Errorf("error = %v, want store.ErrUnknownItem", err)
	}
}

func TestListRejectsBadSortKey(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.List(context.Background(), true, "alphabetical"); err == nil {
		t.Fatal("invalid sort key accepted")
	}
}
