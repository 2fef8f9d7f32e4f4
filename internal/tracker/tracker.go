// Package tracker composes the listing provider, the price store, and the
// trend analyzer into the item tracking operations: track, check, history,
// untrack, list.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guarzo/dealwatch/internal/analysis"
	"github.com/guarzo/dealwatch/internal/ebay"
	"github.com/guarzo/dealwatch/internal/model"
	"github.com/guarzo/dealwatch/internal/store"
)

// Service orchestrates price tracking. It never delivers notifications;
// alert evaluation only reports whether conditions are met.
type Service struct {
	store    *store.Store
	provider ebay.Provider
}

// NewService builds a tracking service over the given store and provider.
func NewService(st *store.Store, provider ebay.Provider) *Service {
	return &Service{store: st, provider: provider}
}

// TrackOptions are the user-settable attributes of a subscription.
type TrackOptions struct {
	AlertThreshold  float64
	AlertPercentage float64
	CheckFrequency  model.CheckFrequency
	Notes           string
}

// TrackResult reports the outcome of a Track call.
type TrackResult struct {
	Item        model.TrackedItem `json:"item"`
	Reactivated bool              `json:"reactivated"`
}

// Track subscribes to an item's price. For an unknown item the current
// detail is fetched from the provider and a tracked-item row plus its
// initial observation are seeded atomically; provider NotFound propagates
// and nothing is written. For an already-tracked item (active or not) the
// row is reactivated and its thresholds, frequency, and notes updated
// without creating a duplicate.
func (s *Service) Track(ctx context.Context, itemID string, opts TrackOptions) (*TrackResult, error) {
	if opts.CheckFrequency != "" && !model.ValidFrequency(opts.CheckFrequency) {
		return nil, fmt.Errorf("track %s: invalid check frequency %q", itemID, opts.CheckFrequency)
	}

	existing, err := s.store.GetTrackedItem(ctx, itemID)
	switch {
	case err == nil:
		if err := s.store.UpdateTracking(ctx, itemID,
			opts.AlertThreshold, opts.AlertPercentage, opts.CheckFrequency, opts.Notes); err != nil {
			return nil, fmt.Errorf("track %s: %w", itemID, err)
		}
		updated, err := s.store.GetTrackedItem(ctx, itemID)
		if err != nil {
			return nil, fmt.Errorf("track %s: %w", itemID, err)
		}
		return &TrackResult{Item: *updated, Reactivated: !existing.Active}, nil

	case errors.Is(err, store.ErrUnknownItem):
		// New subscription; seed from current listing detail.
	default:
		return nil, fmt.Errorf("track %s: %w", itemID, err)
	}

	detail, err := s.provider.GetDetail(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("track %s: %w", itemID, err)
	}

	now := time.Now().UTC()
	item := &model.TrackedItem{
		ItemID:          detail.ItemID,
		Title:           detail.Title,
		URL:             detail.URL,
		FirstSeenPrice:  detail.Price,
		FirstSeenDate:   now,
		AlertThreshold:  opts.AlertThreshold,
		AlertPercentage: opts.AlertPercentage,
		CheckFrequency:  opts.CheckFrequency,
		Notes:           opts.Notes,
		Active:          true,
		CreatedAt:       now,
	}
	obs := &model.PriceObservation{
		ItemID:       detail.ItemID,
		Price:        detail.Price,
		ShippingCost: detail.ShippingCost,
		Currency:     detail.Currency,
		Condition:    detail.Condition,
		Timestamp:    now,
	}
	if err := s.store.SeedTrackedItem(ctx, item, obs); err != nil {
		return nil, fmt.Errorf("track %s: %w", itemID, err)
	}
	return &TrackResult{Item: *item}, nil
}

// CheckResult reports one manual price check.
type CheckResult struct {
	Item           model.TrackedItem      `json:"item"`
	Observation    model.PriceObservation `json:"observation"`
	Alert          bool                   `json:"alert_triggered"`
	AlertReasons   []string               `json:"alert_reasons,omitempty"`
	DropFromFirst  float64                `json:"drop_from_first"`
	DropPercentage float64                `json:"drop_percentage"`
}

// CheckPrice fetches the item's current detail, appends one observation,
// and evaluates the alert conditions. It performs no delivery; the caller
// decides what to do with a triggered alert.
func (s *Service) CheckPrice(ctx context.Context, itemID string) (*CheckResult, error) {
	item, err := s.store.GetTrackedItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("check price %s: %w", itemID, err)
	}

	detail, err := s.provider.GetDetail(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("check price %s: %w", itemID, err)
	}

	obs := &model.PriceObservation{
		ItemID:       itemID,
		Price:        detail.Price,
		ShippingCost: detail.ShippingCost,
		Currency:     detail.Currency,
		Condition:    detail.Condition,
		Timestamp:    time.Now().UTC(),
	}
	if _, err := s.store.RecordObservation(ctx, obs); err != nil {
		return nil, fmt.Errorf("check price %s: %w", itemID, err)
	}

	result := &CheckResult{Item: *item, Observation: *obs}
	evaluateAlerts(item, detail.Price, result)
	return result, nil
}

// HistoryReport carries a raw observation series plus optional trend stats
// for the same window.
type HistoryReport struct {
	Item         model.TrackedItem        `json:"item"`
	Days         int                      `json:"days"`
	Observations []model.PriceObservation `json:"price_history"`
	Stats        *analysis.TrendStats     `json:"stats,omitempty"`
}

// History returns observations from the last `days` days. With
// includeStats, the trend analyzer runs over the same window, so points
// outside it affect neither the series nor the stats. An empty window
// returns an empty series and, when stats were requested,
// analysis.ErrInsufficientData.
func (s *Service) History(ctx context.Context, itemID string, days int, includeStats bool) (*HistoryReport, error) {
	if days <= 0 {
		days = 30
	}

	item, err := s.store.GetTrackedItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", itemID, err)
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	observations, err := s.store.Observations(ctx, itemID, since)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", itemID, err)
	}

	report := &HistoryReport{Item: *item, Days: days, Observations: observations}
	if includeStats {
		points := make([]analysis.PricePoint, len(observations))
		for i, obs := range observations {
			points[i] = analysis.PricePoint{Timestamp: obs.Timestamp, Price: obs.Price}
		}
		stats, err := analysis.AnalyzeTrend(points)
		if err != nil {
			return nil, fmt.Errorf("history %s: %w", itemID, err)
		}
		report.Stats = stats
	}
	return report, nil
}

// UntrackResult reports the outcome of an Untrack call.
type UntrackResult struct {
	ItemID         string `json:"item_id"`
	HistoryDeleted bool   `json:"history_deleted"`
}

// Untrack deactivates a subscription. History is preserved unless
// deleteHistory is set, in which case the observations and the tracked-item
// row itself are purged.
func (s *Service) Untrack(ctx context.Context, itemID string, deleteHistory bool) (*UntrackResult, error) {
	if deleteHistory {
		if _, err := s.store.GetTrackedItem(ctx, itemID); err != nil {
			return nil, fmt.Errorf("untrack %s: %w", itemID, err)
		}
		if err := s.store.DeleteItem(ctx, itemID); err != nil {
			return nil, fmt.Errorf("untrack %s: %w", itemID, err)
		}
		return &UntrackResult{ItemID: itemID, HistoryDeleted: true}, nil
	}

	if err := s.store.SetActive(ctx, itemID, false); err != nil {
		return nil, fmt.Errorf("untrack %s: %w", itemID, err)
	}
	return &UntrackResult{ItemID: itemID}, nil
}

// List returns tracked items joined with their latest observation.
func (s *Service) List(ctx context.Context, activeOnly bool, sortKey store.SortKey) ([]store.TrackedItemSummary, error) {
	if sortKey != "" && !store.ValidSortKey(sortKey) {
		return nil, fmt.Errorf("list tracked items: invalid sort key %q", sortKey)
	}
	return s.store.ListTrackedItems(ctx, activeOnly, sortKey)
}
