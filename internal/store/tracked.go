package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/guarzo/dealwatch/internal/model"
)

// SortKey selects the ordering for ListTrackedItems.
type SortKey string

const (
	SortDateAdded    SortKey = "date_added"
	SortCurrentPrice SortKey = "current_price"
	SortPriceChange  SortKey = "price_change"
)

// ValidSortKey reports whether k is a supported sort key.
func ValidSortKey(k SortKey) bool {
	switch k {
	case SortDateAdded, SortCurrentPrice, SortPriceChange:
		return true
	}
	return false
}

// TrackedItemSummary is a tracked item joined with its most recent
// observation.
type TrackedItemSummary struct {
	model.TrackedItem
	CurrentPrice float64   `json:"current_price"`
	PriceChange  float64   `json:"price_change"`
	LastChecked  time.Time `json:"last_checked"`
	Observations int       `json:"observations"`
}

const trackedColumns = `item_id, title, category, url, first_seen_price, first_seen_date,
	alert_threshold, alert_percentage, check_frequency, notes, active, created_at`

// UpsertTrackedItem inserts a tracked item. With replace=false an existing
// row with the same identifier fails with ErrAlreadyTracked and nothing is
// written; with replace=true the row is overwritten in place.
func (s *Store) UpsertTrackedItem(ctx context.Context, item *model.TrackedItem, replace bool) error {
	if item.CheckFrequency == "" {
		item.CheckFrequency = model.CheckDaily
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO tracked_items (` + trackedColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO NOTHING`
	if replace {
		query = `INSERT OR REPLACE INTO tracked_items (` + trackedColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	}

	res, err := s.conn.ExecContext(ctx, query,
		item.ItemID, item.Title, item.Category, item.URL,
		item.FirstSeenPrice, formatTime(item.FirstSeenDate),
		item.AlertThreshold, item.AlertPercentage,
		string(item.CheckFrequency), item.Notes, boolToInt(item.Active),
		formatTime(item.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert tracked item %s: %w", item.ItemID, err)
	}
	if !replace {
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("upsert tracked item %s: %w", item.ItemID, err)
		}
		if affected == 0 {
			return fmt.Errorf("upsert tracked item %s: %w", item.ItemID, ErrAlreadyTracked)
		}
	}
	return nil
}

// SeedTrackedItem inserts a new tracked item together with its initial
// price observation in one transaction, so a failure leaves no partial
// state behind.
func (s *Store) SeedTrackedItem(ctx context.Context, item *model.TrackedItem, obs *model.PriceObservation) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed tracked item %s: begin: %w", item.ItemID, err)
	}
	defer tx.Rollback()

	if item.CheckFrequency == "" {
		item.CheckFrequency = model.CheckDaily
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO tracked_items (`+trackedColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(item_id) DO NOTHING`,
		item.ItemID, item.Title, item.Category, item.URL,
		item.FirstSeenPrice, formatTime(item.FirstSeenDate),
		item.AlertThreshold, item.AlertPercentage,
		string(item.CheckFrequency), item.Notes, boolToInt(item.Active),
		formatTime(item.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("seed tracked item %s: %w", item.ItemID, err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("seed tracked item %s: %w", item.ItemID, err)
	} else if affected == 0 {
		return fmt.Errorf("seed tracked item %s: %w", item.ItemID, ErrAlreadyTracked)
	}

	if obs != nil {
		if obs.Timestamp.IsZero() {
			obs.Timestamp = item.FirstSeenDate
		}
		if obs.Currency == "" {
			obs.Currency = "USD"
		}
		result, err := tx.ExecContext(ctx,
			`INSERT INTO price_history (item_id, price, shipping_cost, currency, condition, timestamp)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			item.ItemID, obs.Price, obs.ShippingCost, obs.Currency, obs.Condition,
			formatTime(obs.Timestamp),
		)
		if err != nil {
			return fmt.Errorf("seed tracked item %s: initial observation: %w", item.ItemID, err)
		}
		obs.ID, _ = result.LastInsertId()
		obs.ItemID = item.ItemID
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed tracked item %s: commit: %w", item.ItemID, err)
	}
	return nil
}

// UpdateTracking reactivates an existing tracked item and refreshes its
// alert thresholds, check frequency, and notes. The row identity and its
// history are untouched.
func (s *Store) UpdateTracking(ctx context.Context, itemID string, alertThreshold, alertPercentage float64, frequency model.CheckFrequency, notes string) error {
	if frequency == "" {
		frequency = model.CheckDaily
	}
	res, err := s.conn.ExecContext(ctx,
		`UPDATE tracked_items
		 SET active = 1, alert_threshold = ?, alert_percentage = ?, check_frequency = ?, notes = ?
		 WHERE item_id = ?`,
		alertThreshold, alertPercentage, string(frequency), notes, itemID,
	)
	if err != nil {
		return fmt.Errorf("update tracking %s: %w", itemID, err)
	}
	return requireRow(res, "update tracking", itemID)
}

// GetTrackedItem fetches one tracked item, active or not.
func (s *Store) GetTrackedItem(ctx context.Context, itemID string) (*model.TrackedItem, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+trackedColumns+` FROM tracked_items WHERE item_id = ?`, itemID)
	item, err := scanTrackedItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get tracked item %s: %w", itemID, ErrUnknownItem)
	}
	if err != nil {
		return nil, fmt.Errorf("get tracked item %s: %w", itemID, err)
	}
	return item, nil
}

// SetActive toggles the active flag.
func (s *Store) SetActive(ctx context.Context, itemID string, active bool) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE tracked_items SET active = ? WHERE item_id = ?`, boolToInt(active), itemID)
	if err != nil {
		return fmt.Errorf("set active %s: %w", itemID, err)
	}
	return requireRow(res, "set active", itemID)
}

// DeleteItem removes the tracked item row and all of its observations.
func (s *Store) DeleteItem(ctx context.Context, itemID string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete item %s: begin: %w", itemID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM price_history WHERE item_id = ?`, itemID); err != nil {
		return fmt.Errorf("delete item %s: history: %w", itemID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tracked_items WHERE item_id = ?`, itemID); err != nil {
		return fmt.Errorf("delete item %s: %w", itemID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete item %s: commit: %w", itemID, err)
	}
	return nil
}

// ListTrackedItems returns tracked items joined with their most recent
// observation, sorted by sortKey. The most recent observation is the one
// with the greatest timestamp; ties break toward the greatest row id.
func (s *Store) ListTrackedItems(ctx context.Context, activeOnly bool, sortKey SortKey) ([]TrackedItemSummary, error) {
	query := `SELECT ` + trackedColumns + ` FROM tracked_items`
	if activeOnly {
		query += ` WHERE active = 1`
	}

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tracked items: %w", err)
	}
	defer rows.Close()

	var summaries []TrackedItemSummary
	for rows.Next() {
		item, err := scanTrackedItem(rows)
		if err != nil {
			return nil, fmt.Errorf("list tracked items: %w", err)
		}
		summaries = append(summaries, TrackedItemSummary{TrackedItem: *item})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tracked items: %w", err)
	}

	for i := range summaries {
		if err := s.fillLatest(ctx, &summaries[i]); err != nil {
			return nil, err
		}
	}

	sortSummaries(summaries, sortKey)
	return summaries, nil
}

func (s *Store) fillLatest(ctx context.Context, summary *TrackedItemSummary) error {
	row := s.conn.QueryRowContext(ctx,
		`SELECT price, timestamp, (SELECT COUNT(*) FROM price_history WHERE item_id = ?)
		 FROM price_history WHERE item_id = ?
		 ORDER BY timestamp DESC, id DESC LIMIT 1`,
		summary.ItemID, summary.ItemID)

	var price float64
	var ts string
	var count int
	err := row.Scan(&price, &ts, &count)
	if errors.Is(err, sql.ErrNoRows) {
		summary.CurrentPrice = summary.FirstSeenPrice
		return nil
	}
	if err != nil {
		return fmt.Errorf("latest observation %s: %w", summary.ItemID, err)
	}

	summary.CurrentPrice = price
	summary.PriceChange = price - summary.FirstSeenPrice
	summary.LastChecked = parseTime(ts)
	summary.Observations = count
	return nil
}

func sortSummaries(summaries []TrackedItemSummary, key SortKey) {
	switch key {
	case SortCurrentPrice:
		sort.Slice(summaries, func(i, j int) bool {
			return summaries[i].CurrentPrice < summaries[j].CurrentPrice
		})
	case SortPriceChange:
		sort.Slice(summaries, func(i, j int) bool {
			return summaries[i].PriceChange < summaries[j].PriceChange
		})
	default: // SortDateAdded, newest first
		sort.Slice(summaries, func(i, j int) bool {
			return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
		})
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrackedItem(row rowScanner) (*model.TrackedItem, error) {
	var item model.TrackedItem
	var firstSeen, createdAt, frequency string
	var active int
	err := row.Scan(
		&item.ItemID, &item.Title, &item.Category, &item.URL,
		&item.FirstSeenPrice, &firstSeen,
		&item.AlertThreshold, &item.AlertPercentage,
		&frequency, &item.Notes, &active, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	item.FirstSeenDate = parseTime(firstSeen)
	item.CreatedAt = parseTime(createdAt)
	item.CheckFrequency = model.CheckFrequency(frequency)
	item.Active = active != 0
	return &item, nil
}

func requireRow(res sql.Result, op, itemID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, itemID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %s: %w", op, itemID, ErrUnknownItem)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
