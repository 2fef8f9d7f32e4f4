package store

import (
	"context"
	"fmt"
	"time"

	"github.com/guarzo/dealwatch/internal/model"
)

// RecordObservation appends one price observation for an item that is
// already tracked (active or not). Returns the new observation's id, or
// ErrUnknownItem if no tracked-item row exists. The existence check and the
// insert share one transaction so a concurrent delete cannot orphan the row.
func (s *Store) RecordObservation(ctx context.Context, obs *model.PriceObservation) (int64, error) {
	if obs.Timestamp.IsZero() {
		obs.Timestamp = time.Now().UTC()
	}
	if obs.Currency == "" {
		obs.Currency = "USD"
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("record observation %s: begin: %w", obs.ItemID, err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tracked_items WHERE item_id = ?`, obs.ItemID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("record observation %s: %w", obs.ItemID, err)
	}
	if exists == 0 {
		return 0, fmt.Errorf("record observation %s: %w", obs.ItemID, ErrUnknownItem)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO price_history (item_id, price, shipping_cost, currency, condition, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		obs.ItemID, obs.Price, obs.ShippingCost, obs.Currency, obs.Condition,
		formatTime(obs.Timestamp),
	)
	if err != nil {
		return 0, fmt.Errorf("record observation %s: %w", obs.ItemID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record observation %s: %w", obs.ItemID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("record observation %s: commit: %w", obs.ItemID, err)
	}
	obs.ID = id
	return id, nil
}

// Observations returns the item's observations with timestamp >= since,
// ordered by timestamp ascending (ties by insertion order). Re-querying
// restarts the sequence, so the result is restartable by construction.
func (s *Store) Observations(ctx context.Context, itemID string, since time.Time) ([]model.PriceObservation, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, item_id, price, shipping_cost, currency, condition, timestamp
		 FROM price_history
		 WHERE item_id = ? AND timestamp >= ?
		 ORDER BY timestamp ASC, id ASC`,
		itemID, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("observations %s: %w", itemID, err)
	}
	defer rows.Close()

	var observations []model.PriceObservation
	for rows.Next() {
		var obs model.PriceObservation
		var ts string
		if err := rows.Scan(&obs.ID, &obs.ItemID, &obs.Price, &obs.ShippingCost,
			&obs.Currency, &obs.Condition, &ts); err != nil {
			return nil, fmt.Errorf("observations %s: %w", itemID, err)
		}
		obs.Timestamp = parseTime(ts)
		observations = append(observations, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("observations %s: %w", itemID, err)
	}
	return observations, nil
}

// CountObservations returns the number of observations stored for an item.
func (s *Store) CountObservations(ctx context.Context, itemID string) (int, error) {
	var count int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM price_history WHERE item_id = ?`, itemID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count observations %s: %w", itemID, err)
	}
	return count, nil
}

// DeleteHistory removes all observations for an item. Deleting history for
// an item with none (or an unknown item) is a no-op, not an error.
func (s *Store) DeleteHistory(ctx context.Context, itemID string) error {
	if _, err := s.conn.ExecContext(ctx,
		`DELETE FROM price_history WHERE item_id = ?`, itemID); err != nil {
		return fmt.Errorf("delete history %s: %w", itemID, err)
	}
	return nil
}
