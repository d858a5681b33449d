package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/pricetrail/internal/catalog"
)

// PriceCandidate is one (product, price) pair offered to the ledger for
// a given day by the batch upsert path.
type PriceCandidate struct {
	ProductID int64
	Price     decimal.Decimal
}

// RecordObservation appends a price observation for a product on the
// given day. Returns the observation, the signed delta against the most
// recent prior observation (the raw price when no history exists), and
// whether a new row was inserted.
//
// At most one observation per (product, day) can exist. The check runs
// inside a transaction and the insert uses
// ON CONFLICT(product_id, observed_day) DO NOTHING, so a concurrent
// writer racing through the same day loses cleanly: the loser sees
// inserted=false and a zero delta, exactly as if the row had existed
// up front.
func (s *Store) RecordObservation(ctx context.Context, productID int64, price decimal.Decimal, day catalog.Day) (catalog.Observation, decimal.Decimal, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return catalog.Observation{}, decimal.Zero, false, fmt.Errorf("record observation: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	// Today already recorded?
	existing, found, err := observationOn(ctx, tx, productID, day)
	if err != nil {
		return catalog.Observation{}, decimal.Zero, false, fmt.Errorf("record observation: %w", err)
	}
	if found {
		if err := tx.Commit(); err != nil {
			return catalog.Observation{}, decimal.Zero, false, fmt.Errorf("record observation: commit: %w", err)
		}
		return existing, decimal.Zero, false, nil
	}

	// Signed delta against the most recent prior observation.
	delta := price
	var lastPrice decimal.NullDecimal
	err = tx.QueryRowContext(ctx, `
		SELECT price FROM prices
		WHERE product_id = ?
		ORDER BY observed_day DESC, id DESC
		LIMIT 1
	`, productID).Scan(&lastPrice)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return catalog.Observation{}, decimal.Zero, false, fmt.Errorf("record observation: last price: %w", err)
	}
	if lastPrice.Valid {
		delta = price.Sub(lastPrice.Decimal)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO prices (price, product_id, observed_day)
		VALUES (?, ?, ?)
		ON CONFLICT(product_id, observed_day) DO NOTHING
	`, price, productID, day.String())
	if err != nil {
		return catalog.Observation{}, decimal.Zero, false, fmt.Errorf("record observation: insert: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return catalog.Observation{}, decimal.Zero, false, fmt.Errorf("record observation: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Lost a race against a concurrent writer on the same day.
		existing, _, err := observationOn(ctx, tx, productID, day)
		if err != nil {
			return catalog.Observation{}, decimal.Zero, false, fmt.Errorf("record observation: select existing: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return catalog.Observation{}, decimal.Zero, false, fmt.Errorf("record observation: commit: %w", err)
		}
		return existing, decimal.Zero, false, nil
	}

	obs, _, err := observationOn(ctx, tx, productID, day)
	if err != nil {
		return catalog.Observation{}, decimal.Zero, false, fmt.Errorf("record observation: re-read: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return catalog.Observation{}, decimal.Zero, false, fmt.Errorf("record observation: commit: %w", err)
	}
	return obs, delta, true, nil
}

// ObservedOn returns the subset of productIDs that already hold a price
// row for the given day. One query - this is the batch form of the
// dedup gate.
func (s *Store) ObservedOn(ctx context.Context, productIDs []int64, day catalog.Day) (map[int64]bool, error) {
	observed := map[int64]bool{}
	if len(productIDs) == 0 {
		return observed, nil
	}

	args := make([]any, 0, len(productIDs)+1)
	args = append(args, day.String())
	for _, id := range productIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id FROM prices
		WHERE observed_day = ? AND product_id IN (`+placeholders(len(productIDs))+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("observed on: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("observed on: scan: %w", err)
		}
		observed[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("observed on: iterate: %w", err)
	}
	return observed, nil
}

// InsertObservations bulk-inserts price rows for the given candidates
// in one statement and returns the product ids that actually received a
// new row. ON CONFLICT DO NOTHING closes the race window between the
// ObservedOn check and this insert: candidates that lost against a
// concurrent batch are simply absent from the returned set.
func (s *Store) InsertObservations(ctx context.Context, candidates []PriceCandidate, day catalog.Day) ([]int64, error) {
	if len(candidates) == 0 {
		return []int64{}, nil
	}

	var b strings.Builder
	b.WriteString(`INSERT INTO prices (price, product_id, observed_day) VALUES `)
	args := make([]any, 0, len(candidates)*3)
	for i, c := range candidates {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?)")
		args = append(args, c.Price, c.ProductID, day.String())
	}
	b.WriteString(" ON CONFLICT(product_id, observed_day) DO NOTHING RETURNING product_id")

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("insert observations: %w", err)
	}
	defer rows.Close()

	inserted := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("insert observations: scan: %w", err)
		}
		inserted = append(inserted, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("insert observations: iterate: %w", err)
	}
	return inserted, nil
}

// History returns a product's observations newest-first. limit <= 0
// means no limit.
func (s *Store) History(ctx context.Context, productID int64, limit int) ([]catalog.Observation, error) {
	query := `
		SELECT id, price, product_id, observed_day, created_at
		FROM prices
		WHERE product_id = ?
		ORDER BY observed_day DESC, id DESC`
	args := []any{productID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	return collectObservations(rows)
}

// ObservationsFor returns the observations for a set of products in one
// query, newest-first per product. Used by the query layer to resolve
// the "prices" include path without per-row round trips.
func (s *Store) ObservationsFor(ctx context.Context, productIDs []int64) (map[int64][]catalog.Observation, error) {
	result := map[int64][]catalog.Observation{}
	if len(productIDs) == 0 {
		return result, nil
	}

	args := make([]any, len(productIDs))
	for i, id := range productIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, price, product_id, observed_day, created_at
		FROM prices
		WHERE product_id IN (`+placeholders(len(productIDs))+`)
		ORDER BY product_id ASC, observed_day DESC, id DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("observations for: %w", err)
	}
	defer rows.Close()

	obs, err := collectObservations(rows)
	if err != nil {
		return nil, err
	}
	for _, o := range obs {
		result[o.ProductID] = append(result[o.ProductID], o)
	}
	return result, nil
}

// CountObservations returns the number of ledger rows for a product.
// Used by dedup tests; day-level uniqueness means this equals the
// number of distinct observed days.
func (s *Store) CountObservations(ctx context.Context, productID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM prices WHERE product_id = ?
	`, productID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count observations: %w", err)
	}
	return count, nil
}

// observationOn fetches the observation for (productID, day) inside tx.
func observationOn(ctx context.Context, tx *sql.Tx, productID int64, day catalog.Day) (catalog.Observation, bool, error) {
	var o catalog.Observation
	var dayStr string
	err := tx.QueryRowContext(ctx, `
		SELECT id, price, product_id, observed_day, created_at
		FROM prices
		WHERE product_id = ? AND observed_day = ?
	`, productID, day.String()).Scan(&o.ID, &o.Price, &o.ProductID, &dayStr, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Observation{}, false, nil
	}
	if err != nil {
		return catalog.Observation{}, false, err
	}
	o.ObservedDay = catalog.Day(dayStr)
	return o, true, nil
}

// collectObservations drains rows selecting the prices columns.
func collectObservations(rows *sql.Rows) ([]catalog.Observation, error) {
	obs := []catalog.Observation{}
	for rows.Next() {
		var o catalog.Observation
		var dayStr string
		if err := rows.Scan(&o.ID, &o.Price, &o.ProductID, &dayStr, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		o.ObservedDay = catalog.Day(dayStr)
		obs = append(obs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}
	return obs, nil
}
