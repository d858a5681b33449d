package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/pricetrail/internal/catalog"
	"github.com/roach88/pricetrail/internal/store"
)

// Saga phase names, used in error reporting and logs.
const (
	phaseResolveProducts = "resolve-products"
	phaseInsertPrices    = "insert-prices"
	phaseApplyDerived    = "apply-derived"
)

// BatchResult summarizes one bulk ingestion run.
type BatchResult struct {
	// BatchID is the unique identifier of this run.
	BatchID string

	// Day is the calendar day the observations were recorded under.
	Day catalog.Day

	// Total is the number of records after collapsing duplicate urls.
	Total int

	// Created is the number of products created in phase 1.
	Created int

	// Observed is the number of new ledger rows inserted in phase 2.
	Observed int

	// Skipped is the number of products whose observation for Day
	// already existed - their price-derived fields were left untouched.
	Skipped int
}

// UpsertBatch reconciles a batch of snapshot records in O(1) statements
// per phase, matched by url. It runs as a three-phase saga with
// per-phase commit:
//
//  1. resolve products by url and bulk-create the complement;
//  2. find which resolved products already have an observation for
//     today (the batch dedup gate) and bulk-insert the rest;
//  3. bulk-apply last_price, price_change, and in_stock for exactly the
//     rows phase 2 inserted, diffing against the last_price each
//     product carried before this batch.
//
// A failure in a later phase leaves earlier phases durably applied.
// Callers retry the whole batch: phase 1 is keyed on the url uniqueness
// constraint and phase 2 on the (product, day) dedup gate, so a retry
// only advances the complement and never double-applies.
//
// A single malformed record rejects the entire batch before phase 1.
func (e *Engine) UpsertBatch(ctx context.Context, records []catalog.SnapshotRecord) (BatchResult, error) {
	batchID := e.batchID.Generate()
	day := today(e.clock)
	result := BatchResult{BatchID: batchID, Day: day}

	normalized := make([]catalog.SnapshotRecord, len(records))
	for i, rec := range records {
		normalized[i] = catalog.NormalizeRecord(rec)
	}
	if err := catalog.ValidateBatch(normalized); err != nil {
		return result, &IngestError{Code: ErrCodeInvalidRecord, Message: err.Error(), BatchID: batchID, Err: err}
	}

	// Collapse by url; first record wins. The url is the bulk identity
	// key, so two records with the same url are the same product.
	byURL := make(map[string]catalog.SnapshotRecord, len(normalized))
	urls := make([]string, 0, len(normalized))
	for _, rec := range normalized {
		if _, seen := byURL[rec.URL]; seen {
			continue
		}
		byURL[rec.URL] = rec
		urls = append(urls, rec.URL)
	}
	result.Total = len(urls)

	// Phase 1: resolve by url, create the complement, re-read.
	resolved, created, err := e.resolveProducts(ctx, urls, byURL)
	if err != nil {
		return result, newPhaseError(batchID, phaseResolveProducts, err)
	}
	result.Created = created

	// Phase 2: batch dedup gate, then one insert for the complement.
	productIDs := make([]int64, len(resolved))
	for i, p := range resolved {
		productIDs[i] = p.ID
	}

	observed, err := e.store.ObservedOn(ctx, productIDs, day)
	if err != nil {
		return result, newPhaseError(batchID, phaseInsertPrices, err)
	}

	var candidates []store.PriceCandidate
	for _, p := range resolved {
		if observed[p.ID] {
			continue
		}
		candidates = append(candidates, store.PriceCandidate{
			ProductID: p.ID,
			Price:     byURL[p.URL].Price,
		})
	}

	insertedIDs, err := e.store.InsertObservations(ctx, candidates, day)
	if err != nil {
		return result, newPhaseError(batchID, phaseInsertPrices, err)
	}
	result.Observed = len(insertedIDs)
	result.Skipped = result.Total - result.Observed

	// Phase 3: derived fields for exactly the newly inserted set, in
	// one bulk update. previousLastPrice comes from the product row as
	// resolved before this batch.
	productByID := make(map[int64]catalog.Product, len(resolved))
	for _, p := range resolved {
		productByID[p.ID] = p
	}

	updates := make([]store.DerivedUpdate, 0, len(insertedIDs))
	for _, id := range insertedIDs {
		p, ok := productByID[id]
		if !ok {
			return result, newPhaseError(batchID, phaseApplyDerived,
				fmt.Errorf("ledger returned unknown product id %d", id))
		}
		rec := byURL[p.URL]

		change := rec.Price
		if p.LastPrice.Valid {
			change = rec.Price.Sub(p.LastPrice.Decimal)
		}

		updates = append(updates, store.DerivedUpdate{
			ProductID:   id,
			LastPrice:   rec.Price,
			PriceChange: change,
			InStock:     deriveInStock(rec.Price, rec.InStock),
		})
	}

	if err := e.store.ApplyDerived(ctx, updates); err != nil {
		return result, newPhaseError(batchID, phaseApplyDerived, err)
	}

	e.log.Info("batch upserted",
		zap.String("batch_id", batchID),
		zap.String("day", day.String()),
		zap.Int("total", result.Total),
		zap.Int("created", result.Created),
		zap.Int("observed", result.Observed),
		zap.Int("skipped", result.Skipped),
	)

	return result, nil
}

// resolveProducts is phase 1 of the saga: one IN query, one bulk
// insert of the complement (ON CONFLICT DO NOTHING), one re-read.
// Returns the full resolved set and the number of rows created.
func (e *Engine) resolveProducts(ctx context.Context, urls []string, byURL map[string]catalog.SnapshotRecord) ([]catalog.Product, int, error) {
	existing, err := e.store.ProductsByURLs(ctx, urls)
	if err != nil {
		return nil, 0, err
	}

	haveURL := make(map[string]bool, len(existing))
	for _, p := range existing {
		haveURL[p.URL] = true
	}

	var toCreate []catalog.Product
	for _, url := range urls {
		if haveURL[url] {
			continue
		}
		rec := byURL[url]
		toCreate = append(toCreate, catalog.Product{
			Name:       rec.Name,
			URL:        rec.URL,
			Image:      rec.Image,
			Packaging:  rec.Packaging,
			InStock:    deriveInStock(rec.Price, rec.InStock),
			CategoryID: rec.CategoryID,
		})
	}

	if len(toCreate) > 0 {
		if err := e.store.InsertProducts(ctx, toCreate); err != nil {
			return nil, 0, err
		}
	}

	resolved, err := e.store.ProductsByURLs(ctx, urls)
	if err != nil {
		return nil, 0, err
	}
	if len(resolved) != len(urls) {
		return nil, 0, fmt.Errorf("resolved %d products for %d urls", len(resolved), len(urls))
	}

	return resolved, len(resolved) - len(existing), nil
}
