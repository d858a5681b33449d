// Package engine implements the upsert engine: reconciliation of
// incoming price snapshots against the catalog store and the price
// ledger.
//
// Two ingestion paths exist:
//
//   - UpsertProduct: single item, matched by the natural key
//     (category, name, packaging);
//   - UpsertBatch: bulk, matched by url, executed as a three-phase
//     saga (create missing products, dedup and insert observations,
//     bulk-apply derived fields) with per-phase commit.
//
// The saga deliberately trades whole-batch atomicity for retryability:
// every phase is idempotent thanks to the storage-level uniqueness
// gates, so a caller that sees a failure re-runs the whole batch and
// only the remaining complement advances.
//
// The engine holds no long-lived in-process state. The calendar day
// used by the dedup gate comes from an injected Clock so same-day
// semantics are testable.
package engine
