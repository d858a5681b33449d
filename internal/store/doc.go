// Package store provides durable SQLite storage for the pricetrail
// catalog and price ledger.
//
// The store owns four tables — shops, categories, products, prices —
// with cascading deletes down the shop → category → product → price
// chain. Two invariants are enforced at the storage layer rather than
// in application code:
//
//   - at most one price row per (product_id, observed_day), enforced by
//     a unique index and INSERT ... ON CONFLICT DO NOTHING (the dedup
//     gate);
//   - product identity, enforced by a unique constraint on the natural
//     key (category_id, name, packaging) and a partial unique index on
//     url for the bulk ingestion path.
//
// Both make retried ingestion batches safe without row locks.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce the cascade chain
package store
