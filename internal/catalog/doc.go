// Package catalog defines the domain types shared by the store, engine,
// and query layers: the Shop → Category → Product identity graph, the
// append-only Price observation, and the snapshot records accepted by
// the ingestion paths.
//
// The package is deliberately free of persistence concerns. Types here
// are plain structs; identity rules (natural keys) and input validation
// live here so every consumer agrees on what "the same product" means.
package catalog
