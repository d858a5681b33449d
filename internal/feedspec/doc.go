// Package feedspec loads and validates feed definitions: the shops and
// categories an ingestion source scrapes, declared in YAML and checked
// against an embedded CUE schema before anything touches the store.
//
// Validation collects all schema errors rather than stopping at the
// first, so a feed author sees every problem in one pass.
package feedspec
