package engine

import (
	"go.uber.org/zap"

	"github.com/roach88/pricetrail/internal/store"
)

// BatchIDGenerator generates unique identifiers for ingestion runs.
// Implemented by UUIDv7Generator (production); tests may provide a
// fixed implementation for deterministic output.
type BatchIDGenerator interface {
	Generate() string
}

// Engine reconciles incoming snapshots against the catalog store and
// price ledger. It holds no long-lived state; concurrency arises only
// from overlapping ingestion runs against the same store, which the
// storage-level uniqueness gates make safe.
type Engine struct {
	store   *store.Store
	clock   Clock
	batchID BatchIDGenerator
	log     *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock. Tests use this to pin the
// calendar day the dedup gate operates on.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithBatchIDGenerator overrides the batch id source.
func WithBatchIDGenerator(g BatchIDGenerator) Option {
	return func(e *Engine) { e.batchID = g }
}

// WithLogger attaches a logger. The default is a no-op logger so the
// engine stays silent when embedded as a library.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New creates an Engine backed by the given store.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		clock:   WallClock{},
		batchID: UUIDv7Generator{},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
