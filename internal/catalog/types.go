package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shop is the root of the catalog graph. Shop names are unique across
// the store; deleting a shop cascades to its categories.
type Shop struct {
	ID        int64
	Name      string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Category belongs to exactly one shop. Deleting a category cascades to
// its products.
type Category struct {
	ID        int64
	Name      string
	URL       string
	ShopID    int64
	CreatedAt time.Time
	UpdatedAt time.Time

	// Shop is populated only when the query layer resolves the
	// "shop" include path. Nil otherwise.
	Shop *Shop
}

// Product is created on first sighting of its natural key and never
// deleted by the engine. LastPrice and PriceChange are derived by the
// upsert engine from the ledger; both are null until the first
// observation lands.
type Product struct {
	ID          int64
	Name        string
	URL         string
	Image       string
	Packaging   string
	InStock     bool
	CategoryID  int64
	LastPrice   decimal.NullDecimal
	PriceChange decimal.NullDecimal
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Category and Prices are populated only when the query layer
	// resolves the corresponding include paths. Nil otherwise.
	Category *Category
	Prices   []Observation
}

// Observation is one row of the price ledger. Immutable once written:
// the store only ever inserts observations, at most one per product per
// calendar day, and deletes happen only by cascade.
type Observation struct {
	ID          int64
	Price       decimal.Decimal
	ProductID   int64
	ObservedDay Day
	CreatedAt   time.Time
}

// CategoryRecord is the bulk get-or-create input for categories.
// Records within one call are correlated back to results by URL.
type CategoryRecord struct {
	Name   string `yaml:"name" json:"name"`
	URL    string `yaml:"url" json:"url"`
	ShopID int64  `yaml:"shop_id" json:"shop_id"`
}

// SnapshotRecord is one ingestion input row, as produced by a scraper
// or feed. Price must be >= 0. InStock is an optional hint; when nil
// the engine derives availability from the price alone.
type SnapshotRecord struct {
	Name       string          `json:"name"`
	URL        string          `json:"url"`
	CategoryID int64           `json:"category_id"`
	Price      decimal.Decimal `json:"price"`
	Packaging  string          `json:"packaging,omitempty"`
	Image      string          `json:"image,omitempty"`
	InStock    *bool           `json:"in_stock,omitempty"`
}

// MaxPackagingLen bounds the packaging field, matching the column
// constraint in the store.
const MaxPackagingLen = 50
