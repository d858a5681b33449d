package query

import "github.com/roach88/pricetrail/internal/catalog"

// Movement classifies a product by the sign of its price_change.
// Products with last_price <= 0 (or no observation yet) fall outside
// every bucket.
type Movement string

const (
	// MovementAny disables movement filtering.
	MovementAny Movement = ""

	// MovementNoChange selects products whose latest observation left
	// the price unchanged (price_change = 0, last_price > 0).
	MovementNoChange Movement = "no_change"

	// MovementExpensive selects products that got more expensive
	// (price_change > 0, last_price > 0).
	MovementExpensive Movement = "expensive"

	// MovementCheaper selects products that got cheaper
	// (price_change < 0, last_price > 0).
	MovementCheaper Movement = "cheaper"
)

// Order is one sort field, optionally descending.
type Order struct {
	Field string
	Desc  bool
}

// DefaultPageSize is used when Filter.Limit is not positive.
const DefaultPageSize = 10

// Filter describes one product query. Zero-valued fields are ignored.
type Filter struct {
	ProductID  int64
	CategoryID int64
	ShopID     int64
	Movement   Movement

	// OrderBy lists sort fields in priority order. Empty means the
	// default ordering: in_stock ASC, name ASC.
	OrderBy []Order

	// Include lists relation paths to resolve on the result items,
	// validated against the per-entity allow-list (e.g. "category",
	// "prices", "category.shop").
	Include []string

	// Limit is the page size; Offset is the zero-indexed row offset.
	Limit  int
	Offset int
}

// Result is one page of products plus pagination totals.
//
// TotalItems counts all rows matching the filter, ignoring limit and
// offset. TotalPages is ceil(TotalItems / PageSize): a trailing partial
// page counts as a page. Page is Offset / PageSize, zero-indexed.
//
// The count and the slice run as separate queries; under concurrent
// writes they may disagree by the rows written in between.
type Result struct {
	Items      []catalog.Product
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}
