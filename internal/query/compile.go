package query

import (
	"strings"
)

const productColumns = "id, name, url, image, packaging, in_stock, category_id, last_price, price_change, created_at, updated_at"

// Compile converts a validated filter into the (count, slice) SQL pair.
// Returns (countSQL, sliceSQL, params): both statements share the same
// WHERE clause and parameter list; the slice statement additionally
// carries ORDER BY, LIMIT, and OFFSET with two extra trailing params.
//
// All values are parameterized, never interpolated. Every slice query
// ends with an `id ASC` tiebreaker so paging is deterministic even when
// the requested sort fields tie.
func Compile(f Filter) (countSQL, sliceSQL string, params []any) {
	where, params := compilePredicates(f)

	countSQL = "SELECT COUNT(*) FROM products" + where
	sliceSQL = "SELECT " + productColumns + " FROM products" + where +
		" ORDER BY " + compileOrder(f.OrderBy) +
		" LIMIT ? OFFSET ?"

	return countSQL, sliceSQL, params
}

// compilePredicates builds the WHERE clause and its parameters.
func compilePredicates(f Filter) (string, []any) {
	var parts []string
	var params []any

	if f.ProductID > 0 {
		parts = append(parts, "id = ?")
		params = append(params, f.ProductID)
	}
	if f.CategoryID > 0 {
		parts = append(parts, "category_id = ?")
		params = append(params, f.CategoryID)
	}
	if f.ShopID > 0 {
		// Subquery instead of a join keeps the count and slice
		// statements structurally identical.
		parts = append(parts, "category_id IN (SELECT id FROM categories WHERE shop_id = ?)")
		params = append(params, f.ShopID)
	}

	switch f.Movement {
	case MovementNoChange:
		parts = append(parts, "price_change = 0 AND last_price > 0")
	case MovementExpensive:
		parts = append(parts, "price_change > 0 AND last_price > 0")
	case MovementCheaper:
		parts = append(parts, "price_change < 0 AND last_price > 0")
	}

	if len(parts) == 0 {
		return "", params
	}
	return " WHERE " + strings.Join(parts, " AND "), params
}

// compileOrder builds the ORDER BY clause. Fields were validated
// against the allow-list, so direct concatenation is safe here.
func compileOrder(orders []Order) string {
	if len(orders) == 0 {
		return "in_stock ASC, name ASC, id ASC"
	}

	var parts []string
	for _, ord := range orders {
		dir := " ASC"
		if ord.Desc {
			dir = " DESC"
		}
		parts = append(parts, ord.Field+dir)
	}
	parts = append(parts, "id ASC")
	return strings.Join(parts, ", ")
}
