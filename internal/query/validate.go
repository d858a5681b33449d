package query

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports a filter rejected before any SQL was built.
// Unknown include paths and unknown order fields never reach the store.
type ValidationError struct {
	Field   string // "include" or "order_by"
	Value   string // the offending value
	Allowed []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: must be one of %s",
		e.Field, e.Value, strings.Join(e.Allowed, ", "))
}

// includePaths is the explicit allow-list of navigable relation paths
// for products. Relation names are enumerated, never resolved by
// reflection: an unknown path is a validation error, not a query error.
var includePaths = map[string]bool{
	"category":      true,
	"prices":        true,
	"category.shop": true,
}

// orderFields is the allow-list of sortable product columns.
var orderFields = map[string]bool{
	"id":           true,
	"name":         true,
	"in_stock":     true,
	"last_price":   true,
	"price_change": true,
	"created_at":   true,
	"updated_at":   true,
}

// movements is the closed set of movement buckets.
var movements = map[Movement]bool{
	MovementAny:       true,
	MovementNoChange:  true,
	MovementExpensive: true,
	MovementCheaper:   true,
}

// Validate checks a filter against the allow-lists. Returns the first
// violation; no query runs when validation fails.
func Validate(f Filter) error {
	for _, inc := range f.Include {
		if !includePaths[inc] {
			return &ValidationError{Field: "include", Value: inc, Allowed: sortedKeys(includePaths)}
		}
	}
	for _, ord := range f.OrderBy {
		if !orderFields[ord.Field] {
			return &ValidationError{Field: "order_by", Value: ord.Field, Allowed: sortedKeys(orderFields)}
		}
	}
	if !movements[f.Movement] {
		return &ValidationError{
			Field:   "movement",
			Value:   string(f.Movement),
			Allowed: []string{string(MovementNoChange), string(MovementExpensive), string(MovementCheaper)},
		}
	}
	return nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if k == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
