package query

import (
	"context"
	"fmt"

	"github.com/roach88/pricetrail/internal/catalog"
	"github.com/roach88/pricetrail/internal/store"
)

// Querier executes product queries against a store.
type Querier struct {
	store *store.Store
}

// New creates a Querier backed by the given store.
func New(s *store.Store) *Querier {
	return &Querier{store: s}
}

// Products runs a filtered, ordered, paginated product query.
//
// The filter is validated first; an unknown include path or order field
// fails before any SQL executes. The count and the slice run as two
// independent queries and are not serializable with respect to
// concurrent writes.
func (q *Querier) Products(ctx context.Context, f Filter) (Result, error) {
	if err := Validate(f); err != nil {
		return Result{}, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	countSQL, sliceSQL, params := Compile(f)

	var total int
	if err := q.store.QueryRow(ctx, countSQL, params...).Scan(&total); err != nil {
		return Result{}, fmt.Errorf("count products: %w", err)
	}

	sliceParams := append(append([]any{}, params...), limit, offset)
	rows, err := q.store.Query(ctx, sliceSQL, sliceParams...)
	if err != nil {
		return Result{}, fmt.Errorf("slice products: %w", err)
	}
	defer rows.Close()

	items := []catalog.Product{}
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.URL, &p.Image, &p.Packaging, &p.InStock,
			&p.CategoryID, &p.LastPrice, &p.PriceChange, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return Result{}, fmt.Errorf("scan product: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("iterate products: %w", err)
	}

	if err := q.resolveIncludes(ctx, items, f.Include); err != nil {
		return Result{}, err
	}

	// A trailing partial page is still a page.
	totalPages := (total + limit - 1) / limit

	return Result{
		Items:      items,
		Page:       offset / limit,
		PageSize:   limit,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

// resolveIncludes loads the requested relations for the sliced items,
// one IN query per relation.
func (q *Querier) resolveIncludes(ctx context.Context, items []catalog.Product, include []string) error {
	if len(items) == 0 || len(include) == 0 {
		return nil
	}

	wantCategory, wantShop, wantPrices := false, false, false
	for _, inc := range include {
		switch inc {
		case "category":
			wantCategory = true
		case "category.shop":
			wantCategory = true
			wantShop = true
		case "prices":
			wantPrices = true
		}
	}

	if wantCategory {
		if err := q.attachCategories(ctx, items, wantShop); err != nil {
			return err
		}
	}

	if wantPrices {
		ids := make([]int64, len(items))
		for i, p := range items {
			ids[i] = p.ID
		}
		byProduct, err := q.store.ObservationsFor(ctx, ids)
		if err != nil {
			return err
		}
		for i := range items {
			items[i].Prices = byProduct[items[i].ID]
		}
	}

	return nil
}

// attachCategories loads the categories (and optionally their shops)
// referenced by the sliced items.
func (q *Querier) attachCategories(ctx context.Context, items []catalog.Product, withShop bool) error {
	seen := map[int64]bool{}
	var ids []any
	for _, p := range items {
		if !seen[p.CategoryID] {
			seen[p.CategoryID] = true
			ids = append(ids, p.CategoryID)
		}
	}

	rows, err := q.store.Query(ctx, `
		SELECT id, name, url, shop_id, created_at, updated_at
		FROM categories
		WHERE id IN (`+placeholders(len(ids))+`)
	`, ids...)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	defer rows.Close()

	cats := map[int64]*catalog.Category{}
	for rows.Next() {
		var c catalog.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.URL, &c.ShopID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return fmt.Errorf("scan category: %w", err)
		}
		cats[c.ID] = &c
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate categories: %w", err)
	}

	if withShop {
		if err := q.attachShops(ctx, cats); err != nil {
			return err
		}
	}

	for i := range items {
		if c, ok := cats[items[i].CategoryID]; ok {
			cc := *c
			items[i].Category = &cc
		}
	}
	return nil
}

// attachShops loads the shops referenced by a category set.
func (q *Querier) attachShops(ctx context.Context, cats map[int64]*catalog.Category) error {
	seen := map[int64]bool{}
	var ids []any
	for _, c := range cats {
		if !seen[c.ShopID] {
			seen[c.ShopID] = true
			ids = append(ids, c.ShopID)
		}
	}

	rows, err := q.store.Query(ctx, `
		SELECT id, name, url, created_at, updated_at
		FROM shops
		WHERE id IN (`+placeholders(len(ids))+`)
	`, ids...)
	if err != nil {
		return fmt.Errorf("load shops: %w", err)
	}
	defer rows.Close()

	shops := map[int64]*catalog.Shop{}
	for rows.Next() {
		var s catalog.Shop
		if err := rows.Scan(&s.ID, &s.Name, &s.URL, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return fmt.Errorf("scan shop: %w", err)
		}
		shops[s.ID] = &s
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate shops: %w", err)
	}

	for _, c := range cats {
		if s, ok := shops[c.ShopID]; ok {
			sc := *s
			c.Shop = &sc
		}
	}
	return nil
}

// placeholders returns "?,?,..." with n markers, for IN clauses.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, n*2-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}
