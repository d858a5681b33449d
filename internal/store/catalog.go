package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/pricetrail/internal/catalog"
)

// GetOrCreateShop returns the shop with the given name, creating it if
// it does not exist. Shop names are unique; the insert uses
// ON CONFLICT(name) DO NOTHING so concurrent callers converge on the
// same row.
func (s *Store) GetOrCreateShop(ctx context.Context, name, url string) (catalog.Shop, bool, error) {
	if name == "" {
		return catalog.Shop{}, false, fmt.Errorf("get or create shop: name is required")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO shops (name, url) VALUES (?, ?)
		ON CONFLICT(name) DO NOTHING
	`, name, url)
	if err != nil {
		return catalog.Shop{}, false, fmt.Errorf("get or create shop: %w", err)
	}

	created := false
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		created = true
	}

	shop, err := s.shopByName(ctx, name)
	if err != nil {
		return catalog.Shop{}, false, fmt.Errorf("get or create shop: %w", err)
	}
	return shop, created, nil
}

// GetShop retrieves a shop by id. Returns (zero, false, nil) when no
// shop exists - absence is not an error.
func (s *Store) GetShop(ctx context.Context, id int64) (catalog.Shop, bool, error) {
	var shop catalog.Shop
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, url, created_at, updated_at
		FROM shops WHERE id = ?
	`, id).Scan(&shop.ID, &shop.Name, &shop.URL, &shop.CreatedAt, &shop.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Shop{}, false, nil
	}
	if err != nil {
		return catalog.Shop{}, false, fmt.Errorf("get shop: %w", err)
	}
	return shop, true, nil
}

// ListShops returns all shops ordered by name, with id as tiebreaker
// for deterministic output.
func (s *Store) ListShops(ctx context.Context) ([]catalog.Shop, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, url, created_at, updated_at
		FROM shops
		ORDER BY name ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	defer rows.Close()

	shops := []catalog.Shop{}
	for rows.Next() {
		var shop catalog.Shop
		if err := rows.Scan(&shop.ID, &shop.Name, &shop.URL, &shop.CreatedAt, &shop.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan shop: %w", err)
		}
		shops = append(shops, shop)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shops: %w", err)
	}
	return shops, nil
}

// DeleteShop removes a shop and, via the cascade chain, all of its
// categories, products, and price history.
func (s *Store) DeleteShop(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM shops WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete shop: %w", err)
	}
	return nil
}

func (s *Store) shopByName(ctx context.Context, name string) (catalog.Shop, error) {
	var shop catalog.Shop
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, url, created_at, updated_at
		FROM shops WHERE name = ?
	`, name).Scan(&shop.ID, &shop.Name, &shop.URL, &shop.CreatedAt, &shop.UpdatedAt)
	if err != nil {
		return catalog.Shop{}, err
	}
	return shop, nil
}

// GetOrCreateCategory returns the category identified by (shopID, url),
// creating it if missing. Retry-safe via the (shop_id, url) unique
// constraint.
func (s *Store) GetOrCreateCategory(ctx context.Context, shopID int64, name, url string) (catalog.Category, bool, error) {
	if shopID <= 0 {
		return catalog.Category{}, false, fmt.Errorf("get or create category: shop id is required")
	}
	if name == "" {
		return catalog.Category{}, false, fmt.Errorf("get or create category: name is required")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (name, url, shop_id) VALUES (?, ?, ?)
		ON CONFLICT(shop_id, url) DO NOTHING
	`, name, url, shopID)
	if err != nil {
		return catalog.Category{}, false, fmt.Errorf("get or create category: %w", err)
	}

	created := false
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		created = true
	}

	var cat catalog.Category
	err = s.db.QueryRowContext(ctx, `
		SELECT id, name, url, shop_id, created_at, updated_at
		FROM categories WHERE shop_id = ? AND url = ?
	`, shopID, url).Scan(&cat.ID, &cat.Name, &cat.URL, &cat.ShopID, &cat.CreatedAt, &cat.UpdatedAt)
	if err != nil {
		return catalog.Category{}, false, fmt.Errorf("get or create category: %w", err)
	}
	return cat, created, nil
}

// GetOrCreateCategories resolves a batch of category records in O(1)
// statements: one `url IN (...)` query finds existing rows, one insert
// creates the complement, and one re-read returns the full resolved set
// correlated back to input records by url.
//
// Contract: never creates two rows with the same url within one call.
// Duplicated urls in the input collapse to a single row (first record
// wins). The insert uses ON CONFLICT DO NOTHING, so an interrupted call
// can be retried whole.
func (s *Store) GetOrCreateCategories(ctx context.Context, records []catalog.CategoryRecord) ([]catalog.Category, error) {
	if len(records) == 0 {
		return []catalog.Category{}, nil
	}
	for i, rec := range records {
		if rec.Name == "" || rec.URL == "" || rec.ShopID <= 0 {
			return nil, fmt.Errorf("get or create categories: record %d: name, url and shop_id are required", i)
		}
	}

	// Collapse input by url; first record wins.
	byURL := make(map[string]catalog.CategoryRecord, len(records))
	urls := make([]string, 0, len(records))
	for _, rec := range records {
		if _, seen := byURL[rec.URL]; seen {
			continue
		}
		byURL[rec.URL] = rec
		urls = append(urls, rec.URL)
	}

	existing, err := s.categoriesByURLs(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("get or create categories: %w", err)
	}

	haveURL := make(map[string]bool, len(existing))
	for _, cat := range existing {
		haveURL[cat.URL] = true
	}

	var toCreate []catalog.CategoryRecord
	for _, url := range urls {
		if !haveURL[url] {
			toCreate = append(toCreate, byURL[url])
		}
	}

	if len(toCreate) > 0 {
		query := `INSERT INTO categories (name, url, shop_id) VALUES `
		args := make([]any, 0, len(toCreate)*3)
		for i, rec := range toCreate {
			if i > 0 {
				query += ", "
			}
			query += "(?, ?, ?)"
			args = append(args, rec.Name, rec.URL, rec.ShopID)
		}
		query += " ON CONFLICT DO NOTHING"
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("get or create categories: insert: %w", err)
		}
	}

	resolved, err := s.categoriesByURLs(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("get or create categories: re-read: %w", err)
	}

	// Urls are only unique per shop; drop rows another shop happens to
	// share a url with.
	matched := resolved[:0]
	for _, cat := range resolved {
		if rec, ok := byURL[cat.URL]; ok && rec.ShopID == cat.ShopID {
			matched = append(matched, cat)
		}
	}
	return matched, nil
}

// GetCategory retrieves a category by id. Returns (zero, false, nil)
// when no category exists - absence is not an error.
func (s *Store) GetCategory(ctx context.Context, id int64) (catalog.Category, bool, error) {
	var cat catalog.Category
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, url, shop_id, created_at, updated_at
		FROM categories WHERE id = ?
	`, id).Scan(&cat.ID, &cat.Name, &cat.URL, &cat.ShopID, &cat.CreatedAt, &cat.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Category{}, false, nil
	}
	if err != nil {
		return catalog.Category{}, false, fmt.Errorf("get category: %w", err)
	}
	return cat, true, nil
}

// CategoriesByShop returns a shop's categories ordered by name.
func (s *Store) CategoriesByShop(ctx context.Context, shopID int64) ([]catalog.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, url, shop_id, created_at, updated_at
		FROM categories
		WHERE shop_id = ?
		ORDER BY name ASC, id ASC
	`, shopID)
	if err != nil {
		return nil, fmt.Errorf("categories by shop: %w", err)
	}
	defer rows.Close()

	cats := []catalog.Category{}
	for rows.Next() {
		var cat catalog.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.URL, &cat.ShopID, &cat.CreatedAt, &cat.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return cats, nil
}

// DeleteCategory removes a category and cascades to its products and
// their price history.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// categoriesByURLs returns all categories whose url is in the given
// set, ordered deterministically.
func (s *Store) categoriesByURLs(ctx context.Context, urls []string) ([]catalog.Category, error) {
	if len(urls) == 0 {
		return []catalog.Category{}, nil
	}

	args := make([]any, len(urls))
	for i, u := range urls {
		args[i] = u
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, url, shop_id, created_at, updated_at
		FROM categories
		WHERE url IN (`+placeholders(len(urls))+`)
		ORDER BY id ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query categories by url: %w", err)
	}
	defer rows.Close()

	cats := []catalog.Category{}
	for rows.Next() {
		var cat catalog.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.URL, &cat.ShopID, &cat.CreatedAt, &cat.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return cats, nil
}
