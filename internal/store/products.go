package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/pricetrail/internal/catalog"
)

const productColumns = "id, name, url, image, packaging, in_stock, category_id, last_price, price_change, created_at, updated_at"

// DerivedUpdate carries the price-derived fields for one product in the
// bulk update phase of a batch upsert.
type DerivedUpdate struct {
	ProductID   int64
	LastPrice   decimal.Decimal
	PriceChange decimal.Decimal
	InStock     bool
}

// GetProduct retrieves a product by id. Returns (zero, false, nil) when
// no product exists - absence is not an error.
func (s *Store) GetProduct(ctx context.Context, id int64) (catalog.Product, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+` FROM products WHERE id = ?
	`, id)

	p, err := scanProductRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Product{}, false, nil
	}
	if err != nil {
		return catalog.Product{}, false, fmt.Errorf("get product: %w", err)
	}
	return p, true, nil
}

// FindProductByKey looks up a product by its natural key
// (category_id, name, packaging). The key fields must already be
// normalized; see catalog.KeyOf. Returns (zero, false, nil) on miss.
func (s *Store) FindProductByKey(ctx context.Context, key catalog.NaturalKey) (catalog.Product, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE category_id = ? AND name = ? AND packaging = ?
	`, key.CategoryID, key.Name, key.Packaging)

	p, err := scanProductRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Product{}, false, nil
	}
	if err != nil {
		return catalog.Product{}, false, fmt.Errorf("find product by key: %w", err)
	}
	return p, true, nil
}

// ProductsByURLs resolves all products whose url appears in the given
// set with a single query. This is the membership test of the bulk
// upsert path.
func (s *Store) ProductsByURLs(ctx context.Context, urls []string) ([]catalog.Product, error) {
	if len(urls) == 0 {
		return []catalog.Product{}, nil
	}

	args := make([]any, len(urls))
	for i, u := range urls {
		args[i] = u
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE url IN (`+placeholders(len(urls))+`)
		ORDER BY id ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query products by url: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// CreateProduct inserts a new product row and returns it with its id.
// Fails on natural-key or url conflict: callers are expected to have
// resolved existence first, and a conflict here means a concurrent
// writer won the race (retry the whole operation).
func (s *Store) CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO products (name, url, image, packaging, in_stock, category_id, last_price, price_change)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.Name, p.URL, p.Image, p.Packaging, p.InStock, p.CategoryID, p.LastPrice, p.PriceChange)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("create product: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return catalog.Product{}, fmt.Errorf("create product: last insert id: %w", err)
	}

	created, _, err := s.GetProduct(ctx, id)
	if err != nil {
		return catalog.Product{}, err
	}
	return created, nil
}

// InsertProducts bulk-inserts the given products in one statement.
// ON CONFLICT DO NOTHING makes the create-missing-products phase safe
// to retry: rows that lost a race against a concurrent batch are
// resolved by the follow-up url re-read.
func (s *Store) InsertProducts(ctx context.Context, products []catalog.Product) error {
	if len(products) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString(`INSERT INTO products (name, url, image, packaging, in_stock, category_id, last_price, price_change) VALUES `)
	args := make([]any, 0, len(products)*8)
	for i, p := range products {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, p.Name, p.URL, p.Image, p.Packaging, p.InStock, p.CategoryID, p.LastPrice, p.PriceChange)
	}
	b.WriteString(" ON CONFLICT DO NOTHING")

	if _, err := s.db.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("insert products: %w", err)
	}
	return nil
}

// RefreshCatalogFields overwrites the mutable catalog fields of a
// product. Price-derived fields are not touched here; they belong to
// the ledger-driven update path.
func (s *Store) RefreshCatalogFields(ctx context.Context, id int64, image, packaging string, inStock bool) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET image = ?, packaging = ?, in_stock = ?, updated_at = datetime('now')
		WHERE id = ?
	`, image, packaging, inStock, id)
	if err != nil {
		return fmt.Errorf("refresh catalog fields: %w", err)
	}
	return nil
}

// SetDerived writes last_price, price_change, and in_stock for one
// product. Used by the per-item upsert path after a new observation.
func (s *Store) SetDerived(ctx context.Context, id int64, lastPrice, priceChange decimal.Decimal, inStock bool) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET last_price = ?, price_change = ?, in_stock = ?, updated_at = datetime('now')
		WHERE id = ?
	`, lastPrice, priceChange, inStock, id)
	if err != nil {
		return fmt.Errorf("set derived: %w", err)
	}
	return nil
}

// ApplyDerived writes the price-derived fields for many products in a
// single UPDATE keyed by product id using CASE value maps. This is the
// final phase of the batch upsert; it must not degrade into per-row
// round trips.
func (s *Store) ApplyDerived(ctx context.Context, updates []DerivedUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	var last, change, stock strings.Builder
	ids := make([]any, 0, len(updates))
	var lastArgs, changeArgs, stockArgs []any

	for _, u := range updates {
		last.WriteString(" WHEN ? THEN ?")
		lastArgs = append(lastArgs, u.ProductID, u.LastPrice)
		change.WriteString(" WHEN ? THEN ?")
		changeArgs = append(changeArgs, u.ProductID, u.PriceChange)
		stock.WriteString(" WHEN ? THEN ?")
		stockArgs = append(stockArgs, u.ProductID, u.InStock)
		ids = append(ids, u.ProductID)
	}

	query := `
		UPDATE products SET
			last_price = CASE id` + last.String() + ` END,
			price_change = CASE id` + change.String() + ` END,
			in_stock = CASE id` + stock.String() + ` END,
			updated_at = datetime('now')
		WHERE id IN (` + placeholders(len(updates)) + `)`

	args := make([]any, 0, len(updates)*7)
	args = append(args, lastArgs...)
	args = append(args, changeArgs...)
	args = append(args, stockArgs...)
	args = append(args, ids...)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("apply derived: %w", err)
	}
	return nil
}

// scanProductRow scans a single product row.
func scanProductRow(row *sql.Row) (catalog.Product, error) {
	var p catalog.Product
	if err := row.Scan(
		&p.ID, &p.Name, &p.URL, &p.Image, &p.Packaging, &p.InStock,
		&p.CategoryID, &p.LastPrice, &p.PriceChange, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return catalog.Product{}, err
	}
	return p, nil
}

// collectProducts drains rows that selected productColumns.
func collectProducts(rows *sql.Rows) ([]catalog.Product, error) {
	products := []catalog.Product{}
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.URL, &p.Image, &p.Packaging, &p.InStock,
			&p.CategoryID, &p.LastPrice, &p.PriceChange, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}
