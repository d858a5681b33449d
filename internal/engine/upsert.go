package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/roach88/pricetrail/internal/catalog"
)

// UpsertProduct reconciles a single snapshot record against the catalog
// and ledger. The product is matched by its natural key
// (category, name, packaging); a miss creates it.
//
// Repeated same-day calls never create a second ledger row: mutable
// catalog fields (image, packaging, in_stock) are refreshed on every
// call, but last_price and price_change are fixed for the day once the
// first observation lands.
//
// The category must exist; a missing category is a NOT_FOUND error, not
// an implicit create.
func (e *Engine) UpsertProduct(ctx context.Context, rec catalog.SnapshotRecord) (catalog.Product, error) {
	rec = catalog.NormalizeRecord(rec)
	if err := catalog.ValidateRecord(rec, -1); err != nil {
		return catalog.Product{}, &IngestError{Code: ErrCodeInvalidRecord, Message: err.Error(), Err: err}
	}

	if _, found, err := e.store.GetCategory(ctx, rec.CategoryID); err != nil {
		return catalog.Product{}, fmt.Errorf("upsert product: %w", err)
	} else if !found {
		return catalog.Product{}, &IngestError{
			Code:    ErrCodeNotFound,
			Message: fmt.Sprintf("category %d does not exist", rec.CategoryID),
		}
	}

	inStock := deriveInStock(rec.Price, rec.InStock)
	key := catalog.KeyOf(rec.CategoryID, rec.Name, rec.Packaging)

	product, found, err := e.store.FindProductByKey(ctx, key)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("upsert product: %w", err)
	}

	if found {
		// Mutable catalog fields refresh on every sighting. Derived
		// fields are only touched below, when a new observation lands.
		if err := e.store.RefreshCatalogFields(ctx, product.ID, rec.Image, rec.Packaging, inStock); err != nil {
			return catalog.Product{}, fmt.Errorf("upsert product: %w", err)
		}
	} else {
		// First sighting: price_change is seeded with the raw price
		// since there is no prior history to diff against.
		product, err = e.store.CreateProduct(ctx, catalog.Product{
			Name:        rec.Name,
			URL:         rec.URL,
			Image:       rec.Image,
			Packaging:   rec.Packaging,
			InStock:     inStock,
			CategoryID:  rec.CategoryID,
			PriceChange: decimal.NewNullDecimal(rec.Price),
		})
		if err != nil {
			return catalog.Product{}, fmt.Errorf("upsert product: %w", err)
		}
	}

	_, delta, inserted, err := e.store.RecordObservation(ctx, product.ID, rec.Price, today(e.clock))
	if err != nil {
		return catalog.Product{}, fmt.Errorf("upsert product: %w", err)
	}

	if inserted {
		if err := e.store.SetDerived(ctx, product.ID, rec.Price, delta, inStock); err != nil {
			return catalog.Product{}, fmt.Errorf("upsert product: %w", err)
		}
	}

	e.log.Debug("product upserted",
		zap.Int64("product_id", product.ID),
		zap.Bool("created", !found),
		zap.Bool("observed", inserted),
		zap.String("price", rec.Price.String()),
	)

	final, _, err := e.store.GetProduct(ctx, product.ID)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("upsert product: %w", err)
	}
	return final, nil
}

// deriveInStock applies the availability polarity rule: a price of zero
// (or below) always means unavailable, regardless of any scraper hint;
// a positive price defers to the hint when one is present.
func deriveInStock(price decimal.Decimal, hint *bool) bool {
	if !price.IsPositive() {
		return false
	}
	if hint != nil {
		return *hint
	}
	return true
}
