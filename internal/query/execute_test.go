package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pricetrail/internal/catalog"
	"github.com/roach88/pricetrail/internal/store"
	"github.com/roach88/pricetrail/internal/testutil"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// seedMoved creates a product with derived price fields already set.
func seedMoved(t *testing.T, s *store.Store, cat catalog.Category, name, lastPrice, change string, inStock bool) catalog.Product {
	t.Helper()
	ctx := context.Background()

	p, err := s.CreateProduct(ctx, catalog.Product{Name: name, CategoryID: cat.ID, InStock: inStock})
	require.NoError(t, err)
	require.NoError(t, s.SetDerived(ctx, p.ID, dec(lastPrice), dec(change), inStock))

	p, _, err = s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	return p
}

func TestProducts_MovementBuckets(t *testing.T) {
	s := testutil.OpenStore(t)
	cat := testutil.SeedCategory(t, s, "alpha", "dairy")
	ctx := context.Background()

	cheaper := seedMoved(t, s, cat, "Dropped", "2.00", "-0.50", true)
	expensive := seedMoved(t, s, cat, "Raised", "3.00", "0.25", true)
	flat := seedMoved(t, s, cat, "Flat", "1.00", "0", true)

	// Never priced: no bucket may claim it.
	_, err := s.CreateProduct(ctx, catalog.Product{Name: "Unpriced", CategoryID: cat.ID})
	require.NoError(t, err)

	q := New(s)

	tests := []struct {
		movement Movement
		wantID   int64
	}{
		{MovementCheaper, cheaper.ID},
		{MovementExpensive, expensive.ID},
		{MovementNoChange, flat.ID},
	}
	for _, tt := range tests {
		t.Run(string(tt.movement), func(t *testing.T) {
			result, err := q.Products(ctx, Filter{Movement: tt.movement})
			require.NoError(t, err)
			require.Len(t, result.Items, 1)
			assert.Equal(t, tt.wantID, result.Items[0].ID)
		})
	}

	// The three buckets partition the priced set.
	all, err := q.Products(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 4, all.TotalItems)
}

func TestProducts_Pagination(t *testing.T) {
	s := testutil.OpenStore(t)
	cat := testutil.SeedCategory(t, s, "alpha", "dairy")
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := s.CreateProduct(ctx, catalog.Product{
			Name:       fmt.Sprintf("Item %02d", i),
			CategoryID: cat.ID,
		})
		require.NoError(t, err)
	}

	q := New(s)

	first, err := q.Products(ctx, Filter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, first.Items, 10)
	assert.Equal(t, 0, first.Page)
	assert.Equal(t, 25, first.TotalItems)
	// 25 items at 10 per page: the trailing 5 still count as a page.
	assert.Equal(t, 3, first.TotalPages)

	last, err := q.Products(ctx, Filter{Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.Len(t, last.Items, 5)
	assert.Equal(t, 2, last.Page)
	assert.Equal(t, 3, last.TotalPages)

	beyond, err := q.Products(ctx, Filter{Limit: 10, Offset: 30})
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, 25, beyond.TotalItems)
}

func TestProducts_ExactDivisionPages(t *testing.T) {
	s := testutil.OpenStore(t)
	cat := testutil.SeedCategory(t, s, "alpha", "dairy")
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, err := s.CreateProduct(ctx, catalog.Product{
			Name:       fmt.Sprintf("Item %02d", i),
			CategoryID: cat.ID,
		})
		require.NoError(t, err)
	}

	result, err := New(s).Products(ctx, Filter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalPages)
}

func TestProducts_DefaultOrdering(t *testing.T) {
	s := testutil.OpenStore(t)
	cat := testutil.SeedCategory(t, s, "alpha", "dairy")
	ctx := context.Background()

	seedMoved(t, s, cat, "Bravo", "1.00", "0", true)
	seedMoved(t, s, cat, "Alpha", "1.00", "0", true)
	seedMoved(t, s, cat, "Zulu", "1.00", "0", false)

	result, err := New(s).Products(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, result.Items, 3)

	// Out-of-stock first (in_stock ASC), then name.
	assert.Equal(t, "Zulu", result.Items[0].Name)
	assert.Equal(t, "Alpha", result.Items[1].Name)
	assert.Equal(t, "Bravo", result.Items[2].Name)
}

func TestProducts_CustomOrdering(t *testing.T) {
	s := testutil.OpenStore(t)
	cat := testutil.SeedCategory(t, s, "alpha", "dairy")
	ctx := context.Background()

	seedMoved(t, s, cat, "Cheap", "1.00", "0", true)
	seedMoved(t, s, cat, "Costly", "9.00", "0", true)

	result, err := New(s).Products(ctx, Filter{
		OrderBy: []Order{{Field: "last_price", Desc: true}},
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "Costly", result.Items[0].Name)
}

func TestProducts_ShopFilter(t *testing.T) {
	s := testutil.OpenStore(t)
	catA := testutil.SeedCategory(t, s, "alpha", "dairy")
	catB := testutil.SeedCategory(t, s, "bravo", "dairy")
	ctx := context.Background()

	mine := seedMoved(t, s, catA, "Mine", "1.00", "0", true)
	seedMoved(t, s, catB, "Theirs", "1.00", "0", true)

	result, err := New(s).Products(ctx, Filter{ShopID: catA.ShopID})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, mine.ID, result.Items[0].ID)
}

func TestProducts_Includes(t *testing.T) {
	s := testutil.OpenStore(t)
	cat := testutil.SeedCategory(t, s, "alpha", "dairy")
	ctx := context.Background()

	p := seedMoved(t, s, cat, "Milk", "2.00", "0", true)
	_, _, _, err := s.RecordObservation(ctx, p.ID, dec("2.00"), catalog.Day("2026-03-14"))
	require.NoError(t, err)

	// Without includes nothing is resolved.
	bare, err := New(s).Products(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, bare.Items, 1)
	assert.Nil(t, bare.Items[0].Category)
	assert.Nil(t, bare.Items[0].Prices)

	result, err := New(s).Products(ctx, Filter{
		Include: []string{"category.shop", "prices"},
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	got := result.Items[0]
	require.NotNil(t, got.Category)
	assert.Equal(t, cat.ID, got.Category.ID)
	require.NotNil(t, got.Category.Shop)
	assert.Equal(t, "alpha", got.Category.Shop.Name)
	require.Len(t, got.Prices, 1)
	assert.Equal(t, catalog.Day("2026-03-14"), got.Prices[0].ObservedDay)
}

func TestProducts_UnknownIncludeFailsFast(t *testing.T) {
	s := testutil.OpenStore(t)

	_, err := New(s).Products(context.Background(), Filter{Include: []string{"supplier"}})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "include", valErr.Field)
}
