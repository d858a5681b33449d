package engine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pricetrail/internal/catalog"
	"github.com/roach88/pricetrail/internal/testutil"
)

// stubBatchGen returns fixed batch ids for deterministic assertions.
type stubBatchGen struct {
	ids []string
	idx int
}

func (g *stubBatchGen) Generate() string {
	if g.idx >= len(g.ids) {
		panic("stubBatchGen: no more ids")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

func newStubBatchGen(ids ...string) *stubBatchGen {
	return &stubBatchGen{ids: ids}
}

var day1 = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func boolPtr(b bool) *bool { return &b }

func TestUpsertProduct_FirstSighting(t *testing.T) {
	s := testutil.OpenStore(t)
	cat := testutil.SeedCategory(t, s, "alpha", "dairy")
	clock := testutil.NewFixedClock(day1)
	eng := New(s, WithClock(clock))

	product, err := eng.UpsertProduct(context.Background(), catalog.SnapshotRecord{
		Name:       "Oat Milk",
		Packaging:  "1L",
		CategoryID: cat.ID,
		Price:      dec("2.49"),
	})
	require.NoError(t, err)

	assert.NotZero(t, product.ID)
	assert.True(t, product.InStock)
	require.True(t, product.LastPrice.Valid)
	assert.True(t, product.LastPrice.Decimal.Equal(dec("2.49")))
	// No history to diff against: the change is the raw price.
	require.True(t, product.PriceChange.Valid)
	assert.True(t, product.PriceChange.Decimal.Equal(dec("2.49")))

	history, err := s.History(context.Background(), product.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, catalog.Day("2026-03-14"), history[0].ObservedDay)
}

func TestUpsertProduct_NextDayPriceDrop(t *testing.T) {
	s := testutil.OpenStore(t)
	cat := testutil.SeedCategory(t, s, "alpha", "dairy")
	clock := testutil.NewFixedClock(day1)
	eng := New(s, WithClock(clock))
	ctx := context.Background()

	rec := catalog.SnapshotRecord{Name: "Oat Milk", Packaging: "1L", CategoryID: cat.ID, Price: dec("3.00")}
	first, err := eng.UpsertProduct(ctx, rec)
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)
	rec.Price = dec("2.40")
	second, err := eng.UpsertProduct(ctx, rec)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "same natural key must resolve to the same product")
	assert.True(t, second.LastPrice.Decimal.Equal(dec("2.40")))
	assert.True(t, second.PriceChange.Decimal.Equal(dec("-0.60")), "price drop keeps its sign, got %s", second.PriceChange.Decimal)

	count, err := s.CountObservations(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestUpsertProduct_SameDayFreezesPriceFields(t *testing.T) {
	s := testutil.OpenStore(t)
	cat := testutil.SeedCategory(t, s, "alpha", "dairy")
	clock := testutil.NewFixedClock(day1)
	eng := New(s, WithClock(clock))
	ctx := context.Background()

	rec := catalog.SnapshotRecord{Name: "Oat Milk", Packaging: "1L", CategoryID: cat.ID, Price: dec("3.00")}
	first, err := eng.UpsertProduct(ctx, rec)
	require.NoError(t, err)

	// Same day, new price and new image: the image refreshes, the
	// price-derived fields and the ledger do not.
	rec.Price = dec("9.99")
	rec.Image = "https://img.example/oat.png"
	second, err := eng.UpsertProduct(ctx, rec)
	require.NoError(t, err)

	assert.Equal(t, "https://img.example/oat.png", second.Image)
	assert.True(t, second.LastPrice.Decimal.Equal(dec("3.00")), "same-day re-ingest must not move last_price")
	assert.True(t, second.PriceChange.Decimal.Equal(dec("3.00")))

	count, err := s.CountObservations(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpsertProduct_UnknownCategory(t *testing.T) {
	s := testutil.OpenStore(t)
	eng := New(s)

	_, err := eng.UpsertProduct(context.Background(), catalog.SnapshotRecord{
		Name:       "Ghost",
		CategoryID: 99,
		Price:      dec("1.00"),
	})

	require.Error(t, err)
	assert.True(t, IsNotFound(err), "want NOT_FOUND, got %v", err)
}

func TestUpsertProduct_InvalidRecord(t *testing.T) {
	s := testutil.OpenStore(t)
	eng := New(s)

	_, err := eng.UpsertProduct(context.Background(), catalog.SnapshotRecord{
		CategoryID: 1,
		Price:      dec("1.00"),
	})

	require.Error(t, err)
	assert.True(t, IsInvalidRecord(err), "want INVALID_RECORD, got %v", err)
}

func TestUpsertProduct_NormalizedKeyMatches(t *testing.T) {
	s := testutil.OpenStore(t)
	cat := testutil.SeedCategory(t, s, "alpha", "coffee")
	clock := testutil.NewFixedClock(day1)
	eng := New(s, WithClock(clock))
	ctx := context.Background()

	first, err := eng.UpsertProduct(ctx, catalog.SnapshotRecord{
		Name:       "Café Crema", // precomposed
		CategoryID: cat.ID,
		Price:      dec("7.99"),
	})
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)
	second, err := eng.UpsertProduct(ctx, catalog.SnapshotRecord{
		Name:       "  Café Crema ", // decomposed, padded
		CategoryID: cat.ID,
		Price:      dec("7.49"),
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "canonically equal names must resolve to one product")
}

func TestDeriveInStock(t *testing.T) {
	tests := []struct {
		name  string
		price decimal.Decimal
		hint  *bool
		want  bool
	}{
		{"positive price, no hint", dec("1.00"), nil, true},
		{"positive price, hint true", dec("1.00"), boolPtr(true), true},
		{"positive price, hint false", dec("1.00"), boolPtr(false), false},
		{"zero price overrides hint", decimal.Zero, boolPtr(true), false},
		{"zero price, no hint", decimal.Zero, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deriveInStock(tt.price, tt.hint))
		})
	}
}
