package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/pricetrail/internal/catalog"
	"github.com/roach88/pricetrail/internal/store"
)

// OpenStore opens a disposable store in the test's temp directory and
// closes it on cleanup.
func OpenStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "pricetrail.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// SeedCategory creates a shop and one category under it, returning the
// category. Most engine and query tests need at least this much catalog.
func SeedCategory(t *testing.T, s *store.Store, shopName, categoryName string) catalog.Category {
	t.Helper()

	ctx := context.Background()
	shop, _, err := s.GetOrCreateShop(ctx, shopName, "https://"+shopName+".example")
	require.NoError(t, err)

	cat, _, err := s.GetOrCreateCategory(ctx, shop.ID, categoryName, "https://"+shopName+".example/"+categoryName)
	require.NoError(t, err)
	return cat
}
