package feedspec

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pricetrail/internal/testutil"
)

const validFeed = `
shops:
  - name: alpha
    url: https://alpha.example
    categories:
      - name: dairy
        url: https://alpha.example/dairy
      - name: bakery
        url: https://alpha.example/bakery
  - name: bravo
    categories:
      - name: produce
        url: https://bravo.example/produce
`

func TestParse_ValidFeed(t *testing.T) {
	feed, errs := Parse([]byte(validFeed), "feed.yaml")
	require.Empty(t, errs)

	require.Len(t, feed.Shops, 2)
	assert.Equal(t, "alpha", feed.Shops[0].Name)
	assert.Len(t, feed.Shops[0].Categories, 2)
	assert.Equal(t, "https://bravo.example/produce", feed.Shops[1].Categories[0].URL)
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "shop without name",
			yaml: `
shops:
  - url: https://x.example
    categories: []
`,
		},
		{
			name: "category without url",
			yaml: `
shops:
  - name: alpha
    categories:
      - name: dairy
`,
		},
		{
			name: "empty shop name",
			yaml: `
shops:
  - name: ""
    categories: []
`,
		},
		{
			name: "mistyped shops field",
			yaml: `shops: "not a list"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed, errs := Parse([]byte(tt.yaml), "feed.yaml")
			assert.Nil(t, feed)
			assert.NotEmpty(t, errs)
		})
	}
}

func TestParse_EmptyFile(t *testing.T) {
	feed, errs := Parse([]byte(""), "feed.yaml")
	assert.Nil(t, feed)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "empty")
}

func TestParse_MalformedYAML(t *testing.T) {
	feed, errs := Parse([]byte("shops: [unclosed"), "feed.yaml")
	assert.Nil(t, feed)
	assert.NotEmpty(t, errs)
}

func TestLoad_MissingFile(t *testing.T) {
	feed, errs := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Nil(t, feed)
	require.Len(t, errs, 1)

	var loadErr *LoadError
	require.ErrorAs(t, errs[0], &loadErr)
	assert.NotEmpty(t, loadErr.Path)
}

func TestLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validFeed), 0o644))

	feed, errs := Load(path)
	require.Empty(t, errs)
	assert.Len(t, feed.Shops, 2)
}

func TestApply_SeedsCatalog(t *testing.T) {
	s := testutil.OpenStore(t)
	feed, errs := Parse([]byte(validFeed), "feed.yaml")
	require.Empty(t, errs)

	sum, err := Apply(context.Background(), s, feed)
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Shops)
	assert.Equal(t, 2, sum.ShopsCreated)
	assert.Equal(t, 3, sum.Categories)
	assert.Equal(t, 3, sum.CategoriesCreated)

	shops, err := s.ListShops(context.Background())
	require.NoError(t, err)
	require.Len(t, shops, 2)

	cats, err := s.CategoriesByShop(context.Background(), shops[0].ID)
	require.NoError(t, err)
	assert.Len(t, cats, 2)
}

func TestApply_Idempotent(t *testing.T) {
	s := testutil.OpenStore(t)
	feed, errs := Parse([]byte(validFeed), "feed.yaml")
	require.Empty(t, errs)
	ctx := context.Background()

	_, err := Apply(ctx, s, feed)
	require.NoError(t, err)

	sum, err := Apply(ctx, s, feed)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.ShopsCreated)
	assert.Equal(t, 0, sum.CategoriesCreated)

	shops, err := s.ListShops(ctx)
	require.NoError(t, err)
	assert.Len(t, shops, 2)
}
