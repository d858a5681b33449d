package feedspec

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/pricetrail/internal/catalog"
	"github.com/roach88/pricetrail/internal/store"
)

//go:embed schema.cue
var schemaCUE string

// Feed is a validated feed definition.
type Feed struct {
	Shops []FeedShop `yaml:"shops"`
}

// FeedShop declares one shop and the category pages scraped for it.
type FeedShop struct {
	Name       string         `yaml:"name"`
	URL        string         `yaml:"url"`
	Categories []FeedCategory `yaml:"categories"`
}

// FeedCategory declares one category page.
type FeedCategory struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// LoadError represents an error that occurred during feed loading.
type LoadError struct {
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Load reads a YAML feed file and validates it against the embedded
// CUE schema. All validation errors are collected before returning.
func Load(path string) (*Feed, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{&LoadError{Path: path, Message: fmt.Sprintf("read feed: %v", err)}}
	}
	return Parse(data, path)
}

// Parse validates raw YAML feed bytes. path is used only for error
// reporting.
func Parse(data []byte, path string) (*Feed, []error) {
	// Decode to a generic value first; schema validation runs against
	// the raw shape so unknown or mistyped fields are reported with
	// their CUE paths instead of being silently dropped.
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, []error{&LoadError{Path: path, Message: fmt.Sprintf("parse yaml: %v", err)}}
	}
	if raw == nil {
		return nil, []error{&LoadError{Path: path, Message: "feed file is empty"}}
	}

	if errs := validateSchema(raw, path); len(errs) > 0 {
		return nil, errs
	}

	var feed Feed
	if err := yaml.Unmarshal(data, &feed); err != nil {
		return nil, []error{&LoadError{Path: path, Message: fmt.Sprintf("decode feed: %v", err)}}
	}
	return &feed, nil
}

// validateSchema unifies the raw feed value with the #Feed definition
// and collects every violation.
func validateSchema(raw any, path string) []error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return []error{&LoadError{Message: fmt.Sprintf("compile feed schema: %v", err)}}
	}

	def := schema.LookupPath(cue.ParsePath("#Feed"))
	if !def.Exists() {
		return []error{&LoadError{Message: "feed schema has no #Feed definition"}}
	}

	unified := def.Unify(ctx.Encode(raw))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		var errs []error
		for _, e := range cueerrors.Errors(err) {
			errs = append(errs, &LoadError{Path: path, Message: e.Error()})
		}
		return errs
	}
	return nil
}

// ApplySummary reports what seeding a feed changed.
type ApplySummary struct {
	Shops             int // shops in the feed
	ShopsCreated      int
	Categories        int // categories in the feed
	CategoriesCreated int
}

// Apply seeds the catalog store from a validated feed: get-or-create
// each shop, then one bulk get-or-create for its categories. Re-running
// the same feed is a no-op.
func Apply(ctx context.Context, st *store.Store, feed *Feed) (ApplySummary, error) {
	var sum ApplySummary

	for _, fs := range feed.Shops {
		shop, created, err := st.GetOrCreateShop(ctx, fs.Name, fs.URL)
		if err != nil {
			return sum, fmt.Errorf("apply feed: shop %q: %w", fs.Name, err)
		}
		sum.Shops++
		if created {
			sum.ShopsCreated++
		}

		if len(fs.Categories) == 0 {
			continue
		}

		records := make([]catalog.CategoryRecord, len(fs.Categories))
		for i, fc := range fs.Categories {
			records[i] = catalog.CategoryRecord{Name: fc.Name, URL: fc.URL, ShopID: shop.ID}
		}

		before, err := st.CategoriesByShop(ctx, shop.ID)
		if err != nil {
			return sum, fmt.Errorf("apply feed: shop %q: %w", fs.Name, err)
		}

		if _, err := st.GetOrCreateCategories(ctx, records); err != nil {
			return sum, fmt.Errorf("apply feed: shop %q: %w", fs.Name, err)
		}

		after, err := st.CategoriesByShop(ctx, shop.ID)
		if err != nil {
			return sum, fmt.Errorf("apply feed: shop %q: %w", fs.Name, err)
		}

		sum.Categories += len(records)
		sum.CategoriesCreated += len(after) - len(before)
	}

	return sum, nil
}
