package catalog

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NaturalKey identifies a product in the per-item ingestion path.
// Fields are NFC-normalized so that byte-different but canonically
// equal scraper output ("Café" composed vs decomposed) resolves to the
// same product. The store enforces uniqueness on this triple.
type NaturalKey struct {
	CategoryID int64
	Name       string
	Packaging  string
}

// KeyOf builds the natural key for a snapshot record.
func KeyOf(categoryID int64, name, packaging string) NaturalKey {
	return NaturalKey{
		CategoryID: categoryID,
		Name:       NormalizeField(name),
		Packaging:  NormalizeField(packaging),
	}
}

// NormalizeField applies NFC normalization and trims surrounding
// whitespace. Applied at every ingestion boundary so the stored value
// and the lookup value always agree.
func NormalizeField(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// NormalizeRecord returns a copy of rec with its identity-bearing
// fields normalized. The bulk path matches on URL, which is trimmed but
// not case-folded: scraper URLs are treated as opaque identifiers.
func NormalizeRecord(rec SnapshotRecord) SnapshotRecord {
	rec.Name = NormalizeField(rec.Name)
	rec.Packaging = NormalizeField(rec.Packaging)
	rec.URL = strings.TrimSpace(rec.URL)
	return rec
}
