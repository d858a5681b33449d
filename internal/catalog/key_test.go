package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeField(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "trims surrounding whitespace",
			input: "  Oat Milk 1L  ",
			want:  "Oat Milk 1L",
		},
		{
			name:  "composes decomposed accents",
			input: "Café Crema", // e + combining acute
			want:  "Café Crema",  // precomposed é
		},
		{
			name:  "already composed is unchanged",
			input: "Café Crema",
			want:  "Café Crema",
		},
		{
			name:  "empty stays empty",
			input: "",
			want:  "",
		},
		{
			name:  "case is preserved",
			input: "OAT milk",
			want:  "OAT milk",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeField(tt.input))
		})
	}
}

func TestKeyOf_CanonicallyEqualInputsCollide(t *testing.T) {
	composed := KeyOf(7, "Café", "250g")
	decomposed := KeyOf(7, "Café", "250g")

	assert.Equal(t, composed, decomposed)
}

func TestKeyOf_DifferentCategoriesDiffer(t *testing.T) {
	a := KeyOf(1, "Milk", "1L")
	b := KeyOf(2, "Milk", "1L")

	assert.NotEqual(t, a, b)
}

func TestNormalizeRecord(t *testing.T) {
	rec := NormalizeRecord(SnapshotRecord{
		Name:      "  Café  ",
		Packaging: " 250g ",
		URL:       "  https://shop.example/p/1  ",
	})

	assert.Equal(t, "Café", rec.Name)
	assert.Equal(t, "250g", rec.Packaging)
	assert.Equal(t, "https://shop.example/p/1", rec.URL)
}

func TestNormalizeRecord_URLCasePreserved(t *testing.T) {
	rec := NormalizeRecord(SnapshotRecord{URL: "https://Shop.Example/P/1"})

	// URLs are opaque identifiers: trimmed but never case-folded.
	assert.Equal(t, "https://Shop.Example/P/1", rec.URL)
}
