package catalog

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord() SnapshotRecord {
	return SnapshotRecord{
		Name:       "Oat Milk 1L",
		URL:        "https://shop.example/p/1",
		CategoryID: 1,
		Price:      decimal.NewFromFloat(2.49),
	}
}

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*SnapshotRecord)
		wantField string // empty means valid
	}{
		{
			name:   "valid record",
			mutate: func(r *SnapshotRecord) {},
		},
		{
			name:   "zero price is valid",
			mutate: func(r *SnapshotRecord) { r.Price = decimal.Zero },
		},
		{
			name:      "missing name",
			mutate:    func(r *SnapshotRecord) { r.Name = "" },
			wantField: "name",
		},
		{
			name:      "missing category",
			mutate:    func(r *SnapshotRecord) { r.CategoryID = 0 },
			wantField: "category_id",
		},
		{
			name:      "negative category",
			mutate:    func(r *SnapshotRecord) { r.CategoryID = -3 },
			wantField: "category_id",
		},
		{
			name:      "negative price",
			mutate:    func(r *SnapshotRecord) { r.Price = decimal.NewFromInt(-1) },
			wantField: "price",
		},
		{
			name:      "packaging too long",
			mutate:    func(r *SnapshotRecord) { r.Packaging = strings.Repeat("x", MaxPackagingLen+1) },
			wantField: "packaging",
		},
		{
			name:   "packaging at the limit",
			mutate: func(r *SnapshotRecord) { r.Packaging = strings.Repeat("x", MaxPackagingLen) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)

			err := ValidateRecord(rec, -1)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var recErr *RecordError
			require.ErrorAs(t, err, &recErr)
			assert.Equal(t, tt.wantField, recErr.Field)
			assert.Equal(t, -1, recErr.Index)
		})
	}
}

func TestValidateRecord_PackagingLimitCountsRunes(t *testing.T) {
	rec := validRecord()
	rec.Packaging = strings.Repeat("é", MaxPackagingLen) // 2 bytes per rune

	assert.NoError(t, ValidateRecord(rec, -1))
}

func TestValidateBatch_RequiresURL(t *testing.T) {
	records := []SnapshotRecord{validRecord(), validRecord()}
	records[1].URL = ""

	err := ValidateBatch(records)

	var recErr *RecordError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, 1, recErr.Index)
	assert.Equal(t, "url", recErr.Field)
}

func TestValidateBatch_FirstBadRecordRejectsBatch(t *testing.T) {
	records := []SnapshotRecord{validRecord(), validRecord(), validRecord()}
	records[2].Name = ""

	err := ValidateBatch(records)

	var recErr *RecordError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, 2, recErr.Index)
}

func TestRecordError_Message(t *testing.T) {
	single := &RecordError{Index: -1, Field: "name", Message: "required"}
	assert.Equal(t, "name: required", single.Error())

	batch := &RecordError{Index: 4, Field: "url", Message: "required in bulk ingestion"}
	assert.Equal(t, "record 4: url: required in bulk ingestion", batch.Error())
}
