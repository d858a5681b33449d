package catalog

import (
	"fmt"
	"unicode/utf8"
)

// RecordError reports a rejected snapshot record. A single bad record
// fails the whole batch: partial silent application within an ingestion
// call is never allowed.
type RecordError struct {
	Index   int    // position in the batch, -1 for the single-item path
	Field   string // offending field
	Message string
}

func (e *RecordError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("record %d: %s: %s", e.Index, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateRecord checks one snapshot record. index is used only for
// error reporting; pass -1 for the single-item path.
func ValidateRecord(rec SnapshotRecord, index int) error {
	if rec.Name == "" {
		return &RecordError{Index: index, Field: "name", Message: "required"}
	}
	if rec.CategoryID <= 0 {
		return &RecordError{Index: index, Field: "category_id", Message: "required"}
	}
	if rec.Price.IsNegative() {
		return &RecordError{Index: index, Field: "price", Message: "must be >= 0"}
	}
	if utf8.RuneCountInString(rec.Packaging) > MaxPackagingLen {
		return &RecordError{
			Index:   index,
			Field:   "packaging",
			Message: fmt.Sprintf("longer than %d characters", MaxPackagingLen),
		}
	}
	return nil
}

// ValidateBatch checks every record in a batch. The bulk path
// additionally requires a URL on every record, since URL is the bulk
// identity key.
func ValidateBatch(records []SnapshotRecord) error {
	for i, rec := range records {
		if err := ValidateRecord(rec, i); err != nil {
			return err
		}
		if rec.URL == "" {
			return &RecordError{Index: i, Field: "url", Message: "required in bulk ingestion"}
		}
	}
	return nil
}
