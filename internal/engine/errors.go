package engine

import (
	"errors"
	"fmt"
)

// IngestError represents a failure detected during ingestion.
//
// Ingest errors include:
//   - Invalid record: a snapshot record fails validation; the whole
//     batch is rejected before any phase runs
//   - Not found: an operation whose contract requires an existing row
//     (e.g. the single-item path's category) found none
//   - Phase failure: a saga phase failed after earlier phases committed;
//     the batch should be retried whole
type IngestError struct {
	// Code identifies the error category.
	Code IngestErrorCode

	// Message is a human-readable description.
	Message string

	// BatchID identifies the affected ingestion run, if any.
	BatchID string

	// Phase names the saga phase that failed (batch path only).
	Phase string

	// Err is the underlying cause, if any.
	Err error
}

// IngestErrorCode categorizes ingestion errors.
type IngestErrorCode string

const (
	// ErrCodeInvalidRecord indicates a snapshot record failed validation.
	ErrCodeInvalidRecord IngestErrorCode = "INVALID_RECORD"

	// ErrCodeNotFound indicates a required row does not exist.
	ErrCodeNotFound IngestErrorCode = "NOT_FOUND"

	// ErrCodePhaseFailed indicates a batch saga phase failed after
	// earlier phases committed.
	ErrCodePhaseFailed IngestErrorCode = "PHASE_FAILED"
)

// Error implements the error interface.
func (e *IngestError) Error() string {
	switch {
	case e.BatchID != "" && e.Phase != "":
		return fmt.Sprintf("%s: %s (batch=%s, phase=%s)", e.Code, e.Message, e.BatchID, e.Phase)
	case e.BatchID != "":
		return fmt.Sprintf("%s: %s (batch=%s)", e.Code, e.Message, e.BatchID)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *IngestError) Unwrap() error { return e.Err }

// IsInvalidRecord returns true if the error is a record validation error.
// Uses errors.As to handle wrapped errors.
func IsInvalidRecord(err error) bool {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Code == ErrCodeInvalidRecord
	}
	return false
}

// IsNotFound returns true if the error is a not-found error.
func IsNotFound(err error) bool {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Code == ErrCodeNotFound
	}
	return false
}

// newPhaseError wraps a saga phase failure.
func newPhaseError(batchID, phase string, err error) *IngestError {
	return &IngestError{
		Code:    ErrCodePhaseFailed,
		Message: err.Error(),
		BatchID: batchID,
		Phase:   phase,
		Err:     err,
	}
}
