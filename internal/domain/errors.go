package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals that a referenced identifier does not exist.
	// Deletes of missing records are idempotent no-ops instead; updates
	// and foreign-key checks return this error.
	ErrNotFound = errors.New("record not found")

	// ErrStorageUnavailable signals that the storage engine could not be
	// initialized (disabled storage, exhausted quota, corruption).
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrStorageWrite signals an engine failure while persisting a record.
	ErrStorageWrite = errors.New("storage write failed")
)

// ValidationError reports caller-supplied input that violates a field
// constraint. Always recoverable by correcting the input; never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
