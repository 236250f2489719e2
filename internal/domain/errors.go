package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFitted         = errors.New("encoder has not been fitted")
	ErrInsufficientData  = errors.New("insufficient data")
	ErrRecordNotFound    = errors.New("recipe not found")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrBundleCorrupt     = errors.New("model bundle is corrupt")
	ErrBundleVersion     = errors.New("unsupported model bundle version")
)

// MalformedRecordError marks a raw record rejected during ingestion.
// Loaders skip such records and keep going.
type MalformedRecordError struct {
	Row    int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record at row %d: %s", e.Row, e.Reason)
}

// StorageAccessError wraps any record store failure other than a missing id.
type StorageAccessError struct {
	Op  string
	Err error
}

func (e *StorageAccessError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageAccessError) Unwrap() error {
	return e.Err
}

// StorageError wraps err as a StorageAccessError unless it is nil or
// already a not-found condition.
func StorageError(op string, err error) error {
	if err == nil || errors.Is(err, ErrRecordNotFound) {
		return err
	}
	var sae *StorageAccessError
	if errors.As(err, &sae) {
		return err
	}
	return &StorageAccessError{Op: op, Err: err}
}
