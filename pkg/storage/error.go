package storage

import "errors"

var (
	// ErrNotFound is returned when a row doesn't exist in the store.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidReference is returned when a foreign key points at a
	// nonexistent project or decision. Fatal to the single operation.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrDuplicate is returned when a unique constraint rejects an insert
	// (e.g. a code pattern hash that already exists). Callers resolve it by
	// re-reading the existing row.
	ErrDuplicate = errors.New("duplicate record")

	// ErrUnavailable is returned when the underlying database cannot be
	// reached or opened. Retry policy belongs to the caller.
	ErrUnavailable = errors.New("storage unavailable")
)
