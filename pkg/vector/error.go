package vector

import "errors"

var (
	// ErrConnection indicates the backing vector store could not be
	// reached or initialized.
	ErrConnection = errors.New("vector store connection failed")

	// ErrDimension indicates an embedding's dimensionality does not match
	// the index configuration.
	ErrDimension = errors.New("embedding dimension mismatch")

	// ErrInvalidIndex indicates an index name outside the allowed
	// character set.
	ErrInvalidIndex = errors.New("invalid index name")
)
