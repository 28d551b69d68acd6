// Package vector defines the interface for vector index backends used for
// semantic retrieval over memory records.
package vector

import "context"

// Document is a single entry in a vector index. The ID doubles as the
// embedding reference stored on the structured record it belongs to.
type Document struct {
	// ID uniquely identifies the document within its index.
	ID string

	// Project is the name of the project the document belongs to.
	Project string

	// Content is the text the embedding was computed from.
	Content string

	// Embedding is the vector representation of Content.
	Embedding []float32

	// Metadata carries additional record fields for post-filtering and
	// result assembly.
	Metadata map[string]string
}

// QueryResult pairs a stored document with its similarity to the query
// embedding. Similarity is cosine similarity in [0, 1] for normalized
// embeddings, where 1 means identical direction.
type QueryResult struct {
	Document

	Similarity float32
}

// Driver is the interface vector index backends implement. Indices are
// named per record category and created on first use.
type Driver interface {
	// Add stores documents with their embeddings in the named index,
	// replacing any existing document with the same ID.
	Add(ctx context.Context, index string, docs []Document) error

	// Query returns up to topK documents from the named index ordered by
	// descending similarity to the given embedding. Querying an index
	// that has never been written returns no results.
	Query(ctx context.Context, index string, embedding []float32, topK int) ([]QueryResult, error)

	// Close releases resources held by the driver.
	Close() error
}
