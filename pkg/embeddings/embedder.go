// Package embeddings defines the text embedding interface and shared
// helpers for embedding providers.
package embeddings

import (
	"context"
	"errors"
	"math"
)

// ErrUnavailable indicates the embedding provider could not be reached or
// returned no usable output. Callers treat it as a signal to degrade rather
// than fail the whole write.
var ErrUnavailable = errors.New("embedding provider unavailable")

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding. The returned vector is
	// L2-normalized so cosine similarity reduces to a dot product.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}

// Normalize scales v to unit length in place and returns it. A zero vector
// is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}
