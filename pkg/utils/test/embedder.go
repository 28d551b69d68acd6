package testutils

import (
	"context"
	"fmt"
	"sync/atomic"
)

// MockEmbedder is a test embedder that returns predictable embeddings.
type MockEmbedder struct {
	Embeddings map[string][]float32

	// FailOn causes Embed to return an error when the input text matches.
	FailOn string

	// Calls counts Embed invocations, including failed ones.
	Calls atomic.Int64
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.Calls.Add(1)

	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("mock embedding failure for: %s", text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	// Return a default embedding for any text
	return []float32{1, 0, 0}, nil
}

func (m *MockEmbedder) Close() error {
	return nil
}
