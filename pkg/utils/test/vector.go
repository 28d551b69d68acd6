package testutils

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/papercomputeco/engram/pkg/vector"
)

// MockVectorDriver is an in-memory vector driver that computes real cosine
// similarities, so ordering and thresholds behave like a production index.
type MockVectorDriver struct {
	mu      sync.Mutex
	indices map[string]map[string]vector.Document

	// FailAdd causes every Add to return an error, for exercising
	// degraded write paths.
	FailAdd bool
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		indices: make(map[string]map[string]vector.Document),
	}
}

func (m *MockVectorDriver) Add(_ context.Context, index string, docs []vector.Document) error {
	if m.FailAdd {
		return fmt.Errorf("mock vector add failure")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.indices[index]
	if !ok {
		idx = make(map[string]vector.Document)
		m.indices[index] = idx
	}
	for _, doc := range docs {
		idx[doc.ID] = doc
	}
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, index string, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.indices[index]
	if !ok {
		return nil, nil
	}

	results := make([]vector.QueryResult, 0, len(idx))
	for _, doc := range idx {
		results = append(results, vector.QueryResult{
			Document:   doc,
			Similarity: cosine(embedding, doc.Embedding),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Count returns the number of documents stored in an index.
func (m *MockVectorDriver) Count(index string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.indices[index])
}

func (m *MockVectorDriver) Close() error {
	return nil
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

var _ vector.Driver = (*MockVectorDriver)(nil)
