// Package chromem provides a vector driver backed by chromem-go, an
// embeddable pure-Go vector database with optional persistence.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"sync"

	chromemgo "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/vector"
)

// ChromemDriver implements vector.Driver on top of chromem-go. Each index
// maps to a chromem collection created on first use.
type ChromemDriver struct {
	db     *chromemgo.DB
	logger *zap.Logger

	mu          sync.RWMutex
	collections map[string]*chromemgo.Collection
}

// Config holds configuration for the chromem driver.
type Config struct {
	// Path is the directory for persistent storage. Empty means
	// in-memory only.
	Path string

	// Compress enables gzip compression for stored data.
	Compress bool
}

// NewChromemDriver creates a new chromem vector driver. With a Path it
// persists collections to disk; without one everything stays in memory.
func NewChromemDriver(c Config, logger *zap.Logger) (*ChromemDriver, error) {
	var (
		db  *chromemgo.DB
		err error
	)
	if c.Path == "" {
		db = chromemgo.NewDB()
	} else {
		db, err = chromemgo.NewPersistentDB(c.Path, c.Compress)
		if err != nil {
			return nil, fmt.Errorf("%w: creating chromem DB: %v", vector.ErrConnection, err)
		}
	}

	logger.Info("chromem vector driver initialized",
		zap.String("path", c.Path),
		zap.Bool("persistent", c.Path != ""),
	)

	return &ChromemDriver{
		db:          db,
		logger:      logger,
		collections: make(map[string]*chromemgo.Collection),
	}, nil
}

// embeddingFunc satisfies chromem's collection API. Embeddings are always
// supplied by the caller, so computing one here is a bug.
func embeddingFunc(_ context.Context, _ string) ([]float32, error) {
	return nil, errors.New("embeddings must be precomputed")
}

func (d *ChromemDriver) collection(index string) (*chromemgo.Collection, error) {
	d.mu.RLock()
	col, ok := d.collections[index]
	d.mu.RUnlock()
	if ok {
		return col, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if col, ok := d.collections[index]; ok {
		return col, nil
	}

	col, err := d.db.GetOrCreateCollection(index, nil, embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: creating collection %s: %v", vector.ErrConnection, index, err)
	}
	d.collections[index] = col
	return col, nil
}

// Add stores documents with their embeddings in the named index.
func (d *ChromemDriver) Add(ctx context.Context, index string, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	col, err := d.collection(index)
	if err != nil {
		return err
	}

	chromemDocs := make([]chromemgo.Document, 0, len(docs))
	for _, doc := range docs {
		metadata := map[string]string{"project": doc.Project}
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
		chromemDocs = append(chromemDocs, chromemgo.Document{
			ID:        doc.ID,
			Content:   doc.Content,
			Embedding: doc.Embedding,
			Metadata:  metadata,
		})
	}

	if err := col.AddDocuments(ctx, chromemDocs, 1); err != nil {
		return fmt.Errorf("adding documents to collection %s: %w", index, err)
	}

	d.logger.Debug("added documents to chromem",
		zap.String("index", index),
		zap.Int("count", len(docs)),
	)

	return nil
}

// Query finds the topK most similar documents in the named index. chromem
// reports cosine similarity natively.
func (d *ChromemDriver) Query(ctx context.Context, index string, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	d.mu.RLock()
	col, ok := d.collections[index]
	d.mu.RUnlock()
	if !ok {
		// Persistent DBs may have the collection on disk from a previous
		// run even though this process never wrote to it.
		col = d.db.GetCollection(index, embeddingFunc)
		if col == nil {
			return nil, nil
		}
		d.mu.Lock()
		d.collections[index] = col
		d.mu.Unlock()
	}

	// chromem rejects nResults greater than the collection size.
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	chromemResults, err := col.QueryEmbedding(ctx, embedding, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", index, err)
	}

	results := make([]vector.QueryResult, 0, len(chromemResults))
	for _, r := range chromemResults {
		metadata := make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			metadata[k] = v
		}
		project := metadata["project"]
		delete(metadata, "project")

		results = append(results, vector.QueryResult{
			Document: vector.Document{
				ID:       r.ID,
				Project:  project,
				Content:  r.Content,
				Metadata: metadata,
			},
			Similarity: r.Similarity,
		})
	}

	d.logger.Debug("queried chromem",
		zap.String("index", index),
		zap.Int("results", len(results)),
	)

	return results, nil
}

// Close releases resources held by the driver. chromem persists writes as
// they happen, so there is nothing to flush.
func (d *ChromemDriver) Close() error {
	return nil
}

var _ vector.Driver = (*ChromemDriver)(nil)
