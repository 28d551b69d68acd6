package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/eventstream/nop"
	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/vector"
)

// Coordinator orchestrates writes across the structured store and the
// vector index. It is the only component that writes the cross-store
// reference (embedding_ref) linking the two.
//
// Within one write, the structured-store insert always happens before the
// vector-store add. A failure after the structured write leaves a degraded
// row (listed, not semantically searchable) rather than aborting; the
// inverse state of a vector entry without a structured row never occurs.
type Coordinator struct {
	store     storage.Driver
	vector    vector.Driver
	embedder  embeddings.Embedder
	publisher eventstream.Publisher
	logger    *zap.Logger
	defaults  Defaults

	resolver *resolver
}

// Config holds the long-lived dependencies a Coordinator is built from.
// All stores are constructed once at startup and reused.
type Config struct {
	Storage  storage.Driver
	Vector   vector.Driver
	Embedder embeddings.Embedder

	// Publisher receives an event after each persisted record. Optional;
	// defaults to the no-op publisher.
	Publisher eventstream.Publisher

	// Defaults adjusts the fallback project, search limit, and similarity
	// threshold. Optional.
	Defaults Defaults

	Logger *zap.Logger
}

// NewCoordinator creates a memory coordinator from its dependencies.
func NewCoordinator(c Config) (*Coordinator, error) {
	if c.Storage == nil {
		return nil, fmt.Errorf("structured store is required")
	}
	if c.Vector == nil {
		return nil, fmt.Errorf("vector driver is required")
	}
	if c.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if c.Publisher == nil {
		c.Publisher = nop.NewPublisher()
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Defaults.Project == "" {
		c.Defaults.Project = DefaultProject
	}
	if c.Defaults.SearchLimit <= 0 {
		c.Defaults.SearchLimit = DefaultSearchLimit
	}
	if c.Defaults.SimilarityThreshold <= 0 {
		c.Defaults.SimilarityThreshold = DefaultSimilarityThreshold
	}

	return &Coordinator{
		store:     c.Storage,
		vector:    c.Vector,
		embedder:  c.Embedder,
		publisher: c.Publisher,
		logger:    c.Logger,
		defaults:  c.Defaults,
		resolver:  newResolver(c.Storage, c.Defaults.Project),
	}, nil
}

// Close releases the coordinator's store handles.
func (c *Coordinator) Close() error {
	var firstErr error
	if err := c.vector.Close(); err != nil {
		firstErr = err
	}
	if err := c.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.embedder.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.publisher.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// publishPersisted emits a memory-persisted event. Publishing is
// best-effort: a failure is logged and never surfaced to the caller.
func (c *Coordinator) publishPersisted(ctx context.Context, project, category, recordID, embeddingRef string) {
	event := &eventstream.MemoryPersistedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeMemoryPersisted,
		EventID:       uuid.New().String(),
		EmittedAt:     time.Now().UTC(),
		Project:       project,
		Category:      category,
		RecordID:      recordID,
		EmbeddingRef:  embeddingRef,
		Degraded:      embeddingRef == "",
	}
	if err := c.publisher.PublishMemory(ctx, event); err != nil {
		c.logger.Warn("failed to publish memory event",
			zap.String("record_id", recordID),
			zap.String("category", category),
			zap.Error(err),
		)
	}
}
