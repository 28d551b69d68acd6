package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/vector"
)

// patternHash derives the exact-duplicate key for a code pattern from the
// file path and content length. Matching hashes short-circuit before any
// embedding is generated.
func patternHash(filePath string, contentLen int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", filePath, contentLen)))
	return hex.EncodeToString(sum[:])
}

// AddCodePattern persists a code pattern. A hash collision returns the
// existing row's identifiers with StatusExists and generates no new
// embedding. On a fresh insert the structured row stores a bounded content
// prefix while the vector entry keeps the full content for snippet
// extraction.
func (c *Coordinator) AddCodePattern(ctx context.Context, in AddCodePatternInput) (*AddCodePatternResult, error) {
	if in.FilePath == "" {
		return nil, fmt.Errorf("%w: file path is required", ErrValidation)
	}
	if in.Content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}

	hash := patternHash(in.FilePath, len(in.Content))

	existing, err := c.store.GetPatternByHash(ctx, hash)
	if err == nil {
		return &AddCodePatternResult{
			ID:           existing.ID,
			EmbeddingRef: existing.EmbeddingRef,
			Status:       StatusExists,
		}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("checking pattern hash: %w", err)
	}

	project, err := c.resolver.resolve(ctx, in.Project)
	if err != nil {
		return nil, fmt.Errorf("resolving project: %w", err)
	}

	embedding, embErr := c.embedder.Embed(ctx, in.Content)
	if embErr != nil {
		c.logger.Warn("embedding failed, degrading pattern write",
			zap.String("project", project.Name),
			zap.String("file_path", in.FilePath),
			zap.Error(embErr),
		)
	}

	stored := in.Content
	if len(stored) > patternContentPrefix {
		stored = stored[:patternContentPrefix]
	}

	pattern := &storage.CodePattern{
		ProjectID:   project.ID,
		PatternHash: hash,
		FilePath:    in.FilePath,
		Language:    in.Language,
		Content:     stored,
	}
	if err := c.store.InsertPattern(ctx, pattern); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			// Lost a race with a concurrent insert of the same hash.
			existing, fetchErr := c.store.GetPatternByHash(ctx, hash)
			if fetchErr != nil {
				return nil, fmt.Errorf("re-reading pattern after duplicate insert: %w", fetchErr)
			}
			return &AddCodePatternResult{
				ID:           existing.ID,
				EmbeddingRef: existing.EmbeddingRef,
				Status:       StatusExists,
			}, nil
		}
		return nil, fmt.Errorf("inserting pattern: %w", err)
	}

	result := &AddCodePatternResult{
		ID:     pattern.ID,
		Status: StatusCreated,
	}

	if embErr == nil {
		ref := uuid.New().String()
		doc := vector.Document{
			ID:        ref,
			Project:   project.Name,
			Content:   in.Content,
			Embedding: embedding,
			Metadata: map[string]string{
				"record_id": pattern.ID,
				"file_path": in.FilePath,
				"language":  in.Language,
			},
		}

		if err := c.vector.Add(ctx, CategoryCodePatterns, []vector.Document{doc}); err != nil {
			c.logger.Warn("vector write failed, degrading pattern write",
				zap.String("pattern_id", pattern.ID),
				zap.Error(err),
			)
		} else if err := c.store.UpdatePatternEmbeddingRef(ctx, pattern.ID, ref); err != nil {
			c.logger.Warn("failed to record embedding ref",
				zap.String("pattern_id", pattern.ID),
				zap.Error(err),
			)
		} else {
			result.EmbeddingRef = ref
		}
	}

	if result.EmbeddingRef == "" {
		result.Warning = WarningDegraded
	}

	c.publishPersisted(ctx, project.Name, CategoryCodePatterns, pattern.ID, result.EmbeddingRef)

	c.logger.Debug("added code pattern",
		zap.String("project", project.Name),
		zap.String("file_path", in.FilePath),
		zap.Bool("degraded", result.EmbeddingRef == ""),
	)

	return result, nil
}
