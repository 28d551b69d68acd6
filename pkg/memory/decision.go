package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/vector"
)

// RecordDecision persists an engineering decision. The structured row is
// written first; the vector entry follows when embedding succeeded. An
// embedding or vector failure degrades the write instead of aborting it:
// the result still carries the structured id, with an empty EmbeddingRef
// and a warning.
func (c *Coordinator) RecordDecision(ctx context.Context, in RecordDecisionInput) (*RecordDecisionResult, error) {
	if in.Decision == "" {
		return nil, fmt.Errorf("%w: decision text is required", ErrValidation)
	}

	project, err := c.resolver.resolve(ctx, in.Project)
	if err != nil {
		return nil, fmt.Errorf("resolving project: %w", err)
	}

	// Embedding input pairs the decision with its context for recall.
	embText := in.Decision + " " + in.Context
	embedding, embErr := c.embedder.Embed(ctx, embText)
	if embErr != nil {
		c.logger.Warn("embedding failed, degrading decision write",
			zap.String("project", project.Name),
			zap.Error(embErr),
		)
	}

	decision := &storage.Decision{
		ProjectID:    project.ID,
		Decision:     in.Decision,
		Context:      in.Context,
		Impact:       in.Impact,
		Alternatives: in.Alternatives,
		Timestamp:    time.Now().UTC(),
	}
	if err := c.store.InsertDecision(ctx, decision); err != nil {
		return nil, fmt.Errorf("inserting decision: %w", err)
	}

	result := &RecordDecisionResult{StructuredID: decision.ID}

	if embErr == nil {
		// The embedding ref is a fresh token rather than the structured
		// id, keeping the two stores loosely coupled.
		ref := uuid.New().String()

		alternatives, _ := json.Marshal(in.Alternatives)
		doc := vector.Document{
			ID:        ref,
			Project:   project.Name,
			Content:   embText,
			Embedding: embedding,
			Metadata: map[string]string{
				"record_id":    decision.ID,
				"impact":       in.Impact,
				"alternatives": string(alternatives),
			},
		}

		if err := c.vector.Add(ctx, CategoryDecisions, []vector.Document{doc}); err != nil {
			c.logger.Warn("vector write failed, degrading decision write",
				zap.String("decision_id", decision.ID),
				zap.Error(err),
			)
		} else if err := c.store.UpdateDecisionEmbeddingRef(ctx, decision.ID, ref); err != nil {
			c.logger.Warn("failed to record embedding ref",
				zap.String("decision_id", decision.ID),
				zap.Error(err),
			)
		} else {
			result.EmbeddingRef = ref
		}
	}

	if result.EmbeddingRef == "" {
		result.Warning = WarningDegraded
	}

	c.publishPersisted(ctx, project.Name, CategoryDecisions, decision.ID, result.EmbeddingRef)

	c.logger.Debug("recorded decision",
		zap.String("project", project.Name),
		zap.String("decision_id", decision.ID),
		zap.Bool("degraded", result.EmbeddingRef == ""),
	)

	return result, nil
}

// RelateDecisions links two existing decisions with a typed, weighted edge.
// Both endpoints must reference existing decisions.
func (c *Coordinator) RelateDecisions(ctx context.Context, in RelateDecisionsInput) (*storage.DecisionRelation, error) {
	if in.DecisionID == "" || in.RelatedID == "" {
		return nil, fmt.Errorf("%w: both decision ids are required", ErrValidation)
	}

	relation := &storage.DecisionRelation{
		DecisionID:   in.DecisionID,
		RelatedID:    in.RelatedID,
		RelationType: storage.RelationType(in.RelationType),
		Strength:     in.Strength,
	}
	if err := c.store.InsertDecisionRelation(ctx, relation); err != nil {
		return nil, fmt.Errorf("inserting decision relation: %w", err)
	}

	return relation, nil
}
