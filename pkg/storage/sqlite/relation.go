package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/papercomputeco/engram/pkg/storage"
)

// InsertDecisionRelation inserts a directed edge between two decisions.
// Foreign-key enforcement rejects edges whose endpoints don't exist.
func (s *Store) InsertDecisionRelation(ctx context.Context, r *storage.DecisionRelation) error {
	if !storage.ValidRelationType(r.RelationType) {
		return fmt.Errorf("%w: unknown relation type %q", storage.ErrInvalidReference, r.RelationType)
	}
	if r.Strength < 0 || r.Strength > 1 {
		return fmt.Errorf("%w: strength %v outside [0,1]", storage.ErrInvalidReference, r.Strength)
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decision_relations (id, decision_id, related_id, relation_type, strength)
		VALUES (?, ?, ?, ?, ?)
	`, r.ID, r.DecisionID, r.RelatedID, string(r.RelationType), r.Strength)
	if err != nil {
		return fmt.Errorf("inserting decision relation: %w", wrapConstraint(err))
	}

	return nil
}

// ListDecisionRelations returns all edges whose source is the given decision.
func (s *Store) ListDecisionRelations(ctx context.Context, decisionID string) ([]*storage.DecisionRelation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, decision_id, related_id, relation_type, strength
		FROM decision_relations
		WHERE decision_id = ?
	`, decisionID)
	if err != nil {
		return nil, fmt.Errorf("listing decision relations: %w", err)
	}
	defer rows.Close()

	var relations []*storage.DecisionRelation
	for rows.Next() {
		var (
			r  storage.DecisionRelation
			rt string
		)
		if err := rows.Scan(&r.ID, &r.DecisionID, &r.RelatedID, &rt, &r.Strength); err != nil {
			return nil, fmt.Errorf("scanning decision relation: %w", err)
		}
		r.RelationType = storage.RelationType(rt)
		relations = append(relations, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating decision relations: %w", err)
	}

	return relations, nil
}
