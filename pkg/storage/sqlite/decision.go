package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/storage"
)

// InsertDecision inserts a decision row. The id is generated when empty.
func (s *Store) InsertDecision(ctx context.Context, d *storage.Decision) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now().UTC()
	}

	alts, err := marshalStrings(d.Alternatives)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO decisions (id, project_id, decision, context, impact, alternatives, timestamp, embedding_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.ProjectID, d.Decision, d.Context, d.Impact, alts, d.Timestamp, d.EmbeddingRef)
	if err != nil {
		return fmt.Errorf("inserting decision: %w", wrapConstraint(err))
	}

	s.logger.Debug("inserted decision",
		zap.String("id", d.ID),
		zap.String("project_id", d.ProjectID),
	)

	return nil
}

// UpdateDecisionEmbeddingRef records the vector-store reference once the
// decision's vector entry has been written.
func (s *Store) UpdateDecisionEmbeddingRef(ctx context.Context, id, ref string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE decisions SET embedding_ref = ? WHERE id = ?`, ref, id)
	if err != nil {
		return fmt.Errorf("updating embedding ref for decision %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: decision %s", storage.ErrNotFound, id)
	}
	return nil
}

// ListDecisions returns up to limit decisions for a project, newest first.
func (s *Store) ListDecisions(ctx context.Context, projectID string, limit int) ([]*storage.Decision, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, decision, context, impact, alternatives, timestamp, embedding_ref
		FROM decisions
		WHERE project_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing decisions: %w", err)
	}
	defer rows.Close()

	return scanDecisions(rows)
}

// GetDecisionsByIDs hydrates decision rows for a set of ids. Unknown ids are
// skipped.
func (s *Store) GetDecisionsByIDs(ctx context.Context, ids []string) ([]*storage.Decision, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	clause, args := inClause(ids)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, project_id, decision, context, impact, alternatives, timestamp, embedding_ref
		FROM decisions
		WHERE id IN (%s)
	`, clause), args...)
	if err != nil {
		return nil, fmt.Errorf("selecting decisions by ids: %w", err)
	}
	defer rows.Close()

	return scanDecisions(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanDecisions(rows rowScanner) ([]*storage.Decision, error) {
	var decisions []*storage.Decision
	for rows.Next() {
		var (
			d       storage.Decision
			rawAlts string
		)
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.Decision, &d.Context, &d.Impact, &rawAlts, &d.Timestamp, &d.EmbeddingRef); err != nil {
			return nil, fmt.Errorf("scanning decision: %w", err)
		}
		alts, err := unmarshalStrings(rawAlts)
		if err != nil {
			return nil, err
		}
		d.Alternatives = alts
		decisions = append(decisions, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating decisions: %w", err)
	}
	return decisions, nil
}
