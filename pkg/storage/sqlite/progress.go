package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/engram/pkg/storage"
)

// UpsertProgress inserts or merges a milestone row keyed by
// (project_id, milestone). The merge is a single SQL statement so two
// concurrent upserts for the same milestone serialize inside SQLite:
// status always replaces, notes and blockers replace only when the incoming
// value is non-empty, created_at is preserved, updated_at refreshes.
func (s *Store) UpsertProgress(ctx context.Context, p *storage.Progress) (*storage.Progress, error) {
	if p.Milestone == "" {
		return nil, fmt.Errorf("%w: milestone is required", storage.ErrInvalidReference)
	}
	if !storage.ValidStatus(p.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", storage.ErrInvalidReference, p.Status)
	}

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()

	blockers, err := marshalStrings(p.Blockers)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO progress (id, project_id, milestone, status, notes, blockers, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, milestone) DO UPDATE SET
			status     = excluded.status,
			notes      = CASE WHEN excluded.notes != '' THEN excluded.notes ELSE notes END,
			blockers   = CASE WHEN excluded.blockers != '[]' THEN excluded.blockers ELSE blockers END,
			updated_at = excluded.updated_at
	`, p.ID, p.ProjectID, p.Milestone, string(p.Status), p.Notes, blockers, now, now)
	if err != nil {
		return nil, fmt.Errorf("upserting progress: %w", wrapConstraint(err))
	}

	return s.getProgress(ctx, p.ProjectID, p.Milestone)
}

func (s *Store) getProgress(ctx context.Context, projectID, milestone string) (*storage.Progress, error) {
	var (
		p           storage.Progress
		rawBlockers string
		status      string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, milestone, status, notes, blockers, created_at, updated_at
		FROM progress
		WHERE project_id = ? AND milestone = ?
	`, projectID, milestone).Scan(&p.ID, &p.ProjectID, &p.Milestone, &status, &p.Notes, &rawBlockers, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: milestone %q", storage.ErrNotFound, milestone)
	}
	if err != nil {
		return nil, fmt.Errorf("selecting progress: %w", err)
	}

	p.Status = storage.Status(status)
	blockers, err := unmarshalStrings(rawBlockers)
	if err != nil {
		return nil, err
	}
	p.Blockers = blockers

	return &p, nil
}

// ListProgress returns up to limit milestones for a project, most recently
// updated first.
func (s *Store) ListProgress(ctx context.Context, projectID string, limit int) ([]*storage.Progress, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, milestone, status, notes, blockers, created_at, updated_at
		FROM progress
		WHERE project_id = ?
		ORDER BY updated_at DESC
		LIMIT ?
	`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing progress: %w", err)
	}
	defer rows.Close()

	var entries []*storage.Progress
	for rows.Next() {
		var (
			p           storage.Progress
			rawBlockers string
			status      string
		)
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.Milestone, &status, &p.Notes, &rawBlockers, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning progress: %w", err)
		}
		p.Status = storage.Status(status)
		blockers, err := unmarshalStrings(rawBlockers)
		if err != nil {
			return nil, err
		}
		p.Blockers = blockers
		entries = append(entries, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating progress: %w", err)
	}

	return entries, nil
}
