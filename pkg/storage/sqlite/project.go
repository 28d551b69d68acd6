package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/engram/pkg/storage"
)

// GetOrCreateProject looks a project up by unique name, inserting it when
// absent. The insert uses ON CONFLICT DO NOTHING so two goroutines racing on
// first use both land on the same row: whichever insert loses becomes a
// no-op and the follow-up select returns the winner.
func (s *Store) GetOrCreateProject(ctx context.Context, name string) (*storage.Project, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", storage.ErrInvalidReference)
	}

	now := time.Now().UTC()
	meta := map[string]string{"created": now.Format(time.RFC3339)}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshaling project metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, metadata, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, uuid.New().String(), name, string(metaJSON), now)
	if err != nil {
		return nil, fmt.Errorf("inserting project %q: %w", name, err)
	}

	return s.getProjectByName(ctx, name)
}

func (s *Store) getProjectByName(ctx context.Context, name string) (*storage.Project, error) {
	var (
		p       storage.Project
		rawMeta string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, metadata, created_at
		FROM projects
		WHERE name = ?
	`, name).Scan(&p.ID, &p.Name, &rawMeta, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: project %q", storage.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("selecting project %q: %w", name, err)
	}

	if rawMeta != "" {
		if err := json.Unmarshal([]byte(rawMeta), &p.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata for project %q: %w", name, err)
		}
	}

	return &p, nil
}
