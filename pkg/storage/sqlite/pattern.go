package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/engram/pkg/storage"
)

// GetPatternByHash looks a code pattern up by its deduplication hash.
func (s *Store) GetPatternByHash(ctx context.Context, hash string) (*storage.CodePattern, error) {
	var p storage.CodePattern
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, pattern_hash, file_path, language, content, embedding_ref, created_at
		FROM code_patterns
		WHERE pattern_hash = ?
	`, hash).Scan(&p.ID, &p.ProjectID, &p.PatternHash, &p.FilePath, &p.Language, &p.Content, &p.EmbeddingRef, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: pattern hash %s", storage.ErrNotFound, hash)
	}
	if err != nil {
		return nil, fmt.Errorf("selecting pattern by hash: %w", err)
	}
	return &p, nil
}

// InsertPattern inserts a code pattern row. A hash collision from a
// concurrent identical submission surfaces storage.ErrDuplicate.
func (s *Store) InsertPattern(ctx context.Context, p *storage.CodePattern) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO code_patterns (id, project_id, pattern_hash, file_path, language, content, embedding_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.ProjectID, p.PatternHash, p.FilePath, p.Language, p.Content, p.EmbeddingRef, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting code pattern: %w", wrapConstraint(err))
	}

	return nil
}

// UpdatePatternEmbeddingRef records the vector-store reference once the
// pattern's vector entry has been written.
func (s *Store) UpdatePatternEmbeddingRef(ctx context.Context, id, ref string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE code_patterns SET embedding_ref = ? WHERE id = ?`, ref, id)
	if err != nil {
		return fmt.Errorf("updating embedding ref for pattern %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: pattern %s", storage.ErrNotFound, id)
	}
	return nil
}

// ListPatterns returns up to limit patterns for a project, newest first.
func (s *Store) ListPatterns(ctx context.Context, projectID string, limit int) ([]*storage.CodePattern, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, pattern_hash, file_path, language, content, embedding_ref, created_at
		FROM code_patterns
		WHERE project_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing patterns: %w", err)
	}
	defer rows.Close()

	return scanPatterns(rows)
}

// GetPatternsByIDs hydrates pattern rows for a set of ids. Unknown ids are
// skipped.
func (s *Store) GetPatternsByIDs(ctx context.Context, ids []string) ([]*storage.CodePattern, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	clause, args := inClause(ids)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, project_id, pattern_hash, file_path, language, content, embedding_ref, created_at
		FROM code_patterns
		WHERE id IN (%s)
	`, clause), args...)
	if err != nil {
		return nil, fmt.Errorf("selecting patterns by ids: %w", err)
	}
	defer rows.Close()

	return scanPatterns(rows)
}

func scanPatterns(rows rowScanner) ([]*storage.CodePattern, error) {
	var patterns []*storage.CodePattern
	for rows.Next() {
		var p storage.CodePattern
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.PatternHash, &p.FilePath, &p.Language, &p.Content, &p.EmbeddingRef, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning pattern: %w", err)
		}
		patterns = append(patterns, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating patterns: %w", err)
	}
	return patterns, nil
}
