// Package storage defines the structured store for project memory: the
// relational source of truth for decisions, progress milestones, code
// patterns, and decision relations. The vector index is a separate store
// (pkg/vector); the memory coordinator owns the cross-store reference.
package storage

import "context"

// Driver is the structured-store interface. Implementations must support
// concurrent readers and writers from independent goroutines without
// corrupting data; conflicting writes to the same row serialize inside the
// store's own transaction discipline, not via external locking.
type Driver interface {
	// GetOrCreateProject looks a project up by unique name, inserting it
	// with initial metadata when absent. Must be idempotent under concurrent
	// first-use for the same name: the loser of a create race re-reads the
	// winner's row rather than erroring.
	GetOrCreateProject(ctx context.Context, name string) (*Project, error)

	// InsertDecision inserts a decision row. An unknown project id surfaces
	// ErrInvalidReference.
	InsertDecision(ctx context.Context, d *Decision) error

	// UpdateDecisionEmbeddingRef records the vector-store reference for a
	// decision after its vector entry has been written.
	UpdateDecisionEmbeddingRef(ctx context.Context, id, ref string) error

	// ListDecisions returns up to limit decisions for a project in reverse
	// chronological order.
	ListDecisions(ctx context.Context, projectID string, limit int) ([]*Decision, error)

	// GetDecisionsByIDs hydrates decision rows for merging with
	// vector-search results. Unknown ids are skipped, not errors.
	GetDecisionsByIDs(ctx context.Context, ids []string) ([]*Decision, error)

	// UpsertProgress inserts or merges a milestone row keyed by
	// (project_id, milestone): status replaces, notes and blockers replace
	// only when non-empty, updated_at refreshes. Returns the resulting row.
	UpsertProgress(ctx context.Context, p *Progress) (*Progress, error)

	// ListProgress returns up to limit milestones for a project, most
	// recently updated first.
	ListProgress(ctx context.Context, projectID string, limit int) ([]*Progress, error)

	// GetPatternByHash looks a code pattern up by its deduplication hash.
	// Returns ErrNotFound when no row has the hash.
	GetPatternByHash(ctx context.Context, hash string) (*CodePattern, error)

	// InsertPattern inserts a code pattern row. A hash collision surfaces
	// ErrDuplicate; callers re-read via GetPatternByHash.
	InsertPattern(ctx context.Context, p *CodePattern) error

	// UpdatePatternEmbeddingRef records the vector-store reference for a
	// code pattern after its vector entry has been written.
	UpdatePatternEmbeddingRef(ctx context.Context, id, ref string) error

	// ListPatterns returns up to limit patterns for a project, newest first.
	ListPatterns(ctx context.Context, projectID string, limit int) ([]*CodePattern, error)

	// GetPatternsByIDs hydrates pattern rows for merging with vector-search
	// results. Unknown ids are skipped, not errors.
	GetPatternsByIDs(ctx context.Context, ids []string) ([]*CodePattern, error)

	// InsertDecisionRelation inserts a directed edge between two decisions.
	// Either endpoint missing surfaces ErrInvalidReference.
	InsertDecisionRelation(ctx context.Context, r *DecisionRelation) error

	// ListDecisionRelations returns all edges whose source is the given
	// decision.
	ListDecisionRelations(ctx context.Context, decisionID string) ([]*DecisionRelation, error)

	// Close closes the store and releases any resources.
	Close() error
}
