package storage

import "time"

// Project is the logical namespace under which decisions, progress, and code
// patterns are grouped. Projects are created lazily on first reference by
// name and are never deleted by this subsystem.
type Project struct {
	// ID is the unique project identifier (UUID).
	ID string `json:"id"`

	// Name is the human-readable project name, unique across the store.
	Name string `json:"name"`

	// Metadata holds opaque key/value pairs recorded at creation time.
	Metadata map[string]string `json:"metadata,omitempty"`

	// CreatedAt is when the project was first referenced.
	CreatedAt time.Time `json:"created_at"`
}

// Decision is a recorded engineering decision. Every decision row may carry
// an EmbeddingRef pointing at its mirror in the vector store's decisions
// index; a row with an empty ref is visible to structured listings but
// absent from semantic search (a degraded write).
type Decision struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	Decision     string    `json:"decision"`
	Context      string    `json:"context,omitempty"`
	Impact       string    `json:"impact,omitempty"`
	Alternatives []string  `json:"alternatives,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	EmbeddingRef string    `json:"embedding_ref,omitempty"`
}

// Status is the lifecycle state of a progress milestone.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusTesting    Status = "testing"
	StatusCompleted  Status = "completed"
	StatusBlocked    Status = "blocked"
)

// ValidStatus reports whether s is one of the known milestone states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusTesting, StatusCompleted, StatusBlocked:
		return true
	}
	return false
}

// Progress is a milestone row, upserted by (project, milestone). Progress
// has no vector mirror.
type Progress struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Milestone string    `json:"milestone"`
	Status    Status    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	Blockers  []string  `json:"blockers,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CodePattern is a stored code submission. PatternHash deduplicates exact
// resubmissions before any embedding is generated; Content holds a bounded
// prefix of the original submission (the vector entry keeps the full text).
type CodePattern struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	PatternHash  string    `json:"pattern_hash"`
	FilePath     string    `json:"file_path"`
	Language     string    `json:"language,omitempty"`
	Content      string    `json:"content"`
	EmbeddingRef string    `json:"embedding_ref,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// RelationType classifies a directed edge between two decisions.
type RelationType string

const (
	RelationDependsOn     RelationType = "depends_on"
	RelationConflictsWith RelationType = "conflicts_with"
	RelationExtends       RelationType = "extends"
	RelationReplaces      RelationType = "replaces"
)

// ValidRelationType reports whether t is one of the known relation types.
func ValidRelationType(t RelationType) bool {
	switch t {
	case RelationDependsOn, RelationConflictsWith, RelationExtends, RelationReplaces:
		return true
	}
	return false
}

// DecisionRelation is a directed edge between two decisions. Both endpoints
// must reference existing decision rows. Strength is in [0, 1].
type DecisionRelation struct {
	ID           string       `json:"id"`
	DecisionID   string       `json:"decision_id"`
	RelatedID    string       `json:"related_id"`
	RelationType RelationType `json:"relation_type"`
	Strength     float64      `json:"strength"`
}
