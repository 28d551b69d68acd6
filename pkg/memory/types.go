// Package memory implements the dual-store memory coordinator. It
// orchestrates writes across the structured store and the vector index,
// derives project namespaces, and implements semantic search and duplicate
// detection by combining vector hits with structured metadata.
package memory

import "time"

// Record categories. Each category with semantic recall maps to its own
// vector index.
const (
	CategoryDecisions    = "decisions"
	CategoryProgress     = "progress"
	CategoryCodePatterns = "code_patterns"
)

const (
	// DefaultProject is the namespace used when a caller names none.
	DefaultProject = "default"

	// DefaultSearchLimit caps search and listing results when the caller
	// requests no explicit limit.
	DefaultSearchLimit = 10

	// DefaultSimilarityThreshold is the minimum similarity for a search
	// hit when the caller specifies none.
	DefaultSimilarityThreshold = 0.7

	// minSimilarityThreshold is the epsilon a zero or negative threshold
	// is clamped to. A threshold of exactly zero would match everything,
	// including entries with no meaningful similarity.
	minSimilarityThreshold = 1e-4

	// overfetchFactor scales the vector store's internal limit above the
	// caller's requested limit, since project and threshold filtering
	// happen after retrieval.
	overfetchFactor = 4

	// patternContentPrefix bounds pattern content stored in the
	// structured row. The vector entry keeps the full content.
	patternContentPrefix = 4096
)

// Statuses returned by AddCodePattern.
const (
	StatusCreated = "created"
	StatusExists  = "exists"
)

// WarningDegraded is set on write results when the structured row was
// persisted but its vector entry was not. The record stays visible in
// structured listings but is absent from semantic search.
const WarningDegraded = "semantic indexing degraded: record visible in listings but not semantic search"

// Defaults overrides the built-in fallbacks applied when a caller leaves a
// field unset. Zero fields keep the package defaults.
type Defaults struct {
	Project             string
	SearchLimit         int
	SimilarityThreshold float64
}

// RecordDecisionInput captures an engineering decision to persist.
type RecordDecisionInput struct {
	Decision     string
	Context      string
	Alternatives []string
	Impact       string
	Project      string
}

// RecordDecisionResult reports the identifiers of a persisted decision.
// EmbeddingRef is empty when the write was degraded; callers check its
// presence to know whether semantic recall will find the record.
type RecordDecisionResult struct {
	StructuredID string `json:"structured_id"`
	EmbeddingRef string `json:"embedding_ref,omitempty"`
	Warning      string `json:"warning,omitempty"`
}

// TrackProgressInput captures a milestone status update.
type TrackProgressInput struct {
	Milestone string
	Status    string
	Notes     string
	Blockers  []string
	Project   string
}

// TrackProgressResult reports the affected milestone row.
type TrackProgressResult struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchInput parameterizes a semantic search.
type SearchInput struct {
	Query    string
	Category string

	// Project restricts hits to one project when non-empty.
	Project string

	// Limit caps results. Defaults to DefaultSearchLimit.
	Limit int

	// Threshold is the minimum similarity for a hit to be retained,
	// inclusive. Defaults to DefaultSimilarityThreshold; values at or
	// below zero are clamped to a small positive epsilon.
	Threshold float64
}

// SearchHit is a single semantic search result. RecordID references the
// structured row the vector entry mirrors, for follow-up hydration.
type SearchHit struct {
	EmbeddingRef string            `json:"embedding_ref"`
	RecordID     string            `json:"record_id"`
	Project      string            `json:"project"`
	Content      string            `json:"content"`
	Similarity   float32           `json:"similarity"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ProjectMemoryInput parameterizes a merged recency/semantic listing.
type ProjectMemoryInput struct {
	Category string
	Query    string
	Project  string
	Limit    int
}

// MemoryEntry is one record in a project memory listing. Similarity is
// meaningful only when Semantic is true; otherwise the entry was selected
// by recency.
type MemoryEntry struct {
	RecordID   string    `json:"record_id"`
	Category   string    `json:"category"`
	Content    string    `json:"content"`
	FilePath   string    `json:"file_path,omitempty"`
	Status     string    `json:"status,omitempty"`
	Similarity float32   `json:"similarity,omitempty"`
	Semantic   bool      `json:"semantic"`
	Timestamp  time.Time `json:"timestamp"`
}

// AddCodePatternInput captures a code pattern submission.
type AddCodePatternInput struct {
	FilePath string
	Content  string
	Language string
	Project  string
}

// AddCodePatternResult reports the outcome of a pattern submission. Status
// is StatusExists when the pattern hash matched an existing row, in which
// case the existing identifiers are returned unchanged.
type AddCodePatternResult struct {
	ID           string `json:"id"`
	EmbeddingRef string `json:"embedding_ref,omitempty"`
	Status       string `json:"status"`
	Warning      string `json:"warning,omitempty"`
}

// RelateDecisionsInput links two decisions with a typed, weighted edge.
type RelateDecisionsInput struct {
	DecisionID   string
	RelatedID    string
	RelationType string
	Strength     float64
}
