package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeMemoryPersisted is emitted after a memory record is persisted.
	EventTypeMemoryPersisted = "engram.memory.persisted"
)

// MemoryPersistedEvent is a transport-neutral event payload for a persisted
// memory record (decision, progress entry, or code pattern).
type MemoryPersistedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`

	// Project is the name of the project the record belongs to.
	Project string `json:"project"`

	// Category is the record category ("decisions", "progress",
	// "code_patterns").
	Category string `json:"category"`

	// RecordID is the structured store identifier of the record.
	RecordID string `json:"record_id"`

	// EmbeddingRef is the vector index entry backing the record, empty
	// when the write was degraded.
	EmbeddingRef string `json:"embedding_ref,omitempty"`

	// Degraded is true when the record was persisted without a vector
	// index entry.
	Degraded bool `json:"degraded"`
}
