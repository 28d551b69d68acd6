package eventstream_test

import (
	"encoding/json"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/eventstream"
)

func TestEventStream(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "EventStream Suite")
}

var _ = Describe("Event", func() {
	It("marshals MemoryPersistedEvent with expected top-level keys", func() {
		now := time.Unix(1735689600, 0).UTC()
		event := eventstream.MemoryPersistedEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeMemoryPersisted,
			EventID:       "evt_123",
			EmittedAt:     now,
			Project:       "my-project",
			Category:      "decisions",
			RecordID:      "rec_456",
			EmbeddingRef:  "emb_789",
			Degraded:      false,
		}

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("project"))
		Expect(got).To(HaveKey("category"))
		Expect(got).To(HaveKey("record_id"))
		Expect(got).To(HaveKey("degraded"))
	})

	It("omits the embedding ref for degraded writes", func() {
		event := eventstream.MemoryPersistedEvent{Degraded: true}

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())
		Expect(got).NotTo(HaveKey("embedding_ref"))
		Expect(got).To(HaveKeyWithValue("degraded", true))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeMemoryPersisted).To(Equal("engram.memory.persisted"))
	})
})
