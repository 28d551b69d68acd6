package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage/sqlite"
	testutils "github.com/papercomputeco/engram/pkg/utils/test"
)

func TestAPI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "API Suite")
}

func postJSON(server *Server, path string, payload any) *http.Response {
	body, err := json.Marshal(payload)
	Expect(err).NotTo(HaveOccurred())

	req, err := http.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")

	resp, err := server.app.Test(req)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

func getPath(server *Server, path string) *http.Response {
	req, err := http.NewRequest(http.MethodGet, path, nil)
	Expect(err).NotTo(HaveOccurred())

	resp, err := server.app.Test(req)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

func decodeBody(resp *http.Response, out any) {
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	Expect(json.Unmarshal(body, out)).To(Succeed())
}

var _ = Describe("Memory Handlers", func() {
	var (
		server   *Server
		embedder *testutils.MockEmbedder
		vecStore *testutils.MockVectorDriver
	)

	BeforeEach(func() {
		logger := zap.NewNop()
		store, err := sqlite.NewStore(sqlite.Config{DBPath: ":memory:"}, logger)
		Expect(err).NotTo(HaveOccurred())

		embedder = testutils.NewMockEmbedder()
		vecStore = testutils.NewMockVectorDriver()

		coordinator, err := memory.NewCoordinator(memory.Config{
			Storage:  store,
			Vector:   vecStore,
			Embedder: embedder,
			Logger:   logger,
		})
		Expect(err).NotTo(HaveOccurred())

		server = NewServer(Config{ListenAddr: ":0"}, coordinator, nil, logger)
	})

	Describe("GET /ping", func() {
		It("returns pong", func() {
			resp := getPath(server, "/ping")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var msg string
			decodeBody(resp, &msg)
			Expect(msg).To(Equal("pong"))
		})
	})

	Describe("POST /v1/memory/decisions", func() {
		It("persists a decision and returns both identifiers", func() {
			resp := postJSON(server, "/v1/memory/decisions", recordDecisionRequest{
				Decision: "Use PostgreSQL for persistence",
				Context:  "Relational constraints matter here",
				Impact:   "high",
				Project:  "backend",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusCreated))

			var result recordDecisionResponse
			decodeBody(resp, &result)
			Expect(result.StructuredID).NotTo(BeEmpty())
			Expect(result.EmbeddingRef).NotTo(BeEmpty())
			Expect(result.Warning).To(BeEmpty())
		})

		It("rejects an empty decision with 400", func() {
			resp := postJSON(server, "/v1/memory/decisions", recordDecisionRequest{
				Context: "context without a decision",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))

			var errResp ErrorResponse
			decodeBody(resp, &errResp)
			Expect(errResp.Error).NotTo(BeEmpty())
		})

		It("rejects a malformed body with 400", func() {
			req, err := http.NewRequest(http.MethodPost, "/v1/memory/decisions", bytes.NewReader([]byte("{not json")))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("reports a degraded write with 201 and a warning", func() {
			vecStore.FailAdd = true

			resp := postJSON(server, "/v1/memory/decisions", recordDecisionRequest{
				Decision: "Adopt feature flags",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusCreated))

			var result recordDecisionResponse
			decodeBody(resp, &result)
			Expect(result.StructuredID).NotTo(BeEmpty())
			Expect(result.EmbeddingRef).To(BeEmpty())
			Expect(result.Warning).NotTo(BeEmpty())
		})
	})

	Describe("POST /v1/memory/progress", func() {
		It("records a milestone update", func() {
			resp := postJSON(server, "/v1/memory/progress", trackProgressRequest{
				Milestone: "auth flow",
				Status:    "in_progress",
				Notes:     "JWT middleware landed",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var result memory.TrackProgressResult
			decodeBody(resp, &result)
			Expect(result.ID).NotTo(BeEmpty())
			Expect(result.Status).To(Equal("in_progress"))
		})

		It("rejects an unknown status with 400", func() {
			resp := postJSON(server, "/v1/memory/progress", trackProgressRequest{
				Milestone: "auth flow",
				Status:    "almost_done",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})
	})

	Describe("POST /v1/memory/patterns", func() {
		pattern := addCodePatternRequest{
			FilePath: "internal/retry/backoff.go",
			Content:  "func Backoff(attempt int) time.Duration { return time.Second << attempt }",
			Language: "go",
		}

		It("creates a new pattern with 201", func() {
			resp := postJSON(server, "/v1/memory/patterns", pattern)
			Expect(resp.StatusCode).To(Equal(fiber.StatusCreated))

			var result addCodePatternResponse
			decodeBody(resp, &result)
			Expect(result.Status).To(Equal(memory.StatusCreated))
			Expect(result.ID).NotTo(BeEmpty())
		})

		It("reports a duplicate submission with 200", func() {
			first := postJSON(server, "/v1/memory/patterns", pattern)
			Expect(first.StatusCode).To(Equal(fiber.StatusCreated))
			var created addCodePatternResponse
			decodeBody(first, &created)

			second := postJSON(server, "/v1/memory/patterns", pattern)
			Expect(second.StatusCode).To(Equal(fiber.StatusOK))

			var result addCodePatternResponse
			decodeBody(second, &result)
			Expect(result.Status).To(Equal(memory.StatusExists))
			Expect(result.ID).To(Equal(created.ID))
		})
	})

	Describe("GET /v1/memory/search", func() {
		BeforeEach(func() {
			embedder.Embeddings["Use TypeScript for the frontend Type safety pays off "] = []float32{1, 0, 0}
			embedder.Embeddings["Use TypeScript for the frontend Type safety pays off"] = []float32{1, 0, 0}
			embedder.Embeddings["type safety"] = []float32{0.95, 0.05, 0}

			resp := postJSON(server, "/v1/memory/decisions", recordDecisionRequest{
				Decision: "Use TypeScript for the frontend",
				Context:  "Type safety pays off",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusCreated))
		})

		It("returns ranked hits for a query", func() {
			resp := getPath(server, "/v1/memory/search?query=type+safety&category=decisions")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var result searchResponse
			decodeBody(resp, &result)
			Expect(result.Count).To(Equal(1))
			Expect(result.Results[0].RecordID).NotTo(BeEmpty())
			Expect(result.Results[0].Similarity).To(BeNumerically(">=", 0.7))
		})

		It("rejects a missing category with 400", func() {
			resp := getPath(server, "/v1/memory/search?query=type+safety")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("rejects a non-numeric limit with 400", func() {
			resp := getPath(server, "/v1/memory/search?query=type+safety&category=decisions&limit=lots")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("excludes hits below an explicit threshold", func() {
			resp := getPath(server, "/v1/memory/search?query=type+safety&category=decisions&threshold=0.9999")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var result searchResponse
			decodeBody(resp, &result)
			Expect(result.Count).To(Equal(0))
		})
	})

	Describe("GET /v1/memory/duplicates", func() {
		It("rejects an empty descriptor with 400", func() {
			resp := getPath(server, "/v1/memory/duplicates")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("surfaces overlapping code patterns", func() {
			created := postJSON(server, "/v1/memory/patterns", addCodePatternRequest{
				FilePath: "pkg/cache/lru.go",
				Content:  "type LRU struct { mu sync.Mutex; entries map[string]*entry }",
				Language: "go",
			})
			Expect(created.StatusCode).To(Equal(fiber.StatusCreated))

			resp := getPath(server, "/v1/memory/duplicates?descriptor=an+LRU+cache")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var result searchResponse
			decodeBody(resp, &result)
			Expect(result.Count).To(Equal(1))
			Expect(result.Results[0].Metadata).To(HaveKeyWithValue("file_path", "pkg/cache/lru.go"))
		})
	})

	Describe("GET /v1/memory", func() {
		BeforeEach(func() {
			for _, decision := range []string{"first decision", "second decision"} {
				resp := postJSON(server, "/v1/memory/decisions", recordDecisionRequest{Decision: decision})
				Expect(resp.StatusCode).To(Equal(fiber.StatusCreated))
			}
		})

		It("lists recent entries for a category", func() {
			resp := getPath(server, "/v1/memory?category=decisions")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var result projectMemoryResponse
			decodeBody(resp, &result)
			Expect(result.Count).To(Equal(2))
			Expect(result.Entries[0].Semantic).To(BeFalse())
		})

		It("rejects an unknown category with 400", func() {
			resp := getPath(server, "/v1/memory?category=meetings")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("honors the limit parameter", func() {
			resp := getPath(server, "/v1/memory?category=decisions&limit=1")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var result projectMemoryResponse
			decodeBody(resp, &result)
			Expect(result.Count).To(Equal(1))
		})
	})

	Describe("POST /v1/memory/relations", func() {
		It("links two recorded decisions", func() {
			first := postJSON(server, "/v1/memory/decisions", recordDecisionRequest{Decision: "use sqlite"})
			var a recordDecisionResponse
			decodeBody(first, &a)

			second := postJSON(server, "/v1/memory/decisions", recordDecisionRequest{Decision: "embed vectors in sqlite"})
			var b recordDecisionResponse
			decodeBody(second, &b)

			resp := postJSON(server, "/v1/memory/relations", relateDecisionsRequest{
				DecisionID:   b.StructuredID,
				RelatedID:    a.StructuredID,
				RelationType: "extends",
				Strength:     0.8,
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusCreated))
		})

		It("rejects a dangling decision id with 400", func() {
			first := postJSON(server, "/v1/memory/decisions", recordDecisionRequest{Decision: "use sqlite"})
			var a recordDecisionResponse
			decodeBody(first, &a)

			resp := postJSON(server, "/v1/memory/relations", relateDecisionsRequest{
				DecisionID:   a.StructuredID,
				RelatedID:    "no-such-decision",
				RelationType: "depends_on",
				Strength:     0.5,
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})
	})
})
