package mcp

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage/sqlite"
	testutils "github.com/papercomputeco/engram/pkg/utils/test"
)

func TestMCP(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "MCP Suite")
}

var _ = Describe("MCP Server", func() {
	var (
		server      *Server
		coordinator *memory.Coordinator
		embedder    *testutils.MockEmbedder
		ctx         context.Context
	)

	BeforeEach(func() {
		logger := zap.NewNop()
		store, err := sqlite.NewStore(sqlite.Config{DBPath: ":memory:"}, logger)
		Expect(err).NotTo(HaveOccurred())

		embedder = testutils.NewMockEmbedder()

		coordinator, err = memory.NewCoordinator(memory.Config{
			Storage:  store,
			Vector:   testutils.NewMockVectorDriver(),
			Embedder: embedder,
			Logger:   logger,
		})
		Expect(err).NotTo(HaveOccurred())

		server, err = NewServer(Config{
			Coordinator: coordinator,
			Logger:      logger,
		})
		Expect(err).NotTo(HaveOccurred())

		ctx = context.Background()
	})

	Describe("NewServer", func() {
		It("returns an error when coordinator is nil", func() {
			_, err := NewServer(Config{Logger: zap.NewNop()})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("memory coordinator is required"))
		})

		It("returns an error when logger is nil", func() {
			_, err := NewServer(Config{Coordinator: coordinator})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("logger is required"))
		})

		It("returns an HTTP handler", func() {
			Expect(server.Handler()).NotTo(BeNil())
		})

		It("builds a tool-less server with no handler when noop", func() {
			noop, err := NewServer(Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(noop.Handler()).To(BeNil())
		})
	})

	Describe("record_decision tool", func() {
		It("persists a decision and returns its identifiers", func() {
			result, output, err := server.handleRecordDecision(ctx, nil, RecordDecisionInput{
				Decision: "Adopt trunk-based development",
				Context:  "Long-lived branches keep diverging",
				Impact:   "medium",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeFalse())
			Expect(output.ID).NotTo(BeEmpty())
			Expect(output.EmbeddingRef).NotTo(BeEmpty())
			Expect(output.Warning).To(BeEmpty())
		})

		It("reports validation failures as tool errors", func() {
			result, _, err := server.handleRecordDecision(ctx, nil, RecordDecisionInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeTrue())
		})
	})

	Describe("track_progress tool", func() {
		It("records a milestone", func() {
			result, output, err := server.handleTrackProgress(ctx, nil, TrackProgressInput{
				Milestone: "vector backend",
				Status:    "completed",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeFalse())
			Expect(output.Status).To(Equal("completed"))
			Expect(output.ID).NotTo(BeEmpty())
		})

		It("rejects an unknown status", func() {
			result, _, err := server.handleTrackProgress(ctx, nil, TrackProgressInput{
				Milestone: "vector backend",
				Status:    "done-ish",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeTrue())
		})
	})

	Describe("search_memory tool", func() {
		BeforeEach(func() {
			_, output, err := server.handleRecordDecision(ctx, nil, RecordDecisionInput{
				Decision: "Ship the CLI before the web UI",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(output.ID).NotTo(BeEmpty())
		})

		It("finds recorded decisions", func() {
			result, output, err := server.handleSearchMemory(ctx, nil, SearchMemoryInput{
				Query:    "release order",
				Category: "decisions",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeFalse())
			Expect(output.Count).To(Equal(1))
			Expect(output.Results[0].Content).To(ContainSubstring("Ship the CLI"))
		})

		It("requires a category", func() {
			result, _, err := server.handleSearchMemory(ctx, nil, SearchMemoryInput{
				Query: "release order",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeTrue())
		})

		It("returns an empty result set rather than null", func() {
			result, output, err := server.handleSearchMemory(ctx, nil, SearchMemoryInput{
				Query:     "release order",
				Category:  "decisions",
				Threshold: 0.99999,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeFalse())
			Expect(output.Results).NotTo(BeNil())
			Expect(output.Count).To(Equal(0))
		})
	})

	Describe("add_code_pattern and find_similar_patterns tools", func() {
		input := AddCodePatternInput{
			FilePath: "pkg/pool/worker.go",
			Content:  "type Pool struct { jobs chan Job }",
			Language: "go",
		}

		It("stores a pattern and reports duplicates on resubmission", func() {
			result, first, err := server.handleAddCodePattern(ctx, nil, input)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeFalse())
			Expect(first.Status).To(Equal(memory.StatusCreated))

			result, second, err := server.handleAddCodePattern(ctx, nil, input)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeFalse())
			Expect(second.Status).To(Equal(memory.StatusExists))
			Expect(second.ID).To(Equal(first.ID))
		})

		It("surfaces stored patterns for a feature descriptor", func() {
			_, _, err := server.handleAddCodePattern(ctx, nil, input)
			Expect(err).NotTo(HaveOccurred())

			result, output, err := server.handleFindSimilarPatterns(ctx, nil, FindSimilarPatternsInput{
				Descriptor: "a worker pool with a job channel",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeFalse())
			Expect(output.Count).To(Equal(1))
			Expect(output.Results[0].Metadata).To(HaveKeyWithValue("file_path", "pkg/pool/worker.go"))
		})

		It("requires a descriptor", func() {
			result, _, err := server.handleFindSimilarPatterns(ctx, nil, FindSimilarPatternsInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeTrue())
		})
	})

	Describe("get_project_memory tool", func() {
		It("lists recent decisions", func() {
			for _, decision := range []string{"first", "second", "third"} {
				_, _, err := server.handleRecordDecision(ctx, nil, RecordDecisionInput{Decision: decision})
				Expect(err).NotTo(HaveOccurred())
			}

			result, output, err := server.handleGetProjectMemory(ctx, nil, GetProjectMemoryInput{
				Category: "decisions",
				Limit:    2,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeFalse())
			Expect(output.Count).To(Equal(2))
			Expect(output.Entries[0].Content).To(Equal("third"))
		})

		It("rejects an unknown category", func() {
			result, _, err := server.handleGetProjectMemory(ctx, nil, GetProjectMemoryInput{
				Category: "tickets",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeTrue())
		})
	})
})
