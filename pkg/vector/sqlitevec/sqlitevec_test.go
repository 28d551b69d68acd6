package sqlitevec_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/vector"
	"github.com/papercomputeco/engram/pkg/vector/sqlitevec"
)

func TestSQLiteVecDriver(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "SQLiteVec Driver Suite")
}

const testDimensions = 4

var _ = Describe("SQLiteVecDriver", func() {
	var (
		driver *sqlitevec.SQLiteVecDriver
		ctx    context.Context
	)

	BeforeEach(func() {
		var err error
		driver, err = sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
			DBPath:     ":memory:",
			Dimensions: testDimensions,
		}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	Describe("NewSQLiteVecDriver", func() {
		It("requires a database path", func() {
			_, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{Dimensions: testDimensions}, zap.NewNop())
			Expect(err).To(MatchError(vector.ErrConnection))
		})

		It("requires configured dimensions", func() {
			_, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{DBPath: ":memory:"}, zap.NewNop())
			Expect(err).To(MatchError(vector.ErrDimension))
		})
	})

	Describe("Add", func() {
		It("stores documents and replaces on duplicate IDs", func() {
			docs := []vector.Document{
				{ID: "doc-1", Project: "alpha", Content: "first", Embedding: []float32{1, 0, 0, 0}},
			}
			Expect(driver.Add(ctx, "decisions", docs)).To(Succeed())

			// Same ID, new content and embedding.
			docs[0].Content = "updated"
			docs[0].Embedding = []float32{0, 1, 0, 0}
			Expect(driver.Add(ctx, "decisions", docs)).To(Succeed())

			results, err := driver.Query(ctx, "decisions", []float32{0, 1, 0, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Content).To(Equal("updated"))
		})

		It("rejects embeddings with the wrong dimensionality", func() {
			docs := []vector.Document{
				{ID: "doc-1", Embedding: []float32{1, 0}},
			}
			Expect(driver.Add(ctx, "decisions", docs)).To(MatchError(vector.ErrDimension))
		})

		It("rejects index names outside the allowed character set", func() {
			docs := []vector.Document{
				{ID: "doc-1", Embedding: []float32{1, 0, 0, 0}},
			}
			Expect(driver.Add(ctx, "Decisions; DROP TABLE", docs)).To(MatchError(vector.ErrInvalidIndex))
		})
	})

	Describe("Query", func() {
		BeforeEach(func() {
			docs := []vector.Document{
				{ID: "doc-1", Project: "alpha", Content: "close", Embedding: []float32{1, 0, 0, 0},
					Metadata: map[string]string{"category": "decisions"}},
				{ID: "doc-2", Project: "alpha", Content: "far", Embedding: []float32{0, 1, 0, 0}},
				{ID: "doc-3", Project: "beta", Content: "middling", Embedding: []float32{0.7071, 0.7071, 0, 0}},
			}
			Expect(driver.Add(ctx, "decisions", docs)).To(Succeed())
		})

		It("orders results by descending similarity", func() {
			results, err := driver.Query(ctx, "decisions", []float32{1, 0, 0, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(results[0].ID).To(Equal("doc-1"))
			Expect(results[1].ID).To(Equal("doc-3"))
			Expect(results[2].ID).To(Equal("doc-2"))
		})

		It("reports cosine similarity", func() {
			results, err := driver.Query(ctx, "decisions", []float32{1, 0, 0, 0}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Similarity).To(BeNumerically("~", 1.0, 1e-4))
		})

		It("limits results to topK", func() {
			results, err := driver.Query(ctx, "decisions", []float32{1, 0, 0, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
		})

		It("returns document content and metadata", func() {
			results, err := driver.Query(ctx, "decisions", []float32{1, 0, 0, 0}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results[0].Project).To(Equal("alpha"))
			Expect(results[0].Content).To(Equal("close"))
			Expect(results[0].Metadata).To(HaveKeyWithValue("category", "decisions"))
		})

		It("returns nothing for an index that was never written", func() {
			results, err := driver.Query(ctx, "patterns", []float32{1, 0, 0, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})

		It("keeps indices isolated from each other", func() {
			other := []vector.Document{
				{ID: "pat-1", Project: "alpha", Content: "pattern", Embedding: []float32{1, 0, 0, 0}},
			}
			Expect(driver.Add(ctx, "code_patterns", other)).To(Succeed())

			results, err := driver.Query(ctx, "code_patterns", []float32{1, 0, 0, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("pat-1"))
		})
	})
})
