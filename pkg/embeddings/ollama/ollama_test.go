package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/embeddings/ollama"
)

func TestOllamaEmbedder(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ollama Embedder Suite")
}

var _ = Describe("Embedder", func() {
	var (
		server *httptest.Server
		ctx    context.Context
	)

	AfterEach(func() {
		if server != nil {
			server.Close()
			server = nil
		}
	})

	BeforeEach(func() {
		ctx = context.Background()
	})

	newServer := func(embedding []float32) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/version":
				w.WriteHeader(http.StatusOK)
			case "/api/embed":
				var req struct {
					Model string `json:"model"`
					Input string `json:"input"`
				}
				Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
				Expect(req.Input).NotTo(BeEmpty())

				json.NewEncoder(w).Encode(map[string]any{
					"embeddings": [][]float32{embedding},
				})
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
	}

	It("returns a normalized embedding", func() {
		server = newServer([]float32{3, 4, 0})

		embedder, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())
		defer embedder.Close()

		emb, err := embedder.Embed(ctx, "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(emb).To(HaveLen(3))
		Expect(emb[0]).To(BeNumerically("~", 0.6, 1e-5))
		Expect(emb[1]).To(BeNumerically("~", 0.8, 1e-5))
	})

	It("reports ErrUnavailable when the provider is unreachable", func() {
		embedder, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: "http://127.0.0.1:1"})
		Expect(err).NotTo(HaveOccurred())
		defer embedder.Close()

		_, err = embedder.Embed(ctx, "hello")
		Expect(err).To(MatchError(embeddings.ErrUnavailable))
	})

	It("keeps reporting ErrUnavailable after a failed startup probe", func() {
		embedder, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: "http://127.0.0.1:1"})
		Expect(err).NotTo(HaveOccurred())
		defer embedder.Close()

		_, err = embedder.Embed(ctx, "first")
		Expect(err).To(MatchError(embeddings.ErrUnavailable))
		_, err = embedder.Embed(ctx, "second")
		Expect(err).To(MatchError(embeddings.ErrUnavailable))
	})

	It("reports ErrUnavailable on a non-200 embed response", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/version" {
				w.WriteHeader(http.StatusOK)
				return
			}
			http.Error(w, "model not found", http.StatusNotFound)
		}))

		embedder, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())
		defer embedder.Close()

		_, err = embedder.Embed(ctx, "hello")
		Expect(err).To(MatchError(embeddings.ErrUnavailable))
	})

	It("reports ErrUnavailable when the response has no embeddings", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/version" {
				w.WriteHeader(http.StatusOK)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{}})
		}))

		embedder, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())
		defer embedder.Close()

		_, err = embedder.Embed(ctx, "hello")
		Expect(err).To(MatchError(embeddings.ErrUnavailable))
	})
})
