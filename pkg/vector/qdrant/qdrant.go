// Package qdrant provides a vector driver backed by a Qdrant server over
// gRPC, for deployments where the memory index outgrows embedded storage.
package qdrant

import (
	"context"
	"fmt"
	"sync"

	qdrantgo "github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/vector"
)

// Reserved payload keys used for document fields. Everything else in the
// payload is treated as document metadata.
const (
	payloadDocID   = "doc_id"
	payloadProject = "project"
	payloadContent = "content"
)

// QdrantDriver implements vector.Driver against a Qdrant instance. Each
// index maps to a collection created on first write with the cosine
// distance metric.
type QdrantDriver struct {
	client *qdrantgo.Client
	logger *zap.Logger

	dimensions uint

	mu          sync.Mutex
	collections map[string]struct{}
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Host is the Qdrant server hostname.
	Host string

	// Port is the Qdrant gRPC port. Defaults to 6334.
	Port int

	// UseTLS enables TLS on the gRPC connection.
	UseTLS bool

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewQdrantDriver creates a new Qdrant vector driver and verifies the
// server is reachable.
func NewQdrantDriver(ctx context.Context, c Config, logger *zap.Logger) (*QdrantDriver, error) {
	if c.Host == "" {
		return nil, fmt.Errorf("%w: qdrant host is required", vector.ErrConnection)
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("%w: embedding dimensions cannot be 0", vector.ErrDimension)
	}
	if c.Port == 0 {
		c.Port = 6334
	}

	client, err := qdrantgo.NewClient(&qdrantgo.Config{
		Host:   c.Host,
		Port:   c.Port,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}

	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: health check: %v", vector.ErrConnection, err)
	}

	logger.Info("qdrant vector driver initialized",
		zap.String("host", c.Host),
		zap.Int("port", c.Port),
		zap.Uint("dimensions", c.Dimensions),
	)

	return &QdrantDriver{
		client:      client,
		logger:      logger,
		dimensions:  c.Dimensions,
		collections: make(map[string]struct{}),
	}, nil
}

func (d *QdrantDriver) ensureCollection(ctx context.Context, index string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.collections[index]; ok {
		return nil
	}

	exists, err := d.client.CollectionExists(ctx, index)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", index, err)
	}
	if !exists {
		err := d.client.CreateCollection(ctx, &qdrantgo.CreateCollection{
			CollectionName: index,
			VectorsConfig: qdrantgo.NewVectorsConfig(&qdrantgo.VectorParams{
				Size:     uint64(d.dimensions),
				Distance: qdrantgo.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("creating collection %s: %w", index, err)
		}
	}

	d.collections[index] = struct{}{}
	return nil
}

// Add stores documents with their embeddings in the named index. Points are
// keyed by the document ID, so re-adding an ID replaces the point.
func (d *QdrantDriver) Add(ctx context.Context, index string, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := d.ensureCollection(ctx, index); err != nil {
		return err
	}

	points := make([]*qdrantgo.PointStruct, 0, len(docs))
	for _, doc := range docs {
		if uint(len(doc.Embedding)) != d.dimensions {
			return fmt.Errorf("%w: doc %s has %d dimensions, index expects %d",
				vector.ErrDimension, doc.ID, len(doc.Embedding), d.dimensions)
		}

		payload := map[string]*qdrantgo.Value{
			payloadDocID:   {Kind: &qdrantgo.Value_StringValue{StringValue: doc.ID}},
			payloadProject: {Kind: &qdrantgo.Value_StringValue{StringValue: doc.Project}},
			payloadContent: {Kind: &qdrantgo.Value_StringValue{StringValue: doc.Content}},
		}
		for k, v := range doc.Metadata {
			payload[k] = &qdrantgo.Value{Kind: &qdrantgo.Value_StringValue{StringValue: v}}
		}

		points = append(points, &qdrantgo.PointStruct{
			Id:      qdrantgo.NewIDUUID(doc.ID),
			Vectors: qdrantgo.NewVectors(doc.Embedding...),
			Payload: payload,
		})
	}

	_, err := d.client.Upsert(ctx, &qdrantgo.UpsertPoints{
		CollectionName: index,
		Points:         points,
		Wait:           qdrantgo.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("upserting points to %s: %w", index, err)
	}

	d.logger.Debug("added documents to qdrant",
		zap.String("index", index),
		zap.Int("count", len(docs)),
	)

	return nil
}

// Query finds the topK most similar documents in the named index. Qdrant
// reports cosine similarity directly as the point score.
func (d *QdrantDriver) Query(ctx context.Context, index string, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	exists, err := d.client.CollectionExists(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("checking collection %s: %w", index, err)
	}
	if !exists {
		return nil, nil
	}

	points, err := d.client.Query(ctx, &qdrantgo.QueryPoints{
		CollectionName: index,
		Query:          qdrantgo.NewQuery(embedding...),
		Limit:          qdrantgo.PtrOf(uint64(topK)),
		WithPayload:    qdrantgo.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", index, err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, p := range points {
		doc := vector.Document{Metadata: map[string]string{}}
		for k, v := range p.GetPayload() {
			s := v.GetStringValue()
			switch k {
			case payloadDocID:
				doc.ID = s
			case payloadProject:
				doc.Project = s
			case payloadContent:
				doc.Content = s
			default:
				doc.Metadata[k] = s
			}
		}

		results = append(results, vector.QueryResult{
			Document:   doc,
			Similarity: p.GetScore(),
		})
	}

	d.logger.Debug("queried qdrant",
		zap.String("index", index),
		zap.Int("results", len(results)),
	)

	return results, nil
}

// Close closes the gRPC connection.
func (d *QdrantDriver) Close() error {
	return d.client.Close()
}

var _ vector.Driver = (*QdrantDriver)(nil)
