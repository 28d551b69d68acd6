// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/vector"
)

// Index names become part of table identifiers, so they are restricted to a
// safe character set.
var indexNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// SQLiteVecDriver implements vector.Driver using SQLite with sqlite-vec.
// Each index maps to a pair of tables: a document table holding the string
// ID, project, content and metadata, and a vec0 virtual table holding the
// embedding keyed by the same rowid.
type SQLiteVecDriver struct {
	db     *sql.DB
	logger *zap.Logger

	dimensions uint

	mu      sync.Mutex
	indices map[string]struct{}
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewSQLiteVecDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewSQLiteVecDriver(c Config, logger *zap.Logger) (*SQLiteVecDriver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("%w: database path is required", vector.ErrConnection)
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("%w: embedding dimensions cannot be 0", vector.ErrDimension)
	}

	dsn := c.DBPath
	if dsn == ":memory:" {
		dsn = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", vector.ErrConnection, err)
	}
	// vec0 virtual tables are only visible on the connection that created
	// them, so keep a single connection.
	db.SetMaxOpenConns(1)

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite-vec not available: %v", vector.ErrConnection, err)
	}

	logger.Info("sqlite-vec vector driver initialized",
		zap.String("db_path", c.DBPath),
		zap.Uint("dimensions", c.Dimensions),
		zap.String("vec_version", vecVersion),
	)

	return &SQLiteVecDriver{
		db:         db,
		logger:     logger,
		dimensions: c.Dimensions,
		indices:    make(map[string]struct{}),
	}, nil
}

// ensureIndex creates the document and vec0 tables for an index on first
// use. Creation is idempotent, so the in-memory set is only a fast path.
func (d *SQLiteVecDriver) ensureIndex(ctx context.Context, index string) error {
	if !indexNamePattern.MatchString(index) {
		return fmt.Errorf("%w: %q", vector.ErrInvalidIndex, index)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.indices[index]; ok {
		return nil
	}

	createDocs := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS docs_%s (
			rowid    INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id   TEXT NOT NULL UNIQUE,
			project  TEXT NOT NULL DEFAULT '',
			content  TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}'
		)
	`, index)
	if _, err := d.db.ExecContext(ctx, createDocs); err != nil {
		return fmt.Errorf("creating documents table for index %s: %w", index, err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_%s USING vec0(embedding float[%d] distance_metric=cosine)`,
		index, d.dimensions,
	)
	if _, err := d.db.ExecContext(ctx, createVec); err != nil {
		return fmt.Errorf("creating vec0 table for index %s: %w", index, err)
	}

	d.indices[index] = struct{}{}
	return nil
}

// indexExists reports whether an index's tables are present in the schema.
func (d *SQLiteVecDriver) indexExists(ctx context.Context, index string) (bool, error) {
	d.mu.Lock()
	if _, ok := d.indices[index]; ok {
		d.mu.Unlock()
		return true, nil
	}
	d.mu.Unlock()

	var name string
	err := d.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`,
		"docs_"+index,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking index %s: %w", index, err)
	}
	return true, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Add stores documents with their embeddings in the named index.
// If a document with the same ID already exists, it is replaced.
func (d *SQLiteVecDriver) Add(ctx context.Context, index string, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := d.ensureIndex(ctx, index); err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, doc := range docs {
		if uint(len(doc.Embedding)) != d.dimensions {
			return fmt.Errorf("%w: doc %s has %d dimensions, index expects %d",
				vector.ErrDimension, doc.ID, len(doc.Embedding), d.dimensions)
		}

		metadata, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for doc %s: %w", doc.ID, err)
		}
		embBlob := serializeFloat32(doc.Embedding)

		// Check if document already exists
		var existingRowID int64
		err = tx.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT rowid FROM docs_%s WHERE doc_id = ?`, index), doc.ID,
		).Scan(&existingRowID)

		switch err {
		case nil:
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`UPDATE docs_%s SET project = ?, content = ?, metadata = ? WHERE rowid = ?`, index),
				doc.Project, doc.Content, string(metadata), existingRowID,
			); err != nil {
				return fmt.Errorf("updating document %s: %w", doc.ID, err)
			}

			// vec0 does not support UPDATE, so replace via DELETE + INSERT
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`DELETE FROM vec_%s WHERE rowid = ?`, index), existingRowID,
			); err != nil {
				return fmt.Errorf("deleting old embedding for doc %s: %w", doc.ID, err)
			}
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO vec_%s(rowid, embedding) VALUES (?, ?)`, index),
				existingRowID, embBlob,
			); err != nil {
				return fmt.Errorf("re-inserting embedding for doc %s: %w", doc.ID, err)
			}
		case sql.ErrNoRows:
			// New document: insert into the mapping table first to get
			// the rowid the embedding is keyed by.
			result, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO docs_%s(doc_id, project, content, metadata) VALUES (?, ?, ?, ?)`, index),
				doc.ID, doc.Project, doc.Content, string(metadata),
			)
			if err != nil {
				return fmt.Errorf("inserting document %s: %w", doc.ID, err)
			}

			rowID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting rowid for doc %s: %w", doc.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO vec_%s(rowid, embedding) VALUES (?, ?)`, index),
				rowID, embBlob,
			); err != nil {
				return fmt.Errorf("inserting embedding for doc %s: %w", doc.ID, err)
			}
		default:
			return fmt.Errorf("checking for existing document %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("added documents to sqlite-vec",
		zap.String("index", index),
		zap.Int("count", len(docs)),
	)

	return nil
}

// Query finds the topK most similar documents in the named index. The vec0
// table is declared with the cosine metric, so similarity is 1 - distance.
func (d *SQLiteVecDriver) Query(ctx context.Context, index string, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if !indexNamePattern.MatchString(index) {
		return nil, fmt.Errorf("%w: %q", vector.ErrInvalidIndex, index)
	}
	if topK <= 0 {
		topK = 10
	}

	exists, err := d.indexExists(ctx, index)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	if uint(len(embedding)) != d.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index expects %d",
			vector.ErrDimension, len(embedding), d.dimensions)
	}

	queryBlob := serializeFloat32(embedding)

	// KNN query via vec0 MATCH, joined back to the document table.
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT
			doc.doc_id,
			doc.project,
			doc.content,
			doc.metadata,
			ve.distance
		FROM vec_%s ve
		INNER JOIN docs_%s doc ON doc.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`, index, index), queryBlob, topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.QueryResult
	for rows.Next() {
		var (
			docID, project, content, rawMetadata string
			distance                             float64
		)
		if err := rows.Scan(&docID, &project, &content, &rawMetadata, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		metadata := map[string]string{}
		if err := json.Unmarshal([]byte(rawMetadata), &metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata for doc %s: %w", docID, err)
		}

		results = append(results, vector.QueryResult{
			Document: vector.Document{
				ID:       docID,
				Project:  project,
				Content:  content,
				Metadata: metadata,
			},
			Similarity: float32(1.0 - distance),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried sqlite-vec",
		zap.String("index", index),
		zap.Int("results", len(results)),
	)

	return results, nil
}

// Close releases resources held by the driver.
func (d *SQLiteVecDriver) Close() error {
	return d.db.Close()
}

var _ vector.Driver = (*SQLiteVecDriver)(nil)
