// Package sqlite provides a SQLite-backed structured store for project
// memory using database/sql over the github.com/mattn/go-sqlite3 driver.
//
// The database runs in WAL mode so independent goroutines can read while a
// writer commits; writers to the same row serialize on SQLite's own locking
// with a busy timeout rather than table-level locks in Go.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/storage"
)

// Store implements storage.Driver backed by a single SQLite database file.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds configuration for the SQLite store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string
}

// NewStore opens (creating if necessary) the database at c.DBPath and runs
// schema migration.
func NewStore(c Config, logger *zap.Logger) (*Store, error) {
	if c.DBPath == "" {
		return nil, fmt.Errorf("%w: database path is required", storage.ErrUnavailable)
	}

	dsn := "file:" + c.DBPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_foreign_keys=on&_loc=UTC"
	if c.DBPath == ":memory:" {
		// WAL does not apply to in-memory databases; shared cache keeps the
		// pooled connections pointed at the same database.
		dsn = "file::memory:?cache=shared&_busy_timeout=5000&_foreign_keys=on&_loc=UTC"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", storage.ErrUnavailable, err)
	}
	if c.DBPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: pinging database: %v", storage.ErrUnavailable, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("sqlite structured store initialized",
		zap.String("db_path", c.DBPath),
	)

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// wrapConstraint maps SQLite constraint violations onto the storage
// sentinel errors; other errors pass through unchanged.
func wrapConstraint(err error) error {
	if err == nil {
		return nil
	}
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		switch serr.ExtendedCode {
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %v", storage.ErrInvalidReference, err)
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %v", storage.ErrDuplicate, err)
		}
	}
	return err
}

// marshalStrings encodes a string slice as a JSON column value. nil encodes
// as the empty list so column defaults stay comparable.
func marshalStrings(v []string) (string, error) {
	if len(v) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshaling string list: %w", err)
	}
	return string(b), nil
}

func unmarshalStrings(raw string) ([]string, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var v []string
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("unmarshaling string list: %w", err)
	}
	return v, nil
}

// inClause builds "?,?,?" placeholders and the matching args slice.
func inClause(ids []string) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ","), args
}

var _ storage.Driver = (*Store)(nil)
