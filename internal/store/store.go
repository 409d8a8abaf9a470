// Package store owns all persistence for the indexing engine: the
// relational schema, forward-only migrations, transactional
// upserts, and the query primitives the indexer and query layers
// build on.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sessionindex/sessionindex/internal/logging"
)

//go:embed schema.sql
var schemaSQL string

const ftsSchema = `
CREATE VIRTUAL TABLE IF NOT EXISTS fts_sessions USING fts5(
    session_id UNINDEXED,
    content,
    project,
    tokenize = 'unicode61 remove_diacritics 2'
);
`

// Store manages a single write connection and a read-only pool
// backed by SQLite, in WAL mode with a busy timeout generous enough
// to tolerate brief writer contention.
type Store struct {
	path   string
	writer atomic.Pointer[sql.DB]
	reader atomic.Pointer[sql.DB]
	mu     sync.Mutex
}

func (s *Store) getWriter() *sql.DB { return s.writer.Load() }
func (s *Store) getReader() *sql.DB { return s.reader.Load() }

// Path returns the backing database file path.
func (s *Store) Path() string { return s.path }

func makeDSN(path string, readOnly bool) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", "5000")
	params.Set("_foreign_keys", "ON")
	params.Set("_cache_size", "-64000")
	if readOnly {
		params.Set("mode", "ro")
	} else {
		params.Set("_synchronous", "NORMAL")
	}
	return path + "?" + params.Encode()
}

// Open creates or opens the database at path, applying the core
// schema and any pending migrations. Safe to delete the file at
// path (and its WAL/SHM sidecars) to force a full rebuild.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	writer, err := sql.Open("sqlite3", makeDSN(path, false))
	if err != nil {
		return nil, fmt.Errorf("opening writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	reader, err := sql.Open("sqlite3", makeDSN(path, true))
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("opening reader: %w", err)
	}
	reader.SetMaxOpenConns(4)

	s := &Store{path: path}
	s.writer.Store(writer)
	s.reader.Store(reader)

	if err := s.init(); err != nil {
		s.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return s, nil
}

func (s *Store) init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.getWriter()

	if _, err := w.Exec(schemaSQL); err != nil {
		return fmt.Errorf("core schema: %w", err)
	}

	if err := applyMigrations(w); err != nil {
		// Migrations are additive and non-fatal per-column; a
		// failure here is logged and indexing continues with
		// whatever columns exist.
		logging.Warn("migration failed, continuing with reduced schema", "error", err)
	}

	if _, err := w.Exec(ftsSchema); err != nil {
		if !strings.Contains(err.Error(), "no such module") {
			return fmt.Errorf("initializing fts: %w", err)
		}
		logging.Warn("fts5 module unavailable, search will fall back to unranked listing")
	}

	return nil
}

// HasFTS reports whether full-text search is usable against this
// database right now.
func (s *Store) HasFTS() bool {
	_, err := s.getReader().Exec("SELECT 1 FROM fts_sessions LIMIT 1")
	return err == nil
}

// Close closes both connections.
func (s *Store) Close() error {
	w := s.getWriter()
	r := s.getReader()
	werr := w.Close()
	rerr := r.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// Update runs fn inside a write transaction, committing on nil and
// rolling back otherwise.
func (s *Store) Update(fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.getWriter().Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Vacuum reclaims space from deleted rows.
func (s *Store) Vacuum() error {
	_, err := s.getWriter().Exec("VACUUM")
	if err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}
