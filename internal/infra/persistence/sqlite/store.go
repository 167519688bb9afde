// Package sqlite persists the roster snapshot to an embedded SQLite file, the
// durable local cache of every deployment.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"dutyroster/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.LocalStore = (*Store)(nil)

// Store writes the full snapshot as a single JSON payload after every save.
// The table holds exactly one row; saves are whole replacements.
type Store struct {
	db   *sql.DB
	cfg  domain.Config
	mu   sync.Mutex
	path string
}

// New opens (or creates) the snapshot database at path.
func New(path string, cfg domain.Config) (*Store, error) {
	if path == "" {
		path = "dutyroster.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS roster_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		payload BLOB NOT NULL,
		saved_at TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create roster_state table: %w", err)
	}
	return &Store{db: db, cfg: cfg, path: path}, nil
}

// Load reads and validates the last saved snapshot. A corrupt payload fails
// closed with ErrMalformedSnapshot rather than being partially adopted.
func (s *Store) Load(ctx context.Context) (domain.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM roster_state WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Snapshot{}, false, nil
	}
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("select snapshot: %w", err)
	}
	snap, err := domain.DecodeSnapshot(payload, s.cfg)
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	return snap, true, nil
}

// Save replaces the stored snapshot.
func (s *Store) Save(ctx context.Context, snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := domain.EncodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO roster_state(id, payload, saved_at) VALUES(1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET payload=excluded.payload, saved_at=excluded.saved_at`,
		payload, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }
