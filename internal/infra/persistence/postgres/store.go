// Package postgres implements the shared remote document store on
// PostgreSQL. The document lives in a single row; LISTEN/NOTIFY delivers
// push notifications to subscribed clients.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"dutyroster/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.RemoteStore = (*Store)(nil)

const (
	defaultDSN = "postgres://localhost/dutyroster?sslmode=disable"
	// docID is the well-known key of the single shared document.
	docID = "systemState"
	// notifyChannel carries change notifications. The payload is a small
	// origin/revision header; subscribers re-load the full document, which
	// can exceed the NOTIFY size limit.
	notifyChannel = "duty_state_changed"
)

// Store holds the shared roster document in the duty_state table.
type Store struct {
	db  *sql.DB
	dsn string
	cfg domain.Config
	mu  sync.Mutex
}

// changeHeader is the NOTIFY payload.
type changeHeader struct {
	Origin   string `json:"origin"`
	Revision int64  `json:"revision"`
}

// New opens the remote store, creating the document table if needed.
func New(dsn string, cfg domain.Config) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS duty_state (
		doc_id TEXT PRIMARY KEY,
		payload JSONB NOT NULL,
		last_updated TIMESTAMPTZ NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure duty_state table: %w", err)
	}
	return &Store{db: db, dsn: dsn, cfg: cfg}, nil
}

// Ping probes the server.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	return nil
}

// Load reads and validates the shared document.
func (s *Store) Load(ctx context.Context) (domain.RemoteDocument, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM duty_state WHERE doc_id = $1`, docID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RemoteDocument{}, false, nil
	}
	if err != nil {
		return domain.RemoteDocument{}, false, fmt.Errorf("select document: %w", err)
	}
	doc, err := domain.DecodeRemoteDocument(payload, s.cfg)
	if err != nil {
		return domain.RemoteDocument{}, false, err
	}
	return doc, true, nil
}

// Save replaces the shared document wholesale and notifies listeners.
func (s *Store) Save(ctx context.Context, doc domain.RemoteDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := domain.EncodeRemoteDocument(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	header, err := json.Marshal(changeHeader{Origin: doc.Origin, Revision: doc.Revision})
	if err != nil {
		return fmt.Errorf("encode change header: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO duty_state(doc_id, payload, last_updated) VALUES($1, $2, $3)
		 ON CONFLICT(doc_id) DO UPDATE SET payload=excluded.payload, last_updated=excluded.last_updated`,
		docID, payload, doc.LastUpdated); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, string(header)); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return tx.Commit()
}

// Subscribe opens a dedicated LISTEN connection and re-loads the document on
// every notification. The returned function stops the listener.
func (s *Store) Subscribe(ctx context.Context, onChange func(domain.RemoteDocument)) (func(), error) {
	conn, err := pgx.Connect(ctx, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("listen: %w", err)
	}
	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer closeCancel()
			_ = conn.Close(closeCtx)
		}()
		for {
			if _, err := conn.WaitForNotification(subCtx); err != nil {
				return
			}
			doc, ok, err := s.Load(subCtx)
			if err != nil || !ok {
				continue
			}
			onChange(doc)
		}
	}()
	return func() {
		cancel()
		<-done
	}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// DecodeChangeHeader parses a NOTIFY payload.
func DecodeChangeHeader(payload string) (origin string, revision int64, err error) {
	var h changeHeader
	if err := json.Unmarshal([]byte(payload), &h); err != nil {
		return "", 0, fmt.Errorf("decode change header: %w", err)
	}
	return h.Origin, h.Revision, nil
}
