// Package store provides the durable local cache of reminder records.
//
// The store is the single source of truth when the network is unavailable.
// Records are persisted as one keyed blob: a single row in a SQLite
// key/value table whose value is the JSON-serialized ordered list of
// reminders. Every mutation is a whole-list read-modify-write cycle,
// serialized per store instance so overlapping operations cannot drop each
// other's changes.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"remind/internal/schema"
)

var (
	// ErrNotFound is returned when an identity addresses no record.
	ErrNotFound = errors.New("reminder not found")

	// ErrPersistence is returned when the underlying medium cannot be
	// read or written. The caller must assume the mutation did not happen.
	ErrPersistence = errors.New("reminder storage unavailable")
)

// blobKey is the single key the reminder list lives under.
const blobKey = "reminders"

// Store is a durable, crash-tolerant list of reminder records.
//
// A Store owns its database handle and its serialization; there is no
// ambient shared state. Use Open to create one and Close when done.
type Store struct {
	conn   *sql.DB
	path   string
	logger *log.Logger

	// mu serializes the full read-modify-write cycle of every mutation,
	// not just the final write. Reads go through without it.
	mu sync.Mutex
}

// Open creates or opens the store database at path.
//
// If logger is nil, a default logger writing to stderr is used.
func Open(path string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[store] ", log.LstdFlags)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create store directory: %v", ErrPersistence, err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open store: %v", ErrPersistence, err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: failed to ping store: %v", ErrPersistence, err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: failed to enable WAL mode: %v", ErrPersistence, err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: failed to set busy timeout: %v", ErrPersistence, err)
	}

	createTable := `
	CREATE TABLE IF NOT EXISTS storage (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`
	if _, err := conn.Exec(createTable); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: failed to create storage table: %v", ErrPersistence, err)
	}

	return &Store{conn: conn, path: path, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	s.conn = nil
	return nil
}

// Path returns the filesystem location of the store database.
func (s *Store) Path() string {
	return s.path
}

// Append adds a new record to the end of the list.
func (s *Store) Append(ctx context.Context, rec *schema.Reminder) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("cannot append invalid reminder: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return err
	}
	list = append(list, *rec)
	return s.flush(ctx, list)
}

// List returns the full ordered sequence of current records. Insertion
// order is preserved; sorting is a presentation concern of the caller.
func (s *Store) List(ctx context.Context) ([]schema.Reminder, error) {
	return s.load(ctx)
}

// Find returns the record addressed by the given identity.
// Returns ErrNotFound if no record matches.
func (s *Store) Find(ctx context.Context, id schema.Identity) (*schema.Reminder, error) {
	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if i := schema.Resolve(list, id); i >= 0 {
		rec := list[i]
		return &rec, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Replace atomically substitutes the record addressed by id with rec.
// The whole list is re-serialized with the one record replaced. If the
// identity is not found the operation fails with ErrNotFound; there is no
// silent insert.
func (s *Store) Replace(ctx context.Context, id schema.Identity, rec *schema.Reminder) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("cannot store invalid reminder: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := schema.Resolve(list, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	list[i] = *rec
	return s.flush(ctx, list)
}

// Remove atomically deletes the record addressed by id. Removing an absent
// identity is a no-op, keeping delete idempotent.
func (s *Store) Remove(ctx context.Context, id schema.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := schema.Resolve(list, id)
	if i < 0 {
		return nil
	}
	list = append(list[:i], list[i+1:]...)
	return s.flush(ctx, list)
}

// Transform applies fn to the current list and persists the result, all
// under the store's single-flight serialization. It exists for multi-record
// reconciliation (the pull merge) that cannot be expressed as a sequence of
// independent Replace calls without racing.
func (s *Store) Transform(ctx context.Context, fn func([]schema.Reminder) []schema.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return err
	}
	return s.flush(ctx, fn(list))
}

// load reads and decodes the blob. A missing row is an empty store. An
// undecodable payload is logged and treated as empty so a previous corrupt
// write cannot make the store permanently unusable.
func (s *Store) load(ctx context.Context) ([]schema.Reminder, error) {
	var value string
	err := s.conn.QueryRowContext(ctx, "SELECT value FROM storage WHERE key = ?", blobKey).Scan(&value)
	if err == sql.ErrNoRows {
		return []schema.Reminder{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read reminder blob: %v", ErrPersistence, err)
	}

	var list []schema.Reminder
	if err := json.Unmarshal([]byte(value), &list); err != nil {
		s.logger.Printf("WARNING: reminder blob is corrupt, starting empty: %v", err)
		return []schema.Reminder{}, nil
	}
	return list, nil
}

// flush serializes the whole list and writes it back as one blob.
func (s *Store) flush(ctx context.Context, list []schema.Reminder) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("%w: failed to encode reminder blob: %v", ErrPersistence, err)
	}

	query := `
	INSERT INTO storage (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := s.conn.ExecContext(ctx, query, blobKey, string(data)); err != nil {
		return fmt.Errorf("%w: failed to write reminder blob: %v", ErrPersistence, err)
	}
	return nil
}
