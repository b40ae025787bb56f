package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/desertthunder/lyricslide/internal/shared"
	"go.uber.org/multierr"
)

// ErrKeyNotFound is returned by [Store.Get] for a key that was never written.
var ErrKeyNotFound = errors.New("key not found")

// Store is a minimal key-value store holding JSON values.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// OpenStore opens the backend selected by cfg.Storage. The returned DB is
// non-nil only for the SQLite backend.
func OpenStore(cfg *shared.Config) (Store, *sql.DB, error) {
	switch cfg.Storage.Backend {
	case "file":
		return NewFileStore(cfg.Storage.FilePath), nil, nil
	case "sqlite", "":
		db, err := shared.OpenDatabase(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return &SQLiteStore{db: db, owned: true}, db, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown storage backend %q", shared.ErrInvalidConfig, cfg.Storage.Backend)
	}
}

// SQLiteStore keeps values in the kv_store table.
type SQLiteStore struct {
	db    *sql.DB
	owned bool
}

// NewSQLiteStore wraps an already migrated database. Close leaves db open.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get returns the value stored under key.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", shared.ErrPersistenceUnavailable, key, err)
	}
	return value, nil
}

// Put inserts or replaces the value under key.
func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("%w: write %s: %v", shared.ErrPersistenceUnavailable, key, err)
	}
	return nil
}

// Close closes the database when the store opened it.
func (s *SQLiteStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// FileStore keeps every key in one JSON object on disk. Writes go to a temp
// file that is renamed over the original.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path. The file is created on first Put.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) load() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", shared.ErrPersistenceUnavailable, s.path, err)
	}

	entries := map[string]json.RawMessage{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", shared.ErrPersistenceUnavailable, s.path, err)
	}
	return entries, nil
}

// Get returns the value stored under key.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	value, ok := entries[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return value, nil
}

// Put replaces the value under key. Values must be valid JSON.
func (s *FileStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !json.Valid(value) {
		return fmt.Errorf("%w: value for %s is not JSON", shared.ErrInvalidInput, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	entries[key] = value

	data, err := shared.MarshalJSON(entries, false)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", shared.ErrPersistenceUnavailable, err)
	}
	if err := writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPersistenceUnavailable, err)
	}
	return nil
}

// Close is a no-op; the file is not held open between calls.
func (s *FileStore) Close() error { return nil }

func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	_, err = tmp.Write(data)
	err = multierr.Combine(err, tmp.Sync(), tmp.Close())
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}
