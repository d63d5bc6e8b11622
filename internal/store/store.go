package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/adeleeuw3/NLVreport/internal/catalog"
)

var (
	// ErrNotAuthenticated is returned for any operation without a user id.
	ErrNotAuthenticated = errors.New("User not authenticated")
	// ErrNotFound is returned when a keyed record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("already exists")
)

// Store persists reports, dashboards and identities in SQLite. Every
// report and dashboard row is scoped by user id.
type Store struct {
	DBPath string
	// Catalog decides which inputs are array-typed when normalizing saves.
	Catalog *catalog.Catalog
	db      *sql.DB
	now     func() time.Time
}

// Open opens or creates the store database.
func Open(path string) (*Store, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve store db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure store db dir: %w", err)
	}

	db, err := sql.Open("sqlite", absPath)
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}
	// One writer keeps concurrent range reads from tripping SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{
		DBPath:  absPath,
		Catalog: catalog.Default(),
		db:      db,
		now:     time.Now,
	}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) ensureSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS reports (
	user_id TEXT NOT NULL,
	id TEXT NOT NULL,
	month TEXT NOT NULL,
	year INTEGER NOT NULL,
	title TEXT,
	layout TEXT,
	created_at INTEGER NOT NULL,
	data_json TEXT NOT NULL,
	PRIMARY KEY (user_id, id)
);

CREATE INDEX IF NOT EXISTS idx_reports_user_year ON reports(user_id, year);

CREATE TABLE IF NOT EXISTS dashboards (
	user_id TEXT NOT NULL,
	id TEXT NOT NULL,
	title TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	form_data_json TEXT NOT NULL,
	PRIMARY KEY (user_id, id)
);

CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value TEXT
);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create store schema: %w", err)
	}
	return nil
}

// GetKV retrieves a value from the key-value store.
func (s *Store) GetKV(ctx context.Context, key string) (string, error) {
	var value sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get kv %s: %w", key, err)
	}
	return value.String, nil
}

// SetKV sets a value in the key-value store.
func (s *Store) SetKV(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, "INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)", key, value); err != nil {
		return fmt.Errorf("set kv %s: %w", key, err)
	}
	return nil
}

// DeleteKV removes a key.
func (s *Store) DeleteKV(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete kv %s: %w", key, err)
	}
	return nil
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrNotAuthenticated
	}
	return nil
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
