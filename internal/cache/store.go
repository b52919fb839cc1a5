// Package cache keeps fetched papers in a local SQLite database so repeated
// detail lookups skip the server.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jason-riddle/paperdash/internal/clock"
)

// DefaultTTL is how long a cached entry stays fresh (12 hours).
const DefaultTTL = 12 * time.Hour

// FileName is the database file inside the cache directory.
const FileName = "cache.db"

const schema = `CREATE TABLE IF NOT EXISTS entries (
    kind TEXT NOT NULL,
    key TEXT NOT NULL,
    data BLOB NOT NULL,
    fetched_at INTEGER NOT NULL,
    PRIMARY KEY (kind, key)
);

CREATE INDEX IF NOT EXISTS idx_entries_fetched_at ON entries(fetched_at);
`

// Dir returns the cache directory, preferring XDG_CACHE_HOME.
func Dir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, "paperdash"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	return filepath.Join(home, ".cache", "paperdash"), nil
}

// Entry is one cached value.
type Entry struct {
	Data      []byte
	FetchedAt time.Time
}

// Stale reports whether e is older than ttl at now.
func (e Entry) Stale(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) > ttl
}

// Store is a key/value cache grouped by kind.
type Store struct {
	conn  *sql.DB
	path  string
	clock clock.Clock
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock sets the clock used to stamp entries.
func WithClock(c clock.Clock) StoreOption {
	return func(s *Store) {
		s.clock = c
	}
}

// Open opens (creating if needed) the database at path. The special path
// ":memory:" gives a private in-memory store.
func Open(path string, opts ...StoreOption) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	// Every in-memory connection is its own database.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	s := &Store{conn: conn, path: path, clock: clock.Real()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Get returns the entry for kind/key. ok is false when there is none.
func (s *Store) Get(ctx context.Context, kind, key string) (entry Entry, ok bool, err error) {
	var fetched int64
	row := s.conn.QueryRowContext(ctx, `SELECT data, fetched_at FROM entries WHERE kind = ? AND key = ?`, kind, key)
	if err := row.Scan(&entry.Data, &fetched); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("read cache entry: %w", err)
	}
	entry.FetchedAt = time.UnixMilli(fetched)
	return entry, true, nil
}

// Put stores data under kind/key, stamped with the current time.
func (s *Store) Put(ctx context.Context, kind, key string, data []byte) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO entries (kind, key, data, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (kind, key) DO UPDATE SET data = excluded.data, fetched_at = excluded.fetched_at`,
		kind, key, data, s.clock.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Delete removes kind/key.
func (s *Store) Delete(ctx context.Context, kind, key string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM entries WHERE kind = ? AND key = ?`, kind, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// Prune removes entries older than ttl and returns how many were removed.
func (s *Store) Prune(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := s.clock.Now().Add(-ttl).UnixMilli()
	res, err := s.conn.ExecContext(ctx, `DELETE FROM entries WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	return res.RowsAffected()
}

// Purge removes every entry and returns how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM entries`)
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of entries of kind, or of all kinds when kind is
// empty.
func (s *Store) Count(ctx context.Context, kind string) (int, error) {
	var n int
	var err error
	if kind == "" {
		err = s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n)
	} else {
		err = s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE kind = ?`, kind).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return n, nil
}

// OpenDir opens the store in dir, or in the default cache directory when dir
// is empty. If the disk is unusable it logs a warning and falls back to an
// in-memory store.
func OpenDir(dir string, logger *slog.Logger, opts ...StoreOption) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if dir == "" {
		d, err := Dir()
		if err != nil {
			logger.Warn("could not determine cache directory, using in-memory cache", "error", err)
			return Open(":memory:", opts...)
		}
		dir = d
	}

	s, err := Open(filepath.Join(dir, FileName), opts...)
	if err != nil {
		logger.Warn("could not open cache, using in-memory cache", "dir", dir, "error", err)
		return Open(":memory:", opts...)
	}
	return s, nil
}
