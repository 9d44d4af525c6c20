package cache

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
)

// SQLiteBackend stores entries in a local SQLite file.
// Expired rows are skipped on read and reaped during key listing.
type SQLiteBackend struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the cache database at path.
// Use ":memory:" for a throwaway store.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// One connection keeps ":memory:" coherent and serializes writers
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &SQLiteBackend{db: db, now: time.Now}, nil
}

// migrate creates the cache schema
func migrate(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS cache_entries (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			expires_at INTEGER NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_cache_entries_expires ON cache_entries(expires_at)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the value for key if it has not expired
func (b *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		value     []byte
		expiresAt int64
	)
	err := b.db.QueryRowContext(ctx, `
		SELECT value, expires_at FROM cache_entries WHERE key = ?
	`, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite get: %w", ErrCacheUnavailable, err)
	}

	if b.now().UnixMilli() >= expiresAt {
		return nil, ErrMiss
	}
	return value, nil
}

// Set upserts the entry
func (b *SQLiteBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	expiresAt := b.now().Add(ttl).UnixMilli()
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, expires_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`, key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("%w: sqlite set: %w", ErrCacheUnavailable, err)
	}
	return nil
}

// Delete removes key
func (b *SQLiteBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("%w: sqlite delete: %w", ErrCacheUnavailable, err)
	}
	return nil
}

// Keys reaps expired rows, then lists live keys under prefix
func (b *SQLiteBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	now := b.now().UnixMilli()
	if _, err := b.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= ?`, now); err != nil {
		return nil, fmt.Errorf("%w: sqlite reap: %w", ErrCacheUnavailable, err)
	}

	rows, err := b.db.QueryContext(ctx, `
		SELECT key FROM cache_entries WHERE key LIKE ? ESCAPE '\' ORDER BY key
	`, escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite keys: %w", ErrCacheUnavailable, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("%w: sqlite scan: %w", ErrCacheUnavailable, err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: sqlite keys: %w", ErrCacheUnavailable, err)
	}
	return keys, nil
}

// Ping checks the database handle
func (b *SQLiteBackend) Ping(ctx context.Context) error {
	if err := b.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: sqlite ping: %w", ErrCacheUnavailable, err)
	}
	return nil
}

// Close closes the database
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// escapeLike escapes LIKE wildcards; "_" is common in cache keys
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
