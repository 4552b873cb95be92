// Package cache keeps the server IDs of projects, labels and users by name in
// a local SQLite database, so repeated quick adds skip search requests.
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

// Cache is a name-to-ID lookup cache. Rows older than the TTL are misses.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// Option configures a Cache
type Option func(*Cache)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// Open opens or creates the cache database at path. A ttl of zero means rows
// never expire.
func Open(path string, ttl time.Duration, opts ...Option) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	c := &Cache{db: db, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	return c, nil
}

func (c *Cache) initSchema() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS lookups (
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			id INTEGER NOT NULL,
			fetched_at INTEGER NOT NULL,
			PRIMARY KEY (kind, name)
		);
	`)
	return err
}

func foldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Get returns the cached ID for kind and name. Expired rows are misses.
func (c *Cache) Get(ctx context.Context, kind, name string) (int64, bool, error) {
	var id, fetchedAt int64
	err := c.db.QueryRowContext(ctx,
		`SELECT id, fetched_at FROM lookups WHERE kind = ? AND name = ?`,
		kind, foldName(name),
	).Scan(&id, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	if c.ttl > 0 && c.now().Sub(time.Unix(fetchedAt, 0)) > c.ttl {
		return 0, false, nil
	}
	return id, true, nil
}

// Put stores or refreshes an entry.
func (c *Cache) Put(ctx context.Context, kind, name string, id int64) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO lookups (kind, name, id, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(kind, name) DO UPDATE SET id = excluded.id, fetched_at = excluded.fetched_at`,
		kind, foldName(name), id, c.now().Unix(),
	)
	return err
}

// Clear removes every entry and returns how many were removed.
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM lookups`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close closes the database
func (c *Cache) Close() error {
	return c.db.Close()
}
