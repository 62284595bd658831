package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/studyhall-ai/studyhall/pkg/models"
)

// SQLiteStore is a persistent Store for single-node deployments that
// need the cache to survive restarts without running Redis.
type SQLiteStore struct {
	db     *sql.DB
	hits   atomic.Int64
	misses atomic.Int64

	now func() time.Time
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key TEXT PRIMARY KEY,
	response BLOB NOT NULL,
	created_at DATETIME NOT NULL,
	ttl_seconds INTEGER NOT NULL
);
`

// NewSQLiteStore opens a SQLite-backed store and runs auto-migration.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Get implements Store. Read failures degrade to misses.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*models.CacheEntry, bool) {
	var (
		blob       []byte
		createdAt  time.Time
		ttlSeconds int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT response, created_at, ttl_seconds FROM cache_entries WHERE key = ?`, key,
	).Scan(&blob, &createdAt, &ttlSeconds)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Printf("cache: read %s: %v", key, err)
		}
		s.misses.Add(1)
		return nil, false
	}

	entry := &models.CacheEntry{
		CreatedAt: createdAt,
		TTL:       time.Duration(ttlSeconds) * time.Second,
	}
	if entry.Expired(s.now()) {
		s.misses.Add(1)
		return nil, false
	}
	if err := json.Unmarshal(blob, &entry.Response); err != nil {
		log.Printf("cache: decode %s: %v", key, err)
		s.misses.Add(1)
		return nil, false
	}

	s.hits.Add(1)
	return entry, true
}

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, key string, resp models.TeachResponse, ttl time.Duration) error {
	blob, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("cache put: encode %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache_entries (key, response, created_at, ttl_seconds)
		 VALUES (?, ?, ?, ?)`,
		key, blob, s.now().UTC(), int64(ttl.Seconds()),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Invalidate implements Store. SQLite's GLOB operator matches the same
// wildcard syntax used for keys elsewhere.
func (s *SQLiteStore) Invalidate(ctx context.Context, pattern string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key GLOB ?`, pattern)
	if err != nil {
		return 0, fmt.Errorf("cache invalidate %q: %w", pattern, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cache invalidate %q: %w", pattern, err)
	}
	return int(n), nil
}

// Stats implements Store.
func (s *SQLiteStore) Stats(ctx context.Context) models.CacheStats {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&count); err != nil {
		log.Printf("cache: stats: %v", err)
	}
	hits, misses := s.hits.Load(), s.misses.Load()
	return models.CacheStats{
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate(hits, misses),
		Total:   hits + misses,
		Entries: count,
	}
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
