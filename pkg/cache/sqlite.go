package cache

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ojasjagtap/prompt-ide/pkg/errors"
	"github.com/ojasjagtap/prompt-ide/pkg/logging"
)

// SQLiteCache persists generation results across worker invocations so
// repeated optimization runs over the same dataset do not re-pay for
// identical model calls.
type SQLiteCache struct {
	db    *sql.DB
	stats Stats
	mu    sync.RWMutex
}

// NewSQLiteCache opens (or creates) a cache database at path.
func NewSQLiteCache(path string) (*SQLiteCache, error) {
	if path == "" {
		return nil, errors.New(errors.InvalidInput, "cache path is required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to open cache database"),
			errors.Fields{
				"path": path,
			})
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	c := &SQLiteCache{db: db}
	if err := c.initDB(); err != nil {
		db.Close()
		return nil, errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to initialize cache schema"),
			errors.Fields{
				"path": path,
			})
	}

	// WAL lets concurrent evaluation goroutines read while the writer
	// records new generations.
	logger := logging.GetLogger()
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			logger.Warn(context.Background(), "failed to set pragma %s: %v", pragma, err)
		}
	}

	c.loadStats()
	return c, nil
}

func (c *SQLiteCache) initDB() error {
	query := `
	CREATE TABLE IF NOT EXISTS generations (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at INTEGER,
		created_at INTEGER NOT NULL,
		accessed_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_generations_expires_at ON generations(expires_at) WHERE expires_at > 0;
	`

	_, err := c.db.Exec(query)
	return err
}

func (c *SQLiteCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := `
	SELECT value FROM generations
	WHERE key = ? AND (expires_at = 0 OR expires_at IS NULL OR expires_at > ?)
	`

	var value []byte
	now := time.Now().UnixNano()

	err := c.db.QueryRowContext(ctx, query, key, now).Scan(&value)
	if err == sql.ErrNoRows {
		atomic.AddInt64(&c.stats.Misses, 1)
		return nil, false, nil
	}
	if err != nil {
		atomic.AddInt64(&c.stats.Misses, 1)
		return nil, false, errors.Wrap(err, errors.Unknown, "failed to read cache entry")
	}

	if _, err := c.db.ExecContext(ctx, `UPDATE generations SET accessed_at = ? WHERE key = ?`, now, key); err != nil {
		logging.GetLogger().Warn(ctx, "failed to update cache access time: %v", err)
	}

	atomic.AddInt64(&c.stats.Hits, 1)
	c.mu.Lock()
	c.stats.LastAccess = time.Now()
	c.mu.Unlock()

	return value, true, nil
}

func (c *SQLiteCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := time.Now()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixNano()
	}

	query := `
	INSERT OR REPLACE INTO generations (key, value, expires_at, created_at, accessed_at)
	VALUES (?, ?, ?, ?, ?)
	`

	if _, err := c.db.ExecContext(ctx, query, key, value, expiresAt, now.UnixNano(), now.UnixNano()); err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to write cache entry")
	}

	atomic.AddInt64(&c.stats.Sets, 1)
	atomic.AddInt64(&c.stats.Size, int64(len(value)))
	c.mu.Lock()
	c.stats.LastAccess = now
	c.mu.Unlock()

	return nil
}

func (c *SQLiteCache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM generations`); err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to clear cache")
	}

	atomic.StoreInt64(&c.stats.Hits, 0)
	atomic.StoreInt64(&c.stats.Misses, 0)
	atomic.StoreInt64(&c.stats.Sets, 0)
	atomic.StoreInt64(&c.stats.Size, 0)

	return nil
}

func (c *SQLiteCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{
		Hits:       atomic.LoadInt64(&c.stats.Hits),
		Misses:     atomic.LoadInt64(&c.stats.Misses),
		Sets:       atomic.LoadInt64(&c.stats.Sets),
		Size:       atomic.LoadInt64(&c.stats.Size),
		LastAccess: c.stats.LastAccess,
	}
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

func (c *SQLiteCache) loadStats() {
	var totalSize int64
	if err := c.db.QueryRow(`SELECT COALESCE(SUM(LENGTH(value)), 0) FROM generations`).Scan(&totalSize); err != nil {
		logging.GetLogger().Warn(context.Background(), "failed to load cache size: %v", err)
		return
	}
	atomic.StoreInt64(&c.stats.Size, totalSize)
}
