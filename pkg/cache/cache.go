package cache

import (
	"context"
	"time"
)

// Cache is the storage contract for memoized generations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Clear(ctx context.Context) error
	Stats() Stats
	Close() error
}

// Stats tracks cache effectiveness over the lifetime of a job.
type Stats struct {
	Hits       int64
	Misses     int64
	Sets       int64
	Size       int64
	LastAccess time.Time
}
