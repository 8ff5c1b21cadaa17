package cache

import (
	"context"
	"time"
)

// Stats summarises the cache table at one instant. Active + Expired == Total
// at computation time.
type Stats struct {
	Total   int64 `json:"total_count"`
	Active  int64 `json:"active_count"`
	Expired int64 `json:"expired_count"`
}

// Store represents the shared cache interface used across the application.
// Entries are UTF-8 text; expired entries behave as absent on Get even while
// still physically stored.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, content string, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
	SweepExpired(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (Stats, error)
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}
