// Package cache provides a Redis-backed cache used for derived read-side data
// such as leaderboard snapshots.
package cache

import (
	"context"
	"time"
)

// Cache is the subset of Redis operations the application uses.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
