// Package cache holds the stores tag invocations cache their rendered
// output in.
package cache

import (
	"context"
	"time"
)

// Store is a key/value store for rendered text. A zero ttl never expires.
// Implementations are safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)
