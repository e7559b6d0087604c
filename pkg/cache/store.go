package cache

import (
	"context"
	"time"
)

// Store is the key-value backing store behind the Manager.
// Implementations return ErrCacheMiss from Get when the key is absent.
type Store interface {
	// Layer names the store for metrics and logs (e.g. "redis").
	Layer() string

	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}
