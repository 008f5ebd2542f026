// Package cache provides a byte store with Redis and in-process backends and
// a typed read-through query cache on top of it.
package cache

import (
	"context"
	"time"
)

// Store is a TTL key/value store. Get reports found=false on a miss.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}
