package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/diagnosis/cleanbook/pkg/logger"
)

// Query is a typed read-through cache for one logical query family. Keys
// are namespaced as "<name>:<key>" so a family can be dropped at once.
//
// Store failures never fail the caller: reads fall through to fetch and
// writes are logged.
type Query[T any] struct {
	store Store
	name  string
	ttl   time.Duration
}

func NewQuery[T any](store Store, name string, ttl time.Duration) *Query[T] {
	return &Query[T]{store: store, name: name, ttl: ttl}
}

func (q *Query[T]) Key(key string) string {
	return q.name + ":" + key
}

// Get returns the cached value for key or calls fetch and caches its result.
func (q *Query[T]) Get(ctx context.Context, key string, fetch func(ctx context.Context) (T, error)) (T, error) {
	full := q.Key(key)

	raw, found, err := q.store.Get(ctx, full)
	if err != nil {
		logger.WarnContext(ctx, "cache read failed", "key", full, "error", err)
	}
	if found {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		logger.WarnContext(ctx, "cache entry undecodable", "key", full)
	}

	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}

	if raw, err := json.Marshal(v); err == nil {
		if err := q.store.Set(ctx, full, raw, q.ttl); err != nil {
			logger.WarnContext(ctx, "cache write failed", "key", full, "error", err)
		}
	}
	return v, nil
}

// Peek returns a cached value without fetching.
func (q *Query[T]) Peek(ctx context.Context, key string) (T, bool) {
	var v T
	raw, found, err := q.store.Get(ctx, q.Key(key))
	if err != nil || !found {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false
	}
	return v, true
}

func (q *Query[T]) Invalidate(ctx context.Context, keys ...string) {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = q.Key(k)
	}
	if err := q.store.Delete(ctx, full...); err != nil {
		logger.WarnContext(ctx, "cache invalidate failed", "keys", full, "error", err)
	}
}

func (q *Query[T]) InvalidateAll(ctx context.Context) {
	if err := q.store.DeletePrefix(ctx, q.name+":"); err != nil {
		logger.WarnContext(ctx, "cache invalidate failed", "prefix", q.name, "error", err)
	}
}
