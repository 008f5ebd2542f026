package client

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Query keys. Mutations invalidate the keys whose data they change.
const (
	keyServices      = "services"
	keyCustomerStats = "customer-stats"
	keyCustomerList  = "customer-bookings"
)

func slotsKey(date string) string { return "available-slots:" + date }
func manageKey(token string) string { return "manage:" + token }
func contentKey(section string) string { return "cms-content:" + section }

type cacheEntry struct {
	value     any
	fetchedAt time.Time
}

// QueryCache memoises read queries by key until they go stale or are
// invalidated. It is safe for concurrent use. Concurrent misses on one key
// each fetch; the last write wins.
type QueryCache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	staleAfter time.Duration
	now        func() time.Time
}

// NewQueryCache keeps entries for staleAfter; zero never expires them.
func NewQueryCache(staleAfter time.Duration) *QueryCache {
	return &QueryCache{
		entries:    make(map[string]cacheEntry),
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

func (q *QueryCache) get(key string) (any, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[key]
	if !ok {
		return nil, false
	}
	if q.staleAfter > 0 && q.now().Sub(e.fetchedAt) > q.staleAfter {
		delete(q.entries, key)
		return nil, false
	}
	return e.value, true
}

func (q *QueryCache) set(key string, v any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries[key] = cacheEntry{value: v, fetchedAt: q.now()}
}

// Invalidate drops the given keys.
func (q *QueryCache) Invalidate(keys ...string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, k := range keys {
		delete(q.entries, k)
	}
}

// InvalidatePrefix drops every key starting with prefix.
func (q *QueryCache) InvalidatePrefix(prefix string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for k := range q.entries {
		if strings.HasPrefix(k, prefix) {
			delete(q.entries, k)
		}
	}
}

// Has reports whether key holds fresh data.
func (q *QueryCache) Has(key string) bool {
	_, ok := q.get(key)
	return ok
}

func (q *QueryCache) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Fetch returns the cached value for key or calls fn and caches its result.
// Errors are never cached.
func Fetch[T any](ctx context.Context, q *QueryCache, key string, fn func(context.Context) (T, error)) (T, error) {
	if v, ok := q.get(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}
	t, err := fn(ctx)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("query %s: %w", key, err)
	}
	q.set(key, t)
	return t, nil
}
