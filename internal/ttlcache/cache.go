// Package ttlcache provides the stale-serve TTL cache used by every
// fetch-based status source.
//
// A Cache holds at most one value. Reads inside the TTL window return the
// cached value without calling the fetch function. Once the value is older
// than the TTL the next read refreshes it; if that refresh fails, the previous
// value is served again (however stale) until a later refresh succeeds.
//
// A Cache is owned by exactly one polling goroutine. It performs no locking
// and must not be shared between writers.
package ttlcache

import (
	"context"
	"log"
	"time"

	"github.com/jonboulle/clockwork"
)

// FetchFunc loads a fresh value from the backing source.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// entry is the cached value plus the monotonic instant it was fetched.
type entry[T any] struct {
	value     T
	fetchedAt time.Time
}

// Cache is a single-value TTL cache with stale-serve semantics.
type Cache[T any] struct {
	name     string
	ttl      time.Duration
	clock    clockwork.Clock
	observer Observer

	current *entry[T] // nil until the first successful fetch
}

// Option configures a Cache.
type Option func(*config)

type config struct {
	clock    clockwork.Clock
	observer Observer
}

// WithClock injects the clock used for age calculations. Tests pass a
// clockwork fake clock here.
func WithClock(clock clockwork.Clock) Option {
	return func(c *config) { c.clock = clock }
}

// WithObserver registers an Observer notified of every cache outcome.
func WithObserver(o Observer) Option {
	return func(c *config) { c.observer = o }
}

// New creates an empty cache. The name is only used in log lines.
func New[T any](name string, ttl time.Duration, opts ...Option) *Cache[T] {
	cfg := config{
		clock:    clockwork.NewRealClock(),
		observer: NoopObserver{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Cache[T]{
		name:     name,
		ttl:      ttl,
		clock:    cfg.clock,
		observer: cfg.observer,
	}
}

// GetOrRefresh returns the cached value when it is younger than the TTL.
// Otherwise it calls fetch: a success replaces the cached value and is
// returned, a failure returns the previous value unchanged.
//
// The boolean result is false only when no fetch has ever succeeded.
func (c *Cache[T]) GetOrRefresh(ctx context.Context, fetch FetchFunc[T]) (T, bool) {
	if c.current != nil && c.ttl > 0 && c.clock.Since(c.current.fetchedAt) < c.ttl {
		c.observer.Hit(c.name)
		return c.current.value, true
	}

	c.observer.Miss(c.name)

	value, err := fetch(ctx)
	if err != nil {
		if c.current == nil {
			log.Printf("[WARN] %s: fetch failed and no cached value is available: %v", c.name, err)
			var zero T
			return zero, false
		}

		c.observer.StaleServe(c.name)
		log.Printf("[WARN] %s: fetch failed, serving value from %s ago: %v",
			c.name, c.clock.Since(c.current.fetchedAt).Round(time.Second), err)
		return c.current.value, true
	}

	c.current = &entry[T]{value: value, fetchedAt: c.clock.Now()}
	return value, true
}

// Peek returns the last successfully fetched value without refreshing.
func (c *Cache[T]) Peek() (T, bool) {
	if c.current == nil {
		var zero T
		return zero, false
	}
	return c.current.value, true
}

// Age reports how long ago the cached value was fetched.
// Returns -1 if nothing has been cached yet.
func (c *Cache[T]) Age() time.Duration {
	if c.current == nil {
		return -1
	}
	return c.clock.Since(c.current.fetchedAt)
}

// TTL returns the configured time-to-live.
func (c *Cache[T]) TTL() time.Duration {
	return c.ttl
}
