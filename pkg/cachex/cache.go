package cachex

import (
	"context"
	"sync"

	"github.com/Abraxas-365/tidal/pkg/asyncx"
	"github.com/Abraxas-365/tidal/pkg/logx"
)

// FetchFunc loads the value for a key from its origin.
type FetchFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Backing is an optional second-level store consulted before the origin and
// written through on success. A (zero, false, nil) return is a miss.
type Backing[K comparable, V any] interface {
	Load(ctx context.Context, key K) (V, bool, error)
	Save(ctx context.Context, key K, value V) error
}

// Cache deduplicates concurrent and repeated fetches of immutable keyed
// resources. The first request for a key starts the fetch; requests arriving
// while it is in flight attach to the same future instead of fetching again.
// A completed fetch marks the key done permanently; a failed fetch clears
// the in-flight marker so the next request retries.
type Cache[K comparable, V any] struct {
	fetch   FetchFunc[K, V]
	backing Backing[K, V]

	mu       sync.Mutex
	done     map[K]V
	inflight map[K]*asyncx.Future[V]
}

// Option customizes a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithBacking adds a second-level store between the cache and the origin.
func WithBacking[K comparable, V any](b Backing[K, V]) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.backing = b
	}
}

// New creates a cache over the given origin fetch.
func New[K comparable, V any](fetch FetchFunc[K, V], opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		fetch:    fetch,
		done:     make(map[K]V),
		inflight: make(map[K]*asyncx.Future[V]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key, fetching it at most once regardless of how
// many callers ask concurrently. Blocks until the fetch settles.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, error) {
	c.mu.Lock()
	if v, ok := c.done[key]; ok {
		c.mu.Unlock()
		return v, nil
	}
	if f, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		return f.Await()
	}

	f := asyncx.Run(func() (V, error) {
		return c.load(ctx, key)
	})
	c.inflight[key] = f
	c.mu.Unlock()

	v, err := f.Await()

	c.mu.Lock()
	delete(c.inflight, key)
	if err == nil {
		c.done[key] = v
	}
	c.mu.Unlock()

	return v, err
}

// Known reports whether key has already completed a successful fetch.
func (c *Cache[K, V]) Known(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.done[key]
	return ok
}

// Forget drops a completed entry so the next Get refetches it.
func (c *Cache[K, V]) Forget(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.done, key)
}

func (c *Cache[K, V]) load(ctx context.Context, key K) (V, error) {
	if c.backing != nil {
		v, ok, err := c.backing.Load(ctx, key)
		if err != nil {
			// A broken backing store must not block the origin fetch.
			logx.WithError(cacheErrors.NewWithCause(ErrBackingFailed, err)).Warn("cache backing load failed")
		} else if ok {
			return v, nil
		}
	}

	v, err := c.fetch(ctx, key)
	if err != nil {
		var zero V
		return zero, cacheErrors.NewWithCause(ErrFetchFailed, err)
	}

	if c.backing != nil {
		if err := c.backing.Save(ctx, key, v); err != nil {
			logx.WithError(cacheErrors.NewWithCause(ErrBackingFailed, err)).Warn("cache backing save failed")
		}
	}

	return v, nil
}
