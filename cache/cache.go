package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTTL is applied when no TTL option is supplied.
const DefaultTTL = 5 * time.Minute

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// TTL is an in-process key/value cache whose entries expire a fixed duration
// after they were stored. Expired entries are evicted by the read that finds
// them; Sweep and StartJanitor remove them proactively.
type TTL[V any] struct {
	mu    sync.Mutex
	items map[string]entry[V]
	ttl   time.Duration
	now   func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Size   int   `json:"size"`
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// New creates an empty cache.
func New[V any](opts ...Option) *TTL[V] {
	cfg := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &TTL[V]{
		items: make(map[string]entry[V]),
		ttl:   cfg.TTL,
		now:   cfg.Now,
	}
}

// Set stores value under key, replacing any previous entry and resetting its age.
func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	c.items[key] = entry[V]{value: value, storedAt: c.now()}
	c.mu.Unlock()
}

// Get returns the live value for key. An entry older than the TTL is removed
// and reported as a miss.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	e, ok := c.items[key]
	if ok && c.expired(e) {
		delete(c.items, key)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Has reports whether Get would hit, with the same eviction side effect.
func (c *TTL[V]) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key if present.
func (c *TTL[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *TTL[V]) Clear() {
	c.mu.Lock()
	c.items = make(map[string]entry[V])
	c.mu.Unlock()
}

// Size counts held entries, including stale ones not yet read.
func (c *TTL[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Sweep removes all expired entries and returns how many were dropped.
func (c *TTL[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.items {
		if c.expired(e) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

// StartJanitor runs Sweep every interval until ctx is done. The returned
// channel is closed once the janitor goroutine exits.
func (c *TTL[V]) StartJanitor(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Sweep()
			}
		}
	}()
	return done
}

// Stats returns the current size and hit/miss counters.
func (c *TTL[V]) Stats() Stats {
	return Stats{Size: c.Size(), Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// TTL returns the configured entry lifetime.
func (c *TTL[V]) TTL() time.Duration { return c.ttl }

// expired is strict: an entry exactly ttl old is still served.
func (c *TTL[V]) expired(e entry[V]) bool {
	return c.now().Sub(e.storedAt) > c.ttl
}
