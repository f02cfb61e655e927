// Package cache provides a generic, thread-safe TTL cache used as a
// read-through cache in front of entity-store lookups.
package cache

import (
	"context"
	"sync"
	"time"
)

// Cache is a generic cache interface parameterized by value type V.
type Cache[V any] interface {
	// Get retrieves a value by key. Returns the value and true if found,
	// zero value and false otherwise.
	Get(key string) (V, bool)

	// Set stores a value with the given key. Returns true if a new entry
	// was created, false if an existing entry was updated.
	Set(key string, value V) bool

	// Delete removes an entry by key. Returns true if the key existed.
	Delete(key string) bool

	// Clear removes all entries from the cache.
	Clear()

	// Size returns the current number of entries in the cache.
	Size() int

	// Close shuts down the cache and releases background resources.
	Close() error
}

type ttlEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache evicts entries after a fixed time-to-live. A background
// goroutine sweeps expired entries; Get also checks expiry so a stale
// entry is never returned between sweeps.
type TTLCache[V any] struct {
	mu      sync.RWMutex
	entries map[string]ttlEntry[V]
	ttl     time.Duration
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewTTL creates a TTL cache. cleanupInterval bounds how long expired
// entries linger in memory; it does not affect visibility.
func NewTTL[V any](ctx context.Context, ttl, cleanupInterval time.Duration) *TTLCache[V] {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &TTLCache[V]{
		entries: make(map[string]ttlEntry[V]),
		ttl:     ttl,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go c.sweep(ctx, cleanupInterval)

	return c
}

// Get retrieves a live value by key.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Set stores a value, resetting its TTL.
func (c *TTLCache[V]) Set(key string, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, existed := c.entries[key]
	c.entries[key] = ttlEntry[V]{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
	return !existed
}

// Delete removes an entry by key.
func (c *TTLCache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, existed := c.entries[key]
	delete(c.entries, key)
	return existed
}

// Clear removes all entries.
func (c *TTLCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]ttlEntry[V])
}

// Size returns the number of entries, including not-yet-swept expired ones.
func (c *TTLCache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the sweep goroutine.
func (c *TTLCache[V]) Close() error {
	c.cancel()
	<-c.done
	return nil
}

func (c *TTLCache[V]) sweep(ctx context.Context, interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Noop returns a cache that stores nothing; useful when caching is disabled.
func Noop[V any]() Cache[V] { return noopCache[V]{} }

type noopCache[V any] struct{}

func (noopCache[V]) Get(string) (V, bool) { var zero V; return zero, false }
func (noopCache[V]) Set(string, V) bool   { return false }
func (noopCache[V]) Delete(string) bool   { return false }
func (noopCache[V]) Clear()               {}
func (noopCache[V]) Size() int            { return 0 }
func (noopCache[V]) Close() error         { return nil }

var _ Cache[int] = (*TTLCache[int])(nil)
var _ Cache[int] = noopCache[int]{}
