package cache

import (
	"sync"
	"time"
)

// TTL is a keyed value cache with a fixed time-to-live. Entries are
// recomputed lazily: a read past the deadline reports a miss and the
// caller stores a fresh value. There is no bound on the number of live
// keys; expired entries are dropped opportunistically on write.
type TTL[K comparable, V any] struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[K]entry[V]
}

type entry[V any] struct {
	value    V
	storedAt time.Time
}

func NewTTL[K comparable, V any](ttl time.Duration) *TTL[K, V] {
	return &TTL[K, V]{
		ttl:     ttl,
		now:     time.Now,
		entries: map[K]entry[V]{},
	}
}

// WithClock replaces the time source. Test hook.
func (c *TTL[K, V]) WithClock(now func() time.Time) *TTL[K, V] {
	c.now = now
	return c
}

func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.expired(stored, c.now()) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return stored.value, true
}

func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for existing, stored := range c.entries {
		if c.expired(stored, now) {
			delete(c.entries, existing)
		}
	}
	c.entries[key] = entry[V]{value: value, storedAt: now}
}

func (c *TTL[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *TTL[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[K]entry[V]{}
}

// Len counts live entries at the current clock reading.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	count := 0
	for _, stored := range c.entries {
		if !c.expired(stored, now) {
			count++
		}
	}
	return count
}

func (c *TTL[K, V]) expired(stored entry[V], now time.Time) bool {
	if c.ttl <= 0 {
		return false
	}
	return now.Sub(stored.storedAt) >= c.ttl
}
