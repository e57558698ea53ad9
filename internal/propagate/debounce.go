// Package propagate reports locally observed stock mutations to the Hub.
package propagate

import (
	"fmt"
	"sync"
	"time"
)

// DebounceCache remembers the last value reported per entity so rapid
// re-saves of an unchanged value do not produce redundant notifications.
// Check-and-set runs under one mutex: two near-simultaneous mutations
// cannot lose a write, and a redundant notification caused by a race is
// acceptable while a missing one is not.
type DebounceCache struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time
	m   map[string]debounceEntry
}

type debounceEntry struct {
	value   int64
	expires time.Time
}

// NewDebounceCache builds a cache with the given entry time-to-live.
func NewDebounceCache(ttl time.Duration) *DebounceCache {
	return &DebounceCache{
		ttl: ttl,
		now: time.Now,
		m:   make(map[string]debounceEntry),
	}
}

// StockKey composes the per-entity cache key for the stock change kind.
// Other change kinds can share the cache by composing their own tag.
func StockKey(productID int64) string {
	return fmt.Sprintf("stock:%d", productID)
}

// ShouldSend reports whether a notification for key carrying value is due.
// A live entry holding the same value suppresses the send; absence,
// expiry, or a different value lets it through. The entry's expiry is
// refreshed on every attempt, matched or not.
func (c *DebounceCache) ShouldSend(key string, value int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	e, ok := c.m[key]
	if ok && now.Before(e.expires) && e.value == value {
		e.expires = now.Add(c.ttl)
		c.m[key] = e
		return false
	}
	c.m[key] = debounceEntry{value: value, expires: now.Add(c.ttl)}
	return true
}

// Peek returns the live value recorded for key, if any. Expired entries
// are reported as absent; eviction itself stays lazy.
func (c *DebounceCache) Peek(key string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok || !c.now().Before(e.expires) {
		return 0, false
	}
	return e.value, true
}
