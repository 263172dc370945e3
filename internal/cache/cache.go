// Package cache memoizes extracted records per logical query.
//
// Entries are served while fresh and evicted only by an explicit Sweep;
// the cache never starts goroutines or timers of its own.
package cache

import (
	"sync"
	"time"
)

const (
	DefaultFreshness = 5 * time.Minute
	DefaultStaleness = 30 * time.Minute
)

// Entry is one cached payload and the time it was stored
type Entry struct {
	Key       string
	Payload   any
	FetchedAt time.Time
}

// Clock returns the current time
type Clock func() time.Time

// Option configures a Cache
type Option func(*Cache)

// WithFreshness sets how long an entry is served by Get
func WithFreshness(d time.Duration) Option {
	return func(c *Cache) { c.freshness = d }
}

// WithStaleness sets the age past which Sweep evicts an entry
func WithStaleness(d time.Duration) Option {
	return func(c *Cache) { c.staleness = d }
}

// WithClock replaces time.Now
func WithClock(clock Clock) Option {
	return func(c *Cache) { c.now = clock }
}

// Cache is a time-boxed result cache. Safe for concurrent use; concurrent
// writes to one key resolve last-write-wins.
type Cache struct {
	mu        sync.RWMutex
	entries   map[string]Entry
	freshness time.Duration
	staleness time.Duration
	now       Clock
}

// New creates an empty cache
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:   make(map[string]Entry),
		freshness: DefaultFreshness,
		staleness: DefaultStaleness,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the payload for key. A key never stored and a key older than
// the freshness window look the same: both are a miss.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().Sub(entry.FetchedAt) > c.freshness {
		return nil, false
	}
	return entry.Payload, true
}

// Put stores payload under key, stamped with the current time
func (c *Cache) Put(key string, payload any) {
	c.mu.Lock()
	c.entries[key] = Entry{Key: key, Payload: payload, FetchedAt: c.now()}
	c.mu.Unlock()
}

// Sweep evicts every entry older than the staleness window at now and
// reports how many were removed
func (c *Cache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if now.Sub(entry.FetchedAt) > c.staleness {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Now returns the cache clock's current time
func (c *Cache) Now() time.Time {
	return c.now()
}

// Len returns the number of stored entries, fresh or not
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every entry
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]Entry)
	c.mu.Unlock()
}
