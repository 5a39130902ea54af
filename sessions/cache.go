package sessions

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader fetches a session from its backing store.
type Loader func(ctx context.Context, sessionID string) (*Session, error)

type cacheEntry struct {
	session *Session
	expires time.Time
}

// Cache holds recently loaded sessions for a short TTL. Readers inside the window share the
// same *Session and must treat it as read-only. Concurrent misses for one id share one load.
// Load errors are not cached.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
	group   singleflight.Group
}

type CacheOption func(*Cache)

// WithCacheClock replaces the clock used for expiry.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates a cache. A ttl of zero or less disables caching but keeps load coalescing.
func NewCache(ttl time.Duration, opts ...CacheOption) *Cache {
	c := &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached session for id or loads it with load.
func (c *Cache) Get(ctx context.Context, sessionID string, load Loader) (*Session, error) {
	if s, ok := c.lookup(sessionID); ok {
		return s, nil
	}

	v, err, _ := c.group.Do(sessionID, func() (interface{}, error) {
		if s, ok := c.lookup(sessionID); ok {
			return s, nil
		}
		s, err := load(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		c.store(sessionID, s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (c *Cache) lookup(sessionID string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[sessionID]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expires) {
		delete(c.entries, sessionID)
		return nil, false
	}
	return entry.session, true
}

func (c *Cache) store(sessionID string, s *Session) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[sessionID] = cacheEntry{session: s, expires: c.now().Add(c.ttl)}
}

// Clear drops the entry for one session.
func (c *Cache) Clear(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sessionID)
}

// ClearAll drops every entry.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of live and stale entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
