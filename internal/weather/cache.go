package weather

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Cached wraps a Provider and reuses forecasts for nearby coordinates until
// they expire. Sites shared by several users are fetched once per run.
type Cached struct {
	provider Provider
	ttl      time.Duration
	clock    func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
	hits    int
	misses  int
}

type cacheEntry struct {
	bundle    Bundle
	fetchedAt time.Time
}

// NewCached creates a cache with the given time to live.
func NewCached(provider Provider, ttl time.Duration) *Cached {
	return &Cached{
		provider: provider,
		ttl:      ttl,
		clock:    time.Now,
		entries:  make(map[string]cacheEntry),
	}
}

// cacheKey rounds to ~100 m so that re-saved coordinates share an entry.
func cacheKey(lonDeg, latDeg float64) string {
	return fmt.Sprintf("%.3f,%.3f", lonDeg, latDeg)
}

// Forecast returns a cached bundle when fresh, otherwise fetches and stores it.
// Failures are not cached.
func (c *Cached) Forecast(ctx context.Context, lonDeg, latDeg float64) (Bundle, error) {
	key := cacheKey(lonDeg, latDeg)
	now := c.clock()

	c.mu.RLock()
	entry, found := c.entries[key]
	c.mu.RUnlock()

	if found && now.Sub(entry.fetchedAt) < c.ttl {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return entry.bundle, nil
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()

	b, err := c.provider.Forecast(ctx, lonDeg, latDeg)
	if err != nil {
		return Bundle{}, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{bundle: b, fetchedAt: now}
	c.mu.Unlock()

	return b, nil
}

// Stats returns cache hit and miss counts.
func (c *Cached) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

var _ Provider = (*Cached)(nil)
