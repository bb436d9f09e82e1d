// Package offercache holds the latest finalized offer set per category.
// At most one entry per category; refreshes replace the whole entry, so
// memory is bounded by the number of categories.
package offercache

import (
	"sync"
	"time"

	"prisradar/offerworker/internal/domain"
)

type entry struct {
	offers     []domain.FinalizedOffer
	insertedAt time.Time
}

// Cache is the per-category offer cache with a TTL. Entries older than the
// TTL are treated as misses; they are never served.
type Cache struct {
	mu      sync.RWMutex
	entries map[domain.Category]entry
	ttl     time.Duration
	now     func() time.Time
}

// New creates a cache with the given TTL.
func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[domain.Category]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithNow overrides the clock. Tests use this to age entries.
func (c *Cache) WithNow(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Get returns the cached offers for a category, reporting a miss when no
// entry exists or the entry has outlived the TTL.
func (c *Cache) Get(category domain.Category) ([]domain.FinalizedOffer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[category]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.insertedAt) > c.ttl {
		return nil, false
	}
	return e.offers, true
}

// Put replaces the entry for a category. The offer slice is copied so a
// caller mutating its slice afterwards cannot corrupt what readers see;
// readers always observe either the old or the new entry, never a mix.
func (c *Cache) Put(category domain.Category, offers []domain.FinalizedOffer) {
	copied := make([]domain.FinalizedOffer, len(offers))
	copy(copied, offers)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[category] = entry{offers: copied, insertedAt: c.now()}
}

// Invalidate drops the entry for a category.
func (c *Cache) Invalidate(category domain.Category) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, category)
}
