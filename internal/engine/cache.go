package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/Veraticus/sift/internal/model"
)

// DefaultCacheTTL is used when a cache is created with a zero TTL.
const DefaultCacheTTL = 24 * time.Hour

// Cache maps normalized item keys to classification decisions. Entries older
// than the TTL read as misses; they stay in memory until Prune or an
// overwrite removes them.
type Cache struct {
	entries map[string]model.CacheEntry
	now     func() time.Time
	ttl     time.Duration
	mu      sync.RWMutex
}

// NewCache creates an empty cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &Cache{
		entries: make(map[string]model.CacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the decision for key if a live entry exists.
func (c *Cache) Get(key string) (bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || entry.Expired(c.now(), c.ttl) {
		return false, false
	}
	return entry.Decision, true
}

// Put stores decision for key stamped with the current time.
func (c *Cache) Put(key string, decision bool) {
	c.PutAt(key, decision, c.now())
}

// PutAt stores decision for key with an explicit timestamp, replacing any
// previous entry.
func (c *Cache) PutAt(key string, decision bool, ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = model.CacheEntry{
		Key:       key,
		Decision:  decision,
		Timestamp: ts,
	}
}

// Drain returns a copy of every live entry sorted by key. The cache itself
// is left intact.
func (c *Cache) Drain() []model.CacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	out := make([]model.CacheEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		if entry.Expired(now, c.ttl) {
			continue
		}
		out = append(out, entry)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Key < out[j].Key
	})
	return out
}

// Hydrate bulk-loads entries, typically from a persisted snapshot. Entries
// with empty keys are skipped and, on collision, the newer timestamp wins.
// It returns the number of entries accepted.
func (c *Cache) Hydrate(entries []model.CacheEntry) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	loaded := 0
	for _, entry := range entries {
		if entry.Key == "" {
			continue
		}
		if existing, ok := c.entries[entry.Key]; ok && existing.Timestamp.After(entry.Timestamp) {
			continue
		}
		c.entries[entry.Key] = entry
		loaded++
	}
	return loaded
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]model.CacheEntry)
}

// Prune drops expired entries and returns how many were removed.
func (c *Cache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if entry.Expired(now, c.ttl) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}
