package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/sift/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClockedCache(ttl time.Duration) (*Cache, *time.Time) {
	now := time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC)
	cache := NewCache(ttl)
	cache.now = func() time.Time { return now }
	return cache, &now
}

func TestCacheGetPut(t *testing.T) {
	cache, now := newClockedCache(time.Hour)

	_, ok := cache.Get("missing")
	assert.False(t, ok)

	cache.Put("go", true)
	decision, ok := cache.Get("go")
	require.True(t, ok)
	assert.True(t, decision)

	cache.Put("go", false)
	decision, ok = cache.Get("go")
	require.True(t, ok)
	assert.False(t, decision)
	assert.Equal(t, 1, cache.Len())

	*now = now.Add(time.Hour - time.Nanosecond)
	_, ok = cache.Get("go")
	assert.True(t, ok)

	*now = now.Add(time.Nanosecond)
	_, ok = cache.Get("go")
	assert.False(t, ok, "entry aged exactly TTL must be a miss")
	assert.Equal(t, 1, cache.Len(), "expiry is lazy")
}

func TestCacheDefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultCacheTTL, NewCache(0).TTL())
	assert.Equal(t, time.Minute, NewCache(time.Minute).TTL())
}

func TestCacheDrain(t *testing.T) {
	cache, now := newClockedCache(time.Hour)

	cache.PutAt("stale", true, now.Add(-2*time.Hour))
	cache.Put("b", false)
	cache.Put("a", true)

	drained := cache.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, "a", drained[0].Key)
	assert.Equal(t, "b", drained[1].Key)
	assert.Equal(t, *now, drained[0].Timestamp)
	assert.Equal(t, 3, cache.Len())

	drained[0].Decision = false
	decision, _ := cache.Get("a")
	assert.True(t, decision, "drained snapshot must be a copy")
}

func TestCacheHydrate(t *testing.T) {
	cache, now := newClockedCache(time.Hour)
	older := now.Add(-10 * time.Minute)

	cache.PutAt("kept", true, *now)
	loaded := cache.Hydrate([]model.CacheEntry{
		{Key: "", Decision: true, Timestamp: *now},
		{Key: "kept", Decision: false, Timestamp: older},
		{Key: "new", Decision: false, Timestamp: older},
		{Key: "new", Decision: true, Timestamp: *now},
	})

	assert.Equal(t, 2, loaded)
	assert.Equal(t, 2, cache.Len())

	decision, ok := cache.Get("kept")
	require.True(t, ok)
	assert.True(t, decision)

	decision, ok = cache.Get("new")
	require.True(t, ok)
	assert.True(t, decision)
}

func TestCachePruneAndClear(t *testing.T) {
	cache, now := newClockedCache(time.Hour)

	cache.PutAt("old", true, now.Add(-time.Hour))
	cache.PutAt("older", true, now.Add(-3*time.Hour))
	cache.Put("fresh", false)

	assert.Equal(t, 2, cache.Prune())
	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, 0, cache.Prune())

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
	_, ok := cache.Get("fresh")
	assert.False(t, ok)
}

func TestCacheConcurrentAccess(t *testing.T) {
	cache := NewCache(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Put(string(rune('a'+i)), j%2 == 0)
				cache.Get(string(rune('a' + i)))
				cache.Drain()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 8, cache.Len())
}
