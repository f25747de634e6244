package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/sift/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	loadErr error
	saveErr error
	entries []model.CacheEntry
	saves   int
	mu      sync.Mutex
}

func (s *memoryStore) Load(context.Context) ([]model.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return append([]model.CacheEntry(nil), s.entries...), nil
}

func (s *memoryStore) Save(_ context.Context, entries []model.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.entries = append([]model.CacheEntry(nil), entries...)
	s.saves++
	return nil
}

func (s *memoryStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *memoryStore) snapshot() []model.CacheEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.CacheEntry(nil), s.entries...)
}

func TestCheckpointerHydratesAndFlushesOnStop(t *testing.T) {
	now := time.Now()
	store := &memoryStore{entries: []model.CacheEntry{
		{Key: "go basics", Decision: true, Timestamp: now},
		{Key: "", Decision: true, Timestamp: now},
	}}
	cache := NewCache(time.Hour)
	cp := NewCheckpointer(cache, store, 0, nil)

	loaded, err := cp.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, loaded)

	decision, ok := cache.Get("go basics")
	require.True(t, ok)
	assert.True(t, decision)

	cache.Put("soup", false)
	require.NoError(t, cp.Stop(context.Background()))

	saved := store.snapshot()
	require.Len(t, saved, 2)
	assert.Equal(t, "go basics", saved[0].Key)
	assert.Equal(t, "soup", saved[1].Key)

	assert.NoError(t, cp.Stop(context.Background()))
	assert.Equal(t, 1, store.saveCount())

	_, err = cp.Start(context.Background())
	assert.ErrorIs(t, err, ErrCheckpointerStopped)
}

func TestCheckpointerPeriodicFlush(t *testing.T) {
	store := &memoryStore{}
	cache := NewCache(time.Hour)
	cp := NewCheckpointer(cache, store, 10*time.Millisecond, nil)

	_, err := cp.Start(context.Background())
	require.NoError(t, err)
	cache.Put("item", true)

	require.Eventually(t, func() bool {
		return len(store.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, cp.Stop(context.Background()))
}

func TestCheckpointerErrors(t *testing.T) {
	t.Run("load failure", func(t *testing.T) {
		boom := errors.New("disk gone")
		cp := NewCheckpointer(NewCache(time.Hour), &memoryStore{loadErr: boom}, 0, nil)

		_, err := cp.Start(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, cp.Stop(context.Background()))
	})

	t.Run("save failure", func(t *testing.T) {
		boom := errors.New("read only")
		cp := NewCheckpointer(NewCache(time.Hour), &memoryStore{saveErr: boom}, 0, nil)

		_, err := cp.Start(context.Background())
		require.NoError(t, err)
		assert.ErrorIs(t, cp.Flush(context.Background()), boom)
		assert.ErrorIs(t, cp.Stop(context.Background()), boom)
	})
}
