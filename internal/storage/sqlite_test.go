package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/sift/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStore(context.Background(), dbPath, nil)
	require.NoError(t, err, "failed to create store")
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestSQLiteStorePersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "sub", "cache.db")

	store, err := NewSQLiteStore(ctx, dbPath, nil)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, sampleEntries()))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(ctx, dbPath, nil)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	entries, err := reopened.Load(ctx)
	require.NoError(t, err)
	assertEntries(t, sampleEntries(), entries)

	keys := make([]string, len(entries))
	for i, entry := range entries {
		keys[i] = entry.Key
	}
	assert.IsIncreasing(t, keys)
}

func TestSQLiteStoreInMemory(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(ctx, ":memory:", nil)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.Save(ctx, sampleEntries()))
	entries, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestSQLiteStoreRejectsInvalidSnapshots(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Save(ctx, sampleEntries()))

	tests := []struct {
		name    string
		entries []model.CacheEntry
	}{
		{name: "empty key", entries: []model.CacheEntry{{Key: "", Timestamp: now}}},
		{name: "zero timestamp", entries: []model.CacheEntry{{Key: "a"}}},
		{name: "duplicate key", entries: []model.CacheEntry{{Key: "a", Timestamp: now}, {Key: "a", Timestamp: now}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, store.Save(ctx, tt.entries), ErrInvalidEntry)

			entries, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Len(t, entries, 3, "failed save must leave the previous snapshot intact")
		})
	}
}

func TestNewSQLiteStoreValidation(t *testing.T) {
	_, err := NewSQLiteStore(context.Background(), "  ", nil)
	assert.ErrorIs(t, err, ErrEmptyString)
}
