package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/model"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntries() []model.CacheEntry {
	base := time.Date(2025, 1, 5, 13, 26, 55, 123456789, time.UTC)
	return []model.CacheEntry{
		{Key: "go basics", Decision: true, Timestamp: base},
		{Key: "python教程", Decision: true, Timestamp: base.Add(time.Minute)},
		{Key: "soup recipes", Decision: false, Timestamp: base.Add(-time.Hour)},
	}
}

func assertEntries(t *testing.T, want, got []model.CacheEntry) {
	t.Helper()
	require.Len(t, got, len(want))
	byKey := make(map[string]model.CacheEntry, len(got))
	for _, entry := range got {
		byKey[entry.Key] = entry
	}
	for _, w := range want {
		g, ok := byKey[w.Key]
		require.True(t, ok, "missing key %q", w.Key)
		assert.Equal(t, w.Decision, g.Decision, w.Key)
		assert.True(t, w.Timestamp.Equal(g.Timestamp), "%s: want %v, got %v", w.Key, w.Timestamp, g.Timestamp)
	}
}

// exerciseStore runs the behavior every backend must share.
func exerciseStore(t *testing.T, store CacheStore) {
	t.Helper()
	ctx := context.Background()

	entries, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, store.Save(ctx, sampleEntries()))
	entries, err = store.Load(ctx)
	require.NoError(t, err)
	assertEntries(t, sampleEntries(), entries)

	replacement := []model.CacheEntry{
		{Key: "only", Decision: false, Timestamp: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
	}
	require.NoError(t, store.Save(ctx, replacement))
	entries, err = store.Load(ctx)
	require.NoError(t, err)
	assertEntries(t, replacement, entries)

	require.NoError(t, store.Save(ctx, nil))
	entries, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	err = store.Save(ctx, []model.CacheEntry{{Key: "", Timestamp: time.Now()}})
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestStores(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		store := createTestStore(t)
		exerciseStore(t, store)
	})

	t.Run("redis", func(t *testing.T) {
		server := miniredis.RunT(t)
		store, err := NewRedisStore(context.Background(), "redis://"+server.Addr(), "")
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		exerciseStore(t, store)
		assert.True(t, server.Exists(DefaultRedisRecord))
	})

	t.Run("file", func(t *testing.T) {
		store, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "cache.json"))
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		exerciseStore(t, store)
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name    string
		config  Config
		want    any
		wantErr bool
	}{
		{name: "default sqlite", config: Config{Path: filepath.Join(dir, "a.db")}, want: &SQLiteStore{}},
		{name: "file", config: Config{Backend: "file", Path: filepath.Join(dir, "a.json")}, want: &FileStore{}},
		{name: "none", config: Config{Backend: "None"}, want: NopStore{}},
		{name: "unknown", config: Config{Backend: "etcd"}, wantErr: true},
		{name: "sqlite without path", config: Config{Backend: "sqlite"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(ctx, tt.config, nil)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer func() { _ = store.Close() }()
			assert.IsType(t, tt.want, store)
		})
	}

	_, err := Open(ctx, Config{Backend: "etcd"}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestNopStore(t *testing.T) {
	store := NopStore{}
	require.NoError(t, store.Save(context.Background(), sampleEntries()))
	entries, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
