package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/model"
)

// Supported backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendFile   = "file"
	BackendNone   = "none"
)

// CacheStore loads and saves cache snapshots.
type CacheStore interface {
	Load(ctx context.Context) ([]model.CacheEntry, error)
	Save(ctx context.Context, entries []model.CacheEntry) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend  string
	Path     string
	RedisURL string
	Record   string
}

// Open creates the configured store. An empty backend means sqlite.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (CacheStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendSQLite:
		return NewSQLiteStore(ctx, cfg.Path, logger)
	case BackendRedis:
		return NewRedisStore(ctx, cfg.RedisURL, cfg.Record)
	case BackendFile:
		return NewFileStore(cfg.Path)
	case BackendNone:
		return NopStore{}, nil
	default:
		return nil, fmt.Errorf("%w: cache store %q", common.ErrInvalidConfig, cfg.Backend)
	}
}

// NopStore persists nothing.
type NopStore struct{}

// Load returns no entries.
func (NopStore) Load(context.Context) ([]model.CacheEntry, error) { return nil, nil }

// Save discards entries.
func (NopStore) Save(context.Context, []model.CacheEntry) error { return nil }

// Close does nothing.
func (NopStore) Close() error { return nil }
