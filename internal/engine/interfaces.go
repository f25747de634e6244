package engine

import (
	"context"

	"github.com/Veraticus/sift/internal/model"
)

// SnapshotStore persists cache snapshots between runs.
type SnapshotStore interface {
	Load(ctx context.Context) ([]model.CacheEntry, error)
	Save(ctx context.Context, entries []model.CacheEntry) error
}
