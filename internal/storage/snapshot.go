package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Veraticus/sift/internal/model"
)

// snapshotVersion is bumped whenever the JSON layout changes incompatibly.
const snapshotVersion = 1

// snapshot is the JSON document written by the redis and file stores.
type snapshot struct {
	SavedAt time.Time          `json:"saved_at"`
	Entries []model.CacheEntry `json:"entries"`
	Version int                `json:"version"`
}

func encodeSnapshot(entries []model.CacheEntry, now time.Time) ([]byte, error) {
	if entries == nil {
		entries = []model.CacheEntry{}
	}
	data, err := json.Marshal(snapshot{
		Version: snapshotVersion,
		SavedAt: now.UTC(),
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) ([]model.CacheEntry, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	return snap.Entries, nil
}
