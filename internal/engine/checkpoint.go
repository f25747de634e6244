package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/sift/internal/common"
)

// ErrCheckpointerStopped is returned by Start once the checkpointer has been stopped.
var ErrCheckpointerStopped = errors.New("checkpointer stopped")

// Checkpointer moves cache snapshots between a Cache and a SnapshotStore.
// It hydrates once on Start, flushes every interval while running, and
// flushes a final time on Stop.
type Checkpointer struct {
	cache    *Cache
	store    SnapshotStore
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	interval time.Duration
	mu       sync.Mutex
	started  bool
	stopped  bool
}

// NewCheckpointer creates a checkpointer. An interval of zero disables
// periodic flushing.
func NewCheckpointer(cache *Cache, store SnapshotStore, interval time.Duration, logger *slog.Logger) *Checkpointer {
	return &Checkpointer{
		cache:    cache,
		store:    store,
		logger:   common.LoggerOrDefault(logger),
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start hydrates the cache from the store and begins periodic flushing.
// It returns the number of entries loaded.
func (cp *Checkpointer) Start(ctx context.Context) (int, error) {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if cp.stopped {
		return 0, ErrCheckpointerStopped
	}
	if cp.started {
		return 0, nil
	}

	entries, err := cp.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load cache snapshot: %w", err)
	}
	loaded := cp.cache.Hydrate(entries)
	cp.logger.Debug("cache hydrated", "entries", loaded, "stored", len(entries))

	cp.started = true
	if cp.interval > 0 {
		go cp.run()
	} else {
		close(cp.doneCh)
	}

	return loaded, nil
}

// Flush saves the current cache snapshot.
func (cp *Checkpointer) Flush(ctx context.Context) error {
	entries := cp.cache.Drain()
	if err := cp.store.Save(ctx, entries); err != nil {
		return fmt.Errorf("failed to save cache snapshot: %w", err)
	}
	cp.logger.Debug("cache checkpointed", "entries", len(entries))
	return nil
}

// Stop ends periodic flushing and writes a final snapshot.
func (cp *Checkpointer) Stop(ctx context.Context) error {
	cp.mu.Lock()
	if cp.stopped {
		cp.mu.Unlock()
		return nil
	}
	cp.stopped = true
	started := cp.started
	cp.mu.Unlock()

	if !started {
		return nil
	}

	close(cp.stopCh)
	<-cp.doneCh

	return cp.Flush(ctx)
}

func (cp *Checkpointer) run() {
	defer close(cp.doneCh)

	ticker := time.NewTicker(cp.interval)
	defer ticker.Stop()

	for {
		select {
		case <-cp.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), cp.interval)
			if err := cp.Flush(ctx); err != nil {
				cp.logger.Error("periodic checkpoint failed", "error", err)
			}
			cancel()
		}
	}
}
