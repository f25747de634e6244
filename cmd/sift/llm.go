package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/sift/internal/config"
	"github.com/Veraticus/sift/internal/engine"
	"github.com/Veraticus/sift/internal/llm"
	"github.com/Veraticus/sift/internal/storage"
	"github.com/spf13/viper"
)

// cacheSession is a hydrated cache bound to its store.
type cacheSession struct {
	cache        *engine.Cache
	store        storage.CacheStore
	checkpointer *engine.Checkpointer
}

// loadConfig resolves the configuration from viper.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openCacheSession opens the configured store and hydrates a cache from it.
// When periodic is false the checkpointer only flushes on close.
func openCacheSession(ctx context.Context, cfg *config.Config, periodic bool) (*cacheSession, error) {
	store, err := storage.Open(ctx, cfg.Cache.Store, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to open cache store: %w", err)
	}

	interval := cfg.Cache.CheckpointInterval
	if !periodic {
		interval = 0
	}

	cache := engine.NewCache(cfg.Cache.TTL)
	checkpointer := engine.NewCheckpointer(cache, store, interval, slog.Default())
	loaded, err := checkpointer.Start(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	slog.Debug("Loaded cache snapshot", "entries", loaded, "store", cfg.Cache.Store.Backend)

	return &cacheSession{
		cache:        cache,
		store:        store,
		checkpointer: checkpointer,
	}, nil
}

// close writes a final snapshot and releases the store. The context is
// detached from the command so an interrupted run still saves its progress.
func (s *cacheSession) close(ctx context.Context) error {
	flushErr := s.checkpointer.Stop(context.WithoutCancel(ctx))
	if flushErr != nil {
		slog.Error("Failed to save cache", "error", flushErr)
	}
	return errors.Join(flushErr, s.store.Close())
}

// createClassifier builds the provider queue and classifier from configuration.
// The returned queue must be closed by the caller.
func createClassifier(cfg *config.Config, cache *engine.Cache, onBatch func(engine.BatchReport)) (*engine.Classifier, *llm.RequestQueue, error) {
	queue, err := llm.NewQueuedProvider(cfg.LLM, slog.Default())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}

	classifier := engine.New(queue, cache, engine.Options{
		BatchSize:     cfg.Classify.BatchSize,
		MaxItemLength: cfg.Classify.MaxItemLength,
		Retry:         cfg.Retry,
		OnBatch:       onBatch,
	}, slog.Default())

	return classifier, queue, nil
}
