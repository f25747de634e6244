// Package engine implements batch classification of text items against a
// topic set, with a TTL cache in front of the provider.
package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/llm"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// DefaultBatchSize is the number of items sent per completion request.
const DefaultBatchSize = 10

// Options configures a Classifier.
type Options struct {
	// OnBatch, when set, is called after every batch settles.
	OnBatch       func(BatchReport)
	Retry         common.RetryOptions
	BatchSize     int
	MaxItemLength int
}

// DefaultOptions returns the default configuration.
func DefaultOptions() Options {
	return Options{
		BatchSize:     DefaultBatchSize,
		MaxItemLength: DefaultMaxItemLength,
		Retry:         common.DefaultRetryOptions(),
	}
}

// BatchReport describes one settled batch.
type BatchReport struct {
	Err    error
	ID     string
	Index  int
	Total  int
	Size   int
	Failed bool
}

// Stats holds cumulative counters for a Classifier.
type Stats struct {
	Hits          int
	Misses        int
	Batches       int
	FailedBatches int
	ProviderCalls int
}

// Classifier answers whether items relate to a topic set, consulting the
// cache first and batching the rest through the provider.
type Classifier struct {
	provider llm.Provider
	cache    *Cache
	logger   *slog.Logger
	opts     Options
	stats    Stats
	mu       sync.Mutex
}

// New creates a Classifier. A nil cache gets a fresh one with the default TTL.
func New(provider llm.Provider, cache *Cache, opts Options, logger *slog.Logger) *Classifier {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxItemLength <= 0 {
		opts.MaxItemLength = DefaultMaxItemLength
	}
	logger = common.LoggerOrDefault(logger)
	if opts.Retry.Logger == nil {
		opts.Retry.Logger = logger
	}
	if cache == nil {
		cache = NewCache(0)
	}

	return &Classifier{
		provider: provider,
		cache:    cache,
		logger:   logger,
		opts:     opts,
	}
}

// Cache returns the classifier's cache.
func (c *Classifier) Cache() *Cache {
	return c.cache
}

// Stats returns a snapshot of the counters.
func (c *Classifier) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// ClassifyMany returns one decision per item, in input order. true means the
// item relates to at least one topic, or that it could not be classified.
//
// Provider failures never surface as errors: a batch that cannot be
// classified defaults to true and is not cached. The error is non-nil only
// when ctx ends early, in which case unfinished items are also true.
func (c *Classifier) ClassifyMany(ctx context.Context, items []string, topics []string) ([]bool, error) {
	results := make([]bool, len(items))
	positions := make(map[string][]int)
	var misses []string
	hits := 0

	for i, item := range items {
		key := NormalizeKey(item, c.opts.MaxItemLength)
		if key == "" {
			results[i] = true
			continue
		}
		if decision, ok := c.cache.Get(key); ok {
			results[i] = decision
			hits++
			continue
		}
		// Fail open until a batch says otherwise.
		results[i] = true
		misses = append(misses, key)
		positions[key] = append(positions[key], i)
	}

	c.count(func(s *Stats) {
		s.Hits += hits
		s.Misses += len(misses)
	})

	if hits > 0 {
		c.logger.Debug("cache hits", "hits", hits, "items", len(items))
	}
	if len(misses) == 0 {
		return results, nil
	}

	if len(topics) == 0 {
		c.logger.Warn("no topics configured, leaving items unfiltered", "items", len(misses))
		return results, nil
	}

	batches := lo.Chunk(lo.Uniq(misses), c.opts.BatchSize)
	for index, batch := range batches {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		report := BatchReport{
			ID:    uuid.New().String(),
			Index: index,
			Total: len(batches),
			Size:  len(batch),
		}

		decisions, err := c.classifyBatch(ctx, report.ID, topics, batch)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return results, ctxErr
			}

			c.logger.Warn("batch classification failed, leaving items unfiltered",
				"batch_id", report.ID,
				"batch", index+1,
				"size", len(batch),
				"error", err)
			report.Failed = true
			report.Err = err
			c.count(func(s *Stats) {
				s.Batches++
				s.FailedBatches++
			})
			c.notify(report)
			continue
		}

		for j, key := range batch {
			c.cache.Put(key, decisions[j])
			for _, pos := range positions[key] {
				results[pos] = decisions[j]
			}
		}

		c.logger.Info("batch classified",
			"batch_id", report.ID,
			"batch", index+1,
			"total", len(batches),
			"size", len(batch),
			"relevant", lo.Count(decisions, true))
		c.count(func(s *Stats) { s.Batches++ })
		c.notify(report)
	}

	return results, nil
}

// classifyBatch sends one batch, retrying both provider failures and
// answers that break the protocol.
func (c *Classifier) classifyBatch(ctx context.Context, batchID string, topics []string, batch []string) ([]bool, error) {
	req := BuildPrompt(topics, batch)

	retry := c.opts.Retry
	retry.Logger = retry.Logger.With("batch_id", batchID, "provider", c.provider.Name())

	return common.Retry(ctx, retry, func(ctx context.Context) ([]bool, error) {
		c.count(func(s *Stats) { s.ProviderCalls++ })

		resp, err := c.provider.Complete(ctx, req)
		if err != nil {
			return nil, err
		}
		return ParseResponse(resp, batch)
	})
}

func (c *Classifier) count(update func(*Stats)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	update(&c.stats)
}

func (c *Classifier) notify(report BatchReport) {
	if c.opts.OnBatch != nil {
		c.opts.OnBatch(report)
	}
}
