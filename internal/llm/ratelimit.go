package llm

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/sift/internal/common"
)

// QueueOptions configures a RequestQueue.
type QueueOptions struct {
	// MinInterval is the starting gap between two provider calls.
	MinInterval time.Duration
	// MaxRequeues caps how often one request goes back to the head of the
	// queue after a rate-limit response before its caller sees the error.
	MaxRequeues int
}

// QueueResult settles one queued request.
type QueueResult struct {
	Err      error
	Response CompletionResponse
}

type queueItem struct {
	ctx        context.Context
	enqueuedAt time.Time
	result     chan QueueResult
	request    CompletionRequest
	requeues   int
}

func (i *queueItem) settle(res QueueResult) {
	i.result <- res
}

// RequestQueue serializes calls to a provider and keeps them at least
// MinInterval apart. The interval only grows: a provider that asks for a
// longer wait keeps getting it for the life of the queue.
//
// RequestQueue implements Provider, so it can stand in for the adapter it wraps.
type RequestQueue struct {
	lastCall    time.Time
	provider    Provider
	logger      *slog.Logger
	after       func(time.Duration) <-chan time.Time
	stopCh      chan struct{}
	items       []*queueItem
	minInterval time.Duration
	maxRequeues int
	mu          sync.Mutex
	draining    bool
	closed      bool
}

// NewRequestQueue wraps provider in a FIFO queue with a single drain loop.
func NewRequestQueue(provider Provider, opts QueueOptions, logger *slog.Logger) *RequestQueue {
	if opts.MinInterval <= 0 {
		opts.MinInterval = time.Second
	}
	if opts.MaxRequeues <= 0 {
		opts.MaxRequeues = 3
	}

	return &RequestQueue{
		provider:    provider,
		logger:      common.LoggerOrDefault(logger).With("provider", provider.Name()),
		after:       time.After,
		stopCh:      make(chan struct{}),
		minInterval: opts.MinInterval,
		maxRequeues: opts.MaxRequeues,
	}
}

// Name returns the wrapped provider's name.
func (q *RequestQueue) Name() string {
	return q.provider.Name()
}

// Enqueue appends req to the queue and returns a channel that receives
// exactly one result.
func (q *RequestQueue) Enqueue(ctx context.Context, req CompletionRequest) <-chan QueueResult {
	item := &queueItem{
		ctx:        ctx,
		request:    req,
		result:     make(chan QueueResult, 1),
		enqueuedAt: time.Now(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		item.settle(QueueResult{Err: common.Permanent(ErrQueueClosed)})
		return item.result
	}

	q.items = append(q.items, item)
	if !q.draining {
		q.draining = true
		go q.drain()
	}

	return item.result
}

// Complete enqueues req and waits for its result or for ctx to end.
func (q *RequestQueue) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	select {
	case res := <-q.Enqueue(ctx, req):
		return res.Response, res.Err
	case <-ctx.Done():
		return CompletionResponse{}, ctx.Err()
	}
}

// MinInterval returns the current enforced gap between calls.
func (q *RequestQueue) MinInterval() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.minInterval
}

// Len returns the number of requests waiting to be sent.
func (q *RequestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops the drain loop and fails every pending request.
func (q *RequestQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	pending := q.items
	q.items = nil
	close(q.stopCh)
	q.mu.Unlock()

	for _, item := range pending {
		item.settle(QueueResult{Err: common.Permanent(ErrQueueClosed)})
	}
	return nil
}

// drain sends queued requests one at a time until the queue is empty.
func (q *RequestQueue) drain() {
	for {
		q.mu.Lock()
		if q.closed || len(q.items) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		wait := time.Until(q.lastCall.Add(q.minInterval))
		q.mu.Unlock()

		if wait > 0 {
			q.logger.Debug("waiting for call slot", "wait", wait)
			if !q.sleep(wait) {
				return
			}
		}

		item, ok := q.pop()
		if !ok {
			return
		}

		if err := item.ctx.Err(); err != nil {
			item.settle(QueueResult{Err: err})
			continue
		}

		resp, err := q.provider.Complete(item.ctx, item.request)
		if err == nil {
			q.mu.Lock()
			q.lastCall = time.Now()
			q.mu.Unlock()

			q.logger.Debug("provider call completed", "queued_for", time.Since(item.enqueuedAt))
			item.settle(QueueResult{Response: resp})
			continue
		}

		if errors.Is(err, common.ErrRateLimit) && item.requeues < q.maxRequeues && item.ctx.Err() == nil {
			suggested, requeued := q.backOff(item, RetryAfter(err))
			if !requeued {
				item.settle(QueueResult{Err: common.Permanent(ErrQueueClosed)})
				return
			}
			if !q.sleep(suggested) {
				return
			}
			continue
		}

		q.mu.Lock()
		q.lastCall = time.Now()
		q.mu.Unlock()
		item.settle(QueueResult{Err: err})
	}
}

// pop removes the head of the queue. It reports false when the queue was
// closed or emptied while the drain loop slept.
func (q *RequestQueue) pop() (*queueItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || len(q.items) == 0 {
		q.draining = false
		return nil, false
	}

	item := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return item, true
}

// backOff grows the interval to the provider's suggested wait, puts item back
// at the head of the queue and returns how long to pause. It reports false
// without requeueing when the queue was closed during the call.
func (q *RequestQueue) backOff(item *queueItem, suggested time.Duration) (time.Duration, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0, false
	}

	if suggested <= 0 {
		suggested = q.minInterval
	}
	if suggested > q.minInterval {
		q.logger.Info("provider requested a longer call interval",
			"min_interval", suggested,
			"previous", q.minInterval)
		q.minInterval = suggested
	}

	item.requeues++
	q.items = append([]*queueItem{item}, q.items...)

	q.logger.Warn("rate limited, requeued request",
		"wait", suggested,
		"requeues", item.requeues)

	return suggested, true
}

// sleep pauses the drain loop. It reports false if the queue was closed.
func (q *RequestQueue) sleep(d time.Duration) bool {
	select {
	case <-q.after(d):
		return true
	case <-q.stopCh:
		return false
	}
}
