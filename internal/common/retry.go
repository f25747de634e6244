package common

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryOptions configures Retry.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Timeout bounds each attempt, not the whole call.
	Timeout time.Duration
	Logger  *slog.Logger
}

// DefaultRetryOptions returns the defaults used when fields are left zero.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Timeout:      30 * time.Second,
	}
}

func (o RetryOptions) withDefaults() RetryOptions {
	def := DefaultRetryOptions()
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = def.MaxAttempts
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = def.InitialDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = def.MaxDelay
	}
	if o.Multiplier <= 0 {
		o.Multiplier = def.Multiplier
	}
	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Retry runs op until it succeeds, fails permanently, or MaxAttempts is spent.
//
// Rate-limit failures back off exponentially from InitialDelay. Any other
// retryable failure waits a shorter delay that grows linearly with the attempt
// number. Each attempt is raced against Timeout.
func Retry[T any](ctx context.Context, opts RetryOptions, op func(context.Context) (T, error)) (T, error) {
	opts = opts.withDefaults()

	rateLimitBackoff := backoff.NewExponentialBackOff()
	rateLimitBackoff.InitialInterval = opts.InitialDelay
	rateLimitBackoff.Multiplier = opts.Multiplier
	rateLimitBackoff.MaxInterval = opts.MaxDelay
	rateLimitBackoff.RandomizationFactor = 0
	rateLimitBackoff.MaxElapsedTime = 0
	rateLimitBackoff.Reset()

	var zero T
	var lastErr error

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		result, err := attemptWithTimeout(ctx, opts.Timeout, op)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		if !IsRetryable(err) {
			return zero, err
		}

		if attempt == opts.MaxAttempts {
			break
		}

		var delay time.Duration
		if errors.Is(err, ErrRateLimit) {
			delay = rateLimitBackoff.NextBackOff()
		} else {
			delay = opts.InitialDelay / 4 * time.Duration(attempt)
		}

		opts.Logger.Warn("operation failed, retrying",
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"delay", delay,
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, &RetriesExhaustedError{Attempts: opts.MaxAttempts, LastErr: lastErr}
}

type attemptResult[T any] struct {
	value T
	err   error
}

// attemptWithTimeout runs op in its own goroutine so a stuck op cannot
// hold the caller past the deadline.
func attemptWithTimeout[T any](ctx context.Context, timeout time.Duration, op func(context.Context) (T, error)) (T, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan attemptResult[T], 1)
	go func() {
		value, err := op(attemptCtx)
		done <- attemptResult[T]{value: value, err: err}
	}()

	var zero T
	select {
	case res := <-done:
		if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return zero, &TimeoutError{Timeout: timeout}
		}
		return res.value, res.err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, &TimeoutError{Timeout: timeout}
	}
}
