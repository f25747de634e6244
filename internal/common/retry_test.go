package common

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rateLimitedErr struct{}

func (rateLimitedErr) Error() string        { return "call rate limit" }
func (rateLimitedErr) Is(target error) bool { return target == ErrRateLimit }

type authErr struct{}

func (authErr) Error() string   { return "unauthorized" }
func (authErr) Retryable() bool { return false }

func fastOptions(attempts int) RetryOptions {
	return RetryOptions{
		MaxAttempts:  attempts,
		InitialDelay: 4 * time.Millisecond,
		MaxDelay:     20 * time.Millisecond,
		Multiplier:   2,
		Timeout:      time.Second,
	}
}

func TestRetry(t *testing.T) {
	t.Run("succeeds first try", func(t *testing.T) {
		var calls int32
		got, err := Retry(context.Background(), fastOptions(3), func(context.Context) (string, error) {
			atomic.AddInt32(&calls, 1)
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		assert.Equal(t, int32(1), calls)
	})

	t.Run("recovers after transient failures", func(t *testing.T) {
		var calls int32
		got, err := Retry(context.Background(), fastOptions(3), func(context.Context) (int, error) {
			if atomic.AddInt32(&calls, 1) < 3 {
				return 0, errors.New("flaky")
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.Equal(t, int32(3), calls)
	})

	t.Run("stops at max attempts", func(t *testing.T) {
		var calls int32
		lastErr := errors.New("still broken")
		_, err := Retry(context.Background(), fastOptions(4), func(context.Context) (int, error) {
			atomic.AddInt32(&calls, 1)
			return 0, lastErr
		})
		require.Error(t, err)
		assert.Equal(t, int32(4), calls)
		assert.ErrorIs(t, err, ErrRetriesExhausted)
		assert.ErrorIs(t, err, lastErr)

		var exhausted *RetriesExhaustedError
		require.ErrorAs(t, err, &exhausted)
		assert.Equal(t, 4, exhausted.Attempts)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		var calls int32
		_, err := Retry(context.Background(), fastOptions(5), func(context.Context) (int, error) {
			atomic.AddInt32(&calls, 1)
			return 0, authErr{}
		})
		require.Error(t, err)
		assert.Equal(t, int32(1), calls)
		assert.NotErrorIs(t, err, ErrRetriesExhausted)
	})

	t.Run("does not retry wrapped permanent errors", func(t *testing.T) {
		var calls int32
		_, err := Retry(context.Background(), fastOptions(5), func(context.Context) (int, error) {
			atomic.AddInt32(&calls, 1)
			return 0, Permanent(errors.New("bad input"))
		})
		require.Error(t, err)
		assert.Equal(t, int32(1), calls)
	})

	t.Run("rate limit delays grow exponentially", func(t *testing.T) {
		var stamps []time.Time
		opts := RetryOptions{
			MaxAttempts:  4,
			InitialDelay: 20 * time.Millisecond,
			MaxDelay:     time.Second,
			Multiplier:   2,
			Timeout:      time.Second,
		}
		_, err := Retry(context.Background(), opts, func(context.Context) (int, error) {
			stamps = append(stamps, time.Now())
			return 0, fmt.Errorf("wrapped: %w", rateLimitedErr{})
		})
		require.ErrorIs(t, err, ErrRetriesExhausted)
		require.Len(t, stamps, 4)

		assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 20*time.Millisecond)
		assert.GreaterOrEqual(t, stamps[2].Sub(stamps[1]), 40*time.Millisecond)
		assert.GreaterOrEqual(t, stamps[3].Sub(stamps[2]), 80*time.Millisecond)
	})

	t.Run("attempt timeout", func(t *testing.T) {
		opts := fastOptions(2)
		opts.Timeout = 20 * time.Millisecond

		var calls int32
		_, err := Retry(context.Background(), opts, func(ctx context.Context) (int, error) {
			atomic.AddInt32(&calls, 1)
			<-ctx.Done()
			return 0, ctx.Err()
		})
		require.ErrorIs(t, err, ErrRetriesExhausted)
		assert.ErrorIs(t, err, ErrTimeout)
		assert.Equal(t, int32(2), calls)
	})

	t.Run("timeout wins over op that ignores context", func(t *testing.T) {
		opts := fastOptions(1)
		opts.Timeout = 20 * time.Millisecond

		release := make(chan struct{})
		defer close(release)

		start := time.Now()
		_, err := Retry(context.Background(), opts, func(context.Context) (int, error) {
			<-release
			return 1, nil
		})
		require.Error(t, err)
		var timeoutErr *TimeoutError
		assert.ErrorAs(t, err, &timeoutErr)
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})

	t.Run("context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		opts := fastOptions(10)
		opts.InitialDelay = time.Second

		var calls int32
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		_, err := Retry(ctx, opts, func(context.Context) (int, error) {
			atomic.AddInt32(&calls, 1)
			return 0, fmt.Errorf("wrapped: %w", rateLimitedErr{})
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, int32(1), calls)
	})

	t.Run("defaults applied", func(t *testing.T) {
		opts := RetryOptions{}.withDefaults()
		assert.Equal(t, 3, opts.MaxAttempts)
		assert.Equal(t, time.Second, opts.InitialDelay)
		assert.Equal(t, 30*time.Second, opts.MaxDelay)
		assert.InDelta(t, 2.0, opts.Multiplier, 0.0001)
		assert.Equal(t, 30*time.Second, opts.Timeout)
		assert.NotNil(t, opts.Logger)
	})
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain error", err: errors.New("boom"), want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "permanent", err: Permanent(errors.New("x")), want: false},
		{name: "explicit retryable", err: &RetryableError{Err: errors.New("x"), Retryable: true}, want: true},
		{name: "classified permanent", err: fmt.Errorf("wrap: %w", authErr{}), want: false},
		{name: "timeout", err: &TimeoutError{Timeout: time.Second}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", level.String())

	_, err = ParseLevel("loud")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
