package llm

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Veraticus/sift/internal/common"
)

// ErrQueueClosed is returned for requests still pending when a queue is closed.
var ErrQueueClosed = errors.New("request queue closed")

// ErrorKind classifies a provider failure.
type ErrorKind string

// Provider failure kinds.
const (
	KindRateLimited ErrorKind = "rate_limited"
	KindAuth        ErrorKind = "auth"
	KindNetwork     ErrorKind = "network"
	KindMalformed   ErrorKind = "malformed"
)

// ProviderError represents a classified failure from a provider backend.
type ProviderError struct {
	Err        error
	Provider   string
	Kind       ErrorKind
	Message    string
	StatusCode int
	// RetryAfter is the provider-suggested wait. Zero means none was given.
	RetryAfter time.Duration
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s %s error", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying transport or decoding error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, common.ErrRateLimit) match rate-limit failures.
func (e *ProviderError) Is(target error) bool {
	return target == common.ErrRateLimit && e.Kind == KindRateLimited
}

// Retryable reports whether a later attempt could succeed.
func (e *ProviderError) Retryable() bool {
	return e.Kind != KindAuth
}

// ConfigError reports a missing or invalid provider setting.
type ConfigError struct {
	Provider string
	Field    string
	Reason   string
}

func (e *ConfigError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "is required"
	}
	if e.Provider == "" {
		return fmt.Sprintf("llm config: %s %s", e.Field, reason)
	}
	return fmt.Sprintf("%s config: %s %s", e.Provider, e.Field, reason)
}

// Is matches common.ErrMissingConfig for absent fields and
// common.ErrInvalidConfig for rejected values.
func (e *ConfigError) Is(target error) bool {
	if e.Reason == "" {
		return target == common.ErrMissingConfig
	}
	return target == common.ErrInvalidConfig
}

// Retryable is always false; configuration does not fix itself.
func (e *ConfigError) Retryable() bool {
	return false
}

// RetryAfter extracts the provider-suggested wait from err, or zero.
func RetryAfter(err error) time.Duration {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.RetryAfter
	}
	return 0
}

// IsKind reports whether err is a ProviderError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Kind == kind
	}
	return false
}

// statusError classifies a non-2xx response. rateLimited is the provider's own
// verdict from the message body; 429 always counts.
func statusError(provider string, status int, message string, rateLimited bool, retryAfter time.Duration) *ProviderError {
	if message == "" {
		message = http.StatusText(status)
	}

	err := &ProviderError{
		Provider:   provider,
		StatusCode: status,
		Message:    message,
	}

	switch {
	case rateLimited || status == http.StatusTooManyRequests:
		err.Kind = KindRateLimited
		err.RetryAfter = retryAfter
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		err.Kind = KindAuth
	default:
		err.Kind = KindNetwork
	}

	return err
}
