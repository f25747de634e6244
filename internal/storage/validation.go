// Package storage persists classification cache snapshots.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/sift/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateEntries rejects snapshots that could not have come from a cache.
func validateEntries(entries []model.CacheEntry) error {
	seen := make(map[string]struct{}, len(entries))
	for i, entry := range entries {
		if entry.Key == "" {
			return fmt.Errorf("%w at index %d: empty key", ErrInvalidEntry, i)
		}
		if entry.Timestamp.IsZero() {
			return fmt.Errorf("%w at index %d: missing timestamp", ErrInvalidEntry, i)
		}
		if _, dup := seen[entry.Key]; dup {
			return fmt.Errorf("%w at index %d: duplicate key %q", ErrInvalidEntry, i, entry.Key)
		}
		seen[entry.Key] = struct{}{}
	}
	return nil
}
