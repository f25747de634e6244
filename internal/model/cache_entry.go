// Package model defines the core domain models used throughout the application.
package model

import "time"

// CacheEntry is one remembered classification decision.
// Key is the normalized item text.
type CacheEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Key       string    `json:"key"`
	Decision  bool      `json:"decision"`
}

// Age returns how old the entry is at now.
func (e CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}

// Expired reports whether the entry is at least ttl old at now.
func (e CacheEntry) Expired(now time.Time, ttl time.Duration) bool {
	return e.Age(now) >= ttl
}
