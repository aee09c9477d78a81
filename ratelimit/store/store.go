// Package store provides counter storage backends for the rate limiter.
//
// The limiter is constructed with a Store rather than owning its counters, so
// the process-local Memory store can be swapped for the Redis store (shared
// counters across replicas) without touching any call site.
package store

import (
	"context"
	"time"
)

// Store is a fixed-window request counter keyed by string.
// Implementations must be safe for concurrent use: the read-modify-write of a
// key's count is atomic, so concurrent requests for the same key never observe
// a stale count.
type Store interface {
	// Increment records one request against key and returns the count for the
	// current window and the time remaining until the window resets.
	// A key with no live window starts a fresh window with count 1.
	Increment(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)

	// Get returns the current count for key without recording a request.
	// Returns 0 for keys with no live window.
	Get(ctx context.Context, key string) (int64, error)

	// Reset removes the counter for key.
	Reset(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}
