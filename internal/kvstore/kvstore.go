// Package kvstore provides the expiring key-value storage behind the
// anti-abuse gates: rate-limit counters and duplicate-submission
// fingerprints. Three backends implement the same contract: Redis
// (shared across instances, preferred in production), BoltDB (durable
// across restarts but single-instance), and an in-process map (neither
// durable nor shared, last-resort fallback).
//
// Callers that need cross-instance enforcement must be deployed against
// the Redis backend; the other two only bound abuse per process.
package kvstore

import (
	"context"
	"time"
)

// Store is the get/put-with-expiry contract shared by all backends.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value stored under key. ok is false when the key
	// is absent or its TTL has elapsed; absence is not an error.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Put stores value under key. The value becomes unreadable once ttl
	// has elapsed. Expiry is approximate; lazy cleanup is acceptable.
	Put(ctx context.Context, key, value string, ttl time.Duration) error

	// Close releases any resources held by the backend.
	Close() error
}
