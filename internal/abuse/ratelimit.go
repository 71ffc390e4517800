// Package abuse implements the anti-abuse gates that every public write
// endpoint passes before persisting anything: a fixed-window rate
// limiter and a content-fingerprint duplicate detector, both backed by
// the shared kvstore.
package abuse

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"communityd/internal/kvstore"
)

// Limiter counts submissions per (endpoint path, client IP) within a
// fixed window. This is not a sliding window: a client can burst up to
// the limit at the end of one window and again at the start of the
// next, so the worst case is just under 2x the limit per window at a
// boundary. Accepted tradeoff for a single read-then-write per check.
//
// The read and the write are not atomic, so near-simultaneous requests
// can both observe the old count and slip through. Bounded by how close
// the requests land; tolerated rather than locked around.
type Limiter struct {
	kv kvstore.Store
}

// NewLimiter creates a rate limiter on top of the given store.
func NewLimiter(kv kvstore.Store) *Limiter {
	return &Limiter{kv: kv}
}

// rateKey builds the counter key for an endpoint/client pair.
func rateKey(path, ip string) string {
	return "rl:" + path + ":" + ip
}

// Allow reports whether a request from ip to path fits within limit
// occurrences per window. A denied request does not mutate the counter;
// an allowed request increments it and resets its expiry to a full
// window from now.
func (l *Limiter) Allow(ctx context.Context, path, ip string, limit int, window time.Duration) (bool, error) {
	key := rateKey(path, ip)

	raw, ok, err := l.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("rate limit read %s: %w", key, err)
	}

	count := 0
	if ok {
		// Non-numeric values are treated as zero, same as absent.
		if parsed, err := strconv.Atoi(raw); err == nil {
			count = parsed
		}
	}

	if count >= limit {
		return false, nil
	}

	if err := l.kv.Put(ctx, key, strconv.Itoa(count+1), window); err != nil {
		return false, fmt.Errorf("rate limit write %s: %w", key, err)
	}

	return true, nil
}
