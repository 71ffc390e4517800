package abuse

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"communityd/internal/kvstore"
)

// Detector rejects resubmission of byte-identical content from the same
// client within a window. Callers decide what "the same submission"
// means by joining the defining fields in a stable order before calling
// Allow; a single differing byte produces a different fingerprint.
type Detector struct {
	kv kvstore.Store
}

// NewDetector creates a duplicate-submission detector on top of the
// given store.
func NewDetector(kv kvstore.Store) *Detector {
	return &Detector{kv: kv}
}

// SHA256Hex returns the lowercase hex digest of the input.
func SHA256Hex(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// dupKey builds the fingerprint key for an endpoint/client/content triple.
func dupKey(path, ip, hash string) string {
	return "dup:" + path + ":" + ip + ":" + hash
}

// Allow reports whether content is new for (path, ip) within the
// window. New content is recorded with the window as its expiry; seen
// content is denied without touching the stored fingerprint. As with
// the rate limiter, check and record are two store operations, so two
// near-simultaneous identical submissions can both pass; the rate
// limiter bounds that to one per window anyway.
func (d *Detector) Allow(ctx context.Context, path, ip, content string, window time.Duration) (bool, error) {
	key := dupKey(path, ip, SHA256Hex(content))

	_, seen, err := d.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("duplicate check read %s: %w", key, err)
	}
	if seen {
		return false, nil
	}

	if err := d.kv.Put(ctx, key, "1", window); err != nil {
		return false, fmt.Errorf("duplicate check write %s: %w", key, err)
	}

	return true, nil
}
