package dedup

import (
	"context"
	"time"
)

// RetentionWindow is how long a processed fingerprint stays authoritative.
// Records older than this are treated as absent by every backend.
const RetentionWindow = 24 * time.Hour

// Store persists processed-message fingerprints with automatic expiry.
// Implementations must not be required for correctness beyond the retention
// window; callers degrade to "unseen" when a lookup fails.
type Store interface {
	Exists(ctx context.Context, fingerprint string) (bool, error)
	Record(ctx context.Context, fingerprint string, payload []byte) error
	Close() error
}
