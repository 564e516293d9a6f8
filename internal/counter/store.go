// Package counter provides the shared atomic counter store backing the rate
// limiter and the background leader locks.
//
// The interface is deliberately small: increment-with-TTL, decrement, read,
// and set-if-absent. The Redis implementation is the production store; the
// in-memory implementation serves tests and single-process deployments.
package counter

import (
	"context"
	"time"
)

// Store is an atomic counter keyed by string. All mutations must be atomic
// across concurrent callers and across processes for shared backends.
type Store interface {
	// IncrWithTTL atomically increments key by one and returns the new value.
	// When the increment creates the key and ttl > 0, the key expires after
	// ttl. An existing key's TTL is left alone.
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Decr atomically decrements key by one. Decrementing a missing key is a
	// no-op, so a rollback that races a window expiry cannot push the next
	// window negative.
	Decr(ctx context.Context, key string) error

	// Get returns the current value, 0 for a missing key.
	Get(ctx context.Context, key string) (int64, error)

	// SetNX sets key to value with a TTL only if the key is absent and
	// reports whether it was set. Used for leader election on background
	// sweeps.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}
