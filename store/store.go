package store

import (
	"context"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a store key.
const MaxKeyLength = 512

// Store is the interface for the traffic-control backing store.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Incr must be linearizable per key: two concurrent increments on the
//   same key must never observe the same pre-increment value.
// - Get on an expired key reads as absent, never as an error.
type Store interface {
	// Incr atomically increments the counter at key, creating it at 1 if
	// absent. The TTL is armed only by the increment that creates the
	// key; later increments within the same window never re-arm it.
	// Returns the post-increment count.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)

	// Get retrieves a value. Returns (nil, false, nil) on miss or expiry.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// SetTTL stores a value with the given TTL. TTL<=0 means do not store.
	SetTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// DeletePrefix removes every key starting with prefix and returns the
	// number of keys removed. Deleting an absent range is a no-op.
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// TTL returns the remaining lifetime of key. Returns 0 for keys that
	// are absent or have no expiry.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Reset removes a single key. Idempotent - no error on miss.
	Reset(ctx context.Context, key string) error
}

// ValidateKey checks if a key is usable with a Store.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
