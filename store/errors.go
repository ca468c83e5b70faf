package store

import "errors"

// Sentinel errors for store operations.
var (
	// ErrInvalidKey is returned for empty or malformed keys.
	ErrInvalidKey = errors.New("store: key is invalid")

	// ErrKeyTooLong is returned when a key exceeds MaxKeyLength.
	ErrKeyTooLong = errors.New("store: key exceeds max length")

	// ErrUnavailable is returned when the backing store cannot be
	// reached. Callers are expected to degrade (fail open / fail soft)
	// rather than propagate it.
	ErrUnavailable = errors.New("store: backing store unavailable")
)
