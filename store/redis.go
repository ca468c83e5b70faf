package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-backed store. Window increments use the native
// atomic INCR, so counters stay correct across any number of
// request-handling processes sharing the same Redis.
type RedisStore struct {
	rdb redis.UniversalClient

	scanCount int64
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithScanCount sets the COUNT hint used for prefix scans. Default: 100.
func WithScanCount(n int64) RedisOption {
	return func(s *RedisStore) { s.scanCount = n }
}

// NewRedisStore creates a store on top of an existing Redis client.
func NewRedisStore(rdb redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:       rdb,
		scanCount: 100,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Incr implements Store. INCR is atomic server-side; the expiry is
// armed only when the increment created the key (count == 1).
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	if err := ValidateKey(key); err != nil {
		return 0, err
	}

	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: incr %s: %w", ErrUnavailable, key, err)
	}

	if count == 1 {
		if err := s.rdb.PExpire(ctx, key, window).Err(); err != nil {
			return count, fmt.Errorf("%w: pexpire %s: %w", ErrUnavailable, key, err)
		}
	}

	return count, nil
}

// Get retrieves a value. Redis expires keys natively, so a miss and an
// expired key are indistinguishable here.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %s: %w", ErrUnavailable, key, err)
	}
	return val, true, nil
}

// SetTTL stores a value with a native TTL. TTL<=0 means do not store.
func (s *RedisStore) SetTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %w", ErrUnavailable, key, err)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix via SCAN+DEL.
func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	deleted := 0

	iter := s.rdb.Scan(ctx, 0, prefix+"*", s.scanCount).Iterator()
	batch := make([]string, 0, s.scanCount)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if int64(len(batch)) >= s.scanCount {
			n, err := s.rdb.Del(ctx, batch...).Result()
			if err != nil {
				return deleted, fmt.Errorf("%w: del %s*: %w", ErrUnavailable, prefix, err)
			}
			deleted += int(n)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("%w: scan %s*: %w", ErrUnavailable, prefix, err)
	}
	if len(batch) > 0 {
		n, err := s.rdb.Del(ctx, batch...).Result()
		if err != nil {
			return deleted, fmt.Errorf("%w: del %s*: %w", ErrUnavailable, prefix, err)
		}
		deleted += int(n)
	}

	return deleted, nil
}

// TTL reports the remaining lifetime of key. Absent keys and keys
// without expiry both report 0.
func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.rdb.PTTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: pttl %s: %w", ErrUnavailable, key, err)
	}
	// Redis reports -1 (no expiry) and -2 (no key) as negative durations.
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

// Reset removes a single key. Idempotent.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: del %s: %w", ErrUnavailable, key, err)
	}
	return nil
}

// Ping checks connectivity. Used by health checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrUnavailable, err)
	}
	return nil
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)
