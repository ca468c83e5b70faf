package store

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded in-memory store.
//
// Counters and cache entries share one expiry model: lazy expiry on
// read plus an optional janitor goroutine. Suitable only when the
// service runs as a single process; window counters are lost on
// restart.
type MemoryStore struct {
	mu       sync.RWMutex
	counters map[string]*counterEntry
	values   map[string]*valueEntry

	cleanupEvery time.Duration
}

type counterEntry struct {
	count     int64
	expiresAt time.Time
}

type valueEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithCleanupEvery sets the janitor interval. Default: 1 minute.
func WithCleanupEvery(d time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.cleanupEvery = d }
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		counters:     make(map[string]*counterEntry),
		values:       make(map[string]*valueEntry),
		cleanupEvery: time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Incr implements Store. The TTL is armed exactly once, on the
// increment that creates the window.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	if err := ValidateKey(key); err != nil {
		return 0, err
	}

	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.counters[key]
	if !ok || now.After(ent.expiresAt) {
		s.counters[key] = &counterEntry{count: 1, expiresAt: now.Add(window)}
		return 1, nil
	}

	ent.count++
	return ent.count, nil
}

// Get retrieves a value. Returns (nil, false, nil) on miss or expiry.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	ent, ok := s.values[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	if time.Now().After(ent.expiresAt) {
		// Expired - clean up lazily
		s.mu.Lock()
		delete(s.values, key)
		s.mu.Unlock()
		return nil, false, nil
	}

	return ent.value, true, nil
}

// SetTTL stores a value. TTL<=0 means do not store.
func (s *MemoryStore) SetTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}

	s.mu.Lock()
	s.values[key] = &valueEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	s.mu.Unlock()

	return nil
}

// DeletePrefix removes all live keys starting with prefix.
func (s *MemoryStore) DeletePrefix(_ context.Context, prefix string) (int, error) {
	now := time.Now()
	deleted := 0

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.values {
		if strings.HasPrefix(k, prefix) {
			if !now.After(ent.expiresAt) {
				deleted++
			}
			delete(s.values, k)
		}
	}
	for k := range s.counters {
		if strings.HasPrefix(k, prefix) {
			ent := s.counters[k]
			if !now.After(ent.expiresAt) {
				deleted++
			}
			delete(s.counters, k)
		}
	}
	return deleted, nil
}

// TTL reports the remaining lifetime of key, 0 when absent or expired.
func (s *MemoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	now := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if ent, ok := s.counters[key]; ok {
		if d := ent.expiresAt.Sub(now); d > 0 {
			return d, nil
		}
	}
	if ent, ok := s.values[key]; ok {
		if d := ent.expiresAt.Sub(now); d > 0 {
			return d, nil
		}
	}
	return 0, nil
}

// Reset removes a single key. Idempotent.
func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.counters, key)
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}

// Cleanup removes every expired entry. Called by the janitor; exported
// so callers without a janitor can purge on their own schedule.
func (s *MemoryStore) Cleanup() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.counters {
		if now.After(ent.expiresAt) {
			delete(s.counters, k)
		}
	}
	for k, ent := range s.values {
		if now.After(ent.expiresAt) {
			delete(s.values, k)
		}
	}
}

// StartJanitor starts a goroutine that purges expired entries
// periodically. Stop it by cancelling the context.
func (s *MemoryStore) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

// Len reports the number of live entries. Used by health checks.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.counters) + len(s.values)
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
