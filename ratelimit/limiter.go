package ratelimit

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/libshelf/gate/store"
)

// KeyPrefix scopes every limiter key in the backing store.
const KeyPrefix = "ratelimit:"

// Policy is the declarative rate-limit configuration attached to a
// route at registration time. Immutable afterwards.
type Policy struct {
	// MaxRequests is the number of requests allowed per window.
	MaxRequests int

	// Window is the fixed window length.
	Window time.Duration
}

// Enabled reports whether the policy actually limits anything.
// A zero Policy means the route carries no rate limit.
func (p Policy) Enabled() bool {
	return p.MaxRequests > 0 && p.Window > 0
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed bool

	// Count is the post-increment window counter.
	Count int64

	// RetryAfter is how long the caller should wait when denied.
	RetryAfter time.Duration
}

// Limiter decides allow/deny per identity and route using a fixed
// window counter.
//
// The algorithm is deliberately a fixed window, not a sliding window or
// token bucket: all requests inside one discrete window share a single
// counter that resets only when the window's TTL elapses. A worst-case
// alignment spanning two adjacent windows can admit up to 2x
// MaxRequests.
type Limiter struct {
	store store.Store
	log   zerolog.Logger

	metrics MetricsRecorder
}

// MetricsRecorder receives admission decisions and absorbed store
// faults. Optional.
type MetricsRecorder interface {
	RecordDecision(ctx context.Context, route string, allowed bool)
	RecordStoreFault(ctx context.Context, component string)
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithMetrics attaches a decision metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(l *Limiter) { l.metrics = m }
}

// NewLimiter creates a limiter on top of the given store.
func NewLimiter(s store.Store, log zerolog.Logger, opts ...Option) *Limiter {
	l := &Limiter{store: s, log: log}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Key builds the window key for an identity on a route.
func Key(identity, routeID string) string {
	return KeyPrefix + identity + ":" + routeID
}

// Check records one request from identity against routeID and decides
// admission. Store faults fail open: the request is allowed and the
// fault is logged, never surfaced.
func (l *Limiter) Check(ctx context.Context, identity, routeID string, p Policy) Decision {
	if !p.Enabled() {
		return Decision{Allowed: true}
	}

	key := Key(identity, routeID)

	count, err := l.store.Incr(ctx, key, p.Window)
	if err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("rate limit check failed, allowing request")
		if l.metrics != nil {
			l.metrics.RecordStoreFault(ctx, "ratelimit")
		}
		dec := Decision{Allowed: true}
		l.record(ctx, routeID, dec.Allowed)
		return dec
	}

	dec := Decision{Allowed: count <= int64(p.MaxRequests), Count: count}
	if !dec.Allowed {
		dec.RetryAfter = l.retryAfter(ctx, key, p)
	}
	l.record(ctx, routeID, dec.Allowed)
	return dec
}

// retryAfter reads the window's remaining TTL, falling back to the full
// window (rounded up to whole seconds) when the store cannot report it.
func (l *Limiter) retryAfter(ctx context.Context, key string, p Policy) time.Duration {
	ttl, err := l.store.TTL(ctx, key)
	if err != nil || ttl <= 0 {
		secs := math.Ceil(p.Window.Seconds())
		return time.Duration(secs) * time.Second
	}
	return ttl
}

// Reset clears the window for one identity on one route. Intended for
// manual unblocking from an admin surface.
func (l *Limiter) Reset(ctx context.Context, identity, routeID string) error {
	return l.store.Reset(ctx, Key(identity, routeID))
}

// ResetAll clears every rate-limit window.
func (l *Limiter) ResetAll(ctx context.Context) (int, error) {
	return l.store.DeletePrefix(ctx, KeyPrefix)
}

func (l *Limiter) record(ctx context.Context, routeID string, allowed bool) {
	if l.metrics != nil {
		l.metrics.RecordDecision(ctx, routeID, allowed)
	}
}
