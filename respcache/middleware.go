package respcache

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/libshelf/gate/store"
)

// envelope is the stored form of a response: enough to replay it so a
// hit is indistinguishable from a live computation.
type envelope struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// MetricsRecorder receives cache lookup outcomes and absorbed store
// faults. Optional.
type MetricsRecorder interface {
	RecordLookup(ctx context.Context, prefix string, hit bool)
	RecordStoreFault(ctx context.Context, component string)
}

// Cache serves and stores responses for read routes.
type Cache struct {
	store store.Store
	log   zerolog.Logger

	metrics MetricsRecorder
}

// Option configures a Cache.
type Option func(*Cache)

// WithMetrics attaches a lookup metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(c *Cache) { c.metrics = m }
}

// New creates a response cache on top of the given store.
func New(s store.Store, log zerolog.Logger, opts ...Option) *Cache {
	c := &Cache{store: s, log: log}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Middleware returns per-route middleware applying the policy. Routes
// with a disabled policy pass through untouched, as do non-read
// methods.
//
// Concurrent cold misses on one key each invoke the handler and each
// write the cache; the writes carry equivalent payloads so last writer
// wins. Single-flight deduplication is deliberately not performed.
func (c *Cache) Middleware(p Policy) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !p.Enabled() {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cacheable(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := p.Key(r)
			if err := store.ValidateKey(key); err != nil {
				c.log.Warn().Err(err).Str("key", key).Msg("unusable cache key, bypassing cache")
				next.ServeHTTP(w, r)
				return
			}

			if c.serveHit(w, r, key, p) {
				return
			}

			// Miss: compute, then store only a successful, completed
			// response. A canceled request must leave no trace.
			rec := newRecorder(w, true)
			next.ServeHTTP(rec, r)

			if r.Context().Err() != nil || !rec.success() {
				return
			}
			c.put(r.Context(), key, rec, p)
		})
	}
}

// serveHit replays a stored response. Returns false on miss or store
// fault; faults degrade to a miss and are logged.
func (c *Cache) serveHit(w http.ResponseWriter, r *http.Request, key string, p Policy) bool {
	raw, ok, err := c.store.Get(r.Context(), key)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache lookup failed, treating as miss")
		c.recordFault(r.Context())
		return false
	}
	c.recordLookup(r.Context(), p.Prefix, ok)
	if !ok {
		return false
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("corrupt cache entry, treating as miss")
		return false
	}

	header := w.Header()
	for k, vals := range env.Header {
		header[k] = vals
	}
	w.WriteHeader(env.Status)
	if r.Method != http.MethodHead {
		_, _ = w.Write(env.Body)
	}
	return true
}

// put stores a recorded response. Write faults are non-fatal: the
// response already reached the client.
func (c *Cache) put(ctx context.Context, key string, rec *recorder, p Policy) {
	env := envelope{
		Status: rec.status,
		Header: rec.Header().Clone(),
		Body:   rec.body.Bytes(),
	}

	raw, err := json.Marshal(env)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}

	if err := c.store.SetTTL(ctx, key, raw, p.TTL); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		c.recordFault(ctx)
	}
}

func (c *Cache) recordLookup(ctx context.Context, prefix string, hit bool) {
	if c.metrics != nil {
		c.metrics.RecordLookup(ctx, prefix, hit)
	}
}

func (c *Cache) recordFault(ctx context.Context) {
	if c.metrics != nil {
		c.metrics.RecordStoreFault(ctx, "respcache")
	}
}
