package respcache

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/libshelf/gate/store"
)

// Invalidator purges cache entries after successful mutations.
type Invalidator struct {
	store store.Store
	log   zerolog.Logger
}

// NewInvalidator creates an invalidation trigger on top of the given
// store.
func NewInvalidator(s store.Store, log zerolog.Logger) *Invalidator {
	return &Invalidator{store: s, log: log}
}

// Middleware returns per-route middleware that deletes every key
// matching the given prefixes once the wrapped mutation has completed
// successfully.
//
// Purging runs in the same synchronous continuation as the response
// write: deferring it would let a concurrent reader repopulate a stale
// entry before the mutation becomes observable. Handler failures and
// canceled requests purge nothing.
func (i *Invalidator) Middleware(patterns ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(patterns) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newRecorder(w, false)
			next.ServeHTTP(rec, r)

			if r.Context().Err() != nil || !rec.success() {
				return
			}
			i.Invalidate(r, patterns)
		})
	}
}

// Invalidate purges the given prefixes in order. Purge faults are
// logged and swallowed: the mutation already succeeded and the entries
// will still age out via TTL.
func (i *Invalidator) Invalidate(r *http.Request, patterns []string) {
	for _, pattern := range patterns {
		n, err := i.store.DeletePrefix(r.Context(), pattern)
		if err != nil {
			i.log.Warn().Err(err).Str("pattern", pattern).Msg("cache invalidation failed")
			continue
		}
		if n > 0 {
			i.log.Debug().Str("pattern", pattern).Int("deleted", n).Msg("cache invalidated")
		}
	}
}
