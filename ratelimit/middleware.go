package ratelimit

import (
	"fmt"
	"net/http"

	"github.com/libshelf/gate/identity"
)

// KeyFunc derives the caller identity for a request.
type KeyFunc func(r *http.Request) string

// Options configures the HTTP middleware for one route.
type Options struct {
	// RouteID names the handler the policy is attached to. Required:
	// it scopes the window key so different routes never share
	// counters.
	RouteID string

	Policy Policy

	// KeyFn overrides caller identity derivation.
	// Default: identity.Key (principal over network address).
	KeyFn KeyFunc
}

// Middleware returns per-route middleware enforcing the policy. Routes
// with a disabled policy pass through untouched.
func Middleware(l *Limiter, opts Options) func(next http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = identity.Key
	}

	return func(next http.Handler) http.Handler {
		if !opts.Policy.Enabled() {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			dec := l.Check(r.Context(), opts.KeyFn(r), opts.RouteID, opts.Policy)
			if !dec.Allowed {
				writeRejection(w, dec)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeRejection sends the structured 429 rejection. The payload shape
// is part of the external contract: a machine-readable retryAfter in
// seconds plus a human-readable message embedding the same value.
func writeRejection(w http.ResponseWriter, dec Decision) {
	retryAfter := int(dec.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
	w.WriteHeader(http.StatusTooManyRequests)
	fmt.Fprintf(w,
		`{"statusCode":%d,"message":"Too many requests. Please try again in %ds","retryAfter":%d}`,
		http.StatusTooManyRequests, retryAfter, retryAfter)
}
