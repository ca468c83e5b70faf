package respcache

import (
	"net/http"
	"time"

	"github.com/libshelf/gate/auth"
)

// Policy is the declarative cache configuration attached to a route at
// registration time. Immutable afterwards.
type Policy struct {
	// Prefix is the mandatory cache key prefix. Every cacheable route
	// declares its own so invalidation patterns can target it
	// deterministically.
	Prefix string

	// TTL bounds the entry lifetime.
	TTL time.Duration

	// PerUser scopes entries by authenticated principal for routes
	// whose result is caller-specific.
	PerUser bool
}

// Enabled reports whether the policy caches anything. A zero Policy
// means the route carries no cache.
func (p Policy) Enabled() bool {
	return p.Prefix != "" && p.TTL > 0
}

// Key derives the cache key for a request: prefix, request target, and
// the principal when the route is caller-specific.
func (p Policy) Key(r *http.Request) string {
	key := p.Prefix + ":" + r.URL.RequestURI()
	if p.PerUser {
		if principal := auth.PrincipalFromContext(r.Context()); principal != "" {
			key += ":user:" + principal
		}
	}
	return key
}

// cacheable reports whether the request method may be served from or
// written to the cache. Non-idempotent methods never touch it.
func cacheable(r *http.Request) bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}
