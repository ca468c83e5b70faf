package identity

import (
	"net"
	"net/http"
	"strings"

	"github.com/libshelf/gate/auth"
)

// Key returns the identity token for a request: "user:<principal>" when
// the request carries an authenticated identity, otherwise "ip:<addr>".
func Key(r *http.Request) string {
	if id := auth.IdentityFromContext(r.Context()); id != nil && !id.IsAnonymous() {
		return "user:" + id.Principal
	}
	return "ip:" + ClientAddr(r)
}

// ClientAddr resolves the caller's network address from the header
// chain X-Forwarded-For, then X-Real-IP, then the raw connection
// address. X-Forwarded-For may chain several addresses; the first
// comma-separated token is the original client.
func ClientAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}

	if rip := strings.TrimSpace(r.Header.Get("X-Real-IP")); rip != "" {
		return rip
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "0.0.0.0"
}
