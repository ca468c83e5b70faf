package main

import (
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/rs/zerolog"
)

// newAuthProxy forwards login/registration to the upstream identity
// service. Without an upstream the routes answer 503 so callers get a
// clear signal instead of a 404.
func newAuthProxy(upstream string, log zerolog.Logger) http.HandlerFunc {
	if upstream == "" {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"statusCode": http.StatusServiceUnavailable,
				"message":    "identity service not configured",
			})
		}
	}

	target, err := url.Parse(upstream)
	if err != nil {
		log.Fatal().Err(err).Str("upstream", upstream).Msg("invalid auth upstream")
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn().Err(err).Str("upstream", upstream).Msg("auth upstream unreachable")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"statusCode": http.StatusBadGateway,
			"message":    "identity service unreachable",
		})
	}
	return proxy.ServeHTTP
}
