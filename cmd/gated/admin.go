package main

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/libshelf/gate/ratelimit"
)

// adminHandlers exposes limiter maintenance: clearing one caller's
// window on a route, or all windows at once.
type adminHandlers struct {
	limiter *ratelimit.Limiter
	log     zerolog.Logger
}

func newAdminHandlers(l *ratelimit.Limiter, log zerolog.Logger) *adminHandlers {
	return &adminHandlers{limiter: l, log: log.With().Str("component", "admin").Logger()}
}

// Reset clears the window for one identity on one route.
func (h *adminHandlers) Reset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identity string `json:"identity"`
		RouteID  string `json:"routeId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identity == "" || req.RouteID == "" {
		writeAdminJSON(w, http.StatusBadRequest, map[string]any{
			"statusCode": http.StatusBadRequest,
			"message":    "identity and routeId are required",
		})
		return
	}

	if err := h.limiter.Reset(r.Context(), req.Identity, req.RouteID); err != nil {
		h.log.Error().Err(err).Str("identity", req.Identity).Str("route", req.RouteID).Msg("reset failed")
		writeAdminJSON(w, http.StatusInternalServerError, map[string]any{
			"statusCode": http.StatusInternalServerError,
			"message":    "reset failed",
		})
		return
	}
	writeAdminJSON(w, http.StatusOK, map[string]any{"reset": true})
}

// ResetAll clears every limiter window.
func (h *adminHandlers) ResetAll(w http.ResponseWriter, r *http.Request) {
	cleared, err := h.limiter.ResetAll(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("reset-all failed")
		writeAdminJSON(w, http.StatusInternalServerError, map[string]any{
			"statusCode": http.StatusInternalServerError,
			"message":    "reset failed",
		})
		return
	}
	writeAdminJSON(w, http.StatusOK, map[string]any{"cleared": cleared})
}

func writeAdminJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
