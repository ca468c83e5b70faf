package health

import (
	"encoding/json"
	"net/http"
)

type checkPayload struct {
	Status     string  `json:"status"`
	Message    string  `json:"message,omitempty"`
	Error      string  `json:"error,omitempty"`
	DurationMs float64 `json:"durationMs"`
}

type reportPayload struct {
	Status string                  `json:"status"`
	Checks map[string]checkPayload `json:"checks"`
}

// Handler serves the aggregated report as JSON. Unhealthy reports get
// a 503 so load balancers can act on the status code alone.
func Handler(a *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := a.Check(r.Context())

		payload := reportPayload{
			Status: report.Status.String(),
			Checks: make(map[string]checkPayload, len(report.Checks)),
		}
		for name, res := range report.Checks {
			cp := checkPayload{
				Status:     res.Status.String(),
				Message:    res.Message,
				DurationMs: float64(res.Duration.Milliseconds()),
			}
			if res.Err != nil {
				cp.Error = res.Err.Error()
			}
			payload.Checks[name] = cp
		}

		w.Header().Set("Content-Type", "application/json")
		if report.Status != StatusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(payload)
	}
}
