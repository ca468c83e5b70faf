package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/libshelf/gate/auth"
	"github.com/libshelf/gate/store"
)

// countingHandler tracks invocations.
type countingHandler struct {
	calls int
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.calls++
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func limitedHandler(p Policy) (*countingHandler, http.Handler) {
	l := NewLimiter(store.NewMemoryStore(), zerolog.Nop())
	h := &countingHandler{}
	mw := Middleware(l, Options{RouteID: "login", Policy: p})
	return h, mw(h)
}

func TestMiddleware_AllowsUnderQuota(t *testing.T) {
	h, wrapped := limitedHandler(Policy{MaxRequests: 3, Window: time.Minute})

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "1.2.3.4:5555"
		wrapped.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	if h.calls != 3 {
		t.Errorf("expected 3 handler invocations, got %d", h.calls)
	}
}

func TestMiddleware_RejectsOverQuota(t *testing.T) {
	h, wrapped := limitedHandler(Policy{MaxRequests: 1, Window: time.Minute})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "1.2.3.4:5555"
		wrapped.ServeHTTP(rec, req)

		if i == 0 {
			continue
		}

		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", rec.Code)
		}
		if rec.Header().Get("Retry-After") == "" {
			t.Error("expected Retry-After header on rejection")
		}

		var body struct {
			StatusCode int    `json:"statusCode"`
			Message    string `json:"message"`
			RetryAfter int    `json:"retryAfter"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("rejection body is not JSON: %v", err)
		}
		if body.StatusCode != http.StatusTooManyRequests {
			t.Errorf("expected statusCode 429 in body, got %d", body.StatusCode)
		}
		if body.RetryAfter <= 0 || body.RetryAfter > 60 {
			t.Errorf("expected retryAfter in (0, 60], got %d", body.RetryAfter)
		}
		if body.Message == "" {
			t.Error("expected human-readable message")
		}
	}

	if h.calls != 1 {
		t.Errorf("denied request must not reach the handler; got %d calls", h.calls)
	}
}

func TestMiddleware_DisabledPolicyPassesThrough(t *testing.T) {
	h, wrapped := limitedHandler(Policy{})

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		req.RemoteAddr = "1.2.3.4:5555"
		wrapped.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	if h.calls != 10 {
		t.Errorf("expected 10 handler invocations, got %d", h.calls)
	}
}

func TestMiddleware_PrincipalScopesWindow(t *testing.T) {
	_, wrapped := limitedHandler(Policy{MaxRequests: 1, Window: time.Minute})

	send := func(principal, addr string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = addr
		if principal != "" {
			ctx := auth.WithIdentity(req.Context(), &auth.Identity{Principal: principal})
			req = req.WithContext(ctx)
		}
		wrapped.ServeHTTP(rec, req)
		return rec.Code
	}

	// Same network address, different principals: separate windows.
	if code := send("alice", "1.2.3.4:5555"); code != http.StatusOK {
		t.Fatalf("alice's first request: expected 200, got %d", code)
	}
	if code := send("bob", "1.2.3.4:5555"); code != http.StatusOK {
		t.Fatalf("bob's first request: expected 200, got %d", code)
	}
	if code := send("alice", "9.9.9.9:5555"); code != http.StatusTooManyRequests {
		t.Fatalf("alice's second request: expected 429 regardless of address, got %d", code)
	}
}

func TestMiddleware_XForwardedForIdentity(t *testing.T) {
	_, wrapped := limitedHandler(Policy{MaxRequests: 1, Window: time.Minute})

	send := func(xff string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		req.Header.Set("X-Forwarded-For", xff)
		wrapped.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("1.2.3.4, 10.0.0.1"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	// Same first token, different chain tail: same window.
	if code := send("1.2.3.4, 172.16.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for same client address, got %d", code)
	}
	// Different client address: own window.
	if code := send("5.6.7.8"); code != http.StatusOK {
		t.Fatalf("expected 200 for new client address, got %d", code)
	}
}

func TestMiddleware_FailOpenOnStoreError(t *testing.T) {
	l := NewLimiter(failingStore{}, zerolog.Nop())
	h := &countingHandler{}
	wrapped := Middleware(l, Options{
		RouteID: "login",
		Policy:  Policy{MaxRequests: 1, Window: time.Minute},
	})(h)

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "1.2.3.4:5555"
		wrapped.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected fail-open 200, got %d", i+1, rec.Code)
		}
	}
	if h.calls != 5 {
		t.Errorf("expected 5 handler invocations, got %d", h.calls)
	}
}
