package respcache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/libshelf/gate/auth"
	"github.com/libshelf/gate/store"
)

// countingHandler tracks invocations and returns a configured response.
type countingHandler struct {
	calls       int
	status      int
	body        string
	contentType string
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.calls++
	ct := h.contentType
	if ct == "" {
		ct = "application/json"
	}
	w.Header().Set("Content-Type", ct)
	status := h.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(h.body))
}

// failingStore simulates an unreachable backing store.
type failingStore struct{}

func (failingStore) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, store.ErrUnavailable
}
func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, store.ErrUnavailable
}
func (failingStore) SetTTL(context.Context, string, []byte, time.Duration) error {
	return store.ErrUnavailable
}
func (failingStore) DeletePrefix(context.Context, string) (int, error) {
	return 0, store.ErrUnavailable
}
func (failingStore) TTL(context.Context, string) (time.Duration, error) {
	return 0, store.ErrUnavailable
}
func (failingStore) Reset(context.Context, string) error { return store.ErrUnavailable }

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestCache_HitSkipsHandler(t *testing.T) {
	st := store.NewMemoryStore()
	c := New(st, zerolog.Nop())
	h := &countingHandler{body: `[{"name":"fiction"}]`}
	wrapped := c.Middleware(Policy{Prefix: "categories:all", TTL: 10 * time.Second})(h)

	first := get(wrapped, "/categories")
	if h.calls != 1 {
		t.Fatalf("expected 1 handler invocation on cold key, got %d", h.calls)
	}

	second := get(wrapped, "/categories")
	if h.calls != 1 {
		t.Errorf("expected handler NOT to run on hit, got %d calls", h.calls)
	}

	// A hit must be indistinguishable from the live computation.
	if second.Code != first.Code {
		t.Errorf("status differs: live %d, hit %d", first.Code, second.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Errorf("payload differs: live %q, hit %q", first.Body.String(), second.Body.String())
	}
	if got := second.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("expected Content-Type preserved on hit, got %q", got)
	}
}

func TestCache_EntryExpires(t *testing.T) {
	c := New(store.NewMemoryStore(), zerolog.Nop())
	h := &countingHandler{body: "v"}
	wrapped := c.Middleware(Policy{Prefix: "categories:all", TTL: 40 * time.Millisecond})(h)

	get(wrapped, "/categories")
	get(wrapped, "/categories")
	if h.calls != 1 {
		t.Fatalf("expected 1 invocation within TTL, got %d", h.calls)
	}

	time.Sleep(80 * time.Millisecond)

	get(wrapped, "/categories")
	if h.calls != 2 {
		t.Errorf("expected recompute after TTL elapsed, got %d calls", h.calls)
	}
}

func TestCache_NonReadMethodsBypass(t *testing.T) {
	st := store.NewMemoryStore()
	c := New(st, zerolog.Nop())
	h := &countingHandler{body: "created"}
	wrapped := c.Middleware(Policy{Prefix: "books:all", TTL: time.Minute})(h)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/books", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	}
	if h.calls != 2 {
		t.Errorf("POST must never be served from cache, got %d calls", h.calls)
	}
	if _, ok, _ := st.Get(context.Background(), "books:all:/books"); ok {
		t.Error("POST must never be written to cache")
	}
}

func TestCache_DisabledPolicyPassesThrough(t *testing.T) {
	c := New(store.NewMemoryStore(), zerolog.Nop())
	h := &countingHandler{body: "v"}
	wrapped := c.Middleware(Policy{})(h)

	get(wrapped, "/books")
	get(wrapped, "/books")
	if h.calls != 2 {
		t.Errorf("expected no caching without a policy, got %d calls", h.calls)
	}
}

func TestCache_HandlerErrorNotCached(t *testing.T) {
	c := New(store.NewMemoryStore(), zerolog.Nop())
	h := &countingHandler{status: http.StatusInternalServerError, body: "boom"}
	wrapped := c.Middleware(Policy{Prefix: "books:all", TTL: time.Minute})(h)

	get(wrapped, "/books")
	get(wrapped, "/books")
	if h.calls != 2 {
		t.Errorf("error responses must not populate the cache, got %d calls", h.calls)
	}
}

func TestCache_FailSoftOnStoreError(t *testing.T) {
	c := New(failingStore{}, zerolog.Nop())
	h := &countingHandler{body: "v"}
	wrapped := c.Middleware(Policy{Prefix: "books:all", TTL: time.Minute})(h)

	for i := 0; i < 3; i++ {
		rec := get(wrapped, "/books")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 despite store fault, got %d", i+1, rec.Code)
		}
		if rec.Body.String() != "v" {
			t.Fatalf("request %d: unexpected body %q", i+1, rec.Body.String())
		}
	}
	if h.calls != 3 {
		t.Errorf("expected handler to run normally on every store fault, got %d calls", h.calls)
	}
}

func TestCache_CanceledRequestNotStored(t *testing.T) {
	st := store.NewMemoryStore()
	c := New(st, zerolog.Nop())
	h := &countingHandler{body: "v"}
	wrapped := c.Middleware(Policy{Prefix: "books:all", TTL: time.Minute})(h)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/books", nil).WithContext(ctx)
	wrapped.ServeHTTP(httptest.NewRecorder(), req)

	if _, ok, _ := st.Get(context.Background(), "books:all:/books"); ok {
		t.Error("aborted request must not populate the cache")
	}
}

func TestCache_QueryStringsGetOwnEntries(t *testing.T) {
	c := New(store.NewMemoryStore(), zerolog.Nop())
	h := &countingHandler{body: "page"}
	wrapped := c.Middleware(Policy{Prefix: "books:all", TTL: time.Minute})(h)

	get(wrapped, "/books?page=1")
	get(wrapped, "/books?page=2")
	if h.calls != 2 {
		t.Errorf("distinct query strings must miss independently, got %d calls", h.calls)
	}

	get(wrapped, "/books?page=1")
	if h.calls != 2 {
		t.Errorf("repeated query string must hit, got %d calls", h.calls)
	}
}

func TestCache_PerUserScopesEntries(t *testing.T) {
	c := New(store.NewMemoryStore(), zerolog.Nop())
	h := &countingHandler{body: "favs"}
	wrapped := c.Middleware(Policy{Prefix: "users:favorites", TTL: time.Minute, PerUser: true})(h)

	send := func(principal string) {
		req := httptest.NewRequest(http.MethodGet, "/users/favorites", nil)
		if principal != "" {
			req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{Principal: principal}))
		}
		wrapped.ServeHTTP(httptest.NewRecorder(), req)
	}

	send("alice")
	send("bob")
	if h.calls != 2 {
		t.Fatalf("different principals must not share entries, got %d calls", h.calls)
	}

	send("alice")
	if h.calls != 2 {
		t.Errorf("same principal must hit, got %d calls", h.calls)
	}
}

func TestPolicy_Key(t *testing.T) {
	testCases := []struct {
		name      string
		policy    Policy
		target    string
		principal string
		want      string
	}{
		{
			"prefix and path",
			Policy{Prefix: "books:all", TTL: time.Minute},
			"/books", "",
			"books:all:/books",
		},
		{
			"query preserved",
			Policy{Prefix: "books:all", TTL: time.Minute},
			"/books?page=2", "",
			"books:all:/books?page=2",
		},
		{
			"per-user with principal",
			Policy{Prefix: "users:favorites", TTL: time.Minute, PerUser: true},
			"/users/favorites", "42",
			"users:favorites:/users/favorites:user:42",
		},
		{
			"per-user anonymous",
			Policy{Prefix: "users:favorites", TTL: time.Minute, PerUser: true},
			"/users/favorites", "",
			"users:favorites:/users/favorites",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.principal != "" {
				req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{Principal: tc.principal}))
			}
			if got := tc.policy.Key(req); got != tc.want {
				t.Errorf("Key() = %q, want %q", got, tc.want)
			}
		})
	}
}
