package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLimiter(p Policy) (*Limiter, *clock) {
	c := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := New(NewMemoryStore(time.Minute), p)
	l.now = c.now
	return l, c
}

func TestLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	l, c := newTestLimiter(Policy{Requests: 3, Window: time.Minute})

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "10.0.0.1")
		if err != nil {
			t.Fatal(err)
		}
		if !d.Allowed {
			t.Fatalf("request %d rejected", i+1)
		}
		if d.Remaining != 2-i {
			t.Errorf("request %d remaining = %d, want %d", i+1, d.Remaining, 2-i)
		}
	}

	c.t = c.t.Add(20 * time.Second)
	d, err := l.Allow(ctx, "10.0.0.1")
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed {
		t.Fatal("fourth request in the window should be rejected")
	}
	if d.RetryAfter != 40*time.Second {
		t.Errorf("RetryAfter = %v, want 40s", d.RetryAfter)
	}

	// other keys are independent
	if d, _ := l.Allow(ctx, "10.0.0.2"); !d.Allowed {
		t.Error("other key should be allowed")
	}

	// the window expires a fixed time after it opened
	c.t = c.t.Add(40 * time.Second)
	if d, _ := l.Allow(ctx, "10.0.0.1"); !d.Allowed || d.Remaining != 2 {
		t.Errorf("after window reset got %+v", d)
	}
}

func TestLimiter_Reset(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(Policy{Requests: 1, Window: time.Hour})

	if d, _ := l.Allow(ctx, "k"); !d.Allowed {
		t.Fatal("first request rejected")
	}
	if d, _ := l.Allow(ctx, "k"); d.Allowed {
		t.Fatal("second request allowed")
	}
	if err := l.Reset(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if d, _ := l.Allow(ctx, "k"); !d.Allowed {
		t.Error("request after Reset rejected")
	}
}

func TestNew_InvalidPolicyFallsBack(t *testing.T) {
	l := New(NewMemoryStore(0), Policy{})
	if l.Policy() != DefaultPolicy() {
		t.Errorf("Policy() = %+v, want default", l.Policy())
	}
}

type brokenStore struct{}

func (brokenStore) Read(context.Context, string) (Window, bool, error) {
	return Window{}, false, errors.New("store down")
}
func (brokenStore) Write(context.Context, string, Window, time.Duration) error { return nil }
func (brokenStore) Clear(context.Context, string) error                        { return nil }

func TestMiddleware(t *testing.T) {
	l, _ := newTestLimiter(Policy{Requests: 1, Window: time.Minute})
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := l.Middleware(func(r *http.Request) string { return r.RemoteAddr }, nil, nil)(ok)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/members", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("first status = %d", rr.Code)
	}
	if got := rr.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/members", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60", got)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestMiddleware_StoreErrorFailsOpen(t *testing.T) {
	var seen error
	l := New(brokenStore{}, DefaultPolicy())
	h := l.Middleware(func(*http.Request) string { return "k" }, nil, func(_ *http.Request, err error) { seen = err })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
	if seen == nil {
		t.Error("onError not called")
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{0, 1},
		{300 * time.Millisecond, 1},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{time.Minute, 60},
	}
	for _, tt := range tests {
		if got := RetryAfterSeconds(tt.in); got != tt.want {
			t.Errorf("RetryAfterSeconds(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
