// Package ratelimit implements a fixed-window request limiter over a
// pluggable Store.
package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Policy allows Requests per key in every Window.
type Policy struct {
	Requests int
	Window   time.Duration
}

func DefaultPolicy() Policy {
	return Policy{Requests: 60, Window: time.Minute}
}

func (p Policy) Validate() error {
	if p.Requests <= 0 {
		return errors.New("rate limit requests must be positive")
	}
	if p.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	return nil
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // time until the window resets
}

type Limiter struct {
	mu     sync.Mutex
	store  Store
	policy Policy
	now    func() time.Time
}

// New returns a limiter enforcing policy. An invalid policy falls back to
// DefaultPolicy.
func New(store Store, policy Policy) *Limiter {
	if policy.Validate() != nil {
		policy = DefaultPolicy()
	}
	return &Limiter{store: store, policy: policy, now: time.Now}
}

func (l *Limiter) Policy() Policy { return l.policy }

// Allow counts one request for key. A window opens on the first request and
// expires Window later, whatever happened in between.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok, err := l.store.Read(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	if !ok || now.Sub(w.Start) >= l.policy.Window {
		w = Window{Start: now}
	}

	reset := w.Start.Add(l.policy.Window).Sub(now)
	d := Decision{Limit: l.policy.Requests, RetryAfter: reset}
	if w.Count >= l.policy.Requests {
		return d, nil
	}

	w.Count++
	if err := l.store.Write(ctx, key, w, reset); err != nil {
		return Decision{}, err
	}
	d.Allowed = true
	d.Remaining = l.policy.Requests - w.Count
	return d, nil
}

// Reset forgets the window of key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.store.Clear(ctx, key)
}

// Middleware limits requests by keyFunc. onLimit writes the rejection; nil
// writes a JSON 429. When the store fails the request is let through and
// onError, if set, is told.
func (l *Limiter) Middleware(keyFunc func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request, Decision), onError func(*http.Request, error)) func(http.Handler) http.Handler {
	if onLimit == nil {
		onLimit = writeLimited
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := l.Allow(r.Context(), keyFunc(r))
			if err != nil {
				if onError != nil {
					onError(r, err)
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds(d.RetryAfter)))
				onLimit(w, r, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RetryAfterSeconds rounds d up to whole seconds, at least one.
func RetryAfterSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}

func writeLimited(w http.ResponseWriter, _ *http.Request, _ Decision) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded, try again later"})
}
