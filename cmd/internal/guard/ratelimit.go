// Package guard provides the in-process protection primitives for the Dalkak
// admin gateway: a sliding-window rate limiter, a circuit breaker, an adaptive
// cache advisor, and a retry helper.
//
// All state is process-local and owned by the constructed instance; nothing in
// this package logs or writes HTTP responses. Callers translate results into
// transport-level behavior.
package guard

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	defaultRateLimit  = 60
	defaultRateWindow = time.Minute
)

// RateResult is the outcome of a single rate-limit check.
type RateResult struct {
	OK        bool
	Limit     int
	Remaining int

	// Reset is when the oldest counted request leaves the window, i.e. the
	// earliest instant at which a rejected caller may be admitted again.
	Reset time.Time
}

// Headers returns the X-RateLimit-* response headers for this result.
// Reset is expressed in UNIX seconds.
func (r RateResult) Headers() http.Header {
	h := make(http.Header, 3)
	h.Set("X-RateLimit-Limit", strconv.Itoa(r.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(r.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(r.Reset.Unix(), 10))
	return h
}

// RetryAfter is the duration a rejected caller should wait before retrying.
func (r RateResult) RetryAfter(now time.Time) time.Duration {
	d := r.Reset.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// RateLimiter is a per-key sliding-window limiter.
//
// Each key owns an ordered list of request timestamps inside the current
// window; stale entries are discarded lazily on each check. Buckets are
// created on first use and never deleted, and state is per-process: replicas
// count independently. Both are documented operational limits, not bugs.
//
// The limiter is approximate by contract: requests landing on the same
// millisecond all count, and no cross-replica coordination exists.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string][]time.Time
	limit   int
	window  time.Duration
}

// NewRateLimiter constructs a RateLimiter with safe defaults when inputs are invalid.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = defaultRateLimit
	}
	if window <= 0 {
		window = defaultRateWindow
	}
	return &RateLimiter{
		buckets: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
	}
}

// Limit returns the configured per-window maximum.
func (l *RateLimiter) Limit() int { return l.limit }

// Window returns the configured window length.
func (l *RateLimiter) Window() time.Duration { return l.window }

// Check records a request for key at time "now" and reports whether it is
// admitted. Rejected requests still count toward the window.
func (l *RateLimiter) Check(key string, now time.Time) RateResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	cut := now.Add(-l.window)
	kept := l.buckets[key][:0]
	for _, t := range l.buckets[key] {
		if t.After(cut) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	l.buckets[key] = kept

	remaining := l.limit - len(kept)
	if remaining < 0 {
		remaining = 0
	}
	return RateResult{
		OK:        len(kept) <= l.limit,
		Limit:     l.limit,
		Remaining: remaining,
		Reset:     kept[0].Add(l.window),
	}
}

// Keys returns the number of tracked buckets. Intended for observability.
func (l *RateLimiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
