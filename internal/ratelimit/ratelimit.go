// Package ratelimit provides per-client request limiting for the HTTP API.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Limiter decides whether a client may make another request.
type Limiter interface {
	Allow(key string) bool
}

// Option configures a FixedWindow.
type Option func(*FixedWindow)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(f *FixedWindow) {
		f.now = now
	}
}

type window struct {
	start time.Time
	count int
}

// FixedWindow allows limit requests per key per window. A key's window opens
// on its first request and resets once it has elapsed. Expired windows are
// swept at most once per window.
type FixedWindow struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu        sync.Mutex
	windows   map[string]*window
	lastSweep time.Time
}

// NewFixedWindow creates a limiter. Non-positive values fall back to 10
// requests per minute.
func NewFixedWindow(limit int, period time.Duration, opts ...Option) *FixedWindow {
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = time.Minute
	}
	f := &FixedWindow{
		limit:   limit,
		period:  period,
		now:     time.Now,
		windows: make(map[string]*window),
	}
	for _, o := range opts {
		o(f)
	}
	f.lastSweep = f.now()
	return f
}

// Allow records a request for key and reports whether it is within the limit.
// Rejected requests are not counted.
func (f *FixedWindow) Allow(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	f.sweep(now)

	w, ok := f.windows[key]
	if !ok || now.Sub(w.start) >= f.period {
		f.windows[key] = &window{start: now, count: 1}
		return true
	}
	if w.count >= f.limit {
		return false
	}
	w.count++
	return true
}

// RetryAfter returns the whole seconds until key's window resets, at least 1.
// It returns 0 when key has no open window.
func (f *FixedWindow) RetryAfter(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	w, ok := f.windows[key]
	if !ok {
		return 0
	}
	remaining := w.start.Add(f.period).Sub(f.now())
	if remaining <= 0 {
		return 0
	}
	return max(int(math.Ceil(remaining.Seconds())), 1)
}

// Len returns the number of tracked keys.
func (f *FixedWindow) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.windows)
}

func (f *FixedWindow) sweep(now time.Time) {
	if now.Sub(f.lastSweep) < f.period {
		return
	}
	for k, w := range f.windows {
		if now.Sub(w.start) >= f.period {
			delete(f.windows, k)
		}
	}
	f.lastSweep = now
}
