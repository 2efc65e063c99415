// Package ratelimit implements a sliding-window rate limiter keyed by
// caller identity. It guards the classification endpoints so a single
// misbehaving dialer cannot starve the model.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a sliding-window rate limiter. Each identifier keeps the
// timestamps of its requests inside the trailing window; a check prunes
// expired timestamps and records the new one atomically, so two
// concurrent checks can never both claim the last free slot.
type Limiter struct {
	maxRequests int
	window      time.Duration

	mu       sync.Mutex
	requests map[string][]time.Time

	// now is replaceable for tests.
	now func() time.Time
}

// New creates a limiter allowing maxRequests per identifier within the
// trailing window.
func New(maxRequests int, window time.Duration) *Limiter {
	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
		requests:    make(map[string][]time.Time),
		now:         time.Now,
	}
}

// Allow reports whether a request from identifier is admitted. An
// admitted request is recorded against the window in the same critical
// section as the check.
func (l *Limiter) Allow(identifier string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-l.window)

	kept := l.requests[identifier][:0]
	for _, ts := range l.requests[identifier] {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.maxRequests {
		l.requests[identifier] = kept
		return false
	}

	l.requests[identifier] = append(kept, now)
	return true
}

// RetryAfter returns the hint clients should wait before retrying
// after a denial. It equals the window length.
func (l *Limiter) RetryAfter() time.Duration {
	return l.window
}

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// MaxRequests returns the configured per-identifier limit.
func (l *Limiter) MaxRequests() int {
	return l.maxRequests
}

// Sweep drops identifiers whose recorded requests have all expired.
// Without it the map grows without bound under high identifier
// cardinality, since idle callers are never evicted by Allow.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	windowStart := l.now().Add(-l.window)
	removed := 0
	for id, times := range l.requests {
		live := false
		for _, ts := range times {
			if ts.After(windowStart) {
				live = true
				break
			}
		}
		if !live {
			delete(l.requests, id)
			removed++
		}
	}
	return removed
}

// Janitor runs Sweep at the given interval until ctx is cancelled.
// Run it in its own goroutine.
func (l *Limiter) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Tracked returns the number of identifiers currently held.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests)
}
