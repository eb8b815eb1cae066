package services

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RateLimiter is a sliding one-minute window limiter shared by every caller
// of the AI fallback
type RateLimiter struct {
	mu                sync.Mutex
	requestsPerMinute int
	lastRequests      []time.Time
	now               func() time.Time
}

// NewRateLimiter allows rpm calls per rolling minute
func NewRateLimiter(rpm int) *RateLimiter {
	return &RateLimiter{requestsPerMinute: rpm, now: time.Now}
}

// Wait blocks until a request fits in the window or ctx is done. The slot is
// reserved before sleeping so concurrent waiters queue up behind each other
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	now := r.now()
	windowStart := now.Add(-time.Minute)

	kept := r.lastRequests[:0]
	for _, t := range r.lastRequests {
		if t.After(windowStart) {
			kept = append(kept, t)
		}
	}
	r.lastRequests = kept

	start := now
	if len(r.lastRequests) >= r.requestsPerMinute {
		start = r.lastRequests[len(r.lastRequests)-r.requestsPerMinute].Add(time.Minute)
	}
	r.lastRequests = append(r.lastRequests, start)
	r.mu.Unlock()

	wait := start.Sub(now)
	if wait <= 0 {
		return nil
	}
	slog.Info("Rate limit reached, waiting...", "waitSeconds", wait.Seconds(), "rpm", r.requestsPerMinute)

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
