package app

import (
	"sync"

	"golang.org/x/time/rate"
)

// SubmitLimiter is a per-author token bucket guarding the creation pipeline
// against concurrent submission bursts that the read-then-decide eligibility
// checks cannot catch. In-process only; multi-instance deployments still
// rely on the repository-backed rate limit as the authoritative check.
type SubmitLimiter struct {
	mu      sync.Mutex
	authors map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

// NewSubmitLimiter allows burst submissions immediately, refilled at
// perHour tokens per hour.
func NewSubmitLimiter(perHour, burst int) *SubmitLimiter {
	if perHour <= 0 {
		perHour = rateLimitMax
	}
	if burst <= 0 {
		burst = perHour
	}
	return &SubmitLimiter{
		authors: map[string]*rate.Limiter{},
		limit:   rate.Limit(float64(perHour) / 3600.0),
		burst:   burst,
	}
}

func (l *SubmitLimiter) Allow(authorID string) bool {
	l.mu.Lock()
	lim, ok := l.authors[authorID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.authors[authorID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
