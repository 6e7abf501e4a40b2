package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is a sliding-window limiter keeping per-key request
// timestamps in process memory. It is safe for concurrent use but
// deliberately single-instance: multiple replicas each count
// independently. Deployments with more than one instance should use the
// redis backend instead.
type MemoryLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

// NewMemoryLimiter creates an in-memory sliding-window limiter allowing
// limit requests per window.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Allow records the request unless the key already spent its budget in the
// current window. Expired timestamps are pruned on every call, so the map
// self-heals without a background sweep.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (int, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.requests[key][:0]
	for _, ts := range l.requests[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.limit {
		l.requests[key] = kept
		return 0, false, nil
	}

	l.requests[key] = append(kept, now)
	return l.limit - len(kept) - 1, true, nil
}

// Limit returns the configured per-window request budget.
func (l *MemoryLimiter) Limit() int {
	return l.limit
}
