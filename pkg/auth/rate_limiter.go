package auth

import (
	"context"
	"sync"
	"time"
)

// RateLimiter provides rate limiting functionality
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// SlidingWindowLimiter allows at most limit requests per key within any
// window of windowSize.
type SlidingWindowLimiter struct {
	mu         sync.Mutex
	windows    map[string][]time.Time
	limit      int
	windowSize time.Duration
	now        func() time.Time
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter
func NewSlidingWindowLimiter(limit int, windowSize time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		windows:    make(map[string][]time.Time),
		limit:      limit,
		windowSize: windowSize,
		now:        time.Now,
	}
}

// Allow checks if a request is allowed and records it when it is
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-l.windowSize)

	requests := l.windows[key]
	kept := requests[:0]
	for _, at := range requests {
		if at.After(windowStart) {
			kept = append(kept, at)
		}
	}

	if len(kept) >= l.limit {
		l.windows[key] = kept
		return false, nil
	}
	l.windows[key] = append(kept, now)
	return true, nil
}

// KeyedRateLimiter namespaces keys of an underlying limiter, so one
// limiter type can serve per-IP and per-user limits.
type KeyedRateLimiter struct {
	prefix  string
	limiter RateLimiter
}

// NewIPRateLimiter creates a new IP-based rate limiter
func NewIPRateLimiter(requestsPerMinute int) *KeyedRateLimiter {
	return &KeyedRateLimiter{prefix: "ip:", limiter: NewSlidingWindowLimiter(requestsPerMinute, time.Minute)}
}

// NewUserRateLimiter creates a new user-based rate limiter
func NewUserRateLimiter(requestsPerMinute int) *KeyedRateLimiter {
	return &KeyedRateLimiter{prefix: "user:", limiter: NewSlidingWindowLimiter(requestsPerMinute, time.Minute)}
}

// Allow checks if a request for key is allowed
func (l *KeyedRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return l.limiter.Allow(ctx, l.prefix+key)
}
