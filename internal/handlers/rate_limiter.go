package handlers

import (
	"strings"
	"sync"
	"time"
)

// rateLimiter gates abuse-prone endpoints (OTP sends, banner counters) on a
// per-caller key.
type rateLimiter interface {
	Allow(key string) bool
}

// windowLimiter counts requests per key inside a fixed window. Buckets reset
// once their window elapses; expired buckets are swept opportunistically so
// the map does not grow with churned keys.
type windowLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	buckets map[string]windowBucket
}

type windowBucket struct {
	count   int
	resetAt time.Time
}

func newWindowLimiter(limit int, window time.Duration, clock func() time.Time) rateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &windowLimiter{
		limit:   limit,
		window:  window,
		clock:   clock,
		buckets: make(map[string]windowBucket),
	}
}

// Allow reports whether the caller identified by key may proceed. A nil
// limiter admits everything, which lets handlers treat "no limit configured"
// as a no-op.
func (l *windowLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[key]
	if !ok || now.After(bucket.resetAt) {
		l.buckets[key] = windowBucket{count: 1, resetAt: now.Add(l.window)}
		l.sweepLocked(now)
		return true
	}
	if bucket.count >= l.limit {
		return false
	}
	bucket.count++
	l.buckets[key] = bucket
	return true
}

func (l *windowLimiter) sweepLocked(now time.Time) {
	for key, bucket := range l.buckets {
		if now.After(bucket.resetAt) {
			delete(l.buckets, key)
		}
	}
}
