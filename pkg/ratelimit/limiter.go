package ratelimit

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/tendant/simple-tokens/pkg/errors"
)

// ErrRateLimited is returned by Allow when the key is over its limit
var ErrRateLimited = apperrors.ErrRateLimited

// Limiter throttles actions per key
type Limiter interface {
	// Allow records one action for key and returns ErrRateLimited when over the limit
	Allow(ctx context.Context, key string) error
}

// Noop allows everything
type Noop struct{}

// Allow implements Limiter
func (Noop) Allow(context.Context, string) error { return nil }

// TokenBucket implements the token bucket algorithm for rate limiting
type TokenBucket struct {
	capacity   int       // Maximum number of tokens
	tokens     float64   // Current number of tokens
	refillRate float64   // Tokens added per second
	lastRefill time.Time // Last time tokens were refilled
	now        func() time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a new token bucket rate limiter
// capacity: Maximum number of requests allowed in a burst
// refillRate: Number of requests allowed per second
func NewTokenBucket(capacity int, refillRate float64, now func() time.Time) *TokenBucket {
	if now == nil {
		now = time.Now
	}
	return &TokenBucket{
		capacity:   capacity,
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: now(),
		now:        now,
	}
}

// Allow reports whether a request should be allowed and takes a token if so
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = min(float64(tb.capacity), tb.tokens+elapsed*tb.refillRate)
	tb.lastRefill = now

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// Tokens returns the current number of available tokens
func (tb *TokenBucket) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.tokens
}

func (tb *TokenBucket) idleSince() time.Time {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.lastRefill
}

// MemoryLimiter keeps one token bucket per key in process memory.
// Limits are per instance; use RedisLimiter when running several instances.
type MemoryLimiter struct {
	buckets    map[string]*TokenBucket
	capacity   int
	refillRate float64
	now        func() time.Time
	mu         sync.Mutex
}

// MemoryOption configures a MemoryLimiter
type MemoryOption func(*MemoryLimiter)

// WithMemoryClock sets the clock used for refills
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(l *MemoryLimiter) {
		l.now = now
	}
}

// NewMemoryLimiter allows limit actions per window for each key, refilled
// continuously.
func NewMemoryLimiter(limit int, window time.Duration, opts ...MemoryOption) *MemoryLimiter {
	l := &MemoryLimiter{
		buckets:    make(map[string]*TokenBucket),
		capacity:   limit,
		refillRate: float64(limit) / window.Seconds(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow implements Limiter
func (l *MemoryLimiter) Allow(_ context.Context, key string) error {
	l.mu.Lock()
	bucket, exists := l.buckets[key]
	if !exists {
		bucket = NewTokenBucket(l.capacity, l.refillRate, l.now)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()

	if !bucket.Allow() {
		return ErrRateLimited
	}
	return nil
}

// Remove removes a specific key from the limiter
func (l *MemoryLimiter) Remove(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Len returns the number of tracked keys
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Prune drops buckets idle for longer than ttl
func (l *MemoryLimiter) Prune(ttl time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, bucket := range l.buckets {
		if now.Sub(bucket.idleSince()) > ttl {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// RunPruner calls Prune every ttl until ctx is cancelled
func (l *MemoryLimiter) RunPruner(ctx context.Context, ttl time.Duration) {
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Prune(ttl)
		}
	}
}
