package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket implements the token bucket algorithm for rate limiting
type TokenBucket struct {
	mu         sync.Mutex
	capacity   int64 // Maximum number of tokens
	tokens     int64 // Current number of tokens
	refillRate int64 // Tokens added per second
	lastRefill time.Time
}

// NewTokenBucket creates a new token bucket
func NewTokenBucket(capacity, refillRate int64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow checks if a request is allowed and consumes a token if so
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// refill adds tokens based on elapsed time
func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)

	tokensToAdd := int64(elapsed.Seconds()) * tb.refillRate
	if tokensToAdd > 0 {
		tb.tokens += tokensToAdd
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastRefill = now
	}
}

// Limiter manages per-key token buckets (e.g. player IDs, IP addresses)
type Limiter struct {
	mu         sync.RWMutex
	buckets    map[string]*TokenBucket
	capacity   int64
	refillRate int64

	cleanupInterval time.Duration
}

// NewLimiter creates a new per-key rate limiter
func NewLimiter(capacity, refillRate int64) *Limiter {
	l := &Limiter{
		buckets:         make(map[string]*TokenBucket),
		capacity:        capacity,
		refillRate:      refillRate,
		cleanupInterval: 10 * time.Minute,
	}

	// Idle buckets are dropped in the background so the map does not
	// grow with every IP ever seen.
	go l.cleanupLoop()

	return l
}

// Allow checks if a request from the given key is allowed
func (l *Limiter) Allow(key string) bool {
	return l.getBucket(key).Allow()
}

func (l *Limiter) getBucket(key string) *TokenBucket {
	l.mu.RLock()
	bucket, exists := l.buckets[key]
	l.mu.RUnlock()

	if exists {
		return bucket
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	bucket, exists = l.buckets[key]
	if exists {
		return bucket
	}

	bucket = NewTokenBucket(l.capacity, l.refillRate)
	l.buckets[key] = bucket
	return bucket
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		l.cleanup()
	}
}

// cleanup removes buckets that are full and untouched for a while
func (l *Limiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, bucket := range l.buckets {
		bucket.mu.Lock()
		if bucket.tokens == bucket.capacity && now.Sub(bucket.lastRefill) > l.cleanupInterval {
			delete(l.buckets, key)
		}
		bucket.mu.Unlock()
	}
}
