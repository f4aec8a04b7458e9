package ratelimit

import (
	"sync"
	"time"
)

// Bucket is a token bucket. Each bucket starts full and refills
// continuously at refillRate tokens per second up to capacity.
type Bucket struct {
	capacity   int
	tokens     float64
	refillRate float64
	lastRefill time.Time
	mu         sync.Mutex
}

// NewBucket creates a bucket allowing bursts of capacity requests,
// refilling at refillRate requests per second.
func NewBucket(capacity int, refillRate float64) *Bucket {
	return &Bucket{
		capacity:   capacity,
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow consumes one token if available.
func (b *Bucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = min(float64(b.capacity), b.tokens+elapsed*b.refillRate)
	b.lastRefill = now

	if b.tokens >= 1.0 {
		b.tokens -= 1.0
		return true
	}
	return false
}

// Tokens reports the current token count.
func (b *Bucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens
}

// Reset refills the bucket to capacity.
func (b *Bucket) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = float64(b.capacity)
	b.lastRefill = time.Now()
}

// Limiter keys buckets by an arbitrary string, usually a client IP
// or an account ID. Inactive buckets are evicted after ttl.
type Limiter struct {
	buckets    map[string]*Bucket
	capacity   int
	refillRate float64
	ttl        time.Duration
	mu         sync.RWMutex
}

// NewLimiter creates a keyed limiter. A zero ttl keeps buckets forever.
func NewLimiter(capacity int, refillRate float64, ttl time.Duration) *Limiter {
	l := &Limiter{
		buckets:    make(map[string]*Bucket),
		capacity:   capacity,
		refillRate: refillRate,
		ttl:        ttl,
	}
	if ttl > 0 {
		go l.evictLoop()
	}
	return l
}

// Allow consumes one token from the bucket for key, creating the
// bucket on first use.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	bucket, ok := l.buckets[key]
	if !ok {
		bucket = NewBucket(l.capacity, l.refillRate)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()

	return bucket.Allow()
}

// Reset refills the bucket for key, if one exists.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if bucket, ok := l.buckets[key]; ok {
		bucket.Reset()
	}
}

func (l *Limiter) evictLoop() {
	ticker := time.NewTicker(l.ttl)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		now := time.Now()
		for key, bucket := range l.buckets {
			if now.Sub(bucket.lastRefill) > l.ttl {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}

// ActiveBuckets reports how many keys currently hold a bucket.
func (l *Limiter) ActiveBuckets() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buckets)
}
