package ratelimit

import (
	"math"
	"sync"
	"time"
)

// bucket is a lazily refilled token bucket. One bucket exists per
// (rule, method, endpoint-key) combination and lives for the process
// lifetime. Refill happens on each access; there is no background timer.
type bucket struct {
	mu          sync.Mutex
	capacity    float64
	tokens      float64
	refillPerMs float64
	last        time.Time
}

func newBucket(capacity int, refillPerMs float64, now time.Time) *bucket {
	return &bucket{
		capacity:    float64(capacity),
		tokens:      float64(capacity),
		refillPerMs: refillPerMs,
		last:        now,
	}
}

// take refills the bucket and attempts to consume one token.
// On denial it returns the time until a token becomes available.
func (b *bucket) take(now time.Time) (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(now)

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}

	if b.refillPerMs <= 0 {
		// Zero-capacity rules never admit.
		return false, 0
	}

	needed := 1 - b.tokens
	waitMs := math.Ceil(needed / b.refillPerMs)
	return false, time.Duration(waitMs) * time.Millisecond
}

// refill adds tokens for the elapsed time, capped at capacity.
func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.last)
	if elapsed <= 0 {
		return
	}
	b.last = now

	elapsedMs := float64(elapsed.Microseconds()) / 1000.0
	b.tokens += elapsedMs * b.refillPerMs
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
}

// level returns the current token count after refill.
func (b *bucket) level(now time.Time) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(now)
	return b.tokens
}
