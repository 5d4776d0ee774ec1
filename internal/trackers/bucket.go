package trackers

import (
	"sync"
	"time"
)

// Bucket capacity and refill rate for the client-side pacing limiter: 50
// tokens max, refilling at 6 per minute. This paces calls to a backend
// even before it signals 429, preventing burst-induced bans.
const (
	BucketCapacity   = 50.0
	bucketRefillRate = 6.0 // tokens per minute
)

// TokenBucket is a per-account client-side pacing limiter: capacity,
// refill rate, current level, and last-refill time, refilled lazily on
// query rather than by a background timer.
type TokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewTokenBucket returns a bucket starting full.
func NewTokenBucket(now time.Time) *TokenBucket {
	return &TokenBucket{tokens: BucketCapacity, lastRefill: now}
}

func (b *TokenBucket) refillLocked(now time.Time) {
	if now.Before(b.lastRefill) {
		return
	}
	elapsedMinutes := now.Sub(b.lastRefill).Minutes()
	b.tokens = minF(BucketCapacity, b.tokens+elapsedMinutes*bucketRefillRate)
	b.lastRefill = now
}

// Level returns the current token level as of now without mutating state
// beyond internally applying refill bookkeeping (safe to call frequently).
func (b *TokenBucket) Level(now time.Time) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked(now)
	return b.tokens
}

// Consume attempts to take one token; returns false if the bucket is empty.
func (b *TokenBucket) Consume(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked(now)
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Refund gives back one token, capped at capacity. Used when a cancelled
// request produced no output.
func (b *TokenBucket) Refund() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = minF(BucketCapacity, b.tokens+1)
}

// WaitForToken returns how long until at least one token will be available.
func (b *TokenBucket) WaitForToken(now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked(now)
	if b.tokens >= 1 {
		return 0
	}
	needed := 1 - b.tokens
	minutes := needed / bucketRefillRate
	return time.Duration(minutes * float64(time.Minute))
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
