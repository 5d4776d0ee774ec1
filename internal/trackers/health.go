// Package trackers implements the three per-account statistics kept by the
// account pool: a health score, a client-side pacing token bucket, and a
// per-model quota fraction, each with time-based recovery. Health is a plain
// value type whose access the account pool (internal/accountpool)
// serializes; TokenBucket and Quota guard their own state with a mutex.
package trackers

import "time"

const (
	// HealthInitial is the score a freshly added account starts at.
	HealthInitial = 70
	// HealthMax and HealthMin bound the score.
	HealthMax = 100
	HealthMin = 0
	// HealthMinUsable is the threshold the P_healthy selection predicate uses.
	HealthMinUsable = 50

	healthRecoveryPerHour = 10
	healthSuccessDelta    = 1
	healthRateLimitDelta  = -10
	healthFailureDelta    = -20
)

// Health is a per-account reliability score in [0, 100] that recovers
// passively over time and drops on rate-limit/failure events.
type Health struct {
	score     int
	lastTouch time.Time
}

// NewHealth returns a Health tracker seeded at HealthInitial.
func NewHealth(now time.Time) Health {
	return Health{score: HealthInitial, lastTouch: now}
}

// Score returns the current score as of now, after applying passive
// recovery, without mutating the tracker (used by the selection strategy,
// which must be able to score candidates without taking the write lock).
func (h Health) Score(now time.Time) int {
	return clamp(h.score+recoveredPoints(h.lastTouch, now), HealthMin, HealthMax)
}

// Touch applies recovery-to-now, then the delta for the given event, and
// commits the result. It must be called under the pool's mutex.
func (h *Health) touch(now time.Time, delta int) {
	recovered := clamp(h.score+recoveredPoints(h.lastTouch, now), HealthMin, HealthMax)
	h.score = clamp(recovered+delta, HealthMin, HealthMax)
	h.lastTouch = now
}

// RecordSuccess applies the +1 success event.
func (h *Health) RecordSuccess(now time.Time) { h.touch(now, healthSuccessDelta) }

// RecordRateLimit applies the -10 rate-limit event.
func (h *Health) RecordRateLimit(now time.Time) { h.touch(now, healthRateLimitDelta) }

// RecordFailure applies the -20 failure event.
func (h *Health) RecordFailure(now time.Time) { h.touch(now, healthFailureDelta) }

func recoveredPoints(last, now time.Time) int {
	if now.Before(last) {
		return 0
	}
	hours := int(now.Sub(last) / time.Hour)
	return hours * healthRecoveryPerHour
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
