package trackers

import (
	"sync"
	"time"
)

// Quota freshness/threshold constants.
const (
	QuotaLow            = 0.10
	QuotaCritical       = 0.05
	quotaFreshnessLimit = 5 * time.Minute
	// QuotaUnknownScore is the composite-scoring input used when quota data
	// is stale or was never observed ("scored 50 of 100").
	QuotaUnknownScore = 0.50
)

// Quota tracks the last-known free-fraction per model for one account. It is
// fed through the account pool's UpdateQuota (telemetry) and
// DecayQuotaOnRateLimit (429 heuristic); no backend adapter and no part of
// the dispatch loop calls either, so every model's quota stays unknown and
// scores as QuotaUnknownScore.
type Quota struct {
	mu    sync.Mutex
	byMod map[string]quotaEntry
}

type quotaEntry struct {
	fraction    float64
	lastUpdated time.Time
}

// NewQuota returns an empty quota tracker (every model starts "unknown").
func NewQuota() *Quota {
	return &Quota{byMod: make(map[string]quotaEntry)}
}

// Update records a freshly observed free-fraction for a model.
func (q *Quota) Update(model string, fraction float64, now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	q.byMod[model] = quotaEntry{fraction: fraction, lastUpdated: now}
}

// DecayOnRateLimit heuristically lowers the quota estimate for backends that
// never send quota telemetry directly but did just return 429, so repeated
// 429s still push quota-aware selection away from the account.
func (q *Quota) DecayOnRateLimit(model string, now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	cur, ok := q.byMod[model]
	next := QuotaCritical / 2
	if ok && !q.isStale(cur, now) {
		next = cur.fraction / 2
	}
	q.byMod[model] = quotaEntry{fraction: next, lastUpdated: now}
}

// Fraction returns (fraction, known). known is false when there is no
// observation yet or the observation is older than the freshness horizon.
func (q *Quota) Fraction(model string, now time.Time) (float64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.byMod[model]
	if !ok || q.isStale(e, now) {
		return 0, false
	}
	return e.fraction, true
}

func (q *Quota) isStale(e quotaEntry, now time.Time) bool {
	return now.Sub(e.lastUpdated) > quotaFreshnessLimit
}

// ScoreInput returns the value the selection strategy's composite score
// should use: the real fraction if fresh, else QuotaUnknownScore.
func (q *Quota) ScoreInput(model string, now time.Time) float64 {
	if f, ok := q.Fraction(model, now); ok {
		return f
	}
	return QuotaUnknownScore
}

// OK reports the P_quotaOk predicate: quota above the critical threshold, or
// unknown (unknown does not exclude the account, it just scores neutrally).
func (q *Quota) OK(model string, now time.Time) bool {
	f, known := q.Fraction(model, now)
	if !known {
		return true
	}
	return f > QuotaCritical
}
