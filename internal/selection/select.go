package selection

import (
	"time"

	"github.com/tokligence/relaymux/internal/trackers"
)

const minUsableHealth = trackers.HealthMinUsable

// Scoring weights are fixed constants of the design, not runtime-tunable.
const (
	weightHealth = 2.0
	weightBucket = 5.0
	weightQuota  = 3.0
	weightLRU    = 0.1
)

// Outcome is the sum-typed result of Select: exactly one of Account or
// Wait is meaningful, distinguished by Selected.
type Outcome struct {
	Selected bool
	Account  string
	Wait     time.Duration
}

// Select applies the graded-filter-then-score strategy over candidates
// for a target model at time now.
func Select(candidates []Candidate, now time.Time) Outcome {
	for _, level := range gradeLevels {
		pool := filter(candidates, now, level)
		if len(pool) == 0 {
			continue
		}
		best := scoreBest(pool, now)
		return Outcome{Selected: true, Account: best}
	}
	return Outcome{Selected: false, Wait: waitHint(candidates, now)}
}

type predicate func(Candidate, time.Time) bool

var gradeLevels = []predicate{
	// 0 STRICT
	func(c Candidate, now time.Time) bool {
		return c.active(now) && c.healthy() && c.hasToken() && c.quotaOK()
	},
	// 1 IGNORE_HEALTH
	func(c Candidate, now time.Time) bool {
		return c.active(now) && c.hasToken() && c.quotaOK()
	},
	// 2 IGNORE_TOKENS
	func(c Candidate, now time.Time) bool {
		return c.active(now) && c.healthy() && c.quotaOK()
	},
	// 3 LAST_RESORT
	func(c Candidate, now time.Time) bool {
		return c.active(now)
	},
}

func filter(candidates []Candidate, now time.Time, p predicate) []Candidate {
	var out []Candidate
	for _, c := range candidates {
		if p(c, now) {
			out = append(out, c)
		}
	}
	return out
}

func scoreBest(pool []Candidate, now time.Time) string {
	bestIdx := -1
	var bestScore float64
	for i, c := range pool {
		s := score(c, now)
		if bestIdx == -1 || s > bestScore ||
			(s == bestScore && c.ActiveIndex < pool[bestIdx].ActiveIndex) {
			bestIdx = i
			bestScore = s
		}
	}
	return pool[bestIdx].ID
}

func score(c Candidate, now time.Time) float64 {
	lru := trackers.LRUScore(c.LastUsed, now)
	return weightHealth*float64(c.HealthScore) +
		weightBucket*(100*c.BucketLevel/trackers.BucketCapacity) +
		weightQuota*(100*c.QuotaScore) +
		weightLRU*lru
}

// waitHint reports the shortest time until any candidate could plausibly
// become selectable: min{cooldownUntil-now : cooling accounts} union
// {refill-time : empty-bucket accounts}. Invalid and disabled candidates
// contribute nothing here — they never clear on their own, so their
// WaitHint (often ~0, since their token bucket was never drained) must not
// be allowed to win the min over a sibling that is genuinely still cooling.
func waitHint(candidates []Candidate, now time.Time) time.Duration {
	var best time.Duration
	first := true
	for _, c := range candidates {
		if !c.cooling(now) && !(c.active(now) && !c.hasToken()) {
			continue
		}
		w := c.WaitHint
		if first || w < best {
			best = w
			first = false
		}
	}
	return best
}
