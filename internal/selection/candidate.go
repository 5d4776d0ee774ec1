// Package selection implements the account pool's hybrid selection
// strategy: graded predicate filtering followed by composite scoring. It
// operates purely on snapshots (Candidate values) and does no locking of its
// own; the account pool builds the snapshots and calls Select while holding
// its lock, then consumes the winner's token under that same lock.
package selection

import (
	"time"

	"github.com/tokligence/relaymux/internal/trackers"
)

// Candidate is a read-only snapshot of one account's selection-relevant
// state, taken by the account pool under its lock and handed to Select.
type Candidate struct {
	ID           string
	ActiveIndex  int
	Enabled      bool
	Invalid      bool
	CooldownAt   time.Time
	HealthScore  int     // already recovered to `now` by the caller
	BucketLevel  float64 // already refilled to `now` by the caller
	QuotaScore   float64 // fraction in [0,1], or the unknown-neutral value
	QuotaKnownOK bool    // P_quotaOk(a, m) already evaluated by the caller
	LastUsed     time.Time
	WaitHint     time.Duration // time until this candidate becomes usable, if excluded
}

func (c Candidate) active(now time.Time) bool {
	return c.Enabled && !c.Invalid && !c.CooldownAt.After(now)
}

// cooling reports whether c is otherwise usable but presently serving out a
// rate-limit cooldown, as distinct from being latched Invalid or disabled
// outright: a cooling account's WaitHint is a real horizon, an
// invalid/disabled one's is not.
func (c Candidate) cooling(now time.Time) bool {
	return c.Enabled && !c.Invalid && c.CooldownAt.After(now)
}

func (c Candidate) healthy() bool {
	return c.HealthScore >= trackers.HealthMinUsable
}

func (c Candidate) hasToken() bool {
	return c.BucketLevel >= 1
}

func (c Candidate) quotaOK() bool {
	return c.QuotaKnownOK
}
