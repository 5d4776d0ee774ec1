// Package accountpool implements the per-backend credential pool: account
// records with their trackers, the graded-filter-then-score selection
// strategy from internal/selection, per-account OAuth-refresh
// serialization, and whole-file JSON persistence with a single-writer
// discipline.
//
// Grounded on the account/pool shape of other_examples/darvell-codex-pool
// (per-account mutex, atomic temp-file+rename persistence, ID-token claim
// parsing) and generalized to the credential-agnostic Credential interface
// this backend-neutral pool needs.
package accountpool

import (
	"time"

	"github.com/tokligence/relaymux/internal/trackers"
)

// Credential is backend-specific token/secret material. Each backend
// package defines its own concrete type (API key, OAuth token set, and so
// on); the pool only needs to know how to ask it for freshness.
type Credential interface {
	// ExpiringSoon reports whether the credential should be refreshed
	// before use (OAuth backends); API-key-only credentials return false.
	ExpiringSoon(now time.Time) bool
}

// Account is one credential set usable against one backend, plus the
// tracker state the selection strategy scores it by.
type Account struct {
	ID    string
	Email string
	Cred  Credential

	AddedAt       time.Time
	LastUsed      time.Time
	Enabled       bool
	Invalid       bool
	InvalidReason string
	CooldownUntil time.Time
	ActiveIndex   int

	Health trackers.Health
	Bucket *trackers.TokenBucket
	Quota  *trackers.Quota
}

// NewAccount seeds a freshly added account's trackers.
func NewAccount(id string, cred Credential, now time.Time) *Account {
	return &Account{
		ID:      id,
		Cred:    cred,
		AddedAt: now,
		Enabled: true,
		Health:  trackers.NewHealth(now),
		Bucket:  trackers.NewTokenBucket(now),
		Quota:   trackers.NewQuota(),
	}
}

func (a *Account) active(now time.Time) bool {
	return a.Enabled && !a.Invalid && !a.CooldownUntil.After(now)
}
