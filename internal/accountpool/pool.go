package accountpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tokligence/relaymux/internal/logx"
	"github.com/tokligence/relaymux/internal/relayerr"
	"github.com/tokligence/relaymux/internal/selection"
	"golang.org/x/sync/singleflight"
)

// Refresher mints a fresh access token for a credential nearing expiry. It
// is supplied by the owning backend package (each OAuth backend has its
// own token endpoint and grant shape); API-key-only backends never call it.
type Refresher func(ctx context.Context, cred Credential) (Credential, error)

// DefaultCooldown is used when a 429 carries no parseable reset hint.
const DefaultCooldown = 60 * time.Second

// Pool is the per-backend set of accounts plus their tracker state and
// selection cursor. Every mutating method serializes on mu, matching the
// single pool-wide mutex discipline; getTokenForAccount instead takes a
// per-account singleflight group so refreshes on different accounts never
// block each other.
type Pool struct {
	mu       sync.Mutex
	accounts []*Account
	byID     map[string]*Account
	nextIdx  int

	refresh Refresher
	log     *logx.Logger
	store   *Store
	sf      singleflight.Group
}

// NewPool constructs an empty pool. store may be nil to disable
// persistence (useful in tests).
func NewPool(refresh Refresher, log *logx.Logger, store *Store) *Pool {
	if log == nil {
		log = logx.Nop()
	}
	return &Pool{
		byID:    make(map[string]*Account),
		refresh: refresh,
		log:     log,
		store:   store,
	}
}

// Initialize loads persisted accounts from disk, or starts empty if there
// is no store, no file, or the file is unreadable/corrupt (a corrupt file
// is logged and treated as empty rather than propagated as an error, per
// the single-writer file discipline's tolerance for interrupted writes).
func (p *Pool) Initialize(newCred func() Credential) {
	if p.store == nil {
		return
	}
	accs, activeIdx, err := p.store.Load(newCred)
	if err != nil {
		p.log.Warnf("account pool: failed to load %s, starting empty: %v", p.store.path, err)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts = accs
	p.nextIdx = activeIdx
	p.byID = make(map[string]*Account, len(accs))
	for i, a := range accs {
		a.ActiveIndex = i
		p.byID[a.ID] = a
	}
}

// AddAccount appends a new account and persists.
func (p *Pool) AddAccount(a *Account) {
	p.mu.Lock()
	a.ActiveIndex = len(p.accounts)
	p.accounts = append(p.accounts, a)
	p.byID[a.ID] = a
	p.mu.Unlock()
	p.saveAsync()
}

// Select applies the graded-filter-then-score strategy for model at the
// current time, consuming one token and advancing lastUsed/activeIndex on
// success. Token-bucket consumption happens under the same lock as
// candidate scoring, so two concurrent Select calls never both succeed on
// the last token.
func (p *Pool) Select(model string) selection.Outcome {
	now := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.accounts) == 0 {
		return selection.Outcome{Selected: false, Wait: 0}
	}

	candidates := make([]selection.Candidate, len(p.accounts))
	for i, a := range p.accounts {
		known := a.Quota.OK(model, now)
		candidates[i] = selection.Candidate{
			ID:           a.ID,
			ActiveIndex:  a.ActiveIndex,
			Enabled:      a.Enabled,
			Invalid:      a.Invalid,
			CooldownAt:   a.CooldownUntil,
			HealthScore:  a.Health.Score(now),
			BucketLevel:  a.Bucket.Level(now),
			QuotaScore:   a.Quota.ScoreInput(model, now),
			QuotaKnownOK: known,
			LastUsed:     a.LastUsed,
			WaitHint:     p.waitHintLocked(a, now),
		}
	}

	out := selection.Select(candidates, now)
	if !out.Selected {
		return out
	}
	a := p.byID[out.Account]
	a.Bucket.Consume(now)
	a.LastUsed = now
	p.advanceCursorLocked(a)
	return out
}

// HasRecoverablePath reports whether at least one account can still become
// selectable without operator intervention: enabled and not latched
// Invalid, so its cooldown or token bucket will eventually clear on its
// own. An Invalid account never recovers by itself (only ClearInvalid
// does that), so a pool where every account is Invalid or disabled has no
// recoverable path even when Select's Wait comes back near zero.
func (p *Pool) HasRecoverablePath() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, a := range p.accounts {
		if a.Enabled && !a.Invalid {
			return true
		}
	}
	return false
}

func (p *Pool) waitHintLocked(a *Account, now time.Time) time.Duration {
	if a.CooldownUntil.After(now) {
		return a.CooldownUntil.Sub(now)
	}
	return a.Bucket.WaitForToken(now)
}

func (p *Pool) advanceCursorLocked(selected *Account) {
	p.nextIdx = selected.ActiveIndex + 1
	if p.nextIdx >= len(p.accounts) {
		p.nextIdx = 0
	}
}

// MarkRateLimited sets cooldownUntil = now + d and dents health.
func (p *Pool) MarkRateLimited(id string, d time.Duration) {
	now := time.Now()
	p.mu.Lock()
	a, ok := p.byID[id]
	if ok {
		a.CooldownUntil = now.Add(d)
		a.Health.RecordRateLimit(now)
	}
	p.mu.Unlock()
	if ok {
		p.saveAsync()
	}
}

// MarkInvalid latches invalid = true; the account only recovers via
// operator action (ClearInvalid).
func (p *Pool) MarkInvalid(id, reason string) {
	p.mu.Lock()
	a, ok := p.byID[id]
	if ok {
		a.Invalid = true
		a.InvalidReason = reason
	}
	p.mu.Unlock()
	if ok {
		p.saveAsync()
	}
}

// ClearInvalid is the operator hook that un-latches an account.
func (p *Pool) ClearInvalid(id string) error {
	p.mu.Lock()
	a, ok := p.byID[id]
	if ok {
		a.Invalid = false
		a.InvalidReason = ""
	}
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("accountpool: unknown account %q", id)
	}
	p.saveAsync()
	return nil
}

// RecordSuccess forwards a success event to the account's health tracker.
func (p *Pool) RecordSuccess(id string) {
	now := time.Now()
	p.mu.Lock()
	if a, ok := p.byID[id]; ok {
		a.Health.RecordSuccess(now)
	}
	p.mu.Unlock()
}

// RecordFailure forwards a failure event to the account's health tracker.
func (p *Pool) RecordFailure(id string) {
	now := time.Now()
	p.mu.Lock()
	if a, ok := p.byID[id]; ok {
		a.Health.RecordFailure(now)
	}
	p.mu.Unlock()
}

// UpdateQuota records fresh quota telemetry for (id, model).
func (p *Pool) UpdateQuota(id, model string, fraction float64) {
	now := time.Now()
	p.mu.Lock()
	a, ok := p.byID[id]
	p.mu.Unlock()
	if ok {
		a.Quota.Update(model, fraction, now)
	}
}

// DecayQuotaOnRateLimit heuristically lowers quota for backends without
// direct telemetry. MarkRateLimited does not call it, and neither does the
// dispatch loop's 429 handling.
func (p *Pool) DecayQuotaOnRateLimit(id, model string) {
	now := time.Now()
	p.mu.Lock()
	a, ok := p.byID[id]
	p.mu.Unlock()
	if ok {
		a.Quota.DecayOnRateLimit(model, now)
	}
}

// RefundToken gives back a token consumed by a cancelled request that
// produced no output.
func (p *Pool) RefundToken(id string) {
	p.mu.Lock()
	a, ok := p.byID[id]
	p.mu.Unlock()
	if ok {
		a.Bucket.Refund()
	}
}

// GetTokenForAccount returns a usable credential for id, transparently
// refreshing it first if it is within 5 minutes of expiry. Concurrent
// callers on the same account collapse onto a single refresh via
// singleflight; callers on different accounts never block each other. A
// refresh failure marks the account invalid, per the pool's error model.
func (p *Pool) GetTokenForAccount(ctx context.Context, id string) (Credential, error) {
	p.mu.Lock()
	a, ok := p.byID[id]
	p.mu.Unlock()
	if !ok {
		return nil, relayerr.New(relayerr.ConfigMissing, 503, fmt.Sprintf("unknown account %q", id))
	}

	now := time.Now()
	p.mu.Lock()
	cred := a.Cred
	needsRefresh := cred.ExpiringSoon(now)
	p.mu.Unlock()
	if !needsRefresh || p.refresh == nil {
		return cred, nil
	}

	v, err, _ := p.sf.Do(id, func() (any, error) {
		return p.refresh(ctx, cred)
	})
	if err != nil {
		p.MarkInvalid(id, fmt.Sprintf("token refresh failed: %v", err))
		return nil, relayerr.Wrap(relayerr.Unauthorized, 401, "token refresh failed", err)
	}
	fresh := v.(Credential)
	p.mu.Lock()
	a.Cred = fresh
	p.mu.Unlock()
	p.saveAsync()
	return fresh, nil
}

// Accounts returns a shallow snapshot of the pool for introspection
// endpoints (/health, /account-limits). Trackers are read without mutation.
func (p *Pool) Accounts() []*Account {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Account, len(p.accounts))
	copy(out, p.accounts)
	return out
}

// Len reports the current pool size (used for the attempt-budget formula).
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.accounts)
}

func (p *Pool) saveAsync() {
	if p.store == nil {
		return
	}
	p.store.Enqueue(p.snapshot())
}

func (p *Pool) snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	accs := make([]*Account, len(p.accounts))
	copy(accs, p.accounts)
	return Snapshot{Accounts: accs, ActiveIndex: p.nextIdx}
}
