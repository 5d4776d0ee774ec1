package accountpool

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeCred struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

func (c *fakeCred) ExpiringSoon(now time.Time) bool {
	return !c.Expires.IsZero() && c.Expires.Sub(now) < 5*time.Minute
}

func newTestPool(n int) *Pool {
	p := NewPool(nil, nil, nil)
	now := time.Now()
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		p.AddAccount(NewAccount(id, &fakeCred{Token: id}, now))
	}
	return p
}

func TestSelectRotatesAcrossHealthyAccounts(t *testing.T) {
	p := newTestPool(2)
	seen := map[string]bool{}
	for i := 0; i < 4; i++ {
		out := p.Select("model")
		if !out.Selected {
			t.Fatalf("expected selection, got %+v", out)
		}
		seen[out.Account] = true
	}
	if len(seen) != 2 {
		t.Fatalf("expected both accounts to be used, saw %v", seen)
	}
}

// TestRateLimitRotation covers spec scenario S3: one account 429s and is
// put on cooldown, so the next selection picks the other, still-available
// account.
func TestRateLimitRotation(t *testing.T) {
	p := newTestPool(2)
	first := p.Select("model")
	if !first.Selected {
		t.Fatalf("expected initial selection")
	}
	p.MarkRateLimited(first.Account, 10*time.Second)

	second := p.Select("model")
	if !second.Selected {
		t.Fatalf("expected fallback selection after rate limit")
	}
	if second.Account == first.Account {
		t.Fatalf("expected a different account after rate limit, got %s twice", first.Account)
	}
}

func TestInvalidationLatchesUntilCleared(t *testing.T) {
	p := newTestPool(1)
	out := p.Select("model")
	if !out.Selected {
		t.Fatalf("expected selection")
	}
	p.MarkInvalid(out.Account, "401")

	again := p.Select("model")
	if again.Selected {
		t.Fatalf("expected invalidated sole account to be unselectable, got %+v", again)
	}
	if err := p.ClearInvalid(out.Account); err != nil {
		t.Fatalf("ClearInvalid: %v", err)
	}
	restored := p.Select("model")
	if !restored.Selected {
		t.Fatalf("expected account selectable again after ClearInvalid")
	}
}

func TestSelectionAtomicityUnderConcurrency(t *testing.T) {
	const accounts = 3
	p := newTestPool(accounts)
	// Buckets start full; fire concurrent selects against the shared pool.
	const n = 20
	var wg sync.WaitGroup
	results := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out := p.Select("model")
			results[i] = out.Selected
		}(i)
	}
	wg.Wait()
	selected := 0
	for _, ok := range results {
		if ok {
			selected++
		}
	}
	if selected == 0 {
		t.Fatalf("expected at least one concurrent select to succeed")
	}
}

func TestGetTokenForAccountCollapsesConcurrentRefreshes(t *testing.T) {
	var refreshes int32
	var mu sync.Mutex
	refresh := func(ctx context.Context, cred Credential) (Credential, error) {
		mu.Lock()
		refreshes++
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		return &fakeCred{Token: "fresh", Expires: time.Now().Add(time.Hour)}, nil
	}
	p := NewPool(refresh, nil, nil)
	p.AddAccount(NewAccount("a", &fakeCred{Token: "stale", Expires: time.Now().Add(time.Second)}, time.Now()))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.GetTokenForAccount(context.Background(), "a"); err != nil {
				t.Errorf("GetTokenForAccount: %v", err)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	got := refreshes
	mu.Unlock()
	if got != 1 {
		t.Fatalf("expected exactly one refresh, got %d", got)
	}
}

func TestGetTokenForAccountMarksInvalidOnRefreshFailure(t *testing.T) {
	refresh := func(ctx context.Context, cred Credential) (Credential, error) {
		return nil, context.DeadlineExceeded
	}
	p := NewPool(refresh, nil, nil)
	p.AddAccount(NewAccount("a", &fakeCred{Token: "stale", Expires: time.Now()}, time.Now()))

	if _, err := p.GetTokenForAccount(context.Background(), "a"); err == nil {
		t.Fatalf("expected refresh error to propagate")
	}
	out := p.Select("model")
	if out.Selected {
		t.Fatalf("expected account marked invalid after refresh failure")
	}
}
