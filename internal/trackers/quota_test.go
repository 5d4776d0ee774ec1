package trackers

import (
	"testing"
	"time"
)

func TestQuotaUnknownUntilObserved(t *testing.T) {
	t0 := time.Now()
	q := NewQuota()
	if _, known := q.Fraction("model-a", t0); known {
		t.Fatalf("expected unknown before any observation")
	}
	if got := q.ScoreInput("model-a", t0); got != QuotaUnknownScore {
		t.Fatalf("ScoreInput = %v, want %v", got, QuotaUnknownScore)
	}
	if !q.OK("model-a", t0) {
		t.Fatalf("unknown quota should be OK (does not exclude the account)")
	}
}

func TestQuotaGoesStaleAfterFreshnessLimit(t *testing.T) {
	t0 := time.Now()
	q := NewQuota()
	q.Update("model-a", 0.8, t0)
	if f, known := q.Fraction("model-a", t0); !known || f != 0.8 {
		t.Fatalf("Fraction = %v,%v want 0.8,true", f, known)
	}
	stale := t0.Add(quotaFreshnessLimit + time.Second)
	if _, known := q.Fraction("model-a", stale); known {
		t.Fatalf("expected stale observation to report unknown")
	}
}

func TestQuotaDecayOnRateLimit(t *testing.T) {
	t0 := time.Now()
	q := NewQuota()
	q.Update("model-a", 0.4, t0)
	q.DecayOnRateLimit("model-a", t0)
	f, known := q.Fraction("model-a", t0)
	if !known || f != 0.2 {
		t.Fatalf("Fraction after decay = %v,%v want 0.2,true", f, known)
	}
	if !q.OK("model-a", t0) {
		t.Fatalf("expected 0.2 > QuotaCritical to still be OK")
	}

	q2 := NewQuota()
	q2.DecayOnRateLimit("model-b", t0)
	f2, known2 := q2.Fraction("model-b", t0)
	if !known2 || f2 != QuotaCritical/2 {
		t.Fatalf("first decay with no prior data = %v,%v want %v,true", f2, known2, QuotaCritical/2)
	}
	if q2.OK("model-b", t0) {
		t.Fatalf("expected quota below QuotaCritical to fail P_quotaOk")
	}
}

func TestQuotaUpdateClampsFraction(t *testing.T) {
	t0 := time.Now()
	q := NewQuota()
	q.Update("m", 1.5, t0)
	if f, _ := q.Fraction("m", t0); f != 1 {
		t.Fatalf("fraction = %v, want clamped to 1", f)
	}
	q.Update("m", -1, t0)
	if f, _ := q.Fraction("m", t0); f != 0 {
		t.Fatalf("fraction = %v, want clamped to 0", f)
	}
}
