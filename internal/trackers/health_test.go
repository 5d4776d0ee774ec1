package trackers

import (
	"testing"
	"time"
)

func TestHealthRecoversOverTime(t *testing.T) {
	t0 := time.Now()
	h := NewHealth(t0)
	h.RecordFailure(t0)
	if got := h.Score(t0); got != HealthInitial+healthFailureDelta {
		t.Fatalf("score right after failure = %d, want %d", got, HealthInitial+healthFailureDelta)
	}
	later := t0.Add(3 * time.Hour)
	if got := h.Score(later); got != HealthInitial+healthFailureDelta+3*healthRecoveryPerHour {
		t.Fatalf("score after 3h recovery = %d, want %d", got, HealthInitial+healthFailureDelta+3*healthRecoveryPerHour)
	}
}

func TestHealthClampsToBounds(t *testing.T) {
	t0 := time.Now()
	h := NewHealth(t0)
	for i := 0; i < 10; i++ {
		h.RecordFailure(t0)
	}
	if got := h.Score(t0); got != HealthMin {
		t.Fatalf("score = %d, want clamped to %d", got, HealthMin)
	}

	h2 := NewHealth(t0)
	far := t0.Add(1000 * time.Hour)
	if got := h2.Score(far); got != HealthMax {
		t.Fatalf("score = %d, want clamped to %d", got, HealthMax)
	}
}

func TestHealthScoreDoesNotMutate(t *testing.T) {
	t0 := time.Now()
	h := NewHealth(t0)
	_ = h.Score(t0.Add(5 * time.Hour))
	if got := h.Score(t0); got != HealthInitial {
		t.Fatalf("Score mutated tracker: got %d, want %d", got, HealthInitial)
	}
}

func TestHealthRecordSuccessAndRateLimit(t *testing.T) {
	t0 := time.Now()
	h := NewHealth(t0)
	h.RecordSuccess(t0)
	if got := h.Score(t0); got != HealthInitial+healthSuccessDelta {
		t.Fatalf("got %d, want %d", got, HealthInitial+healthSuccessDelta)
	}
	h.RecordRateLimit(t0)
	want := clamp(HealthInitial+healthSuccessDelta+healthRateLimitDelta, HealthMin, HealthMax)
	if got := h.Score(t0); got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}
