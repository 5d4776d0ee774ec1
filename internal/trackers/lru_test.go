package trackers

import (
	"testing"
	"time"
)

func TestLRUScoreNeverUsedScoresMax(t *testing.T) {
	if got := LRUScore(time.Time{}, time.Now()); got != LRUCapMinutes {
		t.Fatalf("got %v, want %v", got, LRUCapMinutes)
	}
}

func TestLRUScoreCapsAtHorizon(t *testing.T) {
	t0 := time.Now()
	last := t0.Add(-1000 * time.Minute)
	if got := LRUScore(last, t0); got != LRUCapMinutes {
		t.Fatalf("got %v, want capped at %v", got, LRUCapMinutes)
	}
}

func TestLRUScoreGrowsWithElapsedMinutes(t *testing.T) {
	t0 := time.Now()
	last := t0.Add(-10 * time.Minute)
	if got := LRUScore(last, t0); got != 10 {
		t.Fatalf("got %v, want 10", got)
	}
}
