package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterAllowsBurstThenBlocks(t *testing.T) {
	l := NewLimiter(10, 5)

	for i := 0; i < 10; i++ {
		if !l.Allow() {
			t.Fatalf("request %d should be allowed within burst", i)
		}
	}
	if l.Allow() {
		t.Fatal("11th request should be denied once the burst is spent")
	}
	if got := l.Snapshot().RejectedTotal; got != 1 {
		t.Fatalf("expected one rejected request recorded, got %d", got)
	}
}

func TestLimiterRefillsOverTime(t *testing.T) {
	l := NewLimiter(1, 1000)
	if !l.Allow() {
		t.Fatal("first request should be allowed")
	}
	if l.Allow() {
		t.Fatal("second immediate request should be denied")
	}
	time.Sleep(5 * time.Millisecond)
	if !l.Allow() {
		t.Fatal("expected the bucket to have refilled at 1000 tokens/sec")
	}
}

func TestLimiterWaitTimeZeroWhenTokensAvailable(t *testing.T) {
	l := NewLimiter(5, 1)
	if wait := l.WaitTime(); wait != 0 {
		t.Fatalf("expected zero wait with a full bucket, got %v", wait)
	}
}

func TestLimiterWaitTimePositiveWhenEmpty(t *testing.T) {
	l := NewLimiter(1, 1)
	l.Allow()
	if wait := l.WaitTime(); wait <= 0 {
		t.Fatalf("expected a positive wait once the bucket is empty, got %v", wait)
	}
}

func TestLimiterResetRestoresCapacityAndClearsRejected(t *testing.T) {
	l := NewLimiter(1, 1)
	l.Allow()
	l.Allow() // rejected
	l.Reset()

	snap := l.Snapshot()
	if snap.Tokens != 1 {
		t.Fatalf("expected full capacity after reset, got %v", snap.Tokens)
	}
	if snap.RejectedTotal != 0 {
		t.Fatalf("expected rejected count cleared after reset, got %d", snap.RejectedTotal)
	}
}

func TestLimiterConcurrentAllowNeverOvershootsCapacity(t *testing.T) {
	l := NewLimiter(50, 0)
	done := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		go func() { done <- l.Allow() }()
	}
	allowed := 0
	for i := 0; i < 100; i++ {
		if <-done {
			allowed++
		}
	}
	if allowed != 50 {
		t.Fatalf("expected exactly 50 allowed with no refill, got %d", allowed)
	}
}
