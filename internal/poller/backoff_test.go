package poller

import (
	"testing"
	"time"
)

func TestBackoffSchedule(t *testing.T) {
	b := NewBackoff(DefaultBackoffConfig())

	if got := b.Interval(); got != 2*time.Second {
		t.Fatalf("expected 2s base interval, got %v", got)
	}

	// Failures 1 and 2 stay at the base interval.
	b.RecordFailure()
	b.RecordFailure()
	if got := b.Interval(); got != 2*time.Second {
		t.Errorf("expected 2s after 2 failures, got %v", got)
	}

	// Failure 3 crosses the first threshold.
	b.RecordFailure()
	if got := b.Interval(); got != 5*time.Second {
		t.Errorf("expected 5s after 3 failures, got %v", got)
	}

	b.RecordFailure()
	b.RecordFailure()
	if got := b.Interval(); got != 5*time.Second {
		t.Errorf("expected 5s after 5 failures, got %v", got)
	}

	// Failure 6 crosses the second threshold.
	b.RecordFailure()
	if got := b.Interval(); got != 10*time.Second {
		t.Errorf("expected 10s after 6 failures, got %v", got)
	}

	// Further failures stay at the slowest interval.
	for i := 0; i < 10; i++ {
		b.RecordFailure()
	}
	if got := b.Interval(); got != 10*time.Second {
		t.Errorf("expected 10s ceiling, got %v", got)
	}
}

func TestBackoffWarnsExactlyOnce(t *testing.T) {
	b := NewBackoff(DefaultBackoffConfig())

	warnings := 0
	for i := 0; i < 10; i++ {
		if b.RecordFailure() {
			warnings++
		}
	}
	if warnings != 1 {
		t.Errorf("expected exactly one warning per episode, got %d", warnings)
	}
	if b.ConsecutiveFailures() != 10 {
		t.Errorf("expected 10 consecutive failures, got %d", b.ConsecutiveFailures())
	}
}

func TestBackoffResetOnSuccess(t *testing.T) {
	b := NewBackoff(DefaultBackoffConfig())

	for i := 0; i < 6; i++ {
		b.RecordFailure()
	}
	if !b.Degraded() {
		t.Fatal("expected degraded after 6 failures")
	}

	b.RecordSuccess()
	if b.Degraded() {
		t.Error("expected recovery after success")
	}
	if got := b.Interval(); got != 2*time.Second {
		t.Errorf("expected base interval after success, got %v", got)
	}
	if b.ConsecutiveFailures() != 0 {
		t.Errorf("expected failure count reset, got %d", b.ConsecutiveFailures())
	}

	// A fresh degradation episode warns again.
	warned := false
	for i := 0; i < 3; i++ {
		if b.RecordFailure() {
			warned = true
		}
	}
	if !warned {
		t.Error("expected warning to re-arm after success")
	}
}

func TestBackoffConfigWithDefaults(t *testing.T) {
	got := BackoffConfig{}.WithDefaults()
	want := DefaultBackoffConfig()
	if got != want {
		t.Errorf("expected defaults %+v, got %+v", want, got)
	}

	// SlowestAfter must stay above SlowAfter.
	bad := BackoffConfig{SlowAfter: 5, SlowestAfter: 3}.WithDefaults()
	if bad.SlowestAfter <= bad.SlowAfter {
		t.Errorf("expected SlowestAfter above SlowAfter, got %d vs %d", bad.SlowestAfter, bad.SlowAfter)
	}
}
