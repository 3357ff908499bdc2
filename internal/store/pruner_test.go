package store

import (
	"testing"
	"time"
)

func TestPrunerSweeps(t *testing.T) {
	st := NewStore(Config{MaxPointsPerSeries: 100, RetentionHours: 1})
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	st.SetNowFunc(func() time.Time { return base.Add(2 * time.Hour) })

	for i := 0; i < 5; i++ {
		st.Append("idle", sampleAt(base.Add(time.Duration(i)*time.Second), 100))
	}
	// Appends above already pruned against their own timestamps; the samples
	// are only stale relative to the store's now.
	if got := st.Len("idle"); got != 5 {
		t.Fatalf("expected 5 samples before sweep, got %d", got)
	}

	p := NewPruner(st, 10*time.Millisecond, nil)
	p.Start()
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for st.Len("idle") > 0 {
		select {
		case <-deadline:
			t.Fatalf("sweep did not drop stale samples, %d remain", st.Len("idle"))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestPrunerStartStopIdempotent(t *testing.T) {
	st := NewStore(DefaultConfig())
	p := NewPruner(st, 10*time.Millisecond, nil)

	p.Start()
	p.Start() // second call is a no-op
	p.Stop()
	p.Stop() // stopping again must not panic or block
}

func TestPrunerStopWithoutStart(t *testing.T) {
	st := NewStore(DefaultConfig())
	p := NewPruner(st, time.Hour, nil)
	p.Stop()
}
