package session

import (
	"testing"
	"time"
)

func TestStateRoundTrip(t *testing.T) {
	t.Parallel()
	m := New(Config{TTL: time.Minute})
	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

	if got := m.Get("7", now); got != StateIdle {
		t.Fatalf("fresh owner state = %d, want idle", got)
	}
	m.Set("7", StateAwaitingCancelAll, now)
	if got := m.Get("7", now.Add(30*time.Second)); got != StateAwaitingCancelAll {
		t.Fatalf("state = %d, want awaiting", got)
	}
	m.Clear("7")
	if got := m.Get("7", now); got != StateIdle {
		t.Fatalf("state after clear = %d, want idle", got)
	}
}

func TestExpiryReadsAsIdle(t *testing.T) {
	t.Parallel()
	m := New(Config{TTL: time.Minute})
	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

	m.Set("7", StateAwaitingCancelAll, now)
	if got := m.Get("7", now.Add(61*time.Second)); got != StateIdle {
		t.Fatalf("expired state = %d, want idle", got)
	}
}

func TestSettingIdleDropsEntry(t *testing.T) {
	t.Parallel()
	m := New(Config{TTL: time.Minute})
	now := time.Now()
	m.Set("7", StateAwaitingCancelAll, now)
	m.Set("7", StateIdle, now)
	if got := m.Sweep(now.Add(time.Hour)); got != 0 {
		t.Fatalf("sweep removed %d entries, want 0", got)
	}
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	t.Parallel()
	m := New(Config{TTL: time.Minute})
	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

	m.Set("old", StateAwaitingCancelAll, now)
	m.Set("new", StateAwaitingCancelAll, now.Add(50*time.Second))

	if got := m.Sweep(now.Add(70 * time.Second)); got != 1 {
		t.Fatalf("sweep removed %d, want 1", got)
	}
	if got := m.Get("new", now.Add(70*time.Second)); got != StateAwaitingCancelAll {
		t.Fatalf("fresh entry swept: state = %d", got)
	}
}
