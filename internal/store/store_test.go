package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"remindbot/internal/reminder"
	logx "remindbot/pkg/logx"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reminders.json")
	s, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, path
}

func testReminder(owner string, at time.Time) *reminder.Reminder {
	return &reminder.Reminder{
		ID:        reminder.NewID(),
		Owner:     owner,
		Task:      "water the plants",
		RawText:   "water the plants tomorrow",
		TriggerAt: at,
		Active:    true,
		CreatedAt: at.Add(-time.Hour),
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	s, path := newTestStore(t)

	at := time.Date(2025, time.March, 11, 9, 30, 15, 123456789, time.UTC)
	r := testReminder("42", at)
	r.Recurring = true
	r.Pattern = reminder.Pattern{Kind: reminder.PatternWeekly, Weekday: time.Friday}
	if err := s.Create(r); err != nil {
		t.Fatalf("Create: %v", err)
	}

	reopened, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok := reopened.FindByID(r.ID)
	if !ok {
		t.Fatalf("reminder %s missing after reload", r.ID)
	}
	if got.Owner != r.Owner || got.Task != r.Task || got.RawText != r.RawText {
		t.Fatalf("text fields changed: %+v", got)
	}
	if !got.TriggerAt.Equal(r.TriggerAt) || !got.CreatedAt.Equal(r.CreatedAt) {
		t.Fatalf("timestamps changed: trigger %v / %v, created %v / %v",
			got.TriggerAt, r.TriggerAt, got.CreatedAt, r.CreatedAt)
	}
	if got.Pattern != r.Pattern || got.Recurring != r.Recurring {
		t.Fatalf("pattern changed: %+v", got)
	}

	p, ok := reopened.Profile("42")
	if !ok {
		t.Fatal("profile missing after reload")
	}
	if p.TotalReminders != 1 || p.ActiveReminders != 1 || p.CompletedReminders != 0 {
		t.Fatalf("profile counters = %+v", p)
	}
}

func TestLoadCorruptSnapshotQuarantines(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "reminders.json")
	bad := []byte("{not json")
	if err := os.WriteFile(path, bad, 0o600); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	s, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open should not fail on corrupt content: %v", err)
	}
	if got := s.DueSnapshot(); len(got) != 0 {
		t.Fatalf("expected empty collection, got %d entries", len(got))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var quarantined string
	for _, e := range entries {
		if strings.Contains(e.Name(), ".corrupt.") {
			quarantined = filepath.Join(dir, e.Name())
		}
	}
	if quarantined == "" {
		t.Fatal("no quarantine artifact written")
	}
	data, err := os.ReadFile(quarantined)
	if err != nil {
		t.Fatalf("read quarantine: %v", err)
	}
	if string(data) != string(bad) {
		t.Fatalf("quarantine content = %q, want original bytes", data)
	}
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	if got := s.DueSnapshot(); len(got) != 0 {
		t.Fatalf("expected empty store, got %d", len(got))
	}
}

func TestCompleteUpdatesCounters(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	r := testReminder("7", time.Now().Add(time.Hour))
	if err := s.Create(r); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.Complete(r.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got.Active || !got.Completed {
		t.Fatalf("flags after complete: %+v", got)
	}
	p, _ := s.Profile("7")
	if p.ActiveReminders != 0 || p.CompletedReminders != 1 {
		t.Fatalf("counters = %+v", p)
	}
}

func TestSnoozeReactivates(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	r := testReminder("7", time.Now().Add(time.Hour))
	if err := s.Create(r); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Deactivate(r.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	until := time.Now().Add(10 * time.Minute).UTC()
	got, err := s.Snooze(r.ID, until)
	if err != nil {
		t.Fatalf("Snooze: %v", err)
	}
	if !got.Active || !got.Snoozed || !got.TriggerAt.Equal(until) {
		t.Fatalf("after snooze: %+v", got)
	}
	p, _ := s.Profile("7")
	if p.ActiveReminders != 1 {
		t.Fatalf("active counter = %d, want 1", p.ActiveReminders)
	}
}

func TestCancelAllByOwner(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	at := time.Now().Add(time.Hour)
	for i := 0; i < 3; i++ {
		if err := s.Create(testReminder("alice", at)); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if err := s.Create(testReminder("bob", at)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	n, err := s.CancelAllByOwner("alice")
	if err != nil {
		t.Fatalf("CancelAllByOwner: %v", err)
	}
	if n != 3 {
		t.Fatalf("cancelled = %d, want 3", n)
	}
	if got := s.ListActiveByOwner("alice"); len(got) != 0 {
		t.Fatalf("alice still has %d reminders", len(got))
	}
	if got := s.ListActiveByOwner("bob"); len(got) != 1 {
		t.Fatalf("bob lost reminders: %d", len(got))
	}
	p, _ := s.Profile("alice")
	if p.ActiveReminders != 0 {
		t.Fatalf("alice active counter = %d", p.ActiveReminders)
	}
}

func TestNotFoundIsReported(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	if _, err := s.Complete("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Complete error = %v, want ErrNotFound", err)
	}
	if err := s.CancelByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("CancelByID error = %v, want ErrNotFound", err)
	}
	if _, err := s.Snooze("missing", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Snooze error = %v, want ErrNotFound", err)
	}
}

// overlapBackend detects concurrent Save calls.
type overlapBackend struct {
	inFlight int32
	overlaps int32
}

func (b *overlapBackend) Load() (*Snapshot, error) { return &Snapshot{Version: snapshotVersion}, nil }

func (b *overlapBackend) Save(*Snapshot) error {
	if atomic.AddInt32(&b.inFlight, 1) > 1 {
		atomic.AddInt32(&b.overlaps, 1)
	}
	time.Sleep(time.Millisecond)
	atomic.AddInt32(&b.inFlight, -1)
	return nil
}

func (b *overlapBackend) Close() error { return nil }

func TestSavesAreSerialized(t *testing.T) {
	t.Parallel()
	backend := &overlapBackend{}
	s := New(backend, logx.Nop())
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Command-path saves and scheduler-tick saves can land at the same
	// time; the backend must only ever see one write in flight.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Create(testReminder("42", time.Now().Add(time.Hour))); err != nil {
				t.Errorf("Create: %v", err)
			}
		}()
	}
	wg.Wait()
	if n := atomic.LoadInt32(&backend.overlaps); n != 0 {
		t.Fatalf("observed %d overlapping backend writes", n)
	}
}

func TestFailedSaveKeepsLastGoodSnapshot(t *testing.T) {
	t.Parallel()
	s, path := newTestStore(t)
	if err := s.Create(testReminder("9", time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("Create: %v", err)
	}
	good, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	// Replacing the primary with a directory makes the rename fail.
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := s.Save(); err == nil {
		t.Fatal("expected save failure")
	}
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("staging artifact left behind after failed save")
	}

	// Restore and confirm the bytes we had are still a valid snapshot.
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove dir: %v", err)
	}
	if err := os.WriteFile(path, good, 0o600); err != nil {
		t.Fatalf("restore: %v", err)
	}
	reopened, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.DueSnapshot(); len(got) != 1 {
		t.Fatalf("restored snapshot has %d reminders, want 1", len(got))
	}
}
