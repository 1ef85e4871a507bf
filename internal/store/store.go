package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"remindbot/internal/reminder"
	logx "remindbot/pkg/logx"
)

var ErrNotFound = errors.New("reminder not found")

// snapshotVersion guards the persisted document schema.
const snapshotVersion = 1

// Snapshot is the full persisted document: both collections serialized
// together and replaced atomically on every save.
type Snapshot struct {
	Version   int                    `json:"version"`
	Reminders []reminder.Reminder    `json:"reminders"`
	Profiles  []reminder.UserProfile `json:"profiles"`
}

// Backend is the durable side of the store.
type Backend interface {
	Load() (*Snapshot, error)
	Save(*Snapshot) error
	Close() error
}

// Store is the single owner of the live reminder and profile collections.
// Every mutation goes through an explicit method here; nothing else holds
// references into the maps.
//
// Mutators that serve external requests (Create, Complete, Snooze, the
// cancels) persist before returning. Reschedule and Deactivate are the
// scheduler's batched path: the caller persists once per tick via Save().
type Store struct {
	mu sync.Mutex

	// saveMu orders backend writes: snapshots reach the backend in the
	// order they were taken, so a slow save can never land an older
	// snapshot over a newer one.
	saveMu sync.Mutex

	log     logx.Logger
	backend Backend

	reminders map[string]*reminder.Reminder
	profiles  map[string]*reminder.UserProfile
}

func New(backend Backend, log logx.Logger) *Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Store{
		log:       log,
		backend:   backend,
		reminders: map[string]*reminder.Reminder{},
		profiles:  map[string]*reminder.UserProfile{},
	}
}

// Load replaces the in-memory collections with the persisted snapshot.
// Backends report unreadable content by quarantining it and returning an
// empty snapshot, so startup never fails on corrupt state.
func (s *Store) Load() error {
	snap, err := s.backend.Load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders = make(map[string]*reminder.Reminder, len(snap.Reminders))
	for i := range snap.Reminders {
		r := snap.Reminders[i]
		s.reminders[r.ID] = &r
	}
	s.profiles = make(map[string]*reminder.UserProfile, len(snap.Profiles))
	for i := range snap.Profiles {
		p := snap.Profiles[i]
		s.profiles[p.Owner] = &p
	}
	s.log.Info("store loaded",
		logx.Int("reminders", len(s.reminders)),
		logx.Int("profiles", len(s.profiles)))
	return nil
}

// Save persists the full current collections. A failed save leaves the
// last good snapshot on disk untouched; the in-memory state keeps serving.
func (s *Store) Save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if err := s.backend.Save(snap); err != nil {
		s.log.Error("save failed, serving from memory", logx.Err(err))
		return err
	}
	return nil
}

func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) snapshotLocked() *Snapshot {
	snap := &Snapshot{Version: snapshotVersion}
	snap.Reminders = make([]reminder.Reminder, 0, len(s.reminders))
	for _, r := range s.reminders {
		snap.Reminders = append(snap.Reminders, *r)
	}
	snap.Profiles = make([]reminder.UserProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		snap.Profiles = append(snap.Profiles, *p)
	}
	sort.Slice(snap.Reminders, func(i, j int) bool { return snap.Reminders[i].ID < snap.Reminders[j].ID })
	sort.Slice(snap.Profiles, func(i, j int) bool { return snap.Profiles[i].Owner < snap.Profiles[j].Owner })
	return snap
}

// ---- Reads ----

// FindByID returns a copy of the live record. Mutating the copy does not
// touch the store; all writes go through the mutators below.
func (s *Store) FindByID(id string) (reminder.Reminder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok {
		return reminder.Reminder{}, false
	}
	return *r, true
}

// ListActiveByOwner returns the owner's active reminders ordered by trigger.
func (s *Store) ListActiveByOwner(owner string) []reminder.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []reminder.Reminder
	for _, r := range s.reminders {
		if r.Owner == owner && r.Active {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TriggerAt.Before(out[j].TriggerAt) })
	return out
}

// DueSnapshot returns copies of every reminder, for the scheduler to scan.
// The scheduler re-fetches each candidate by id before mutating.
func (s *Store) DueSnapshot() []reminder.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]reminder.Reminder, 0, len(s.reminders))
	for _, r := range s.reminders {
		out = append(out, *r)
	}
	return out
}

// Profile returns a copy of the owner's profile.
func (s *Store) Profile(owner string) (reminder.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[owner]
	if !ok {
		return reminder.UserProfile{}, false
	}
	return *p, true
}

// ---- Mutations (persisting) ----

// Create inserts a parsed draft and persists. The owner's profile is
// created on first contact.
func (s *Store) Create(r *reminder.Reminder) error {
	s.mu.Lock()
	cp := *r
	s.reminders[cp.ID] = &cp
	p := s.ensureProfileLocked(cp.Owner, cp.CreatedAt)
	p.TotalReminders++
	if cp.Active {
		p.ActiveReminders++
	}
	s.mu.Unlock()

	return s.Save()
}

// Complete marks a reminder done. For a recurring reminder this only
// acknowledges the fired instance; the schedule itself is untouched.
func (s *Store) Complete(id string) (reminder.Reminder, error) {
	s.mu.Lock()
	r, ok := s.reminders[id]
	if !ok {
		s.mu.Unlock()
		return reminder.Reminder{}, ErrNotFound
	}
	if r.Active {
		s.adjustActiveLocked(r.Owner, -1)
	}
	r.Active = false
	r.Completed = true
	if p, ok := s.profiles[r.Owner]; ok {
		p.CompletedReminders++
	}
	cp := *r
	s.mu.Unlock()

	return cp, s.Save()
}

// Snooze pushes the trigger to `until` and reactivates the reminder,
// allowing exactly one further firing of an already-fired one-shot.
func (s *Store) Snooze(id string, until time.Time) (reminder.Reminder, error) {
	s.mu.Lock()
	r, ok := s.reminders[id]
	if !ok {
		s.mu.Unlock()
		return reminder.Reminder{}, ErrNotFound
	}
	if !r.Active {
		s.adjustActiveLocked(r.Owner, 1)
	}
	r.TriggerAt = until
	r.Snoozed = true
	r.Active = true
	cp := *r
	s.mu.Unlock()

	return cp, s.Save()
}

// CancelByID removes a single reminder.
func (s *Store) CancelByID(id string) error {
	s.mu.Lock()
	r, ok := s.reminders[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if r.Active {
		s.adjustActiveLocked(r.Owner, -1)
	}
	delete(s.reminders, id)
	s.mu.Unlock()

	return s.Save()
}

// CancelAllByOwner removes every reminder of one owner and reports how
// many were dropped.
func (s *Store) CancelAllByOwner(owner string) (int, error) {
	s.mu.Lock()
	n := 0
	for id, r := range s.reminders {
		if r.Owner != owner {
			continue
		}
		if r.Active {
			s.adjustActiveLocked(owner, -1)
		}
		delete(s.reminders, id)
		n++
	}
	s.mu.Unlock()

	if n == 0 {
		return 0, nil
	}
	return n, s.Save()
}

// ---- Mutations (batched; caller persists via Save) ----

// Reschedule moves a recurring reminder to its next occurrence and clears
// the snooze mark. Part of the scheduler's tick; not persisted here.
func (s *Store) Reschedule(id string, next time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok {
		return ErrNotFound
	}
	r.TriggerAt = next
	r.Snoozed = false
	return nil
}

// Deactivate retires a reminder without removing it (fired one-shots,
// broken recurrence patterns). Part of the scheduler's tick; not
// persisted here.
func (s *Store) Deactivate(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok {
		return ErrNotFound
	}
	if r.Active {
		s.adjustActiveLocked(r.Owner, -1)
	}
	r.Active = false
	return nil
}

// ---- Profiles ----

func (s *Store) ensureProfileLocked(owner string, now time.Time) *reminder.UserProfile {
	if p, ok := s.profiles[owner]; ok {
		return p
	}
	p := &reminder.UserProfile{Owner: owner, JoinedAt: now}
	s.profiles[owner] = p
	return p
}

// adjustActiveLocked keeps the best-effort active counter in step with
// activity transitions. It never goes negative even if counters drifted.
func (s *Store) adjustActiveLocked(owner string, delta int) {
	p, ok := s.profiles[owner]
	if !ok {
		return
	}
	p.ActiveReminders += delta
	if p.ActiveReminders < 0 {
		p.ActiveReminders = 0
	}
}
