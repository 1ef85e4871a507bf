// Package lifecycle drives reminder state transitions. It is the only
// place that decides what happens to a reminder after it fires, and it
// fronts the store for user-initiated transitions so every path gets the
// same logging and validation.
package lifecycle

import (
	"fmt"
	"time"

	"remindbot/internal/reminder"
	"remindbot/internal/store"
	logx "remindbot/pkg/logx"
)

// ErrNotFound is returned for transitions against unknown ids.
var ErrNotFound = store.ErrNotFound

// Manager applies transitions to the owned store.
type Manager struct {
	store *store.Store
	log   logx.Logger
}

func New(st *store.Store, log logx.Logger) *Manager {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Manager{store: st, log: log.With(logx.String("component", "lifecycle"))}
}

// Fire settles a reminder that has just been delivered. One-shots retire;
// recurring reminders move to their next occurrence past now. Both paths
// mutate without persisting, the scheduler saves once per tick.
//
// A recurring reminder whose pattern cannot be advanced is retired instead
// of being retried forever.
func (m *Manager) Fire(id string, now time.Time) error {
	r, ok := m.store.FindByID(id)
	if !ok {
		return ErrNotFound
	}
	if !r.Active {
		return nil
	}
	// A trigger already in the future means something else moved the
	// reminder since delivery started (a snooze, an earlier settle);
	// advancing again would skip an occurrence.
	if r.TriggerAt.After(now) {
		return nil
	}

	if !r.Recurring {
		return m.store.Deactivate(id)
	}

	next, err := reminder.NextOccurrence(r.Pattern, r.TriggerAt, now)
	if err != nil {
		m.log.Warn("retiring reminder with unusable pattern",
			logx.String("id", id),
			logx.String("pattern", r.Pattern.String()),
			logx.Err(err))
		return m.store.Deactivate(id)
	}
	return m.store.Reschedule(id, next)
}

// Complete acknowledges a reminder the user is done with. Completing a
// recurring reminder acknowledges the fired instance only; the schedule
// keeps running until the user cancels it.
func (m *Manager) Complete(id string) (reminder.Reminder, error) {
	r, err := m.store.Complete(id)
	if err != nil {
		return reminder.Reminder{}, err
	}
	m.log.Info("reminder completed",
		logx.String("id", id),
		logx.String("owner", r.Owner),
		logx.Bool("recurring", r.Recurring))
	return r, nil
}

// Snooze pushes a reminder out by d from now. Snoozing an already-fired
// one-shot reactivates it for exactly one more firing.
func (m *Manager) Snooze(id string, d time.Duration, now time.Time) (reminder.Reminder, error) {
	if d <= 0 {
		return reminder.Reminder{}, fmt.Errorf("snooze duration must be positive, got %s", d)
	}
	r, err := m.store.Snooze(id, now.Add(d))
	if err != nil {
		return reminder.Reminder{}, err
	}
	m.log.Info("reminder snoozed",
		logx.String("id", id),
		logx.String("owner", r.Owner),
		logx.Time("until", r.TriggerAt))
	return r, nil
}

// CancelOne removes a single reminder permanently.
func (m *Manager) CancelOne(id string) error {
	if err := m.store.CancelByID(id); err != nil {
		return err
	}
	m.log.Info("reminder cancelled", logx.String("id", id))
	return nil
}

// CancelAll removes every reminder of one owner and reports the count.
func (m *Manager) CancelAll(owner string) (int, error) {
	n, err := m.store.CancelAllByOwner(owner)
	if err != nil {
		return n, err
	}
	if n > 0 {
		m.log.Info("reminders cancelled",
			logx.String("owner", owner),
			logx.Int("count", n))
	}
	return n, nil
}
