// Package scheduler turns the clock into reminder deliveries. A periodic
// tick scans the store for due reminders, hands each one to the notifier,
// and settles its next state through the lifecycle manager.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"remindbot/internal/eventbus"
	"remindbot/internal/lifecycle"
	"remindbot/internal/reminder"
	"remindbot/internal/store"
	"remindbot/internal/transport"
	logx "remindbot/pkg/logx"
)

// Clock supplies the current time. Production uses the system clock; tests
// inject a fixed one to make ticks deterministic.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func SystemClock() Clock { return systemClock{} }

type Config struct {
	Interval time.Duration `json:"interval"`
}

const defaultInterval = 30 * time.Second

type Scheduler struct {
	mu sync.Mutex

	// tickMu serializes ticks. The cron runner starts each invocation in
	// its own goroutine, and a tick that outlasts the interval (slow or
	// rate-limited sends) must not race a second scan over the same due
	// reminders.
	tickMu sync.Mutex

	store  *store.Store
	life   *lifecycle.Manager
	notify transport.Notifier
	bus    eventbus.Bus
	clock  Clock
	log    logx.Logger

	interval time.Duration
	c        *cron.Cron
}

func New(cfg Config, st *store.Store, life *lifecycle.Manager, notify transport.Notifier, bus eventbus.Bus, clock Clock, log logx.Logger) *Scheduler {
	if clock == nil {
		clock = SystemClock()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scheduler{
		store:    st,
		life:     life,
		notify:   notify,
		bus:      bus,
		clock:    clock,
		log:      log.With(logx.String("component", "scheduler")),
		interval: interval,
	}
}

// Start registers the tick on a cron runner. Reminders due while the
// process was down fire on the first tick after startup.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}

	c := cron.New()
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := c.AddFunc(spec, func() {
		s.Tick(ctx, s.clock.Now())
	}); err != nil {
		return fmt.Errorf("register tick: %w", err)
	}
	c.Start()
	s.c = c
	s.log.Info("scheduler started", logx.Duration("interval", s.interval))

	// Catch up on anything that came due while we were down.
	go s.Tick(ctx, s.clock.Now())
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("scheduler stopped")
}

// Tick processes every reminder due at now. Each due reminder is delivered
// and settled independently; one failure never blocks the rest. State
// changes are persisted once at the end of the tick.
//
// Ticks never overlap: if the previous tick is still delivering, this
// invocation is a no-op and the backlog waits for the next one.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	if !s.tickMu.TryLock() {
		s.log.Debug("tick skipped, previous tick still running")
		return
	}
	defer s.tickMu.Unlock()

	dirty := false
	for _, r := range s.store.DueSnapshot() {
		if !r.Active || r.TriggerAt.After(now) {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		if s.fireOne(ctx, r.ID, now) {
			dirty = true
		}
	}
	if dirty {
		if err := s.store.Save(); err != nil {
			s.log.Error("tick persist failed", logx.Err(err))
		}
	}
}

// fireOne re-fetches the live record before acting: the user may have
// completed or cancelled it between the snapshot and now.
func (s *Scheduler) fireOne(ctx context.Context, id string, now time.Time) bool {
	r, ok := s.store.FindByID(id)
	if !ok || !r.Active || r.TriggerAt.After(now) {
		return false
	}

	if err := s.deliver(ctx, &r); err != nil {
		// Leave the trigger untouched; the next tick retries.
		s.log.Warn("delivery failed, will retry",
			logx.String("id", r.ID),
			logx.String("owner", r.Owner),
			logx.Err(err))
		return false
	}

	if err := s.life.Fire(r.ID, now); err != nil {
		s.log.Error("settling fired reminder failed",
			logx.String("id", r.ID),
			logx.Err(err))
		return false
	}

	s.publishOutcome(&r, now)
	s.log.Info("reminder fired",
		logx.String("id", r.ID),
		logx.String("owner", r.Owner),
		logx.Bool("recurring", r.Recurring))
	return true
}

func (s *Scheduler) deliver(ctx context.Context, r *reminder.Reminder) error {
	text := fmt.Sprintf("⏰ Reminder: %s", r.Task)
	if r.Recurring {
		text += fmt.Sprintf("\nRepeats %s.", r.Pattern)
	}
	return s.notify.SendChoice(ctx, r.Owner, text, DeliveryChoices(r.ID))
}

func (s *Scheduler) publishOutcome(r *reminder.Reminder, now time.Time) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{
		Topic:      eventbus.TopicFired,
		Time:       now,
		ReminderID: r.ID,
		Owner:      r.Owner,
	})
	after, ok := s.store.FindByID(r.ID)
	if !ok {
		return
	}
	topic := eventbus.TopicRetired
	if after.Active {
		topic = eventbus.TopicRescheduled
	}
	s.bus.Publish(eventbus.Event{
		Topic:      topic,
		Time:       now,
		ReminderID: r.ID,
		Owner:      r.Owner,
	})
}
