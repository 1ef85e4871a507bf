// Package bot is the command layer: it routes inbound transport updates
// to reminder operations and renders the replies.
package bot

import (
	"context"
	"time"

	"remindbot/internal/ai"
	"remindbot/internal/eventbus"
	"remindbot/internal/lifecycle"
	"remindbot/internal/scheduler"
	"remindbot/internal/session"
	"remindbot/internal/store"
	"remindbot/internal/transport"
	logx "remindbot/pkg/logx"
)

type Config struct {
	SnoozeFor time.Duration `json:"snooze_for"`
}

const defaultSnooze = 10 * time.Minute

// Bot consumes transport updates and drives the reminder operations.
type Bot struct {
	adapter  transport.Adapter
	store    *store.Store
	life     *lifecycle.Manager
	sessions *session.Manager
	answerer ai.Answerer
	bus      eventbus.Bus
	clock    scheduler.Clock
	log      logx.Logger

	snoozeFor time.Duration
}

func New(cfg Config, adapter transport.Adapter, st *store.Store, life *lifecycle.Manager,
	sessions *session.Manager, answerer ai.Answerer, bus eventbus.Bus,
	clock scheduler.Clock, log logx.Logger) *Bot {
	if clock == nil {
		clock = scheduler.SystemClock()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	snoozeFor := cfg.SnoozeFor
	if snoozeFor <= 0 {
		snoozeFor = defaultSnooze
	}
	return &Bot{
		adapter:   adapter,
		store:     st,
		life:      life,
		sessions:  sessions,
		answerer:  answerer,
		bus:       bus,
		clock:     clock,
		log:       log.With(logx.String("component", "bot")),
		snoozeFor: snoozeFor,
	}
}

// Run starts the adapter and dispatches updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	updates := make(chan transport.Update, 64)
	if err := b.adapter.Start(ctx, updates); err != nil {
		return err
	}
	b.log.Info("bot started")

	for {
		select {
		case <-ctx.Done():
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := b.adapter.Stop(stopCtx)
			cancel()
			b.log.Info("bot stopped")
			return err
		case u := <-updates:
			b.dispatch(ctx, u)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, u transport.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic in update handler", logx.Any("panic", r))
		}
	}()

	switch u.Kind {
	case transport.UpdateMessage:
		if u.Message != nil {
			b.handleMessage(ctx, u.Message)
		}
	case transport.UpdateCallback:
		if u.Callback != nil {
			b.handleCallback(ctx, u.Callback)
		}
	}
}

func (b *Bot) reply(ctx context.Context, owner, text string) {
	if err := b.adapter.SendText(ctx, owner, text); err != nil {
		b.log.Warn("reply failed", logx.String("owner", owner), logx.Err(err))
	}
}

func (b *Bot) publish(topic eventbus.Topic, id, owner string) {
	if b.bus == nil {
		return
	}
	b.bus.Publish(eventbus.Event{
		Topic:      topic,
		Time:       b.clock.Now(),
		ReminderID: id,
		Owner:      owner,
	})
}

// MenuCommands is the platform command menu published on startup.
func MenuCommands() []transport.BotCommand {
	return []transport.BotCommand{
		{Command: "list", Description: "Show active reminders"},
		{Command: "done", Description: "Mark a reminder done"},
		{Command: "snooze", Description: "Push a reminder back"},
		{Command: "cancel", Description: "Drop one reminder"},
		{Command: "cancelall", Description: "Drop all reminders"},
		{Command: "stats", Description: "Your totals"},
		{Command: "help", Description: "How to talk to me"},
	}
}
