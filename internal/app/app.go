// Package app wires the bot together: config, logging, store, transport,
// scheduler and the command layer, with start/stop lifecycle.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"remindbot/internal/ai"
	"remindbot/internal/bot"
	"remindbot/internal/config"
	"remindbot/internal/eventbus"
	"remindbot/internal/lifecycle"
	"remindbot/internal/scheduler"
	"remindbot/internal/session"
	"remindbot/internal/store"
	"remindbot/internal/transport/telegram"
	logx "remindbot/pkg/logx"
)

type App struct {
	log  logx.Logger
	logs *logx.Service

	cfgMgr   *config.Manager
	store    *store.Store
	adapter  *telegram.Adapter
	bot      *bot.Bot
	sched    *scheduler.Scheduler
	sessions *session.Manager
	bus      eventbus.Bus

	sweepEvery time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New loads the config and builds every component. Nothing runs yet.
func New(cfgPath string) (*App, error) {
	cfgMgr := config.NewManager(cfgPath, logx.NewConsole("info"))
	cfg, err := cfgMgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logs, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})

	busyTimeout, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(store.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	pollTimeout, _ := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	sendTimeout, _ := config.ParseDurationField("telegram.send_timeout", cfg.Telegram.SendTimeout)
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
		SendTimeout: sendTimeout,
		RatePerSec:  cfg.Telegram.RatePerSec,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("telegram adapter: %w", err)
	}

	aiTimeout, _ := config.ParseDurationField("ai.timeout", cfg.AI.Timeout)
	answerer, err := ai.New(ai.Config{
		Enabled: cfg.AI.Enabled,
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		Timeout: aiTimeout,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("ai fallback: %w", err)
	}

	ttl, _ := config.ParseDurationOrDefault("sessions.ttl", cfg.Sessions.TTL, 2*time.Minute)
	sessions := session.New(session.Config{TTL: ttl})

	interval, _ := config.ParseDurationOrDefault("scheduler.interval", cfg.Scheduler.Interval, 30*time.Second)
	snoozeFor, _ := config.ParseDurationOrDefault("bot.snooze_for", cfg.Bot.SnoozeFor, 10*time.Minute)

	bus := eventbus.New()
	life := lifecycle.New(st, log)
	clock := scheduler.SystemClock()
	sched := scheduler.New(scheduler.Config{Interval: interval}, st, life, adapter, bus, clock, log)
	b := bot.New(bot.Config{SnoozeFor: snoozeFor}, adapter, st, life, sessions, answerer, bus, clock, log)

	cfgMgr.SetLogger(log)
	return &App{
		log:        log.With(logx.String("component", "app")),
		logs:       logs,
		cfgMgr:     cfgMgr,
		store:      st,
		adapter:    adapter,
		bot:        b,
		sched:      sched,
		sessions:   sessions,
		bus:        bus,
		sweepEvery: ttl,
	}, nil
}

// Start launches everything. It returns once the bot is running.
func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.sched.Start(runCtx); err != nil {
		cancel()
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.bot.Run(runCtx); err != nil {
			a.log.Error("bot run failed", logx.Err(err))
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cfgMgr.Watch(runCtx); err != nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()
	a.watchReloads(runCtx)
	a.sweepSessions(runCtx)
	a.drainEvents(runCtx)

	// Best-effort: publish the command menu.
	menuCtx, menuCancel := context.WithTimeout(runCtx, 10*time.Second)
	defer menuCancel()
	if err := a.adapter.UpdateMenuCommands(menuCtx, bot.MenuCommands()); err != nil {
		a.log.Warn("menu update failed", logx.Err(err))
	}

	a.log.Info("started")
	return nil
}

// watchReloads re-applies the logging section when the config changes.
// Everything else requires a restart.
func (a *App) watchReloads(ctx context.Context) {
	sub := a.cfgMgr.Subscribe(1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgMgr.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case cfg, ok := <-sub:
				if !ok || cfg == nil {
					return
				}
				a.logs.Apply(logx.Config{
					Level:   cfg.Logging.Level,
					Console: cfg.Logging.Console,
					File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
				})
				a.log.Info("logging config re-applied", logx.String("level", cfg.Logging.Level))
			}
		}
	}()
}

func (a *App) sweepSessions(ctx context.Context) {
	every := a.sweepEvery
	if every <= 0 {
		every = time.Minute
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				if n := a.sessions.Sweep(now); n > 0 {
					a.log.Debug("expired sessions swept", logx.Int("count", n))
				}
			}
		}
	}()
}

// drainEvents keeps a debug-level audit trail of lifecycle signals.
func (a *App) drainEvents(ctx context.Context) {
	events, unsub := a.bus.Subscribe(64)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event",
					logx.String("topic", string(e.Topic)),
					logx.String("reminder", e.ReminderID),
					logx.String("owner", e.Owner))
			}
		}
	}()
}

// Stop shuts everything down and persists a final snapshot.
func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	a.sched.Stop(ctx)

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("shutdown timed out waiting for workers")
	}

	if err := a.store.Save(); err != nil {
		a.log.Error("final save failed", logx.Err(err))
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("store close failed", logx.Err(err))
	}
	a.log.Info("stopped")
	return a.logs.Close()
}
