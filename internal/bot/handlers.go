package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"remindbot/internal/action"
	"remindbot/internal/ai"
	"remindbot/internal/eventbus"
	"remindbot/internal/reminder"
	"remindbot/internal/session"
	"remindbot/internal/transport"
	logx "remindbot/pkg/logx"
)

func (b *Bot) handleMessage(ctx context.Context, m *transport.Message) {
	text := strings.TrimSpace(m.Text)
	if text == "" {
		return
	}
	now := b.clock.Now()

	// A pending "cancel everything?" prompt also accepts a typed answer,
	// for adapters without buttons.
	if b.sessions.Get(m.Owner, now) == session.StateAwaitingCancelAll {
		if b.resolveCancelAllByText(ctx, m.Owner, text) {
			return
		}
	}

	if cmd, args, ok := splitCommand(text); ok {
		b.handleCommand(ctx, m.Owner, cmd, args, now)
		return
	}
	b.createFromText(ctx, m.Owner, text, now)
}

func splitCommand(text string) (cmd string, args []string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	fields := strings.Fields(text)
	cmd = strings.TrimPrefix(fields[0], "/")
	// "/list@remindbot" in group chats
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), fields[1:], true
}

func (b *Bot) handleCommand(ctx context.Context, owner, cmd string, args []string, now time.Time) {
	switch cmd {
	case "start", "help":
		b.reply(ctx, owner, textHelp)
	case "remind":
		b.createFromText(ctx, owner, "remind "+strings.Join(args, " "), now)
	case "list":
		b.handleList(ctx, owner)
	case "done":
		b.handleDone(ctx, owner, args)
	case "snooze":
		b.handleSnooze(ctx, owner, args, now)
	case "cancel":
		b.handleCancel(ctx, owner, args)
	case "cancelall":
		b.handleCancelAll(ctx, owner, now)
	case "stats":
		b.handleStats(ctx, owner)
	default:
		b.reply(ctx, owner, "Unknown command. "+textHelp)
	}
}

func (b *Bot) createFromText(ctx context.Context, owner, text string, now time.Time) {
	draft, err := reminder.Parse(text, now)
	switch {
	case err == nil:
	case errors.Is(err, reminder.ErrPastTime):
		b.reply(ctx, owner, textPastTime)
		return
	case errors.Is(err, reminder.ErrEmptyInput):
		b.reply(ctx, owner, textNoTimeExpr)
		return
	case errors.Is(err, reminder.ErrNoTimeExpr):
		b.fallback(ctx, owner, text)
		return
	default:
		b.log.Warn("parse failed", logx.String("owner", owner), logx.Err(err))
		b.reply(ctx, owner, textNoTimeExpr)
		return
	}

	draft.Owner = owner
	if err := b.store.Create(draft); err != nil {
		b.log.Error("create failed", logx.String("owner", owner), logx.Err(err))
		b.reply(ctx, owner, "Something went wrong saving that. Try again.")
		return
	}
	b.publish(eventbus.TopicCreated, draft.ID, owner)
	b.log.Info("reminder created",
		logx.String("id", draft.ID),
		logx.String("owner", owner),
		logx.Bool("recurring", draft.Recurring))
	b.reply(ctx, owner, formatCreated(draft))
}

// fallback hands signal-free text to the AI assistant; without one the
// user gets static guidance.
func (b *Bot) fallback(ctx context.Context, owner, text string) {
	answer, err := b.answerer.Answer(ctx, text)
	if err != nil {
		if !errors.Is(err, ai.ErrDisabled) {
			b.log.Warn("ai fallback failed", logx.Err(err))
		}
		b.reply(ctx, owner, textNoTimeExpr)
		return
	}
	b.reply(ctx, owner, answer)
}

func (b *Bot) handleList(ctx context.Context, owner string) {
	rs := b.store.ListActiveByOwner(owner)
	if len(rs) == 0 {
		b.reply(ctx, owner, textEmptyList)
		return
	}
	b.reply(ctx, owner, formatList(rs))
}

func (b *Bot) handleStats(ctx context.Context, owner string) {
	p, ok := b.store.Profile(owner)
	if !ok {
		b.reply(ctx, owner, textStatsNone)
		return
	}
	b.reply(ctx, owner, formatStats(&p))
}

func (b *Bot) handleDone(ctx context.Context, owner string, args []string) {
	id, ok := b.resolveID(ctx, owner, args)
	if !ok {
		return
	}
	r, err := b.life.Complete(id)
	if err != nil {
		b.reply(ctx, owner, textUnknownID)
		return
	}
	b.publish(eventbus.TopicCompleted, id, owner)
	b.reply(ctx, owner, "Done: "+r.Task)
}

func (b *Bot) handleSnooze(ctx context.Context, owner string, args []string, now time.Time) {
	id, ok := b.resolveID(ctx, owner, args)
	if !ok {
		return
	}
	d := b.snoozeFor
	if len(args) >= 2 {
		minutes, err := strconv.Atoi(args[1])
		if err != nil || minutes <= 0 {
			b.reply(ctx, owner, "Snooze minutes must be a positive number.")
			return
		}
		d = time.Duration(minutes) * time.Minute
	}
	r, err := b.life.Snooze(id, d, now)
	if err != nil {
		b.reply(ctx, owner, textUnknownID)
		return
	}
	b.publish(eventbus.TopicSnoozed, id, owner)
	b.reply(ctx, owner, formatSnoozed(&r))
}

func (b *Bot) handleCancel(ctx context.Context, owner string, args []string) {
	id, ok := b.resolveID(ctx, owner, args)
	if !ok {
		return
	}
	if err := b.life.CancelOne(id); err != nil {
		b.reply(ctx, owner, textUnknownID)
		return
	}
	b.publish(eventbus.TopicCancelled, id, owner)
	b.reply(ctx, owner, "Cancelled.")
}

// handleCancelAll never destroys anything directly; it parks a pending
// confirmation in the session and asks.
func (b *Bot) handleCancelAll(ctx context.Context, owner string, now time.Time) {
	if len(b.store.ListActiveByOwner(owner)) == 0 {
		b.reply(ctx, owner, textNothingToDo)
		return
	}
	b.sessions.Set(owner, session.StateAwaitingCancelAll, now)
	choices := []transport.Choice{
		{ID: action.Encode(action.Action{Verb: action.VerbConfirm, Target: action.TargetAll}), Label: "Yes, cancel all"},
		{ID: action.Encode(action.Action{Verb: action.VerbDismiss, Target: action.TargetAll}), Label: "No, keep them"},
	}
	if err := b.adapter.SendChoice(ctx, owner, textConfirmAll, choices); err != nil {
		b.log.Warn("confirmation prompt failed", logx.String("owner", owner), logx.Err(err))
		b.sessions.Clear(owner)
	}
}

// resolveCancelAllByText consumes a typed yes/no for a pending cancel-all.
// It reports whether the message was handled.
func (b *Bot) resolveCancelAllByText(ctx context.Context, owner, text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes", "y":
		b.confirmCancelAll(ctx, owner)
		return true
	case "no", "n":
		b.dismissCancelAll(ctx, owner)
		return true
	}
	// Anything else falls through to normal handling and the prompt expires.
	return false
}

func (b *Bot) confirmCancelAll(ctx context.Context, owner string) {
	b.sessions.Clear(owner)
	n, err := b.life.CancelAll(owner)
	if err != nil {
		b.log.Error("cancel all failed", logx.String("owner", owner), logx.Err(err))
		b.reply(ctx, owner, "Something went wrong. Try again.")
		return
	}
	b.publish(eventbus.TopicCancelled, "", owner)
	b.reply(ctx, owner, "Cancelled "+plural(n, "reminder")+".")
}

func (b *Bot) dismissCancelAll(ctx context.Context, owner string) {
	b.sessions.Clear(owner)
	b.reply(ctx, owner, textKeptAll)
}

// resolveID maps a user-supplied id prefix to exactly one active reminder.
func (b *Bot) resolveID(ctx context.Context, owner string, args []string) (string, bool) {
	if len(args) == 0 {
		b.reply(ctx, owner, "Which one? Give me the id from /list.")
		return "", false
	}
	prefix := strings.ToLower(args[0])
	var match string
	for _, r := range b.store.ListActiveByOwner(owner) {
		if strings.HasPrefix(strings.ToLower(r.ID), prefix) {
			if match != "" {
				b.reply(ctx, owner, textAmbiguousID)
				return "", false
			}
			match = r.ID
		}
	}
	if match == "" {
		b.reply(ctx, owner, textUnknownID)
		return "", false
	}
	return match, true
}

func (b *Bot) handleCallback(ctx context.Context, cb *transport.Callback) {
	a, err := action.Decode(cb.Data)
	if err != nil {
		// Stale or foreign button; acknowledge silently.
		b.log.Debug("ignoring unknown callback", logx.String("data", cb.Data))
		_ = b.adapter.AnswerCallback(ctx, cb.ID, "")
		return
	}
	now := b.clock.Now()

	var ack string
	switch a.Target {
	case action.TargetAll:
		switch a.Verb {
		case action.VerbConfirm:
			b.confirmCancelAll(ctx, cb.Owner)
			ack = "Cancelled"
		case action.VerbDismiss:
			b.dismissCancelAll(ctx, cb.Owner)
			ack = "Kept"
		}
	case action.TargetReminder:
		ack = b.applyReminderAction(ctx, cb.Owner, a, now)
	}
	if err := b.adapter.AnswerCallback(ctx, cb.ID, ack); err != nil {
		b.log.Debug("callback ack failed", logx.Err(err))
	}
}

func (b *Bot) applyReminderAction(ctx context.Context, owner string, a action.Action, now time.Time) string {
	// Buttons travel with the notification, so the reminder may be gone or
	// owned by someone else by the time they are pressed.
	r, ok := b.store.FindByID(a.ID)
	if !ok || r.Owner != owner {
		b.reply(ctx, owner, textUnknownID)
		return ""
	}

	switch a.Verb {
	case action.VerbComplete:
		done, err := b.life.Complete(a.ID)
		if err != nil {
			b.reply(ctx, owner, textUnknownID)
			return ""
		}
		b.publish(eventbus.TopicCompleted, a.ID, owner)
		b.reply(ctx, owner, "Done: "+done.Task)
		return "Done"
	case action.VerbSnooze:
		snoozed, err := b.life.Snooze(a.ID, b.snoozeFor, now)
		if err != nil {
			b.reply(ctx, owner, textUnknownID)
			return ""
		}
		b.publish(eventbus.TopicSnoozed, a.ID, owner)
		b.reply(ctx, owner, formatSnoozed(&snoozed))
		return "Snoozed"
	case action.VerbCancel:
		if err := b.life.CancelOne(a.ID); err != nil {
			b.reply(ctx, owner, textUnknownID)
			return ""
		}
		b.publish(eventbus.TopicCancelled, a.ID, owner)
		b.reply(ctx, owner, "Cancelled.")
		return "Cancelled"
	}
	return ""
}
