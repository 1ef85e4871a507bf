// Package telegram binds the transport surface to Telegram via telebot
// long polling. Owners are Telegram user ids in decimal string form; the
// bot only ever talks to the private chat of the owner.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"remindbot/internal/transport"
	logx "remindbot/pkg/logx"
)

type Config struct {
	Token       string        `json:"token"`
	PollTimeout time.Duration `json:"poll_timeout"`
	RatePerSec  int           `json:"rate_per_sec"`
	SendTimeout time.Duration `json:"send_timeout"`
}

type Adapter struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot

	// limiter paces all outbound sends; Telegram throttles bots hard.
	limiter *rate.Limiter

	out     atomic.Value // chan<- transport.Update
	runMu   sync.Mutex
	running bool

	// droppedUpdates counts inbound updates dropped because the consumer
	// was slower than the poll loop; reported on Stop, not per update.
	droppedUpdates uint64
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: pollTimeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 25
	}
	a := &Adapter{
		cfg:     cfg,
		log:     log.With(logx.String("component", "telegram")),
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
	// Initialize atomic.Value with a stable dynamic type.
	var nilOut chan<- transport.Update
	a.out.Store(nilOut)
	a.registerHandlers()
	return a, nil
}

func (a *Adapter) registerHandlers() {
	a.bot.Handle(tele.OnText, func(c tele.Context) error {
		m := c.Message()
		if m == nil || m.Sender == nil {
			return nil
		}
		a.sendUpdate(transport.Update{
			Kind: transport.UpdateMessage,
			Message: &transport.Message{
				ID:           m.ID,
				Owner:        strconv.FormatInt(m.Sender.ID, 10),
				FromUsername: m.Sender.Username,
				Text:         m.Text,
			},
		})
		return nil
	})

	a.bot.Handle(tele.OnCallback, func(c tele.Context) error {
		cb := c.Callback()
		m := c.Message()
		if cb == nil || cb.Sender == nil || m == nil {
			return nil
		}
		a.sendUpdate(transport.Update{
			Kind: transport.UpdateCallback,
			Callback: &transport.Callback{
				ID:        cb.ID,
				Owner:     strconv.FormatInt(cb.Sender.ID, 10),
				MessageID: m.ID,
				Data:      strings.TrimSpace(cb.Data),
			},
		})
		return nil
	})
}

func (a *Adapter) sendUpdate(up transport.Update) {
	out, _ := a.out.Load().(chan<- transport.Update)
	if out == nil {
		return
	}
	select {
	case out <- up:
	default:
		atomic.AddUint64(&a.droppedUpdates, 1)
	}
}

func (a *Adapter) Start(ctx context.Context, out chan<- transport.Update) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if a.running {
		return nil
	}
	a.running = true
	a.out.Store(out)

	go func() {
		<-ctx.Done()
		a.bot.Stop()
	}()
	go func() {
		a.log.Info("polling started")
		a.bot.Start() // blocks until Stop
		a.log.Info("polling stopped")
	}()
	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	wasRunning := a.running
	a.running = false
	var nilOut chan<- transport.Update
	a.out.Store(nilOut)
	a.runMu.Unlock()

	if !wasRunning {
		return nil
	}
	if n := atomic.SwapUint64(&a.droppedUpdates, 0); n > 0 {
		a.log.Warn("inbound updates dropped", logx.Int64("count", int64(n)))
	}
	// telebot's Stop is expected to be fast; don't block shutdown on a
	// hanging long poll.
	done := make(chan struct{})
	go func() {
		a.bot.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("telegram stop timed out")
	}
	return nil
}

func (a *Adapter) SendText(ctx context.Context, owner, text string) error {
	return a.send(ctx, owner, text, nil)
}

// SendChoice attaches an inline keyboard. If Telegram rejects the markup
// the message is retried as plain text so the notification still lands;
// the user can fall back to commands.
func (a *Adapter) SendChoice(ctx context.Context, owner, text string, choices []transport.Choice) error {
	// Raw InlineButtons: the callback data must round-trip verbatim, so we
	// avoid telebot's unique-handler framing.
	row := make([]tele.InlineButton, 0, len(choices))
	for _, c := range choices {
		row = append(row, tele.InlineButton{Text: c.Label, Data: c.ID})
	}
	markup := &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{row}}

	if err := a.send(ctx, owner, text, markup); err != nil {
		a.log.Warn("choice send failed, retrying as plain text", logx.Err(err))
		return a.send(ctx, owner, choiceFallbackText(text, choices), nil)
	}
	return nil
}

// choiceFallbackText renders the buttons into the message body so a
// degraded send still carries every option the keyboard would have
// offered, identifiers included.
func choiceFallbackText(text string, choices []transport.Choice) string {
	if len(choices) == 0 {
		return text
	}
	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\nOptions:")
	for _, c := range choices {
		fmt.Fprintf(&b, "\n%s  [%s]", c.Label, c.ID)
	}
	return b.String()
}

func (a *Adapter) send(ctx context.Context, owner, text string, markup *tele.ReplyMarkup) error {
	chat, err := chatFor(owner)
	if err != nil {
		return err
	}
	timeout := a.cfg.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}

	opt := &tele.SendOptions{}
	if markup != nil {
		opt.ReplyMarkup = markup
	}
	for i, chunk := range splitText(text, telegramTextLimit) {
		if i > 0 {
			opt = &tele.SendOptions{}
		}
		if _, err := a.bot.Send(chat, chunk, opt); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.bot.Respond(&tele.Callback{ID: callbackID}, &tele.CallbackResponse{Text: text})
}

// UpdateMenuCommands publishes the command menu (setMyCommands).
func (a *Adapter) UpdateMenuCommands(ctx context.Context, cmds []transport.BotCommand) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	out := make([]tele.Command, 0, len(cmds))
	for _, c := range cmds {
		if c.Command == "" {
			continue
		}
		d := c.Description
		if d == "" {
			d = c.Command
		}
		out = append(out, tele.Command{Text: c.Command, Description: d})
	}
	return a.bot.SetCommands(out)
}

func chatFor(owner string) (*tele.Chat, error) {
	id, err := strconv.ParseInt(owner, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("owner %q is not a telegram chat id: %w", owner, err)
	}
	return &tele.Chat{ID: id}, nil
}

const telegramTextLimit = 4000

// splitText chunks long messages, preferring newline boundaries.
func splitText(s string, limit int) []string {
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}
	var out []string
	start := 0
	for start < len(rs) {
		end := start + limit
		if end > len(rs) {
			end = len(rs)
		} else {
			for i := end - 1; i > start+limit/3; i-- {
				if rs[i] == '\n' {
					end = i + 1
					break
				}
			}
		}
		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))
		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}
