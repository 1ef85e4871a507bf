// Package ai answers free-form messages that the time-expression parser
// could not make sense of. It is strictly a fallback; nothing in the
// reminder pipeline depends on it being configured.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-deepseek/deepseek"
	"github.com/go-deepseek/deepseek/request"

	logx "remindbot/pkg/logx"
)

// ErrDisabled is returned when no provider is configured.
var ErrDisabled = errors.New("ai assistant is not configured")

// Answerer produces a reply for an unparseable user message.
type Answerer interface {
	Answer(ctx context.Context, text string) (string, error)
}

type Config struct {
	Enabled bool          `json:"enabled"`
	APIKey  string        `json:"api_key"`
	Model   string        `json:"model"`
	Timeout time.Duration `json:"timeout"`
}

const (
	defaultModel   = "deepseek-chat"
	defaultTimeout = 20 * time.Second

	systemPrompt = "You are the assistant behind a reminder bot. The user sent a message " +
		"the bot could not turn into a reminder. Answer briefly and helpfully. If the " +
		"message looks like a reminder attempt, suggest a phrasing the bot understands, " +
		"for example \"remind me to call mom tomorrow at 5pm\"."
)

// New returns the configured provider, or a disabled stub when the
// feature is off or the key is missing.
func New(cfg Config, log logx.Logger) (Answerer, error) {
	if !cfg.Enabled || strings.TrimSpace(cfg.APIKey) == "" {
		return disabled{}, nil
	}
	client, err := deepseek.NewClient(cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("create deepseek client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &deepseekAnswerer{
		client:  client,
		model:   model,
		timeout: timeout,
		log:     log.With(logx.String("component", "ai")),
	}, nil
}

type disabled struct{}

func (disabled) Answer(context.Context, string) (string, error) {
	return "", ErrDisabled
}

type deepseekAnswerer struct {
	client  deepseek.Client
	model   string
	timeout time.Duration
	log     logx.Logger
}

func (a *deepseekAnswerer) Answer(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	started := time.Now()
	resp, err := a.client.CallChatCompletionsChat(ctx, &request.ChatCompletionsRequest{
		Model: a.model,
		Messages: []*request.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("deepseek request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("deepseek returned no choices")
	}
	a.log.Debug("fallback answered",
		logx.Duration("took", time.Since(started)),
		logx.Int("prompt_tokens", resp.Usage.PromptTokens),
		logx.Int("completion_tokens", resp.Usage.CompletionTokens))
	return resp.Choices[0].Message.Content, nil
}
