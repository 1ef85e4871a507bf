// Package config loads and watches the bot configuration. JSON is the
// native format; YAML files are coerced to JSON first so both run through
// the same strict decoder. All durations are Go duration strings.
package config

import (
	"errors"
	"strings"
)

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Sessions  SessionsConfig  `json:"sessions,omitempty"`
	Bot       BotConfig       `json:"bot,omitempty"`
	AI        AIConfig        `json:"ai,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// PollTimeout / SendTimeout are Go duration strings (e.g. "10s").
	PollTimeout string `json:"poll_timeout,omitempty"`
	SendTimeout string `json:"send_timeout,omitempty"`
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig selects the snapshot backend.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./remindbot_store.json" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

type SchedulerConfig struct {
	// Interval between due-reminder scans, e.g. "30s".
	Interval string `json:"interval,omitempty"`
}

type SessionsConfig struct {
	// TTL after which a pending confirmation expires, e.g. "2m".
	TTL string `json:"ttl,omitempty"`
}

type BotConfig struct {
	// SnoozeFor is the default snooze push, e.g. "10m".
	SnoozeFor string `json:"snooze_for,omitempty"`
}

type AIConfig struct {
	Enabled bool   `json:"enabled"`
	APIKey  string `json:"api_key,omitempty"`
	Model   string `json:"model,omitempty"`
	Timeout string `json:"timeout,omitempty"`
}

// Validate checks the fields the app cannot start without and every
// duration string, so a broken config is rejected before it is committed.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("storage.path is required")
	}
	for _, f := range []struct{ path, raw string }{
		{"telegram.poll_timeout", c.Telegram.PollTimeout},
		{"telegram.send_timeout", c.Telegram.SendTimeout},
		{"storage.busy_timeout", c.Storage.BusyTimeout},
		{"scheduler.interval", c.Scheduler.Interval},
		{"sessions.ttl", c.Sessions.TTL},
		{"bot.snooze_for", c.Bot.SnoozeFor},
		{"ai.timeout", c.AI.Timeout},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}
	if c.AI.Enabled && strings.TrimSpace(c.AI.APIKey) == "" {
		return errors.New("ai.api_key is required when ai.enabled is true")
	}
	return nil
}
