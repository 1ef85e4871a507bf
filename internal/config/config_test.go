package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "remindbot/pkg/logx"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validJSON = `{
  "telegram": {"token": "123:abc", "poll_timeout": "10s"},
  "logging": {"level": "info", "console": true, "file": {"enabled": false, "path": ""}},
  "storage": {"driver": "file", "path": "./store.json"},
  "scheduler": {"interval": "30s"},
  "sessions": {"ttl": "2m"},
  "bot": {"snooze_for": "10m"},
  "ai": {"enabled": false}
}`

func TestLoadJSON(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.json", validJSON), logx.Nop())
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Scheduler.Interval != "30s" {
		t.Fatalf("interval = %q", cfg.Scheduler.Interval)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get did not return the committed config")
	}
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	content := `
telegram:
  token: "123:abc"
logging:
  level: debug
  console: true
  file:
    enabled: true
    path: ./bot.log
storage:
  driver: file
  path: ./store.json
scheduler:
  interval: 15s
`
	m := NewManager(writeConfig(t, "config.yaml", content), logx.Nop())
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.File.Enabled {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if d, err := ParseDurationField("scheduler.interval", cfg.Scheduler.Interval); err != nil || d != 15*time.Second {
		t.Fatalf("interval = %v, %v", d, err)
	}
}

func TestRejections(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		content string
	}{
		{"unknown field", `{"telegram": {"token": "t"}, "storage": {"driver": "file", "path": "p"}, "surprise": true}`},
		{"trailing data", `{"telegram": {"token": "t"}, "storage": {"driver": "file", "path": "p"}}{"extra": 1}`},
		{"missing token", `{"telegram": {"token": ""}, "storage": {"driver": "file", "path": "p"}}`},
		{"missing storage path", `{"telegram": {"token": "t"}, "storage": {"driver": "file", "path": ""}}`},
		{"bad duration", `{"telegram": {"token": "t"}, "storage": {"driver": "file", "path": "p"}, "scheduler": {"interval": "soon"}}`},
		{"ai without key", `{"telegram": {"token": "t"}, "storage": {"driver": "file", "path": "p"}, "ai": {"enabled": true}}`},
		{"not json at all", `##`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewManager(writeConfig(t, "config.json", tc.content), logx.Nop())
			if _, err := m.Load(); err == nil {
				t.Fatal("expected load to fail")
			}
		})
	}
}

func TestReloadPublishes(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", validJSON)
	m := NewManager(path, logx.Nop())
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)

	// Same content: no publish.
	m.reload()
	select {
	case <-sub:
		t.Fatal("unchanged content was published")
	default:
	}

	updated := `{
  "telegram": {"token": "456:def"},
  "storage": {"driver": "file", "path": "./store.json"}
}`
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	m.reload()
	select {
	case cfg := <-sub:
		if cfg.Telegram.Token != "456:def" {
			t.Fatalf("published token = %q", cfg.Telegram.Token)
		}
	case <-time.After(time.Second):
		t.Fatal("reload did not publish")
	}

	// Broken rewrite keeps the committed config.
	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	m.reload()
	if got := m.Get(); got.Telegram.Token != "456:def" {
		t.Fatalf("broken reload replaced config: %+v", got)
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	if d, err := ParseDurationOrDefault("x", "", time.Minute); err != nil || d != time.Minute {
		t.Fatalf("empty = %v, %v", d, err)
	}
	if d, err := ParseDurationOrDefault("x", "45s", time.Minute); err != nil || d != 45*time.Second {
		t.Fatalf("explicit = %v, %v", d, err)
	}
	if _, err := ParseDurationOrDefault("x", "nope", time.Minute); err == nil {
		t.Fatal("expected error for garbage duration")
	}
}
