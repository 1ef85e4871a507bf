package store

import (
	"errors"
	"strings"
	"time"

	logx "remindbot/pkg/logx"
)

// Config selects the durable backend.
//
// Driver values:
//   - "file" (default): single JSON snapshot, staged write + atomic rename
//   - "sqlite": SQLite database file (optional build tag)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// OpenBackend initializes the configured backend.
func OpenBackend(cfg Config, log logx.Logger) (Backend, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + cfg.Driver)
	}
}

// Open is the convenience path used by app wiring: backend + loaded store.
func Open(cfg Config, log logx.Logger) (*Store, error) {
	backend, err := OpenBackend(cfg, log)
	if err != nil {
		return nil, err
	}
	s := New(backend, log)
	if err := s.Load(); err != nil {
		_ = backend.Close()
		return nil, err
	}
	return s, nil
}
