package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	logx "remindbot/pkg/logx"
)

// fileBackend persists the snapshot as one JSON document.
//
// Writes go to <path>.tmp first and are renamed over the primary, so a
// failed save never damages the last good snapshot. Unreadable content is
// quarantined to <path>.corrupt.<timestamp> and replaced with empty
// defaults: availability over refusing to start.
type fileBackend struct {
	path string
	log  logx.Logger
}

func openFile(cfg Config, log logx.Logger) (Backend, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &fileBackend{path: path, log: log}, nil
}

func (b *fileBackend) Load() (*Snapshot, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return &Snapshot{Version: snapshotVersion}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &Snapshot{Version: snapshotVersion}, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		qpath := b.quarantine(data)
		b.log.Warn("snapshot unreadable, starting empty",
			logx.Err(err), logx.String("quarantine", qpath))
		return &Snapshot{Version: snapshotVersion}, nil
	}
	return &snap, nil
}

func (b *fileBackend) Save(snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("stage snapshot: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func (b *fileBackend) Close() error { return nil }

// quarantine copies the bad bytes aside and returns the quarantine path
// (empty if even that failed; the original error still wins the log line).
func (b *fileBackend) quarantine(data []byte) string {
	qpath := fmt.Sprintf("%s.corrupt.%s", b.path, time.Now().UTC().Format("20060102T150405"))
	if err := os.WriteFile(qpath, data, 0o600); err != nil {
		b.log.Error("quarantine write failed", logx.Err(err))
		return ""
	}
	return qpath
}
