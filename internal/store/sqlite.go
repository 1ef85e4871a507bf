//go:build sqlite
// +build sqlite

package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"remindbot/internal/reminder"
	logx "remindbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// sqliteBackend keeps the same full-snapshot contract as the file backend:
// Save() replaces both tables inside one transaction.
type sqliteBackend struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Backend, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(string(b)); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &sqliteBackend{db: db, log: log}, nil
}

func (b *sqliteBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *sqliteBackend) Load() (*Snapshot, error) {
	snap := &Snapshot{Version: snapshotVersion}

	rows, err := b.db.Query(`SELECT id, owner, task, raw_text, trigger_at, created_at,
		recurring, pattern, active, completed, snoozed FROM reminders`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var r reminder.Reminder
		var triggerAt, createdAt, pattern string
		if err := rows.Scan(&r.ID, &r.Owner, &r.Task, &r.RawText, &triggerAt, &createdAt,
			&r.Recurring, &pattern, &r.Active, &r.Completed, &r.Snoozed); err != nil {
			return nil, err
		}
		if r.TriggerAt, err = time.Parse(time.RFC3339Nano, triggerAt); err != nil {
			return nil, fmt.Errorf("reminder %s: bad trigger_at: %w", r.ID, err)
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("reminder %s: bad created_at: %w", r.ID, err)
		}
		if err := r.Pattern.UnmarshalText([]byte(pattern)); err != nil {
			return nil, fmt.Errorf("reminder %s: %w", r.ID, err)
		}
		snap.Reminders = append(snap.Reminders, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	prows, err := b.db.Query(`SELECT owner, joined_at, total, active, completed FROM profiles`)
	if err != nil {
		return nil, err
	}
	defer prows.Close()
	for prows.Next() {
		var p reminder.UserProfile
		var joinedAt string
		if err := prows.Scan(&p.Owner, &joinedAt, &p.TotalReminders, &p.ActiveReminders, &p.CompletedReminders); err != nil {
			return nil, err
		}
		if p.JoinedAt, err = time.Parse(time.RFC3339Nano, joinedAt); err != nil {
			return nil, fmt.Errorf("profile %s: bad joined_at: %w", p.Owner, err)
		}
		snap.Profiles = append(snap.Profiles, p)
	}
	return snap, prows.Err()
}

func (b *sqliteBackend) Save(snap *Snapshot) error {
	tx, err := b.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM reminders`); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM profiles`); err != nil {
		return err
	}

	for i := range snap.Reminders {
		r := &snap.Reminders[i]
		tag, err := r.Pattern.MarshalText()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO reminders(id, owner, task, raw_text, trigger_at, created_at,
			recurring, pattern, active, completed, snoozed) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
			r.ID, r.Owner, r.Task, r.RawText,
			r.TriggerAt.Format(time.RFC3339Nano), r.CreatedAt.Format(time.RFC3339Nano),
			r.Recurring, string(tag), r.Active, r.Completed, r.Snoozed); err != nil {
			return err
		}
	}
	for i := range snap.Profiles {
		p := &snap.Profiles[i]
		if _, err := tx.Exec(`INSERT INTO profiles(owner, joined_at, total, active, completed) VALUES(?,?,?,?,?)`,
			p.Owner, p.JoinedAt.Format(time.RFC3339Nano),
			p.TotalReminders, p.ActiveReminders, p.CompletedReminders); err != nil {
			return err
		}
	}

	return tx.Commit()
}
