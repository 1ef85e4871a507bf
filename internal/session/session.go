// Package session tracks short-lived per-owner conversation state, such
// as a pending "cancel everything?" confirmation. State lives in memory
// only; a restart simply forgets pending prompts.
package session

import (
	"sync"
	"time"
)

// State is what the bot is currently waiting for from an owner.
type State uint8

const (
	StateIdle State = iota
	StateAwaitingCancelAll
)

type Config struct {
	TTL time.Duration `json:"ttl"`
}

const defaultTTL = 2 * time.Minute

type entry struct {
	state   State
	touched time.Time
}

// Manager holds the per-owner state map. Entries expire after the TTL so
// an abandoned confirmation cannot trap a later unrelated "yes".
type Manager struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]entry
}

func New(cfg Config) *Manager {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Manager{ttl: ttl, sessions: map[string]entry{}}
}

// Get returns the owner's current state, treating expired entries as idle.
func (m *Manager) Get(owner string, now time.Time) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[owner]
	if !ok {
		return StateIdle
	}
	if now.Sub(e.touched) > m.ttl {
		delete(m.sessions, owner)
		return StateIdle
	}
	return e.state
}

func (m *Manager) Set(owner string, s State, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s == StateIdle {
		delete(m.sessions, owner)
		return
	}
	m.sessions[owner] = entry{state: s, touched: now}
}

func (m *Manager) Clear(owner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, owner)
}

// Sweep drops expired entries and reports how many were removed. The
// scheduler tick calls this so the map cannot grow unbounded.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for owner, e := range m.sessions {
		if now.Sub(e.touched) > m.ttl {
			delete(m.sessions, owner)
			n++
		}
	}
	return n
}
