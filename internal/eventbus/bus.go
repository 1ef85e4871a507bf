// Package eventbus carries in-memory reminder lifecycle signals between
// components that must not call each other directly (the scheduler fires,
// the stats and logging sides listen).
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Topic is the closed set of signals the bus carries.
type Topic string

const (
	TopicCreated     Topic = "reminder.created"
	TopicFired       Topic = "reminder.fired"
	TopicRescheduled Topic = "reminder.rescheduled"
	TopicCompleted   Topic = "reminder.completed"
	TopicSnoozed     Topic = "reminder.snoozed"
	TopicCancelled   Topic = "reminder.cancelled"
	TopicRetired     Topic = "reminder.retired"
)

// Event is one lifecycle signal.
//
// Contract:
//   - Publish MUST be non-blocking.
//   - Slow subscribers may drop events (bounded backpressure).
type Event struct {
	Topic      Topic
	Time       time.Time
	ReminderID string
	Owner      string
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns an in-memory fanout bus. It owns no background goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]chan Event{}}
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	seq  atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	// Snapshot subscribers so Publish doesn't hold locks while attempting sends.
	b.mu.RLock()
	chs := make([]chan Event, 0, len(b.subs))
	for _, ch := range b.subs {
		chs = append(chs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chs {
		// Non-blocking delivery. If a subscriber unsubscribes concurrently
		// and the channel closes, recover from the send panic.
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- e:
			default:
			}
		}()
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			// Closing is safe because Publish recovers from send panics.
			close(ch)
		})
	}
	return ch, unsub
}
