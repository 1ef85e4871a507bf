package reminder

import (
	"time"

	"github.com/google/uuid"
)

// Reminder is a scheduled task owned by a single user.
//
// TriggerAt is always an absolute UTC instant once persisted. The parser
// guarantees a future trigger for non-recurring reminders; after that the
// record is mutated only through store/lifecycle operations.
type Reminder struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Task      string    `json:"task"`
	RawText   string    `json:"raw_text"`
	TriggerAt time.Time `json:"trigger_at"`
	Recurring bool      `json:"recurring"`
	Pattern   Pattern   `json:"pattern"`
	Active    bool      `json:"active"`
	Completed bool      `json:"completed"`
	Snoozed   bool      `json:"snoozed"`
	CreatedAt time.Time `json:"created_at"`
}

// NewID returns a fresh collision-resistant reminder id.
func NewID() string { return uuid.NewString() }

// UserProfile tracks per-owner counters.
//
// ActiveReminders is kept in sync at every transition that changes activity.
// A crash between a counter update and the following save can leave it
// slightly off; that is accepted drift, not corruption.
type UserProfile struct {
	Owner              string    `json:"owner"`
	JoinedAt           time.Time `json:"joined_at"`
	TotalReminders     int       `json:"total_reminders"`
	ActiveReminders    int       `json:"active_reminders"`
	CompletedReminders int       `json:"completed_reminders"`
}
