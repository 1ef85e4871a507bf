package bot

import (
	"fmt"
	"strings"

	"remindbot/internal/reminder"
)

const (
	textHelp = `I turn plain language into reminders.

Examples:
  remind me to call mom tomorrow at 5pm
  take meds every day at 9am
  pay rent every month on the 1st
  stretch in 30 minutes

Commands:
  /list — your active reminders
  /done <id> — mark one done
  /snooze <id> [minutes] — push one back
  /cancel <id> — drop one
  /cancelall — drop everything (asks first)
  /stats — your totals`

	textNoTimeExpr = "I couldn't find a time in that. Try something like " +
		"\"remind me to call mom tomorrow at 5pm\" or /help for more examples."
	textPastTime    = "That time is already in the past. Give me a future one."
	textEmptyList   = "No active reminders. Send me one, e.g. \"water plants tomorrow at 8am\"."
	textUnknownID   = "I don't have an active reminder matching that id. /list shows them."
	textAmbiguousID = "That id prefix matches more than one reminder. Use a few more characters."
	textConfirmAll  = "Cancel ALL of your reminders?"
	textNothingToDo = "You have no reminders to cancel."
	textKeptAll     = "Okay, keeping everything."
	textStatsNone   = "No stats yet. Create your first reminder to get started."
)

const timeLayout = "Mon, 02 Jan 2006 15:04 MST"

func formatCreated(r *reminder.Reminder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Got it. I'll remind you to %q on %s.", r.Task, r.TriggerAt.Format(timeLayout))
	if r.Recurring {
		fmt.Fprintf(&b, "\nRepeats %s.", r.Pattern)
	}
	return b.String()
}

func formatList(rs []reminder.Reminder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your active reminders (%d):\n", len(rs))
	for _, r := range rs {
		fmt.Fprintf(&b, "\n[%s] %s\n    %s", shortID(r.ID), r.Task, r.TriggerAt.Format(timeLayout))
		if r.Recurring {
			fmt.Fprintf(&b, " (repeats %s)", r.Pattern)
		}
		if r.Snoozed {
			b.WriteString(" (snoozed)")
		}
	}
	return b.String()
}

func formatStats(p *reminder.UserProfile) string {
	return fmt.Sprintf("Since %s:\n  created: %d\n  active: %d\n  completed: %d",
		p.JoinedAt.Format("02 Jan 2006"),
		p.TotalReminders, p.ActiveReminders, p.CompletedReminders)
}

func formatSnoozed(r *reminder.Reminder) string {
	return fmt.Sprintf("Snoozed %q until %s.", r.Task, r.TriggerAt.Format(timeLayout))
}

// shortID is the prefix shown in lists; long enough to stay unambiguous
// for any realistic number of reminders per owner.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
