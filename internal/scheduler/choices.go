package scheduler

import (
	"remindbot/internal/action"
	"remindbot/internal/transport"
)

// DeliveryChoices builds the buttons attached to a fired reminder.
func DeliveryChoices(id string) []transport.Choice {
	return []transport.Choice{
		{
			ID:    action.Encode(action.Action{Verb: action.VerbComplete, Target: action.TargetReminder, ID: id}),
			Label: "✅ Done",
		},
		{
			ID:    action.Encode(action.Action{Verb: action.VerbSnooze, Target: action.TargetReminder, ID: id}),
			Label: "😴 Snooze",
		},
	}
}
