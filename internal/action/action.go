// Package action defines the closed set of button actions the bot emits
// and parses. Callback payloads cross the Telegram wire as strings, so the
// encoding is versioned by shape: verb, target kind, and target id, with
// the parser rejecting anything outside the known set.
package action

import (
	"fmt"
	"strings"
)

// Verb is what the user asked for by pressing a button.
type Verb string

const (
	VerbComplete Verb = "done"
	VerbSnooze   Verb = "snooze"
	VerbCancel   Verb = "cancel"
	VerbConfirm  Verb = "confirm"
	VerbDismiss  Verb = "dismiss"
)

// Target is the kind of object the verb applies to.
type Target string

const (
	TargetReminder Target = "rem"
	TargetAll      Target = "all"
)

// Action is one decoded button press.
type Action struct {
	Verb   Verb
	Target Target
	ID     string // reminder id; empty for TargetAll
}

const sep = ":"

var verbs = map[Verb]bool{
	VerbComplete: true,
	VerbSnooze:   true,
	VerbCancel:   true,
	VerbConfirm:  true,
	VerbDismiss:  true,
}

var targets = map[Target]bool{
	TargetReminder: true,
	TargetAll:      true,
}

// Encode renders the action as a callback payload.
func Encode(a Action) string {
	if a.Target == TargetAll {
		return string(a.Verb) + sep + string(a.Target)
	}
	return string(a.Verb) + sep + string(a.Target) + sep + a.ID
}

// Decode parses a callback payload. Unknown verbs, unknown targets and
// malformed shapes are errors; the router drops such presses.
func Decode(s string) (Action, error) {
	parts := strings.SplitN(s, sep, 3)
	if len(parts) < 2 {
		return Action{}, fmt.Errorf("malformed action %q", s)
	}
	a := Action{Verb: Verb(parts[0]), Target: Target(parts[1])}
	if !verbs[a.Verb] {
		return Action{}, fmt.Errorf("unknown action verb %q", parts[0])
	}
	if !targets[a.Target] {
		return Action{}, fmt.Errorf("unknown action target %q", parts[1])
	}
	switch a.Target {
	case TargetReminder:
		if len(parts) != 3 || parts[2] == "" {
			return Action{}, fmt.Errorf("action %q is missing a reminder id", s)
		}
		a.ID = parts[2]
	case TargetAll:
		if len(parts) == 3 && parts[2] != "" {
			return Action{}, fmt.Errorf("action %q carries an unexpected id", s)
		}
	}
	return a, nil
}
