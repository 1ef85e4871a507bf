// Package transport defines the platform-neutral surface between the bot
// core and a chat platform. The core speaks in owners (opaque string ids)
// and choices; the adapter owns the mapping to platform chats and buttons.
package transport

import "context"

type UpdateKind string

const (
	UpdateMessage  UpdateKind = "message"
	UpdateCallback UpdateKind = "callback"
)

// Update is one inbound event from the platform.
type Update struct {
	Kind     UpdateKind
	Message  *Message
	Callback *Callback
}

type Message struct {
	ID           int
	Owner        string // platform user id, stringified
	FromUsername string
	Text         string
}

// Callback is a button press. Data carries an encoded action payload.
type Callback struct {
	ID        string
	Owner     string
	MessageID int
	Data      string
}

// Choice is one button offered alongside a message.
type Choice struct {
	ID    string // encoded action payload, returned verbatim in Callback.Data
	Label string
}

// Notifier is the outbound half used by the scheduler and the bot core.
//
// SendChoice attaches buttons where the platform supports them; adapters
// without button support fall back to plain text and the user drives the
// same transitions through commands.
type Notifier interface {
	SendText(ctx context.Context, owner string, text string) error
	SendChoice(ctx context.Context, owner string, text string, choices []Choice) error
}

// Adapter is a full platform binding: inbound updates plus the Notifier
// surface and callback acknowledgement.
type Adapter interface {
	Notifier

	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error
	AnswerCallback(ctx context.Context, callbackID string, text string) error
}

// BotCommand is a single command menu entry.
type BotCommand struct {
	Command     string
	Description string
}

// CommandMenuUpdater is implemented by adapters that can publish a
// platform-side command menu.
type CommandMenuUpdater interface {
	UpdateMenuCommands(ctx context.Context, cmds []BotCommand) error
}
