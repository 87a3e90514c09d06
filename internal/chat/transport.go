// Package chat routes transport updates (commands, button presses, free
// text) to the card and form services and renders reply messages. It is
// transport-agnostic: anything that can deliver Updates and render Messages
// can front the bot.
package chat

import (
	"context"

	"github.com/google/uuid"
)

// Update is one inbound event. Exactly one of Command, Callback, or Text is
// meaningful: a command (with optional arguments), a button press carrying
// its opaque payload, or a plain text message.
type Update struct {
	// ID is assigned by the transport and used for log correlation.
	ID     uuid.UUID
	UserID int64

	Command string // command name without the leading slash
	Args    string // raw argument string following the command

	Callback string // payload of the pressed button

	Text string // plain text message
}

// Button is one inline choice; Data is the opaque payload echoed back in
// the resulting Update.
type Button struct {
	Label string
	Data  string
}

// Message is one outbound render request.
type Message struct {
	Text string
	// Keyboard holds button rows rendered under the text.
	Keyboard [][]Button
	// Edit asks the transport to replace the message whose button produced
	// the current update instead of sending a new one.
	Edit bool
	// Sensitive marks that the next user input is a secret; transports
	// should mask its entry where they can.
	Sensitive bool
}

// HandleFunc processes one update and returns the reply, or nil when the
// update warrants none.
type HandleFunc func(ctx context.Context, up Update) *Message

// Transport owns the receive loop of one chat frontend. Run blocks, calling
// handle for every inbound update and rendering each reply, until the context
// is cancelled or the input source is exhausted.
type Transport interface {
	Run(ctx context.Context, handle HandleFunc) error
}
