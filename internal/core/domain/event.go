package domain

import "time"

// InboundEvent is a new message delivered by the chat transport.
type InboundEvent struct {
	PeerID     int64
	FromID     UserID
	Text       string
	Payload    string
	ReceivedAt time.Time
}

// Reply is an outbound message with the keyboard for the actor's role.
type Reply struct {
	PeerID   int64
	Text     string
	Keyboard Keyboard
}

type ButtonColor string

const (
	ColorPrimary   ButtonColor = "primary"
	ColorSecondary ButtonColor = "secondary"
	ColorPositive  ButtonColor = "positive"
	ColorNegative  ButtonColor = "negative"
)

type Button struct {
	Label  string
	Action ActionKind
	Color  ButtonColor
}

// Keyboard is a persistent button layout, one slice per row.
type Keyboard struct {
	Rows [][]Button
}

// Actions lists every action reachable from the keyboard in row order.
func (k Keyboard) Actions() []ActionKind {
	var actions []ActionKind
	for _, row := range k.Rows {
		for _, b := range row {
			actions = append(actions, b.Action)
		}
	}
	return actions
}
