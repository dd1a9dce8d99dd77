package wizard

import "context"

// Button is one inline action button attached to an outbound message. Token
// is delivered back as the payload of a KindAction event when pressed.
type Button struct {
	Label string
	Token string
}

// Messenger is the delivery collaborator used by step handlers. Sends are
// fire-and-forget from the engine's perspective: the session transition is
// decided and persisted before delivery is attempted, and a delivery failure
// never rolls it back.
type Messenger interface {
	SendText(ctx context.Context, userID int64, text string, buttons ...Button) error
	EditLast(ctx context.Context, userID int64, text string, buttons ...Button) error
}
