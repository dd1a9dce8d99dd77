package wizard

// EventKind discriminates inbound interaction payloads.
type EventKind string

const (
	// KindText is a plain text message from the user.
	KindText EventKind = "text"
	// KindAction is a discrete action token, typically an inline button press.
	KindAction EventKind = "action"
	// KindPhoto carries the file identifier of an uploaded photo.
	KindPhoto EventKind = "photo"
	// KindEnter is the synthetic event delivered to step 0 when a scene is
	// entered programmatically. It never arrives from the transport.
	KindEnter EventKind = "enter"
)

// From carries optional sender metadata supplied by the transport.
type From struct {
	Name     string
	Username string
}

// Event is one inbound interaction routed to the active scene and step.
type Event struct {
	UserID  int64
	Kind    EventKind
	Payload string
	From    From
}
