// Package event defines the events the hub pushes to connected clients.
// Event names double as wire method names, matching the hub RPC surface.
package event

// DomainEvent is anything the hub can fan out to a connection.
type DomainEvent interface {
	EventName() string
}

// MessageReceived carries a chat message, incl. synthesized join/leave
// notices and history replays.
type MessageReceived struct {
	Username string
	Text     string
}

func (MessageReceived) EventName() string { return "ReceiveMessage" }

// TypingReceived signals that a user is composing a message. Best effort,
// never persisted.
type TypingReceived struct {
	Username string
}

func (TypingReceived) EventName() string { return "TypingPingReceive" }

// SessionGranted delivers the session token issued on successful
// registration. Sent to the registering connection only.
type SessionGranted struct {
	Token string
}

func (SessionGranted) EventName() string { return "SessionGranted" }

// ErrorRaised reports a failed call back to the offending connection.
// Other connections are never affected.
type ErrorRaised struct {
	Kind   string
	Reason string
}

func (ErrorRaised) EventName() string { return "Error" }
