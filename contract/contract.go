//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
)

// EventSink is one connection's outbound queue. Consume must never block
// the caller: a slow or dead recipient drops events rather than stalling
// the hub's fan-out.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry tracks which live connection belongs to which registered
// username. Entirely volatile; rebuilt empty on process restart.
type IRegistry interface {
	// Bind inserts the pair if the connection is not already bound.
	// Returns false when already bound (a no-op, not an error).
	Bind(id domain.ConnectionID, username string) bool
	// Unbind removes and returns the bound username if present.
	Unbind(id domain.ConnectionID) (string, bool)
	IsBound(id domain.ConnectionID) bool
}

// IHub is the single authority mediating identity, persistence, and fan-out.
type IHub interface {
	// Attach makes a freshly opened connection reachable for broadcasts.
	// Registration is a separate, later step.
	Attach(id domain.ConnectionID, sink EventSink)
	// Register binds the connection to a username, creating the identity
	// when open registration is enabled. Returns a session token.
	Register(ctx context.Context, id domain.ConnectionID, username, credential string) (string, error)
	SendMessage(ctx context.Context, username, text string) error
	TypingPing(id domain.ConnectionID, username string)
	// SearchMessages replays matching history entries to the calling
	// connection only.
	SearchMessages(ctx context.Context, id domain.ConnectionID, terms string, limit int) error
	// Disconnect unbinds and announces departure. Idempotent.
	Disconnect(id domain.ConnectionID)
}
