// Package ws carries the chat protocol over WebSocket: JSON frames tagged
// with a method name, delivered in order per connection.
package ws

import (
	"chat-relay/domain/event"
)

// Hub-bound method names.
const (
	MethodRegister       = "Register"
	MethodSendMessage    = "SendMessage"
	MethodTypingPing     = "TypingPing"
	MethodSearchMessages = "SearchMessages"
)

// Client-bound method names. These match the EventName of the corresponding
// domain events; join and leave notices travel as ordinary ReceiveMessage
// frames with synthesized text.
const (
	MethodReceiveMessage = "ReceiveMessage"
	MethodTypingReceive  = "TypingPingReceive"
	MethodSessionGranted = "SessionGranted"
	MethodError          = "Error"
)

// Frame is the single envelope used in both directions. Unused fields are
// omitted on the wire.
type Frame struct {
	Method     string `json:"method"`
	Username   string `json:"username,omitempty"`
	Credential string `json:"credential,omitempty"`
	Text       string `json:"text,omitempty"`
	Token      string `json:"token,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// ToFrame converts a hub event into its wire representation.
func ToFrame(e event.DomainEvent) Frame {
	switch evt := e.(type) {
	case event.MessageReceived:
		return Frame{Method: MethodReceiveMessage, Username: evt.Username, Text: evt.Text}
	case event.TypingReceived:
		return Frame{Method: MethodTypingReceive, Username: evt.Username}
	case event.SessionGranted:
		return Frame{Method: MethodSessionGranted, Token: evt.Token}
	case event.ErrorRaised:
		return Frame{Method: MethodError, Kind: evt.Kind, Text: evt.Reason}
	default:
		return Frame{Method: e.EventName()}
	}
}
