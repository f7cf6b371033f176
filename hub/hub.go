// Package hub implements the server-side session hub: the single authority
// mediating identity, message persistence, and event fan-out for every
// connected client.
package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	apperrors "chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/search"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
)

// Hub orchestrates registration, message send, typing pings, and
// disconnects. One mutex serializes every state-changing operation, which
// doubles as the global sequencing point: the append to the log and the
// fan-out of a message are never observably reordered between senders.
type Hub struct {
	mu       sync.Mutex
	log      *slog.Logger
	registry contract.IRegistry
	users    repositories.IUserRepository
	messages repositories.IMessageRepository
	sinks    map[domain.ConnectionID]contract.EventSink

	moderator *moderation.Moderator
	index     *search.Index
	monitor   *observability.Monitor

	openRegistration bool
	tokenDuration    time.Duration
	channelID        string
}

// Options carries the optional collaborators of a Hub. Any field may be nil.
type Options struct {
	Moderator *moderation.Moderator
	Index     *search.Index
	Monitor   *observability.Monitor
}

func NewHub(log *slog.Logger, registry contract.IRegistry,
	users repositories.IUserRepository, messages repositories.IMessageRepository,
	openRegistration bool, tokenDuration time.Duration, channelID string,
	opts Options) *Hub {
	return &Hub{
		log:              log,
		registry:         registry,
		users:            users,
		messages:         messages,
		sinks:            make(map[domain.ConnectionID]contract.EventSink),
		moderator:        opts.Moderator,
		index:            opts.Index,
		monitor:          opts.Monitor,
		openRegistration: openRegistration,
		tokenDuration:    tokenDuration,
		channelID:        channelID,
	}
}

var _ contract.IHub = (*Hub)(nil)

// Attach makes a freshly opened connection reachable for broadcasts.
func (h *Hub) Attach(id domain.ConnectionID, sink contract.EventSink) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sinks[id] = sink
	if h.monitor != nil {
		h.monitor.ConnectionOpened()
	}
	h.log.Debug("connection attached", "connection_id", id)
}

// Register binds a connection to a username.
//
// Unknown usernames are created on the fly when open registration is
// enabled, otherwise the call fails with ErrRegistrationDenied. Existing
// usernames must present the matching credential; any mismatch fails with
// ErrAuthenticationFailed rather than silently accepting the caller.
//
// Only the first successful call for a connection produces a join notice
// and a history replay; re-registering an already bound connection is a
// tolerated no-op (a fresh token is still issued).
func (h *Hub) Register(ctx context.Context, id domain.ConnectionID, username, credential string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	user, err := h.authenticate(username, credential)
	if err != nil {
		if h.monitor != nil {
			h.monitor.IncrFailedRegistrations()
		}
		return "", err
	}

	if h.registry.Bind(id, username) {
		if h.monitor != nil {
			h.monitor.IncrRegistrations()
		}
		h.broadcastExcept(ctx, id, event.MessageReceived{
			Username: username,
			Text:     fmt.Sprintf("%s joined the chat", username),
		})
		h.replayHistory(ctx, id)
		h.log.Info("user registered", "username", username, "connection_id", id)
	}

	token, err := auth.GenerateToken(user.ID.String(), username, h.tokenDuration)
	if err != nil {
		return "", apperrors.ErrTokenGeneration
	}
	return token, nil
}

// authenticate resolves or creates the identity backing a registration.
func (h *Hub) authenticate(username, credential string) (domain.User, error) {
	user, err := h.users.FindUserByName(username)
	switch {
	case errors.Is(err, apperrors.ErrUnknownUser):
		if !h.openRegistration {
			return domain.User{}, apperrors.ErrRegistrationDenied
		}
		if err := auth.ValidateRegistration(auth.Registration{Username: username, Credential: credential}); err != nil {
			return domain.User{}, err
		}
		hash, err := auth.HashCredential(credential)
		if err != nil {
			return domain.User{}, fmt.Errorf("hashing failed: %w", err)
		}
		return h.users.CreateUser(username, hash)
	case err != nil:
		return domain.User{}, err
	default:
		match, err := auth.CompareCredential(credential, user.CredentialHash)
		if err != nil || !match {
			return domain.User{}, apperrors.ErrAuthenticationFailed
		}
		return user, nil
	}
}

// SendMessage persists a message and fans it out to every connected party,
// the sender included. Messages from one sender reach all recipients in the
// order their SendMessage calls complete here.
func (h *Hub) SendMessage(ctx context.Context, username, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	user, err := h.users.FindUserByName(username)
	if err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrUnknownUser, username)
	}

	clean := text
	if h.moderator != nil {
		var found []string
		clean, found = h.moderator.Censor(text)
		if len(found) > 0 {
			h.log.Warn("message censored", "username", username, "words", found)
		}
	}

	info := whatlanggo.Detect(clean)
	message := domain.Message{
		ID:        uuid.New(),
		ChannelID: h.channelID,
		SenderID:  user.ID,
		Text:      clean,
		Lang:      info.Lang.Iso6391(),
		At:        time.Now().UTC(),
	}
	if err := h.messages.AppendMessage(message); err != nil {
		return err
	}
	if h.index != nil {
		if err := h.index.Add(message, username); err != nil {
			h.log.Error("failed to index message", "message_id", message.ID, "error", err)
		}
	}

	h.broadcastAll(ctx, event.MessageReceived{Username: username, Text: clean})
	if h.monitor != nil {
		h.monitor.IncrMessagesBroadcast()
	}
	return nil
}

// TypingPing tells everyone except the originating connection that a user
// is composing. Ephemeral: lost pings under load are acceptable.
func (h *Hub) TypingPing(id domain.ConnectionID, username string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.broadcastExcept(context.Background(), id, event.TypingReceived{Username: username})
	if h.monitor != nil {
		h.monitor.IncrTypingPings()
	}
}

// SearchMessages replays history entries matching terms to the calling
// connection only, in the same annotated format as the registration replay.
func (h *Hub) SearchMessages(ctx context.Context, id domain.ConnectionID, terms string, limit int) error {
	if h.index == nil {
		return nil
	}

	hits, err := h.index.Search(ctx, terms, limit)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	sink, ok := h.sinks[id]
	if !ok {
		return nil
	}
	for _, hit := range hits {
		h.deliver(ctx, sink, event.MessageReceived{
			Username: annotate(hit.Author, hit.At),
			Text:     hit.Text,
		})
	}
	return nil
}

// Disconnect unbinds the connection and announces the departure to the
// remaining parties. Idempotent: a repeated call degrades to the
// "[unknown]" fallback and must never error.
func (h *Hub) Disconnect(id domain.ConnectionID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sink, ok := h.sinks[id]; ok {
		delete(h.sinks, id)
		if closer, ok := sink.(*ConnSink); ok {
			closer.Close()
		}
		if h.monitor != nil {
			h.monitor.ConnectionClosed()
		}
	}

	username, ok := h.registry.Unbind(id)
	if !ok {
		username = domain.UnknownDisplayName
	}

	h.broadcastAll(context.Background(), event.MessageReceived{
		Username: username,
		Text:     fmt.Sprintf("%s has left the chat", username),
	})
	h.log.Info("connection closed", "username", username, "connection_id", id)
}

// replayHistory sends the full message log to one connection, each entry
// annotated with the sender's display name and timestamp.
func (h *Hub) replayHistory(ctx context.Context, id domain.ConnectionID) {
	sink, ok := h.sinks[id]
	if !ok {
		return
	}

	messages, err := h.messages.ListAllMessages()
	if err != nil {
		h.log.Error("failed to load message history", "error", err)
		return
	}
	users, err := h.users.ListAllUsers()
	if err != nil {
		h.log.Error("failed to load users for history replay", "error", err)
		return
	}
	names := repositories.UserNamesByID(users)

	for _, message := range messages {
		name, ok := names[message.SenderID]
		if !ok {
			name = domain.UnknownDisplayName
		}
		h.deliver(ctx, sink, event.MessageReceived{
			Username: annotate(name, message.At),
			Text:     message.Text,
		})
	}
}

func annotate(name string, at time.Time) string {
	return fmt.Sprintf("%s %s", name, at.Format(time.RFC822))
}

// broadcastAll fans out to every attached connection, sender included.
func (h *Hub) broadcastAll(ctx context.Context, e event.DomainEvent) {
	for _, sink := range h.sinks {
		h.deliver(ctx, sink, e)
	}
}

// broadcastExcept fans out to every attached connection but the origin.
func (h *Hub) broadcastExcept(ctx context.Context, origin domain.ConnectionID, e event.DomainEvent) {
	for id, sink := range h.sinks {
		if id == origin {
			continue
		}
		h.deliver(ctx, sink, e)
	}
}

// deliver is fire-and-forget per recipient: sinks drop rather than block,
// so one slow connection never fails or stalls the sender's call.
func (h *Hub) deliver(ctx context.Context, sink contract.EventSink, e event.DomainEvent) {
	if err := sink.Consume(ctx, e); err != nil {
		h.log.Debug("event delivery failed", "event", e.EventName(), "error", err)
	}
}
