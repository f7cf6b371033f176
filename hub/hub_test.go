package hub

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/domain/event"
	apperrors "chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/moderation"
)

const (
	testCredential = "correct-horse-battery"
	testChannel    = "1"
)

// recordingSink collects fan-out events synchronously. The hub holds its
// lock while delivering, so no extra synchronization is needed here.
type recordingSink struct {
	events []event.DomainEvent
}

func (s *recordingSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) messages() []event.MessageReceived {
	var out []event.MessageReceived
	for _, e := range s.events {
		if m, ok := e.(event.MessageReceived); ok {
			out = append(out, m)
		}
	}
	return out
}

func newTestHub(t *testing.T, openRegistration bool, opts Options) (*Hub, *mocks.MockIUserRepository, *mocks.MockIMessageRepository) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockIUserRepository(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	h := NewHub(slog.Default(), NewRegistry(), users, messages,
		openRegistration, time.Hour, testChannel, opts)
	return h, users, messages
}

func knownUser(t *testing.T, name string) domain.User {
	hash, err := auth.HashCredential(testCredential)
	require.NoError(t, err)
	return domain.User{
		ID:             uuid.New(),
		Name:           name,
		CredentialHash: hash,
		CreatedAt:      time.Now().UTC(),
	}
}

func Test_Register_Creates_Unknown_User_When_Open(t *testing.T) {
	req := require.New(t)
	h, users, messages := newTestHub(t, true, Options{})
	alice := knownUser(t, "alice")

	users.EXPECT().FindUserByName("alice").Return(domain.User{}, apperrors.ErrUnknownUser)
	users.EXPECT().CreateUser("alice", gomock.Any()).Return(alice, nil)
	messages.EXPECT().ListAllMessages().Return(nil, nil)
	users.EXPECT().ListAllUsers().Return([]domain.User{alice}, nil)

	id := domain.ConnectionID(uuid.NewString())
	sink := &recordingSink{}
	h.Attach(id, sink)

	token, err := h.Register(context.Background(), id, "alice", testCredential)

	req.NoError(err)
	req.NotEmpty(token)
	req.True(h.registry.IsBound(id))
	// Empty room: the join notice goes to the others, the replay is empty
	req.Empty(sink.events)
}

func Test_Register_Denied_When_Registration_Closed(t *testing.T) {
	req := require.New(t)
	h, users, _ := newTestHub(t, false, Options{})

	users.EXPECT().FindUserByName("mallory").Return(domain.User{}, apperrors.ErrUnknownUser)

	id := domain.ConnectionID(uuid.NewString())
	h.Attach(id, &recordingSink{})

	token, err := h.Register(context.Background(), id, "mallory", testCredential)

	req.ErrorIs(err, apperrors.ErrRegistrationDenied)
	req.Empty(token)
	req.False(h.registry.IsBound(id))
}

func Test_Register_Rejects_Wrong_Credential(t *testing.T) {
	req := require.New(t)
	h, users, _ := newTestHub(t, true, Options{})
	alice := knownUser(t, "alice")

	users.EXPECT().FindUserByName("alice").Return(alice, nil)

	id := domain.ConnectionID(uuid.NewString())
	h.Attach(id, &recordingSink{})

	_, err := h.Register(context.Background(), id, "alice", "not-her-credential")

	req.ErrorIs(err, apperrors.ErrAuthenticationFailed)
	req.False(h.registry.IsBound(id))
}

func Test_Register_Join_Notice_Reaches_Others_Only(t *testing.T) {
	req := require.New(t)
	h, users, messages := newTestHub(t, true, Options{})
	alice := knownUser(t, "alice")
	bob := knownUser(t, "bob")

	users.EXPECT().FindUserByName("alice").Return(alice, nil)
	users.EXPECT().FindUserByName("bob").Return(bob, nil)
	messages.EXPECT().ListAllMessages().Return(nil, nil).Times(2)
	users.EXPECT().ListAllUsers().Return([]domain.User{alice, bob}, nil).Times(2)

	aliceID := domain.ConnectionID(uuid.NewString())
	bobID := domain.ConnectionID(uuid.NewString())
	aliceSink := &recordingSink{}
	bobSink := &recordingSink{}
	h.Attach(aliceID, aliceSink)

	_, err := h.Register(context.Background(), aliceID, "alice", testCredential)
	req.NoError(err)

	h.Attach(bobID, bobSink)
	_, err = h.Register(context.Background(), bobID, "bob", testCredential)
	req.NoError(err)

	// Alice sees exactly one join notice, bob never sees his own
	req.Len(aliceSink.messages(), 1)
	req.Equal("bob joined the chat", aliceSink.messages()[0].Text)
	req.Equal("bob", aliceSink.messages()[0].Username)
	req.Empty(bobSink.messages())
}

func Test_Register_Twice_Broadcasts_Join_Once(t *testing.T) {
	req := require.New(t)
	h, users, messages := newTestHub(t, true, Options{})
	alice := knownUser(t, "alice")
	bob := knownUser(t, "bob")

	users.EXPECT().FindUserByName("alice").Return(alice, nil)
	users.EXPECT().FindUserByName("bob").Return(bob, nil).Times(2)
	messages.EXPECT().ListAllMessages().Return(nil, nil).Times(2)
	users.EXPECT().ListAllUsers().Return([]domain.User{alice, bob}, nil).Times(2)

	aliceID := domain.ConnectionID(uuid.NewString())
	bobID := domain.ConnectionID(uuid.NewString())
	aliceSink := &recordingSink{}
	h.Attach(aliceID, aliceSink)
	h.Attach(bobID, &recordingSink{})

	_, err := h.Register(context.Background(), aliceID, "alice", testCredential)
	req.NoError(err)
	_, err = h.Register(context.Background(), bobID, "bob", testCredential)
	req.NoError(err)

	// Re-registering an already bound connection is a tolerated no-op,
	// a fresh token is still issued
	token, err := h.Register(context.Background(), bobID, "bob", testCredential)
	req.NoError(err)
	req.NotEmpty(token)

	req.Len(aliceSink.messages(), 1)
}

func Test_SendMessage_Reaches_Everyone_Including_Sender(t *testing.T) {
	req := require.New(t)
	h, users, messages := newTestHub(t, true, Options{})
	alice := knownUser(t, "alice")

	users.EXPECT().FindUserByName("alice").Return(alice, nil)
	messages.EXPECT().AppendMessage(gomock.Any()).Return(nil)

	aliceSink := &recordingSink{}
	bobSink := &recordingSink{}
	h.Attach(domain.ConnectionID(uuid.NewString()), aliceSink)
	h.Attach(domain.ConnectionID(uuid.NewString()), bobSink)

	err := h.SendMessage(context.Background(), "alice", "hello everyone")

	req.NoError(err)
	for _, sink := range []*recordingSink{aliceSink, bobSink} {
		req.Len(sink.messages(), 1)
		req.Equal("alice", sink.messages()[0].Username)
		req.Equal("hello everyone", sink.messages()[0].Text)
	}
}

func Test_SendMessage_Unknown_User(t *testing.T) {
	req := require.New(t)
	h, users, _ := newTestHub(t, true, Options{})

	users.EXPECT().FindUserByName("ghost").Return(domain.User{}, apperrors.ErrUnknownUser)

	err := h.SendMessage(context.Background(), "ghost", "boo")

	req.ErrorIs(err, apperrors.ErrUnknownUser)
}

func Test_SendMessage_Censors_Forbidden_Words(t *testing.T) {
	req := require.New(t)
	moderator, err := moderation.NewModerator([]string{"heck"}, '*')
	req.NoError(err)

	h, users, messages := newTestHub(t, true, Options{Moderator: &moderator})
	alice := knownUser(t, "alice")

	users.EXPECT().FindUserByName("alice").Return(alice, nil)
	messages.EXPECT().AppendMessage(gomock.Any()).DoAndReturn(func(message domain.Message) error {
		// The censored text is what gets persisted
		req.Equal("what the ****", message.Text)
		return nil
	})

	sink := &recordingSink{}
	h.Attach(domain.ConnectionID(uuid.NewString()), sink)

	req.NoError(h.SendMessage(context.Background(), "alice", "what the heck"))

	req.Len(sink.messages(), 1)
	req.Equal("what the ****", sink.messages()[0].Text)
}

func Test_TypingPing_Excludes_Origin(t *testing.T) {
	req := require.New(t)
	h, _, _ := newTestHub(t, true, Options{})

	origin := domain.ConnectionID(uuid.NewString())
	originSink := &recordingSink{}
	otherSink := &recordingSink{}
	h.Attach(origin, originSink)
	h.Attach(domain.ConnectionID(uuid.NewString()), otherSink)

	h.TypingPing(origin, "alice")

	req.Empty(originSink.events)
	req.Len(otherSink.events, 1)
	ping, ok := otherSink.events[0].(event.TypingReceived)
	req.True(ok)
	req.Equal("alice", ping.Username)
}

func Test_Disconnect_Announces_Departure(t *testing.T) {
	req := require.New(t)
	h, users, messages := newTestHub(t, true, Options{})
	alice := knownUser(t, "alice")

	users.EXPECT().FindUserByName("alice").Return(alice, nil)
	messages.EXPECT().ListAllMessages().Return(nil, nil)
	users.EXPECT().ListAllUsers().Return([]domain.User{alice}, nil)

	aliceID := domain.ConnectionID(uuid.NewString())
	bobSink := &recordingSink{}
	h.Attach(aliceID, &recordingSink{})
	h.Attach(domain.ConnectionID(uuid.NewString()), bobSink)

	_, err := h.Register(context.Background(), aliceID, "alice", testCredential)
	req.NoError(err)

	h.Disconnect(aliceID)

	req.False(h.registry.IsBound(aliceID))
	leave := bobSink.messages()
	req.NotEmpty(leave)
	req.Equal("alice has left the chat", leave[len(leave)-1].Text)
}

func Test_Disconnect_Unbound_Connection_Uses_Fallback_Name(t *testing.T) {
	req := require.New(t)
	h, _, _ := newTestHub(t, true, Options{})

	bobSink := &recordingSink{}
	h.Attach(domain.ConnectionID(uuid.NewString()), bobSink)

	// The connection was never attached nor bound: the departure still
	// goes out under the placeholder identity and nothing panics.
	ghost := domain.ConnectionID(uuid.NewString())
	h.Disconnect(ghost)
	h.Disconnect(ghost)

	req.Len(bobSink.messages(), 2)
	req.Equal("[unknown] has left the chat", bobSink.messages()[0].Text)
}

func Test_Register_Replays_History_Annotated(t *testing.T) {
	req := require.New(t)
	h, users, messages := newTestHub(t, true, Options{})
	alice := knownUser(t, "alice")
	bob := knownUser(t, "bob")

	history := []domain.Message{{
		ID:        uuid.New(),
		ChannelID: testChannel,
		SenderID:  alice.ID,
		Text:      "welcome to the room",
		At:        time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
	}}

	users.EXPECT().FindUserByName("bob").Return(bob, nil)
	messages.EXPECT().ListAllMessages().Return(history, nil)
	users.EXPECT().ListAllUsers().Return([]domain.User{alice, bob}, nil)

	bobID := domain.ConnectionID(uuid.NewString())
	bobSink := &recordingSink{}
	h.Attach(bobID, bobSink)

	_, err := h.Register(context.Background(), bobID, "bob", testCredential)
	req.NoError(err)

	replayed := bobSink.messages()
	req.Len(replayed, 1)
	req.Equal("welcome to the room", replayed[0].Text)
	// The replay annotates the sender name with the timestamp
	req.Contains(replayed[0].Username, "alice")
	req.NotEqual("alice", replayed[0].Username)
}

func Test_Register_Replays_History_Unknown_Sender(t *testing.T) {
	req := require.New(t)
	h, users, messages := newTestHub(t, true, Options{})
	bob := knownUser(t, "bob")

	history := []domain.Message{{
		ID:        uuid.New(),
		ChannelID: testChannel,
		SenderID:  uuid.New(),
		Text:      "orphaned entry",
		At:        time.Now().UTC(),
	}}

	users.EXPECT().FindUserByName("bob").Return(bob, nil)
	messages.EXPECT().ListAllMessages().Return(history, nil)
	users.EXPECT().ListAllUsers().Return([]domain.User{bob}, nil)

	bobID := domain.ConnectionID(uuid.NewString())
	bobSink := &recordingSink{}
	h.Attach(bobID, bobSink)

	_, err := h.Register(context.Background(), bobID, "bob", testCredential)
	req.NoError(err)

	replayed := bobSink.messages()
	req.Len(replayed, 1)
	req.Contains(replayed[0].Username, "[unknown]")
}
