package e2e

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"

	"github.com/dgraph-io/badger/v4"

	"chat-relay/hub"
	"chat-relay/repositories"
	"chat-relay/search"
	"chat-relay/session"
	"chat-relay/ws"
)

const (
	e2eTokenDuration = time.Hour
	e2eBufferSize    = 64
)

type BaseWsSuite struct {
	suite.Suite
	Config      Config
	waitTimeout time.Duration
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseWsSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	s.waitTimeout, err = time.ParseDuration(s.Config.WaitTimeout)
	s.Require().NoError(err)
}

// Step prints a colorized header for a scenario step in logs
func (s *BaseWsSuite) Step(t *testing.T, name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)
}

// StartServer boots the full stack (BadgerDB, Bluge, hub, websocket server)
// on temporary directories and returns the ws:// URL to dial.
func (s *BaseWsSuite) StartServer(t *testing.T) string {
	logger := logs.GetLoggerFromString("ERROR")

	opts := badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	s.Require().NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	index, err := search.Open(t.TempDir(), logger)
	s.Require().NoError(err)
	t.Cleanup(func() { _ = index.Close() })

	chatHub := hub.NewHub(
		logger, hub.NewRegistry(),
		repositories.NewUserRepository(db),
		repositories.NewMessageRepository(db, logger),
		true, e2eTokenDuration, "1",
		hub.Options{Index: index},
	)

	server := httptest.NewServer(ws.NewServer(logger, chatHub, e2eBufferSize, nil))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// Recorder collects everything one session observed, frame by frame, so a
// scenario can assert on ordering without racing the read loop.
type Recorder struct {
	Messages     chan RecordedMessage
	Typing       chan string
	Disconnected chan bool
	Errors       chan RecordedError
}

type RecordedMessage struct {
	Username string
	Text     string
}

type RecordedError struct {
	Kind   string
	Reason string
}

// NewSession dials the server as one participant and wires its handlers
// into a Recorder. The caller still has to Start the client.
func (s *BaseWsSuite) NewSession(t *testing.T, url, username, credential string) (*session.Client, *Recorder) {
	recorder := &Recorder{
		Messages:     make(chan RecordedMessage, 64),
		Typing:       make(chan string, 64),
		Disconnected: make(chan bool, 64),
		Errors:       make(chan RecordedError, 64),
	}

	logger := logs.GetLoggerFromString("ERROR")
	client := session.NewClient(logger, session.Config{
		ServerURL:  url,
		Username:   username,
		Credential: credential,
	})

	client.OnMessageReceived(func(from, text string) {
		s.debugFrame(t, username, "ReceiveMessage", map[string]string{"username": from, "text": text})
		recorder.Messages <- RecordedMessage{Username: from, Text: text}
	})
	client.OnTypingPinged(func(from string) {
		s.debugFrame(t, username, "TypingPingReceive", map[string]string{"username": from})
		recorder.Typing <- from
	})
	client.OnDisconnected(func(disconnected bool) {
		recorder.Disconnected <- disconnected
	})
	client.OnError(func(kind, reason string) {
		s.debugFrame(t, username, "Error", map[string]string{"kind": kind, "reason": reason})
		recorder.Errors <- RecordedError{Kind: kind, Reason: reason}
	})

	return client, recorder
}

// WaitMessage blocks until the recorder observes the next message frame.
func (s *BaseWsSuite) WaitMessage(recorder *Recorder) RecordedMessage {
	select {
	case message := <-recorder.Messages:
		return message
	case <-time.After(s.waitTimeout):
		s.FailNow("timed out waiting for a message frame")
		return RecordedMessage{}
	}
}

// WaitMessageFrom skips frames until one sent by from arrives. Useful when
// a step does not care about its own echoes.
func (s *BaseWsSuite) WaitMessageFrom(recorder *Recorder, from string) RecordedMessage {
	deadline := time.After(s.waitTimeout)
	for {
		select {
		case message := <-recorder.Messages:
			if message.Username == from {
				return message
			}
		case <-deadline:
			s.FailNowf("timed out", "no message from %s within %v", from, s.waitTimeout)
			return RecordedMessage{}
		}
	}
}

func (s *BaseWsSuite) debugFrame(t *testing.T, who, method string, fields map[string]string) {
	if !s.Config.DebugJSON {
		return
	}
	body, _ := json.MarshalIndent(fields, "", "  ")
	t.Logf("[%s] %s:\n%s", who, method, body)
}
