// Package session owns one client-side connection to the hub and recovers
// automatically from transport drops.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apperrors "chat-relay/errors"
	"chat-relay/ws"
)

// DefaultReconnectInterval is the fixed backoff between reconnect attempts.
// Retries never give up: an unrecoverable outage keeps retrying at this
// interval until Stop is called.
const DefaultReconnectInterval = time.Second

// Clock abstracts the backoff wait so tests can run reconnect scenarios
// without real time passing.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Config identifies the hub endpoint and the credentials presented on every
// registration, including the automatic one after a reconnect.
type Config struct {
	ServerURL         string
	Username          string
	Credential        string
	ReconnectInterval time.Duration
}

// Client is the connecting-party counterpart of the hub.
//
// Lifecycle: NotStarted -> Connected, looping through transient
// disconnected states on transport drops, until Stop. After Stop the client
// may be started again.
type Client struct {
	log    *slog.Logger
	cfg    Config
	dialer Dialer
	clock  Clock

	mu      sync.Mutex
	conn    Conn
	started bool
	token   string
	cancel  context.CancelFunc
	done    chan struct{}

	onMessage      func(username, text string)
	onTyping       func(username string)
	onDisconnected func(disconnected bool)
	onError        func(kind, reason string)
}

func NewClient(log *slog.Logger, cfg Config) *Client {
	return &Client{
		log:    log,
		cfg:    cfg,
		dialer: NewWebsocketDialer(),
		clock:  systemClock{},
	}
}

// WithDialer swaps the transport dialer. Intended for tests.
func (c *Client) WithDialer(d Dialer) *Client {
	c.dialer = d
	return c
}

// WithClock swaps the backoff clock. Intended for tests.
func (c *Client) WithClock(clock Clock) *Client {
	c.clock = clock
	return c
}

// OnMessageReceived installs the handler for inbound chat messages,
// including join/leave notices and history replays. Set before Start.
func (c *Client) OnMessageReceived(fn func(username, text string)) { c.onMessage = fn }

// OnTypingPinged installs the handler for typing notifications.
func (c *Client) OnTypingPinged(fn func(username string)) { c.onTyping = fn }

// OnDisconnected is called with true when the transport drops and with
// false once a connection is (re)established.
func (c *Client) OnDisconnected(fn func(disconnected bool)) { c.onDisconnected = fn }

// OnError installs the handler for call rejections reported by the hub.
func (c *Client) OnError(fn func(kind, reason string)) { c.onError = fn }

// Start opens the transport, begins handling inbound events, and sends the
// initial Register request. Calling Start on a started client is a no-op.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}

	conn, err := c.dialer.Dial(ctx, c.cfg.ServerURL)
	if err != nil {
		c.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.conn = conn
	c.cancel = cancel
	c.started = true
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	c.notifyDisconnected(false)
	go c.readLoop(runCtx, done)

	return c.register()
}

// SendMessage submits a chat message under the configured username.
func (c *Client) SendMessage(text string) error {
	return c.write(ws.Frame{Method: ws.MethodSendMessage, Username: c.cfg.Username, Text: text})
}

// PingTyping tells the hub the user is composing a message.
func (c *Client) PingTyping() error {
	return c.write(ws.Frame{Method: ws.MethodTypingPing, Username: c.cfg.Username})
}

// Search asks the hub to replay history entries matching terms.
func (c *Client) Search(terms string, limit int) error {
	return c.write(ws.Frame{Method: ws.MethodSearchMessages, Text: terms, Limit: limit})
}

// Token returns the session token granted by the last successful
// registration, or the empty string before one arrives.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Stop closes the transport and cancels any in-flight reconnect backoff.
// Safe to call on a stopped client; the client may be started again after.
func (c *Client) Stop() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = false
	cancel := c.cancel
	conn := c.conn
	done := c.done
	c.conn = nil
	c.mu.Unlock()

	cancel()
	if conn != nil {
		_ = conn.Close()
	}
	<-done
	return nil
}

func (c *Client) register() error {
	return c.write(ws.Frame{
		Method:     ws.MethodRegister,
		Username:   c.cfg.Username,
		Credential: c.cfg.Credential,
	})
}

func (c *Client) write(frame ws.Frame) error {
	c.mu.Lock()
	conn, started := c.conn, c.started
	c.mu.Unlock()

	if !started || conn == nil {
		return apperrors.ErrNotStarted
	}
	return conn.WriteFrame(frame)
}

func (c *Client) readLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}

		frame, err := conn.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !c.reconnect(ctx) {
				return
			}
			continue
		}
		c.dispatch(frame)
	}
}

// reconnect redials until a connection is established or the session is
// stopped. Fixed-interval backoff, unbounded retries; the wait itself is
// cancellable so Stop never leaves a timer running against a dead session.
// After a successful redial the client re-registers on its own, since the
// hub sees the party as a brand-new, unregistered connection.
func (c *Client) reconnect(ctx context.Context) bool {
	c.notifyDisconnected(true)

	interval := c.cfg.ReconnectInterval
	if interval <= 0 {
		interval = DefaultReconnectInterval
	}

	for attempt := 1; ; attempt++ {
		conn, err := c.dialer.Dial(ctx, c.cfg.ServerURL)
		if err == nil {
			c.mu.Lock()
			if !c.started {
				// Stop won the race while this dial was in flight: the
				// fresh connection must not be installed, or Stop would
				// wait forever on a read loop it cannot unblock.
				c.mu.Unlock()
				_ = conn.Close()
				return false
			}
			c.conn = conn
			c.mu.Unlock()

			c.notifyDisconnected(false)
			if err := c.register(); err != nil {
				c.log.Warn("re-registration after reconnect failed", "error", err)
			}
			return true
		}

		c.log.Debug("reconnect attempt failed", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return false
		case <-c.clock.After(interval):
		}
	}
}

func (c *Client) dispatch(frame ws.Frame) {
	switch frame.Method {
	case ws.MethodReceiveMessage:
		if c.onMessage != nil {
			c.onMessage(frame.Username, frame.Text)
		}
	case ws.MethodTypingReceive:
		if c.onTyping != nil {
			c.onTyping(frame.Username)
		}
	case ws.MethodSessionGranted:
		c.mu.Lock()
		c.token = frame.Token
		c.mu.Unlock()
	case ws.MethodError:
		if c.onError != nil {
			c.onError(frame.Kind, frame.Text)
		} else {
			c.log.Warn("call rejected by hub", "kind", frame.Kind, "reason", frame.Text)
		}
	default:
		c.log.Debug("unknown method", "method", frame.Method)
	}
}

func (c *Client) notifyDisconnected(disconnected bool) {
	if c.onDisconnected != nil {
		c.onDisconnected(disconnected)
	}
}
