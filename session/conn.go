package session

import (
	"context"
	"sync"

	"chat-relay/ws"

	"github.com/gorilla/websocket"
)

// Conn is one live transport connection as seen by the session.
// Abstracted so reconnection behavior is testable without a network.
type Conn interface {
	ReadFrame() (ws.Frame, error)
	WriteFrame(frame ws.Frame) error
	Close() error
}

// Dialer opens a new transport connection to the hub.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebsocketDialer is the production Dialer.
type WebsocketDialer struct {
	dialer *websocket.Dialer
}

func NewWebsocketDialer() *WebsocketDialer {
	return &WebsocketDialer{dialer: websocket.DefaultDialer}
}

func (d *WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	writeMu sync.Mutex
	conn    *websocket.Conn
}

func (c *wsConn) ReadFrame() (ws.Frame, error) {
	var frame ws.Frame
	err := c.conn.ReadJSON(&frame)
	return frame, err
}

// WriteFrame serializes writers: the caller goroutine and the automatic
// re-registration after a reconnect may write concurrently.
func (c *wsConn) WriteFrame(frame ws.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(frame)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
