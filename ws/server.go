package ws

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	apperrors "chat-relay/errors"
	"chat-relay/hub"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Server upgrades HTTP requests to WebSocket connections and bridges them
// to the hub: inbound frames become hub calls, hub events become outbound
// frames. Each connection gets an opaque uuid as its ConnectionID.
type Server struct {
	log        *slog.Logger
	hub        contract.IHub
	upgrader   websocket.Upgrader
	bufferSize int
	onDrop     func()
}

func NewServer(log *slog.Logger, h contract.IHub, bufferSize int, onDrop func()) *Server {
	return &Server{
		log: log,
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		bufferSize: bufferSize,
		onDrop:     onDrop,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}

	id := domain.ConnectionID(uuid.NewString())
	sink := hub.NewConnSink(s.bufferSize, s.onDrop)
	s.hub.Attach(id, sink)

	go s.writePump(conn, sink, id)
	s.readLoop(r.Context(), conn, sink, id)
}

// readLoop decodes inbound frames and dispatches them to the hub. It owns
// the connection's lifetime: when the read side fails the connection is
// considered gone and the hub is told to disconnect it.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, sink *hub.ConnSink, id domain.ConnectionID) {
	defer s.hub.Disconnect(id)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn(fmt.Sprintf("Client %s disconnected unexpectedly", id), "error", err)
			}
			return
		}
		s.dispatch(ctx, frame, sink, id)
	}
}

// dispatch routes one frame. Call errors are reported back to the offending
// connection only, through its own sink, so the write pump stays the single
// writer on the socket.
func (s *Server) dispatch(ctx context.Context, frame Frame, sink *hub.ConnSink, id domain.ConnectionID) {
	switch frame.Method {
	case MethodRegister:
		token, err := s.hub.Register(ctx, id, frame.Username, frame.Credential)
		if err != nil {
			s.reject(ctx, sink, err)
			return
		}
		s.deliver(ctx, sink, event.SessionGranted{Token: token})
	case MethodSendMessage:
		if err := s.hub.SendMessage(ctx, frame.Username, frame.Text); err != nil {
			s.reject(ctx, sink, err)
		}
	case MethodTypingPing:
		s.hub.TypingPing(id, frame.Username)
	case MethodSearchMessages:
		if err := s.hub.SearchMessages(ctx, id, frame.Text, frame.Limit); err != nil {
			s.reject(ctx, sink, err)
		}
	default:
		s.log.Debug("unknown method", "method", frame.Method, "connection_id", id)
	}
}

func (s *Server) reject(ctx context.Context, sink *hub.ConnSink, err error) {
	s.deliver(ctx, sink, event.ErrorRaised{Kind: apperrors.Kind(err), Reason: err.Error()})
}

func (s *Server) deliver(ctx context.Context, sink *hub.ConnSink, e event.DomainEvent) {
	if err := sink.Consume(ctx, e); err != nil {
		s.log.Debug("failed to queue event", "event", e.EventName(), "error", err)
	}
}

// writePump is the only goroutine writing to the socket. It drains the
// connection's sink and keeps the connection alive with periodic pings.
func (s *Server) writePump(conn *websocket.Conn, sink *hub.ConnSink, id domain.ConnectionID) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case evt := <-sink.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ToFrame(evt)); err != nil {
				s.log.Debug("failed to push frame", "connection_id", id, "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sink.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
