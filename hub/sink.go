package hub

import (
	"context"
	"sync"

	"chat-relay/domain/event"
)

// ConnSink is the buffered outbound queue of one connection.
// Consume never blocks the broadcaster: when the buffer is full the event
// is dropped and counted, keeping a slow recipient from stalling fan-out.
type ConnSink struct {
	events chan event.DomainEvent
	done   chan struct{}
	once   sync.Once
	onDrop func()
}

func NewConnSink(bufferSize int, onDrop func()) *ConnSink {
	return &ConnSink{
		events: make(chan event.DomainEvent, bufferSize),
		done:   make(chan struct{}),
		onDrop: onDrop,
	}
}

// Consume is called by the hub's fan-out. The write pump owning this sink
// drains the channel and pushes frames onto the wire.
func (s *ConnSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case <-s.done:
		return nil
	default:
	}

	select {
	case s.events <- e:
		return nil
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		if s.onDrop != nil {
			s.onDrop()
		}
		return nil
	}
}

// Events exposes the queue to the connection's write pump.
func (s *ConnSink) Events() <-chan event.DomainEvent {
	return s.events
}

// Done closes when the sink is shut down, releasing the write pump.
func (s *ConnSink) Done() <-chan struct{} {
	return s.done
}

// Close is idempotent; once closed, further Consume calls are silent no-ops.
func (s *ConnSink) Close() {
	s.once.Do(func() { close(s.done) })
}
