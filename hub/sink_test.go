package hub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-relay/domain/event"
)

func Test_ConnSink_Buffers_Events(t *testing.T) {
	req := require.New(t)
	sink := NewConnSink(2, nil)

	req.NoError(sink.Consume(context.Background(), event.MessageReceived{Username: "alice", Text: "one"}))
	req.NoError(sink.Consume(context.Background(), event.MessageReceived{Username: "alice", Text: "two"}))

	first := <-sink.Events()
	req.Equal("one", first.(event.MessageReceived).Text)
	second := <-sink.Events()
	req.Equal("two", second.(event.MessageReceived).Text)
}

func Test_ConnSink_Drops_When_Full(t *testing.T) {
	req := require.New(t)
	dropped := 0
	sink := NewConnSink(1, func() { dropped++ })

	req.NoError(sink.Consume(context.Background(), event.TypingReceived{Username: "alice"}))
	// The buffer is full and nobody drains: the event must be dropped
	// rather than blocking the caller.
	req.NoError(sink.Consume(context.Background(), event.TypingReceived{Username: "alice"}))

	req.Equal(1, dropped)
}

func Test_ConnSink_Consume_After_Close_Is_Noop(t *testing.T) {
	req := require.New(t)
	dropped := 0
	sink := NewConnSink(1, func() { dropped++ })

	sink.Close()
	req.NoError(sink.Consume(context.Background(), event.MessageReceived{Username: "alice", Text: "late"}))

	req.Equal(0, dropped)
	select {
	case <-sink.Done():
	default:
		req.Fail("Done must be closed after Close")
	}
}

func Test_ConnSink_Close_Is_Idempotent(t *testing.T) {
	sink := NewConnSink(1, nil)
	sink.Close()
	sink.Close()
}
