package search

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
)

func newTestIndex(t *testing.T) *Index {
	index, err := Open(t.TempDir(), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	return index
}

func indexedMessage(text string, at time.Time) domain.Message {
	return domain.Message{
		ID:        uuid.New(),
		ChannelID: "1",
		SenderID:  uuid.New(),
		Text:      text,
		At:        at,
	}
}

func Test_Search_Finds_Matching_Message(t *testing.T) {
	req := require.New(t)
	index := newTestIndex(t)
	at := time.Now().UTC()

	req.NoError(index.Add(indexedMessage("deploy finished on the staging cluster", at), "alice"))
	req.NoError(index.Add(indexedMessage("lunch anyone", at), "bob"))

	hits, err := index.Search(context.Background(), "staging", 10)

	req.NoError(err)
	req.Len(hits, 1)
	req.Equal("alice", hits[0].Author)
	req.Equal("deploy finished on the staging cluster", hits[0].Text)
	req.WithinDuration(at, hits[0].At, time.Second)
}

func Test_Search_No_Match(t *testing.T) {
	req := require.New(t)
	index := newTestIndex(t)

	req.NoError(index.Add(indexedMessage("hello world", time.Now().UTC()), "alice"))

	hits, err := index.Search(context.Background(), "kubernetes", 10)

	req.NoError(err)
	req.Empty(hits)
}

func Test_Search_Respects_Limit(t *testing.T) {
	req := require.New(t)
	index := newTestIndex(t)

	for i := 0; i < 5; i++ {
		req.NoError(index.Add(indexedMessage("release notes incoming", time.Now().UTC()), "alice"))
	}

	hits, err := index.Search(context.Background(), "release", 2)

	req.NoError(err)
	req.Len(hits, 2)
}

func Test_Add_Same_Message_Twice_Updates_In_Place(t *testing.T) {
	req := require.New(t)
	index := newTestIndex(t)
	message := indexedMessage("singleton entry", time.Now().UTC())

	req.NoError(index.Add(message, "alice"))
	req.NoError(index.Add(message, "alice"))

	hits, err := index.Search(context.Background(), "singleton", 10)

	req.NoError(err)
	req.Len(hits, 1)
}
