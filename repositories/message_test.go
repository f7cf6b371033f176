package repositories

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
)

func Test_Append_And_List_Messages_In_Chronological_Order(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(newTestDB(t), slog.Default())
	sender := uuid.New()
	at := time.Now().UTC().Truncate(time.Second)

	messages := []domain.Message{
		{ID: uuid.New(), ChannelID: "1", SenderID: sender, Text: "first", At: at},
		{ID: uuid.New(), ChannelID: "1", SenderID: sender, Text: "second", At: at.Add(1 * time.Minute)},
		{ID: uuid.New(), ChannelID: "1", SenderID: sender, Text: "third", At: at.Add(2 * time.Minute)},
	}

	// Insert out of order: the padded timestamp in the key restores order
	for _, i := range []int{2, 0, 1} {
		req.NoError(repository.AppendMessage(messages[i]))
	}

	fetched, err := repository.ListAllMessages()
	req.NoError(err)
	req.Len(fetched, 3)
	for i, message := range fetched {
		req.Equal(messages[i].Text, message.Text)
		req.Equal(messages[i].ID, message.ID)
		req.True(messages[i].At.Equal(message.At))
	}
}

func Test_Append_Same_Nanosecond_Keeps_Both(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(newTestDB(t), slog.Default())
	at := time.Now().UTC()

	// Two messages at the same instant: the uuid in the key disambiguates
	for i := 0; i < 2; i++ {
		req.NoError(repository.AppendMessage(domain.Message{
			ID:       uuid.New(),
			SenderID: uuid.New(),
			Text:     fmt.Sprintf("twin %d", i),
			At:       at,
		}))
	}

	fetched, err := repository.ListAllMessages()
	req.NoError(err)
	req.Len(fetched, 2)
}

func Test_List_Messages_Empty_Log(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(newTestDB(t), slog.Default())

	fetched, err := repository.ListAllMessages()

	req.NoError(err)
	req.Empty(fetched)
}

func Test_Message_Roundtrip_Preserves_Lang(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(newTestDB(t), slog.Default())

	original := domain.Message{
		ID:        uuid.New(),
		ChannelID: "1",
		SenderID:  uuid.New(),
		Text:      "bonjour tout le monde",
		Lang:      "fr",
		At:        time.Now().UTC(),
	}
	req.NoError(repository.AppendMessage(original))

	fetched, err := repository.ListAllMessages()
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("fr", fetched[0].Lang)
	req.Equal(original.SenderID, fetched[0].SenderID)
}
