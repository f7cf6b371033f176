//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"chat-relay/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	AppendMessage(message domain.Message) error
	ListAllMessages() ([]domain.Message, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// diskMessage is the storage representation of one log entry.
type diskMessage struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	SenderID  string `json:"sender_id"`
	Text      string `json:"text"`
	Lang      string `json:"lang,omitempty"`
	At        int64  `json:"at"`
}

// AppendMessage persists a message in BadgerDB.
// The key is formatted as "msg:{channel_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using the UUID as a collision disconnector if two
//     messages arrive at the same nanosecond.
func (m MessageRepository) AppendMessage(message domain.Message) error {
	key := fmt.Sprintf("msg:%s:%019d:%s",
		message.ChannelID,
		message.At.UnixNano(),
		message.ID,
	)
	bytes, err := json.Marshal(fromMessage(message))
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// ListAllMessages retrieves the whole log using a prefix scan.
// Thanks to the padded timestamp in the key, messages come back naturally
// sorted by insertion time.
func (m MessageRepository) ListAllMessages() ([]domain.Message, error) {
	var byteMessages [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("msg:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				copied := make([]byte, len(value))
				copy(copied, value)
				byteMessages = append(byteMessages, copied)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(byteMessages))
	for _, b := range byteMessages {
		var record diskMessage
		if err = json.Unmarshal(b, &record); err != nil {
			return nil, err
		}
		message, err := toMessage(record)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func fromMessage(message domain.Message) diskMessage {
	return diskMessage{
		ID:        message.ID.String(),
		ChannelID: message.ChannelID,
		SenderID:  message.SenderID.String(),
		Text:      message.Text,
		Lang:      message.Lang,
		At:        message.At.UnixNano(),
	}
}

func toMessage(record diskMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(record.ID)
	if err != nil {
		return domain.Message{}, err
	}
	senderID, err := uuid.Parse(record.SenderID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:        parsedID,
		ChannelID: record.ChannelID,
		SenderID:  senderID,
		Text:      record.Text,
		Lang:      record.Lang,
		At:        time.Unix(0, record.At).UTC(),
	}, nil
}
