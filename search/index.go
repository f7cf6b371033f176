// Package search maintains a full-text index over the message log,
// answering the /search command with replayable history entries.
package search

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chat-relay/domain"

	"github.com/blugelabs/bluge"
)

type Index struct {
	mu     sync.Mutex
	writer *bluge.Writer
	log    *slog.Logger
}

// Hit is one matching history entry, carrying the stored fields needed for
// a replay-style delivery.
type Hit struct {
	Author string
	Text   string
	At     time.Time
}

func Open(path string, log *slog.Logger) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, err
	}
	return &Index{writer: writer, log: log}, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}

// Add indexes one appended message. The author's display name is denormalized
// into the document so search results need no identity lookup.
func (i *Index) Add(message domain.Message, author string) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField("text", message.Text).StoreValue()).
		AddField(bluge.NewTextField("author", author).StoreValue()).
		AddField(bluge.NewStoredOnlyField("at", []byte(message.At.Format(time.RFC3339Nano))))

	i.mu.Lock()
	defer i.mu.Unlock()
	return i.writer.Update(doc.ID(), doc)
}

// Search runs a match query against message text and returns at most limit
// hits, best score first.
func (i *Index) Search(ctx context.Context, terms string, limit int) ([]Hit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("failed to close index reader", "error", err)
		}
	}()

	query := bluge.NewMatchQuery(terms).SetField("text")
	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			return hits, nil
		}

		var hit Hit
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "author":
				hit.Author = string(value)
			case "text":
				hit.Text = string(value)
			case "at":
				if at, err := time.Parse(time.RFC3339Nano, string(value)); err == nil {
					hit.At = at
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
}
