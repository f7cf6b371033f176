// Package projection builds local read models from observed events.
// It does not emit events or interact with the UI directly.
package projection

import (
	"sync"
	"time"
)

// Entry is one received message as seen by a single client.
type Entry struct {
	Username string
	Text     string
	At       time.Time
}

// Timeline holds a simple local timeline of everything a client received.
// Safe for concurrent use: the session's read loop appends while the UI
// reads.
type Timeline struct {
	mu      sync.Mutex
	entries []Entry
}

func NewTimeline() *Timeline {
	return &Timeline{}
}

func (t *Timeline) Append(username, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, Entry{Username: username, Text: text, At: time.Now()})
}

// Entries returns a copy, preserving arrival order.
func (t *Timeline) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}
