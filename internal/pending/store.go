// Package pending holds locally authored messages that the remote side has not
// confirmed yet.
package pending

import (
	"slices"

	"github.com/matheus3301/botchat/internal/bus"
	"github.com/matheus3301/botchat/internal/chat"
)

// Store is an ordered set of messages keyed by id. Every mutation replaces the
// published snapshot as a whole; a snapshot handed out is never modified.
type Store struct {
	cell *bus.Latest[[]chat.Message]
}

// New creates an empty store.
func New() *Store {
	return &Store{cell: bus.NewLatest([]chat.Message{})}
}

// Add appends msg. An entry with the same id is overwritten in place and keeps
// its position. Reports whether an entry was replaced.
func (s *Store) Add(msg chat.Message) bool {
	var replaced bool
	s.cell.Update(func(cur []chat.Message) []chat.Message {
		next := slices.Clone(cur)
		if i := indexOf(next, msg.ID); i >= 0 {
			next[i] = msg
			replaced = true
			return next
		}
		return append(next, msg)
	})
	return replaced
}

// Remove drops the entry with id. An absent id leaves the store untouched and
// publishes nothing. Reports whether an entry was removed.
func (s *Store) Remove(id string) bool {
	if indexOf(s.cell.Get(), id) < 0 {
		return false
	}
	var removed bool
	s.cell.Update(func(cur []chat.Message) []chat.Message {
		i := indexOf(cur, id)
		if i < 0 {
			return cur
		}
		removed = true
		return slices.Delete(slices.Clone(cur), i, i+1)
	})
	return removed
}

// SetStatus changes the status of the entry with id in place.
func (s *Store) SetStatus(id string, status chat.Status) bool {
	var found bool
	s.cell.Update(func(cur []chat.Message) []chat.Message {
		i := indexOf(cur, id)
		if i < 0 || cur[i].Status == status {
			found = i >= 0
			return cur
		}
		found = true
		next := slices.Clone(cur)
		next[i] = next[i].WithStatus(status)
		return next
	})
	return found
}

// Get returns the entry with id.
func (s *Store) Get(id string) (chat.Message, bool) {
	cur := s.cell.Get()
	if i := indexOf(cur, id); i >= 0 {
		return cur[i], true
	}
	return chat.Message{}, false
}

// List returns a copy of the entries in insertion order.
func (s *Store) List() []chat.Message {
	return slices.Clone(s.cell.Get())
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.cell.Get())
}

// Clear empties the store.
func (s *Store) Clear() {
	s.cell.Set([]chat.Message{})
}

// Subscribe returns a channel carrying the current snapshot followed by every
// later one. Snapshots must be treated as read-only.
func (s *Store) Subscribe() (<-chan []chat.Message, func()) {
	return s.cell.Subscribe()
}

func indexOf(msgs []chat.Message, id string) int {
	return slices.IndexFunc(msgs, func(m chat.Message) bool { return m.ID == id })
}
