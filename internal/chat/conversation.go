package chat

import (
	"cmp"
	"slices"
)

// Seed is a configured conversation shown even before it has messages.
type Seed struct {
	ID   string
	Name string
}

// DefaultSeeds are the bot conversations available out of the box.
func DefaultSeeds() []Seed {
	return []Seed{
		{ID: "1", Name: "Support Bot"},
		{ID: "2", Name: "Sales Assistant"},
		{ID: "3", Name: "Feedback Bot"},
	}
}

// Conversation is the per-chat projection of the merged view.
type Conversation struct {
	ID            string
	Name          string
	LastMessage   string
	LastMessageAt int64
	Unread        int
	Pending       int
}

// Project derives one Conversation per seed plus one per unknown chat id found
// in msgs. The preview is the newest message; Unread is 1 when that message
// came from the other side. Conversations with messages come first, newest
// first; the rest keep seed order.
func Project(seeds []Seed, msgs []Message) []Conversation {
	order := make([]string, 0, len(seeds))
	byID := make(map[string]*Conversation, len(seeds))
	for _, s := range seeds {
		if _, dup := byID[s.ID]; dup {
			continue
		}
		byID[s.ID] = &Conversation{ID: s.ID, Name: s.Name}
		order = append(order, s.ID)
	}

	latest := make(map[string]Message)
	for _, m := range msgs {
		conv, ok := byID[m.ChatID]
		if !ok {
			conv = &Conversation{ID: m.ChatID, Name: m.ChatID}
			byID[m.ChatID] = conv
			order = append(order, m.ChatID)
		}
		if m.Status != StatusSent {
			conv.Pending++
		}
		if cur, seen := latest[m.ChatID]; !seen || m.Timestamp > cur.Timestamp {
			latest[m.ChatID] = m
		}
	}

	out := make([]Conversation, 0, len(order))
	for _, id := range order {
		conv := byID[id]
		if m, ok := latest[id]; ok {
			conv.LastMessage = m.Content
			conv.LastMessageAt = m.Timestamp
			if !m.FromMe {
				conv.Unread = 1
			}
		}
		out = append(out, *conv)
	}

	slices.SortStableFunc(out, func(a, b Conversation) int {
		_, aHas := latest[a.ID]
		_, bHas := latest[b.ID]
		switch {
		case aHas && !bHas:
			return -1
		case !aHas && bHas:
			return 1
		case !aHas && !bHas:
			return 0
		}
		return cmp.Compare(b.LastMessageAt, a.LastMessageAt)
	})
	return out
}

// Thread returns the messages of chatID in ascending timestamp order.
func Thread(msgs []Message, chatID string) []Message {
	out := make([]Message, 0)
	for _, m := range msgs {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b Message) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})
	return out
}

// Feed returns a copy of msgs ordered newest first. Ties keep input order.
func Feed(msgs []Message) []Message {
	out := slices.Clone(msgs)
	slices.SortStableFunc(out, func(a, b Message) int {
		return cmp.Compare(b.Timestamp, a.Timestamp)
	})
	return out
}
