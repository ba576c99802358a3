package reconcile

import (
	"github.com/matheus3301/botchat/internal/chat"
)

// Merge combines queued and confirmed messages into one feed, newest first.
// A queued message whose id already appears among the confirmed ones is
// left out, and every id appears once. Ties keep confirmed messages first.
func Merge(queued, confirmed []chat.Message) []chat.Message {
	seen := make(map[string]struct{}, len(queued)+len(confirmed))
	out := make([]chat.Message, 0, len(queued)+len(confirmed))
	for _, group := range [][]chat.Message{confirmed, queued} {
		for _, m := range group {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m)
		}
	}
	return chat.Feed(out)
}

// upsert returns msgs with any entry carrying m.ID removed and m prepended.
func upsert(msgs []chat.Message, m chat.Message) []chat.Message {
	out := make([]chat.Message, 0, len(msgs)+1)
	out = append(out, m)
	for _, cur := range msgs {
		if cur.ID != m.ID {
			out = append(out, cur)
		}
	}
	return out
}
