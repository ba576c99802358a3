package reconcile

import (
	"testing"

	"github.com/matheus3301/botchat/internal/chat"
)

func TestMergeExcludesConfirmedPending(t *testing.T) {
	queued := []chat.Message{
		{ID: "a", Timestamp: 10, Status: chat.StatusPending},
		{ID: "b", Timestamp: 30, Status: chat.StatusPending},
	}
	confirmed := []chat.Message{
		{ID: "a", Timestamp: 10, Status: chat.StatusSent},
		{ID: "c", Timestamp: 20, Status: chat.StatusSent},
	}

	got := Merge(queued, confirmed)
	want := []struct {
		id     string
		status chat.Status
	}{
		{"b", chat.StatusPending},
		{"c", chat.StatusSent},
		{"a", chat.StatusSent},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d messages, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].ID != w.id || got[i].Status != w.status {
			t.Errorf("position %d: got %s/%s, want %s/%s", i, got[i].ID, got[i].Status, w.id, w.status)
		}
	}
}

func TestMergeDeduplicatesWithinInputs(t *testing.T) {
	got := Merge(
		[]chat.Message{{ID: "p"}, {ID: "p"}},
		[]chat.Message{{ID: "r", Timestamp: 1}, {ID: "r", Timestamp: 2}},
	)
	if len(got) != 2 {
		t.Errorf("got %d messages, want 2", len(got))
	}
}

func TestMergeEmpty(t *testing.T) {
	if got := Merge(nil, nil); len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestUpsertReplacesAndPrepends(t *testing.T) {
	cur := []chat.Message{{ID: "x"}, {ID: "y"}}
	got := upsert(cur, chat.Message{ID: "y", Content: "new"})
	if len(got) != 2 || got[0].ID != "y" || got[0].Content != "new" || got[1].ID != "x" {
		t.Errorf("got %+v", got)
	}
	if cur[1].Content != "" {
		t.Error("upsert mutated its input")
	}
}
