package chat

import "testing"

func TestProjectPreviewAndUnread(t *testing.T) {
	msgs := []Message{
		{ID: "a", ChatID: "1", Content: "hi", Timestamp: 100, FromMe: true, Status: StatusSent},
		{ID: "b", ChatID: "1", Content: "hello, how can I help?", Timestamp: 200, Status: StatusSent},
		{ID: "c", ChatID: "2", Content: "quote please", Timestamp: 300, FromMe: true, Status: StatusPending},
	}

	convs := Project(DefaultSeeds(), msgs)
	if len(convs) != 3 {
		t.Fatalf("got %d conversations, want 3", len(convs))
	}

	if convs[0].ID != "2" || convs[1].ID != "1" || convs[2].ID != "3" {
		t.Fatalf("got order %s,%s,%s, want 2,1,3", convs[0].ID, convs[1].ID, convs[2].ID)
	}
	if convs[0].Unread != 0 || convs[0].Pending != 1 {
		t.Errorf("chat 2: got unread=%d pending=%d, want 0 and 1", convs[0].Unread, convs[0].Pending)
	}
	if convs[1].LastMessage != "hello, how can I help?" || convs[1].Unread != 1 {
		t.Errorf("chat 1: got preview %q unread=%d", convs[1].LastMessage, convs[1].Unread)
	}
	if convs[2].Name != "Feedback Bot" || convs[2].LastMessage != "" {
		t.Errorf("chat 3: got %+v, want empty Feedback Bot", convs[2])
	}
}

func TestProjectUnknownChat(t *testing.T) {
	convs := Project(nil, []Message{{ID: "x", ChatID: "42", Content: "yo", Timestamp: 1}})
	if len(convs) != 1 || convs[0].ID != "42" || convs[0].Name != "42" {
		t.Fatalf("got %+v, want ad-hoc conversation 42", convs)
	}
}

func TestThreadAscending(t *testing.T) {
	msgs := []Message{
		{ID: "3", ChatID: "1", Timestamp: 30},
		{ID: "x", ChatID: "2", Timestamp: 5},
		{ID: "1", ChatID: "1", Timestamp: 10},
		{ID: "2", ChatID: "1", Timestamp: 20},
	}
	got := Thread(msgs, "1")
	if len(got) != 3 {
		t.Fatalf("got %d messages, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp < got[i-1].Timestamp {
			t.Errorf("thread not ascending at %d: %d < %d", i, got[i].Timestamp, got[i-1].Timestamp)
		}
	}
}

func TestFeedDescendingStable(t *testing.T) {
	msgs := []Message{
		{ID: "a", Timestamp: 10},
		{ID: "b", Timestamp: 20},
		{ID: "c", Timestamp: 20},
	}
	got := Feed(msgs)
	want := []string{"b", "c", "a"}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}
	if msgs[0].ID != "a" {
		t.Error("Feed mutated its input")
	}
}

func TestWithStatusCopies(t *testing.T) {
	m := Message{ID: "a", Status: StatusPending}
	sent := m.WithStatus(StatusSent)
	if m.Status != StatusPending || sent.Status != StatusSent {
		t.Errorf("got %s/%s, want pending/sent", m.Status, sent.Status)
	}
}
