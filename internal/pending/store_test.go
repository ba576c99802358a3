package pending

import (
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/botchat/internal/chat"
)

func msg(id string) chat.Message {
	return chat.Message{ID: id, ChatID: "1", Content: "body " + id, Status: chat.StatusPending}
}

func ids(msgs []chat.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestAddKeepsInsertionOrder(t *testing.T) {
	s := New()
	s.Add(msg("a"))
	s.Add(msg("b"))
	s.Add(msg("c"))

	got := ids(s.List())
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestAddDuplicateOverwritesInPlace(t *testing.T) {
	s := New()
	s.Add(msg("a"))
	s.Add(msg("b"))

	updated := msg("a")
	updated.Content = "edited"
	if !s.Add(updated) {
		t.Error("Add of existing id did not report a replacement")
	}

	list := s.List()
	if len(list) != 2 {
		t.Fatalf("got %d entries, want 2", len(list))
	}
	if list[0].ID != "a" || list[0].Content != "edited" {
		t.Errorf("got %+v, want edited a at position 0", list[0])
	}
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	s := New()
	s.Add(msg("a"))

	ch, unsub := s.Subscribe()
	defer unsub()
	<-ch

	if s.Remove("missing") {
		t.Error("Remove of absent id reported a removal")
	}
	select {
	case snap := <-ch:
		t.Errorf("absent remove published %v", ids(snap))
	case <-time.After(30 * time.Millisecond):
	}
	if s.Len() != 1 {
		t.Errorf("got len %d, want 1", s.Len())
	}
}

func TestRemove(t *testing.T) {
	s := New()
	s.Add(msg("a"))
	s.Add(msg("b"))
	if !s.Remove("a") {
		t.Fatal("Remove(a) = false")
	}
	if _, ok := s.Get("a"); ok {
		t.Error("a still present")
	}
	if got := ids(s.List()); len(got) != 1 || got[0] != "b" {
		t.Errorf("got %v, want [b]", got)
	}
}

func TestListIsACopy(t *testing.T) {
	s := New()
	s.Add(msg("a"))
	list := s.List()
	list[0].Content = "mutated"

	got, _ := s.Get("a")
	if got.Content != "body a" {
		t.Errorf("store mutated through List copy: %q", got.Content)
	}
}

func TestSnapshotsAreImmutable(t *testing.T) {
	s := New()
	s.Add(msg("a"))

	ch, unsub := s.Subscribe()
	defer unsub()
	first := <-ch

	s.Add(msg("b"))
	s.SetStatus("a", chat.StatusFailed)

	if len(first) != 1 || first[0].Status != chat.StatusPending {
		t.Errorf("earlier snapshot changed: %+v", first)
	}
}

func TestSetStatus(t *testing.T) {
	s := New()
	s.Add(msg("a"))
	if !s.SetStatus("a", chat.StatusFailed) {
		t.Fatal("SetStatus(a) = false")
	}
	got, _ := s.Get("a")
	if got.Status != chat.StatusFailed {
		t.Errorf("got %s, want failed", got.Status)
	}
	if s.SetStatus("zzz", chat.StatusFailed) {
		t.Error("SetStatus on absent id = true")
	}
}

func TestClear(t *testing.T) {
	s := New()
	s.Add(msg("a"))
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("got len %d, want 0", s.Len())
	}
}

func TestSubscribeReplaysAndPublishes(t *testing.T) {
	s := New()
	s.Add(msg("a"))

	ch, unsub := s.Subscribe()
	defer unsub()

	select {
	case snap := <-ch:
		if len(snap) != 1 {
			t.Fatalf("got %v, want [a]", ids(snap))
		}
	case <-time.After(time.Second):
		t.Fatal("no replayed snapshot")
	}

	s.Add(msg("b"))
	select {
	case snap := <-ch:
		if len(snap) != 2 {
			t.Errorf("got %v, want [a b]", ids(snap))
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot after Add")
	}
}

func TestConcurrentAddRemove(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		id := string(rune('A' + i))
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Add(msg(id))
		}()
		go func() {
			defer wg.Done()
			_ = s.List()
		}()
	}
	wg.Wait()
	if s.Len() != 50 {
		t.Errorf("got len %d, want 50", s.Len())
	}
}
