package keys

import (
	"reflect"
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestPageBindingWinsOverGlobal(t *testing.T) {
	r := NewRegistry()
	var got string
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: 'c', Description: "c:global", Handler: func() { got = "global" }})
	r.AddPage("thread", &Action{Key: tcell.KeyRune, Rune: 'c', Description: "c:page", Handler: func() { got = "page" }})

	ev := tcell.NewEventKey(tcell.KeyRune, 'c', tcell.ModNone)
	if !r.HandleEvent("thread", ev) || got != "page" {
		t.Errorf("thread: handled by %q, want page", got)
	}
	if !r.HandleEvent("list", ev) || got != "global" {
		t.Errorf("list: handled by %q, want global", got)
	}
	if r.HandleEvent("list", tcell.NewEventKey(tcell.KeyRune, 'z', tcell.ModNone)) {
		t.Error("unbound key should not be handled")
	}
}

func TestSpecialKeys(t *testing.T) {
	r := NewRegistry()
	called := false
	r.AddGlobal(&Action{Key: tcell.KeyF5, Description: "F5:refresh", Handler: func() { called = true }})

	if !r.HandleEvent("list", tcell.NewEventKey(tcell.KeyF5, 0, tcell.ModNone)) || !called {
		t.Error("F5 should trigger the action")
	}
}

func TestHintsOrder(t *testing.T) {
	r := NewRegistry()
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: 'q', Description: "q:quit", Handler: func() {}})
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: 'x', Description: "x:hidden", Handler: func() {}, Hidden: true})
	r.AddPage("list", &Action{Key: tcell.KeyEnter, Description: "enter:open", Handler: func() {}})

	want := []string{"enter:open", "q:quit"}
	if got := r.Hints("list"); !reflect.DeepEqual(got, want) {
		t.Errorf("Hints(list) = %v, want %v", got, want)
	}
}
