package views

import (
	"strings"
	"testing"

	"github.com/matheus3301/botchat/internal/chat"
	"github.com/matheus3301/botchat/internal/tui/ui"
)

func TestSanitizeForTerminal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello", "hello"},
		{"skin tone", "\U0001F44D\U0001F3FB", "\U0001F44D"},
		{"zwj", "a\u200Db", "ab"},
		{"variation selector", "\u2764\uFE0F", "\u2764"},
		{"color tag", "[red]x", "[red[]x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeForTerminal(tt.input); got != tt.want {
				t.Errorf("sanitizeForTerminal(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRenderThreadMarksDeliveryState(t *testing.T) {
	theme := ui.DefaultTheme()
	out := renderThread(theme, []chat.Message{
		{ID: "1", Content: "hi bot", FromMe: true, Status: chat.StatusSent},
		{ID: "2", Content: "hello", Status: chat.StatusSent},
		{ID: "3", Content: "queued", FromMe: true, Status: chat.StatusPending},
		{ID: "4", Content: "broken", FromMe: true, Status: chat.StatusFailed},
	}, "Support Bot")

	for _, want := range []string{"You", "Support Bot", "pending", "failed, will retry", "hi bot", "hello"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered thread missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "hi bot") > strings.Index(out, "broken") {
		t.Error("messages should render in the given order")
	}
}

func TestStatusBarBanner(t *testing.T) {
	sb := NewStatusBar(ui.DefaultTheme())
	sb.SetProfile("main")

	sb.SetConnectivity(false, false, 2)
	line := sb.line()
	if !strings.Contains(line, "OFFLINE") || !strings.Contains(line, "2 queued") {
		t.Errorf("offline line = %q", line)
	}

	sb.SetConnectivity(true, false, 0)
	if line := sb.line(); !strings.Contains(line, "NOT CONNECTED") {
		t.Errorf("disconnected line = %q", line)
	}

	sb.SetConnectivity(true, true, 0)
	line = sb.line()
	if strings.Contains(line, "queued") || strings.Contains(line, "OFFLINE") {
		t.Errorf("online line = %q", line)
	}
}

func TestConversationListKeepsSelection(t *testing.T) {
	cl := NewConversationList(ui.DefaultTheme())
	cl.Update([]chat.Conversation{{ID: "1", Name: "Support Bot"}, {ID: "2", Name: "Sales Assistant"}})
	cl.Select(2, 0)
	if got := cl.SelectedConversation(); got != "2" {
		t.Fatalf("SelectedConversation() = %q, want 2", got)
	}

	cl.Update([]chat.Conversation{{ID: "2", Name: "Sales Assistant", LastMessage: "new"}, {ID: "1", Name: "Support Bot"}})
	if got := cl.SelectedConversation(); got != "2" {
		t.Errorf("after reorder SelectedConversation() = %q, want 2", got)
	}
}
