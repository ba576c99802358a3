package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/botchat/internal/chat"
	"github.com/matheus3301/botchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// MessageThread shows one conversation, oldest first.
type MessageThread struct {
	*tview.TextView
	theme *ui.Theme
}

// NewMessageThread creates an empty thread view.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true).
		SetTitle(" Messages ").
		SetTitleColor(theme.TitleColor).
		SetBorderColor(theme.BorderColor).
		SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	return &MessageThread{TextView: tv, theme: theme}
}

// SetConversation updates the title.
func (mt *MessageThread) SetConversation(name string) {
	mt.SetTitle(fmt.Sprintf(" %s ", sanitizeForTerminal(name)))
}

// Update replaces the content with msgs and scrolls to the newest.
func (mt *MessageThread) Update(msgs []chat.Message, botName string) {
	mt.SetText(renderThread(mt.theme, msgs, botName))
	mt.ScrollToEnd()
}

func renderThread(theme *ui.Theme, msgs []chat.Message, botName string) string {
	var b strings.Builder
	for _, m := range msgs {
		sender := sanitizeForTerminal(botName)
		if m.FromMe {
			sender = "You"
		}
		fmt.Fprintf(&b, "[::b]%s[-:-:-] [::d]%s[-:-:-]%s\n%s\n\n",
			sender, formatTimestamp(m.Timestamp), statusMarker(theme, m), sanitizeForTerminal(m.Content))
	}
	return b.String()
}

func statusMarker(theme *ui.Theme, m chat.Message) string {
	if !m.FromMe {
		return ""
	}
	switch m.Status {
	case chat.StatusPending:
		return " " + ui.Tag(theme.PendingColor) + "pending[-]"
	case chat.StatusFailed:
		return " " + ui.Tag(theme.FailedColor) + "failed, will retry[-]"
	default:
		return " [::d]sent[-:-:-]"
	}
}
