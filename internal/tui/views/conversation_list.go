package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/botchat/internal/chat"
	"github.com/matheus3301/botchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationList is the table of conversations.
type ConversationList struct {
	*tview.Table
	theme *ui.Theme
	convs []chat.Conversation
}

// NewConversationList creates an empty conversation table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	table.SetBorder(true).
		SetTitle(" Conversations ").
		SetTitleColor(theme.TitleColor).
		SetBorderColor(theme.BorderColor).
		SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.Foreground(theme.CursorFg).Background(theme.CursorBg))
	return &ConversationList{Table: table, theme: theme}
}

// Update redraws the table, keeping the cursor on the same conversation.
func (cl *ConversationList) Update(convs []chat.Conversation) {
	selected := cl.SelectedConversation()
	cl.convs = convs
	cl.Clear()

	for col, title := range []string{" Name", " Last Message", " Time"} {
		cl.SetCell(0, col, tview.NewTableCell(title).
			SetSelectable(false).
			SetTextColor(cl.theme.HeaderColor))
	}

	cursor := 1
	for i, c := range convs {
		row := i + 1
		name := sanitizeForTerminal(c.Name)
		if c.Unread > 0 {
			name = "* " + name
		}
		if c.Pending > 0 {
			name = fmt.Sprintf("%s %s(%d queued)[-]", name, ui.Tag(cl.theme.PendingColor), c.Pending)
		}
		cl.SetCell(row, 0, tview.NewTableCell(" "+name).SetMaxWidth(36).SetExpansion(1).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 1, tview.NewTableCell(" "+sanitizeForTerminal(c.LastMessage)).SetMaxWidth(48).SetExpansion(2).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 2, tview.NewTableCell(" "+formatTimestamp(c.LastMessageAt)).SetMaxWidth(12).SetTextColor(cl.theme.FgColor))
		if c.ID == selected {
			cursor = row
		}
	}
	if len(convs) > 0 {
		cl.Select(cursor, 0)
	}
}

// SelectedConversation returns the id under the cursor.
func (cl *ConversationList) SelectedConversation() string {
	row, _ := cl.GetSelection()
	idx := row - 1
	if idx >= 0 && idx < len(cl.convs) {
		return cl.convs[idx].ID
	}
	return ""
}

func formatTimestamp(ms int64) string {
	if ms == 0 {
		return ""
	}
	t := time.UnixMilli(ms)
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}
