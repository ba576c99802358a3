package views

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/botchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// Composer is the text input for sending messages.
type Composer struct {
	*tview.InputField
	onSend func(text string)
}

// NewComposer creates a new message composer.
func NewComposer(theme *ui.Theme) *Composer {
	input := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0).
		SetLabelColor(theme.KeyColor).
		SetFieldBackgroundColor(theme.BgColor).
		SetFieldTextColor(theme.FgColor)

	c := &Composer{InputField: input}
	input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter || c.onSend == nil {
			return
		}
		text := c.GetText()
		if strings.TrimSpace(text) == "" {
			return
		}
		c.onSend(text)
		c.SetText("")
	})
	return c
}

// SetOnSend sets the callback for Enter.
func (c *Composer) SetOnSend(fn func(text string)) {
	c.onSend = fn
}
