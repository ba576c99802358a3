package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/botchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// StatusBar shows the profile, connectivity, queued count and flash, plus an
// offline banner while messages cannot be delivered.
type StatusBar struct {
	*tview.TextView
	theme     *ui.Theme
	profile   string
	online    bool
	connected bool
	pending   int
	hints     []string
	flash     string
}

// NewStatusBar creates a new status bar.
func NewStatusBar(theme *ui.Theme) *StatusBar {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BarBg)
	return &StatusBar{TextView: tv, theme: theme}
}

// SetProfile updates the profile name.
func (sb *StatusBar) SetProfile(name string) {
	sb.profile = name
	sb.render()
}

// SetConnectivity updates the network and connection indicators.
func (sb *StatusBar) SetConnectivity(online, connected bool, pending int) {
	sb.online, sb.connected, sb.pending = online, connected, pending
	sb.render()
}

// SetHints updates the key hints.
func (sb *StatusBar) SetHints(hints []string) {
	sb.hints = hints
	sb.render()
}

// SetFlash sets a temporary message.
func (sb *StatusBar) SetFlash(msg string) {
	sb.flash = msg
	sb.render()
}

func (sb *StatusBar) render() {
	sb.SetText(sb.line())
}

func (sb *StatusBar) line() string {
	var b strings.Builder
	if !sb.connected {
		reason := "not connected"
		if !sb.online {
			reason = "offline"
		}
		fmt.Fprintf(&b, "[%s:%s:b] %s, messages are queued [-:-:-] ",
			ui.Code(sb.theme.OfflineBannerFg), ui.Code(sb.theme.OfflineBannerBg), strings.ToUpper(reason))
	}
	fmt.Fprintf(&b, " [::b]%s[-:-:-]", sb.profile)
	if sb.pending > 0 {
		fmt.Fprintf(&b, " | %s%d queued[-]", ui.Tag(sb.theme.PendingColor), sb.pending)
	}
	if len(sb.hints) > 0 {
		fmt.Fprintf(&b, " | %s%s[-]", ui.Tag(sb.theme.KeyColor), strings.Join(sb.hints, " "))
	}
	if sb.flash != "" {
		fmt.Fprintf(&b, " | %s%s[-]", ui.Tag(sb.theme.FlashColor), sb.flash)
	}
	return b.String()
}
