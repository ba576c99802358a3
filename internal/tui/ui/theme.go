package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor         tcell.Color
	FgColor         tcell.Color
	BorderColor     tcell.Color
	TitleColor      tcell.Color
	HeaderColor     tcell.Color
	CursorFg        tcell.Color
	CursorBg        tcell.Color
	BarBg           tcell.Color
	KeyColor        tcell.Color
	PendingColor    tcell.Color
	FailedColor     tcell.Color
	OfflineBannerFg tcell.Color
	OfflineBannerBg tcell.Color
	FlashColor      tcell.Color
}

// DefaultTheme returns a k9s-inspired dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:         tcell.ColorBlack,
		FgColor:         tcell.ColorCadetBlue,
		BorderColor:     tcell.ColorDodgerBlue,
		TitleColor:      tcell.ColorFuchsia,
		HeaderColor:     tcell.ColorWhite,
		CursorFg:        tcell.ColorBlack,
		CursorBg:        tcell.ColorAqua,
		BarBg:           tcell.ColorNavy,
		KeyColor:        tcell.ColorDodgerBlue,
		PendingColor:    tcell.ColorOrange,
		FailedColor:     tcell.ColorOrangeRed,
		OfflineBannerFg: tcell.ColorBlack,
		OfflineBannerBg: tcell.ColorOrange,
		FlashColor:      tcell.ColorNavajoWhite,
	}
}

// Code renders c as a tview color name.
func Code(c tcell.Color) string {
	return fmt.Sprintf("#%06x", c.Hex())
}

// Tag renders c as a tview foreground color tag.
func Tag(c tcell.Color) string {
	return "[" + Code(c) + "]"
}
