package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Theme is the TUI palette.
type Theme struct {
	BgColor     tcell.Color
	FgColor     tcell.Color
	BorderColor tcell.Color
	TitleColor  tcell.Color

	TableHeaderFg tcell.Color
	TableHeaderBg tcell.Color
	TableCursorFg tcell.Color
	TableCursorBg tcell.Color

	CrumbActiveFg   tcell.Color
	CrumbActiveBg   tcell.Color
	CrumbInactiveFg tcell.Color
	CrumbInactiveBg tcell.Color

	MenuKeyColor      tcell.Color
	NumericKeyColor   tcell.Color
	CounterColor      tcell.Color
	PromptBorderColor tcell.Color

	FlashInfoColor tcell.Color
	FlashWarnColor tcell.Color
	FlashErrColor  tcell.Color

	// Message attribution and unread counters.
	MineColor   tcell.Color
	PeerColor   tcell.Color
	UnreadColor tcell.Color
}

// DefaultTheme is a dark palette with blue chrome and green own messages.
func DefaultTheme() *Theme {
	const (
		chrome = tcell.ColorDodgerBlue
		accent = tcell.ColorFuchsia
		warn   = tcell.ColorOrange
	)
	return &Theme{
		BgColor:     tcell.ColorBlack,
		FgColor:     tcell.ColorCadetBlue,
		BorderColor: chrome,
		TitleColor:  accent,

		TableHeaderFg: tcell.ColorWhite,
		TableHeaderBg: tcell.ColorBlack,
		TableCursorFg: tcell.ColorBlack,
		TableCursorBg: tcell.ColorAqua,

		CrumbActiveFg:   tcell.ColorBlack,
		CrumbActiveBg:   warn,
		CrumbInactiveFg: tcell.ColorBlack,
		CrumbInactiveBg: tcell.ColorAqua,

		MenuKeyColor:      chrome,
		NumericKeyColor:   accent,
		CounterColor:      tcell.ColorPapayaWhip,
		PromptBorderColor: chrome,

		FlashInfoColor: tcell.ColorNavajoWhite,
		FlashWarnColor: warn,
		FlashErrColor:  tcell.ColorOrangeRed,

		MineColor:   tcell.ColorLightGreen,
		PeerColor:   tcell.ColorLightSkyBlue,
		UnreadColor: warn,
	}
}

// ColorTag returns c as used inside tview color tags: a color name when
// tcell has one, else #rrggbb.
func ColorTag(c tcell.Color) string {
	for name, val := range tcell.ColorNames {
		if val == c {
			return name
		}
	}
	return fmt.Sprintf("#%06x", c.Hex())
}

// Styled wraps text in a foreground color tag with optional attributes
// ("b", "u", ...) and resets afterwards.
func Styled(c tcell.Color, attrs, text string) string {
	return fmt.Sprintf("[%s::%s]%s[-:-:-]", ColorTag(c), attrs, text)
}
