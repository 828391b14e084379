package ui

import (
	"strings"

	"github.com/rivo/tview"
)

var logoArt = []string{
	`┌─┐┌─┐┌─┐`,
	`└─┐│ ││  `,
	`└─┘└─┘└─┘`,
}

// Logo is the header's top-right badge.
type Logo struct {
	*tview.TextView
}

func NewLogo(theme *Theme) *Logo {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(1, 0, 1, 0)

	lines := make([]string, 0, len(logoArt)+1)
	for _, l := range logoArt {
		lines = append(lines, Styled(theme.TitleColor, "b", " "+l))
	}
	lines = append(lines, Styled(theme.FgColor, "", " messages"))
	tv.SetText(strings.Join(lines, "\n"))
	return &Logo{TextView: tv}
}
