package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

const menuRows = 6

// Menu lists key hints in columns of up to menuRows entries. Runs of
// numeric hints are folded into one range entry, e.g. <1-9>.
type Menu struct {
	*tview.TextView
	theme *Theme
}

func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)
	return &Menu{TextView: tv, theme: theme}
}

// foldNumeric collapses consecutive numeric hints into a single range.
func foldNumeric(hints []MenuHint) []MenuHint {
	out := make([]MenuHint, 0, len(hints))
	for i := 0; i < len(hints); {
		h := hints[i]
		if !h.Numeric {
			out = append(out, h)
			i++
			continue
		}
		j := i
		for j+1 < len(hints) && hints[j+1].Numeric {
			j++
		}
		if j > i {
			h = MenuHint{Key: hints[i].Key + "-" + hints[j].Key, Description: "Open dialog", Numeric: true}
		}
		out = append(out, h)
		i = j + 1
	}
	return out
}

// Update redraws the hints.
func (m *Menu) Update(hints []MenuHint) {
	hints = foldNumeric(hints)
	cols := (len(hints) + menuRows - 1) / menuRows
	widths := make([]int, cols)
	for i, h := range hints {
		if w := len(h.Key) + len(h.Description) + 3; w > widths[i/menuRows] {
			widths[i/menuRows] = w
		}
	}

	var b strings.Builder
	for row := 0; row < menuRows && row < len(hints); row++ {
		for col := 0; col < cols; col++ {
			i := col*menuRows + row
			if i >= len(hints) {
				break
			}
			h := hints[i]
			kc := m.theme.MenuKeyColor
			if h.Numeric {
				kc = m.theme.NumericKeyColor
			}
			pad := widths[col] - len(h.Key) - len(h.Description) - 3 + 2
			fmt.Fprintf(&b, "%s %s%s", Styled(kc, "b", "<"+h.Key+">"), h.Description, strings.Repeat(" ", pad))
		}
		b.WriteString("\n")
	}
	m.SetText(b.String())
}
