package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// Crumb is one entry of the breadcrumb bar. Detail, when set, follows the
// label, e.g. the open dialog's name after "thread".
type Crumb struct {
	Label  string
	Detail string
}

// Crumbs shows how the user got to the current page.
type Crumbs struct {
	*tview.TextView
	theme *Theme
}

func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	return &Crumbs{TextView: tv, theme: theme}
}

// Update redraws the bar; the last crumb is the active one.
func (c *Crumbs) Update(trail []Crumb) {
	var b strings.Builder
	for i, cr := range trail {
		fg, bg, attrs := c.theme.CrumbInactiveFg, c.theme.CrumbInactiveBg, ""
		if i == len(trail)-1 {
			fg, bg, attrs = c.theme.CrumbActiveFg, c.theme.CrumbActiveBg, "b"
		}
		text := cr.Label
		if cr.Detail != "" {
			text += ": " + tview.Escape(cr.Detail)
		}
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "[%s:%s:%s] %s [-:-:-]", ColorTag(fg), ColorTag(bg), attrs, text)
	}
	c.SetText(b.String())
}
