package views

import (
	"fmt"

	"github.com/matheus3301/soc/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

// Name implements Component.
func (hv *HelpView) Name() string { return "Help" }

// FocusTarget implements Component.
func (hv *HelpView) FocusTarget() tview.Primitive { return hv.TextView }

// Hints implements Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

func (hv *HelpView) render() {
	kc := ui.ColorTag(hv.theme.MenuKeyColor)
	key := func(k string) string { return fmt.Sprintf("[%s]%-16s[-:-:-]", kc, tview.Escape(k)) }

	sections := []struct {
		title string
		keys  [][2]string
	}{
		{"Global Keys", [][2]string{
			{":", "Command mode"},
			{"?", "Help"},
			{"Esc", "Cancel / Go back"},
			{"Ctrl-C", "Quit"},
		}},
		{"Dialogs", [][2]string{
			{"Enter", "Open dialog"},
			{"1-9", "Open Nth dialog"},
			{"/", "Filter dialogs"},
			{"0", "Clear filter"},
			{"n", "Start a new dialog"},
			{"q", "Quit"},
		}},
		{"Thread", [][2]string{
			{"Enter", "Send (in composer)"},
			{"Tab", "Switch between messages and composer"},
			{"Ctrl-R", "Refresh thread"},
			{"Esc", "Back to dialogs"},
		}},
		{"Commands (: mode)", [][2]string{
			{":open <name>", "Open a dialog by name"},
			{":new [query]", "Find a user to write to"},
			{":search <query>", "Search cached messages"},
			{":pic <url>", "Attach a picture to the next message"},
			{":refresh", "Reload dialogs and thread"},
			{":logout", "Log the session out"},
			{":help, :h", "Show this help"},
			{":quit, :q", "Quit"},
		}},
	}

	for _, sec := range sections {
		_, _ = fmt.Fprintf(hv, "\n  [::b]%s[-:-:-]\n\n", sec.title)
		for _, k := range sec.keys {
			_, _ = fmt.Fprintf(hv, "  %s %s\n", key(k[0]), k[1])
		}
	}
}
