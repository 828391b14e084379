package views

import (
	"fmt"
	"strconv"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/soc/internal/backend"
	"github.com/matheus3301/soc/internal/tui/ui"
	"github.com/rivo/tview"
)

// DialogList is the main page: one row per conversation.
type DialogList struct {
	*tview.Table
	theme   *ui.Theme
	dialogs []backend.Dialog
	visible []backend.Dialog
	filter  string
	stale   string
}

// NewDialogList creates the dialog list table.
func NewDialogList(theme *ui.Theme) *DialogList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	dl := &DialogList{Table: table, theme: theme}
	dl.render()
	return dl
}

// Name implements Component.
func (dl *DialogList) Name() string { return "Dialogs" }

// FocusTarget implements Component.
func (dl *DialogList) FocusTarget() tview.Primitive { return dl.Table }

// Hints implements Component.
func (dl *DialogList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "n", Description: "New dialog"},
		{Key: "/", Description: "Filter"},
		{Key: "0-9", Description: "Jump", Numeric: true},
	}
}

// Update replaces the listed dialogs. lastErr is the most recent failed
// refresh, shown until the next good one.
func (dl *DialogList) Update(dialogs []backend.Dialog, lastErr string) {
	dl.dialogs = dialogs
	dl.stale = lastErr
	dl.render()
}

// SetFilter sets the active filter text and re-renders.
func (dl *DialogList) SetFilter(filter string) {
	dl.filter = filter
	dl.render()
}

// Filter returns the active filter.
func (dl *DialogList) Filter() string { return dl.filter }

func (dl *DialogList) render() {
	dl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 1},
		{" LAST MESSAGE", 2},
		{" UNREAD", 0},
	}
	for col, h := range headers {
		dl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(dl.theme.TableHeaderFg).
			SetBackgroundColor(dl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	dl.visible = MatchDialogs(dl.dialogs, dl.filter)
	for i, d := range dl.visible {
		row := i + 1
		name := d.Name
		if name == "" {
			name = "User " + strconv.FormatInt(d.PeerID, 10)
		}
		unread := ""
		color := dl.theme.FgColor
		if d.Unread > 0 {
			unread = strconv.Itoa(d.Unread)
			color = dl.theme.UnreadColor
		}
		dl.SetCell(row, 0, tview.NewTableCell(" "+cellText(name)).SetExpansion(1).SetTextColor(color))
		dl.SetCell(row, 1, tview.NewTableCell(" "+cellText(d.LastMessage)).SetExpansion(2).SetMaxWidth(60).SetTextColor(dl.theme.FgColor))
		dl.SetCell(row, 2, tview.NewTableCell(unread).SetAlign(tview.AlignRight).SetTextColor(color))
	}

	title := fmt.Sprintf(" Dialogs (%d) ", len(dl.dialogs))
	if dl.filter != "" {
		title = fmt.Sprintf(" Dialogs (%d/%d) filter: %s ", len(dl.visible), len(dl.dialogs), tview.Escape(dl.filter))
	}
	if dl.stale != "" {
		title += fmt.Sprintf("[%s::b]stale[-:-:-] ", ui.ColorTag(dl.theme.FlashWarnColor))
	}
	dl.SetTitle(title)
}

// Selected returns the dialog under the cursor.
func (dl *DialogList) Selected() (backend.Dialog, bool) {
	row, _ := dl.GetSelection()
	return dl.ByIndex(row)
}

// ByIndex returns the Nth visible dialog (1-based).
func (dl *DialogList) ByIndex(n int) (backend.Dialog, bool) {
	if n < 1 || n > len(dl.visible) {
		return backend.Dialog{}, false
	}
	return dl.visible[n-1], true
}
