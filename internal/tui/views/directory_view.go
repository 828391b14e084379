package views

import (
	"strconv"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/soc/internal/backend"
	"github.com/matheus3301/soc/internal/tui/ui"
	"github.com/rivo/tview"
)

// DirectoryView looks users up to start a conversation with.
type DirectoryView struct {
	*tview.Flex
	theme   *ui.Theme
	input   *tview.InputField
	results *tview.Table
	users   []backend.UserSummary
	onQuery func(query string)
	onPick  func(u backend.UserSummary)
}

// NewDirectoryView creates the user directory page.
func NewDirectoryView(theme *ui.Theme) *DirectoryView {
	input := tview.NewInputField().
		SetLabel(" Find user: ").
		SetFieldWidth(0)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	results := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	results.SetBorder(true)
	results.SetBorderColor(theme.BorderColor)
	results.SetBackgroundColor(theme.BgColor)
	results.SetTitle(" Users ")
	results.SetTitleColor(theme.TitleColor)
	results.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))

	dv := &DirectoryView{
		Flex: tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(input, 1, 0, true).
			AddItem(results, 0, 1, false),
		theme:   theme,
		input:   input,
		results: results,
	}

	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && dv.onQuery != nil {
			dv.onQuery(input.GetText())
		}
	})
	results.SetSelectedFunc(func(row, _ int) {
		if u, ok := dv.byRow(row); ok && dv.onPick != nil {
			dv.onPick(u)
		}
	})
	dv.Update(nil)
	return dv
}

// Name implements Component.
func (dv *DirectoryView) Name() string { return "New dialog" }

// FocusTarget implements Component.
func (dv *DirectoryView) FocusTarget() tview.Primitive { return dv.input }

// Hints implements Component.
func (dv *DirectoryView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Search/Start"},
		{Key: "Tab", Description: "Results"},
		{Key: "Esc", Description: "Back"},
	}
}

// SetOnQuery sets the callback for a submitted search. An empty query
// lists everyone.
func (dv *DirectoryView) SetOnQuery(fn func(query string)) { dv.onQuery = fn }

// SetOnPick sets the callback for a chosen user.
func (dv *DirectoryView) SetOnPick(fn func(u backend.UserSummary)) { dv.onPick = fn }

// Update lists users.
func (dv *DirectoryView) Update(users []backend.UserSummary) {
	dv.users = users
	dv.results.Clear()
	for col, h := range []string{" NAME", " USERNAME", " ID"} {
		dv.results.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(dv.theme.TableHeaderFg).
			SetBackgroundColor(dv.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold))
	}
	for i, u := range users {
		row := i + 1
		dv.results.SetCell(row, 0, tview.NewTableCell(" "+cellText(u.DisplayName())).SetExpansion(1).SetTextColor(dv.theme.FgColor))
		dv.results.SetCell(row, 1, tview.NewTableCell(" "+cellText(u.Username)).SetExpansion(1).SetTextColor(dv.theme.FgColor))
		dv.results.SetCell(row, 2, tview.NewTableCell(" "+strconv.FormatInt(u.ID, 10)).SetAlign(tview.AlignRight).SetTextColor(dv.theme.FgColor))
	}
}

func (dv *DirectoryView) byRow(row int) (backend.UserSummary, bool) {
	idx := row - 1
	if idx < 0 || idx >= len(dv.users) {
		return backend.UserSummary{}, false
	}
	return dv.users[idx], true
}

// Input returns the query field.
func (dv *DirectoryView) Input() *tview.InputField { return dv.input }

// Results returns the results table.
func (dv *DirectoryView) Results() *tview.Table { return dv.results }
