package views

import (
	"strconv"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/soc/internal/store"
	"github.com/matheus3301/soc/internal/tui/ui"
	"github.com/rivo/tview"
)

// SearchView searches messages the daemon has cached.
type SearchView struct {
	*tview.Flex
	theme     *ui.Theme
	input     *tview.InputField
	results   *tview.Table
	data      []store.SearchResult
	peerName  func(peerID int64) string
	onQuery   func(query string)
	onOpenHit func(peerID int64)
}

// NewSearchView creates a new search view.
func NewSearchView(theme *ui.Theme) *SearchView {
	input := tview.NewInputField().
		SetLabel(" Search: ").
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
	results.SetTitle(" Results ")
	results.SetTitleColor(theme.TitleColor)
	results.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))

	sv := &SearchView{
		Flex: tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(input, 1, 0, true).
			AddItem(results, 0, 1, false),
		theme:   theme,
		input:   input,
		results: results,
	}

	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && sv.onQuery != nil && input.GetText() != "" {
			sv.onQuery(input.GetText())
		}
	})
	results.SetSelectedFunc(func(row, _ int) {
		if peer, ok := sv.peerAt(row); ok && sv.onOpenHit != nil {
			sv.onOpenHit(peer)
		}
	})
	return sv
}

// Name implements Component.
func (sv *SearchView) Name() string { return "Search" }

// FocusTarget implements Component.
func (sv *SearchView) FocusTarget() tview.Primitive { return sv.input }

// Hints implements Component.
func (sv *SearchView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Search/Open"},
		{Key: "Tab", Description: "Results"},
		{Key: "Esc", Description: "Back"},
	}
}

// SetOnQuery sets the callback when a search query is submitted.
func (sv *SearchView) SetOnQuery(fn func(query string)) { sv.onQuery = fn }

// SetOnOpen sets the callback for opening the dialog of a hit.
func (sv *SearchView) SetOnOpen(fn func(peerID int64)) { sv.onOpenHit = fn }

// SetPeerNames sets how peer ids are shown.
func (sv *SearchView) SetPeerNames(fn func(peerID int64) string) { sv.peerName = fn }

// SetQuery fills the query field.
func (sv *SearchView) SetQuery(q string) { sv.input.SetText(q) }

// Update refreshes search results.
func (sv *SearchView) Update(results []store.SearchResult) {
	sv.data = results
	sv.results.Clear()

	for col, h := range []string{" DIALOG", " SNIPPET", " TIME"} {
		sv.results.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(sv.theme.TableHeaderFg).
			SetBackgroundColor(sv.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold))
	}

	for i, r := range results {
		row := i + 1
		peer := strconv.FormatInt(r.Message.PeerID, 10)
		if sv.peerName != nil {
			if name := sv.peerName(r.Message.PeerID); name != "" {
				peer = name
			}
		}
		ts := ""
		if r.Message.SentAt != 0 {
			ts = formatTimestamp(time.UnixMilli(r.Message.SentAt))
		}
		sv.results.SetCell(row, 0, tview.NewTableCell(" "+cellText(peer)).SetMaxWidth(25).SetTextColor(sv.theme.FgColor))
		sv.results.SetCell(row, 1, tview.NewTableCell(" "+highlightSnippet(r.Snippet, sv.theme)).SetExpansion(1).SetTextColor(sv.theme.FgColor))
		sv.results.SetCell(row, 2, tview.NewTableCell(" "+ts).SetMaxWidth(12).SetTextColor(sv.theme.FgColor))
	}
	sv.results.SetTitle(" Results (" + strconv.Itoa(len(results)) + ") ")
}

func (sv *SearchView) peerAt(row int) (int64, bool) {
	idx := row - 1
	if idx < 0 || idx >= len(sv.data) {
		return 0, false
	}
	return sv.data[idx].Message.PeerID, true
}

// Input returns the search input field.
func (sv *SearchView) Input() *tview.InputField { return sv.input }

// Results returns the results table.
func (sv *SearchView) Results() *tview.Table { return sv.results }

// highlightSnippet turns the store's <<match>> markers into color tags.
func highlightSnippet(snippet string, theme *ui.Theme) string {
	s := cellText(snippet)
	s = strings.ReplaceAll(s, "<<", "["+ui.ColorTag(theme.CounterColor)+"::b]")
	return strings.ReplaceAll(s, ">>", "[-:-:-]")
}
