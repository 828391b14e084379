package views

import (
	"time"

	"github.com/matheus3301/soc/internal/backend"
	"github.com/rivo/tview"
	"github.com/sahilm/fuzzy"
)

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.Local()
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}

// cellText escapes s for a table cell or text view.
func cellText(s string) string {
	return tview.Escape(sanitizeForTerminal(s))
}

type dialogSource []backend.Dialog

func (d dialogSource) String(i int) string { return d[i].Name + " " + d[i].LastMessage }

func (d dialogSource) Len() int { return len(d) }

// MatchDialogs keeps the dialogs fuzzy-matching filter, in list order.
func MatchDialogs(ds []backend.Dialog, filter string) []backend.Dialog {
	if filter == "" {
		return ds
	}
	matched := make([]bool, len(ds))
	for _, m := range fuzzy.FindFrom(filter, dialogSource(ds)) {
		matched[m.Index] = true
	}
	out := make([]backend.Dialog, 0, len(ds))
	for i, d := range ds {
		if matched[i] {
			out = append(out, d)
		}
	}
	return out
}
