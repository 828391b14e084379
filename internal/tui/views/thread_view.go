package views

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/soc/internal/api"
	"github.com/matheus3301/soc/internal/backend"
	"github.com/matheus3301/soc/internal/tui/ui"
	"github.com/rivo/tview"
)

// ThreadView shows the selected conversation and a composer under it.
type ThreadView struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	dialog   backend.Dialog
	picture  string
	onSend   func(text, pictureURL string)
}

// NewThreadView creates a new thread view.
func NewThreadView(theme *ui.Theme) *ThreadView {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitleColor(theme.TitleColor)

	tv := &ThreadView{
		Flex: tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(messages, 0, 1, false).
			AddItem(composer, 3, 0, true),
		theme:    theme,
		messages: messages,
		composer: composer,
	}
	tv.SetSending(false)

	composer.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && tv.onSend != nil {
			tv.onSend(composer.GetText(), tv.picture)
		}
	})
	return tv
}

// Name implements Component.
func (tv *ThreadView) Name() string {
	if tv.dialog.Name != "" {
		return tv.dialog.Name
	}
	return "Thread"
}

// FocusTarget implements Component.
func (tv *ThreadView) FocusTarget() tview.Primitive { return tv.composer }

// Hints implements Component.
func (tv *ThreadView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Send"},
		{Key: "Tab", Description: "Scroll/Compose"},
		{Key: "Ctrl-R", Description: "Refresh"},
		{Key: "Esc", Description: "Back"},
	}
}

// SetOnSend sets the callback run when Enter is pressed in the composer.
// The composer keeps its text; ClearComposer empties it.
func (tv *ThreadView) SetOnSend(fn func(text, pictureURL string)) {
	tv.onSend = fn
}

// Open switches the view to dlg with an empty thread and composer.
func (tv *ThreadView) Open(dlg backend.Dialog) {
	tv.dialog = dlg
	tv.messages.Clear()
	tv.messages.SetTitle(fmt.Sprintf(" %s ", cellText(tv.Name())))
	tv.ClearComposer()
}

// Dialog returns the open dialog.
func (tv *ThreadView) Dialog() backend.Dialog { return tv.dialog }

// SetPicture attaches a picture URL to the next message.
func (tv *ThreadView) SetPicture(url string) {
	tv.picture = strings.TrimSpace(url)
	tv.SetSending(false)
}

// ClearComposer empties the composer and drops the attached picture.
func (tv *ThreadView) ClearComposer() {
	tv.composer.SetText("")
	tv.picture = ""
	tv.SetSending(false)
}

// SetSending marks the composer busy while a send is in flight.
func (tv *ThreadView) SetSending(sending bool) {
	title := " Compose "
	switch {
	case sending:
		title = " Sending... "
	case tv.picture != "":
		title = " Compose (picture attached) "
	}
	tv.composer.SetTitle(title)
}

// Update redraws the thread. Own messages are labelled "You"; the rest
// carry the dialog's name.
func (tv *ThreadView) Update(msgs []api.ThreadMessage) {
	tv.messages.Clear()
	peer := cellText(tv.Name())
	mine := ui.ColorTag(tv.theme.MineColor)
	other := ui.ColorTag(tv.theme.PeerColor)

	for _, m := range msgs {
		sender, color := peer, other
		if m.Mine {
			sender, color = "You", mine
		}
		_, _ = fmt.Fprintf(tv.messages, "[%s::b]%s[-:-:-] [::d]%s[-:-:-]\n", color, sender, formatTimestamp(m.SentAt))
		if m.Content != "" {
			_, _ = fmt.Fprintf(tv.messages, "%s\n", cellText(m.Content))
		}
		if m.PictureURL != "" {
			_, _ = fmt.Fprintf(tv.messages, "[::d](picture) %s[-:-:-]\n", cellText(m.PictureURL))
		}
		_, _ = fmt.Fprint(tv.messages, "\n")
	}
	if len(msgs) == 0 {
		_, _ = fmt.Fprint(tv.messages, "[::d]No messages yet. Say hello.[-:-:-]")
	}
	tv.messages.ScrollToEnd()
}

// Messages returns the message pane.
func (tv *ThreadView) Messages() *tview.TextView { return tv.messages }

// Composer returns the composer input field.
func (tv *ThreadView) Composer() *tview.InputField { return tv.composer }

// Draft returns the composer text.
func (tv *ThreadView) Draft() string { return tv.composer.GetText() }
