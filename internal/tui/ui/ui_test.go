package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

func TestPagesStack(t *testing.T) {
	p := NewPages()
	var seen [][]string
	p.SetOnChange(func(stack []string) { seen = append(seen, stack) })
	for _, name := range []string{"dialogs", "thread", "help"} {
		p.AddPage(name, tview.NewBox(), true, false)
	}

	p.Reset("dialogs")
	p.Push("thread")
	p.Push("help")
	if got := strings.Join(p.Stack(), ">"); got != "dialogs>thread>help" {
		t.Errorf("Stack() = %s", got)
	}
	if front, _ := p.GetFrontPage(); front != "help" {
		t.Errorf("front page = %s, want help", front)
	}

	if top := p.Pop(); top != "help" {
		t.Errorf("Pop() = %s, want help", top)
	}
	if p.Current() != "thread" || p.Depth() != 2 {
		t.Errorf("after Pop: current %s depth %d", p.Current(), p.Depth())
	}
	if len(seen) != 4 {
		t.Errorf("onChange fired %d times, want 4", len(seen))
	}

	if !p.Contains("dialogs") || p.Contains("help") {
		t.Errorf("Contains() wrong for %v", p.Stack())
	}

	p.Reset("dialogs")
	if p.Depth() != 1 || p.Current() != "dialogs" {
		t.Errorf("after Reset: %v", p.Stack())
	}
	p.Pop()
	if p.Pop() != "" || p.Current() != "" {
		t.Error("Pop on empty stack returned a page")
	}
}

func TestFlashModel(t *testing.T) {
	now := time.Now()
	f := NewFlashModel()
	f.now = func() time.Time { return now }
	if f.GetMessage() != nil {
		t.Error("fresh model has a message")
	}

	f.Err(errors.New("send failed"))
	msg := f.GetMessage()
	if msg == nil || msg.Level != FlashErr || msg.Text != "send failed" || msg.Repeat != 0 {
		t.Errorf("GetMessage() = %+v", msg)
	}
	select {
	case got := <-f.Watch():
		if got.Text != "send failed" {
			t.Errorf("watched %q", got.Text)
		}
	default:
		t.Error("nothing sent on the watch channel")
	}

	f.ErrText("send failed")
	if msg := f.GetMessage(); msg == nil || msg.Repeat != 1 {
		t.Errorf("repeated message = %+v, want Repeat 1", msg)
	}
	f.Warn("other")
	if msg := f.GetMessage(); msg == nil || msg.Repeat != 0 || msg.Level != FlashWarn {
		t.Errorf("new message = %+v", msg)
	}

	now = now.Add(flashTTL[FlashWarn])
	if f.GetMessage() != nil {
		t.Error("expired message still shown")
	}
	f.Info("hi")
	f.Clear()
	if f.GetMessage() != nil {
		t.Error("message shown after Clear")
	}
}

func TestFlashBarRepeat(t *testing.T) {
	fb := NewFlashBar(DefaultTheme())
	fb.Update(&FlashMessage{Text: "backend down", Level: FlashErr, Repeat: 2})
	if got := fb.GetText(true); !strings.Contains(got, "backend down (x3)") {
		t.Errorf("flash bar = %q", got)
	}
	fb.Update(nil)
	if fb.GetText(true) != "" {
		t.Error("flash bar not cleared")
	}
}

func TestMenuFoldsNumeric(t *testing.T) {
	hints := []MenuHint{{Key: "n", Description: "New"}}
	for _, k := range []string{"1", "2", "3"} {
		hints = append(hints, MenuHint{Key: k, Description: "Open " + k, Numeric: true})
	}
	hints = append(hints, MenuHint{Key: "?", Description: "Help"})

	got := foldNumeric(hints)
	if len(got) != 3 || got[1].Key != "1-3" || !got[1].Numeric {
		t.Fatalf("foldNumeric() = %+v", got)
	}

	m := NewMenu(DefaultTheme())
	m.Update(hints)
	text := m.GetText(true)
	for _, want := range []string{"<n>", "<1-3>", "<?>"} {
		if !strings.Contains(text, want) {
			t.Errorf("menu missing %q:\n%s", want, text)
		}
	}
}

func TestCrumbs(t *testing.T) {
	c := NewCrumbs(DefaultTheme())
	c.Update([]Crumb{{Label: "dialogs"}, {Label: "thread", Detail: "Ann [x]"}})
	text := c.GetText(true)
	if !strings.Contains(text, "dialogs") || !strings.Contains(text, "thread: Ann [x]") {
		t.Errorf("crumbs = %q", text)
	}
}

func TestPromptCompletionAndHistory(t *testing.T) {
	p := NewPrompt(DefaultTheme())
	p.SetCommands([]string{"open", "logout", "search"})
	var submitted []string
	p.SetOnSubmit(func(_ PromptMode, text string) { submitted = append(submitted, text) })

	p.Activate(PromptCommand)
	if got := p.complete("o"); len(got) != 1 || got[0] != "open" {
		t.Errorf("complete(o) = %v", got)
	}
	if got := p.complete("open ann"); got != nil {
		t.Errorf("complete with args = %v", got)
	}

	for _, cmd := range []string{"open ann", "open ann", "search hi"} {
		p.SetText(cmd)
		p.done(tcell.KeyEnter)
	}
	if h := p.History(); len(h) != 2 || h[1] != "search hi" {
		t.Errorf("History() = %v", h)
	}
	if len(submitted) != 3 {
		t.Errorf("submitted %d commands, want 3", len(submitted))
	}

	p.Activate(PromptCommand)
	p.captureHistory(tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone))
	if p.GetText() != "search hi" {
		t.Errorf("history up = %q", p.GetText())
	}
	p.captureHistory(tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone))
	if p.GetText() != "" {
		t.Errorf("history down past the end = %q", p.GetText())
	}

	p.Activate(PromptFilter)
	if got := p.complete("o"); got != nil {
		t.Errorf("filter mode completes: %v", got)
	}
}

func TestColorTag(t *testing.T) {
	if got := ColorTag(tcell.ColorOrange); got != "orange" {
		t.Errorf("ColorTag(orange) = %q", got)
	}
	if got := ColorTag(tcell.NewRGBColor(1, 2, 3)); got != "#010203" {
		t.Errorf("ColorTag(rgb) = %q", got)
	}
}

func TestSessionInfo(t *testing.T) {
	si := NewSessionInfo(DefaultTheme())
	si.Update(&SessionData{
		Session:   "main",
		Username:  "ann",
		Status:    "DEGRADED",
		Dialogs:   3,
		SyncedAt:  time.Now(),
		LastError: "timeout",
		Uptime:    90 * time.Minute,
	})
	text := si.GetText(true)
	for _, want := range []string{"main", "ann", "DEGRADED", "3", "(stale)", "1h30m"} {
		if !strings.Contains(text, want) {
			t.Errorf("session info missing %q:\n%s", want, text)
		}
	}
}
