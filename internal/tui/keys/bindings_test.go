package keys

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestHandleEventPrefersView(t *testing.T) {
	r := NewRegistry()
	var got string
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: 'q', Handler: func() { got = "quit" }})
	r.AddView("thread", &Action{Key: tcell.KeyRune, Rune: 'q', Handler: func() { got = "back" }})
	r.AddView("thread", &Action{Key: tcell.KeyCtrlR, Handler: func() { got = "refresh" }})

	tests := []struct {
		view string
		ev   *tcell.EventKey
		want string
	}{
		{"thread", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), "back"},
		{"dialogs", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), "quit"},
		{"thread", tcell.NewEventKey(tcell.KeyCtrlR, 0, tcell.ModCtrl), "refresh"},
	}
	for _, tt := range tests {
		got = ""
		if !r.HandleEvent(tt.view, tt.ev) {
			t.Errorf("%s: event not handled", tt.view)
		}
		if got != tt.want {
			t.Errorf("%s: ran %q, want %q", tt.view, got, tt.want)
		}
	}

	if r.HandleEvent("dialogs", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)) {
		t.Error("unbound key handled")
	}
}

func TestHintsOrder(t *testing.T) {
	r := NewRegistry()
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: '?', Description: "Help", Visible: true})
	r.AddGlobal(&Action{Key: tcell.KeyCtrlC, Description: "Quit"})
	r.AddView("dialogs", &Action{Key: tcell.KeyEnter, Description: "Open", Visible: true})
	r.AddView("dialogs", &Action{Key: tcell.KeyRune, Rune: 'n', Label: "n", Description: "New", Visible: true})

	hints := r.Hints("dialogs")
	want := []string{"Enter:Open", "n:New", "?:Help"}
	if len(hints) != len(want) {
		t.Fatalf("hints = %+v", hints)
	}
	for i, h := range hints {
		if got := h.Key + ":" + h.Description; got != want[i] {
			t.Errorf("hint %d = %q, want %q", i, got, want[i])
		}
	}
}
