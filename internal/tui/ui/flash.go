package ui

import (
	"strconv"
	"sync"
	"time"

	"github.com/rivo/tview"
)

// FlashLevel is the severity of a flash message.
type FlashLevel int

const (
	FlashInfo FlashLevel = iota
	FlashWarn
	FlashErr
)

var flashTTL = map[FlashLevel]time.Duration{
	FlashInfo: 5 * time.Second,
	FlashWarn: 8 * time.Second,
	FlashErr:  10 * time.Second,
}

// FlashMessage is a transient status line.
type FlashMessage struct {
	Text    string
	Level   FlashLevel
	Expires time.Time
	// Repeat counts identical messages flashed while this one was shown.
	Repeat int
}

// FlashModel holds the current flash message. Repeating the message on
// screen extends it and bumps its counter instead of replacing it, so a
// failing poll does not flicker.
type FlashModel struct {
	mu      sync.Mutex
	current FlashMessage
	now     func() time.Time
	watchCh chan FlashMessage
}

func NewFlashModel() *FlashModel {
	return &FlashModel{now: time.Now, watchCh: make(chan FlashMessage, 8)}
}

func (f *FlashModel) Info(msg string)    { f.set(msg, FlashInfo, flashTTL[FlashInfo]) }
func (f *FlashModel) Warn(msg string)    { f.set(msg, FlashWarn, flashTTL[FlashWarn]) }
func (f *FlashModel) ErrText(msg string) { f.set(msg, FlashErr, flashTTL[FlashErr]) }

// Err flashes err's text.
func (f *FlashModel) Err(err error) { f.ErrText(err.Error()) }

func (f *FlashModel) set(msg string, level FlashLevel, ttl time.Duration) {
	now := f.now()
	f.mu.Lock()
	fm := FlashMessage{Text: msg, Level: level, Expires: now.Add(ttl)}
	if cur := f.current; cur.Text == msg && cur.Level == level && now.Before(cur.Expires) {
		fm.Repeat = cur.Repeat + 1
	}
	f.current = fm
	f.mu.Unlock()

	select {
	case f.watchCh <- fm:
	default:
	}
}

// GetMessage returns the current message, or nil once it has expired.
func (f *FlashModel) GetMessage() *FlashMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current.Text == "" || !f.now().Before(f.current.Expires) {
		return nil
	}
	m := f.current
	return &m
}

// Clear drops the current message.
func (f *FlashModel) Clear() {
	f.mu.Lock()
	f.current = FlashMessage{}
	f.mu.Unlock()
}

// Watch delivers each message as it is flashed.
func (f *FlashModel) Watch() <-chan FlashMessage {
	return f.watchCh
}

// FlashBar draws the current flash message.
type FlashBar struct {
	*tview.TextView
	theme *Theme
}

func NewFlashBar(theme *Theme) *FlashBar {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	return &FlashBar{TextView: tv, theme: theme}
}

func (fb *FlashBar) Update(msg *FlashMessage) {
	if msg == nil {
		fb.SetText("")
		return
	}
	color, mark := fb.theme.FlashInfoColor, "●"
	switch msg.Level {
	case FlashWarn:
		color, mark = fb.theme.FlashWarnColor, "▲"
	case FlashErr:
		color, mark = fb.theme.FlashErrColor, "✖"
	}
	text := tview.Escape(msg.Text)
	if msg.Repeat > 0 {
		text += " (x" + strconv.Itoa(msg.Repeat+1) + ")"
	}
	fb.SetText(" " + Styled(color, "", mark+" "+text))
}
