package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// SessionData holds session information for display.
type SessionData struct {
	Session   string
	Username  string
	Status    string
	Dialogs   int
	SyncedAt  time.Time
	LastError string
	Uptime    time.Duration
}

// SessionInfo displays session metadata in the header.
type SessionInfo struct {
	*tview.TextView
	theme *Theme
}

// NewSessionInfo creates a new session info panel.
func NewSessionInfo(theme *Theme) *SessionInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &SessionInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the session info.
func (si *SessionInfo) Update(data *SessionData) {
	si.Clear()
	if data == nil {
		return
	}

	fgColor := ColorTag(si.theme.FgColor)
	counterColor := ColorTag(si.theme.CounterColor)

	user := data.Username
	if user == "" {
		user = "-"
	}
	synced := "-"
	if !data.SyncedAt.IsZero() {
		synced = data.SyncedAt.Local().Format("15:04:05")
	}
	if data.LastError != "" {
		synced = fmt.Sprintf("%s [%s](stale)[-]", synced, ColorTag(si.theme.FlashWarnColor))
	}

	_, _ = fmt.Fprintf(si,
		"[%s::b]Session:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]User:[-:-:-]    [%s]%s[-]\n"+
			"[%s::b]Status:[-:-:-]  [%s]%s[-]\n"+
			"[%s::b]Dialogs:[-:-:-] [%s]%d[-]\n"+
			"[%s::b]Synced:[-:-:-]  [%s]%s[-]\n"+
			"[%s::b]Uptime:[-:-:-]  [%s]%s[-]",
		fgColor, counterColor, data.Session,
		fgColor, counterColor, tview.Escape(user),
		fgColor, counterColor, data.Status,
		fgColor, counterColor, data.Dialogs,
		fgColor, counterColor, synced,
		fgColor, counterColor, formatDuration(data.Uptime),
	)
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
