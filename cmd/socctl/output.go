package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/matheus3301/soc/internal/api"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"gopkg.in/yaml.v3"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

var stdout io.Writer = os.Stdout

func validateOutput(format string) error {
	switch format {
	case outputTable, outputJSON, outputYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
}

// render writes v as JSON or YAML, or the given rows as a table.
func render(w io.Writer, format string, v any, headers []string, rows [][]string) error {
	switch format {
	case outputJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "Nothing to show.")
		return err
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		Headers(headers...).
		Rows(rows...)
	_, err := fmt.Fprintln(w, t)
	return err
}

// show renders to stdout in the selected format.
func show(v any, headers []string, rows [][]string) error {
	return render(stdout, outputType, v, headers, rows)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatUnixMilli(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return formatTime(time.UnixMilli(ms))
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func yesNo(b bool) string {
	if b {
		return "✓"
	}
	return "-"
}

// explain turns daemon errors into messages for a terminal.
func explain(err error) error {
	if err == nil {
		return nil
	}
	st, ok := grpcstatus.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unavailable:
		return fmt.Errorf("daemon unavailable (%s); start it with \"socctl up\"", st.Message())
	case codes.Unauthenticated:
		return fmt.Errorf("%s; log in with \"socctl login\"", st.Message())
	}
	return fmt.Errorf("%s", st.Message())
}

// statusView is the machine-readable form of api.SessionStatus.
type statusView struct {
	Session       string `json:"session" yaml:"session"`
	Running       bool   `json:"running" yaml:"running"`
	Status        string `json:"status,omitempty" yaml:"status,omitempty"`
	Detail        string `json:"detail,omitempty" yaml:"detail,omitempty"`
	Authenticated bool   `json:"authenticated" yaml:"authenticated"`
	Username      string `json:"username,omitempty" yaml:"username,omitempty"`
	UserID        int64  `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Mounted       bool   `json:"mounted" yaml:"mounted"`
	State         string `json:"state,omitempty" yaml:"state,omitempty"`
	SelectedPeer  int64  `json:"selected_peer,omitempty" yaml:"selected_peer,omitempty"`
	DialogCount   int    `json:"dialog_count" yaml:"dialog_count"`
	SyncedAt      string `json:"synced_at,omitempty" yaml:"synced_at,omitempty"`
	LastError     string `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	Uptime        string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	LockPID       int    `json:"lock_pid,omitempty" yaml:"lock_pid,omitempty"`
	LockProgram   string `json:"lock_program,omitempty" yaml:"lock_program,omitempty"`
}

func newStatusView(st api.SessionStatus) statusView {
	v := statusView{
		Session:       st.Session,
		Running:       true,
		Status:        st.Status,
		Detail:        st.Detail,
		Authenticated: st.Authenticated,
		Username:      st.Username,
		UserID:        st.UserID,
		Mounted:       st.Mounted,
		State:         st.State,
		SelectedPeer:  st.SelectedPeer,
		DialogCount:   st.DialogCount,
		LastError:     st.LastError,
		Uptime:        st.Uptime.Truncate(time.Second).String(),
	}
	if !st.SyncedAt.IsZero() {
		v.SyncedAt = st.SyncedAt.UTC().Format(time.RFC3339)
	}
	return v
}

type dialogView struct {
	PeerID      int64  `json:"peer_id" yaml:"peer_id"`
	Name        string `json:"name" yaml:"name"`
	LastMessage string `json:"last_message" yaml:"last_message"`
	Unread      int    `json:"unread" yaml:"unread"`
	Avatar      string `json:"avatar,omitempty" yaml:"avatar,omitempty"`
}

type messageView struct {
	ID         int64  `json:"id,omitempty" yaml:"id,omitempty"`
	SenderID   int64  `json:"sender_id" yaml:"sender_id"`
	ReceiverID int64  `json:"receiver_id" yaml:"receiver_id"`
	Mine       bool   `json:"mine" yaml:"mine"`
	Content    string `json:"content" yaml:"content"`
	PictureURL string `json:"picture_url,omitempty" yaml:"picture_url,omitempty"`
	SentAt     string `json:"sent_at,omitempty" yaml:"sent_at,omitempty"`
}

type userView struct {
	ID       int64  `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Avatar   string `json:"avatar,omitempty" yaml:"avatar,omitempty"`
}

type searchView struct {
	PeerID  int64  `json:"peer_id" yaml:"peer_id"`
	Sender  int64  `json:"sender_id" yaml:"sender_id"`
	Snippet string `json:"snippet" yaml:"snippet"`
	SentAt  string `json:"sent_at,omitempty" yaml:"sent_at,omitempty"`
}

type friendView struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Avatar      string `json:"avatar,omitempty" yaml:"avatar,omitempty"`
}

type communityView struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Subscribed  bool   `json:"subscribed" yaml:"subscribed"`
	Avatar      string `json:"avatar,omitempty" yaml:"avatar,omitempty"`
}

type profileView struct {
	ID        int64  `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Bio       string `json:"bio,omitempty" yaml:"bio,omitempty"`
	Own       bool   `json:"own" yaml:"own"`
	PostCount int    `json:"post_count" yaml:"post_count"`
	Avatar    string `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`
}
