package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/matheus3301/soc/internal/api"
	"github.com/matheus3301/soc/internal/daemon"
	"github.com/matheus3301/soc/internal/lock"
	"github.com/matheus3301/soc/internal/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	upTimeout     time.Duration
	loginPassword string
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Start the session daemon if it is not running",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := resolveSession()
		if err != nil {
			return err
		}
		started, err := daemon.EnsureRunning(name, upTimeout)
		if err != nil {
			return err
		}
		if started {
			fmt.Fprintf(stdout, "Daemon started for session %q.\n", name)
		} else {
			fmt.Fprintf(stdout, "Daemon already running for session %q.\n", name)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session status",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := resolveSession()
		if err != nil {
			return err
		}
		if !daemon.Probe(session.SocketPath(name)) {
			return showStopped(name)
		}
		return withClient(func(ctx context.Context, c *api.Client) error {
			st, err := c.Status(ctx)
			if err != nil {
				return err
			}
			v := newStatusView(st)
			rows := [][]string{
				{"Session", v.Session},
				{"Status", v.Status},
				{"User", userLabel(v)},
				{"Inbox", inboxLabel(v)},
				{"Dialogs", fmt.Sprint(v.DialogCount)},
				{"Synced", formatTime(st.SyncedAt)},
				{"Uptime", v.Uptime},
			}
			if v.Detail != "" {
				rows = append(rows, []string{"Detail", v.Detail})
			}
			if v.LastError != "" {
				rows = append(rows, []string{"Last error", v.LastError})
			}
			return show(v, []string{"Field", "Value"}, rows)
		})
	},
}

func showStopped(name string) error {
	v := statusView{Session: name, Status: "STOPPED"}
	owner, err := lock.Probe(session.Dir(name))
	if err != nil {
		return err
	}
	rows := [][]string{{"Session", name}, {"Status", v.Status}}
	if owner != nil {
		// Locked but not answering: starting up, or wedged.
		v.Status = "UNRESPONSIVE"
		v.LockPID = owner.PID
		v.LockProgram = owner.Program
		rows = [][]string{
			{"Session", name},
			{"Status", v.Status},
			{"Lock", fmt.Sprintf("%s (PID %d) since %s", owner.Program, owner.PID, formatTime(owner.Since))},
		}
	}
	return show(v, []string{"Field", "Value"}, rows)
}

func userLabel(v statusView) string {
	if !v.Authenticated {
		return "not logged in"
	}
	if v.UserID == 0 {
		return v.Username + " (id unresolved)"
	}
	return fmt.Sprintf("%s (#%d)", v.Username, v.UserID)
}

func inboxLabel(v statusView) string {
	if !v.Mounted {
		return "closed"
	}
	if v.SelectedPeer != 0 {
		return fmt.Sprintf("%s, dialog %d", v.State, v.SelectedPeer)
	}
	return v.State
}

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log the session in",
	Long:  `Log the session in. The password is read from --password, the SOC_PASSWORD environment variable, or prompted for.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword()
		if err != nil {
			return err
		}
		return withClient(func(ctx context.Context, c *api.Client) error {
			res, err := c.Login(ctx, args[0], password)
			if err != nil {
				return err
			}
			if res.UserIDResolved {
				fmt.Fprintf(stdout, "Logged in as %s (#%d).\n", res.Username, res.UserID)
			} else {
				fmt.Fprintf(stdout, "Logged in as %s; user id could not be resolved, own messages will not be marked.\n", res.Username)
			}
			return nil
		})
	},
}

func readPassword() (string, error) {
	if loginPassword != "" {
		return loginPassword, nil
	}
	if p := os.Getenv("SOC_PASSWORD"); p != "" {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("no password given")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log the session out and drop cached data",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			if err := c.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Logged out.")
			return nil
		})
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List known sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := session.List()
		if err != nil {
			return err
		}
		type sessionView struct {
			Name    string `json:"name" yaml:"name"`
			Path    string `json:"path" yaml:"path"`
			Running bool   `json:"running" yaml:"running"`
		}
		views := make([]sessionView, 0, len(names))
		rows := make([][]string, 0, len(names))
		for _, n := range names {
			v := sessionView{Name: n, Path: session.Dir(n), Running: daemon.Probe(session.SocketPath(n))}
			views = append(views, v)
			rows = append(rows, []string{v.Name, v.Path, yesNo(v.Running)})
		}
		return show(views, []string{"Name", "Path", "Running"}, rows)
	},
}

func init() {
	upCmd.Flags().DurationVar(&upTimeout, "timeout", 10*time.Second, "how long to wait for the daemon")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "password (prompted when empty)")

	rootCmd.AddCommand(upCmd, statusCmd, loginCmd, logoutCmd, sessionsCmd)
}
