package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/matheus3301/soc/internal/api"
	"github.com/matheus3301/soc/internal/backend"
	"github.com/matheus3301/soc/internal/session"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

var (
	threadWidth    int
	threadCached   bool
	threadLimit    int
	sendPicture    string
	watchNamespace string
)

func parsePeerID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func dialogRows(ds []backend.Dialog) ([]dialogView, [][]string) {
	views := make([]dialogView, 0, len(ds))
	rows := make([][]string, 0, len(ds))
	for _, d := range ds {
		views = append(views, dialogView{PeerID: d.PeerID, Name: d.Name, LastMessage: d.LastMessage, Unread: d.Unread, Avatar: d.Avatar})
		unread := ""
		if d.Unread > 0 {
			unread = strconv.Itoa(d.Unread)
		}
		rows = append(rows, []string{strconv.FormatInt(d.PeerID, 10), d.Name, truncate(d.LastMessage, 48), unread})
	}
	return views, rows
}

var dialogsCmd = &cobra.Command{
	Use:     "dialogs",
	Aliases: []string{"ls"},
	Short:   "List dialogs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			list, err := c.ListDialogs(ctx)
			if err != nil {
				return err
			}
			views, rows := dialogRows(list.Dialogs)
			if err := show(views, []string{"Peer", "Name", "Last Message", "Unread"}, rows); err != nil {
				return err
			}
			if outputType == outputTable {
				fmt.Fprintf(stdout, "Synced %s\n", formatTime(list.SyncedAt))
				if list.LastError != "" {
					fmt.Fprintf(os.Stderr, "warning: list may be stale: %s\n", list.LastError)
				}
			}
			return nil
		})
	},
}

func messageRows(msgs []api.ThreadMessage) []messageView {
	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		v := messageView{
			ID:         m.ID,
			SenderID:   m.SenderID,
			ReceiverID: m.ReceiverID,
			Mine:       m.Mine,
			Content:    m.Content,
			PictureURL: m.PictureURL,
		}
		if !m.SentAt.IsZero() {
			v.SentAt = formatTime(m.SentAt)
		}
		views = append(views, v)
	}
	return views
}

// printThread writes a thread as wrapped text, oldest message first.
func printThread(w io.Writer, dlg backend.Dialog, msgs []api.ThreadMessage, width int) {
	fmt.Fprintf(w, "── %s (#%d) ──\n", dlg.Name, dlg.PeerID)
	if len(msgs) == 0 {
		fmt.Fprintln(w, "No messages yet.")
		return
	}
	for _, m := range msgs {
		who := dlg.Name
		if m.Mine {
			who = "You"
		}
		header := who
		if !m.SentAt.IsZero() {
			header += "  " + formatTime(m.SentAt)
		}
		fmt.Fprintln(w, header)
		body := m.Content
		if m.PictureURL != "" {
			body += "\n(picture) " + m.PictureURL
		}
		if width > 4 {
			body = wordwrap.String(body, width-2)
		}
		fmt.Fprintln(w, indent.String(body, 2))
	}
}

func showThread(ctx context.Context, c *api.Client) error {
	dlg, msgs, err := c.Thread(ctx, true)
	if err != nil {
		return err
	}
	return renderThread(dlg, msgs)
}

func renderThread(dlg backend.Dialog, msgs []api.ThreadMessage) error {
	if outputType != outputTable {
		return show(struct {
			Dialog   dialogView    `json:"dialog" yaml:"dialog"`
			Messages []messageView `json:"messages" yaml:"messages"`
		}{
			Dialog:   dialogView{PeerID: dlg.PeerID, Name: dlg.Name, LastMessage: dlg.LastMessage, Unread: dlg.Unread, Avatar: dlg.Avatar},
			Messages: messageRows(msgs),
		}, nil, nil)
	}
	printThread(stdout, dlg, msgs, threadWidth)
	return nil
}

var openCmd = &cobra.Command{
	Use:   "open <peer-id>",
	Short: "Select a dialog in the daemon and print its thread",
	Long:  `Select a dialog in the daemon, which then keeps its thread synchronized, and print the thread.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		peer, err := parsePeerID(args[0])
		if err != nil {
			return err
		}
		return withClient(func(ctx context.Context, c *api.Client) error {
			if _, err := c.Select(ctx, peer); err != nil {
				return err
			}
			return showThread(ctx, c)
		})
	},
}

var threadCmd = &cobra.Command{
	Use:   "thread [peer-id]",
	Short: "Print the selected dialog's thread",
	Long:  `Print the selected dialog's thread. With a peer id the dialog is selected first.
With --cached the thread is read from the session's local store instead, as the
daemon last fetched it; this also works while the daemon is down.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if threadCached {
			if len(args) != 1 {
				return errors.New("--cached needs a peer id")
			}
			return showCachedThread(args[0])
		}
		if len(args) == 1 {
			return openCmd.RunE(cmd, args)
		}
		return withClient(func(ctx context.Context, c *api.Client) error {
			err := showThread(ctx, c)
			if grpcstatus.Code(err) == codes.FailedPrecondition {
				return errors.New("no dialog selected; pass a peer id or run \"socctl open\"")
			}
			return err
		})
	},
}

func showCachedThread(arg string) error {
	peer, err := parsePeerID(arg)
	if err != nil {
		return err
	}
	name, err := resolveSession()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	dlg, msgs, err := loadCachedThread(ctx, session.DBPath(name), peer, threadLimit)
	if err != nil {
		return err
	}
	return renderThread(dlg, msgs)
}

var closeCmd = &cobra.Command{
	Use:   "close",
	Short: "Deselect the daemon's dialog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			return c.Deselect(ctx)
		})
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <peer-id> <text>...",
	Short: "Send a message",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		peer, err := parsePeerID(args[0])
		if err != nil {
			return err
		}
		text := strings.Join(args[1:], " ")
		return withClient(func(ctx context.Context, c *api.Client) error {
			m, err := c.Send(ctx, peer, text, sendPicture)
			if err != nil {
				return err
			}
			if outputType != outputTable {
				return show(messageView{ID: m.ID, SenderID: m.SenderID, ReceiverID: m.ReceiverID, Mine: true, Content: m.Content, PictureURL: m.PictureURL}, nil, nil)
			}
			fmt.Fprintf(stdout, "Sent to %d.\n", peer)
			return nil
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream daemon events until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := connect()
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		stream, err := c.WatchEvents(ctx, watchNamespace)
		if err != nil {
			return explain(err)
		}
		for {
			evt, err := stream.Recv()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					return nil
				}
				return explain(err)
			}
			if outputType != outputTable {
				if err := show(evt, nil, nil); err != nil {
					return err
				}
				continue
			}
			fmt.Fprintf(stdout, "%s  %-24s %s\n", formatTime(evt.OccurredAt), evt.Kind, payloadSummary(evt.Payload))
		}
	},
}

func payloadSummary(p map[string]any) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, p[k]))
	}
	return truncate(strings.Join(parts, " "), 96)
}

func init() {
	threadCmd.Flags().IntVarP(&threadWidth, "width", "w", 80, "wrap message text at this width")
	openCmd.Flags().IntVarP(&threadWidth, "width", "w", 80, "wrap message text at this width")
	threadCmd.Flags().BoolVar(&threadCached, "cached", false, "read the thread from the local store")
	threadCmd.Flags().IntVarP(&threadLimit, "limit", "n", 50, "with --cached, show at most this many recent messages")
	sendCmd.Flags().StringVar(&sendPicture, "picture", "", "attach a picture URL")
	watchCmd.Flags().StringVar(&watchNamespace, "namespace", "", "only events whose kind starts with this prefix")

	rootCmd.AddCommand(dialogsCmd, openCmd, threadCmd, closeCmd, sendCmd, watchCmd)
}
