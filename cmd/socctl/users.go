package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/matheus3301/soc/internal/api"
	"github.com/matheus3301/soc/internal/backend"
	"github.com/matheus3301/soc/internal/store"
	"github.com/spf13/cobra"
)

var (
	searchPeer  int64
	searchLimit int
)

var matchStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))

var usersCmd = &cobra.Command{
	Use:   "users [query]",
	Short: "Search the user directory",
	Long:  `Search the user directory. Without a query every user is listed. The current user is left out.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		return withClient(func(ctx context.Context, c *api.Client) error {
			users, err := c.SearchUsers(ctx, query)
			if err != nil {
				return err
			}
			views := make([]userView, 0, len(users))
			rows := make([][]string, 0, len(users))
			for _, u := range users {
				views = append(views, userView{ID: u.ID, Name: u.DisplayName(), Username: u.Username, Avatar: u.Avatar})
				rows = append(rows, []string{strconv.FormatInt(u.ID, 10), u.DisplayName(), u.Username})
			}
			return show(views, []string{"ID", "Name", "Username"}, rows)
		})
	},
}

// findUser looks id up in the directory. Unknown ids still get a summary
// so a conversation can be started with them.
func findUser(ctx context.Context, c *api.Client, id int64) backend.UserSummary {
	users, err := c.SearchUsers(ctx, "")
	if err == nil {
		for _, u := range users {
			if u.ID == id {
				return u
			}
		}
	}
	return backend.UserSummary{ID: id}
}

var originateCmd = &cobra.Command{
	Use:     "originate <user-id>",
	Aliases: []string{"new"},
	Short:   "Start a conversation with a user",
	Long:    `Start a conversation with a user. Nothing is sent; the dialog is selected in the daemon and listed until the next dialog refresh.`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parsePeerID(args[0])
		if err != nil {
			return err
		}
		return withClient(func(ctx context.Context, c *api.Client) error {
			dlg, err := c.Originate(ctx, findUser(ctx, c, id))
			if err != nil {
				return err
			}
			views, rows := dialogRows([]backend.Dialog{dlg})
			return show(views[0], []string{"Peer", "Name", "Last Message", "Unread"}, rows)
		})
	},
}

// highlight renders the <<match>> markers of a search snippet.
func highlight(snippet string, style lipgloss.Style) string {
	var b strings.Builder
	rest := snippet
	for {
		start := strings.Index(rest, "<<")
		if start < 0 {
			break
		}
		end := strings.Index(rest[start+2:], ">>")
		if end < 0 {
			break
		}
		b.WriteString(rest[:start])
		b.WriteString(style.Render(rest[start+2 : start+2+end]))
		rest = rest[start+2+end+2:]
	}
	b.WriteString(rest)
	return b.String()
}

func searchRows(results []store.SearchResult) ([]searchView, [][]string) {
	views := make([]searchView, 0, len(results))
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		views = append(views, searchView{
			PeerID:  r.Message.PeerID,
			Sender:  r.Message.SenderID,
			Snippet: r.Snippet,
			SentAt:  formatUnixMilli(r.Message.SentAt),
		})
		rows = append(rows, []string{
			strconv.FormatInt(r.Message.PeerID, 10),
			formatUnixMilli(r.Message.SentAt),
			highlight(r.Snippet, matchStyle),
		})
	}
	return views, rows
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search cached messages",
	Long:  `Full-text search over the messages the daemon has synchronized.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		return withClient(func(ctx context.Context, c *api.Client) error {
			results, err := c.SearchMessages(ctx, query, searchPeer, searchLimit)
			if err != nil {
				return err
			}
			views, rows := searchRows(results)
			if err := show(views, []string{"Peer", "Sent", "Match"}, rows); err != nil {
				return err
			}
			if outputType == outputTable && len(results) == searchLimit {
				fmt.Fprintf(stdout, "Showing the first %d matches.\n", searchLimit)
			}
			return nil
		})
	},
}

func init() {
	searchCmd.Flags().Int64Var(&searchPeer, "peer", 0, "only search this dialog")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 50, "maximum number of matches")

	rootCmd.AddCommand(usersCmd, originateCmd, searchCmd)
}
