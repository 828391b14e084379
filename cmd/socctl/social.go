package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/matheus3301/soc/internal/api"
	"github.com/matheus3301/soc/internal/backend"
	"github.com/matheus3301/soc/internal/qr"
	"github.com/matheus3301/soc/internal/session"
	"github.com/spf13/cobra"
)

// optionalID parses an optional id argument; 0 means the current user.
func optionalID(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, nil
	}
	return parsePeerID(args[0])
}

func profileURL(webURL string, id int64) string {
	return strings.TrimRight(webURL, "/") + "/profile/" + strconv.FormatInt(id, 10)
}

var friendsCmd = &cobra.Command{
	Use:   "friends [user-id]",
	Short: "List a user's friends",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := optionalID(args)
		if err != nil {
			return err
		}
		return withClient(func(ctx context.Context, c *api.Client) error {
			friends, err := c.Friends(ctx, id)
			if err != nil {
				return err
			}
			views := make([]friendView, 0, len(friends))
			rows := make([][]string, 0, len(friends))
			for _, f := range friends {
				views = append(views, friendView{ID: f.ID, Name: f.Name, Description: f.Description, Avatar: f.Avatar})
				rows = append(rows, []string{strconv.FormatInt(f.ID, 10), f.Name, truncate(f.Description, 48)})
			}
			return show(views, []string{"ID", "Name", "Description"}, rows)
		})
	},
}

func newProfileView(p backend.Profile, webURL string) profileView {
	return profileView{
		ID:        p.ID,
		Name:      p.DisplayName(),
		Bio:       p.Bio,
		Own:       p.Own,
		PostCount: p.PostCount,
		Avatar:    p.Avatar,
		URL:       profileURL(webURL, p.ID),
	}
}

var profileCmd = &cobra.Command{
	Use:   "profile [user-id]",
	Short: "Show a user's profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := optionalID(args)
		if err != nil {
			return err
		}
		cfg, err := session.LoadConfig()
		if err != nil {
			return err
		}
		return withClient(func(ctx context.Context, c *api.Client) error {
			p, err := c.Profile(ctx, id)
			if err != nil {
				return err
			}
			v := newProfileView(p, cfg.WebURL)
			rows := [][]string{
				{"ID", strconv.FormatInt(v.ID, 10)},
				{"Name", v.Name},
				{"Bio", truncate(v.Bio, 64)},
				{"Posts", strconv.Itoa(v.PostCount)},
				{"Own", yesNo(v.Own)},
				{"URL", v.URL},
			}
			return show(v, []string{"Field", "Value"}, rows)
		})
	},
}

var shareCmd = &cobra.Command{
	Use:   "share [user-id]",
	Short: "Print a QR code linking to a profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := optionalID(args)
		if err != nil {
			return err
		}
		cfg, err := session.LoadConfig()
		if err != nil {
			return err
		}
		return withClient(func(ctx context.Context, c *api.Client) error {
			if id == 0 {
				st, err := c.Status(ctx)
				if err != nil {
					return err
				}
				if st.UserID == 0 {
					return fmt.Errorf("current user id is unknown; pass a user id")
				}
				id = st.UserID
			}
			url := profileURL(cfg.WebURL, id)
			code, err := qr.Render(url, "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, code)
			fmt.Fprintln(stdout, "  "+url)
			return nil
		})
	},
}

func communityRows(cs []backend.Community) ([]communityView, [][]string) {
	views := make([]communityView, 0, len(cs))
	rows := make([][]string, 0, len(cs))
	for _, cm := range cs {
		views = append(views, communityView{ID: cm.ID, Name: cm.Name, Description: cm.Description, Subscribed: cm.Subscribed, Avatar: cm.Avatar})
		rows = append(rows, []string{strconv.FormatInt(cm.ID, 10), cm.Name, truncate(cm.Description, 48), yesNo(cm.Subscribed)})
	}
	return views, rows
}

var communityHeaders = []string{"ID", "Name", "Description", "Subscribed"}

var communitiesCmd = &cobra.Command{
	Use:   "communities",
	Short: "List the communities you are subscribed to",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			cs, err := c.Communities(ctx)
			if err != nil {
				return err
			}
			views, rows := communityRows(cs)
			return show(views, communityHeaders, rows)
		})
	},
}

var communityCmd = &cobra.Command{
	Use:   "community",
	Short: "Show or change community subscriptions",
}

var communityGetCmd = &cobra.Command{
	Use:   "get <community-id>",
	Short: "Show a community",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parsePeerID(args[0])
		if err != nil {
			return err
		}
		return withClient(func(ctx context.Context, c *api.Client) error {
			cm, err := c.Community(ctx, id)
			if err != nil {
				return err
			}
			views, rows := communityRows([]backend.Community{cm})
			return show(views[0], communityHeaders, rows)
		})
	},
}

func subscriptionCmd(use, short string, subscribe bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <community-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePeerID(args[0])
			if err != nil {
				return err
			}
			return withClient(func(ctx context.Context, c *api.Client) error {
				subscribed, err := c.SetSubscription(ctx, id, subscribe)
				if err != nil {
					return err
				}
				if subscribed {
					fmt.Fprintf(stdout, "Subscribed to community %d.\n", id)
				} else {
					fmt.Fprintf(stdout, "Not subscribed to community %d.\n", id)
				}
				return nil
			})
		},
	}
}

func init() {
	communityCmd.AddCommand(
		communityGetCmd,
		subscriptionCmd("subscribe", "Subscribe to a community", true),
		subscriptionCmd("unsubscribe", "Leave a community", false),
	)
	rootCmd.AddCommand(friendsCmd, profileCmd, shareCmd, communitiesCmd, communityCmd)
}
