package main

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/soc/internal/api"
	"github.com/matheus3301/soc/internal/session"
	"github.com/spf13/cobra"
)

const callTimeout = 15 * time.Second

var (
	sessionFlag string
	outputType  string
)

var rootCmd = &cobra.Command{
	Use:           "socctl",
	Short:         "Control a soc session daemon",
	Long:          `socctl talks to the session daemon (socd) over its Unix socket: log in, list dialogs, read and send messages, search, and browse friends and communities.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateOutput(outputType)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sessionFlag, "session", "", "session name (overrides config default)")
	rootCmd.PersistentFlags().StringVarP(&outputType, "output", "o", outputTable, "output format (table, json, yaml)")
}

// resolveSession returns the validated session name.
func resolveSession() (string, error) {
	return session.MustResolve(sessionFlag)
}

// connect dials the session's daemon. The daemon is not started; see
// "socctl up".
func connect() (*api.Client, string, error) {
	name, err := resolveSession()
	if err != nil {
		return nil, "", err
	}
	c, err := api.Dial(session.SocketPath(name))
	if err != nil {
		return nil, name, fmt.Errorf("cannot connect to daemon for session %q: %w", name, err)
	}
	return c, name, nil
}

// withClient runs fn with a connected client and a call deadline.
func withClient(fn func(ctx context.Context, c *api.Client) error) error {
	c, _, err := connect()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	return explain(fn(ctx, c))
}
