package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/soc/internal/api"
	"github.com/matheus3301/soc/internal/daemon"
	"github.com/matheus3301/soc/internal/logging"
	"github.com/matheus3301/soc/internal/session"
	"github.com/matheus3301/soc/internal/tui"
	"go.uber.org/zap"
)

const startTimeout = 10 * time.Second

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	flag.Parse()

	sessionName, err := session.MustResolve(*sessionFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := session.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: load config: %v\n", err)
		os.Exit(1)
	}

	if !daemon.Probe(session.SocketPath(sessionName)) {
		fmt.Fprintf(os.Stderr, "daemon not running for session %q, starting...\n", sessionName)
		if _, err := daemon.EnsureRunning(sessionName, startTimeout); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	logger, err := logging.New(session.LogPath(sessionName, "soctui"), sessionName, logging.Options{})
	if err != nil {
		logger = zap.NewNop()
	}
	defer func() { _ = logger.Sync() }()

	c, err := api.Dial(session.SocketPath(sessionName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to daemon: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	app := tui.NewApp(c, tui.Options{SessionName: sessionName, WebURL: cfg.WebURL, Logger: logger})
	if err := app.Run(); err != nil {
		logger.Error("tui exited", zap.Error(err))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
