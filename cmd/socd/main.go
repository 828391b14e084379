package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/matheus3301/soc/internal/core"
	"github.com/matheus3301/soc/internal/daemon"
	"github.com/matheus3301/soc/internal/session"
	"go.uber.org/fx"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	flag.Parse()

	sessionName, err := session.MustResolve(*sessionFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := session.EnsureDir(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		core.Module(core.Params{SessionName: sessionName, Program: "socd", Console: true}),
		daemon.Module(daemon.Params{SessionName: sessionName}),
	)

	app.Run()
}
