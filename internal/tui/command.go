package tui

import (
	"context"
	"strings"

	"github.com/matheus3301/soc/internal/tui/views"
)

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// commandNames are offered as completions in the command prompt.
var commandNames = []string{"open", "new", "users", "search", "pic", "picture", "refresh", "logout", "help", "quit"}

// ParseCommand parses a command string (without the leading ':').
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "open", "o":
		matches := views.MatchDialogs(a.vm.Dialogs().Dialogs, cmd.Args)
		if cmd.Args == "" || len(matches) == 0 {
			a.flash.Warn("No dialog matches " + cmd.Args)
			return
		}
		a.openDialog(matches[0])
	case "new", "users":
		a.openDirectory(cmd.Args)
	case "search", "s":
		a.push(pageSearch)
		if cmd.Args != "" {
			a.search.SetQuery(cmd.Args)
			a.async(func(ctx context.Context) {
				results, err := a.vm.SearchMessages(ctx, cmd.Args)
				a.app.QueueUpdateDraw(func() {
					if err == nil {
						a.search.Update(results)
					}
				})
			})
		}
	case "pic", "picture":
		if a.pages.Current() != pageThread {
			a.flash.Warn("Open a dialog first")
			return
		}
		a.thread.SetPicture(cmd.Args)
	case "refresh", "r":
		a.refresh(a.pages.Current() == pageThread)
	case "logout":
		a.logout()
	case "help", "h":
		a.push(pageHelp)
	case "quit", "q":
		a.Stop()
	case "":
	default:
		a.flash.Warn("Unknown command: " + cmd.Name)
	}
}
