// Package tui is the terminal client of a session daemon.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/soc/internal/api"
	"github.com/matheus3301/soc/internal/backend"
	"github.com/matheus3301/soc/internal/outbox"
	"github.com/matheus3301/soc/internal/tui/keys"
	"github.com/matheus3301/soc/internal/tui/model"
	"github.com/matheus3301/soc/internal/tui/ui"
	"github.com/matheus3301/soc/internal/tui/views"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

// Page names.
const (
	pageLogin     = "login"
	pageDialogs   = "dialogs"
	pageThread    = "thread"
	pageDirectory = "directory"
	pageSearch    = "search"
	pageHelp      = "help"
	pageAlert     = "alert"
)

const (
	callTimeout     = 15 * time.Second
	statusInterval  = 5 * time.Second
	watchRetryDelay = 2 * time.Second
)

// Options configures the TUI.
type Options struct {
	SessionName string
	// WebURL is the web client, shown as a QR code on the login page.
	WebURL string
	Logger *zap.Logger
}

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	opts     Options
	logger   *zap.Logger
	daemon   *api.Client
	vm       *model.ViewModel
	registry *keys.Registry
	flash    *ui.FlashModel

	root     *tview.Flex
	pages    *ui.Pages
	info     *ui.SessionInfo
	menu     *ui.Menu
	crumbs   *ui.Crumbs
	prompt   *ui.Prompt
	flashBar *ui.FlashBar

	login     *views.LoginView
	dialogs   *views.DialogList
	thread    *views.ThreadView
	directory *views.DirectoryView
	search    *views.SearchView
	help      *views.HelpView
	pageViews map[string]ui.Component

	alertOpen    bool
	filterBefore string

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI for the daemon behind c.
func NewApp(c *api.Client, opts Options) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		app:       tview.NewApplication(),
		theme:     theme,
		opts:      opts,
		logger:    logger,
		daemon:    c,
		vm:        model.NewViewModel(c),
		registry:  keys.NewRegistry(),
		flash:     ui.NewFlashModel(),
		pages:     ui.NewPages(),
		info:      ui.NewSessionInfo(theme),
		menu:      ui.NewMenu(theme),
		crumbs:    ui.NewCrumbs(theme),
		prompt:    ui.NewPrompt(theme),
		flashBar:  ui.NewFlashBar(theme),
		login:     views.NewLoginView(theme, webMessagesURL(opts.WebURL)),
		dialogs:   views.NewDialogList(theme),
		thread:    views.NewThreadView(theme),
		directory: views.NewDirectoryView(theme),
		search:    views.NewSearchView(theme),
		help:      views.NewHelpView(theme),
		ctx:       ctx,
		cancel:    cancel,
	}
	a.pageViews = map[string]ui.Component{
		pageLogin:     a.login,
		pageDialogs:   a.dialogs,
		pageThread:    a.thread,
		pageDirectory: a.directory,
		pageSearch:    a.search,
		pageHelp:      a.help,
	}

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func webMessagesURL(base string) string {
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/messages"
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: ':', Description: "Command", Visible: true,
		Handler: func() { a.activatePrompt(ui.PromptCommand) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: '?', Description: "Help", Visible: true,
		Handler: func() { a.push(pageHelp) },
	})

	a.registry.AddView(pageDialogs, &keys.Action{
		Key: tcell.KeyRune, Rune: 'q',
		Handler: a.Stop,
	})
	a.registry.AddView(pageDialogs, &keys.Action{
		Key: tcell.KeyRune, Rune: 'n',
		Handler: func() { a.openDirectory("") },
	})
	a.registry.AddView(pageDialogs, &keys.Action{
		Key: tcell.KeyRune, Rune: '/',
		Handler: func() { a.activatePrompt(ui.PromptFilter) },
	})
	a.registry.AddView(pageDialogs, &keys.Action{
		Key: tcell.KeyRune, Rune: '0',
		Handler: func() { a.dialogs.SetFilter("") },
	})
	for n := 1; n <= 9; n++ {
		a.registry.AddView(pageDialogs, &keys.Action{
			Key: tcell.KeyRune, Rune: rune('0' + n),
			Handler: func() {
				if d, ok := a.dialogs.ByIndex(n); ok {
					a.openDialog(d)
				}
			},
		})
	}

	a.registry.AddView(pageThread, &keys.Action{
		Key: tcell.KeyCtrlR,
		Handler: func() { a.refresh(true) },
	})
	a.registry.AddView(pageThread, &keys.Action{
		Key: tcell.KeyRune, Rune: 'i',
		Handler: func() { a.app.SetFocus(a.thread.Composer()) },
	})
	a.registry.AddView(pageHelp, &keys.Action{
		Key: tcell.KeyRune, Rune: 'q',
		Handler: a.back,
	})
}

func (a *App) setupCallbacks() {
	a.pages.SetOnChange(func(stack []string) {
		a.updateCrumbs(stack)
		a.updateMenu()
	})

	a.login.SetOnSubmit(func(username, password string) {
		a.async(func(ctx context.Context) {
			res, err := a.vm.Login(ctx, username, password)
			a.app.QueueUpdateDraw(func() {
				a.login.Done(err, model.ErrorText(err))
				if err != nil {
					return
				}
				a.flash.Info("Logged in as " + res.Username)
				a.showHome()
			})
			if err == nil {
				_ = a.vm.LoadDialogs(ctx)
			}
		})
	})

	a.dialogs.SetSelectedFunc(func(row, _ int) {
		if d, ok := a.dialogs.ByIndex(row); ok {
			a.openDialog(d)
		}
	})

	a.thread.SetOnSend(a.send)

	a.directory.SetOnQuery(func(query string) {
		a.async(func(ctx context.Context) {
			users, err := a.vm.SearchUsers(ctx, query)
			a.app.QueueUpdateDraw(func() {
				if err != nil {
					a.flash.ErrText(model.ErrorText(err))
					return
				}
				a.directory.Update(users)
				if len(users) > 0 {
					a.app.SetFocus(a.directory.Results())
				}
			})
		})
	})
	a.directory.SetOnPick(a.originate)

	a.search.SetPeerNames(func(peerID int64) string {
		for _, d := range a.vm.Dialogs().Dialogs {
			if d.PeerID == peerID {
				return d.Name
			}
		}
		return ""
	})
	a.search.SetOnQuery(func(query string) {
		a.async(func(ctx context.Context) {
			results, err := a.vm.SearchMessages(ctx, query)
			a.app.QueueUpdateDraw(func() {
				if err != nil {
					a.flash.ErrText("Search failed: " + model.ErrorText(err))
					return
				}
				a.search.Update(results)
				a.app.SetFocus(a.search.Results())
			})
		})
	})
	a.search.SetOnOpen(a.openPeer)

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.closePrompt()
		switch mode {
		case ui.PromptFilter:
			a.dialogs.SetFilter(strings.TrimSpace(text))
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		}
	})
	a.prompt.SetOnChange(func(mode ui.PromptMode, text string) {
		if mode == ui.PromptFilter {
			a.dialogs.SetFilter(strings.TrimSpace(text))
		}
	})
	a.prompt.SetOnCancel(func() {
		if a.prompt.Mode() == ui.PromptFilter {
			a.dialogs.SetFilter(a.filterBefore)
		}
		a.closePrompt()
	})
	a.prompt.SetCommands(commandNames)
}

func (a *App) setupLayout() {
	for name, c := range a.pageViews {
		a.pages.AddPage(name, c, true, false)
	}

	header := tview.NewFlex().
		AddItem(a.info, 0, 1, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(ui.NewLogo(a.theme), 16, 0, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 7, 0, false).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.flashBar, 1, 0, false)
	a.root.SetBackgroundColor(a.theme.BgColor)

	a.app.SetRoot(a.root, true)
	a.app.SetInputCapture(a.handleKey)
	a.reset(pageDialogs)
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if a.alertOpen {
		return event
	}
	if event.Key() == tcell.KeyCtrlC {
		a.Stop()
		return nil
	}
	focused := a.app.GetFocus()
	if focused == a.prompt.InputField {
		return event
	}

	current := a.pages.Current()
	switch event.Key() {
	case tcell.KeyEscape:
		if current == pageLogin {
			return event
		}
		a.back()
		return nil
	case tcell.KeyTab:
		if a.toggleFocus(current, focused) {
			return nil
		}
	}

	// Text fields get every other key.
	switch focused.(type) {
	case *tview.InputField, *tview.Button:
		return event
	}
	if current == pageLogin {
		return event
	}

	if a.registry.HandleEvent(current, event) {
		return nil
	}
	return event
}

// toggleFocus moves focus between the two panes of a page.
func (a *App) toggleFocus(page string, focused tview.Primitive) bool {
	var first, second tview.Primitive
	switch page {
	case pageThread:
		first, second = a.thread.Composer(), a.thread.Messages()
	case pageDirectory:
		first, second = a.directory.Input(), a.directory.Results()
	case pageSearch:
		first, second = a.search.Input(), a.search.Results()
	default:
		return false
	}
	if focused == first {
		a.app.SetFocus(second)
	} else {
		a.app.SetFocus(first)
	}
	return true
}

func (a *App) updateMenu() {
	current := a.pages.Current()
	var hints []ui.MenuHint
	if c, ok := a.pageViews[current]; ok {
		hints = append(hints, c.Hints()...)
	}
	if current != pageLogin {
		hints = append(hints, a.registry.Hints(current)...)
	}
	a.menu.Update(hints)
}

func (a *App) push(page string) {
	if a.pages.Current() == page {
		return
	}
	a.pages.Push(page)
	a.app.SetFocus(a.pageViews[page].FocusTarget())
}

func (a *App) reset(page string) {
	a.pages.Reset(page)
	a.app.SetFocus(a.pageViews[page].FocusTarget())
}

// back pops the current page. Leaving a thread releases its selection.
func (a *App) back() {
	if a.pages.Depth() <= 1 {
		return
	}
	if a.pages.Pop() == pageThread {
		a.async(func(ctx context.Context) { _ = a.vm.Close(ctx) })
	}
	a.app.SetFocus(a.pageViews[a.pages.Current()].FocusTarget())
}

func (a *App) showHome() {
	a.login.Reset()
	a.reset(pageDialogs)
}

func (a *App) activatePrompt(mode ui.PromptMode) {
	a.filterBefore = a.dialogs.Filter()
	a.prompt.Activate(mode)
	if mode == ui.PromptFilter {
		a.prompt.SetText(a.filterBefore)
	}
	a.root.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) closePrompt() {
	a.root.ResizeItem(a.prompt, 0, 0)
	if c, ok := a.pageViews[a.pages.Current()]; ok {
		a.app.SetFocus(c.FocusTarget())
	}
}

// showAlert opens a modal that must be dismissed.
func (a *App) showAlert(title, text string) {
	focus := a.app.GetFocus()
	modal := tview.NewModal().
		SetText(title + "\n\n" + text).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(int, string) {
			a.pages.RemovePage(pageAlert)
			a.alertOpen = false
			a.app.SetFocus(focus)
		})
	modal.SetBackgroundColor(a.theme.BgColor)
	modal.SetBorderColor(a.theme.FlashErrColor)
	a.alertOpen = true
	a.pages.AddPage(pageAlert, modal, true, true)
	a.app.SetFocus(modal)
}

// async runs fn off the UI goroutine with a bounded context.
func (a *App) async(fn func(ctx context.Context)) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func (a *App) openPeer(peerID int64) {
	for _, d := range a.vm.Dialogs().Dialogs {
		if d.PeerID == peerID {
			a.openDialog(d)
			return
		}
	}
	a.flash.Warn("That dialog is no longer listed")
}

// openDialog shows d's thread right away, empty, and loads it.
func (a *App) openDialog(d backend.Dialog) {
	a.thread.Open(d)
	a.showThread()
	a.async(func(ctx context.Context) {
		if _, err := a.vm.Open(ctx, d.PeerID); err != nil {
			a.app.QueueUpdateDraw(func() { a.flash.ErrText("Open failed: " + model.ErrorText(err)) })
		}
	})
}

func (a *App) originate(u backend.UserSummary) {
	a.async(func(ctx context.Context) {
		dlg, err := a.vm.Originate(ctx, u)
		a.app.QueueUpdateDraw(func() {
			if err != nil {
				a.flash.ErrText(model.ErrorText(err))
				return
			}
			a.thread.Open(dlg)
			a.thread.Update(a.vm.Messages())
			a.showThread()
		})
	})
}

func (a *App) updateCrumbs(stack []string) {
	trail := make([]ui.Crumb, 0, len(stack))
	for _, p := range stack {
		c, ok := a.pageViews[p]
		if !ok {
			continue
		}
		cr := ui.Crumb{Label: c.Name()}
		if p == pageThread {
			cr.Detail = a.thread.Dialog().Name
		}
		trail = append(trail, cr)
	}
	a.crumbs.Update(trail)
}

func (a *App) showThread() {
	if a.pages.Current() == pageThread {
		a.updateCrumbs(a.pages.Stack())
		a.app.SetFocus(a.thread.Composer())
		return
	}
	// The thread always sits right above the dialog list.
	a.pages.Reset(pageDialogs)
	a.push(pageThread)
}

func (a *App) openDirectory(query string) {
	a.push(pageDirectory)
	a.directory.Input().SetText(query)
	a.async(func(ctx context.Context) {
		users, err := a.vm.SearchUsers(ctx, query)
		a.app.QueueUpdateDraw(func() {
			if err != nil {
				a.flash.ErrText(model.ErrorText(err))
				return
			}
			a.directory.Update(users)
		})
	})
}

// send sends the composer text. The composer is emptied only when the
// daemon accepted the message.
func (a *App) send(text, pictureURL string) {
	if a.vm.Sending() {
		a.flash.Warn("Still sending the previous message")
		return
	}
	if strings.TrimSpace(text) == "" {
		return
	}
	a.thread.SetSending(true)
	a.async(func(ctx context.Context) {
		_, err := a.vm.Send(ctx, text, pictureURL)
		a.app.QueueUpdateDraw(func() {
			a.thread.SetSending(false)
			switch {
			case err == nil:
				a.thread.ClearComposer()
				a.thread.Update(a.vm.Messages())
			case errors.Is(err, outbox.ErrSendInFlight):
				a.flash.Warn("Still sending the previous message")
			default:
				a.logger.Warn("send failed", zap.Error(err))
				a.showAlert("Message not sent", model.ErrorText(err))
			}
		})
	})
}

func (a *App) refresh(thread bool) {
	a.async(func(ctx context.Context) {
		if err := a.vm.LoadDialogs(ctx); err != nil {
			a.app.QueueUpdateDraw(func() { a.flash.ErrText(model.ErrorText(err)) })
		}
		if thread {
			_ = a.vm.LoadThread(ctx)
		}
	})
}

func (a *App) logout() {
	a.async(func(ctx context.Context) {
		err := a.vm.Logout(ctx)
		a.app.QueueUpdateDraw(func() {
			if err != nil {
				a.flash.ErrText(model.ErrorText(err))
				return
			}
			a.flash.Info("Logged out")
			a.reset(pageLogin)
		})
	})
}

// render copies the view model into the widgets. It runs on the UI
// goroutine.
func (a *App) render() {
	st := a.vm.Status()
	list := a.vm.Dialogs()
	a.info.Update(&ui.SessionData{
		Session:   a.opts.SessionName,
		Username:  st.Username,
		Status:    st.Status,
		Dialogs:   len(list.Dialogs),
		SyncedAt:  list.SyncedAt,
		LastError: list.LastError,
		Uptime:    st.Uptime,
	})
	a.dialogs.Update(list.Dialogs, list.LastError)

	if sel, ok := a.vm.Selected(); ok && sel.PeerID == a.thread.Dialog().PeerID {
		a.thread.Update(a.vm.Messages())
	}

	if !a.vm.StatusKnown() {
		return
	}
	current := a.pages.Current()
	switch {
	case !st.Authenticated && current != pageLogin:
		a.reset(pageLogin)
	case st.Authenticated && (current == pageLogin || current == ""):
		a.showHome()
	}
}

func (a *App) renderFlash(msg *ui.FlashMessage) {
	a.flashBar.Update(msg)
}

// Run starts the TUI and blocks until it quits.
func (a *App) Run() error {
	go a.start()
	go a.watchEvents()
	go a.pollStatus()
	go a.redrawLoop()

	err := a.app.Run()
	a.cancel()

	if _, ok := a.vm.Selected(); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = a.vm.Close(ctx)
		cancel()
	}
	return err
}

func (a *App) start() {
	ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
	defer cancel()
	if err := a.vm.LoadStatus(ctx); err != nil {
		a.app.QueueUpdateDraw(func() { a.flash.ErrText(model.ErrorText(err)) })
		return
	}
	if a.vm.Status().Authenticated {
		_ = a.vm.LoadDialogs(ctx)
	}
}

// watchEvents relays daemon events into the view model, reconnecting
// while the TUI runs.
func (a *App) watchEvents() {
	for {
		stream, err := a.daemon.WatchEvents(a.ctx, "")
		if err == nil {
			err = a.consume(stream)
		}
		if a.ctx.Err() != nil {
			return
		}
		a.logger.Warn("event stream ended", zap.Error(err))
		a.app.QueueUpdateDraw(func() { a.flash.Warn("Lost the daemon, reconnecting...") })
		select {
		case <-a.ctx.Done():
			return
		case <-time.After(watchRetryDelay):
		}
	}
}

func (a *App) consume(stream *api.EventStream) error {
	for {
		evt, err := stream.Recv()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
		if err := a.vm.HandleEvent(ctx, evt); err != nil && a.ctx.Err() == nil {
			a.logger.Debug("event reload failed", zap.String("kind", evt.Kind), zap.Error(err))
		}
		cancel()
	}
}

func (a *App) pollStatus() {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
			_ = a.vm.LoadStatus(ctx)
			cancel()
		}
	}
}

func (a *App) redrawLoop() {
	flashes := a.flash.Watch()
	expire := time.NewTicker(time.Second)
	defer expire.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.vm.RefreshCh():
			a.app.QueueUpdateDraw(a.render)
		case msg := <-flashes:
			a.app.QueueUpdateDraw(func() { a.renderFlash(&msg) })
		case <-expire.C:
			a.app.QueueUpdateDraw(func() { a.renderFlash(a.flash.GetMessage()) })
		}
	}
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
