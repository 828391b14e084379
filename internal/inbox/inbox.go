// Package inbox ties the dialog list, the selected thread, the composer
// and the originator to one session.
package inbox

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/matheus3301/soc/internal/backend"
	"github.com/matheus3301/soc/internal/bus"
	"github.com/matheus3301/soc/internal/identity"
	"github.com/matheus3301/soc/internal/logging"
	"github.com/matheus3301/soc/internal/outbox"
	"github.com/matheus3301/soc/internal/store"
	msgsync "github.com/matheus3301/soc/internal/sync"
	"go.uber.org/zap"
)

// ErrNotMounted is returned by operations that need a mounted inbox.
var ErrNotMounted = errors.New("inbox is not mounted")

// ErrUnknownDialog is returned when selecting a peer that is not listed.
var ErrUnknownDialog = errors.New("no dialog with that peer")

// State is the inbox's selection state.
type State int

const (
	Idle     State = iota // nothing selected, thread not polling
	Selected              // a dialog is selected and its thread is polling
)

func (s State) String() string {
	if s == Selected {
		return "selected"
	}
	return "idle"
}

// SessionCache is the per-user data kept on disk between runs.
type SessionCache interface {
	ClearSession(ctx context.Context) error
}

const clearTimeout = 5 * time.Second

// Options tunes polling.
type Options struct {
	DialogInterval time.Duration
	ThreadInterval time.Duration
}

// Inbox is the messaging core a host mounts.
type Inbox struct {
	Dialogs    *msgsync.Dialogs
	Thread     *msgsync.Thread
	Composer   *outbox.Composer
	Originator *msgsync.Originator

	ident  *identity.Identity
	client *backend.Client
	cache  SessionCache
	bus    *bus.Bus
	logger *zap.Logger

	mu     gosync.Mutex
	ctx    context.Context
	cancel context.CancelFunc

	unsubscribe func()
}

// New wires an inbox. db and b may be nil.
func New(ident *identity.Identity, client *backend.Client, db *store.DB, b *bus.Bus, logger *zap.Logger, opts Options) *Inbox {
	logger = logging.OrNop(logger)

	var (
		dialogStore msgsync.DialogStore
		threadStore msgsync.MessageStore
		cache       SessionCache
	)
	if db != nil {
		dialogStore, threadStore, cache = db, db, db
	}

	dialogs := msgsync.NewDialogs(client, dialogStore, b, logger.Named("dialogs"), opts.DialogInterval)
	thread := msgsync.NewThread(client, threadStore, ident, b, logger.Named("thread"), opts.ThreadInterval)
	in := &Inbox{
		Dialogs:    dialogs,
		Thread:     thread,
		Composer:   outbox.NewComposer(client, thread, dialogs, b, logger.Named("outbox")),
		Originator: msgsync.NewOriginator(client, ident, dialogs, thread, logger),
		ident:      ident,
		client:     client,
		cache:      cache,
		bus:        b,
		logger:     logger,
	}

	// Invalidation may fire from inside a poll; closing waits for the
	// pollers, so it has to run elsewhere. The cache is cleared only once
	// nothing can write to it anymore.
	in.unsubscribe = ident.OnInvalidate(func() {
		go func() {
			in.Close()
			in.clearCache()
			b.Emit(bus.SessionLoggedOut, nil)
		}()
	})
	return in
}

// Mount starts the dialog poller. Polling lives until Close or until ctx
// is cancelled. Mounting twice does nothing.
func (in *Inbox) Mount(ctx context.Context) error {
	if !in.ident.Authenticated() {
		return identity.ErrNotAuthenticated
	}
	in.mu.Lock()
	if in.ctx != nil {
		in.mu.Unlock()
		return nil
	}
	in.ctx, in.cancel = context.WithCancel(ctx)
	pollCtx := in.ctx
	in.mu.Unlock()

	if err := in.Dialogs.Restore(pollCtx); err != nil {
		in.logger.Warn("restore dialog snapshot failed", zap.Error(err))
	}
	in.Dialogs.Start(pollCtx)
	in.logger.Info("inbox mounted")
	return nil
}

// Mounted reports whether the inbox is polling.
func (in *Inbox) Mounted() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.ctx != nil
}

func (in *Inbox) pollContext() (context.Context, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.ctx == nil {
		return nil, ErrNotMounted
	}
	return in.ctx, nil
}

// State reports whether a dialog is selected.
func (in *Inbox) State() State {
	if _, ok := in.Thread.Selected(); ok {
		return Selected
	}
	return Idle
}

// Select makes dlg the selected dialog.
func (in *Inbox) Select(dlg backend.Dialog) error {
	ctx, err := in.pollContext()
	if err != nil {
		return err
	}
	in.Thread.Select(ctx, dlg)
	return nil
}

// SelectPeer selects the listed dialog with peerID.
func (in *Inbox) SelectPeer(peerID int64) (backend.Dialog, error) {
	dlg, ok := in.Dialogs.Find(peerID)
	if !ok {
		return backend.Dialog{}, fmt.Errorf("%w: %d", ErrUnknownDialog, peerID)
	}
	return dlg, in.Select(dlg)
}

// Deselect stops the thread poller.
func (in *Inbox) Deselect() {
	in.Thread.Deselect()
}

// Originate starts a conversation with u.
func (in *Inbox) Originate(u backend.UserSummary) (backend.Dialog, error) {
	ctx, err := in.pollContext()
	if err != nil {
		return backend.Dialog{}, err
	}
	return in.Originator.Originate(ctx, u), nil
}

func (in *Inbox) clearCache() {
	if in.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), clearTimeout)
	defer cancel()
	if err := in.cache.ClearSession(ctx); err != nil {
		in.logger.Warn("clear session cache failed", zap.Error(err))
		return
	}
	in.logger.Info("session cache cleared")
}

// Close stops both pollers, forgets the in-memory dialog list and returns
// the inbox to idle. It can be mounted again afterwards.
func (in *Inbox) Close() {
	in.mu.Lock()
	cancel := in.cancel
	in.ctx, in.cancel = nil, nil
	in.mu.Unlock()

	in.Thread.Deselect()
	in.Dialogs.Stop()
	in.Composer.Wait()
	in.Dialogs.Reset()
	if cancel != nil {
		cancel()
		in.logger.Info("inbox closed")
	}
}

// Shutdown closes the inbox and detaches it from the identity.
func (in *Inbox) Shutdown() {
	in.unsubscribe()
	in.Close()
}
