// Package model caches daemon state for the TUI.
package model

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/matheus3301/soc/internal/api"
	"github.com/matheus3301/soc/internal/backend"
	"github.com/matheus3301/soc/internal/bus"
	"github.com/matheus3301/soc/internal/outbox"
	"github.com/matheus3301/soc/internal/store"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// SearchLimit bounds message search results shown in the TUI.
const SearchLimit = 50

// Daemon is the part of the daemon API the TUI uses.
type Daemon interface {
	Status(ctx context.Context) (api.SessionStatus, error)
	Login(ctx context.Context, username, password string) (api.LoginResult, error)
	Logout(ctx context.Context) error
	ListDialogs(ctx context.Context) (api.DialogList, error)
	Select(ctx context.Context, peerID int64) (backend.Dialog, error)
	Deselect(ctx context.Context) error
	Thread(ctx context.Context, refresh bool) (backend.Dialog, []api.ThreadMessage, error)
	Send(ctx context.Context, peerID int64, content, pictureURL string) (backend.Message, error)
	SearchUsers(ctx context.Context, query string) ([]backend.UserSummary, error)
	Originate(ctx context.Context, u backend.UserSummary) (backend.Dialog, error)
	SearchMessages(ctx context.Context, query string, peerID int64, limit int) ([]store.SearchResult, error)
}

// ViewModel caches what the daemon reports and signals UI refreshes.
type ViewModel struct {
	daemon Daemon

	mu       sync.RWMutex
	loaded   bool
	status   api.SessionStatus
	dialogs  api.DialogList
	selected *backend.Dialog
	messages []api.ThreadMessage
	sending  bool

	refreshCh chan struct{}
}

// NewViewModel creates a view model backed by d.
func NewViewModel(d Daemon) *ViewModel {
	return &ViewModel{
		daemon:    d,
		refreshCh: make(chan struct{}, 1),
	}
}

// RefreshCh signals that cached state changed.
func (vm *ViewModel) RefreshCh() <-chan struct{} {
	return vm.refreshCh
}

func (vm *ViewModel) signalRefresh() {
	select {
	case vm.refreshCh <- struct{}{}:
	default:
	}
}

// LoadStatus fetches the session status.
func (vm *ViewModel) LoadStatus(ctx context.Context) error {
	st, err := vm.daemon.Status(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.loaded = true
	vm.status = st
	if !st.Authenticated {
		vm.dialogs = api.DialogList{}
		vm.selected = nil
		vm.messages = nil
	}
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// LoadDialogs fetches the dialog list.
func (vm *ViewModel) LoadDialogs(ctx context.Context) error {
	list, err := vm.daemon.ListDialogs(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.dialogs = list
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// LoadThread fetches the selected thread. It does nothing while no
// dialog is selected.
func (vm *ViewModel) LoadThread(ctx context.Context) error {
	vm.mu.RLock()
	open := vm.selected != nil
	vm.mu.RUnlock()
	if !open {
		return nil
	}
	dlg, msgs, err := vm.daemon.Thread(ctx, false)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	if vm.selected != nil && vm.selected.PeerID == dlg.PeerID {
		vm.selected = &dlg
		vm.messages = msgs
	}
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// Login logs the daemon in and reloads the session status.
func (vm *ViewModel) Login(ctx context.Context, username, password string) (api.LoginResult, error) {
	res, err := vm.daemon.Login(ctx, username, password)
	if err != nil {
		return api.LoginResult{}, err
	}
	_ = vm.LoadStatus(ctx)
	return res, nil
}

// Logout logs the daemon out.
func (vm *ViewModel) Logout(ctx context.Context) error {
	if err := vm.daemon.Logout(ctx); err != nil {
		return err
	}
	return vm.LoadStatus(ctx)
}

// Open selects the dialog with peerID. The previous thread is dropped
// before the new one is fetched.
func (vm *ViewModel) Open(ctx context.Context, peerID int64) (backend.Dialog, error) {
	dlg, err := vm.daemon.Select(ctx, peerID)
	if err != nil {
		return backend.Dialog{}, err
	}
	vm.selectDialog(dlg)
	return dlg, vm.LoadThread(ctx)
}

// Originate opens a conversation with u, who may have no dialog yet.
func (vm *ViewModel) Originate(ctx context.Context, u backend.UserSummary) (backend.Dialog, error) {
	dlg, err := vm.daemon.Originate(ctx, u)
	if err != nil {
		return backend.Dialog{}, err
	}
	vm.selectDialog(dlg)
	return dlg, vm.LoadThread(ctx)
}

func (vm *ViewModel) selectDialog(dlg backend.Dialog) {
	vm.mu.Lock()
	vm.selected = &dlg
	vm.messages = nil
	vm.mu.Unlock()
	vm.signalRefresh()
}

// Close leaves the selected thread.
func (vm *ViewModel) Close(ctx context.Context) error {
	vm.mu.Lock()
	vm.selected = nil
	vm.messages = nil
	vm.mu.Unlock()
	vm.signalRefresh()
	return vm.daemon.Deselect(ctx)
}

// Send sends text to the selected dialog. Blank text and a second send
// while one is in flight are rejected without reaching the daemon.
func (vm *ViewModel) Send(ctx context.Context, text, pictureURL string) (backend.Message, error) {
	if strings.TrimSpace(text) == "" {
		return backend.Message{}, outbox.ErrEmptyMessage
	}
	vm.mu.Lock()
	if vm.sending {
		vm.mu.Unlock()
		return backend.Message{}, outbox.ErrSendInFlight
	}
	if vm.selected == nil {
		vm.mu.Unlock()
		return backend.Message{}, outbox.ErrNoDialog
	}
	peer := vm.selected.PeerID
	vm.sending = true
	vm.mu.Unlock()

	msg, err := vm.daemon.Send(ctx, peer, text, pictureURL)

	vm.mu.Lock()
	vm.sending = false
	vm.mu.Unlock()
	if err != nil {
		return backend.Message{}, err
	}
	_ = vm.LoadThread(ctx)
	return msg, nil
}

// Sending reports whether a send is in flight.
func (vm *ViewModel) Sending() bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.sending
}

// SearchUsers searches the user directory.
func (vm *ViewModel) SearchUsers(ctx context.Context, query string) ([]backend.UserSummary, error) {
	return vm.daemon.SearchUsers(ctx, query)
}

// SearchMessages searches the daemon's message cache.
func (vm *ViewModel) SearchMessages(ctx context.Context, query string) ([]store.SearchResult, error) {
	return vm.daemon.SearchMessages(ctx, query, 0, SearchLimit)
}

// HandleEvent reloads whatever a relayed event invalidates.
func (vm *ViewModel) HandleEvent(ctx context.Context, evt api.Event) error {
	switch {
	case strings.HasPrefix(evt.Kind, "dialogs."):
		return vm.LoadDialogs(ctx)
	case evt.Kind == bus.ThreadUpdated, evt.Kind == bus.MessageSent:
		return vm.LoadThread(ctx)
	case strings.HasPrefix(evt.Kind, "session."):
		return vm.LoadStatus(ctx)
	}
	return nil
}

// Status returns the cached session status.
func (vm *ViewModel) Status() api.SessionStatus {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.status
}

// StatusKnown reports whether a status has been loaded yet.
func (vm *ViewModel) StatusKnown() bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.loaded
}

// Dialogs returns the cached dialog list.
func (vm *ViewModel) Dialogs() api.DialogList {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.dialogs
}

// Selected returns the open dialog, if any.
func (vm *ViewModel) Selected() (backend.Dialog, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.selected == nil {
		return backend.Dialog{}, false
	}
	return *vm.selected, true
}

// Messages returns the cached thread.
func (vm *ViewModel) Messages() []api.ThreadMessage {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.messages
}

// ErrorText is the human readable part of a daemon error.
func ErrorText(err error) string {
	if err == nil {
		return ""
	}
	if st, ok := grpcstatus.FromError(err); ok {
		if st.Code() == codes.Unavailable {
			return "daemon unavailable: " + st.Message()
		}
		return st.Message()
	}
	return err.Error()
}

// IsUnauthenticated reports whether err means the session must log in.
func IsUnauthenticated(err error) bool {
	var st interface{ GRPCStatus() *grpcstatus.Status }
	if errors.As(err, &st) {
		return st.GRPCStatus().Code() == codes.Unauthenticated
	}
	return false
}
