package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	gosync "sync"
	"time"

	"github.com/matheus3301/soc/internal/backend"
	"github.com/matheus3301/soc/internal/bus"
	"github.com/matheus3301/soc/internal/logging"
	"github.com/matheus3301/soc/internal/store"
	"go.uber.org/zap"
)

// DefaultDialogInterval is how often the dialog list is refetched.
const DefaultDialogInterval = 5 * time.Second

// ErrSnapshot is reported as the last error while the list still comes
// from the stored snapshot.
var ErrSnapshot = errors.New("showing stored dialogs; not refreshed yet")

// DialogFetcher fetches the current user's dialog list.
type DialogFetcher interface {
	ListDialogs(ctx context.Context) ([]backend.Dialog, error)
}

// DialogStore keeps the last dialog snapshot across restarts.
type DialogStore interface {
	ReplaceDialogs(ctx context.Context, ds []store.Dialog) error
	ListDialogs(ctx context.Context) ([]store.Dialog, error)
	SetState(ctx context.Context, key, value string) error
	GetState(ctx context.Context, key string) (string, bool, error)
}

// Dialogs polls the dialog list. Every successful fetch replaces the list
// wholesale; a failed fetch leaves it untouched.
type Dialogs struct {
	api      DialogFetcher
	db       DialogStore
	bus      *bus.Bus
	logger   *zap.Logger
	interval time.Duration

	mu       gosync.RWMutex
	list     []backend.Dialog
	syncedAt time.Time
	lastErr  error

	taskMu gosync.Mutex
	task   *task
}

// NewDialogs creates a dialog synchronizer. db and b may be nil.
func NewDialogs(api DialogFetcher, db DialogStore, b *bus.Bus, logger *zap.Logger, interval time.Duration) *Dialogs {
	if interval <= 0 {
		interval = DefaultDialogInterval
	}
	return &Dialogs{
		api:      api,
		db:       db,
		bus:      b,
		logger:   logging.OrNop(logger),
		interval: interval,
	}
}

// Restore seeds the list from the stored snapshot, if nothing was fetched
// yet. The restored list keeps its stored sync time and reports
// ErrSnapshot until the first successful fetch.
func (d *Dialogs) Restore(ctx context.Context) error {
	if d.db == nil {
		return nil
	}
	raw, ok, err := d.db.GetState(ctx, store.StateDialogsSyncedAt)
	if err != nil || !ok {
		return err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("stored dialog sync time %q: %w", raw, err)
	}
	ds, err := d.db.ListDialogs(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	if d.list != nil || !d.syncedAt.IsZero() {
		d.mu.Unlock()
		return nil
	}
	d.list = fromStoreDialogs(ds)
	d.syncedAt = time.UnixMilli(ms)
	d.lastErr = ErrSnapshot
	d.mu.Unlock()

	d.bus.Emit(bus.DialogsChanged, len(ds))
	return nil
}

// Reset forgets the list, its sync time and the last error.
func (d *Dialogs) Reset() {
	d.mu.Lock()
	d.list = nil
	d.syncedAt = time.Time{}
	d.lastErr = nil
	d.mu.Unlock()
}

// Start begins polling: one fetch now, then one per interval until Stop.
// Starting an already running synchronizer does nothing.
func (d *Dialogs) Start(ctx context.Context) {
	d.taskMu.Lock()
	defer d.taskMu.Unlock()
	if d.task != nil {
		return
	}
	d.task = startTask(ctx, d.interval, func(ctx context.Context) {
		_ = d.Refresh(ctx)
	})
	d.logger.Info("dialog polling started", zap.Duration("interval", d.interval))
}

// Stop ends polling and waits for the poll goroutine to exit. A request
// already on the wire is cancelled and its result discarded.
func (d *Dialogs) Stop() {
	d.taskMu.Lock()
	t := d.task
	d.task = nil
	d.taskMu.Unlock()
	if t == nil {
		return
	}
	t.stop()
	t.wait()
	d.logger.Info("dialog polling stopped")
}

// Running reports whether the poller is active.
func (d *Dialogs) Running() bool {
	d.taskMu.Lock()
	defer d.taskMu.Unlock()
	return d.task != nil
}

// Refresh fetches the list once and, on success, replaces the current one.
func (d *Dialogs) Refresh(ctx context.Context) error {
	list, err := d.api.ListDialogs(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.mu.Lock()
		d.lastErr = err
		d.mu.Unlock()
		d.logger.Warn("dialog fetch failed", zap.Error(err))
		d.bus.Emit(bus.DialogsFailed, err.Error())
		return err
	}
	if list == nil {
		list = []backend.Dialog{}
	}

	now := time.Now()
	d.mu.Lock()
	d.list = list
	d.syncedAt = now
	d.lastErr = nil
	d.mu.Unlock()

	d.persist(ctx, list, now)
	d.bus.Emit(bus.DialogsUpdated, len(list))
	return nil
}

func (d *Dialogs) persist(ctx context.Context, list []backend.Dialog, at time.Time) {
	if d.db == nil {
		return
	}
	if err := d.db.ReplaceDialogs(ctx, storeDialogs(list)); err != nil {
		d.logger.Warn("persist dialogs failed", zap.Error(err))
		return
	}
	if err := d.db.SetState(ctx, store.StateDialogsSyncedAt, strconv.FormatInt(at.UnixMilli(), 10)); err != nil {
		d.logger.Warn("persist dialog sync time failed", zap.Error(err))
	}
}

// Insert puts a locally made dialog at the head of the list unless the
// peer is already listed. The entry lives until the next successful
// fetch replaces the list.
func (d *Dialogs) Insert(dlg backend.Dialog) {
	d.mu.Lock()
	for _, existing := range d.list {
		if existing.PeerID == dlg.PeerID {
			d.mu.Unlock()
			return
		}
	}
	d.list = append([]backend.Dialog{dlg}, d.list...)
	n := len(d.list)
	d.mu.Unlock()

	d.bus.Emit(bus.DialogsChanged, n)
}

// Find returns the listed dialog with peerID.
func (d *Dialogs) Find(peerID int64) (backend.Dialog, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, dlg := range d.list {
		if dlg.PeerID == peerID {
			return dlg, true
		}
	}
	return backend.Dialog{}, false
}

// List returns a copy of the current list.
func (d *Dialogs) List() []backend.Dialog {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]backend.Dialog, len(d.list))
	copy(out, d.list)
	return out
}

// SyncedAt returns when the list was last replaced, and the error of the
// most recent fetch if it failed.
func (d *Dialogs) SyncedAt() (time.Time, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.syncedAt, d.lastErr
}
