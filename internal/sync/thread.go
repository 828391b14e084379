package sync

import (
	"context"
	"errors"
	gosync "sync"
	"time"

	"github.com/matheus3301/soc/internal/backend"
	"github.com/matheus3301/soc/internal/bus"
	"github.com/matheus3301/soc/internal/logging"
	"github.com/matheus3301/soc/internal/store"
	"go.uber.org/zap"
)

// DefaultThreadInterval is how often the selected thread is refetched.
const DefaultThreadInterval = 2 * time.Second

// ErrNoDialog is returned when an operation needs a selected dialog.
var ErrNoDialog = errors.New("no dialog selected")

// ErrStale is returned when the dialog changed while an operation ran.
var ErrStale = errors.New("dialog selection changed")

// MessageFetcher fetches one thread.
type MessageFetcher interface {
	ListMessages(ctx context.Context, peerID int64) ([]backend.Message, error)
}

// MessageStore caches fetched threads for local search.
type MessageStore interface {
	UpsertMessages(ctx context.Context, peerID int64, msgs []store.Message) error
}

// UserIDSource resolves the current user's id.
type UserIDSource interface {
	UserID() (int64, bool)
}

// ThreadSelection is the payload of thread bus events.
type ThreadSelection struct {
	PeerID int64
	Count  int
}

// Outgoing is a handle taken before a send and handed back to Append so
// the sent message lands in the right thread at the right place.
type Outgoing struct {
	Dialog   backend.Dialog
	gen      uint64
	key      string
	baseline int
}

// Thread polls the messages of the selected dialog. Selecting another
// dialog cancels the previous poll and clears the list at once; results
// of a superseded poll are discarded by generation.
type Thread struct {
	api      MessageFetcher
	db       MessageStore
	ids      UserIDSource
	bus      *bus.Bus
	logger   *zap.Logger
	interval time.Duration

	mu       gosync.Mutex
	gen      uint64
	selected *backend.Dialog
	state    threadState
	task     *task
}

// NewThread creates a thread synchronizer. db and b may be nil.
func NewThread(api MessageFetcher, db MessageStore, ids UserIDSource, b *bus.Bus, logger *zap.Logger, interval time.Duration) *Thread {
	if interval <= 0 {
		interval = DefaultThreadInterval
	}
	return &Thread{
		api:      api,
		db:       db,
		ids:      ids,
		bus:      b,
		logger:   logging.OrNop(logger),
		interval: interval,
	}
}

// Select makes dlg the selected dialog and starts polling it. Selecting
// the dialog that is already selected resets it the same way.
func (t *Thread) Select(ctx context.Context, dlg backend.Dialog) {
	t.mu.Lock()
	t.task.stop()
	t.gen++
	gen := t.gen
	sel := dlg
	t.selected = &sel
	t.state.reset()
	t.task = startTask(ctx, t.interval, func(ctx context.Context) {
		_ = t.poll(ctx, gen, dlg.PeerID)
	})
	t.mu.Unlock()

	t.logger.Debug("thread selected", zap.Int64("peer_id", dlg.PeerID))
	t.bus.Emit(bus.ThreadSelected, ThreadSelection{PeerID: dlg.PeerID})
}

// Deselect stops polling, waits for the poll goroutine to exit and clears
// the thread.
func (t *Thread) Deselect() {
	t.mu.Lock()
	prev := t.task
	prev.stop()
	t.task = nil
	had := t.selected != nil
	t.gen++
	t.selected = nil
	t.state.reset()
	t.mu.Unlock()

	prev.wait()
	if had {
		t.bus.Emit(bus.ThreadCleared, nil)
	}
}

// Selected returns the selected dialog.
func (t *Thread) Selected() (backend.Dialog, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.selected == nil {
		return backend.Dialog{}, false
	}
	return *t.selected, true
}

// Messages returns a copy of the visible thread.
func (t *Thread) Messages() []backend.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.view()
}

// Refresh fetches the selected thread once.
func (t *Thread) Refresh(ctx context.Context) error {
	t.mu.Lock()
	if t.selected == nil {
		t.mu.Unlock()
		return ErrNoDialog
	}
	gen, peer := t.gen, t.selected.PeerID
	t.mu.Unlock()
	return t.poll(ctx, gen, peer)
}

func (t *Thread) poll(ctx context.Context, gen uint64, peerID int64) error {
	msgs, err := t.api.ListMessages(ctx, peerID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		t.logger.Warn("thread fetch failed", zap.Int64("peer_id", peerID), zap.Error(err))
		t.bus.Emit(bus.ThreadFailed, ThreadSelection{PeerID: peerID})
		return err
	}

	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		t.logger.Debug("discarding stale thread fetch", zap.Int64("peer_id", peerID))
		return ErrStale
	}
	t.state.apply(msgs)
	count := len(t.state.confirmed) + len(t.state.pending)
	t.mu.Unlock()

	if t.db != nil {
		if err := t.db.UpsertMessages(ctx, peerID, storeMessages(peerID, msgs)); err != nil {
			t.logger.Warn("persist thread failed", zap.Int64("peer_id", peerID), zap.Error(err))
		}
	}
	t.bus.Emit(bus.ThreadUpdated, ThreadSelection{PeerID: peerID, Count: count})
	return nil
}

// Prepare takes a handle for sending draft to the selected dialog.
func (t *Thread) Prepare(content, pictureURL string) (Outgoing, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.selected == nil {
		return Outgoing{}, ErrNoDialog
	}
	key := matchKey(backend.Message{ReceiverID: t.selected.PeerID, Content: content, PictureURL: pictureURL})
	return Outgoing{
		Dialog:   *t.selected,
		gen:      t.gen,
		key:      key,
		baseline: t.state.expected(key),
	}, nil
}

// Append adds a sent message to the tail of the thread it was prepared
// for. It returns ErrStale if that dialog is no longer selected.
func (t *Thread) Append(o Outgoing, m backend.Message) error {
	t.mu.Lock()
	if o.gen != t.gen || t.selected == nil {
		t.mu.Unlock()
		return ErrStale
	}
	t.state.appendSent(m, o.key, o.baseline)
	count := len(t.state.confirmed) + len(t.state.pending)
	t.mu.Unlock()

	t.bus.Emit(bus.ThreadUpdated, ThreadSelection{PeerID: o.Dialog.PeerID, Count: count})
	return nil
}

// Mine reports whether m was sent by the current user. Without a known
// user id it assumes messages addressed to the selected peer are ours.
func (t *Thread) Mine(m backend.Message) bool {
	if t.ids != nil {
		if me, ok := t.ids.UserID(); ok {
			return m.SenderID == me
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.selected != nil && m.ReceiverID == t.selected.PeerID
}
