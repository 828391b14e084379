// Package outbox sends messages typed into the composer to the selected
// dialog.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	gosync "sync"
	"time"

	"github.com/matheus3301/soc/internal/backend"
	"github.com/matheus3301/soc/internal/bus"
	"github.com/matheus3301/soc/internal/logging"
	msgsync "github.com/matheus3301/soc/internal/sync"
	"go.uber.org/zap"
)

var (
	// ErrEmptyMessage is returned for blank or whitespace-only input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrSendInFlight is returned while a previous send has not settled.
	ErrSendInFlight = errors.New("a message is already being sent")
	// ErrNoDialog is returned when no dialog is selected.
	ErrNoDialog = msgsync.ErrNoDialog
)

const refreshTimeout = 15 * time.Second

// MessageSender posts a message to the backend.
type MessageSender interface {
	SendMessage(ctx context.Context, receiverID int64, content, pictureURL string) (backend.Message, error)
}

// Thread is where sent messages are appended.
type Thread interface {
	Prepare(content, pictureURL string) (msgsync.Outgoing, error)
	Append(o msgsync.Outgoing, m backend.Message) error
}

// Refresher refreshes the dialog list after a send.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Sent is the payload of message.sent events.
type Sent struct {
	PeerID  int64
	Message backend.Message
}

// SendFailure is the payload of message.send_failed events.
type SendFailure struct {
	PeerID int64
	Error  string
}

// Composer holds the input buffer and sends it, one request at a time.
type Composer struct {
	api     MessageSender
	thread  Thread
	dialogs Refresher
	bus     *bus.Bus
	logger  *zap.Logger

	mu        gosync.Mutex
	draft     string
	picture   string
	inFlight  bool
	refreshes gosync.WaitGroup
}

// NewComposer creates a composer. dialogs and b may be nil.
func NewComposer(api MessageSender, thread Thread, dialogs Refresher, b *bus.Bus, logger *zap.Logger) *Composer {
	return &Composer{
		api:     api,
		thread:  thread,
		dialogs: dialogs,
		bus:     b,
		logger:  logging.OrNop(logger),
	}
}

// SetDraft replaces the input buffer.
func (c *Composer) SetDraft(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()
}

// Draft returns the input buffer.
func (c *Composer) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SetPicture attaches a picture URL to the next message.
func (c *Composer) SetPicture(url string) {
	c.mu.Lock()
	c.picture = strings.TrimSpace(url)
	c.mu.Unlock()
}

// Sending reports whether a send is in flight.
func (c *Composer) Sending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Send posts the trimmed input buffer to the selected dialog. On success
// the returned message is appended to the thread, the buffer and picture
// are cleared and the dialog list is refreshed; on failure the buffer is
// kept.
func (c *Composer) Send(ctx context.Context) (backend.Message, error) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return backend.Message{}, ErrSendInFlight
	}
	draft, picture := c.draft, c.picture
	content := strings.TrimSpace(draft)
	if content == "" {
		c.mu.Unlock()
		return backend.Message{}, ErrEmptyMessage
	}
	out, err := c.thread.Prepare(content, picture)
	if err != nil {
		c.mu.Unlock()
		return backend.Message{}, err
	}
	c.inFlight = true
	c.mu.Unlock()

	peer := out.Dialog.PeerID
	sent, err := c.api.SendMessage(ctx, peer, content, picture)

	c.mu.Lock()
	c.inFlight = false
	if err == nil && c.draft == draft {
		c.draft = ""
		c.picture = ""
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("send message failed", zap.Int64("peer_id", peer), zap.Error(err))
		c.bus.Emit(bus.MessageSendFailed, SendFailure{PeerID: peer, Error: err.Error()})
		return backend.Message{}, fmt.Errorf("send to %d: %w", peer, err)
	}

	if err := c.thread.Append(out, sent); err != nil {
		c.logger.Debug("sent message not appended", zap.Int64("peer_id", peer), zap.Error(err))
	}
	c.logger.Info("message sent", zap.Int64("peer_id", peer), zap.Int64("message_id", sent.ID))
	c.bus.Emit(bus.MessageSent, Sent{PeerID: peer, Message: sent})
	c.refreshDialogs(ctx)
	return sent, nil
}

// SendText replaces the buffer with text and sends it.
func (c *Composer) SendText(ctx context.Context, text string) (backend.Message, error) {
	c.SetDraft(text)
	return c.Send(ctx)
}

// refreshDialogs updates previews and ordering in the background. It
// outlives ctx's cancellation but not its values.
func (c *Composer) refreshDialogs(ctx context.Context) {
	if c.dialogs == nil {
		return
	}
	c.refreshes.Add(1)
	go func() {
		defer c.refreshes.Done()
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		_ = c.dialogs.Refresh(rctx)
	}()
}

// Wait blocks until background dialog refreshes have finished.
func (c *Composer) Wait() {
	c.refreshes.Wait()
}
