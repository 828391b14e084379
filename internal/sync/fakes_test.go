package sync

import (
	"context"
	"errors"
	"path/filepath"
	gosync "sync"
	"testing"
	"time"

	"github.com/matheus3301/soc/internal/backend"
	"github.com/matheus3301/soc/internal/store"
)

var errBackend = errors.New("backend down")

type fakeDialogAPI struct {
	mu    gosync.Mutex
	list  []backend.Dialog
	err   error
	calls int
}

func (f *fakeDialogAPI) set(list []backend.Dialog, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.list, f.err = list, err
}

func (f *fakeDialogAPI) ListDialogs(ctx context.Context) ([]backend.Dialog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]backend.Dialog, len(f.list))
	copy(out, f.list)
	return out, nil
}

func (f *fakeDialogAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeMessageAPI serves per-peer snapshots. A peer listed in gates blocks
// until its channel is closed.
type fakeMessageAPI struct {
	mu      gosync.Mutex
	threads map[int64][]backend.Message
	gates   map[int64]chan struct{}
	calls   map[int64]int
	err     error
}

func newFakeMessageAPI() *fakeMessageAPI {
	return &fakeMessageAPI{
		threads: make(map[int64][]backend.Message),
		gates:   make(map[int64]chan struct{}),
		calls:   make(map[int64]int),
	}
}

func (f *fakeMessageAPI) set(peer int64, msgs ...backend.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads[peer] = msgs
}

func (f *fakeMessageAPI) gate(peer int64) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[peer] = ch
	return ch
}

func (f *fakeMessageAPI) ListMessages(ctx context.Context, peer int64) ([]backend.Message, error) {
	f.mu.Lock()
	f.calls[peer]++
	gate := f.gates[peer]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	msgs := f.threads[peer]
	out := make([]backend.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (f *fakeMessageAPI) callCount(peer int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[peer]
}

type staticUser struct {
	id int64
	ok bool
}

func (s staticUser) UserID() (int64, bool) { return s.id, s.ok }

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, _, err := store.OpenMigrated(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func msg(sender, receiver int64, content string) backend.Message {
	return backend.Message{SenderID: sender, ReceiverID: receiver, Content: content}
}
