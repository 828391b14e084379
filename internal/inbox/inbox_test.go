package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	gosync "sync"
	"testing"
	"time"

	"github.com/matheus3301/soc/internal/backend"
	"github.com/matheus3301/soc/internal/bus"
	"github.com/matheus3301/soc/internal/gateway"
	"github.com/matheus3301/soc/internal/identity"
	"github.com/matheus3301/soc/internal/store"
)

// fakeBackend is a small in-memory version of the REST API.
type fakeBackend struct {
	mu        gosync.Mutex
	token     string
	loginUID  int64
	users     []map[string]any
	dialogs   []map[string]any
	threads   map[string][]map[string]any
	sends     []map[string]any
	hits      map[string]int
	expireNow bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		token:   "tok",
		threads: make(map[string][]map[string]any),
		hits:    make(map[string]int),
	}
}

func (f *fakeBackend) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := strings.TrimPrefix(r.URL.Path, "/api")
	f.hits[path]++

	write := func(v any) { _ = json.NewEncoder(w).Encode(v) }

	if path == "/token" {
		resp := map[string]any{"access_token": f.token, "token_type": "bearer"}
		if f.loginUID != 0 {
			resp["user_id"] = f.loginUID
		}
		write(resp)
		return
	}
	if f.expireNow || r.Header.Get("Authorization") != "Bearer "+f.token {
		w.WriteHeader(http.StatusUnauthorized)
		write(map[string]string{"detail": "Token expired"})
		return
	}

	switch {
	case path == "/messages/dialogs":
		write(f.dialogs)
	case path == "/messages/send":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.sends = append(f.sends, body)
		write(map[string]any{"sender_id": 1, "receiver_id": body["receiver_id"], "content": body["content"], "picture_url": body["picture_url"]})
	case strings.HasPrefix(path, "/messages/"):
		write(f.threads[strings.TrimPrefix(path, "/messages/")])
	case path == "/users/search", path == "/users/all":
		write(f.users)
	default:
		w.WriteHeader(http.StatusNotFound)
		write(map[string]string{"detail": "Not Found"})
	}
}

func setup(t *testing.T, fb *fakeBackend) (*Inbox, *identity.Identity, *bus.Bus) {
	t.Helper()
	return setupWithStore(t, fb, nil)
}

func setupWithStore(t *testing.T, fb *fakeBackend, db *store.DB) (*Inbox, *identity.Identity, *bus.Bus) {
	t.Helper()
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	var creds identity.CredentialStore
	if db != nil {
		creds = db
	}
	ident := identity.New(creds, nil)
	g, err := gateway.New(gateway.Options{
		BaseURL:        srv.URL + "/api",
		Timeout:        time.Second,
		Auth:           ident,
		OnUnauthorized: ident.Invalidate,
	})
	if err != nil {
		t.Fatal(err)
	}
	b := bus.New()
	in := New(ident, backend.New(g), db, b, nil, Options{
		DialogInterval: 20 * time.Millisecond,
		ThreadInterval: 20 * time.Millisecond,
	})
	t.Cleanup(in.Shutdown)
	return in, ident, b
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

func TestMountRequiresLogin(t *testing.T) {
	in, _, _ := setup(t, newFakeBackend())
	if err := in.Mount(context.Background()); !errors.Is(err, identity.ErrNotAuthenticated) {
		t.Errorf("Mount() = %v, want ErrNotAuthenticated", err)
	}
	if err := in.Select(backend.Dialog{PeerID: 1}); !errors.Is(err, ErrNotMounted) {
		t.Errorf("Select() = %v, want ErrNotMounted", err)
	}
}

func TestLoginUsesReportedUserID(t *testing.T) {
	fb := newFakeBackend()
	fb.loginUID = 1
	in, ident, _ := setup(t, fb)

	if err := in.Login(context.Background(), "ann", "pw"); err != nil {
		t.Fatal(err)
	}
	if id, ok := ident.UserID(); !ok || id != 1 {
		t.Errorf("UserID() = %d, %v, want 1", id, ok)
	}
	if fb.count("/users/search") != 0 {
		t.Error("directory searched although login reported the id")
	}
}

func TestLoginResolvesUserIDByUsername(t *testing.T) {
	fb := newFakeBackend()
	fb.users = []map[string]any{
		{"id": 3, "username": "annabel"},
		{"user_id": 5, "login": "ann"},
	}
	in, ident, _ := setup(t, fb)

	if err := in.Login(context.Background(), "ann", "pw"); err != nil {
		t.Fatal(err)
	}
	if id, ok := ident.UserID(); !ok || id != 5 {
		t.Errorf("UserID() = %d, %v, want 5", id, ok)
	}
}

func TestSelectAttributesMine(t *testing.T) {
	fb := newFakeBackend()
	fb.loginUID = 1
	fb.dialogs = []map[string]any{{"id": 42, "name": "Peer", "avatar": "", "lastMessage": "hi", "unread": 0}}
	fb.threads["42"] = []map[string]any{{"sender_id": 1, "receiver_id": 42, "content": "hi"}}
	in, _, _ := setup(t, fb)
	ctx := context.Background()

	if err := in.Login(ctx, "me", "pw"); err != nil {
		t.Fatal(err)
	}
	if err := in.Mount(ctx); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "dialog list", func() bool { return len(in.Dialogs.List()) == 1 })

	if _, err := in.SelectPeer(42); err != nil {
		t.Fatal(err)
	}
	if in.State() != Selected {
		t.Errorf("State() = %v, want selected", in.State())
	}
	waitFor(t, "thread", func() bool { return len(in.Thread.Messages()) == 1 })
	if !in.Thread.Mine(in.Thread.Messages()[0]) {
		t.Error("own message not attributed as mine")
	}
	if _, err := in.SelectPeer(99); !errors.Is(err, ErrUnknownDialog) {
		t.Errorf("SelectPeer(99) = %v, want ErrUnknownDialog", err)
	}
}

func TestSendScenario(t *testing.T) {
	fb := newFakeBackend()
	fb.loginUID = 1
	fb.dialogs = []map[string]any{{"id": 42, "name": "Peer"}}
	in, _, _ := setup(t, fb)
	ctx := context.Background()

	if err := in.Login(ctx, "me", "pw"); err != nil {
		t.Fatal(err)
	}
	if err := in.Mount(ctx); err != nil {
		t.Fatal(err)
	}
	if err := in.Select(backend.Dialog{PeerID: 42, Name: "Peer"}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "first thread fetch", func() bool { return fb.count("/messages/42") > 0 })
	dialogFetches := fb.count("/messages/dialogs")

	in.Composer.SetDraft("hello")
	if _, err := in.Composer.Send(ctx); err != nil {
		t.Fatal(err)
	}
	in.Composer.Wait()

	fb.mu.Lock()
	sends := append([]map[string]any(nil), fb.sends...)
	fb.mu.Unlock()
	if len(sends) != 1 {
		t.Fatalf("send requests = %d, want 1", len(sends))
	}
	if sends[0]["receiver_id"] != float64(42) || sends[0]["content"] != "hello" || sends[0]["picture_url"] != "" {
		t.Errorf("send body = %v", sends[0])
	}
	msgs := in.Thread.Messages()
	if len(msgs) != 1 || msgs[0].Content != "hello" {
		t.Errorf("thread = %+v, want one new entry", msgs)
	}
	if in.Composer.Draft() != "" {
		t.Error("input not cleared")
	}
	if fb.count("/messages/dialogs") <= dialogFetches {
		t.Error("dialog list not refreshed after send")
	}
}

func TestOriginateSendsNothing(t *testing.T) {
	fb := newFakeBackend()
	fb.loginUID = 1
	in, _, _ := setup(t, fb)
	ctx := context.Background()

	if err := in.Login(ctx, "me", "pw"); err != nil {
		t.Fatal(err)
	}
	if err := in.Mount(ctx); err != nil {
		t.Fatal(err)
	}
	dlg, err := in.Originate(backend.UserSummary{ID: 77, FirstName: "New", LastName: "Friend", Avatar: "n.png"})
	if err != nil {
		t.Fatal(err)
	}
	if dlg.Name != "New Friend" || dlg.Avatar != "n.png" || dlg.Unread != 0 || dlg.LastMessage != "" {
		t.Errorf("dialog = %+v", dlg)
	}
	if sel, ok := in.Thread.Selected(); !ok || sel.PeerID != 77 {
		t.Errorf("Selected() = %+v, %v", sel, ok)
	}
	if len(in.Thread.Messages()) != 0 {
		t.Error("originated thread not empty")
	}
	if fb.count("/messages/send") != 0 {
		t.Error("send request issued by originate")
	}
}

func TestCloseStopsPolling(t *testing.T) {
	fb := newFakeBackend()
	fb.loginUID = 1
	in, _, _ := setup(t, fb)
	ctx := context.Background()

	if err := in.Login(ctx, "me", "pw"); err != nil {
		t.Fatal(err)
	}
	if err := in.Mount(ctx); err != nil {
		t.Fatal(err)
	}
	if err := in.Select(backend.Dialog{PeerID: 5}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "both pollers", func() bool {
		return fb.count("/messages/dialogs") >= 2 && fb.count("/messages/5") >= 2
	})

	in.Close()
	if in.State() != Idle || in.Mounted() {
		t.Errorf("after Close: state %v mounted %v", in.State(), in.Mounted())
	}
	d, m := fb.count("/messages/dialogs"), fb.count("/messages/5")
	time.Sleep(80 * time.Millisecond)
	if fb.count("/messages/dialogs") != d || fb.count("/messages/5") != m {
		t.Error("polling continued after Close")
	}
}

func TestExpiredTokenClosesInbox(t *testing.T) {
	fb := newFakeBackend()
	fb.loginUID = 1
	in, ident, b := setup(t, fb)
	ch, unsub := b.Subscribe(bus.SessionLoggedOut, 1)
	defer unsub()
	ctx := context.Background()

	if err := in.Login(ctx, "me", "pw"); err != nil {
		t.Fatal(err)
	}
	if err := in.Mount(ctx); err != nil {
		t.Fatal(err)
	}
	fb.mu.Lock()
	fb.expireNow = true
	fb.mu.Unlock()

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no logout event after 401")
	}
	if ident.Authenticated() {
		t.Error("identity still authenticated after 401")
	}
	waitFor(t, "inbox closed", func() bool { return !in.Mounted() })
}

func TestLogoutClearsSessionData(t *testing.T) {
	fb := newFakeBackend()
	fb.loginUID = 1
	fb.dialogs = []map[string]any{{"id": 42, "name": "Peer", "lastMessage": "secret"}}
	fb.threads["42"] = []map[string]any{{"id": 7, "sender_id": 42, "receiver_id": 1, "content": "secret"}}
	db, _, err := store.OpenMigrated(filepath.Join(t.TempDir(), "soc.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	in, _, b := setupWithStore(t, fb, db)
	ch, unsub := b.Subscribe(bus.SessionLoggedOut, 1)
	defer unsub()
	ctx := context.Background()

	if err := in.Login(ctx, "me", "pw"); err != nil {
		t.Fatal(err)
	}
	if err := in.Mount(ctx); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "dialog list", func() bool { return len(in.Dialogs.List()) == 1 })
	if _, err := in.SelectPeer(42); err != nil {
		t.Fatal(err)
	}
	if err := in.Thread.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if hits, _ := db.SearchMessages(ctx, "secret", 0, 10); len(hits) != 1 {
		t.Fatalf("cached hits before logout = %d, want 1", len(hits))
	}

	in.Logout()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no logout event")
	}

	if n := len(in.Dialogs.List()); n != 0 {
		t.Errorf("dialogs in memory after logout = %d", n)
	}
	if syncedAt, lastErr := in.Dialogs.SyncedAt(); !syncedAt.IsZero() || lastErr != nil {
		t.Errorf("sync state after logout: %v %v", syncedAt, lastErr)
	}
	if hits, err := db.SearchMessages(ctx, "secret", 0, 10); err != nil || len(hits) != 0 {
		t.Errorf("cached hits after logout = %v, %v", hits, err)
	}
	if ds, err := db.ListDialogs(ctx); err != nil || len(ds) != 0 {
		t.Errorf("stored dialogs after logout = %v, %v", ds, err)
	}
	if c, err := db.LoadCredentials(ctx); err != nil || c != nil {
		t.Errorf("stored credentials after logout = %v, %v", c, err)
	}
}
