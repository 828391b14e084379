package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/soc/internal/api"
	"github.com/matheus3301/soc/internal/bus"
	"github.com/matheus3301/soc/internal/config"
	"github.com/matheus3301/soc/internal/core"
	"github.com/matheus3301/soc/internal/session"
	"github.com/matheus3301/soc/internal/status"
	"github.com/matheus3301/soc/internal/store"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// shortHome points SOC_HOME at a short /tmp path; socket paths must fit
// in sun_path.
func shortHome(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("/tmp", "soc-d-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	t.Setenv(session.HomeEnv, dir)
	return dir
}

func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		write := func(v any) { _ = json.NewEncoder(w).Encode(v) }
		switch strings.TrimPrefix(r.URL.Path, "/api") {
		case "/token":
			write(map[string]any{"access_token": "tok", "token_type": "bearer", "user_id": 1})
		case "/messages/dialogs":
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			write([]map[string]any{{"id": 42, "name": "Peer", "lastMessage": "hey"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, apiURL string) {
	t.Helper()
	cfg := config.Default()
	cfg.APIURL = apiURL
	cfg.DialogInterval = config.Duration{Duration: 20 * time.Millisecond}
	cfg.ThreadInterval = config.Duration{Duration: 20 * time.Millisecond}
	cfg.RequestTimeout = config.Duration{Duration: time.Second}
	if err := config.Save(session.ConfigPath(), cfg); err != nil {
		t.Fatal(err)
	}
}

func startDaemon(t *testing.T) (*fxtest.App, *api.Client) {
	t.Helper()
	app := fxtest.New(t,
		core.Module(core.Params{SessionName: "test", Program: "socd"}),
		Module(Params{SessionName: "test"}),
	)
	app.RequireStart()

	c, err := api.Dial(session.SocketPath("test"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return app, c
}

func statusOf(c *api.Client) string {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	st, err := c.Status(ctx)
	if err != nil {
		return ""
	}
	return st.Status
}

func TestDaemonLifecycle(t *testing.T) {
	shortHome(t)
	writeConfig(t, fakeBackend(t).URL+"/api")

	app, c := startDaemon(t)
	ctx := context.Background()

	waitFor(t, "AUTH_REQUIRED", func() bool { return statusOf(c) == string(status.AuthRequired) })

	if _, err := c.Login(ctx, "me", "pw"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	waitFor(t, "READY", func() bool { return statusOf(c) == string(status.Ready) })

	list, err := c.ListDialogs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Dialogs) != 1 || list.Dialogs[0].PeerID != 42 {
		t.Errorf("dialogs = %+v", list.Dialogs)
	}

	if err := c.Logout(ctx); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "AUTH_REQUIRED after logout", func() bool { return statusOf(c) == string(status.AuthRequired) })

	app.RequireStop()
	if _, err := os.Stat(session.SocketPath("test")); !os.IsNotExist(err) {
		t.Error("socket not removed on stop")
	}
}

func TestDaemonResumesStoredSession(t *testing.T) {
	shortHome(t)
	writeConfig(t, fakeBackend(t).URL+"/api")

	if err := session.EnsureDir("test"); err != nil {
		t.Fatal(err)
	}
	db, _, err := store.OpenMigrated(session.DBPath("test"))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SaveCredentials(context.Background(), store.Credentials{AccessToken: "tok", TokenType: "bearer", Username: "me", UserID: 1}); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	app, c := startDaemon(t)
	defer app.RequireStop()

	waitFor(t, "READY", func() bool { return statusOf(c) == string(status.Ready) })
}

func TestDaemonExpiredTokenRequiresAuth(t *testing.T) {
	shortHome(t)
	writeConfig(t, fakeBackend(t).URL+"/api")

	if err := session.EnsureDir("test"); err != nil {
		t.Fatal(err)
	}
	db, _, err := store.OpenMigrated(session.DBPath("test"))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SaveCredentials(context.Background(), store.Credentials{AccessToken: "stale", TokenType: "bearer", Username: "me"}); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	app, c := startDaemon(t)
	defer app.RequireStop()

	waitFor(t, "AUTH_REQUIRED", func() bool { return statusOf(c) == string(status.AuthRequired) })
	st, err := c.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.Authenticated {
		t.Error("stale token still held after 401")
	}
}

func TestWatcherDrivesStatus(t *testing.T) {
	b := bus.New()
	machine := status.NewMachine(b)
	_ = machine.Transition(status.Syncing)

	w := watch(b, machine, zap.NewNop())
	defer w.stop()

	steps := []struct {
		kind    string
		payload any
		want    status.State
	}{
		{bus.DialogsUpdated, 1, status.Ready},
		{bus.DialogsFailed, "Request failed", status.Degraded},
		{bus.DialogsUpdated, 1, status.Ready},
		{bus.SessionLoggedOut, nil, status.AuthRequired},
		// A late failure from a poll that was already running is ignored.
		{bus.DialogsFailed, "Token expired", status.AuthRequired},
	}
	for _, step := range steps {
		b.Emit(step.kind, step.payload)
		want := step.want
		waitFor(t, string(want), func() bool { return machine.Current() == want })
	}
}

func TestWatcherKeepsFailureDetail(t *testing.T) {
	b := bus.New()
	machine := status.NewMachine(b)
	_ = machine.Transition(status.Syncing)

	w := watch(b, machine, zap.NewNop())
	defer w.stop()

	b.Emit(bus.DialogsFailed, "Request failed")
	waitFor(t, "DEGRADED", func() bool { return machine.Current() == status.Degraded })
	if machine.Detail() != "Request failed" {
		t.Errorf("detail = %q", machine.Detail())
	}

	// A locally inserted dialog says nothing about the backend.
	handle(bus.Event{Kind: bus.DialogsChanged, Payload: 2}, machine, zap.NewNop())
	if machine.Current() != status.Degraded {
		t.Errorf("state after local change = %s, want DEGRADED", machine.Current())
	}
}

func TestNewServerSocket(t *testing.T) {
	tmpDir, err := os.MkdirTemp("/tmp", "soc-srv-*")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	socketPath := filepath.Join(tmpDir, "d.sock")
	// A stale socket from a previous run must not block startup.
	if err := os.WriteFile(socketPath, nil, 0600); err != nil {
		t.Fatal(err)
	}

	p := Params{SessionName: "srvtest", SocketPath: socketPath}
	srv, err := NewServer(p, zap.NewNop(), api.NewInboxService("srvtest", status.NewMachine(nil), nil, nil, nil, nil, nil))
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	info, err := os.Stat(socketPath)
	if err != nil {
		t.Fatalf("socket not created at %s: %v", socketPath, err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("socket mode = %v, want 0600", info.Mode().Perm())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	srv.Stop(ctx)
	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Error("socket not removed on stop")
	}
}
