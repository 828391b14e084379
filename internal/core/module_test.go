package core

import (
	"context"
	"os"
	"testing"

	"github.com/matheus3301/soc/internal/identity"
	"github.com/matheus3301/soc/internal/inbox"
	"github.com/matheus3301/soc/internal/lock"
	"github.com/matheus3301/soc/internal/session"
	"github.com/matheus3301/soc/internal/store"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestModuleWiring(t *testing.T) {
	t.Setenv(session.HomeEnv, t.TempDir())

	var (
		in    *inbox.Inbox
		ident *identity.Identity
	)
	app := fxtest.New(t,
		Module(Params{SessionName: "test", Program: "soctest"}),
		fx.Populate(&in, &ident),
	)
	app.RequireStart()

	if in == nil || ident == nil {
		t.Fatal("inbox or identity not provided")
	}
	if ident.Authenticated() {
		t.Error("fresh session should not be authenticated")
	}
	owner, err := lock.Probe(session.Dir("test"))
	if err != nil {
		t.Fatal(err)
	}
	if owner == nil || owner.Program != "soctest" || owner.PID != os.Getpid() {
		t.Errorf("lock owner = %+v", owner)
	}
	if _, err := os.Stat(session.LogPath("test", "soctest")); err != nil {
		t.Errorf("log file missing: %v", err)
	}

	app.RequireStop()
	if owner, _ := lock.Probe(session.Dir("test")); owner != nil {
		t.Errorf("lock still held after stop by %+v", owner)
	}
}

func TestModuleRestoresCredentials(t *testing.T) {
	t.Setenv(session.HomeEnv, t.TempDir())
	if err := session.EnsureDir("test"); err != nil {
		t.Fatal(err)
	}
	db, _, err := store.OpenMigrated(session.DBPath("test"))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SaveCredentials(context.Background(), store.Credentials{
		AccessToken: "tok", TokenType: "bearer", Username: "ann", UserID: 5,
	}); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	var ident *identity.Identity
	app := fxtest.New(t,
		Module(Params{SessionName: "test", Program: "soctest"}),
		fx.Populate(&ident),
	)
	app.RequireStart()
	defer app.RequireStop()

	if !ident.Authenticated() || ident.Username() != "ann" {
		t.Errorf("identity not restored: %q", ident.Username())
	}
	if id, ok := ident.UserID(); !ok || id != 5 {
		t.Errorf("UserID() = %d, %v", id, ok)
	}
	if got := ident.Authorization(); got != "Bearer tok" {
		t.Errorf("Authorization() = %q", got)
	}
}

func TestSecondHostRefused(t *testing.T) {
	t.Setenv(session.HomeEnv, t.TempDir())

	var in *inbox.Inbox
	first := fxtest.New(t,
		Module(Params{SessionName: "test", Program: "socd"}),
		fx.Populate(&in),
	)
	first.RequireStart()
	defer first.RequireStop()

	second := fx.New(
		Module(Params{SessionName: "test", Program: "soctui"}),
		fx.Populate(&in),
		fx.NopLogger,
	)
	if second.Err() == nil {
		t.Fatal("second host of the same session should fail to build")
	}
}
