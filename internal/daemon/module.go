package daemon

import (
	"context"

	"github.com/matheus3301/soc/internal/api"
	"github.com/matheus3301/soc/internal/backend"
	"github.com/matheus3301/soc/internal/bus"
	"github.com/matheus3301/soc/internal/identity"
	"github.com/matheus3301/soc/internal/inbox"
	"github.com/matheus3301/soc/internal/status"
	"github.com/matheus3301/soc/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	SocketPath  string // optional override for testing; empty = use default
}

// Module returns the fx module for the daemon. It expects core.Module for
// the same session alongside it.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideStateMachine,
			provideInboxService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideInboxService(p Params, m *status.Machine, in *inbox.Inbox, ident *identity.Identity, db *store.DB, bc *backend.Client, b *bus.Bus, logger *zap.Logger) *api.InboxService {
	return api.NewInboxService(p.SessionName, m, in, ident, db, b, logger.Named("api")).WithSocial(bc)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, in *inbox.Inbox, ident *identity.Identity, machine *status.Machine, b *bus.Bus, logger *zap.Logger) {
	var w *watcher
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			w = watch(b, machine, logger)

			// Start gRPC server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			if !ident.Authenticated() {
				logger.Info("no credentials found, auth required")
				_ = machine.Transition(status.AuthRequired)
				return nil
			}
			_ = machine.Transition(status.Syncing)
			if err := in.Mount(context.Background()); err != nil {
				logger.Error("mount inbox failed", zap.Error(err))
				_ = machine.TransitionWith(status.Error, err.Error())
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			srv.Stop(ctx)
			w.stop()
			logger.Info("daemon stopped")
			return nil
		},
	})
}
