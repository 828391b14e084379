// Package core composes the pieces every host of a session needs: config,
// logging, the session store and lock, the identity, the backend client
// and the inbox.
package core

import (
	"context"
	"time"

	"github.com/matheus3301/soc/internal/backend"
	"github.com/matheus3301/soc/internal/bus"
	"github.com/matheus3301/soc/internal/config"
	"github.com/matheus3301/soc/internal/gateway"
	"github.com/matheus3301/soc/internal/identity"
	"github.com/matheus3301/soc/internal/inbox"
	"github.com/matheus3301/soc/internal/lock"
	"github.com/matheus3301/soc/internal/logging"
	"github.com/matheus3301/soc/internal/session"
	"github.com/matheus3301/soc/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const loadTimeout = 5 * time.Second

// Params identifies the session and the program hosting it.
type Params struct {
	SessionName string
	Program     string // names the log file and the lock owner
	Console     bool   // tee logs to stderr
}

// Module returns the fx module a session daemon is built on.
func Module(p Params) fx.Option {
	return fx.Module("core",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideIdentity,
			provideGateway,
			provideBackend,
			provideInbox,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig() (*config.Config, error) {
	return session.LoadConfig()
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName, p.Program), p.SessionName, logging.Options{Console: p.Console})
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName), p.Program)
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

// provideStore takes the lock as a parameter so the store is never opened
// by a second host of the same session.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.DBPath(p.SessionName)
	db, result, err := store.OpenMigrated(dbPath)
	if err != nil {
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideIdentity(db *store.DB, logger *zap.Logger) (*identity.Identity, error) {
	ident := identity.New(db, logger.Named("identity"))
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()
	found, err := ident.Load(ctx)
	if err != nil {
		return nil, err
	}
	if found {
		logger.Info("credentials restored", zap.String("username", ident.Username()))
	} else {
		logger.Info("no stored credentials")
	}
	return ident, nil
}

func provideGateway(cfg *config.Config, ident *identity.Identity, logger *zap.Logger) (*gateway.Gateway, error) {
	return gateway.New(gateway.Options{
		BaseURL:        cfg.APIURL,
		Timeout:        cfg.RequestTimeout.Duration,
		Auth:           ident,
		OnUnauthorized: ident.Invalidate,
		Logger:         logger.Named("gateway"),
	})
}

func provideBackend(g *gateway.Gateway) *backend.Client {
	return backend.New(g)
}

func provideInbox(cfg *config.Config, ident *identity.Identity, client *backend.Client, db *store.DB, b *bus.Bus, logger *zap.Logger) *inbox.Inbox {
	return inbox.New(ident, client, db, b, logger.Named("inbox"), inbox.Options{
		DialogInterval: cfg.DialogInterval.Duration,
		ThreadInterval: cfg.ThreadInterval.Duration,
	})
}

func registerLifecycle(lc fx.Lifecycle, in *inbox.Inbox, db *store.DB, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			in.Shutdown()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("session closed")
			_ = logger.Sync()
			return nil
		},
	})
}
