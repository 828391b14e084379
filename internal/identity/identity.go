// Package identity holds the session context every backend component is
// handed: the access token, its type, and the current user's id.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/matheus3301/soc/internal/logging"
	"github.com/matheus3301/soc/internal/store"
	"go.uber.org/zap"
)

// ErrNotAuthenticated is returned by operations that need a token when
// none is held.
var ErrNotAuthenticated = errors.New("not authenticated")

// DefaultTokenType is used when the backend does not report one.
const DefaultTokenType = "Bearer"

// CredentialStore persists credentials across restarts.
type CredentialStore interface {
	LoadCredentials(ctx context.Context) (*store.Credentials, error)
	SaveCredentials(ctx context.Context, c store.Credentials) error
	ClearCredentials(ctx context.Context) error
}

// Credentials is what a successful login yields.
type Credentials struct {
	Token     string
	TokenType string
	Username  string
	UserID    int64 // zero when unknown
}

// Identity is the explicit session context. It is safe for concurrent use.
type Identity struct {
	mu        sync.RWMutex
	creds     Credentials
	store     CredentialStore
	logger    *zap.Logger
	nextID    int
	callbacks map[int]func()
}

// New creates an empty identity. st may be nil for an in-memory session.
func New(st CredentialStore, logger *zap.Logger) *Identity {
	return &Identity{
		store:     st,
		logger:    logging.OrNop(logger),
		callbacks: make(map[int]func()),
	}
}

// Load restores persisted credentials, if any. It reports whether a
// token was found.
func (i *Identity) Load(ctx context.Context) (bool, error) {
	if i.store == nil {
		return false, nil
	}
	c, err := i.store.LoadCredentials(ctx)
	if err != nil {
		return false, fmt.Errorf("load credentials: %w", err)
	}
	if c == nil || c.AccessToken == "" {
		return false, nil
	}
	i.mu.Lock()
	i.creds = Credentials{Token: c.AccessToken, TokenType: c.TokenType, Username: c.Username, UserID: c.UserID}
	i.mu.Unlock()
	return true, nil
}

// Set installs and persists new credentials.
func (i *Identity) Set(ctx context.Context, c Credentials) error {
	if c.Token == "" {
		return errors.New("empty access token")
	}
	if i.store != nil {
		if err := i.store.SaveCredentials(ctx, store.Credentials{
			AccessToken: c.Token,
			TokenType:   c.TokenType,
			UserID:      c.UserID,
			Username:    c.Username,
		}); err != nil {
			return fmt.Errorf("save credentials: %w", err)
		}
	}
	i.mu.Lock()
	i.creds = c
	i.mu.Unlock()
	return nil
}

// SetUserID records a user id resolved after login.
func (i *Identity) SetUserID(ctx context.Context, id int64) error {
	i.mu.Lock()
	if i.creds.Token == "" {
		i.mu.Unlock()
		return ErrNotAuthenticated
	}
	i.creds.UserID = id
	c := i.creds
	i.mu.Unlock()
	if i.store == nil {
		return nil
	}
	return i.store.SaveCredentials(ctx, store.Credentials{
		AccessToken: c.Token, TokenType: c.TokenType, UserID: c.UserID, Username: c.Username,
	})
}

// UserID returns the current user's id, or false when it cannot be
// resolved.
func (i *Identity) UserID() (int64, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.creds.UserID, i.creds.UserID != 0
}

// Username returns the login name, if known.
func (i *Identity) Username() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.creds.Username
}

// Authenticated reports whether a token is held.
func (i *Identity) Authenticated() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.creds.Token != ""
}

// Authorization renders the Authorization header value, or "" without a
// token.
func (i *Identity) Authorization() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.creds.Token == "" {
		return ""
	}
	tt := i.creds.TokenType
	if tt == "" || strings.EqualFold(tt, DefaultTokenType) {
		tt = DefaultTokenType
	}
	return tt + " " + i.creds.Token
}

// OnInvalidate registers fn to run after the credentials are dropped. The
// returned func removes the registration.
func (i *Identity) OnInvalidate(fn func()) func() {
	i.mu.Lock()
	id := i.nextID
	i.nextID++
	i.callbacks[id] = fn
	i.mu.Unlock()
	return func() {
		i.mu.Lock()
		delete(i.callbacks, id)
		i.mu.Unlock()
	}
}

// Invalidate drops the credentials, removes them from the store and runs
// the OnInvalidate callbacks. Calling it while logged out does nothing.
func (i *Identity) Invalidate() {
	i.mu.Lock()
	if i.creds.Token == "" {
		i.mu.Unlock()
		return
	}
	i.creds = Credentials{}
	fns := make([]func(), 0, len(i.callbacks))
	for _, fn := range i.callbacks {
		fns = append(fns, fn)
	}
	i.mu.Unlock()

	if i.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := i.store.ClearCredentials(ctx); err != nil {
			i.logger.Warn("clear credentials failed", zap.Error(err))
		}
		cancel()
	}
	i.logger.Info("session invalidated")
	for _, fn := range fns {
		fn()
	}
}
