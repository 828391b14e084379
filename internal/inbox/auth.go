package inbox

import (
	"context"
	"strings"

	"github.com/matheus3301/soc/internal/identity"
	"go.uber.org/zap"
)

// Login exchanges credentials for a token, stores it on the identity and
// resolves the current user's id. An unresolved id is not an error; the
// thread then falls back to attributing by receiver.
func (in *Inbox) Login(ctx context.Context, username, password string) error {
	tok, err := in.client.Login(ctx, username, password)
	if err != nil {
		return err
	}

	creds := identity.Credentials{
		Token:     tok.AccessToken,
		TokenType: tok.TokenType,
		Username:  username,
		UserID:    tok.UserID,
	}
	if claims, err := identity.ParseClaims(tok.AccessToken); err == nil {
		if claims.Subject != "" {
			creds.Username = claims.Subject
		}
		if creds.UserID == 0 {
			creds.UserID = claims.UserID
		}
	} else {
		in.logger.Debug("token claims unreadable", zap.Error(err))
	}
	if err := in.ident.Set(ctx, creds); err != nil {
		return err
	}

	if creds.UserID == 0 {
		if id, ok := in.lookupUserID(ctx, creds.Username); ok {
			if err := in.ident.SetUserID(ctx, id); err != nil {
				in.logger.Warn("store resolved user id failed", zap.Error(err))
			}
		} else {
			in.logger.Warn("current user id unresolved", zap.String("username", creds.Username))
		}
	}
	in.logger.Info("logged in", zap.String("username", creds.Username))
	return nil
}

// lookupUserID finds the directory entry whose username is exactly name.
func (in *Inbox) lookupUserID(ctx context.Context, name string) (int64, bool) {
	if name == "" {
		return 0, false
	}
	users, err := in.client.SearchUsers(ctx, name)
	if err != nil {
		in.logger.Warn("user lookup failed", zap.Error(err))
		return 0, false
	}
	for _, u := range users {
		if strings.EqualFold(u.Username, name) {
			return u.ID, true
		}
	}
	return 0, false
}

// Logout drops the session. Pollers stop via the identity's invalidation.
func (in *Inbox) Logout() {
	in.ident.Invalidate()
}
