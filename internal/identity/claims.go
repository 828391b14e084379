package identity

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is what the client can read from an access token without
// the signing key.
type TokenClaims struct {
	Subject string
	UserID  int64
}

// ParseClaims decodes the token payload without verifying the signature.
// The backend puts the username in "sub"; a numeric "user_id" or "uid"
// claim is used when present.
func ParseClaims(token string) (TokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenClaims{}, fmt.Errorf("parse token: %w", err)
	}
	var tc TokenClaims
	if sub, err := claims.GetSubject(); err == nil {
		tc.Subject = sub
	}
	for _, key := range []string{"user_id", "uid"} {
		if id, ok := claimInt(claims[key]); ok {
			tc.UserID = id
			break
		}
	}
	return tc, nil
}

func claimInt(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n > 0 && n == float64(int64(n)) {
			return int64(n), true
		}
	case string:
		if id, err := strconv.ParseInt(n, 10, 64); err == nil && id > 0 {
			return id, true
		}
	}
	return 0, false
}
