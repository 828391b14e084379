package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SaveCredentials replaces the stored login.
func (db *DB) SaveCredentials(ctx context.Context, c Credentials) error {
	var userID any
	if c.UserID != 0 {
		userID = c.UserID
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO credentials (id, access_token, token_type, user_id, username, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			token_type = excluded.token_type,
			user_id = excluded.user_id,
			username = excluded.username,
			updated_at = excluded.updated_at`,
		c.AccessToken, c.TokenType, userID, c.Username, time.Now().UnixMilli())
	return err
}

// LoadCredentials returns the stored login, or nil when logged out.
func (db *DB) LoadCredentials(ctx context.Context) (*Credentials, error) {
	var (
		c      Credentials
		userID sql.NullInt64
	)
	err := db.QueryRowContext(ctx, `
		SELECT access_token, token_type, user_id, username, updated_at
		FROM credentials WHERE id = 1`).
		Scan(&c.AccessToken, &c.TokenType, &userID, &c.Username, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.UserID = userID.Int64
	return &c, nil
}

// ClearCredentials forgets the stored login.
func (db *DB) ClearCredentials(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `DELETE FROM credentials`)
	return err
}
