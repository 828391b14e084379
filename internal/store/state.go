package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// StateDialogsSyncedAt holds the unix milliseconds of the last stored
// dialog snapshot.
const StateDialogsSyncedAt = "dialogs.synced_at"

// SetState stores a key/value pair.
func (db *DB) SetState(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO sync_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// GetState returns the value for key and whether it was set.
func (db *DB) GetState(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := db.QueryRowContext(ctx, `SELECT value FROM sync_state WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// ClearSession drops everything cached for the logged-in user: dialogs,
// messages (and with them the search index) and sync state.
func (db *DB) ClearSession(ctx context.Context) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"dialogs", "messages", "sync_state"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}
