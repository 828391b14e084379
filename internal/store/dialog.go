package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ReplaceDialogs swaps the stored dialog snapshot for ds in one
// transaction, keeping ds's order.
func (db *DB) ReplaceDialogs(ctx context.Context, ds []Dialog) error {
	now := time.Now().UnixMilli()
	return db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM dialogs`); err != nil {
			return fmt.Errorf("clear dialogs: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO dialogs (peer_id, name, avatar, last_message, unread, position, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(peer_id) DO NOTHING`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()
		for i, d := range ds {
			if _, err := stmt.ExecContext(ctx, d.PeerID, d.Name, d.Avatar, d.LastMessage, d.Unread, i, now); err != nil {
				return fmt.Errorf("insert dialog %d: %w", d.PeerID, err)
			}
		}
		return nil
	})
}

// ListDialogs returns the stored snapshot in server order.
func (db *DB) ListDialogs(ctx context.Context) ([]Dialog, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT peer_id, name, avatar, last_message, unread
		FROM dialogs ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ds []Dialog
	for rows.Next() {
		var d Dialog
		if err := rows.Scan(&d.PeerID, &d.Name, &d.Avatar, &d.LastMessage, &d.Unread); err != nil {
			return nil, err
		}
		ds = append(ds, d)
	}
	return ds, rows.Err()
}
