package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

func nullInt(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

// UpsertMessages records a thread snapshot for peerID (idempotent on
// peer_id + msg_key). Snapshot order is kept as the thread position.
func (db *DB) UpsertMessages(ctx context.Context, peerID int64, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	now := time.Now().UnixMilli()
	return db.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO messages (peer_id, msg_key, server_id, sender_id, receiver_id, content, picture_url, sent_at, position, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(peer_id, msg_key) DO UPDATE SET
				server_id = COALESCE(excluded.server_id, messages.server_id),
				content = excluded.content,
				picture_url = excluded.picture_url,
				sent_at = COALESCE(excluded.sent_at, messages.sent_at),
				position = excluded.position`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()
		for i, m := range msgs {
			if m.Key == "" {
				return fmt.Errorf("message %d of peer %d has no key", i, peerID)
			}
			if _, err := stmt.ExecContext(ctx, peerID, m.Key, nullInt(m.ServerID), m.SenderID, m.ReceiverID,
				m.Content, m.PictureURL, nullInt(m.SentAt), i, now); err != nil {
				return fmt.Errorf("upsert message %s: %w", m.Key, err)
			}
		}
		return nil
	})
}

// ListMessages returns up to limit of the most recent cached messages for
// peerID, oldest first.
func (db *DB) ListMessages(ctx context.Context, peerID int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
		SELECT * FROM (
			SELECT id, peer_id, msg_key, server_id, sender_id, receiver_id, content, picture_url, sent_at, position
			FROM messages
			WHERE peer_id = ?
			ORDER BY position DESC
			LIMIT ?
		) ORDER BY position ASC`, peerID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		m, err := scanMessage(rows, nil)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(s scanner, extra []any) (Message, error) {
	var (
		m        Message
		serverID sql.NullInt64
		sentAt   sql.NullInt64
		position int
	)
	dest := []any{&m.ID, &m.PeerID, &m.Key, &serverID, &m.SenderID, &m.ReceiverID,
		&m.Content, &m.PictureURL, &sentAt, &position}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return m, err
	}
	m.ServerID = serverID.Int64
	m.SentAt = sentAt.Int64
	return m, nil
}
