package store

import "context"

// SearchMessages performs a full-text search on cached message content,
// optionally restricted to one peer (peerID > 0).
func (db *DB) SearchMessages(ctx context.Context, query string, peerID int64, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 50
	}

	q := `
		SELECT m.id, m.peer_id, m.msg_key, m.server_id, m.sender_id, m.receiver_id,
		       m.content, m.picture_url, m.sent_at, m.position,
		       snippet(messages_fts, 0, '<<', '>>', '...', 32)
		FROM messages_fts f
		JOIN messages m ON m.id = f.rowid
		WHERE messages_fts MATCH ?`

	args := []any{query}
	if peerID > 0 {
		q += " AND m.peer_id = ?"
		args = append(args, peerID)
	}
	q += " ORDER BY rank LIMIT ?"
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		m, err := scanMessage(rows, []any{&r.Snippet})
		if err != nil {
			return nil, err
		}
		r.Message = m
		results = append(results, r)
	}
	return results, rows.Err()
}
