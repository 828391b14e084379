package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/matheus3301/soc/internal/api"
	"github.com/matheus3301/soc/internal/backend"
	"github.com/matheus3301/soc/internal/store"
)

// errNoCache is returned when the session has never stored anything.
var errNoCache = errors.New("no cached data for this session")

// loadCachedThread reads a thread from the session store as the daemon
// last fetched it. It works with or without a running daemon and never
// writes to the store.
func loadCachedThread(ctx context.Context, dbPath string, peer int64, limit int) (backend.Dialog, []api.ThreadMessage, error) {
	db, err := store.OpenReadOnly(dbPath)
	if errors.Is(err, fs.ErrNotExist) {
		return backend.Dialog{}, nil, errNoCache
	}
	if err != nil {
		return backend.Dialog{}, nil, err
	}
	defer func() { _ = db.Close() }()

	var me int64
	creds, err := db.LoadCredentials(ctx)
	if err != nil {
		return backend.Dialog{}, nil, err
	}
	if creds != nil {
		me = creds.UserID
	}

	dlg := backend.Dialog{PeerID: peer, Name: fmt.Sprintf("peer %d", peer)}
	dialogs, err := db.ListDialogs(ctx)
	if err != nil {
		return backend.Dialog{}, nil, err
	}
	for _, d := range dialogs {
		if d.PeerID == peer {
			dlg = backend.Dialog{PeerID: d.PeerID, Name: d.Name, Avatar: d.Avatar, LastMessage: d.LastMessage, Unread: d.Unread}
			break
		}
	}

	cached, err := db.ListMessages(ctx, peer, limit)
	if err != nil {
		return backend.Dialog{}, nil, err
	}
	msgs := make([]api.ThreadMessage, 0, len(cached))
	for _, m := range cached {
		tm := api.ThreadMessage{Message: backend.Message{
			ID:         m.ServerID,
			SenderID:   m.SenderID,
			ReceiverID: m.ReceiverID,
			Content:    m.Content,
			PictureURL: m.PictureURL,
		}}
		if m.SentAt != 0 {
			tm.SentAt = time.UnixMilli(m.SentAt)
		}
		if me != 0 {
			tm.Mine = m.SenderID == me
		} else {
			tm.Mine = m.ReceiverID == peer
		}
		msgs = append(msgs, tm)
	}
	return dlg, msgs, nil
}
