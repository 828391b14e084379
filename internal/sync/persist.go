package sync

import (
	"strconv"

	"github.com/matheus3301/soc/internal/backend"
	"github.com/matheus3301/soc/internal/store"
)

func storeDialogs(ds []backend.Dialog) []store.Dialog {
	out := make([]store.Dialog, 0, len(ds))
	for _, d := range ds {
		out = append(out, store.Dialog{
			PeerID:      d.PeerID,
			Name:        d.Name,
			Avatar:      d.Avatar,
			LastMessage: d.LastMessage,
			Unread:      d.Unread,
		})
	}
	return out
}

func fromStoreDialogs(ds []store.Dialog) []backend.Dialog {
	out := make([]backend.Dialog, 0, len(ds))
	for _, d := range ds {
		out = append(out, backend.Dialog{
			PeerID:      d.PeerID,
			Name:        d.Name,
			Avatar:      d.Avatar,
			LastMessage: d.LastMessage,
			Unread:      d.Unread,
		})
	}
	return out
}

// storeMessages keys a thread snapshot for the store. Messages without a
// server id are told apart by their occurrence number within the snapshot.
func storeMessages(peerID int64, msgs []backend.Message) []store.Message {
	seen := make(map[string]int, len(msgs))
	out := make([]store.Message, 0, len(msgs))
	for _, m := range msgs {
		key := m.Key()
		if m.ID == 0 {
			n := seen[key]
			seen[key] = n + 1
			key += "#" + strconv.Itoa(n)
		}
		sm := store.Message{
			PeerID:     peerID,
			Key:        key,
			ServerID:   m.ID,
			SenderID:   m.SenderID,
			ReceiverID: m.ReceiverID,
			Content:    m.Content,
			PictureURL: m.PictureURL,
		}
		if !m.SentAt.IsZero() {
			sm.SentAt = m.SentAt.UnixMilli()
		}
		out = append(out, sm)
	}
	return out
}
