package api

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/soc/internal/backend"
	"github.com/matheus3301/soc/internal/bus"
	"github.com/matheus3301/soc/internal/outbox"
	"github.com/matheus3301/soc/internal/status"
	"github.com/matheus3301/soc/internal/store"
	msgsync "github.com/matheus3301/soc/internal/sync"
	"google.golang.org/protobuf/types/known/structpb"
)

// ThreadMessage is a message as the daemon shows it, with its attribution.
type ThreadMessage struct {
	backend.Message
	Mine bool
}

// Event is one bus event relayed by WatchEvents.
type Event struct {
	ID         string
	Kind       string
	OccurredAt time.Time
	Payload    map[string]any
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func dialogFields(d backend.Dialog) map[string]any {
	return map[string]any{
		"peer_id":      d.PeerID,
		"name":         d.Name,
		"avatar":       d.Avatar,
		"last_message": d.LastMessage,
		"unread":       d.Unread,
	}
}

func messageFields(m backend.Message, mine bool) map[string]any {
	return map[string]any{
		"id":          m.ID,
		"sender_id":   m.SenderID,
		"receiver_id": m.ReceiverID,
		"content":     m.Content,
		"picture_url": m.PictureURL,
		"sent_at":     formatTime(m.SentAt),
		"mine":        mine,
	}
}

func userFields(u backend.UserSummary) map[string]any {
	return map[string]any{
		"id":         u.ID,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"username":   u.Username,
		"avatar":     u.Avatar,
	}
}

func searchResultFields(r store.SearchResult) map[string]any {
	return map[string]any{
		"peer_id":     r.Message.PeerID,
		"id":          r.Message.ServerID,
		"sender_id":   r.Message.SenderID,
		"receiver_id": r.Message.ReceiverID,
		"content":     r.Message.Content,
		"snippet":     r.Snippet,
		"sent_at":     formatTime(unixMilli(r.Message.SentAt)),
	}
}

func unixMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func toUnixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// payloadFields flattens a bus payload into JSON-like fields.
func payloadFields(payload any) map[string]any {
	switch p := payload.(type) {
	case nil:
		return map[string]any{}
	case int:
		return map[string]any{"count": p}
	case string:
		return map[string]any{"error": p}
	case msgsync.ThreadSelection:
		return map[string]any{"peer_id": p.PeerID, "count": p.Count}
	case outbox.Sent:
		return map[string]any{"peer_id": p.PeerID, "message": messageFields(p.Message, true)}
	case outbox.SendFailure:
		return map[string]any{"peer_id": p.PeerID, "error": p.Error}
	case status.StatusChange:
		return map[string]any{"from": string(p.From), "to": string(p.To), "detail": p.Detail}
	default:
		return map[string]any{"value": fmt.Sprint(p)}
	}
}

func eventStruct(session string, evt bus.Event) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":                  uuid.NewString(),
		"session":             session,
		"kind":                evt.Kind,
		"occurred_at_unix_ms": evt.Timestamp.UnixMilli(),
		"payload":             payloadFields(evt.Payload),
	})
}

func listOf[T any](items []T, fields func(T) map[string]any) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		out = append(out, fields(it))
	}
	return out
}

// Struct accessors. Missing fields read as zero values.

func num(s *structpb.Struct, key string) int64 {
	return int64(s.GetFields()[key].GetNumberValue())
}

func str(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func flag(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

func child(s *structpb.Struct, key string) *structpb.Struct {
	return s.GetFields()[key].GetStructValue()
}

func children(s *structpb.Struct, key string) []*structpb.Struct {
	var out []*structpb.Struct
	for _, v := range s.GetFields()[key].GetListValue().GetValues() {
		if sv := v.GetStructValue(); sv != nil {
			out = append(out, sv)
		}
	}
	return out
}

func toDialog(s *structpb.Struct) backend.Dialog {
	return backend.Dialog{
		PeerID:      num(s, "peer_id"),
		Name:        str(s, "name"),
		Avatar:      str(s, "avatar"),
		LastMessage: str(s, "last_message"),
		Unread:      int(num(s, "unread")),
	}
}

func toThreadMessage(s *structpb.Struct) ThreadMessage {
	return ThreadMessage{
		Message: backend.Message{
			ID:         num(s, "id"),
			SenderID:   num(s, "sender_id"),
			ReceiverID: num(s, "receiver_id"),
			Content:    str(s, "content"),
			PictureURL: str(s, "picture_url"),
			SentAt:     parseTime(str(s, "sent_at")),
		},
		Mine: flag(s, "mine"),
	}
}

func toUser(s *structpb.Struct) backend.UserSummary {
	return backend.UserSummary{
		ID:        num(s, "id"),
		FirstName: str(s, "first_name"),
		LastName:  str(s, "last_name"),
		Username:  str(s, "username"),
		Avatar:    str(s, "avatar"),
	}
}

func toSearchResult(s *structpb.Struct) store.SearchResult {
	return store.SearchResult{
		Message: store.Message{
			PeerID:     num(s, "peer_id"),
			ServerID:   num(s, "id"),
			SenderID:   num(s, "sender_id"),
			ReceiverID: num(s, "receiver_id"),
			Content:    str(s, "content"),
			SentAt:     toUnixMilli(parseTime(str(s, "sent_at"))),
		},
		Snippet: str(s, "snippet"),
	}
}

func toEvent(s *structpb.Struct) Event {
	return Event{
		ID:         str(s, "id"),
		Kind:       str(s, "kind"),
		OccurredAt: time.UnixMilli(num(s, "occurred_at_unix_ms")),
		Payload:    child(s, "payload").AsMap(),
	}
}

func mapConvert[T any](in []*structpb.Struct, fn func(*structpb.Struct) T) []T {
	out := make([]T, 0, len(in))
	for _, s := range in {
		out = append(out, fn(s))
	}
	return out
}
