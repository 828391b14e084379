package bus

import "time"

// Event kinds published by the inbox and daemon. Subscribers filter by
// namespace prefix ("dialogs.", "thread.", "message.", "session.").
const (
	DialogsUpdated    = "dialogs.updated"
	DialogsChanged    = "dialogs.changed" // local edit, not a fetch
	DialogsFailed     = "dialogs.fetch_failed"
	ThreadSelected    = "thread.selected"
	ThreadCleared     = "thread.cleared"
	ThreadUpdated     = "thread.updated"
	ThreadFailed      = "thread.fetch_failed"
	MessageSent       = "message.sent"
	MessageSendFailed = "message.send_failed"
	SessionStatus     = "session.status_changed"
	SessionLoggedOut  = "session.logged_out"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
