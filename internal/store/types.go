package store

// Credentials is the persisted login of a session. UserID is zero when the
// backend did not report one at login.
type Credentials struct {
	AccessToken string
	TokenType   string
	UserID      int64
	Username    string
	UpdatedAt   int64
}

// Dialog is one row of the last dialog-list snapshot.
type Dialog struct {
	PeerID      int64
	Name        string
	Avatar      string
	LastMessage string
	Unread      int
}

// Message is a fetched message cached for local search. Key identifies
// the message within its peer's thread; ServerID and SentAt are zero when
// the backend omitted them.
type Message struct {
	ID         int64
	PeerID     int64
	Key        string
	ServerID   int64
	SenderID   int64
	ReceiverID int64
	Content    string
	PictureURL string
	SentAt     int64
}

// SearchResult holds a message with a search snippet.
type SearchResult struct {
	Message Message
	Snippet string
}
