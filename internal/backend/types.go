// Package backend speaks the social network's REST API and adapts every
// response to one set of value types.
package backend

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialog is a conversation summary with one peer.
type Dialog struct {
	PeerID      int64
	Name        string
	Avatar      string
	LastMessage string
	Unread      int
}

// Message is one entry of a thread. ID and SentAt are zero when the
// backend omitted them.
type Message struct {
	ID         int64
	SenderID   int64
	ReceiverID int64
	Content    string
	PictureURL string
	SentAt     time.Time
}

// Key identifies m within its thread: the server id when present,
// otherwise its sender, receiver and payload.
func (m Message) Key() string {
	if m.ID != 0 {
		return "id:" + strconv.FormatInt(m.ID, 10)
	}
	return fmt.Sprintf("c:%d|%d|%s|%s", m.SenderID, m.ReceiverID, m.Content, m.PictureURL)
}

// UserSummary is a directory entry.
type UserSummary struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
	Avatar    string
}

// DisplayName is "first last", else the username, else "User <id>".
func (u UserSummary) DisplayName() string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	if u.Username != "" {
		return u.Username
	}
	return "User " + strconv.FormatInt(u.ID, 10)
}

// Token is the result of a password login.
type Token struct {
	AccessToken string
	TokenType   string
	UserID      int64
}

// Friend is an entry of a user's friend list.
type Friend struct {
	ID          int64
	Name        string
	Avatar      string
	Description string
}

// Community is a group users can subscribe to.
type Community struct {
	ID          int64
	Name        string
	Description string
	Avatar      string
	Subscribed  bool
}

// Profile is a user's public page.
type Profile struct {
	ID        int64
	FirstName string
	LastName  string
	Avatar    string
	Bio       string
	Own       bool
	PostCount int
}

// DisplayName is "first last", else "User <id>".
func (p Profile) DisplayName() string {
	return UserSummary{ID: p.ID, FirstName: p.FirstName, LastName: p.LastName}.DisplayName()
}
