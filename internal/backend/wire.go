package backend

import (
	"encoding/json"
	"strconv"
	"time"
)

// The backend is inconsistent about field names across endpoints; the wire
// structs accept every spelling and the adapters pick the first present.

type flexID int64

func (f *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		v, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			return err
		}
		*f = flexID(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*f = flexID(v)
	return nil
}

func firstID(ids ...flexID) int64 {
	for _, id := range ids {
		if id != 0 {
			return int64(id)
		}
	}
	return 0
}

func firstString(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}

type wireDialog struct {
	ID          flexID `json:"id"`
	PeerID      flexID `json:"peer_id"`
	Name        string `json:"name"`
	Avatar      string `json:"avatar"`
	AvatarURL   string `json:"avatar_url"`
	LastMessage string `json:"lastMessage"`
	LastMsg     string `json:"last_message"`
	Unread      int    `json:"unread"`
}

func (w wireDialog) normalize() Dialog {
	unread := w.Unread
	if unread < 0 {
		unread = 0
	}
	return Dialog{
		PeerID:      firstID(w.ID, w.PeerID),
		Name:        w.Name,
		Avatar:      firstString(w.Avatar, w.AvatarURL),
		LastMessage: firstString(w.LastMessage, w.LastMsg),
		Unread:      unread,
	}
}

type wireMessage struct {
	ID         flexID  `json:"id"`
	MessageID  flexID  `json:"message_id"`
	SenderID   flexID  `json:"sender_id"`
	ReceiverID flexID  `json:"receiver_id"`
	Content    *string `json:"content"`
	Text       string  `json:"text"`
	PictureURL *string `json:"picture_url"`
	CreatedAt  string  `json:"created_at"`
}

func (w wireMessage) normalize() Message {
	m := Message{
		ID:         firstID(w.ID, w.MessageID),
		SenderID:   int64(w.SenderID),
		ReceiverID: int64(w.ReceiverID),
		Content:    w.Text,
	}
	if w.Content != nil {
		m.Content = *w.Content
	}
	if w.PictureURL != nil {
		m.PictureURL = *w.PictureURL
	}
	m.SentAt = parseTime(w.CreatedAt)
	return m
}

// parseTime accepts RFC 3339 and the naive ISO form Python emits.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05.999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

type wireUser struct {
	ID             flexID `json:"id"`
	UserID         flexID `json:"user_id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Username       string `json:"username"`
	Login          string `json:"login"`
	Avatar         string `json:"avatar"`
	ProfilePicture string `json:"profile_picture"`
	AvatarURL      string `json:"avatar_url"`
}

func (w wireUser) normalize() UserSummary {
	return UserSummary{
		ID:        firstID(w.ID, w.UserID),
		FirstName: w.FirstName,
		LastName:  w.LastName,
		Username:  firstString(w.Username, w.Login),
		Avatar:    firstString(w.Avatar, w.ProfilePicture, w.AvatarURL),
	}
}

type wireToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      flexID `json:"user_id"`
}

type wireFriend struct {
	ID          flexID `json:"id"`
	Name        string `json:"name"`
	Avatar      string `json:"avatar"`
	Description string `json:"description"`
}

func (w wireFriend) normalize() Friend {
	return Friend{ID: int64(w.ID), Name: w.Name, Avatar: w.Avatar, Description: w.Description}
}

type wireCommunity struct {
	ID          flexID `json:"id"`
	CommunityID flexID `json:"community_id"`
	ComID       flexID `json:"com_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Avatar      string `json:"avatar"`
	AvatarURL   string `json:"avatar_url"`
	Subscribed  bool   `json:"is_subscribed"`
}

func (w wireCommunity) normalize() Community {
	return Community{
		ID:          firstID(w.ID, w.CommunityID, w.ComID),
		Name:        w.Name,
		Description: w.Description,
		Avatar:      firstString(w.Avatar, w.AvatarURL),
		Subscribed:  w.Subscribed,
	}
}

type wireSubscription struct {
	Message    string `json:"message"`
	Subscribed bool   `json:"is_subscribed"`
}

type wireProfile struct {
	ID        flexID            `json:"id"`
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Avatar    string            `json:"avatar"`
	Bio       string            `json:"bio"`
	Own       bool              `json:"is_own_profile"`
	Posts     []json.RawMessage `json:"posts"`
}

func (w wireProfile) normalize() Profile {
	return Profile{
		ID:        int64(w.ID),
		FirstName: w.FirstName,
		LastName:  w.LastName,
		Avatar:    w.Avatar,
		Bio:       w.Bio,
		Own:       w.Own,
		PostCount: len(w.Posts),
	}
}

func normalizeAll[W interface{ normalize() T }, T any](ws []W) []T {
	out := make([]T, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.normalize())
	}
	return out
}
