package backend

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"github.com/matheus3301/soc/internal/gateway"
)

// Requester is the part of the gateway the client needs.
type Requester interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	PostForm(ctx context.Context, path string, form url.Values, out any) error
}

var _ Requester = (*gateway.Gateway)(nil)

// Client wraps every REST endpoint the messaging client uses.
type Client struct {
	r Requester
}

// New creates a client over r.
func New(r Requester) *Client {
	return &Client{r: r}
}

func idPath(prefix string, id int64, suffix string) string {
	return prefix + strconv.FormatInt(id, 10) + suffix
}

// ListDialogs fetches the current user's conversations.
func (c *Client) ListDialogs(ctx context.Context) ([]Dialog, error) {
	var ws []wireDialog
	if err := c.r.Get(ctx, "/messages/dialogs", nil, &ws); err != nil {
		return nil, err
	}
	return normalizeAll[wireDialog, Dialog](ws), nil
}

// ListMessages fetches the thread with peerID, oldest first.
func (c *Client) ListMessages(ctx context.Context, peerID int64) ([]Message, error) {
	var ws []wireMessage
	if err := c.r.Get(ctx, idPath("/messages/", peerID, ""), nil, &ws); err != nil {
		return nil, err
	}
	return normalizeAll[wireMessage, Message](ws), nil
}

// SendMessage posts one message to receiverID and returns the stored copy.
func (c *Client) SendMessage(ctx context.Context, receiverID int64, content, pictureURL string) (Message, error) {
	body := struct {
		ReceiverID int64  `json:"receiver_id"`
		Content    string `json:"content"`
		PictureURL string `json:"picture_url"`
	}{ReceiverID: receiverID, Content: content, PictureURL: pictureURL}
	var w wireMessage
	if err := c.r.Post(ctx, "/messages/send", body, &w); err != nil {
		return Message{}, err
	}
	return w.normalize(), nil
}

// SearchUsers queries the directory by name.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]UserSummary, error) {
	var ws []wireUser
	if err := c.r.Get(ctx, "/users/search", url.Values{"query": {query}}, &ws); err != nil {
		return nil, err
	}
	return normalizeAll[wireUser, UserSummary](ws), nil
}

// ListUsers returns the whole directory.
func (c *Client) ListUsers(ctx context.Context) ([]UserSummary, error) {
	var ws []wireUser
	if err := c.r.Get(ctx, "/users/all", nil, &ws); err != nil {
		return nil, err
	}
	return normalizeAll[wireUser, UserSummary](ws), nil
}

// Login exchanges a username and password for an access token.
func (c *Client) Login(ctx context.Context, username, password string) (Token, error) {
	var w wireToken
	form := url.Values{"username": {username}, "password": {password}, "grant_type": {"password"}}
	if err := c.r.PostForm(ctx, "/token", form, &w); err != nil {
		return Token{}, err
	}
	if w.AccessToken == "" {
		return Token{}, errors.New("login response has no access_token")
	}
	return Token{AccessToken: w.AccessToken, TokenType: w.TokenType, UserID: int64(w.UserID)}, nil
}

// Friends lists userID's friends.
func (c *Client) Friends(ctx context.Context, userID int64) ([]Friend, error) {
	var ws []wireFriend
	if err := c.r.Get(ctx, idPath("/friends/", userID, ""), nil, &ws); err != nil {
		return nil, err
	}
	return normalizeAll[wireFriend, Friend](ws), nil
}

// Community fetches one community, including whether the caller is
// subscribed.
func (c *Client) Community(ctx context.Context, id int64) (Community, error) {
	var w wireCommunity
	if err := c.r.Get(ctx, idPath("/communities/", id, ""), nil, &w); err != nil {
		return Community{}, err
	}
	return w.normalize(), nil
}

// Subscribe joins a community and reports the resulting state.
func (c *Client) Subscribe(ctx context.Context, id int64) (bool, error) {
	var w wireSubscription
	if err := c.r.Post(ctx, idPath("/communities/", id, "/subscribe"), nil, &w); err != nil {
		return false, err
	}
	return w.Subscribed, nil
}

// Unsubscribe leaves a community and reports the resulting state.
func (c *Client) Unsubscribe(ctx context.Context, id int64) (bool, error) {
	var w wireSubscription
	if err := c.r.Post(ctx, idPath("/communities/", id, "/unsubscribe"), nil, &w); err != nil {
		return false, err
	}
	return w.Subscribed, nil
}

// MyCommunities lists the caller's subscriptions.
func (c *Client) MyCommunities(ctx context.Context) ([]Community, error) {
	var ws []wireCommunity
	if err := c.r.Get(ctx, "/user/me/communities", nil, &ws); err != nil {
		return nil, err
	}
	return normalizeAll[wireCommunity, Community](ws), nil
}

// Profile fetches userID's profile.
func (c *Client) Profile(ctx context.Context, userID int64) (Profile, error) {
	var w wireProfile
	if err := c.r.Get(ctx, idPath("/profile/", userID, ""), nil, &w); err != nil {
		return Profile{}, err
	}
	return w.normalize(), nil
}
