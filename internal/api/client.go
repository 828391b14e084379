package api

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/soc/internal/backend"
	"github.com/matheus3301/soc/internal/store"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client talks to a session daemon over its Unix domain socket.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to the daemon listening on socketPath. The connection is
// established lazily on the first call.
func Dial(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, method string, in, out proto.Message) error {
	return c.conn.Invoke(ctx, fullMethod(method), in, out)
}

func (c *Client) call(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	var in proto.Message = &emptypb.Empty{}
	if fields != nil {
		s, err := structpb.NewStruct(fields)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", method, err)
		}
		in = s
	}
	out := &structpb.Struct{}
	if err := c.invoke(ctx, method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SessionStatus is the daemon's view of its session.
type SessionStatus struct {
	Session       string
	Status        string
	Detail        string
	Authenticated bool
	Username      string
	UserID        int64
	Mounted       bool
	State         string
	SelectedPeer  int64
	DialogCount   int
	SyncedAt      time.Time
	LastError     string
	Uptime        time.Duration
}

// Status reports the session state.
func (c *Client) Status(ctx context.Context) (SessionStatus, error) {
	out, err := c.call(ctx, "Status", nil)
	if err != nil {
		return SessionStatus{}, err
	}
	return SessionStatus{
		Session:       str(out, "session"),
		Status:        str(out, "status"),
		Detail:        str(out, "detail"),
		Authenticated: flag(out, "authenticated"),
		Username:      str(out, "username"),
		UserID:        num(out, "user_id"),
		Mounted:       flag(out, "mounted"),
		State:         str(out, "state"),
		SelectedPeer:  num(out, "selected_peer"),
		DialogCount:   int(num(out, "dialog_count")),
		SyncedAt:      parseTime(str(out, "synced_at")),
		LastError:     str(out, "last_error"),
		Uptime:        time.Duration(num(out, "uptime_ms")) * time.Millisecond,
	}, nil
}

// LoginResult identifies who logged in. UserIDResolved is false when the
// backend never revealed the numeric id.
type LoginResult struct {
	Username       string
	UserID         int64
	UserIDResolved bool
}

// Login logs the daemon's session in and starts syncing.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	out, err := c.call(ctx, "Login", map[string]any{"username": username, "password": password})
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		Username:       str(out, "username"),
		UserID:         num(out, "user_id"),
		UserIDResolved: flag(out, "user_id_resolved"),
	}, nil
}

// Logout drops the session's token and stops syncing.
func (c *Client) Logout(ctx context.Context) error {
	return c.invoke(ctx, "Logout", &emptypb.Empty{}, &emptypb.Empty{})
}

// DialogList is the daemon's current dialog list.
type DialogList struct {
	Dialogs   []backend.Dialog
	SyncedAt  time.Time
	LastError string
}

// ListDialogs returns the last synced dialog list.
func (c *Client) ListDialogs(ctx context.Context) (DialogList, error) {
	out, err := c.call(ctx, "ListDialogs", nil)
	if err != nil {
		return DialogList{}, err
	}
	return DialogList{
		Dialogs:   mapConvert(children(out, "dialogs"), toDialog),
		SyncedAt:  parseTime(str(out, "synced_at")),
		LastError: str(out, "last_error"),
	}, nil
}

// Select selects the listed dialog with peerID.
func (c *Client) Select(ctx context.Context, peerID int64) (backend.Dialog, error) {
	out, err := c.call(ctx, "Select", map[string]any{"peer_id": peerID})
	if err != nil {
		return backend.Dialog{}, err
	}
	return toDialog(child(out, "dialog")), nil
}

// Deselect stops polling the selected thread.
func (c *Client) Deselect(ctx context.Context) error {
	return c.invoke(ctx, "Deselect", &emptypb.Empty{}, &emptypb.Empty{})
}

// Thread returns the selected dialog and its messages. With refresh set
// the daemon fetches the thread before answering.
func (c *Client) Thread(ctx context.Context, refresh bool) (backend.Dialog, []ThreadMessage, error) {
	out, err := c.call(ctx, "Thread", map[string]any{"refresh": refresh})
	if err != nil {
		return backend.Dialog{}, nil, err
	}
	return toDialog(child(out, "dialog")), mapConvert(children(out, "messages"), toThreadMessage), nil
}

// Send sends content to peerID, selecting it first when needed. A zero
// peerID sends to the selected dialog.
func (c *Client) Send(ctx context.Context, peerID int64, content, pictureURL string) (backend.Message, error) {
	out, err := c.call(ctx, "Send", map[string]any{
		"peer_id":     peerID,
		"content":     content,
		"picture_url": pictureURL,
	})
	if err != nil {
		return backend.Message{}, err
	}
	return toThreadMessage(child(out, "message")).Message, nil
}

// SearchUsers searches the user directory. An empty query lists everyone.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]backend.UserSummary, error) {
	out, err := c.call(ctx, "SearchUsers", map[string]any{"query": query})
	if err != nil {
		return nil, err
	}
	return mapConvert(children(out, "users"), toUser), nil
}

// Originate starts (or reopens) a conversation with u and selects it.
func (c *Client) Originate(ctx context.Context, u backend.UserSummary) (backend.Dialog, error) {
	out, err := c.call(ctx, "Originate", userFields(u))
	if err != nil {
		return backend.Dialog{}, err
	}
	return toDialog(child(out, "dialog")), nil
}

// SearchMessages searches messages cached by the daemon. peerID 0 searches
// every thread.
func (c *Client) SearchMessages(ctx context.Context, query string, peerID int64, limit int) ([]store.SearchResult, error) {
	out, err := c.call(ctx, "SearchMessages", map[string]any{
		"query":   query,
		"peer_id": peerID,
		"limit":   limit,
	})
	if err != nil {
		return nil, err
	}
	return mapConvert(children(out, "results"), toSearchResult), nil
}

// EventStream receives relayed bus events.
type EventStream struct {
	stream grpc.ServerStreamingClient[structpb.Struct]
}

// Recv blocks for the next event.
func (e *EventStream) Recv() (Event, error) {
	s, err := e.stream.Recv()
	if err != nil {
		return Event{}, err
	}
	return toEvent(s), nil
}

// WatchEvents streams events whose kind starts with namespace until ctx
// is cancelled. An empty namespace streams everything.
func (c *Client) WatchEvents(ctx context.Context, namespace string) (*EventStream, error) {
	in, err := structpb.NewStruct(map[string]any{"namespace": namespace})
	if err != nil {
		return nil, err
	}
	cs, err := c.conn.NewStream(ctx, &InboxServiceDesc.Streams[0], fullMethod("WatchEvents"))
	if err != nil {
		return nil, err
	}
	stream := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: cs}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &EventStream{stream: stream}, nil
}
