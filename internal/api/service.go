package api

import (
	"context"
	"strings"
	"time"

	"github.com/matheus3301/soc/internal/bus"
	"github.com/matheus3301/soc/internal/identity"
	"github.com/matheus3301/soc/internal/inbox"
	"github.com/matheus3301/soc/internal/logging"
	"github.com/matheus3301/soc/internal/status"
	"github.com/matheus3301/soc/internal/store"
	msgsync "github.com/matheus3301/soc/internal/sync"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const defaultSearchLimit = 20

// InboxService implements soc.v1.Inbox on top of one session's inbox.
type InboxService struct {
	sessionName string
	startedAt   time.Time
	machine     *status.Machine
	inbox       *inbox.Inbox
	ident       *identity.Identity
	db          *store.DB
	social      Social
	bus         *bus.Bus
	logger      *zap.Logger
}

var _ InboxServer = (*InboxService)(nil)

// NewInboxService creates the service. db may be nil, which disables
// SearchMessages.
func NewInboxService(sessionName string, machine *status.Machine, in *inbox.Inbox, ident *identity.Identity, db *store.DB, b *bus.Bus, logger *zap.Logger) *InboxService {
	return &InboxService{
		sessionName: sessionName,
		startedAt:   time.Now(),
		machine:     machine,
		inbox:       in,
		ident:       ident,
		db:          db,
		bus:         b,
		logger:      logging.OrNop(logger),
	}
}

func reply(fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "encode reply: %v", err)
	}
	return s, nil
}

func (s *InboxService) requireLogin() error {
	if !s.ident.Authenticated() {
		return toStatus(identity.ErrNotAuthenticated)
	}
	return nil
}

func (s *InboxService) Status(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	userID, _ := s.ident.UserID()
	fields := map[string]any{
		"session":       s.sessionName,
		"status":        string(s.machine.Current()),
		"detail":        s.machine.Detail(),
		"authenticated": s.ident.Authenticated(),
		"username":      s.ident.Username(),
		"user_id":       userID,
		"mounted":       s.inbox.Mounted(),
		"state":         s.inbox.State().String(),
		"dialog_count":  len(s.inbox.Dialogs.List()),
		"uptime_ms":     time.Since(s.startedAt).Milliseconds(),
	}
	syncedAt, lastErr := s.inbox.Dialogs.SyncedAt()
	fields["synced_at"] = formatTime(syncedAt)
	if lastErr != nil {
		fields["last_error"] = lastErr.Error()
	}
	if dlg, ok := s.inbox.Thread.Selected(); ok {
		fields["selected_peer"] = dlg.PeerID
	}
	return reply(fields)
}

func (s *InboxService) Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	username, password := strings.TrimSpace(str(in, "username")), str(in, "password")
	if username == "" || password == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "username and password are required")
	}
	if err := s.inbox.Login(ctx, username, password); err != nil {
		s.logger.Warn("login failed", zap.String("username", username), zap.Error(err))
		return nil, toStatus(err)
	}
	s.machine.Advance(status.Syncing, "")
	// The inbox outlives this call; it is closed by logout or shutdown.
	if err := s.inbox.Mount(context.Background()); err != nil {
		return nil, toStatus(err)
	}
	userID, resolved := s.ident.UserID()
	return reply(map[string]any{
		"username":         s.ident.Username(),
		"user_id":          userID,
		"user_id_resolved": resolved,
	})
}

func (s *InboxService) Logout(_ context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	s.inbox.Logout()
	return &emptypb.Empty{}, nil
}

func (s *InboxService) ListDialogs(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	syncedAt, lastErr := s.inbox.Dialogs.SyncedAt()
	fields := map[string]any{
		"dialogs":   listOf(s.inbox.Dialogs.List(), dialogFields),
		"synced_at": formatTime(syncedAt),
	}
	if lastErr != nil {
		fields["last_error"] = lastErr.Error()
	}
	return reply(fields)
}

func (s *InboxService) Select(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	dlg, err := s.inbox.SelectPeer(num(in, "peer_id"))
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"dialog": dialogFields(dlg)})
}

func (s *InboxService) Deselect(_ context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.inbox.Deselect()
	return &emptypb.Empty{}, nil
}

func (s *InboxService) Thread(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	dlg, ok := s.inbox.Thread.Selected()
	if !ok {
		return nil, toStatus(msgsync.ErrNoDialog)
	}
	if flag(in, "refresh") {
		if err := s.inbox.Thread.Refresh(ctx); err != nil {
			return nil, toStatus(err)
		}
	}
	msgs := s.inbox.Thread.Messages()
	items := make([]any, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, messageFields(m, s.inbox.Thread.Mine(m)))
	}
	return reply(map[string]any{
		"dialog":   dialogFields(dlg),
		"messages": items,
	})
}

func (s *InboxService) Send(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	if peer := num(in, "peer_id"); peer != 0 {
		if dlg, ok := s.inbox.Thread.Selected(); !ok || dlg.PeerID != peer {
			if _, err := s.inbox.SelectPeer(peer); err != nil {
				return nil, toStatus(err)
			}
		}
	}
	s.inbox.Composer.SetPicture(str(in, "picture_url"))
	sent, err := s.inbox.Composer.SendText(ctx, str(in, "content"))
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"message": messageFields(sent, true)})
}

func (s *InboxService) SearchUsers(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	users, err := s.inbox.Originator.Search(ctx, str(in, "query"))
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"users": listOf(users, userFields)})
}

func (s *InboxService) Originate(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	u := toUser(in)
	if u.ID == 0 {
		return nil, grpcstatus.Error(codes.InvalidArgument, "user id is required")
	}
	dlg, err := s.inbox.Originate(u)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"dialog": dialogFields(dlg)})
}

func (s *InboxService) SearchMessages(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	if s.db == nil {
		return nil, grpcstatus.Error(codes.Unimplemented, "no message store for this session")
	}
	query := strings.TrimSpace(str(in, "query"))
	if query == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "query is required")
	}
	limit := int(num(in, "limit"))
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	results, err := s.db.SearchMessages(ctx, query, num(in, "peer_id"), limit)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "search: %v", err)
	}
	return reply(map[string]any{"results": listOf(results, searchResultFields)})
}

func (s *InboxService) WatchEvents(in *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ch, unsub := s.bus.Subscribe(str(in, "namespace"), 256)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			msg, err := eventStruct(s.sessionName, evt)
			if err != nil {
				s.logger.Warn("event not relayed", zap.String("kind", evt.Kind), zap.Error(err))
				continue
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}
