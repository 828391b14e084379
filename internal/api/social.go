package api

import (
	"context"

	"github.com/matheus3301/soc/internal/backend"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Social is the part of the backend outside messaging that the daemon
// relays: friends, communities and profiles.
type Social interface {
	Friends(ctx context.Context, userID int64) ([]backend.Friend, error)
	Community(ctx context.Context, id int64) (backend.Community, error)
	Subscribe(ctx context.Context, id int64) (bool, error)
	Unsubscribe(ctx context.Context, id int64) (bool, error)
	MyCommunities(ctx context.Context) ([]backend.Community, error)
	Profile(ctx context.Context, userID int64) (backend.Profile, error)
}

// WithSocial enables the friends, communities and profile calls.
func (s *InboxService) WithSocial(social Social) *InboxService {
	s.social = social
	return s
}

func (s *InboxService) requireSocial() error {
	if s.social == nil {
		return grpcstatus.Error(codes.Unimplemented, "social calls are not enabled")
	}
	return s.requireLogin()
}

// userOrMe returns the user_id field, or the current user when it is 0.
func (s *InboxService) userOrMe(in *structpb.Struct) (int64, error) {
	if id := num(in, "user_id"); id != 0 {
		return id, nil
	}
	if id, ok := s.ident.UserID(); ok {
		return id, nil
	}
	return 0, grpcstatus.Error(codes.FailedPrecondition, "current user id is unknown; pass a user id")
}

func requireID(in *structpb.Struct, key string) (int64, error) {
	id := num(in, key)
	if id <= 0 {
		return 0, grpcstatus.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	return id, nil
}

func friendFields(f backend.Friend) map[string]any {
	return map[string]any{
		"id":          f.ID,
		"name":        f.Name,
		"avatar":      f.Avatar,
		"description": f.Description,
	}
}

func communityFields(c backend.Community) map[string]any {
	return map[string]any{
		"id":          c.ID,
		"name":        c.Name,
		"description": c.Description,
		"avatar":      c.Avatar,
		"subscribed":  c.Subscribed,
	}
}

func profileFields(p backend.Profile) map[string]any {
	return map[string]any{
		"id":         p.ID,
		"first_name": p.FirstName,
		"last_name":  p.LastName,
		"avatar":     p.Avatar,
		"bio":        p.Bio,
		"own":        p.Own,
		"post_count": p.PostCount,
	}
}

func toFriend(s *structpb.Struct) backend.Friend {
	return backend.Friend{
		ID:          num(s, "id"),
		Name:        str(s, "name"),
		Avatar:      str(s, "avatar"),
		Description: str(s, "description"),
	}
}

func toCommunity(s *structpb.Struct) backend.Community {
	return backend.Community{
		ID:          num(s, "id"),
		Name:        str(s, "name"),
		Description: str(s, "description"),
		Avatar:      str(s, "avatar"),
		Subscribed:  flag(s, "subscribed"),
	}
}

func toProfile(s *structpb.Struct) backend.Profile {
	return backend.Profile{
		ID:        num(s, "id"),
		FirstName: str(s, "first_name"),
		LastName:  str(s, "last_name"),
		Avatar:    str(s, "avatar"),
		Bio:       str(s, "bio"),
		Own:       flag(s, "own"),
		PostCount: int(num(s, "post_count")),
	}
}

func (s *InboxService) Friends(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.requireSocial(); err != nil {
		return nil, err
	}
	id, err := s.userOrMe(in)
	if err != nil {
		return nil, err
	}
	friends, err := s.social.Friends(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"friends": listOf(friends, friendFields)})
}

func (s *InboxService) Profile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.requireSocial(); err != nil {
		return nil, err
	}
	id, err := s.userOrMe(in)
	if err != nil {
		return nil, err
	}
	p, err := s.social.Profile(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"profile": profileFields(p)})
}

func (s *InboxService) Communities(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.requireSocial(); err != nil {
		return nil, err
	}
	cs, err := s.social.MyCommunities(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"communities": listOf(cs, communityFields)})
}

func (s *InboxService) Community(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.requireSocial(); err != nil {
		return nil, err
	}
	id, err := requireID(in, "id")
	if err != nil {
		return nil, err
	}
	c, err := s.social.Community(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"community": communityFields(c)})
}

// SetSubscription subscribes to or unsubscribes from a community.
func (s *InboxService) SetSubscription(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.requireSocial(); err != nil {
		return nil, err
	}
	id, err := requireID(in, "id")
	if err != nil {
		return nil, err
	}
	call := s.social.Unsubscribe
	if flag(in, "subscribe") {
		call = s.social.Subscribe
	}
	subscribed, err := call(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info("community subscription changed", zap.Int64("community_id", id), zap.Bool("subscribed", subscribed))
	return reply(map[string]any{"id": id, "subscribed": subscribed})
}

// Friends lists a user's friends; userID 0 means the current user.
func (c *Client) Friends(ctx context.Context, userID int64) ([]backend.Friend, error) {
	out, err := c.call(ctx, "Friends", map[string]any{"user_id": userID})
	if err != nil {
		return nil, err
	}
	return mapConvert(children(out, "friends"), toFriend), nil
}

// Profile fetches a user's profile; userID 0 means the current user.
func (c *Client) Profile(ctx context.Context, userID int64) (backend.Profile, error) {
	out, err := c.call(ctx, "Profile", map[string]any{"user_id": userID})
	if err != nil {
		return backend.Profile{}, err
	}
	return toProfile(child(out, "profile")), nil
}

// Communities lists the current user's subscriptions.
func (c *Client) Communities(ctx context.Context) ([]backend.Community, error) {
	out, err := c.call(ctx, "Communities", nil)
	if err != nil {
		return nil, err
	}
	return mapConvert(children(out, "communities"), toCommunity), nil
}

// Community fetches one community.
func (c *Client) Community(ctx context.Context, id int64) (backend.Community, error) {
	out, err := c.call(ctx, "Community", map[string]any{"id": id})
	if err != nil {
		return backend.Community{}, err
	}
	return toCommunity(child(out, "community")), nil
}

// SetSubscription subscribes to (or, with subscribe false, leaves) a
// community and reports the resulting state.
func (c *Client) SetSubscription(ctx context.Context, id int64, subscribe bool) (bool, error) {
	out, err := c.call(ctx, "SetSubscription", map[string]any{"id": id, "subscribe": subscribe})
	if err != nil {
		return false, err
	}
	return flag(out, "subscribed"), nil
}
