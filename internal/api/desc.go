// Package api exposes a session's inbox over gRPC. Requests and replies
// are google.protobuf.Struct documents, so the service is described here
// by hand rather than generated.
package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "soc.v1.Inbox"

// InboxServer is the server side of soc.v1.Inbox.
type InboxServer interface {
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Logout(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	ListDialogs(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Select(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Deselect(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Thread(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Send(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SearchUsers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Originate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SearchMessages(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Friends(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Profile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Communities(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Community(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetSubscription(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchEvents(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

func newEmpty() *emptypb.Empty { return new(emptypb.Empty) }
func newStruct() *structpb.Struct { return new(structpb.Struct) }

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary[Req, Resp proto.Message](name string, newReq func() Req, call func(InboxServer, context.Context, Req) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(InboxServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(InboxServer), ctx, req.(Req))
			})
		},
	}
}

func watchEventsHandler(srv any, stream grpc.ServerStream) error {
	in := newStruct()
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(InboxServer).WatchEvents(in, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// InboxServiceDesc describes soc.v1.Inbox for grpc.Server.RegisterService.
var InboxServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InboxServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Status", newEmpty, InboxServer.Status),
		unary("Login", newStruct, InboxServer.Login),
		unary("Logout", newEmpty, InboxServer.Logout),
		unary("ListDialogs", newEmpty, InboxServer.ListDialogs),
		unary("Select", newStruct, InboxServer.Select),
		unary("Deselect", newEmpty, InboxServer.Deselect),
		unary("Thread", newStruct, InboxServer.Thread),
		unary("Send", newStruct, InboxServer.Send),
		unary("SearchUsers", newStruct, InboxServer.SearchUsers),
		unary("Originate", newStruct, InboxServer.Originate),
		unary("SearchMessages", newStruct, InboxServer.SearchMessages),
		unary("Friends", newStruct, InboxServer.Friends),
		unary("Profile", newStruct, InboxServer.Profile),
		unary("Communities", newEmpty, InboxServer.Communities),
		unary("Community", newStruct, InboxServer.Community),
		unary("SetSubscription", newStruct, InboxServer.SetSubscription),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchEvents",
			Handler:       watchEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "soc/v1/inbox.proto",
}

// RegisterInboxServer registers srv on s.
func RegisterInboxServer(s grpc.ServiceRegistrar, srv InboxServer) {
	s.RegisterService(&InboxServiceDesc, srv)
}
