package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "botchat.v1.ChatService"

// Full method names, used by the client.
const (
	MethodGetStatus          = "/" + ServiceName + "/GetStatus"
	MethodConnect            = "/" + ServiceName + "/Connect"
	MethodDisconnect         = "/" + ServiceName + "/Disconnect"
	MethodSendMessage        = "/" + ServiceName + "/SendMessage"
	MethodListMessages       = "/" + ServiceName + "/ListMessages"
	MethodListConversations  = "/" + ServiceName + "/ListConversations"
	MethodWatchMessages      = "/" + ServiceName + "/WatchMessages"
	MethodSetNetwork         = "/" + ServiceName + "/SetNetwork"
	MethodListDeliveryEvents = "/" + ServiceName + "/ListDeliveryEvents"
	MethodListLinkEvents     = "/" + ServiceName + "/ListLinkEvents"
)

// ChatServer is the server side of botchat.v1.ChatService.
type ChatServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Connect(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Disconnect(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	SendMessage(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListMessages(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ListConversations(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	WatchMessages(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
	SetNetwork(context.Context, *wrapperspb.BoolValue) (*emptypb.Empty, error)
	ListDeliveryEvents(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListLinkEvents(context.Context, *wrapperspb.Int32Value) (*structpb.Struct, error)
}

// Register attaches srv to s.
func Register(s grpc.ServiceRegistrar, srv ChatServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes botchat.v1.ChatService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: unary(MethodGetStatus, ChatServer.GetStatus)},
		{MethodName: "Connect", Handler: unary(MethodConnect, ChatServer.Connect)},
		{MethodName: "Disconnect", Handler: unary(MethodDisconnect, ChatServer.Disconnect)},
		{MethodName: "SendMessage", Handler: unary(MethodSendMessage, ChatServer.SendMessage)},
		{MethodName: "ListMessages", Handler: unary(MethodListMessages, ChatServer.ListMessages)},
		{MethodName: "ListConversations", Handler: unary(MethodListConversations, ChatServer.ListConversations)},
		{MethodName: "SetNetwork", Handler: unary(MethodSetNetwork, ChatServer.SetNetwork)},
		{MethodName: "ListDeliveryEvents", Handler: unary(MethodListDeliveryEvents, ChatServer.ListDeliveryEvents)},
		{MethodName: "ListLinkEvents", Handler: unary(MethodListLinkEvents, ChatServer.ListLinkEvents)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchMessages",
			Handler:       watchMessagesHandler,
			ServerStreams: true,
		},
	},
}

// unary adapts a typed method to grpc's untyped handler signature.
func unary[Req any, Resp any, PReq interface {
	*Req
}](fullMethod string, call func(ChatServer, context.Context, PReq) (Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ChatServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ChatServer), ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchMessagesHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ChatServer).WatchMessages(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}
