// Package client talks to a running botchatd over its Unix socket.
package client

import (
	"context"
	"fmt"

	"github.com/matheus3301/botchat/internal/api"
	"github.com/matheus3301/botchat/internal/chat"
	"github.com/matheus3301/botchat/internal/journal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client wraps the gRPC connection to the daemon.
type Client struct {
	conn *grpc.ClientConn
}

// New dials the daemon's Unix domain socket. The connection is lazy: errors
// surface on the first call.
func New(socketPath string) (*Client, error) {
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

func (c *Client) Status(ctx context.Context) (api.Status, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, api.MethodGetStatus, &emptypb.Empty{}, out); err != nil {
		return api.Status{}, err
	}
	return api.DecodeStatus(out), nil
}

func (c *Client) Connect(ctx context.Context) error {
	return c.conn.Invoke(ctx, api.MethodConnect, &emptypb.Empty{}, new(emptypb.Empty))
}

func (c *Client) Disconnect(ctx context.Context) error {
	return c.conn.Invoke(ctx, api.MethodDisconnect, &emptypb.Empty{}, new(emptypb.Empty))
}

// Send queues content for chatID and returns the pending message.
func (c *Client) Send(ctx context.Context, content, chatID string) (chat.Message, error) {
	req, err := api.EncodeSendRequest(content, chatID)
	if err != nil {
		return chat.Message{}, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, api.MethodSendMessage, req, out); err != nil {
		return chat.Message{}, err
	}
	return api.DecodeMessage(out), nil
}

// Messages lists one conversation oldest first, or the whole feed newest
// first when chatID is empty.
func (c *Client) Messages(ctx context.Context, chatID string) ([]chat.Message, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, api.MethodListMessages, wrapperspb.String(chatID), out); err != nil {
		return nil, err
	}
	return api.DecodeMessages(out), nil
}

func (c *Client) Conversations(ctx context.Context) ([]chat.Conversation, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, api.MethodListConversations, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return api.DecodeConversations(out), nil
}

// SetNetwork flips the daemon's network switch.
func (c *Client) SetNetwork(ctx context.Context, online bool) error {
	return c.conn.Invoke(ctx, api.MethodSetNetwork, wrapperspb.Bool(online), new(emptypb.Empty))
}

// DeliveryEvents lists journal rows for msgID, or for every message when empty.
func (c *Client) DeliveryEvents(ctx context.Context, msgID string, limit int) ([]journal.DeliveryEvent, error) {
	req, err := api.EncodeEventsRequest(msgID, limit)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, api.MethodListDeliveryEvents, req, out); err != nil {
		return nil, err
	}
	return api.DecodeDeliveryEvents(out), nil
}

// LinkEvents lists the newest journaled connectivity changes.
func (c *Client) LinkEvents(ctx context.Context, limit int) ([]journal.LinkEvent, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, api.MethodListLinkEvents, wrapperspb.Int32(int32(limit)), out); err != nil {
		return nil, err
	}
	return api.DecodeLinkEvents(out), nil
}

// Watcher receives WatchMessages updates.
type Watcher struct {
	stream grpc.ClientStream
}

// Watch opens a WatchMessages stream. Cancel ctx to end it.
func (c *Client) Watch(ctx context.Context) (*Watcher, error) {
	desc := &grpc.StreamDesc{StreamName: "WatchMessages", ServerStreams: true}
	stream, err := c.conn.NewStream(ctx, desc, api.MethodWatchMessages)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &Watcher{stream: stream}, nil
}

// Recv blocks for the next snapshot. It returns io.EOF when the daemon ends
// the stream.
func (w *Watcher) Recv() (api.Snapshot, error) {
	out := new(structpb.Struct)
	if err := w.stream.RecvMsg(out); err != nil {
		return api.Snapshot{}, err
	}
	return api.DecodeSnapshot(out), nil
}
