// Package api exposes the delivery engine as botchat.v1.ChatService. Payloads
// use protobuf well-known types so no generated code is needed.
package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/matheus3301/botchat/internal/journal"
	"github.com/matheus3301/botchat/internal/netmon"
	"github.com/matheus3301/botchat/internal/reconcile"
	"github.com/matheus3301/botchat/internal/status"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const defaultEventLimit = 50

// Deps are the collaborators of a ChatService. Switch and Journal are nil when
// reachability comes from a prober or the journal is disabled.
type Deps struct {
	Profile    string
	Repository *reconcile.Repository
	Machine    *status.Machine
	Switch     *netmon.Switch
	Journal    *journal.DB
	Logger     *zap.Logger
}

// ChatService implements ChatServer on top of a Repository.
type ChatService struct {
	profile   string
	repo      *reconcile.Repository
	machine   *status.Machine
	network   *netmon.Switch
	journal   *journal.DB
	logger    *zap.Logger
	startedAt time.Time

	shutdownOnce sync.Once
	done         chan struct{}
}

// NewChatService creates a new chat service.
func NewChatService(deps Deps) *ChatService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &ChatService{
		profile:   deps.Profile,
		repo:      deps.Repository,
		machine:   deps.Machine,
		network:   deps.Switch,
		journal:   deps.Journal,
		logger:    deps.Logger,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
}

// Shutdown ends every open WatchMessages stream so a graceful server stop
// does not wait on them.
func (s *ChatService) Shutdown() {
	s.shutdownOnce.Do(func() { close(s.done) })
}

func (s *ChatService) GetStatus(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st := Status{
		Profile:        s.profile,
		Online:         s.repo.Online(),
		Connected:      s.repo.Connected(),
		TransportState: "UNKNOWN",
		Pending:        len(s.repo.Pending()),
		UptimeMs:       time.Since(s.startedAt).Milliseconds(),
		Journal:        s.journal != nil,
	}
	if s.machine != nil {
		st.TransportState = string(s.machine.Current())
	}
	if s.journal != nil {
		counts, err := s.journal.CountByKind()
		if err != nil {
			s.logger.Warn("count delivery events", zap.Error(err))
		}
		st.Deliveries = counts
	}
	return encoded(EncodeStatus(st))
}

func (s *ChatService) Connect(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.repo.Connect(ctx)
	return &emptypb.Empty{}, nil
}

func (s *ChatService) Disconnect(_ context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.repo.Disconnect()
	return &emptypb.Empty{}, nil
}

func (s *ChatService) SendMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := req.GetFields()
	msg, err := s.repo.SendMessage(ctx, f["content"].GetStringValue(), f["chat_id"].GetStringValue())
	switch {
	case errors.Is(err, reconcile.ErrEmptyContent), errors.Is(err, reconcile.ErrNoConversation):
		return nil, grpcstatus.Error(codes.InvalidArgument, err.Error())
	case err != nil:
		return nil, grpcstatus.Errorf(codes.Internal, "send message: %v", err)
	}
	return encoded(EncodeMessage(msg))
}

func (s *ChatService) ListMessages(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if chatID := req.GetValue(); chatID != "" {
		return encoded(EncodeMessages(s.repo.Thread(chatID)))
	}
	return encoded(EncodeMessages(s.repo.Snapshot()))
}

func (s *ChatService) ListConversations(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return encoded(EncodeConversations(s.repo.Conversations()))
}

// WatchMessages sends the full merged view plus connectivity on every change,
// starting with the current state.
func (s *ChatService) WatchMessages(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	msgs, unsubMsgs := s.repo.Messages()
	defer unsubMsgs()
	online, unsubOnline := s.repo.IsOnline()
	defer unsubOnline()
	connected, unsubConnected := s.repo.ConnectedChanges()
	defer unsubConnected()

	snap := Snapshot{
		Messages:  s.repo.Snapshot(),
		Online:    s.repo.Online(),
		Connected: s.repo.Connected(),
	}
	if err := sendSnapshot(stream, snap); err != nil {
		return err
	}
	for {
		select {
		case m, ok := <-msgs:
			if !ok {
				return nil
			}
			snap.Messages = m
		case o, ok := <-online:
			if !ok {
				return nil
			}
			snap.Online = o
		case c, ok := <-connected:
			if !ok {
				return nil
			}
			snap.Connected = c
		case <-stream.Context().Done():
			return nil
		case <-s.done:
			return nil
		}

		if err := sendSnapshot(stream, snap); err != nil {
			return err
		}
	}
}

func sendSnapshot(stream grpc.ServerStreamingServer[structpb.Struct], snap Snapshot) error {
	out, err := EncodeSnapshot(snap)
	if err != nil {
		return grpcstatus.Errorf(codes.Internal, "encode snapshot: %v", err)
	}
	return stream.Send(out)
}

func (s *ChatService) SetNetwork(_ context.Context, req *wrapperspb.BoolValue) (*emptypb.Empty, error) {
	if s.network == nil {
		return nil, grpcstatus.Error(codes.FailedPrecondition, "network reachability is probed, not switched")
	}
	if s.network.Set(req.GetValue()) {
		s.logger.Info("network switched", zap.Bool("online", req.GetValue()))
	}
	return &emptypb.Empty{}, nil
}

func (s *ChatService) ListDeliveryEvents(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.journal == nil {
		return nil, grpcstatus.Error(codes.Unavailable, "delivery journal is disabled")
	}
	f := req.GetFields()
	limit := int(f["limit"].GetNumberValue())
	if limit <= 0 {
		limit = defaultEventLimit
	}
	events, err := s.journal.ListDeliveries(f["msg_id"].GetStringValue(), limit)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list delivery events: %v", err)
	}
	return encoded(EncodeDeliveryEvents(events))
}

func encoded(s *structpb.Struct, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "encode response: %v", err)
	}
	return s, nil
}

// ListLinkEvents returns the newest journaled connectivity changes.
func (s *ChatService) ListLinkEvents(_ context.Context, req *wrapperspb.Int32Value) (*structpb.Struct, error) {
	if s.journal == nil {
		return nil, grpcstatus.Error(codes.Unavailable, "delivery journal is disabled")
	}
	limit := int(req.GetValue())
	if limit <= 0 {
		limit = defaultEventLimit
	}
	events, err := s.journal.ListLinks(limit)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list link events: %v", err)
	}
	return encoded(EncodeLinkEvents(events))
}
