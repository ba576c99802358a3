// Package reconcile keeps the locally authored message stream consistent with
// the real-time transport. It buffers messages while offline, flushes them when
// the connection comes back, and folds inbound confirmations into one
// deduplicated view.
package reconcile

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/botchat/internal/bus"
	"github.com/matheus3301/botchat/internal/chat"
	"github.com/matheus3301/botchat/internal/netmon"
	"github.com/matheus3301/botchat/internal/pending"
	"github.com/matheus3301/botchat/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrEmptyContent is returned by SendMessage for blank text.
	ErrEmptyContent = errors.New("reconcile: message content is empty")
	// ErrNoConversation is returned by SendMessage without a conversation id.
	ErrNoConversation = errors.New("reconcile: conversation id is empty")
)

// IDSource generates ids for locally authored messages.
type IDSource interface {
	MessageID() string
}

type uuidSource struct{}

func (uuidSource) MessageID() string { return uuid.NewString() }

// Deps are the collaborators of a Repository. Bus, IDs, Logger and Now are optional.
type Deps struct {
	Pending *pending.Store
	Monitor netmon.Monitor
	Client  transport.Client
	Bus     *bus.Bus
	IDs     IDSource
	Logger  *zap.Logger
	Now     func() time.Time
}

// Options tunes reconnection and the conversation list.
type Options struct {
	Redial           bool
	RedialInitial    time.Duration
	RedialMax        time.Duration
	RedialMaxElapsed time.Duration
	Seeds            []chat.Seed
}

// DefaultOptions enables redial with a two minute budget and the default bots.
func DefaultOptions() Options {
	return Options{
		Redial:           true,
		RedialInitial:    500 * time.Millisecond,
		RedialMax:        30 * time.Second,
		RedialMaxElapsed: 2 * time.Minute,
		Seeds:            chat.DefaultSeeds(),
	}
}

// Repository is the single owner of the pending store and the confirmed
// (remote) view. One coordinating goroutine reacts to pending snapshots,
// reachability, connection state and inbound traffic; transmissions and
// redials run beside it and are torn down by Stop.
type Repository struct {
	pending *pending.Store
	monitor netmon.Monitor
	client  transport.Client
	events  *bus.Bus
	ids     IDSource
	logger  *zap.Logger
	now     func() time.Time
	opts    Options

	remote *bus.Latest[[]chat.Message]
	merged *bus.Latest[[]chat.Message]
	online *bus.Flag
	kick   chan struct{}

	mu            sync.Mutex
	ctx           context.Context
	cancel        context.CancelFunc
	group         *errgroup.Group
	wantConnected bool
	redialCancel  context.CancelFunc
	redialGen     uint64
}

// New creates a stopped Repository.
func New(deps Deps, opts Options) *Repository {
	if deps.Pending == nil {
		deps.Pending = pending.New()
	}
	if deps.IDs == nil {
		deps.IDs = uuidSource{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if opts.RedialInitial <= 0 {
		opts.RedialInitial = 500 * time.Millisecond
	}
	if opts.RedialMax <= 0 {
		opts.RedialMax = 30 * time.Second
	}
	if opts.RedialMaxElapsed <= 0 {
		opts.RedialMaxElapsed = 2 * time.Minute
	}
	return &Repository{
		pending: deps.Pending,
		monitor: deps.Monitor,
		client:  deps.Client,
		events:  deps.Bus,
		ids:     deps.IDs,
		logger:  deps.Logger,
		now:     deps.Now,
		opts:    opts,
		remote:  bus.NewLatest([]chat.Message{}),
		merged:  bus.NewLatest([]chat.Message{}),
		online:  bus.NewFlag(false),
		kick:    make(chan struct{}, 1),
	}
}

// Start subscribes to every input and begins reconciling. Calling Start on a
// running Repository does nothing.
func (r *Repository) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	r.ctx, r.cancel, r.group = gctx, cancel, g

	// Subscribe before returning: transitions published after Start must be seen.
	l := r.subscribe()
	g.Go(func() error { return r.run(gctx, g, l) })
	r.logger.Info("repository started", zap.Int("pending", r.pending.Len()))
}

// Stop cancels reconciliation and waits for in-flight work. Pending messages
// are kept; a later Start resumes with them.
func (r *Repository) Stop() {
	r.mu.Lock()
	cancel, g := r.cancel, r.group
	r.ctx, r.cancel, r.group = nil, nil, nil
	if r.redialCancel != nil {
		r.redialCancel()
		r.redialCancel = nil
	}
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	_ = g.Wait()
	r.online.Set(false)
	r.logger.Info("repository stopped", zap.Int("pending", r.pending.Len()))
}

// Connect asks the transport to connect and keeps redialing while the network
// is reachable. Failures are recorded, never returned.
func (r *Repository) Connect(ctx context.Context) {
	r.mu.Lock()
	r.wantConnected = true
	r.mu.Unlock()

	if err := r.client.Connect(ctx); err != nil {
		r.logger.Warn("connect failed", zap.Error(err))
	}
	r.nudge()
}

// Disconnect closes the transport and stops redialing. Pending messages stay
// queued until the next connection.
func (r *Repository) Disconnect() {
	r.mu.Lock()
	r.wantConnected = false
	if r.redialCancel != nil {
		r.redialCancel()
		r.redialCancel = nil
	}
	r.mu.Unlock()

	r.client.Disconnect()
	r.nudge()
}

// SendMessage queues content for chatID and returns the pending message at
// once. When online, transmission starts in the background; the message stays
// pending until the endpoint confirms it.
func (r *Repository) SendMessage(ctx context.Context, content, chatID string) (chat.Message, error) {
	if strings.TrimSpace(content) == "" {
		return chat.Message{}, ErrEmptyContent
	}
	if strings.TrimSpace(chatID) == "" {
		return chat.Message{}, ErrNoConversation
	}

	msg := chat.Message{
		ID:        r.ids.MessageID(),
		ChatID:    chatID,
		Content:   content,
		Timestamp: r.now().UnixMilli(),
		FromMe:    true,
		Status:    chat.StatusPending,
	}
	r.pending.Add(msg)
	r.emit(bus.MessageQueued, msg, "")
	r.logger.Debug("message queued", zap.String("msg_id", msg.ID), zap.String("chat_id", chatID))

	if !r.online.Get() {
		return msg, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.group == nil {
		return msg, nil
	}
	gctx := r.ctx
	r.group.Go(func() error {
		r.transmit(gctx, msg, false)
		return nil
	})
	return msg, nil
}

// Messages subscribes to the merged view, newest first.
func (r *Repository) Messages() (<-chan []chat.Message, func()) {
	return r.merged.Subscribe()
}

// Snapshot returns the current merged view, newest first.
func (r *Repository) Snapshot() []chat.Message {
	return slices.Clone(r.merged.Get())
}

// Thread returns the messages of one conversation, oldest first.
func (r *Repository) Thread(chatID string) []chat.Message {
	return chat.Thread(r.merged.Get(), chatID)
}

// Conversations projects the merged view onto the configured conversations.
func (r *Repository) Conversations() []chat.Conversation {
	return chat.Project(r.opts.Seeds, r.merged.Get())
}

// Pending returns the queued messages in insertion order.
func (r *Repository) Pending() []chat.Message {
	return r.pending.List()
}

// Remote returns the confirmed messages, most recent first.
func (r *Repository) Remote() []chat.Message {
	return slices.Clone(r.remote.Get())
}

// Online reports network reachability as seen by the monitor.
func (r *Repository) Online() bool {
	return r.monitor.Online()
}

// IsOnline passes the monitor's reachability signal through.
func (r *Repository) IsOnline() (<-chan bool, func()) {
	return r.monitor.Subscribe()
}

// Connected reports whether the network is reachable and the transport is connected.
func (r *Repository) Connected() bool {
	return r.online.Get()
}

// ConnectedChanges subscribes to Connected.
func (r *Repository) ConnectedChanges() (<-chan bool, func()) {
	return r.online.Subscribe()
}

func (r *Repository) nudge() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

func (r *Repository) emit(kind string, m chat.Message, detail string) {
	if r.events == nil {
		return
	}
	r.events.Emit(kind, bus.Delivery{MessageID: m.ID, ChatID: m.ChatID, Detail: detail})
}
