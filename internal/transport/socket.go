package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/matheus3301/botchat/internal/bus"
	"github.com/matheus3301/botchat/internal/chat"
	"github.com/matheus3301/botchat/internal/status"
	"go.uber.org/zap"
)

// Close reasons sent with websocket.StatusNormalClosure.
const (
	reasonReconnect  = "reconnecting"
	reasonDisconnect = "client disconnect"
)

// Options configures a Socket.
type Options struct {
	URL           string
	APIKey        string
	Header        http.Header
	PingInterval  time.Duration
	DialTimeout   time.Duration
	WriteTimeout  time.Duration
	ReadLimit     int64
	InboundBuffer int
}

func (o Options) withDefaults() Options {
	if o.PingInterval == 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 10 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 1 << 20
	}
	if o.InboundBuffer <= 0 {
		o.InboundBuffer = 256
	}
	return o
}

// Endpoint returns the dial URL with the API key, if any, as the api_key query parameter.
func (o Options) Endpoint() (string, error) {
	u, err := url.Parse(o.URL)
	if err != nil {
		return "", fmt.Errorf("parse endpoint url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return "", fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
	if o.APIKey != "" {
		q := u.Query()
		q.Set("api_key", o.APIKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Socket is a Client over a WebSocket connection. Connect and Disconnect are
// serialized; each connection runs a reader and a keepalive pinger that are
// retired when the connection is replaced or lost.
type Socket struct {
	opts    Options
	machine *status.Machine
	frameID func() string
	now     func() time.Time
	logger  *zap.Logger

	connectMu sync.Mutex

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	gen    uint64
	closed bool

	state   *bus.Flag
	inbound chan chat.Message
	wg      sync.WaitGroup
}

// NewSocket creates a disconnected Socket. frameID supplies ids for inbound
// frames that carry none. machine and logger may be nil.
func NewSocket(opts Options, machine *status.Machine, frameID func() string, logger *zap.Logger) *Socket {
	opts = opts.withDefaults()
	if machine == nil {
		machine = status.NewMachine(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if frameID == nil {
		frameID = func() string { return strconv.FormatInt(time.Now().UnixMilli(), 10) }
	}
	return &Socket{
		opts:    opts,
		machine: machine,
		frameID: frameID,
		now:     time.Now,
		logger:  logger,
		state:   bus.NewFlag(false),
		inbound: make(chan chat.Message, opts.InboundBuffer),
	}
}

// Connect dials the endpoint, closing the current connection first.
func (s *Socket) Connect(ctx context.Context) error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	old, oldCancel := s.detachLocked(status.Reconnecting)
	s.mu.Unlock()
	if old != nil {
		s.logger.Info("closing previous connection before reconnect")
		s.shutdown(old, oldCancel, reasonReconnect)
	}

	target, err := s.opts.Endpoint()
	if err != nil {
		s.logger.Error("invalid endpoint", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrConnectionFailure, err)
	}

	s.mu.Lock()
	s.move(status.Connecting)
	s.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, s.opts.DialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, target, &websocket.DialOptions{HTTPHeader: s.opts.Header})
	if err != nil {
		s.mu.Lock()
		s.move(status.Disconnected)
		s.state.Set(false)
		s.mu.Unlock()
		s.logger.Warn("connect failed", zap.String("endpoint", s.opts.URL), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrConnectionFailure, err)
	}
	conn.SetReadLimit(s.opts.ReadLimit)

	connCtx, connCancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.conn = conn
	s.cancel = connCancel
	s.wg.Add(2)
	s.move(status.Connected)
	s.state.Set(true)
	s.mu.Unlock()

	go s.readLoop(connCtx, conn, gen)
	go s.pingLoop(connCtx, conn, gen)

	s.logger.Info("connected", zap.String("endpoint", s.opts.URL))
	return nil
}

// Disconnect closes the connection with a normal closure. It is idempotent.
func (s *Socket) Disconnect() {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	s.mu.Lock()
	conn, cancel := s.detachLocked(status.Disconnected)
	s.mu.Unlock()
	if conn == nil {
		return
	}
	s.logger.Info("disconnecting")
	s.shutdown(conn, cancel, reasonDisconnect)
}

// Send writes out as a text frame.
func (s *Socket) Send(ctx context.Context, out Outbound) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		s.logger.Warn("send skipped, not connected", zap.String("msg_id", out.ID))
		return ErrNotConnected
	}

	data, err := EncodeOutbound(out, s.now())
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	wctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
	defer cancel()
	if err := conn.Write(wctx, websocket.MessageText, data); err != nil {
		s.logger.Error("send failed", zap.String("msg_id", out.ID), zap.Error(err))
		return fmt.Errorf("write frame: %w", err)
	}
	s.logger.Debug("frame sent", zap.String("msg_id", out.ID), zap.String("chat_id", out.ChatID))
	return nil
}

// Inbound returns the stream of decoded inbound messages.
func (s *Socket) Inbound() <-chan chat.Message {
	return s.inbound
}

// ConnectionState delivers the current connection state and every transition.
func (s *Socket) ConnectionState() (<-chan bool, func()) {
	return s.state.Subscribe()
}

// Connected returns the current connection state.
func (s *Socket) Connected() bool {
	return s.state.Get()
}

// State returns the lifecycle state.
func (s *Socket) State() status.State {
	return s.machine.Current()
}

// Close disconnects, waits for the connection goroutines and closes the
// inbound stream. Later calls return nil.
func (s *Socket) Close() error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conn, cancel := s.detachLocked(status.Disconnected)
	s.move(status.Closed)
	s.mu.Unlock()

	if conn != nil {
		s.shutdown(conn, cancel, reasonDisconnect)
	}
	s.wg.Wait()
	close(s.inbound)
	s.state.Close()
	return nil
}

// detachLocked takes the current connection out of service, moving the
// lifecycle to next. Callers hold s.mu.
func (s *Socket) detachLocked(next status.State) (*websocket.Conn, context.CancelFunc) {
	conn, cancel := s.conn, s.cancel
	if conn == nil {
		return nil, nil
	}
	s.conn, s.cancel = nil, nil
	s.gen++
	s.move(next)
	s.state.Set(false)
	return conn, cancel
}

func (s *Socket) shutdown(conn *websocket.Conn, cancel context.CancelFunc, reason string) {
	if err := conn.Close(websocket.StatusNormalClosure, reason); err != nil {
		s.logger.Debug("close handshake incomplete", zap.String("reason", reason), zap.Error(err))
	}
	cancel()
}

// move records a lifecycle transition. Callers hold s.mu.
func (s *Socket) move(to status.State) {
	if err := s.machine.Transition(to); err != nil {
		s.logger.Debug("lifecycle transition skipped", zap.Error(err))
	}
}

// handleDrop retires conn after a read or ping failure, unless it was already
// replaced.
func (s *Socket) handleDrop(conn *websocket.Conn, gen uint64, cause error) {
	s.mu.Lock()
	if s.gen != gen || s.conn != conn {
		s.mu.Unlock()
		return
	}
	_, cancel := s.detachLocked(status.Disconnected)
	s.mu.Unlock()

	cancel()
	_ = conn.CloseNow()

	if websocket.CloseStatus(cause) == websocket.StatusNormalClosure {
		s.logger.Info("connection closed by peer")
		return
	}
	s.logger.Warn("connection lost", zap.Error(cause))
}

func (s *Socket) readLoop(ctx context.Context, conn *websocket.Conn, gen uint64) {
	defer s.wg.Done()
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			s.handleDrop(conn, gen, err)
			return
		}
		if typ != websocket.MessageText {
			s.logger.Debug("ignoring non-text frame", zap.Int("bytes", len(data)))
			continue
		}
		msg, err := DecodeInbound(data, s.now(), s.frameID)
		if err != nil {
			s.logger.Warn("dropping inbound frame", zap.Error(err), zap.Int("bytes", len(data)))
			continue
		}
		s.logger.Debug("frame received", zap.String("msg_id", msg.ID), zap.String("chat_id", msg.ChatID))
		select {
		case s.inbound <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Socket) pingLoop(ctx context.Context, conn *websocket.Conn, gen uint64) {
	defer s.wg.Done()
	if s.opts.PingInterval < 0 {
		return
	}
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err == nil {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("keepalive ping failed", zap.Error(err))
			s.handleDrop(conn, gen, err)
			return
		}
	}
}
