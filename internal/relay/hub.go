// Package relay is a local real-time endpoint speaking the chat wire format.
// Every frame is re-broadcast to all connected peers, the sender included, and
// an optional bot answers user frames.
package relay

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/matheus3301/botchat/internal/chat"
	"github.com/matheus3301/botchat/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/net/websocket"
)

// Options configures a Hub.
type Options struct {
	Bot             bool
	BotDelay        time.Duration
	BotPrefix       string
	MaxFrameBytes   int
	MaxDecodeErrors int
}

func (o Options) withDefaults() Options {
	if o.BotPrefix == "" {
		o.BotPrefix = "You said: "
	}
	if o.MaxFrameBytes <= 0 {
		o.MaxFrameBytes = 64 << 10
	}
	if o.MaxDecodeErrors <= 0 {
		o.MaxDecodeErrors = 8
	}
	return o
}

// Hub tracks connected peers and fans frames out to them.
type Hub struct {
	opts   Options
	ids    func() string
	now    func() time.Time
	logger *zap.Logger

	mu     sync.Mutex
	peers  map[*peer]struct{}
	closed bool

	done chan struct{}
	wg   sync.WaitGroup
}

type peer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (p *peer) send(data string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return websocket.Message.Send(p.conn, data)
}

// New creates a Hub. ids supplies ids for frames that arrive without one.
func New(opts Options, ids func() string, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		opts:   opts.withDefaults(),
		ids:    ids,
		now:    time.Now,
		logger: logger,
		peers:  make(map[*peer]struct{}),
		done:   make(chan struct{}),
	}
}

// Handler serves /ws and the /up health check.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// No Handshake func: native clients send no Origin header.
	ws := websocket.Server{Handler: h.serve}
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ws.ServeHTTP(w, r)
	})
	return mux
}

// Peers returns the number of connected peers.
func (h *Hub) Peers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

// Broadcast sends f to every peer.
func (h *Hub) Broadcast(f transport.Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		h.logger.Error("encode frame", zap.Error(err))
		return
	}
	h.mu.Lock()
	targets := make([]*peer, 0, len(h.peers))
	for p := range h.peers {
		targets = append(targets, p)
	}
	h.mu.Unlock()

	for _, p := range targets {
		if err := p.send(string(data)); err != nil {
			h.logger.Debug("broadcast to peer failed", zap.Error(err))
		}
	}
}

// Close stops pending bot replies and disconnects every peer.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.done)
	peers := h.peers
	h.peers = make(map[*peer]struct{})
	h.mu.Unlock()

	h.wg.Wait()
	for p := range peers {
		_ = p.conn.Close()
	}
}

func (h *Hub) join(p *peer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.peers[p] = struct{}{}
	return true
}

func (h *Hub) leave(p *peer) {
	h.mu.Lock()
	delete(h.peers, p)
	h.mu.Unlock()
}

func (h *Hub) serve(conn *websocket.Conn) {
	defer func() { _ = conn.Close() }()
	conn.MaxPayloadBytes = h.opts.MaxFrameBytes

	p := &peer{conn: conn}
	if !h.join(p) {
		return
	}
	defer h.leave(p)
	h.logger.Info("peer connected", zap.String("remote", conn.Request().RemoteAddr))

	decodeErrors := 0
	for {
		var data string
		if err := websocket.Message.Receive(conn, &data); err != nil {
			if errors.Is(err, io.EOF) {
				h.logger.Info("peer disconnected")
				return
			}
			if errors.Is(err, websocket.ErrFrameTooLarge) {
				decodeErrors++
				if decodeErrors >= h.opts.MaxDecodeErrors {
					return
				}
				continue
			}
			h.logger.Debug("peer read failed", zap.Error(err))
			return
		}

		f, err := transport.ParseFrame([]byte(data))
		if err != nil {
			decodeErrors++
			h.logger.Warn("dropping invalid frame", zap.Error(err))
			if decodeErrors >= h.opts.MaxDecodeErrors {
				h.logger.Warn("too many invalid frames, closing peer")
				return
			}
			continue
		}
		decodeErrors = 0

		h.Broadcast(h.normalize(f))
		if h.opts.Bot && f.FromUser() {
			h.scheduleReply(f)
		}
	}
}

func (h *Hub) normalize(f transport.Frame) transport.Frame {
	if f.ID == "" && h.ids != nil {
		f.ID = h.ids()
	}
	if f.ChatID == "" {
		f.ChatID = chat.DefaultChatID
	}
	if f.Timestamp == 0 {
		f.Timestamp = h.now().UnixMilli()
	}
	if f.Sender == "" {
		f.Sender = transport.SenderUser
	}
	return f
}

func (h *Hub) scheduleReply(f transport.Frame) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.wg.Add(1)
	h.mu.Unlock()

	go func() {
		defer h.wg.Done()
		timer := time.NewTimer(h.opts.BotDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-h.done:
			return
		}
		reply := transport.Frame{
			ChatID:    f.ChatID,
			Content:   h.opts.BotPrefix + f.Content,
			Sender:    transport.SenderBot,
			Timestamp: h.now().UnixMilli(),
		}
		if h.ids != nil {
			reply.ID = h.ids()
		}
		h.Broadcast(h.normalize(reply))
	}()
}
