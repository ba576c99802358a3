// Package transporttest provides an in-memory transport.Client for tests.
package transporttest

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/botchat/internal/bus"
	"github.com/matheus3301/botchat/internal/chat"
	"github.com/matheus3301/botchat/internal/transport"
)

// Fake records sends and lets tests drive connection state and inbound traffic.
type Fake struct {
	mu          sync.Mutex
	sent        []transport.Outbound
	sendErr     error
	connectErr  error
	sendHook    func(transport.Outbound) error
	echo        bool
	connects    int
	disconnects int
	closed      bool

	state   *bus.Flag
	inbound chan chat.Message
}

// New creates a disconnected Fake.
func New() *Fake {
	return &Fake{
		state:   bus.NewFlag(false),
		inbound: make(chan chat.Message, 64),
	}
}

// Connect marks the fake connected unless a connect error is set. An open
// connection is dropped first, as a real reconnect would.
func (f *Fake) Connect(ctx context.Context) error {
	f.mu.Lock()
	f.connects++
	err := f.connectErr
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return transport.ErrClosed
	}
	if err != nil {
		f.state.Set(false)
		return err
	}
	f.state.Set(false)
	f.state.Set(true)
	return nil
}

// Disconnect marks the fake disconnected.
func (f *Fake) Disconnect() {
	f.mu.Lock()
	f.disconnects++
	f.mu.Unlock()
	f.state.Set(false)
}

// Send records out, or fails with ErrNotConnected, the hook's error or the
// configured send error. With echo enabled a successful send is answered by a
// confirmation frame on Inbound.
func (f *Fake) Send(ctx context.Context, out transport.Outbound) error {
	if !f.state.Get() {
		return transport.ErrNotConnected
	}
	f.mu.Lock()
	hook, err, echo := f.sendHook, f.sendErr, f.echo
	f.mu.Unlock()
	if hook != nil {
		if herr := hook(out); herr != nil {
			return herr
		}
	}
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.sent = append(f.sent, out)
	f.mu.Unlock()
	if echo {
		f.Push(chat.Message{
			ID:        out.ID,
			ChatID:    out.ChatID,
			Content:   out.Content,
			Timestamp: time.Now().UnixMilli(),
			FromMe:    true,
			Status:    chat.StatusSent,
		})
	}
	return nil
}

// Inbound returns the inbound stream.
func (f *Fake) Inbound() <-chan chat.Message { return f.inbound }

// ConnectionState subscribes to connection state.
func (f *Fake) ConnectionState() (<-chan bool, func()) { return f.state.Subscribe() }

// Connected returns the connection state.
func (f *Fake) Connected() bool { return f.state.Get() }

// Close closes the inbound stream.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	close(f.inbound)
	f.state.Close()
	return nil
}

// Push delivers msg on the inbound stream.
func (f *Fake) Push(msg chat.Message) {
	f.inbound <- msg
}

// SetConnected flips the connection state without a Connect call, as a drop would.
func (f *Fake) SetConnected(v bool) { f.state.Set(v) }

// SetSendErr makes every later Send fail with err. nil restores success.
func (f *Fake) SetSendErr(err error) {
	f.mu.Lock()
	f.sendErr = err
	f.mu.Unlock()
}

// SetConnectErr makes every later Connect fail with err.
func (f *Fake) SetConnectErr(err error) {
	f.mu.Lock()
	f.connectErr = err
	f.mu.Unlock()
}

// SetSendHook runs fn before each send; a non-nil result fails the send.
// fn may block to hold a send in flight.
func (f *Fake) SetSendHook(fn func(transport.Outbound) error) {
	f.mu.Lock()
	f.sendHook = fn
	f.mu.Unlock()
}

// SetEcho enables confirmation frames for successful sends.
func (f *Fake) SetEcho(v bool) {
	f.mu.Lock()
	f.echo = v
	f.mu.Unlock()
}

// Sent returns a copy of the recorded sends.
func (f *Fake) Sent() []transport.Outbound {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.sent)
}

// SentIDs returns the ids of the recorded sends in order.
func (f *Fake) SentIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, len(f.sent))
	for i, o := range f.sent {
		ids[i] = o.ID
	}
	return ids
}

// Connects returns how many times Connect was called.
func (f *Fake) Connects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

// Disconnects returns how many times Disconnect was called.
func (f *Fake) Disconnects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}

var _ transport.Client = (*Fake)(nil)
