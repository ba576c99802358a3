// Package transport carries chat frames to and from the real-time endpoint.
package transport

import (
	"context"
	"errors"

	"github.com/matheus3301/botchat/internal/chat"
)

var (
	// ErrNotConnected is returned by Send when there is no open connection.
	// Nothing was written; the message should stay queued.
	ErrNotConnected = errors.New("transport: not connected")

	// ErrConnectionFailure wraps dial and handshake errors.
	ErrConnectionFailure = errors.New("transport: connection failure")

	// ErrMalformedFrame is returned for inbound data that is not a JSON object.
	ErrMalformedFrame = errors.New("transport: malformed frame")

	// ErrNoContent is returned for inbound objects without a content or message field.
	ErrNoContent = errors.New("transport: frame has no content")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("transport: closed")
)

// Outbound is a locally authored message ready for the wire.
type Outbound struct {
	ID      string
	ChatID  string
	Content string
}

// OutboundFrom builds an Outbound from a queued message.
func OutboundFrom(m chat.Message) Outbound {
	return Outbound{ID: m.ID, ChatID: m.ChatID, Content: m.Content}
}

// Client is the connection surface the delivery engine depends on.
type Client interface {
	// Connect opens a connection, closing an existing one first. A failure
	// leaves the connection state false.
	Connect(ctx context.Context) error
	// Disconnect closes the connection if open. It is idempotent.
	Disconnect()
	// Send writes one frame. It returns ErrNotConnected without touching the
	// network when no connection is open.
	Send(ctx context.Context, out Outbound) error
	// Inbound returns the stream of decoded inbound messages. The same channel
	// is returned on every call and is closed only by Close.
	Inbound() <-chan chat.Message
	// ConnectionState delivers the current state and then every transition.
	ConnectionState() (<-chan bool, func())
	// Connected returns the current connection state.
	Connected() bool
	// Close disconnects and releases the inbound stream.
	Close() error
}
