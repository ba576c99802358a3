package bus

import "time"

// Event is a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Event kinds. Subscribers filter on the namespace before the dot.
const (
	MessageQueued     = "message.queued"
	MessageSent       = "message.sent"
	MessageSendFailed = "message.send_failed"
	MessageConfirmed  = "message.confirmed"
	MessageReceived   = "message.received"

	TransportStateChanged = "transport.state_changed"

	NetworkOnline  = "network.online"
	NetworkOffline = "network.offline"
)

// Namespaces accepted by Subscribe.
const (
	NamespaceMessage   = "message."
	NamespaceTransport = "transport."
	NamespaceNetwork   = "network."
)

// Delivery is the payload of every message.* event.
type Delivery struct {
	MessageID string
	ChatID    string
	Detail    string
}
