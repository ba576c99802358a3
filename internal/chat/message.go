// Package chat holds the message and conversation types shared by the
// delivery engine and its consumers.
package chat

import "time"

// Status is the delivery state of a message.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// DefaultChatID is the conversation assigned to inbound frames without one.
const DefaultChatID = "1"

// Message is one chat message. ID is unique across the merged view.
type Message struct {
	ID        string
	ChatID    string
	Content   string
	Timestamp int64 // ms since epoch
	FromMe    bool
	Status    Status
}

// WithStatus returns a copy of m carrying s.
func (m Message) WithStatus(s Status) Message {
	m.Status = s
	return m
}

// Time converts Timestamp to a time.Time.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}
