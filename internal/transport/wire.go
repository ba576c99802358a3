package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/matheus3301/botchat/internal/chat"
)

// Sender values carried on the wire.
const (
	SenderUser = "User"
	SenderBot  = "Bot"
)

// Frame is the JSON object exchanged with the endpoint.
type Frame struct {
	ID        string `json:"id"`
	ChatID    string `json:"chatId"`
	Content   string `json:"content"`
	Sender    string `json:"sender"`
	Timestamp int64  `json:"timestamp"`
}

// FromUser reports whether the frame was authored by the local user.
func (f Frame) FromUser() bool {
	return strings.EqualFold(f.Sender, SenderUser)
}

// EncodeOutbound serializes out as a frame sent by the user at now.
func EncodeOutbound(out Outbound, now time.Time) ([]byte, error) {
	return json.Marshal(Frame{
		ID:        out.ID,
		ChatID:    out.ChatID,
		Content:   out.Content,
		Sender:    SenderUser,
		Timestamp: now.UnixMilli(),
	})
}

// ParseFrame decodes data leniently. The content comes from "content" or, when
// absent, "message". Numeric and boolean fields are accepted in text form. A
// missing id is left empty and a missing or non-integer timestamp is left zero.
func ParseFrame(data []byte) (Frame, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if raw == nil {
		return Frame{}, fmt.Errorf("%w: not an object", ErrMalformedFrame)
	}

	_, hasContent := raw["content"]
	_, hasMessage := raw["message"]
	if !hasContent && !hasMessage {
		return Frame{}, ErrNoContent
	}
	key := "message"
	if hasContent {
		key = "content"
	}

	var f Frame
	f.Content, _ = optString(raw, key)
	f.ID, _ = optString(raw, "id")
	f.ChatID, _ = optString(raw, "chatId")
	f.Sender, _ = optString(raw, "sender")
	f.Timestamp, _ = optInt(raw, "timestamp")
	return f, nil
}

// DecodeInbound turns data into a confirmed message. Frames without an id get
// one from fallbackID, frames without a chat id land in chat.DefaultChatID and
// frames without a usable timestamp are stamped with now.
func DecodeInbound(data []byte, now time.Time, fallbackID func() string) (chat.Message, error) {
	f, err := ParseFrame(data)
	if err != nil {
		return chat.Message{}, err
	}
	if f.ID == "" {
		f.ID = fallbackID()
	}
	if f.ChatID == "" {
		f.ChatID = chat.DefaultChatID
	}
	if f.Timestamp == 0 {
		f.Timestamp = now.UnixMilli()
	}
	return chat.Message{
		ID:        f.ID,
		ChatID:    f.ChatID,
		Content:   f.Content,
		Timestamp: f.Timestamp,
		FromMe:    f.FromUser(),
		Status:    chat.StatusSent,
	}, nil
}

// optString returns the field as text. Missing and null fields report false.
func optString(raw map[string]json.RawMessage, key string) (string, bool) {
	v, ok := raw[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, true
	}
	switch t := string(bytes.TrimSpace(v)); t {
	case "null":
		return "", false
	case "true", "false":
		return t, true
	default:
		var n json.Number
		if err := json.Unmarshal(v, &n); err == nil {
			return n.String(), true
		}
	}
	return "", false
}

// optInt returns an integral numeric field, or a string holding one.
func optInt(raw map[string]json.RawMessage, key string) (int64, bool) {
	v, ok := raw[key]
	if !ok {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return 0, false
		}
		n = json.Number(strings.TrimSpace(s))
	}
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	if fl, err := n.Float64(); err == nil && fl == math.Trunc(fl) && math.Abs(fl) < math.MaxInt64 {
		return int64(fl), true
	}
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return i, true
	}
	return 0, false
}
