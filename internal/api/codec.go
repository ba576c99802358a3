package api

import (
	"github.com/matheus3301/botchat/internal/chat"
	"github.com/matheus3301/botchat/internal/journal"
	"google.golang.org/protobuf/types/known/structpb"
)

// Status is the daemon status reported by GetStatus.
type Status struct {
	Profile        string
	Online         bool
	Connected      bool
	TransportState string
	Pending        int
	UptimeMs       int64
	Journal        bool
	// Deliveries counts journaled delivery events by kind. Nil without a journal.
	Deliveries map[string]int
}

// Snapshot is one WatchMessages update.
type Snapshot struct {
	Messages  []chat.Message
	Online    bool
	Connected bool
}

func messageValue(m chat.Message) any {
	return map[string]any{
		"id":        m.ID,
		"chat_id":   m.ChatID,
		"content":   m.Content,
		"timestamp": float64(m.Timestamp),
		"from_me":   m.FromMe,
		"status":    string(m.Status),
	}
}

func messageFields(s *structpb.Struct) chat.Message {
	f := s.GetFields()
	return chat.Message{
		ID:        f["id"].GetStringValue(),
		ChatID:    f["chat_id"].GetStringValue(),
		Content:   f["content"].GetStringValue(),
		Timestamp: int64(f["timestamp"].GetNumberValue()),
		FromMe:    f["from_me"].GetBoolValue(),
		Status:    chat.Status(f["status"].GetStringValue()),
	}
}

func messagesValue(msgs []chat.Message) []any {
	out := make([]any, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageValue(m))
	}
	return out
}

func messagesFrom(v *structpb.Value) []chat.Message {
	items := v.GetListValue().GetValues()
	out := make([]chat.Message, 0, len(items))
	for _, item := range items {
		out = append(out, messageFields(item.GetStructValue()))
	}
	return out
}

// EncodeMessage converts m to its wire struct.
func EncodeMessage(m chat.Message) (*structpb.Struct, error) {
	return structpb.NewStruct(messageValue(m).(map[string]any))
}

// DecodeMessage reverses EncodeMessage.
func DecodeMessage(s *structpb.Struct) chat.Message {
	return messageFields(s)
}

// EncodeMessages wraps msgs as {"messages": [...]}.
func EncodeMessages(msgs []chat.Message) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"messages": messagesValue(msgs)})
}

// DecodeMessages reverses EncodeMessages.
func DecodeMessages(s *structpb.Struct) []chat.Message {
	return messagesFrom(s.GetFields()["messages"])
}

// EncodeSnapshot converts a watch update.
func EncodeSnapshot(snap Snapshot) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"messages":  messagesValue(snap.Messages),
		"online":    snap.Online,
		"connected": snap.Connected,
	})
}

// DecodeSnapshot reverses EncodeSnapshot.
func DecodeSnapshot(s *structpb.Struct) Snapshot {
	f := s.GetFields()
	return Snapshot{
		Messages:  messagesFrom(f["messages"]),
		Online:    f["online"].GetBoolValue(),
		Connected: f["connected"].GetBoolValue(),
	}
}

// EncodeConversations wraps convs as {"conversations": [...]}.
func EncodeConversations(convs []chat.Conversation) (*structpb.Struct, error) {
	items := make([]any, 0, len(convs))
	for _, c := range convs {
		items = append(items, map[string]any{
			"id":              c.ID,
			"name":            c.Name,
			"last_message":    c.LastMessage,
			"last_message_at": float64(c.LastMessageAt),
			"unread":          c.Unread,
			"pending":         c.Pending,
		})
	}
	return structpb.NewStruct(map[string]any{"conversations": items})
}

// DecodeConversations reverses EncodeConversations.
func DecodeConversations(s *structpb.Struct) []chat.Conversation {
	items := s.GetFields()["conversations"].GetListValue().GetValues()
	out := make([]chat.Conversation, 0, len(items))
	for _, item := range items {
		f := item.GetStructValue().GetFields()
		out = append(out, chat.Conversation{
			ID:            f["id"].GetStringValue(),
			Name:          f["name"].GetStringValue(),
			LastMessage:   f["last_message"].GetStringValue(),
			LastMessageAt: int64(f["last_message_at"].GetNumberValue()),
			Unread:        int(f["unread"].GetNumberValue()),
			Pending:       int(f["pending"].GetNumberValue()),
		})
	}
	return out
}

// EncodeStatus converts a status report.
func EncodeStatus(st Status) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"profile":         st.Profile,
		"online":          st.Online,
		"connected":       st.Connected,
		"transport_state": st.TransportState,
		"pending":         st.Pending,
		"uptime_ms":       float64(st.UptimeMs),
		"journal":         st.Journal,
		"deliveries":      countsValue(st.Deliveries),
	})
}

func countsValue(counts map[string]int) map[string]any {
	out := make(map[string]any, len(counts))
	for kind, n := range counts {
		out[kind] = n
	}
	return out
}

// DecodeStatus reverses EncodeStatus.
func DecodeStatus(s *structpb.Struct) Status {
	f := s.GetFields()
	return Status{
		Profile:        f["profile"].GetStringValue(),
		Online:         f["online"].GetBoolValue(),
		Connected:      f["connected"].GetBoolValue(),
		TransportState: f["transport_state"].GetStringValue(),
		Pending:        int(f["pending"].GetNumberValue()),
		UptimeMs:       int64(f["uptime_ms"].GetNumberValue()),
		Journal:        f["journal"].GetBoolValue(),
		Deliveries:     countsFrom(f["deliveries"]),
	}
}

func countsFrom(v *structpb.Value) map[string]int {
	fields := v.GetStructValue().GetFields()
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]int, len(fields))
	for kind, n := range fields {
		out[kind] = int(n.GetNumberValue())
	}
	return out
}

// EncodeSendRequest builds a SendMessage request.
func EncodeSendRequest(content, chatID string) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"content": content, "chat_id": chatID})
}

// EncodeEventsRequest builds a ListDeliveryEvents request.
func EncodeEventsRequest(msgID string, limit int) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"msg_id": msgID, "limit": limit})
}

// EncodeDeliveryEvents wraps journal rows as {"events": [...]}.
func EncodeDeliveryEvents(events []journal.DeliveryEvent) (*structpb.Struct, error) {
	items := make([]any, 0, len(events))
	for _, e := range events {
		items = append(items, map[string]any{
			"id":          float64(e.ID),
			"msg_id":      e.MsgID,
			"chat_id":     e.ChatID,
			"kind":        e.Kind,
			"detail":      e.Detail,
			"occurred_at": float64(e.OccurredAt),
		})
	}
	return structpb.NewStruct(map[string]any{"events": items})
}

// DecodeDeliveryEvents reverses EncodeDeliveryEvents.
func DecodeDeliveryEvents(s *structpb.Struct) []journal.DeliveryEvent {
	items := s.GetFields()["events"].GetListValue().GetValues()
	out := make([]journal.DeliveryEvent, 0, len(items))
	for _, item := range items {
		f := item.GetStructValue().GetFields()
		out = append(out, journal.DeliveryEvent{
			ID:         int64(f["id"].GetNumberValue()),
			MsgID:      f["msg_id"].GetStringValue(),
			ChatID:     f["chat_id"].GetStringValue(),
			Kind:       f["kind"].GetStringValue(),
			Detail:     f["detail"].GetStringValue(),
			OccurredAt: int64(f["occurred_at"].GetNumberValue()),
		})
	}
	return out
}

// EncodeLinkEvents wraps journaled connectivity changes as {"events": [...]}.
func EncodeLinkEvents(events []journal.LinkEvent) (*structpb.Struct, error) {
	items := make([]any, 0, len(events))
	for _, e := range events {
		items = append(items, map[string]any{
			"id":          float64(e.ID),
			"kind":        e.Kind,
			"detail":      e.Detail,
			"occurred_at": float64(e.OccurredAt),
		})
	}
	return structpb.NewStruct(map[string]any{"events": items})
}

// DecodeLinkEvents reverses EncodeLinkEvents.
func DecodeLinkEvents(s *structpb.Struct) []journal.LinkEvent {
	items := s.GetFields()["events"].GetListValue().GetValues()
	out := make([]journal.LinkEvent, 0, len(items))
	for _, item := range items {
		f := item.GetStructValue().GetFields()
		out = append(out, journal.LinkEvent{
			ID:         int64(f["id"].GetNumberValue()),
			Kind:       f["kind"].GetStringValue(),
			Detail:     f["detail"].GetStringValue(),
			OccurredAt: int64(f["occurred_at"].GetNumberValue()),
		})
	}
	return out
}
