package journal

import (
	"context"
	"fmt"
	"strings"

	"github.com/matheus3301/botchat/internal/bus"
	"github.com/matheus3301/botchat/internal/status"
	"go.uber.org/zap"
)

// Recorder appends bus events to the journal.
type Recorder struct {
	db     *DB
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRecorder creates a Recorder. logger may be nil.
func NewRecorder(db *DB, b *bus.Bus, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{db: db, bus: b, logger: logger}
}

// Start subscribes to every event on the bus.
func (r *Recorder) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	ch, unsub := r.bus.Subscribe("", 256)

	go func() {
		defer close(r.done)
		defer unsub()
		for {
			select {
			case evt, ok := <-ch:
				if !ok {
					return
				}
				r.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the subscription and waits for the writer.
func (r *Recorder) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel = nil
}

func (r *Recorder) handleEvent(evt bus.Event) {
	at := evt.Timestamp.UnixMilli()
	switch {
	case strings.HasPrefix(evt.Kind, bus.NamespaceMessage):
		d, ok := evt.Payload.(bus.Delivery)
		if !ok {
			return
		}
		if err := r.db.AppendDelivery(DeliveryEvent{
			MsgID:      d.MessageID,
			ChatID:     d.ChatID,
			Kind:       strings.TrimPrefix(evt.Kind, bus.NamespaceMessage),
			Detail:     d.Detail,
			OccurredAt: at,
		}); err != nil {
			r.logger.Error("failed to journal delivery", zap.Error(err), zap.String("msg_id", d.MessageID))
		}
	case strings.HasPrefix(evt.Kind, bus.NamespaceNetwork), strings.HasPrefix(evt.Kind, bus.NamespaceTransport):
		if err := r.db.AppendLink(LinkEvent{Kind: evt.Kind, Detail: linkDetail(evt.Payload), OccurredAt: at}); err != nil {
			r.logger.Error("failed to journal link event", zap.Error(err), zap.String("kind", evt.Kind))
		}
	}
}

func linkDetail(payload any) string {
	switch p := payload.(type) {
	case status.StatusChange:
		return fmt.Sprintf("%s -> %s", p.From, p.To)
	case nil:
		return ""
	default:
		return fmt.Sprint(p)
	}
}
