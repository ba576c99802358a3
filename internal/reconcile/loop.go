package reconcile

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/matheus3301/botchat/internal/bus"
	"github.com/matheus3301/botchat/internal/chat"
	"github.com/matheus3301/botchat/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// inputs are the streams the coordinating loop fans in.
type inputs struct {
	pending <-chan []chat.Message
	remote  <-chan []chat.Message
	link    <-chan bool
	conn    <-chan bool
	inbound <-chan chat.Message
	unsub   []func()
}

func (r *Repository) subscribe() inputs {
	var in inputs
	var u func()
	in.pending, u = r.pending.Subscribe()
	in.unsub = append(in.unsub, u)
	in.remote, u = r.remote.Subscribe()
	in.unsub = append(in.unsub, u)
	in.link, u = r.monitor.Subscribe()
	in.unsub = append(in.unsub, u)
	in.conn, u = r.client.ConnectionState()
	in.unsub = append(in.unsub, u)
	in.inbound = r.client.Inbound()
	return in
}

// loopState is owned by the coordinating goroutine.
type loopState struct {
	link       bool
	conn       bool
	flushing   bool
	flushAgain bool
}

func (r *Repository) run(ctx context.Context, g *errgroup.Group, in inputs) error {
	defer func() {
		for _, u := range in.unsub {
			u()
		}
	}()

	var st loopState
	flushDone := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil

		case _, ok := <-in.pending:
			if !ok {
				in.pending = nil
				continue
			}
			r.publishMerged()

		case _, ok := <-in.remote:
			if !ok {
				in.remote = nil
				continue
			}
			r.publishMerged()

		case v, ok := <-in.link:
			if !ok {
				in.link = nil
				continue
			}
			st.link = v
			r.evaluate(ctx, g, &st, flushDone)

		case v, ok := <-in.conn:
			if !ok {
				in.conn = nil
				continue
			}
			st.conn = v
			r.evaluate(ctx, g, &st, flushDone)

		case msg, ok := <-in.inbound:
			if !ok {
				in.inbound = nil
				continue
			}
			r.reconcile(msg)

		case <-flushDone:
			st.flushing = false
			if st.flushAgain && r.online.Get() {
				st.flushAgain = false
				r.startFlush(ctx, g, &st, flushDone)
			}
			st.flushAgain = false

		case <-r.kick:
			if r.online.Get() && r.pending.Len() > 0 {
				r.startFlush(ctx, g, &st, flushDone)
			}
			r.superviseRedial(ctx, g, st)
		}
	}
}

// evaluate recomputes effective online after a reachability or connection
// change and flushes on every offline to online transition.
func (r *Repository) evaluate(ctx context.Context, g *errgroup.Group, st *loopState, flushDone chan struct{}) {
	eff := st.link && st.conn
	if r.online.Set(eff) {
		r.logger.Info("delivery state changed",
			zap.Bool("online", eff),
			zap.Bool("network", st.link),
			zap.Bool("connected", st.conn),
			zap.Int("pending", r.pending.Len()))
		if eff {
			r.startFlush(ctx, g, st, flushDone)
		}
	}
	r.superviseRedial(ctx, g, *st)
}

// publishMerged reads pending before remote. Confirmation always lands in
// remote before the pending entry is removed, so every message is visible.
func (r *Repository) publishMerged() {
	queued := r.pending.List()
	confirmed := r.remote.Get()
	next := Merge(queued, confirmed)
	if slices.Equal(next, r.merged.Get()) {
		return
	}
	r.merged.Set(next)
}

// reconcile folds an inbound message into the remote view and retires the
// pending entry with the same id.
func (r *Repository) reconcile(msg chat.Message) {
	msg.Status = chat.StatusSent
	r.remote.Update(func(cur []chat.Message) []chat.Message { return upsert(cur, msg) })
	wasPending := r.pending.Remove(msg.ID)

	kind := bus.MessageReceived
	if msg.FromMe {
		kind = bus.MessageConfirmed
	}
	r.emit(kind, msg, "")
	r.logger.Debug("inbound reconciled",
		zap.String("msg_id", msg.ID),
		zap.String("chat_id", msg.ChatID),
		zap.Bool("was_pending", wasPending))
}

func (r *Repository) startFlush(ctx context.Context, g *errgroup.Group, st *loopState, flushDone chan struct{}) {
	if st.flushing {
		st.flushAgain = true
		return
	}
	batch := r.pending.List()
	if len(batch) == 0 {
		return
	}
	st.flushing = true
	r.logger.Info("flushing pending messages", zap.Int("count", len(batch)))
	g.Go(func() error {
		r.flush(ctx, batch)
		select {
		case flushDone <- struct{}{}:
		case <-ctx.Done():
		}
		return nil
	})
}

// flush transmits batch in order. Each message is independent; entries
// confirmed while the flush runs are skipped.
func (r *Repository) flush(ctx context.Context, batch []chat.Message) {
	for _, m := range batch {
		if ctx.Err() != nil {
			return
		}
		cur, ok := r.pending.Get(m.ID)
		if !ok {
			continue
		}
		r.transmit(ctx, cur, true)
	}
}

// transmit sends m. A flushed message that was written is moved to the remote
// view as sent; a direct send waits for the echo. ErrNotConnected leaves m
// queued and any other error marks it failed. Both are retried by the next flush.
// A direct send refused as not connected kicks the loop, since a quick
// disconnect and reconnect can reach it as a single connected value.
func (r *Repository) transmit(ctx context.Context, m chat.Message, flushing bool) {
	err := r.client.Send(ctx, transport.OutboundFrom(m))
	switch {
	case err == nil:
		if !flushing {
			return
		}
		sent := m.WithStatus(chat.StatusSent)
		r.remote.Update(func(cur []chat.Message) []chat.Message { return upsert(cur, sent) })
		r.pending.Remove(m.ID)
		r.emit(bus.MessageSent, sent, "")
	case errors.Is(err, transport.ErrNotConnected):
		r.logger.Debug("message kept queued, not connected", zap.String("msg_id", m.ID))
		if !flushing {
			r.nudge()
		}
	case ctx.Err() != nil:
	default:
		if r.pending.SetStatus(m.ID, chat.StatusFailed) {
			r.emit(bus.MessageSendFailed, m, err.Error())
		}
		r.logger.Warn("message send failed", zap.String("msg_id", m.ID), zap.Error(err))
	}
}

// superviseRedial starts or stops the background redial so that it runs only
// while a connection is wanted, the network is reachable and the transport is down.
func (r *Repository) superviseRedial(ctx context.Context, g *errgroup.Group, st loopState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	should := r.opts.Redial && r.wantConnected && st.link && !st.conn
	if !should {
		if r.redialCancel != nil {
			r.redialCancel()
			r.redialCancel = nil
		}
		return
	}
	if r.redialCancel != nil {
		return
	}

	rctx, cancel := context.WithCancel(ctx)
	r.redialGen++
	gen := r.redialGen
	r.redialCancel = cancel
	g.Go(func() error {
		r.redial(rctx)
		r.mu.Lock()
		if r.redialGen == gen {
			r.redialCancel = nil
		}
		r.mu.Unlock()
		cancel()
		return nil
	})
}

func (r *Repository) redial(ctx context.Context) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.opts.RedialInitial
	b.MaxInterval = r.opts.RedialMax

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		if r.client.Connected() {
			return struct{}{}, nil
		}
		return struct{}{}, r.client.Connect(ctx)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(r.opts.RedialMaxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.logger.Warn("redial failed", zap.Error(err), zap.Duration("retry_in", next))
		}),
	)
	switch {
	case err == nil:
		r.logger.Info("redialed", zap.Int("attempts", attempts))
	case ctx.Err() != nil:
	default:
		r.logger.Error("giving up redial", zap.Int("attempts", attempts), zap.Error(err))
	}
}
