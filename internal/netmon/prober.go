package netmon

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/matheus3301/botchat/internal/bus"
	"go.uber.org/zap"
)

// DialFunc opens a connection; it matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// ProberOptions configures a Prober.
type ProberOptions struct {
	Addr     string
	Interval time.Duration
	Timeout  time.Duration
	Dial     DialFunc
}

// Prober is a Monitor that considers the network online while a TCP dial to
// Addr succeeds. It starts offline and probes immediately on Start.
type Prober struct {
	signal
	opts ProberOptions

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewProber creates a Prober. Zero intervals fall back to 5s and 2s.
func NewProber(opts ProberOptions, events *bus.Bus, logger *zap.Logger) *Prober {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.Dial == nil {
		opts.Dial = (&net.Dialer{}).DialContext
	}
	return &Prober{signal: newSignal(false, events, logger), opts: opts}
}

// Start begins probing. Calling Start on a running prober does nothing.
func (p *Prober) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
}

// Stop halts probing and waits for the loop to exit.
func (p *Prober) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Prober) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	p.probe(ctx)
	for {
		select {
		case <-ticker.C:
			p.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Prober) probe(ctx context.Context) {
	dialCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	conn, err := p.opts.Dial(dialCtx, "tcp", p.opts.Addr)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Debug("probe failed", zap.String("addr", p.opts.Addr), zap.Error(err))
		p.set(false)
		return
	}
	_ = conn.Close()
	p.set(true)
}
