// Package netmon reports whether the network is reachable.
package netmon

import (
	"github.com/matheus3301/botchat/internal/bus"
	"go.uber.org/zap"
)

// Monitor exposes a replay-latest reachability signal. Subscribe delivers the
// current value first and then every transition; a slow reader may skip
// intermediate flaps but always sees the newest value.
type Monitor interface {
	Online() bool
	Subscribe() (<-chan bool, func())
}

// signal is the shared publishing half of every Monitor implementation.
type signal struct {
	flag   *bus.Flag
	events *bus.Bus
	logger *zap.Logger
}

func newSignal(initial bool, events *bus.Bus, logger *zap.Logger) signal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return signal{flag: bus.NewFlag(initial), events: events, logger: logger}
}

func (s *signal) Online() bool { return s.flag.Get() }

func (s *signal) Subscribe() (<-chan bool, func()) { return s.flag.Subscribe() }

func (s *signal) set(online bool) bool {
	if !s.flag.Set(online) {
		return false
	}
	kind := bus.NetworkOffline
	if online {
		kind = bus.NetworkOnline
	}
	s.logger.Info("network reachability changed", zap.Bool("online", online))
	if s.events != nil {
		s.events.Emit(kind, online)
	}
	return true
}

// Switch is a Monitor whose value is set explicitly.
type Switch struct {
	signal
}

// NewSwitch creates a Switch holding initial. events and logger may be nil.
func NewSwitch(initial bool, events *bus.Bus, logger *zap.Logger) *Switch {
	return &Switch{signal: newSignal(initial, events, logger)}
}

// Set stores online and reports whether it changed.
func (s *Switch) Set(online bool) bool { return s.set(online) }
