package netmon

import (
	"context"
	"net"
	"time"
)

// ChanSource is a Source fed by the caller. Tests and embedders use it to
// drive arbitrary connectivity sequences.
type ChanSource struct {
	ch chan bool
}

// NewChanSource returns a ChanSource with a small buffer so Set never blocks
// the producer under normal use.
func NewChanSource() *ChanSource {
	return &ChanSource{ch: make(chan bool, subscriberBuffer)}
}

// Events implements Source.
func (s *ChanSource) Events() <-chan bool { return s.ch }

// Set reports a new online state.
func (s *ChanSource) Set(online bool) { s.ch <- online }

const defaultProbeInterval = 2 * time.Second

// InterfaceSource derives connectivity from local network interface flags.
// It inspects kernel state only; no packets are sent. A host counts as
// online when at least one non-loopback interface is up and running.
type InterfaceSource struct {
	ch       chan bool
	interval time.Duration
	list     func() ([]net.Interface, error)
}

// NewInterfaceSource starts polling interface flags until ctx is cancelled.
// A non-positive interval uses the default of 2s.
func NewInterfaceSource(ctx context.Context, interval time.Duration) *InterfaceSource {
	s := &InterfaceSource{
		ch:       make(chan bool, subscriberBuffer),
		interval: interval,
		list:     net.Interfaces,
	}
	if s.interval <= 0 {
		s.interval = defaultProbeInterval
	}
	go s.poll(ctx)
	return s
}

// Events implements Source.
func (s *InterfaceSource) Events() <-chan bool { return s.ch }

func (s *InterfaceSource) poll(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		online := s.probe()
		select {
		case s.ch <- online:
		default:
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *InterfaceSource) probe() bool {
	ifaces, err := s.list()
	if err != nil {
		// Inconclusive; stay optimistic rather than falsely gating fetches.
		return true
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagRunning != 0 {
			return true
		}
	}
	return false
}
