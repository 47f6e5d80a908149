package netmon

import (
	"sync"
)

// State is the monitor's view of host connectivity.
//
// Online reflects the most recently observed transition. EverOffline is a
// sticky session flag: it becomes true the first time an offline transition
// is observed and is never cleared for the lifetime of the process.
type State struct {
	Online      bool
	EverOffline bool
}

// Source supplies raw connectivity observations. Each value sent on the
// channel is the new online state (true = online). Implementations must not
// perform network requests of their own; the monitor is a passive observer
// of host signals, not a reachability prober.
type Source interface {
	Events() <-chan bool
}

// subscriberBuffer bounds each subscriber channel. A slow subscriber loses
// intermediate transitions but always sees the latest one.
const subscriberBuffer = 8

// Monitor owns the connectivity state. It is the single writer; consumers
// read through Current or Subscribe.
type Monitor struct {
	mu    sync.RWMutex
	state State
	subs  map[chan State]struct{}

	done      chan struct{}
	closeOnce sync.Once
}

// New starts a monitor consuming src. Until the first observation arrives
// the state reports online, so startup is never falsely blocked. A nil src
// yields a monitor that stays online forever, which is the degraded mode
// for hosts with no connectivity signal.
func New(src Source) *Monitor {
	m := &Monitor{
		state: State{Online: true},
		subs:  make(map[chan State]struct{}),
		done:  make(chan struct{}),
	}
	if src != nil {
		go m.consume(src)
	}
	return m
}

func (m *Monitor) consume(src Source) {
	events := src.Events()
	for {
		select {
		case <-m.done:
			return
		case online, ok := <-events:
			if !ok {
				return
			}
			m.apply(online)
		}
	}
}

func (m *Monitor) apply(online bool) {
	m.mu.Lock()
	changed := m.state.Online != online
	m.state.Online = online
	if !online {
		m.state.EverOffline = true
	}
	state := m.state
	var notify []chan State
	if changed {
		notify = make([]chan State, 0, len(m.subs))
		for ch := range m.subs {
			notify = append(notify, ch)
		}
	}
	m.mu.Unlock()

	for _, ch := range notify {
		select {
		case ch <- state:
		default:
			// Drop the oldest queued state so the newest wins.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- state:
			default:
			}
		}
	}
}

// Current returns the present connectivity state.
func (m *Monitor) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscribe registers a channel that receives a State on every online/offline
// transition. Release it with Unsubscribe when done.
func (m *Monitor) Subscribe() chan State {
	ch := make(chan State, subscriberBuffer)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel registered with Subscribe.
func (m *Monitor) Unsubscribe(ch chan State) {
	m.mu.Lock()
	delete(m.subs, ch)
	m.mu.Unlock()
}

// Close stops consuming the source. Subscribers receive no further updates.
func (m *Monitor) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}
