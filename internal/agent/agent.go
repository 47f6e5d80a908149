package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Phase tracks the cache agent's lifecycle. Transitions move strictly
// forward: Unregistered → Registering → Installing → (Waiting|Active), with
// Failed terminal from any of the first three.
type Phase int

const (
	Unregistered Phase = iota
	Registering
	Installing
	Waiting
	Active
	Failed
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case Unregistered:
		return "unregistered"
	case Registering:
		return "registering"
	case Installing:
		return "installing"
	case Waiting:
		return "waiting"
	case Active:
		return "active"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Install identifies one installed agent version.
type Install struct {
	ID      uuid.UUID
	Version string
}

// Registration is the runtime's answer to a register call.
//
// Installed is the version the runtime just installed. Controller is the
// version already serving cached assets before this registration, nil on a
// first-ever install. The distinction matters: only an install that arrives
// while a different controller exists counts as an update.
type Registration struct {
	Installed  Install
	Controller *Install
}

// State is the manager's externally visible lifecycle snapshot.
//
// UpdateGeneration increments each time HasUpdateWaiting transitions to
// true; banner dismissal is keyed to it so a genuinely new update re-shows
// the notice after a dismissal.
type State struct {
	Phase            Phase
	HasUpdateWaiting bool
	UpdateGeneration uint64
}

var (
	// ErrUnsupported is reported when the host provides no agent runtime.
	ErrUnsupported = errors.New("agent: runtime unsupported on this host")
	// ErrNoUpdateWaiting is returned by ActivateWaiting when nothing waits.
	ErrNoUpdateWaiting = errors.New("agent: no update waiting")
	// ErrNotActive is returned by PurgeCache before an agent controls assets.
	ErrNotActive = errors.New("agent: no active agent")
)

// Manager registers the companion cache agent and tracks its lifecycle.
// Registration runs once per process, asynchronously; a failure downgrades
// the feature rather than the application.
type Manager struct {
	runtime Runtime
	reload  func()

	mu         sync.RWMutex
	registered bool
	state      State
	controller *Install
	waiting    *Install

	// Closed when the async registration attempt settles (for callers that
	// need to wait, primarily tests).
	settled chan struct{}
}

// NewManager builds a manager around the given runtime. reload is invoked
// after a waiting agent is activated so the client restarts onto the new
// agent's assets; it may be nil.
func NewManager(rt Runtime, reload func()) *Manager {
	return &Manager{
		runtime: rt,
		reload:  reload,
		settled: make(chan struct{}),
	}
}

// Register starts the registration exactly once and returns immediately.
// Subsequent calls are no-ops, so double registration can never produce
// duplicate installs or duplicate update notices.
func (m *Manager) Register(ctx context.Context) {
	m.mu.Lock()
	if m.registered {
		m.mu.Unlock()
		return
	}
	m.registered = true
	if m.runtime == nil {
		m.state.Phase = Failed
		m.mu.Unlock()
		close(m.settled)
		log.Printf("agent: registration skipped: %v", ErrUnsupported)
		return
	}
	m.state.Phase = Registering
	m.mu.Unlock()

	go m.register(ctx)
}

func (m *Manager) register(ctx context.Context) {
	defer close(m.settled)

	m.setPhase(Installing)
	reg, err := m.runtime.Register(ctx)
	if err != nil {
		m.setPhase(Failed)
		log.Printf("agent: registration failed: %v", err)
		return
	}

	m.mu.Lock()
	if reg.Controller == nil || reg.Controller.ID == reg.Installed.ID {
		// First install, or the controller is already this version. Either
		// way there is no pending update to announce.
		installed := reg.Installed
		m.controller = &installed
		m.state.Phase = Active
	} else {
		controller := *reg.Controller
		installed := reg.Installed
		m.controller = &controller
		m.waiting = &installed
		m.state.Phase = Waiting
		m.state.HasUpdateWaiting = true
		m.state.UpdateGeneration++
	}
	m.mu.Unlock()

	if updates := m.runtime.Updates(); updates != nil {
		go m.watch(ctx, updates)
	}
}

// watch consumes installs that appear after registration, e.g. the agent
// updating itself while the client runs.
func (m *Manager) watch(ctx context.Context, updates <-chan Install) {
	for {
		select {
		case <-ctx.Done():
			return
		case install, ok := <-updates:
			if !ok {
				return
			}
			m.observeInstall(install)
		}
	}
}

func (m *Manager) observeInstall(install Install) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Phase == Failed {
		return
	}
	if m.controller != nil && m.controller.ID == install.ID {
		return
	}
	if m.waiting != nil && m.waiting.ID == install.ID {
		return
	}
	m.waiting = &install
	m.state.Phase = Waiting
	m.state.HasUpdateWaiting = true
	m.state.UpdateGeneration++
}

// ActivateWaiting signals the waiting install to take control and then
// triggers a full client reload. Partial adoption (old assets with the new
// agent) never occurs because the reload tears down all client state.
func (m *Manager) ActivateWaiting(ctx context.Context) error {
	m.mu.Lock()
	waiting := m.waiting
	m.mu.Unlock()
	if waiting == nil {
		return ErrNoUpdateWaiting
	}

	if err := m.runtime.Activate(ctx, waiting.ID); err != nil {
		return fmt.Errorf("activate waiting agent: %w", err)
	}

	m.mu.Lock()
	m.controller = waiting
	m.waiting = nil
	m.state.Phase = Active
	m.state.HasUpdateWaiting = false
	reload := m.reload
	m.mu.Unlock()

	if reload != nil {
		reload()
	}
	return nil
}

// PurgeCache tells the active agent to drop its cached assets. This is a
// manual recovery action; the in-memory data cache is untouched.
func (m *Manager) PurgeCache(ctx context.Context) error {
	m.mu.RLock()
	active := m.controller != nil && m.state.Phase != Failed
	m.mu.RUnlock()
	if !active {
		return ErrNotActive
	}
	if err := m.runtime.PurgeAssets(ctx); err != nil {
		return fmt.Errorf("purge agent assets: %w", err)
	}
	return nil
}

// State returns the current lifecycle snapshot.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Settled blocks until the registration attempt has finished, successfully
// or not.
func (m *Manager) Settled() <-chan struct{} { return m.settled }

func (m *Manager) setPhase(p Phase) {
	m.mu.Lock()
	m.state.Phase = p
	m.mu.Unlock()
}
