package banner

import (
	"time"

	"github.com/kfallows/holdfast/internal/agent"
	"github.com/kfallows/holdfast/internal/netmon"
)

// Kind identifies the single notice the UI may show. The values are
// mutually exclusive; precedence is encoded in Select.
type Kind int

const (
	None Kind = iota
	Offline
	Reconnected
	UpdateAvailable
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Offline:
		return "offline"
	case Reconnected:
		return "reconnected"
	case UpdateAvailable:
		return "update-available"
	default:
		return "unknown"
	}
}

// ReconnectedFor is how long the positive "back online" notice lingers.
const ReconnectedFor = 3 * time.Second

// Inputs are the independent signals a selection is derived from.
type Inputs struct {
	Online           bool
	ReconnectedUntil time.Time
	Now              time.Time
	UpdateWaiting    bool
	Dismissed        bool
}

// Select reduces the inputs to exactly one kind, in precedence order:
//
//  1. offline always wins; a user without connectivity must never see a
//     stale "back online" or "update available" notice instead;
//  2. a live reconnect window shows the transient positive notice;
//  3. an undismissed waiting update;
//  4. nothing.
func Select(in Inputs) Kind {
	switch {
	case !in.Online:
		return Offline
	case in.Now.Before(in.ReconnectedUntil):
		return Reconnected
	case in.UpdateWaiting && !in.Dismissed:
		return UpdateAvailable
	default:
		return None
	}
}

// Selection is the machine's output. ExpiresAt is set only for Reconnected
// so the consumer can schedule the re-evaluation that retires it.
type Selection struct {
	Kind      Kind
	ExpiresAt time.Time
}

// Machine folds connectivity and worker lifecycle observations into banner
// selections. It runs on the single UI event loop and needs no locking; all
// state changes happen inside Observe and Dismiss.
type Machine struct {
	window time.Duration

	havePrev   bool
	prevOnline bool

	reconnectedUntil time.Time

	dismissed    bool
	dismissedGen uint64
}

// NewMachine returns a machine with the standard reconnect window.
func NewMachine() *Machine {
	return &Machine{window: ReconnectedFor}
}

// Observe folds one joint observation of the two upstream components and
// returns the current selection. Event ordering across sources is not
// guaranteed, so Observe derives everything from the states as seen now;
// precedence resolves correctly whichever signal arrived first.
func (m *Machine) Observe(conn netmon.State, worker agent.State, now time.Time) Selection {
	if m.havePrev && !m.prevOnline && conn.Online {
		m.reconnectedUntil = now.Add(m.window)
	}
	m.havePrev = true
	m.prevOnline = conn.Online
	if !conn.Online {
		// A pending reconnect window is moot once we are offline again; the
		// next offline→online transition arms a fresh one.
		m.reconnectedUntil = time.Time{}
	}

	// A new update supersedes any prior dismissal.
	if worker.UpdateGeneration != m.dismissedGen {
		m.dismissed = false
	}

	kind := Select(Inputs{
		Online:           conn.Online,
		ReconnectedUntil: m.reconnectedUntil,
		Now:              now,
		UpdateWaiting:    worker.HasUpdateWaiting,
		Dismissed:        m.dismissed,
	})

	sel := Selection{Kind: kind}
	if kind == Reconnected {
		sel.ExpiresAt = m.reconnectedUntil
	}
	return sel
}

// Dismiss suppresses the update notice for the current update generation.
// It is local-only state; a reload or a newer update shows the notice again.
func (m *Machine) Dismiss(worker agent.State) {
	m.dismissed = true
	m.dismissedGen = worker.UpdateGeneration
}
