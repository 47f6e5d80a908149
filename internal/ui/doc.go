// Package ui implements the Holdfast terminal interface with Bubble Tea.
//
// # Overview
//
// The UI is a single-screen workboard: a header bar, an optional notice
// banner, the item list, and a footer with key hints. All rendering styles
// come from a Theme (Lipgloss), cycled at runtime with T and persisted via
// the prefs package.
//
// # Event Loop
//
// Everything runs on the Bubble Tea update loop. A poll tick drives three
// things on every beat:
//
//   - a snapshot read from the shared state.Store
//   - a banner re-evaluation from the live connectivity and agent state
//   - the next tick
//
// The banner machine is owned by the model and only ever touched from the
// update loop, so it needs no locking. When the machine emits a transient
// selection it carries an expiry deadline; the model schedules a one-shot
// tea.Tick for that instant so the notice retires on time even between polls.
//
// # Notice Banner
//
// At most one banner is visible. Precedence is decided by the banner
// package: offline beats the transient reconnected notice, which beats the
// update notice, which the user can dismiss with x. Activating a waiting
// update with u tears the whole client down and restarts it, so the UI never
// mixes assets from two agent versions.
//
// # Data Flow
//
// The UI never talks to the network directly for reads; it renders whatever
// snapshot the background poller last stored. Writes (marking an item done)
// go through the cache coordinator so they obey the mutation retry policy
// and invalidate the cached item list on success.
package ui
