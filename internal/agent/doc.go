// Package agent manages the lifecycle of the companion cache agent.
//
// # Overview
//
// The cache agent is an optional host-provided process that mirrors remote
// assets so they stay available offline. This package registers it, tracks
// its install/waiting/active transitions, and exposes the two manual
// commands the UI offers: activating a waiting update and purging the
// agent's asset store.
//
// # Lifecycle
//
//	Unregistered → Registering → Installing → Active        (first install)
//	                                        ↘ Waiting → Active  (update)
//	any of the above → Failed                               (terminal)
//
// A waiting install never takes control on its own; only an explicit
// ActivateWaiting promotes it, followed by a full client reload so old
// assets and the new agent are never mixed. Registration failure is
// absorbed: the phase becomes Failed, the application keeps running, and
// data fetching continues without asset-level caching.
//
// # Update Detection
//
// HasUpdateWaiting is true only when a new install exists while a different
// install is already controlling. A first-ever install is not an update and
// must not raise the notice. Each new waiting install bumps
// State.UpdateGeneration, which downstream dismissal tracking keys on.
package agent
