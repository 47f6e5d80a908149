// Package app provides the orchestration layer for the Holdfast application.
//
// # Overview
//
// This package wires together configuration, connectivity monitoring, the
// cache agent, the data cache, polling, state management, and the UI to
// create the complete Holdfast TUI experience. It serves as the composition
// root where all dependencies are initialized and connected.
//
// # Architecture
//
// The app package follows a simple initialization pattern, repeated once per
// client generation:
//
//  1. Load Holdfast configuration from ~/.config/holdfast/config.toml
//  2. Initialize HTTP client for the workboard API
//  3. Start the connectivity monitor over host interface signals
//  4. Build the cache coordinator with the configured windows
//  5. Register the companion cache agent over its unix socket
//  6. Create shared state.Store for UI and poller coordination
//  7. Launch background poller goroutine for continuous updates
//  8. Start the TUI and block until user exits, context cancels, or an
//     agent update triggers a reload
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Reload loop; one iteration per client generation
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()        Read Holdfast config
//	       ├─────> api.NewClient()      Create HTTP client
//	       ├─────> netmon.New()         Connectivity monitor
//	       ├─────> cache.New()          Staleness/retry/gating policy
//	       ├─────> agent.NewManager()   Register cache agent (async)
//	       ├─────> state.Store{}        Shared state container
//	       ├─────> StartPoller()        Launch background updates
//	       └─────> ui.Run()             Start TUI (blocks)
//
//	Background Poller Loop:
//	┌─────────────────────────────────────────────┐
//	│ StartPoller() goroutine                     │
//	│  ├─> cache.FetchAs("overview", ...)         │
//	│  ├─> cache.FetchAs("items", ...)            │
//	│  ├─> coord.Sweep()                          │
//	│  └─> store.Update()  (atomic)               │
//	│      └─> UI reads store.Snapshot()          │
//	└─────────────────────────────────────────────┘
//
// # Reload Semantics
//
// Activating a waiting agent update must never leave the client running on a
// mix of old and new assets. The agent manager's reload callback cancels the
// iteration context with a sentinel cause; ui.Run unwinds, runOnce returns,
// and Run builds a fresh client generation from scratch. In-flight fetches
// die with the old context.
//
// # Polling Behavior
//
// The poller runs continuously in the background at a configurable interval
// (default: 2 seconds). Every read goes through the cache coordinator, so a
// poll against fresh cache costs nothing and a poll while offline parks
// until connectivity returns instead of burning its retry budget.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Configuration file invalid
//   - Workboard client initialization failure
//
// Recoverable errors (logged, polling continues):
//   - Periodic fetch failures after the retry budget is spent
//   - Network timeouts during polling
//   - Cache agent registration failure (the feature degrades, the client
//     keeps running)
package app
