// Package netmon observes host connectivity transitions.
//
// # Overview
//
// This package watches the host's online/offline signal and exposes the
// current state plus a sticky "was ever offline" flag for the session. It is
// deliberately a best-effort signal: a host reporting online says nothing
// about whether a particular remote service is reachable, so consumers must
// still treat fetch failures as ordinary errors subject to retry.
//
// # Architecture
//
//	Source (host signal)          Monitor (single writer)      Consumers
//	┌──────────────────┐         ┌──────────────────────┐
//	│ InterfaceSource  │ events  │ apply() owns State   │  Current()
//	│ ChanSource       │────────→│ EverOffline sticky   │──Subscribe()→
//	└──────────────────┘         └──────────────────────┘
//
// Sources are injectable so tests can replay arbitrary event sequences
// without a real host environment. The default InterfaceSource reads kernel
// interface flags only; the monitor never issues network traffic itself.
//
// # State Semantics
//
//   - Before the first observation the state is online, so startup is never
//     falsely degraded.
//   - EverOffline is monotonic: false → true once, cleared only by process
//     restart.
package netmon
