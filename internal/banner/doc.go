// Package banner reduces independent resilience signals to one notice.
//
// Connectivity state, the cache agent's lifecycle, and a transient
// "just reconnected" timer each evolve on their own; this package owns the
// precedence that turns them into a single mutually exclusive user-visible
// banner. Selection itself is a pure function (Select); the Machine wraps it
// with the little bit of history selection needs: the previous online state,
// the reconnect deadline, and which update generation was dismissed.
//
// The Reconnected notice is transient by design. Its expiry is an explicit
// deadline carried in the Selection, and the consumer schedules an event for
// it on the same loop that delivers every other input, so the transition
// table stays complete and testable rather than hiding in timeout callbacks.
package banner
