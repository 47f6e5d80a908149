// Package state provides the thread-safe snapshot store shared between the
// background refresh loop and the UI.
//
// The Store is single-writer (the refresh loop), multi-reader (the UI's
// tick handler). Snapshots are defensively copied so a reader can never
// observe a torn or later-mutated view. On fetch error the previous data is
// retained; stale data with an error note beats a blank screen while the
// cache coordinator retries in the background.
package state
