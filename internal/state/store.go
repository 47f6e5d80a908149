package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/kfallows/holdfast/internal/api"
)

// Snapshot represents the latest remote data available to the UI. The data
// may have been served from cache; FetchedAt is when it was last obtained
// from the network, LastUpdated when the store last changed at all.
type Snapshot struct {
	Overview    api.Overview
	HasOverview bool
	Items       []api.Item
	FetchedAt   time.Time
	LastUpdated time.Time
	LastError   error
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update replaces the stored snapshot. When err is non-nil the previous data
// is kept but the error is recorded for visibility.
func (s *Store) Update(overview *api.Overview, items []api.Item, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		return
	}

	s.snapshot.Items = cloneItems(items)
	if overview != nil {
		s.snapshot.Overview = *overview
		s.snapshot.HasOverview = true
	} else {
		s.snapshot.HasOverview = false
	}
	s.snapshot.LastError = nil
	now := time.Now()
	s.snapshot.FetchedAt = now
	s.snapshot.LastUpdated = now
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Items = cloneItems(s.snapshot.Items)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneItems(items []api.Item) []api.Item {
	if len(items) == 0 {
		return nil
	}
	dup := make([]api.Item, len(items))
	copy(dup, items)
	return dup
}
