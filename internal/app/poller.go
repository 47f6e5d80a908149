package app

import (
	"context"
	"log"
	"time"

	"github.com/kfallows/holdfast/internal/api"
	"github.com/kfallows/holdfast/internal/cache"
	"github.com/kfallows/holdfast/internal/state"
)

const defaultPollInterval = 2 * time.Second

// Cache keys for the two board resources.
const (
	overviewKey = "overview"
	itemsKey    = "items"
)

// StartPoller launches a background goroutine that refreshes the store at a
// fixed cadence. It returns immediately.
func StartPoller(ctx context.Context, store *state.Store, coord *cache.Coordinator, client *api.Client, interval time.Duration) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			refresh(ctx, store, coord, client)
			coord.Sweep(time.Now())
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// refresh pulls both resources through the cache coordinator. Fresh cache
// hits never touch the network; stale hits serve immediately while the
// coordinator refreshes behind the scenes.
func refresh(ctx context.Context, store *state.Store, coord *cache.Coordinator, client *api.Client) {
	overview, err := cache.FetchAs(ctx, coord, overviewKey, client.FetchOverview)
	if err != nil {
		store.Update(nil, nil, err)
		log.Printf("overview poll failed: %v", err)
		return
	}
	items, err := cache.FetchAs(ctx, coord, itemsKey, client.FetchItems)
	if err != nil {
		store.Update(nil, nil, err)
		log.Printf("items poll failed: %v", err)
		return
	}
	store.Update(overview, items, nil)
}
