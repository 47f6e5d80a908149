package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kfallows/holdfast/internal/netmon"
)

// Fetcher performs the underlying request for one resource. The coordinator
// treats it as opaque; only success/failure and the returned value matter.
type Fetcher func(ctx context.Context) (any, error)

// Connectivity is the slice of the connectivity monitor the coordinator
// needs. *netmon.Monitor satisfies it.
type Connectivity interface {
	Current() netmon.State
	Subscribe() chan netmon.State
	Unsubscribe(chan netmon.State)
}

// ErrRetriesExhausted marks terminal fetch failures. Match with errors.Is;
// the last underlying error is available via errors.Unwrap.
var ErrRetriesExhausted = errors.New("cache: retries exhausted")

// ErrOffline is returned for OnlineOnly requests made while the host is
// offline. Reads never see it; their policy pauses instead of failing.
var ErrOffline = errors.New("cache: offline")

// RetryError is the terminal error delivered after a retry budget runs out.
type RetryError struct {
	Key      string
	Attempts int
	Last     error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("cache: %q failed after %d attempts: %v", e.Key, e.Attempts, e.Last)
}

func (e *RetryError) Unwrap() error { return e.Last }

// Is lets errors.Is(err, ErrRetriesExhausted) match.
func (e *RetryError) Is(target error) bool { return target == ErrRetriesExhausted }

type entry struct {
	value     any
	fetchedAt time.Time
	lastUsed  time.Time
}

// Options configures a Coordinator. Zero-value fields take defaults.
type Options struct {
	Queries   Policy
	Mutations Policy
	Now       func() time.Time
}

// Coordinator owns the resource-keyed cache and applies staleness, retry,
// and network-gating policy to every fetch.
type Coordinator struct {
	queries   Policy
	mutations Policy
	conn      Connectivity
	now       func() time.Time

	mu         sync.Mutex
	entries    map[string]*entry
	refreshing map[string]bool

	group singleflight.Group
}

// New builds a coordinator gated on conn. A nil conn means connectivity is
// assumed online, matching the monitor's optimistic initial state.
func New(conn Connectivity, opts Options) (*Coordinator, error) {
	queries := opts.Queries
	if queries == (Policy{}) {
		queries = QueryPolicy()
	}
	mutations := opts.Mutations
	if mutations == (Policy{}) {
		mutations = MutationPolicy()
	}
	if err := queries.Validate(); err != nil {
		return nil, fmt.Errorf("query policy: %w", err)
	}
	if err := mutations.Validate(); err != nil {
		return nil, fmt.Errorf("mutation policy: %w", err)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		queries:    queries,
		mutations:  mutations,
		conn:       conn,
		now:        now,
		entries:    make(map[string]*entry),
		refreshing: make(map[string]bool),
	}, nil
}

// Fetch resolves a read for the given resource key.
//
//   - fresh cached data is returned immediately with no network activity;
//   - stale-but-retained data is returned immediately while a background
//     refresh runs;
//   - otherwise the fetch goes to the network under the query policy, and
//     concurrent callers for the same key share a single in-flight attempt.
func (c *Coordinator) Fetch(ctx context.Context, key string, fn Fetcher) (any, error) {
	now := c.now()

	c.mu.Lock()
	e := c.entries[key]
	if e != nil && now.Sub(e.lastUsed) > c.queries.RetentionTime {
		delete(c.entries, key)
		e = nil
	}
	if e != nil {
		age := now.Sub(e.fetchedAt)
		e.lastUsed = now
		value := e.value
		refresh := age >= c.queries.StaleTime && !c.refreshing[key] && c.online()
		if refresh {
			c.refreshing[key] = true
		}
		c.mu.Unlock()

		if refresh {
			// Serve stale, refresh in the background. At most one refresher
			// runs per key, and none start while offline; the attempt would
			// only park until reconnect, and the first read after reconnect
			// triggers the refresh anyway. The refresh outlives the caller's
			// request but not its cancellation cause chain.
			go func() {
				defer func() {
					c.mu.Lock()
					delete(c.refreshing, key)
					c.mu.Unlock()
				}()
				if _, err := c.resolve(context.WithoutCancel(ctx), key, fn); err != nil {
					log.Printf("cache: background refresh %q failed: %v", key, err)
				}
			}()
		}
		return value, nil
	}
	c.mu.Unlock()

	return c.resolve(ctx, key, fn)
}

// FetchAs is a typed convenience wrapper over Fetch.
func FetchAs[T any](ctx context.Context, c *Coordinator, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: %q holds %T, not %T", key, v, zero)
	}
	return typed, nil
}

// Mutate performs a write under the mutation policy. Nothing is ever served
// from cache; on success any cached entry for the key is invalidated so the
// next read observes the write.
func (c *Coordinator) Mutate(ctx context.Context, key string, fn Fetcher) (any, error) {
	v, err := c.attempt(ctx, key, fn, c.mutations)
	if err != nil {
		return nil, err
	}
	c.Invalidate(key)
	return v, nil
}

// Invalidate drops the cached entry for key, if any.
func (c *Coordinator) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Sweep evicts every entry unused for longer than the retention window.
func (c *Coordinator) Sweep(now time.Time) {
	c.mu.Lock()
	for key, e := range c.entries {
		if now.Sub(e.lastUsed) > c.queries.RetentionTime {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

// resolve funnels all network reads for a key through one in-flight
// attempt. Every waiter observes the same resolution.
func (c *Coordinator) resolve(ctx context.Context, key string, fn Fetcher) (any, error) {
	v, err, _ := c.group.Do(key, func() (any, error) {
		value, err := c.attempt(ctx, key, fn, c.queries)
		if err != nil {
			return nil, err
		}
		now := c.now()
		c.mu.Lock()
		c.entries[key] = &entry{value: value, fetchedAt: now, lastUsed: now}
		c.mu.Unlock()
		return value, nil
	})
	return v, err
}

// attempt runs the fetch with connectivity gating and the policy's retry
// budget. Under OfflineFirst, detected offline state never produces an error
// by itself; the attempt pauses until reconnect or the context ends.
func (c *Coordinator) attempt(ctx context.Context, key string, fn Fetcher, p Policy) (any, error) {
	if err := c.gate(ctx, key, p); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if attempt >= p.MaxRetries {
			return nil, &RetryError{Key: key, Attempts: attempt + 1, Last: lastErr}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		delay := p.Backoff(attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if err := c.gate(ctx, key, p); err != nil {
			return nil, err
		}
	}
}

// gate enforces the policy's network mode before an attempt. Online passes
// immediately. Offline, OfflineFirst pauses until reconnect or the context
// ends, OnlineOnly fails fast with ErrOffline.
func (c *Coordinator) gate(ctx context.Context, key string, p Policy) error {
	if c.online() {
		return nil
	}
	if p.Mode == OnlineOnly {
		return fmt.Errorf("cache: %q rejected while offline: %w", key, ErrOffline)
	}
	if err := c.awaitOnline(ctx); err != nil {
		return fmt.Errorf("cache: %q interrupted while offline: %w", key, err)
	}
	return nil
}

func (c *Coordinator) online() bool {
	return c.conn == nil || c.conn.Current().Online
}

// awaitOnline blocks while the host reports offline. It returns nil
// immediately when connectivity is unknown or online.
func (c *Coordinator) awaitOnline(ctx context.Context) error {
	if c.online() {
		return nil
	}
	ch := c.conn.Subscribe()
	defer c.conn.Unsubscribe(ch)

	// Re-check after subscribing; the transition may have already happened.
	if c.conn.Current().Online {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case st := <-ch:
			if st.Online {
				return nil
			}
		}
	}
}
