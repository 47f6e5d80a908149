package cache

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kfallows/holdfast/internal/netmon"
)

// offlineMonitor returns a monitor already observing offline, plus its source
// for driving reconnects.
func offlineMonitor(t *testing.T) (*netmon.Monitor, *netmon.ChanSource) {
	t.Helper()
	src := netmon.NewChanSource()
	mon := netmon.New(src)
	t.Cleanup(mon.Close)

	src.Set(false)
	deadline := time.Now().Add(2 * time.Second)
	for mon.Current().Online && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if mon.Current().Online {
		t.Fatal("monitor never observed offline")
	}
	return mon, src
}

// fastPolicy keeps retry delays negligible in tests.
func fastPolicy(retries int) Policy {
	return Policy{
		StaleTime:     100 * time.Millisecond,
		RetentionTime: time.Second,
		MaxRetries:    retries,
		BackoffBase:   time.Millisecond,
		BackoffCap:    4 * time.Millisecond,
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newCoordinator(t *testing.T, conn Connectivity, clock *fakeClock) *Coordinator {
	t.Helper()
	mutations := fastPolicy(1)
	mutations.Mode = OnlineOnly
	opts := Options{Queries: fastPolicy(3), Mutations: mutations}
	if clock != nil {
		opts.Now = clock.Now
	}
	c, err := New(conn, opts)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	return c
}

func TestCoordinator_FreshValueServedWithoutFetch(t *testing.T) {
	clock := newFakeClock()
	c := newCoordinator(t, nil, clock)

	var calls atomic.Int32
	fn := func(context.Context) (any, error) {
		calls.Add(1)
		return "v1", nil
	}

	ctx := context.Background()
	if _, err := c.Fetch(ctx, "k", fn); err != nil {
		t.Fatalf("first Fetch() = %v", err)
	}

	clock.Advance(10 * time.Millisecond) // still fresh
	v, err := c.Fetch(ctx, "k", fn)
	if err != nil {
		t.Fatalf("second Fetch() = %v", err)
	}
	if v != "v1" {
		t.Fatalf("Fetch() = %v, want v1", v)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("fetcher called %d times for fresh data, want 1", got)
	}
}

func TestCoordinator_StaleValueServedWhileRefreshing(t *testing.T) {
	clock := newFakeClock()
	c := newCoordinator(t, nil, clock)

	var calls atomic.Int32
	fn := func(context.Context) (any, error) {
		n := calls.Add(1)
		if n == 1 {
			return "v1", nil
		}
		return "v2", nil
	}

	ctx := context.Background()
	if _, err := c.Fetch(ctx, "k", fn); err != nil {
		t.Fatalf("first Fetch() = %v", err)
	}

	// Past staleness, inside retention: cached value comes back immediately
	// and a background refresh fires.
	clock.Advance(500 * time.Millisecond)
	v, err := c.Fetch(ctx, "k", fn)
	if err != nil {
		t.Fatalf("stale Fetch() = %v", err)
	}
	if v != "v1" {
		t.Fatalf("stale Fetch() = %v, want cached v1", v)
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if calls.Load() < 2 {
		t.Fatal("background refresh never ran")
	}

	// Once the refresh lands, the new value is served.
	waitValue := func() any {
		v, err := c.Fetch(ctx, "k", fn)
		if err != nil {
			t.Fatalf("Fetch() after refresh = %v", err)
		}
		return v
	}
	for deadline := time.Now().Add(2 * time.Second); time.Now().Before(deadline); {
		if waitValue() == "v2" {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("refreshed value never served")
}

func TestCoordinator_RetentionExpiryForcesBlockingFetch(t *testing.T) {
	clock := newFakeClock()
	c := newCoordinator(t, nil, clock)

	var calls atomic.Int32
	fn := func(context.Context) (any, error) {
		calls.Add(1)
		return calls.Load(), nil
	}

	ctx := context.Background()
	if _, err := c.Fetch(ctx, "k", fn); err != nil {
		t.Fatalf("Fetch() = %v", err)
	}

	clock.Advance(2 * time.Second) // beyond retention
	v, err := c.Fetch(ctx, "k", fn)
	if err != nil {
		t.Fatalf("Fetch() after expiry = %v", err)
	}
	if v != int32(2) {
		t.Fatalf("Fetch() after expiry = %v, want fresh value 2", v)
	}
}

func TestCoordinator_ConcurrentFetchesShareOneAttempt(t *testing.T) {
	c := newCoordinator(t, nil, nil)

	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	}

	ctx := context.Background()
	const waiters = 8
	results := make(chan any, waiters)
	errs := make(chan error, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			v, err := c.Fetch(ctx, "k", fn)
			results <- v
			errs <- err
		}()
	}

	// Let every goroutine reach the in-flight attempt before resolving it.
	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)
	close(release)

	for i := 0; i < waiters; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("waiter error: %v", err)
		}
		if v := <-results; v != "shared" {
			t.Fatalf("waiter got %v, want shared", v)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("underlying fetch ran %d times, want 1", got)
	}
}

func TestCoordinator_RetriesThenSucceeds(t *testing.T) {
	c := newCoordinator(t, nil, nil)

	var calls atomic.Int32
	fn := func(context.Context) (any, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	}

	v, err := c.Fetch(context.Background(), "k", fn)
	if err != nil {
		t.Fatalf("Fetch() = %v", err)
	}
	if v != "ok" {
		t.Fatalf("Fetch() = %v, want ok", v)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("fetcher called %d times, want 3", got)
	}
}

func TestCoordinator_ExhaustedBudgetIsTerminal(t *testing.T) {
	c := newCoordinator(t, nil, nil)

	boom := errors.New("boom")
	var calls atomic.Int32
	fn := func(context.Context) (any, error) {
		calls.Add(1)
		return nil, boom
	}

	_, err := c.Fetch(context.Background(), "k", fn)
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("Fetch() = %v, want ErrRetriesExhausted", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("terminal error %v does not wrap the last cause", err)
	}
	// MaxRetries=3 means one initial attempt plus three retries.
	if got := calls.Load(); got != 4 {
		t.Fatalf("fetcher called %d times, want 4", got)
	}

	var re *RetryError
	if !errors.As(err, &re) {
		t.Fatalf("error %T is not a *RetryError", err)
	}
	if re.Attempts != 4 {
		t.Fatalf("Attempts = %d, want 4", re.Attempts)
	}
}

func TestCoordinator_OfflinePausesUntilReconnect(t *testing.T) {
	mon, src := offlineMonitor(t)
	c := newCoordinator(t, mon, nil)

	var calls atomic.Int32
	fn := func(context.Context) (any, error) {
		calls.Add(1)
		return "online-result", nil
	}

	done := make(chan struct{})
	var v any
	var err error
	go func() {
		v, err = c.Fetch(context.Background(), "k", fn)
		close(done)
	}()

	// While offline the fetch must not run and must not fail.
	select {
	case <-done:
		t.Fatalf("Fetch resolved while offline: v=%v err=%v", v, err)
	case <-time.After(50 * time.Millisecond):
	}
	if calls.Load() != 0 {
		t.Fatal("fetcher ran while offline")
	}

	src.Set(true)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Fetch did not resume after reconnect")
	}
	if err != nil {
		t.Fatalf("Fetch() after reconnect = %v", err)
	}
	if v != "online-result" {
		t.Fatalf("Fetch() = %v, want online-result", v)
	}
}

func TestCoordinator_OfflineWaitRespectsContext(t *testing.T) {
	mon, _ := offlineMonitor(t)
	c := newCoordinator(t, mon, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Fetch(ctx, "k", func(context.Context) (any, error) {
		t.Error("fetcher ran while offline")
		return nil, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Fetch() = %v, want context deadline error", err)
	}
}

func TestCoordinator_OfflineStaleServeSpawnsNoRefreshers(t *testing.T) {
	src := netmon.NewChanSource()
	mon := netmon.New(src)
	defer mon.Close()

	clock := newFakeClock()
	c := newCoordinator(t, mon, clock)

	var calls atomic.Int32
	fn := func(context.Context) (any, error) {
		calls.Add(1)
		return "v1", nil
	}

	// Prime the cache while online, then lose connectivity.
	ctx := context.Background()
	if _, err := c.Fetch(ctx, "k", fn); err != nil {
		t.Fatalf("Fetch() = %v", err)
	}
	src.Set(false)
	deadline := time.Now().Add(2 * time.Second)
	for mon.Current().Online && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	// Past staleness, inside retention: stale reads keep serving but must
	// not stack up parked refresh goroutines while offline.
	clock.Advance(500 * time.Millisecond)
	before := runtime.NumGoroutine()
	for i := 0; i < 100; i++ {
		v, err := c.Fetch(ctx, "k", fn)
		if err != nil {
			t.Fatalf("stale Fetch() while offline = %v", err)
		}
		if v != "v1" {
			t.Fatalf("stale Fetch() while offline = %v, want cached v1", v)
		}
	}
	time.Sleep(20 * time.Millisecond)
	if grew := runtime.NumGoroutine() - before; grew > 2 {
		t.Fatalf("stale fetches while offline grew goroutines by %d", grew)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("fetcher ran %d times, want 1 (no attempts while offline)", got)
	}
}

func TestCoordinator_SingleBackgroundRefresherPerKey(t *testing.T) {
	clock := newFakeClock()
	c := newCoordinator(t, nil, clock)

	ctx := context.Background()
	if _, err := c.Fetch(ctx, "k", func(context.Context) (any, error) { return "v1", nil }); err != nil {
		t.Fatalf("Fetch() = %v", err)
	}

	// The refresher blocks so repeated stale reads would each try to spawn.
	release := make(chan struct{})
	var refreshes atomic.Int32
	slow := func(context.Context) (any, error) {
		refreshes.Add(1)
		<-release
		return "v2", nil
	}

	clock.Advance(500 * time.Millisecond)
	before := runtime.NumGoroutine()
	for i := 0; i < 50; i++ {
		v, err := c.Fetch(ctx, "k", slow)
		if err != nil {
			t.Fatalf("stale Fetch() = %v", err)
		}
		if v != "v1" {
			t.Fatalf("stale Fetch() = %v, want cached v1", v)
		}
	}
	time.Sleep(20 * time.Millisecond)
	if grew := runtime.NumGoroutine() - before; grew > 2 {
		t.Fatalf("stale fetches grew goroutines by %d, want one refresher", grew)
	}
	if got := refreshes.Load(); got != 1 {
		t.Fatalf("refresher ran %d times, want 1", got)
	}
	close(release)
}

func TestCoordinator_MutateFailsFastWhileOffline(t *testing.T) {
	mon, _ := offlineMonitor(t)
	c := newCoordinator(t, mon, nil)

	var calls atomic.Int32
	_, err := c.Mutate(context.Background(), "k", func(context.Context) (any, error) {
		calls.Add(1)
		return "written", nil
	})
	if !errors.Is(err, ErrOffline) {
		t.Fatalf("Mutate() while offline = %v, want ErrOffline", err)
	}
	if calls.Load() != 0 {
		t.Fatal("mutation ran while offline")
	}
}

func TestCoordinator_MutateNeverServesCache(t *testing.T) {
	c := newCoordinator(t, nil, nil)
	ctx := context.Background()

	// Prime the read cache for the key.
	if _, err := c.Fetch(ctx, "k", func(context.Context) (any, error) { return "cached", nil }); err != nil {
		t.Fatalf("Fetch() = %v", err)
	}

	var calls atomic.Int32
	v, err := c.Mutate(ctx, "k", func(context.Context) (any, error) {
		calls.Add(1)
		return "written", nil
	})
	if err != nil {
		t.Fatalf("Mutate() = %v", err)
	}
	if v != "written" || calls.Load() != 1 {
		t.Fatalf("Mutate() = %v (calls=%d), want written with one call", v, calls.Load())
	}

	// The stale read entry was invalidated by the write.
	var reads atomic.Int32
	got, err := c.Fetch(ctx, "k", func(context.Context) (any, error) {
		reads.Add(1)
		return "fresh-after-write", nil
	})
	if err != nil {
		t.Fatalf("Fetch() after Mutate = %v", err)
	}
	if got != "fresh-after-write" || reads.Load() != 1 {
		t.Fatalf("Fetch() after Mutate = %v, want a real re-fetch", got)
	}
}

func TestCoordinator_MutationBudgetIsOne(t *testing.T) {
	c := newCoordinator(t, nil, nil)

	var calls atomic.Int32
	_, err := c.Mutate(context.Background(), "k", func(context.Context) (any, error) {
		calls.Add(1)
		return nil, errors.New("write failed")
	})
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("Mutate() = %v, want ErrRetriesExhausted", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("mutation attempted %d times, want 2 (initial + one retry)", got)
	}
}

func TestCoordinator_SweepEvictsIdleEntries(t *testing.T) {
	clock := newFakeClock()
	c := newCoordinator(t, nil, clock)

	ctx := context.Background()
	var calls atomic.Int32
	fn := func(context.Context) (any, error) {
		calls.Add(1)
		return "v", nil
	}
	if _, err := c.Fetch(ctx, "k", fn); err != nil {
		t.Fatalf("Fetch() = %v", err)
	}

	c.Sweep(clock.Now().Add(2 * time.Second))

	if _, err := c.Fetch(ctx, "k", fn); err != nil {
		t.Fatalf("Fetch() after sweep = %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("fetcher called %d times, want 2 (entry evicted)", got)
	}
}

func TestFetchAs_TypedResults(t *testing.T) {
	c := newCoordinator(t, nil, nil)

	n, err := FetchAs(context.Background(), c, "n", func(context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("FetchAs() = %v", err)
	}
	if n != 42 {
		t.Fatalf("FetchAs() = %d, want 42", n)
	}
}
