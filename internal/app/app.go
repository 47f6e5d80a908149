package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kfallows/holdfast/internal/agent"
	"github.com/kfallows/holdfast/internal/api"
	"github.com/kfallows/holdfast/internal/cache"
	"github.com/kfallows/holdfast/internal/config"
	"github.com/kfallows/holdfast/internal/netmon"
	"github.com/kfallows/holdfast/internal/prefs"
	"github.com/kfallows/holdfast/internal/state"
	"github.com/kfallows/holdfast/internal/ui"
)

// Options configure the Holdfast application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/holdfast/prefs.toml
	PollEvery  int    // seconds; zero uses the config value or default
}

// errReload signals that the client should tear down and start over, picking
// up the newly activated agent version.
var errReload = errors.New("client reload requested")

// Run boots the Holdfast TUI until the context is cancelled. Activating a
// waiting agent update restarts the whole client in-process: every component
// is rebuilt so no state from the previous agent generation survives.
func Run(ctx context.Context, opts Options) error {
	for {
		err := runOnce(ctx, opts)
		if errors.Is(err, errReload) {
			continue
		}
		return err
	}
}

func runOnce(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		return fmt.Errorf("load prefs: %w", err)
	}

	client, err := api.NewClient(cfg.APIBind)
	if err != nil {
		return fmt.Errorf("init workboard client: %w", err)
	}

	// Cancelling with errReload ends this iteration and every in-flight
	// fetch hanging off it.
	iterCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	monitor := netmon.New(netmon.NewInterfaceSource(iterCtx, 0))
	defer monitor.Close()

	queries := cache.QueryPolicy()
	if cfg.StaleTime > 0 {
		queries.StaleTime = cfg.StaleTime
	}
	if cfg.RetentionTime > 0 {
		queries.RetentionTime = cfg.RetentionTime
	}
	coord, err := cache.New(monitor, cache.Options{Queries: queries})
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}

	mgr := agent.NewManager(agent.NewSocketRuntime(cfg.AgentSocket), func() {
		cancel(errReload)
	})
	mgr.Register(iterCtx)

	store := &state.Store{}

	interval := cfg.PollEvery
	if opts.PollEvery > 0 {
		interval = time.Duration(opts.PollEvery) * time.Second
	}

	// Start background poller. The first refresh runs inside its goroutine:
	// on an offline start it parks there until reconnect, and the UI comes
	// up immediately with the Offline banner instead of hanging.
	StartPoller(iterCtx, store, coord, client, interval)

	uiErr := ui.Run(ui.Options{
		Context:   iterCtx,
		Client:    client,
		Store:     store,
		Cache:     coord,
		Monitor:   monitor,
		Agent:     mgr,
		PollTick:  interval,
		ThemeName: userPrefs.Theme,
		PrefsPath: opts.PrefsPath,
	})

	if cause := context.Cause(iterCtx); errors.Is(cause, errReload) {
		return errReload
	}
	return uiErr
}
