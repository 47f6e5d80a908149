package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kfallows/holdfast/internal/agent"
	"github.com/kfallows/holdfast/internal/api"
	"github.com/kfallows/holdfast/internal/banner"
	"github.com/kfallows/holdfast/internal/cache"
	"github.com/kfallows/holdfast/internal/netmon"
	"github.com/kfallows/holdfast/internal/prefs"
	"github.com/kfallows/holdfast/internal/state"
)

// Options configures the UI.
type Options struct {
	Context   context.Context
	Client    *api.Client
	Store     *state.Store
	Cache     *cache.Coordinator
	Monitor   *netmon.Monitor
	Agent     *agent.Manager
	PollTick  time.Duration
	ThemeName string
	PrefsPath string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	client    *api.Client
	store     *state.Store
	cache     *cache.Coordinator
	monitor   *netmon.Monitor
	agentMgr  *agent.Manager
	prefsPath string
	pollTick  time.Duration

	// UI state
	theme    Theme
	width    int
	height   int
	ready    bool
	showHelp bool

	// Data state
	snapshot    state.Snapshot
	lastUpdated time.Time

	// Board state
	selectedRow int

	// Banner state
	machine *banner.Machine
	banner  banner.Selection

	// Spinner shown while the first snapshot is pending.
	spin spinner.Model

	// Last action outcome shown in the footer.
	note    string
	noteErr bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = time.Second
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Dracula"
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	theme := GetTheme(themeName)
	spin := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Accent))),
	)

	return Model{
		ctx:       ctx,
		client:    opts.Client,
		store:     opts.Store,
		cache:     opts.Cache,
		monitor:   opts.Monitor,
		agentMgr:  opts.Agent,
		prefsPath: prefsPath,
		pollTick:  pollTick,
		theme:     theme,
		machine:   banner.NewMachine(),
		spin:      spin,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(m.pollTick),
		waitForDoneCmd(m.ctx),
		m.spin.Tick,
	}
	// Fetch snapshot immediately on start
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = time.Now()
		m.clampSelection()
		return m, nil

	case bannerExpiredMsg:
		// Re-evaluate so the reconnected notice retires on schedule even when
		// no poll tick lands near the deadline.
		return m, m.observeBanner(time.Now())

	case actionMsg:
		if msg.err != nil {
			m.note = msg.err.Error()
			m.noteErr = true
		} else {
			m.note = msg.note
			m.noteErr = false
		}
		return m, m.observeBanner(time.Now())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case doneMsg:
		return m, tea.Quit
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	if bar := m.renderBanner(); bar != "" {
		b.WriteString(bar)
		b.WriteString("\n")
	}
	b.WriteString(m.renderBoard())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key closes help
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "e":
		return m, tea.Quit

	case "h", "?":
		m.showHelp = true
		return m, nil

	case "T":
		// Cycle theme
		m.theme = GetTheme(NextTheme(m.theme.Name))
		if m.prefsPath != "" {
			_ = prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name})
		}
		return m, nil

	case "u":
		if m.agentMgr == nil {
			return m, nil
		}
		return m, activateUpdateCmd(m.ctx, m.agentMgr)

	case "x":
		if m.banner.Kind == banner.UpdateAvailable {
			m.machine.Dismiss(m.agentState())
			return m, m.observeBanner(time.Now())
		}
		return m, nil

	case "P":
		if m.agentMgr == nil {
			return m, nil
		}
		return m, purgeCacheCmd(m.ctx, m.agentMgr)

	case "d":
		item := m.selectedItem()
		if item == nil || m.cache == nil || m.client == nil {
			return m, nil
		}
		return m, markDoneCmd(m.ctx, m.cache, m.client, item.ID)

	case "j", "down":
		if m.selectedRow < len(m.snapshot.Items)-1 {
			m.selectedRow++
		}
	case "k", "up":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "g", "home":
		m.selectedRow = 0
	case "G", "end":
		if n := len(m.snapshot.Items); n > 0 {
			m.selectedRow = n - 1
		}
	}

	return m, nil
}

// handleTick processes the polling tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// Fetch latest snapshot
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}

	if cmd := m.observeBanner(time.Now()); cmd != nil {
		cmds = append(cmds, cmd)
	}

	// Schedule next tick
	cmds = append(cmds, tickCmd(m.pollTick))

	return m, tea.Batch(cmds...)
}

// observeBanner folds the latest connectivity and agent state into the banner
// machine. For a transient selection it schedules the wakeup that retires it.
func (m *Model) observeBanner(now time.Time) tea.Cmd {
	prev := m.banner
	m.banner = m.machine.Observe(m.connState(), m.agentState(), now)
	if m.banner.Kind == banner.Reconnected && m.banner.ExpiresAt != prev.ExpiresAt {
		return expireBannerCmd(m.banner.ExpiresAt.Sub(now))
	}
	return nil
}

func (m Model) connState() netmon.State {
	if m.monitor == nil {
		return netmon.State{Online: true}
	}
	return m.monitor.Current()
}

func (m Model) agentState() agent.State {
	if m.agentMgr == nil {
		return agent.State{}
	}
	return m.agentMgr.State()
}

func (m Model) selectedItem() *api.Item {
	if m.selectedRow < 0 || m.selectedRow >= len(m.snapshot.Items) {
		return nil
	}
	return &m.snapshot.Items[m.selectedRow]
}

func (m *Model) clampSelection() {
	if n := len(m.snapshot.Items); m.selectedRow >= n {
		m.selectedRow = n - 1
	}
	if m.selectedRow < 0 {
		m.selectedRow = 0
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type bannerExpiredMsg struct{}

type doneMsg struct{}

type actionMsg struct {
	note string
	err  error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func expireBannerCmd(in time.Duration) tea.Cmd {
	if in <= 0 {
		in = time.Millisecond
	}
	return tea.Tick(in, func(time.Time) tea.Msg {
		return bannerExpiredMsg{}
	})
}

func waitForDoneCmd(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		<-ctx.Done()
		return doneMsg{}
	}
}

func activateUpdateCmd(ctx context.Context, mgr *agent.Manager) tea.Cmd {
	return func() tea.Msg {
		if err := mgr.ActivateWaiting(ctx); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{note: "update activated, reloading"}
	}
}

func purgeCacheCmd(ctx context.Context, mgr *agent.Manager) tea.Cmd {
	return func() tea.Msg {
		if err := mgr.PurgeCache(ctx); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{note: "agent cache purged"}
	}
}

func markDoneCmd(ctx context.Context, c *cache.Coordinator, client *api.Client, id int64) tea.Cmd {
	return func() tea.Msg {
		_, err := c.Mutate(ctx, "items", func(ctx context.Context) (any, error) {
			return nil, client.MarkItemDone(ctx, id)
		})
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{note: fmt.Sprintf("item #%d marked done", id)}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
