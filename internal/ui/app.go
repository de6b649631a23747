package ui

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/filebrain/console/internal/filebrain"
	"github.com/filebrain/console/internal/fileops"
	"github.com/filebrain/console/internal/prefs"
	"github.com/filebrain/console/internal/search"
	"github.com/filebrain/console/internal/state"
	"github.com/filebrain/console/internal/watchpaths"
	"github.com/filebrain/console/internal/wizard"
)

// View represents the active main view.
type View int

const (
	ViewSearch View = iota
	ViewStatus
	ViewWatch
	ViewSettings
)

var viewOrder = []View{ViewSearch, ViewStatus, ViewWatch, ViewSettings}

func (v View) String() string {
	switch v {
	case ViewSearch:
		return "Search"
	case ViewStatus:
		return "Status"
	case ViewWatch:
		return "Watch Paths"
	case ViewSettings:
		return "Settings"
	default:
		return ""
	}
}

// screen selects between the setup wizard and the main views. Exactly one
// is shown once the wizard status is known.
type screen int

const (
	screenConnecting screen = iota
	screenWizard
	screenMain
)

// Backend is the part of the File Brain API the views call directly.
type Backend interface {
	FetchWizardStatus(ctx context.Context) (filebrain.WizardStatus, error)
	ResetWizard(ctx context.Context) (filebrain.ActionResponse, error)
	StartCrawl(ctx context.Context) (filebrain.ActionResponse, error)
	StopCrawl(ctx context.Context) (filebrain.ActionResponse, error)
	StartMonitoring(ctx context.Context) (filebrain.ActionResponse, error)
	StopMonitoring(ctx context.Context) (filebrain.ActionResponse, error)
	ClearIndexes(ctx context.Context) (filebrain.ActionResponse, error)
	FetchRoots(ctx context.Context) ([]filebrain.FSRoot, error)
	ListDirectory(ctx context.Context, path string) (filebrain.FSListing, error)
}

var _ Backend = (*filebrain.Client)(nil)

// Searcher runs search engine queries.
type Searcher interface {
	Search(ctx context.Context, q search.Query) (search.Result, error)
}

// Wizard drives the setup wizard.
type Wizard interface {
	Start(status filebrain.WizardStatus) error
	Snapshot() wizard.State
	Changes() <-chan struct{}
	Run() error
	Retry() error
	Back() error
	Next() error
	ResetCollection() error
}

var _ Wizard = (*wizard.Machine)(nil)

// FileOps runs file operations on search hits.
type FileOps interface {
	Do(ctx context.Context, op fileops.Op, path string, hits []search.Hit) fileops.Outcome
}

// WatchPaths mutates the watch path list.
type WatchPaths interface {
	Add(ctx context.Context, path string, opts watchpaths.Options) (filebrain.WatchPath, error)
	AddBatch(ctx context.Context, paths []string, opts watchpaths.Options) (watchpaths.BatchReport, error)
	Toggle(ctx context.Context, wp filebrain.WatchPath) (filebrain.WatchPath, error)
	ToggleSubdirectories(ctx context.Context, wp filebrain.WatchPath) (filebrain.WatchPath, error)
	Delete(ctx context.Context, id int64) error
	Import(ctx context.Context, path string) (watchpaths.BatchReport, error)
}

var _ WatchPaths = (*watchpaths.Manager)(nil)

// Refresher re-reads every status slice on demand.
type Refresher interface {
	Refresh(ctx context.Context)
}

// Options configures the UI.
type Options struct {
	Context context.Context
	Backend Backend
	Store   *state.Store
	// Changes signals store updates. Run subscribes to Store when nil.
	Changes <-chan struct{}
	Wizard  Wizard
	Search  Searcher
	Files   FileOps
	Watch   WatchPaths
	Sync    Refresher
	Logger  *slog.Logger

	LogPath   string
	ThemeName string
	PrefsPath string
	PollTick  time.Duration
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	backend   Backend
	store     *state.Store
	changes   <-chan struct{}
	wizard    Wizard
	searcher  Searcher
	files     FileOps
	watch     WatchPaths
	sync      Refresher
	logger    *slog.Logger
	logPath   string
	prefsPath string
	pollTick  time.Duration
	now       func() time.Time

	// UI state
	keys        keyMap
	theme       Theme
	screen      screen
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool

	// Data state
	snapshot      state.Snapshot
	wizardState   wizard.State
	wizardErr     error
	statusPending bool

	spinner  spinner.Model
	search   searchState
	watchUI  watchState
	settings settingsState

	// Overlays
	picker  *folderPicker
	prompt  *promptModal
	confirm *confirmModal
	toast   *toast

	// inflight holds keys of actions awaiting a reply; repeats are ignored.
	inflight map[string]bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = prefs.DefaultTheme
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:         ctx,
		backend:     opts.Backend,
		store:       opts.Store,
		changes:     opts.Changes,
		wizard:      opts.Wizard,
		searcher:    opts.Search,
		files:       opts.Files,
		watch:       opts.Watch,
		sync:        opts.Sync,
		logger:      logger.With("component", "ui"),
		logPath:     opts.LogPath,
		prefsPath:   opts.PrefsPath,
		pollTick:    pollTick,
		now:         time.Now,
		keys:        DefaultKeyMap(),
		theme:       GetTheme(themeName),
		currentView: ViewSearch,
		spinner:     sp,
		search:      newSearchState(),
		settings:    newSettingsState(),
		inflight:    make(map[string]bool),
	}
	if m.backend == nil {
		// Without a backend there is no wizard status to wait for.
		m.screen = screenMain
	}
	// Init issues the first status request.
	m.statusPending = m.screen == screenConnecting
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(m.pollTick),
		m.spinner.Tick,
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.changes != nil {
		cmds = append(cmds, waitForSignal(m.ctx, m.changes, storeChangedMsg{}))
	}
	if m.wizard != nil {
		cmds = append(cmds, waitForSignal(m.ctx, m.wizard.Changes(), wizardChangedMsg{}))
	}
	if m.screen == screenConnecting {
		cmds = append(cmds, fetchWizardStatusCmd(m.ctx, m.backend))
	} else {
		cmds = append(cmds, m.issueSearch())
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
		m.resize()
		return m, nil

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case snapshotMsg:
		m.applySnapshot(state.Snapshot(msg))
		return m, nil

	case storeChangedMsg:
		if m.store != nil {
			m.applySnapshot(m.store.Snapshot())
		}
		return m, waitForSignal(m.ctx, m.changes, storeChangedMsg{})

	case wizardChangedMsg:
		if m.wizard == nil {
			return m, nil
		}
		cmd := m.handleWizardChange()
		return m, tea.Batch(cmd, waitForSignal(m.ctx, m.wizard.Changes(), wizardChangedMsg{}))

	case wizardStatusMsg:
		return m.handleWizardStatus(msg)

	case wizardErrMsg:
		m.showError(msg.err)
		return m, nil

	case searchResultMsg:
		m.handleSearchResult(msg)
		return m, nil

	case fileOpMsg:
		m.handleFileOp(fileops.Outcome(msg))
		return m, nil

	case actionMsg:
		return m.handleAction(msg)

	case watchMsg:
		m.handleWatchResult(msg)
		return m, nil

	case rootsMsg:
		m.handleRoots(msg)
		return m, nil

	case listingMsg:
		m.handleListing(msg)
		return m, nil

	case logMsg:
		m.handleLogLines(msg)
		return m, nil
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
	if m.confirm != nil {
		return m.confirm.View(m.theme, m.width, m.height)
	}
	if m.prompt != nil {
		return m.prompt.View(m.theme, m.width, m.height)
	}

	return m.renderMain()
}

// renderMain renders header, command bar, content and toast line.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	b.WriteString("\n")
	b.WriteString(m.renderToast())

	return b.String()
}

// renderContent renders the active screen or view.
func (m Model) renderContent() string {
	switch m.screen {
	case screenConnecting:
		return m.renderConnecting()
	case screenWizard:
		return m.renderWizard()
	}
	if m.picker != nil {
		return m.renderPicker()
	}
	switch m.currentView {
	case ViewSearch:
		return m.renderSearch()
	case ViewStatus:
		return m.renderStatus()
	case ViewWatch:
		return m.renderWatch()
	case ViewSettings:
		return m.renderSettings()
	default:
		return ""
	}
}

// contentHeight is the number of rows left for the active view.
func (m Model) contentHeight() int {
	// header, command bar, toast line
	return max(m.height-3, 1)
}

func (m *Model) resize() {
	m.settings.viewport.Width = max(m.width-4, 10)
	m.settings.viewport.Height = max(m.contentHeight()-SettingsMenuHeight-3, 3)
	m.search.input.Width = max(m.width-20, 10)
	m.refreshLogViewport()
}

func (m *Model) applySnapshot(snap state.Snapshot) {
	m.snapshot = snap
	m.watchUI.clamp(len(snap.WatchPaths))
}

// handleTick expires toasts, follows the log and retries the wizard status
// while the backend is unreachable.
func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}

	if m.toast != nil && !now.Before(m.toast.until) {
		m.toast = nil
	}
	if m.screen == screenConnecting && !m.statusPending && m.backend != nil {
		m.statusPending = true
		cmds = append(cmds, fetchWizardStatusCmd(m.ctx, m.backend))
	}
	if m.screen == screenMain && m.currentView == ViewSettings && m.settings.follow {
		cmds = append(cmds, m.readLogCmd(false))
	}
	return m, tea.Batch(cmds...)
}

// handleWizardStatus gates the UI on wizard_completed.
func (m Model) handleWizardStatus(msg wizardStatusMsg) (tea.Model, tea.Cmd) {
	m.statusPending = false
	if msg.err != nil {
		m.wizardErr = msg.err
		m.logger.Warn("wizard status unavailable", "error", msg.err)
		return m, nil
	}
	m.wizardErr = nil

	if msg.status.WizardCompleted || m.wizard == nil {
		wasMain := m.screen == screenMain
		m.screen = screenMain
		if wasMain {
			return m, nil
		}
		return m, m.issueSearch()
	}

	if err := m.wizard.Start(msg.status); err != nil {
		m.wizardErr = err
		return m, nil
	}
	m.screen = screenWizard
	m.wizardState = m.wizard.Snapshot()
	return m, nil
}

// handleWizardChange picks up the machine's latest state and leaves the
// wizard once it reports completion.
func (m *Model) handleWizardChange() tea.Cmd {
	if m.wizard == nil {
		return nil
	}
	m.wizardState = m.wizard.Snapshot()
	if m.screen != screenWizard || !m.wizardState.Completed {
		return nil
	}
	m.screen = screenMain
	m.currentView = ViewStatus
	m.showToast(fileops.ToastSuccess, "Setup complete")
	return tea.Batch(m.refreshStatusCmd(), m.issueSearch())
}

func (m *Model) showToast(kind fileops.ToastKind, text string) {
	m.toast = &toast{kind: kind, text: text, until: m.now().Add(ToastDuration)}
}

func (m *Model) showError(err error) {
	m.showToast(fileops.ToastError, errorText(err))
}

// errorText is the user-facing text for err: the backend's message when
// there is one, otherwise a short description.
func errorText(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, wizard.ErrBusy):
		return "Step is busy"
	case errors.Is(err, wizard.ErrNoAction):
		return "Nothing to run for this step"
	case errors.Is(err, wizard.ErrNotReady):
		return "Finish the earlier steps first"
	}
	return filebrain.ErrorMessage(err)
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type storeChangedMsg struct{}

type wizardChangedMsg struct{}

type wizardStatusMsg struct {
	status filebrain.WizardStatus
	err    error
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

// waitForSignal blocks until ch fires and then delivers msg. It returns nil
// once ch is closed or ctx is done, which ends the subscription.
func waitForSignal(ctx context.Context, ch <-chan struct{}, msg tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			return msg
		case <-ctx.Done():
			return nil
		}
	}
}

func fetchWizardStatusCmd(ctx context.Context, backend Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
		status, err := backend.FetchWizardStatus(ctx)
		return wizardStatusMsg{status: status, err: err}
	}
}

// Run starts the Bubble Tea program and blocks until it exits or the
// context is cancelled.
func Run(opts Options) error {
	if opts.Store != nil && opts.Changes == nil {
		ch, unsubscribe := opts.Store.Subscribe()
		defer unsubscribe()
		opts.Changes = ch
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
