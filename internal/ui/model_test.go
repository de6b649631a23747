package ui

import (
	"context"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filebrain/console/internal/filebrain"
	"github.com/filebrain/console/internal/fileops"
	"github.com/filebrain/console/internal/search"
	"github.com/filebrain/console/internal/state"
	"github.com/filebrain/console/internal/wizard"
)

type fakeBackend struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeBackend) record(name string) (filebrain.ActionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return filebrain.ActionResponse{}, nil
}

func (f *fakeBackend) FetchWizardStatus(context.Context) (filebrain.WizardStatus, error) {
	return filebrain.WizardStatus{WizardCompleted: true}, nil
}
func (f *fakeBackend) ResetWizard(context.Context) (filebrain.ActionResponse, error) {
	return f.record("reset-wizard")
}
func (f *fakeBackend) StartCrawl(context.Context) (filebrain.ActionResponse, error) {
	return f.record("start-crawl")
}
func (f *fakeBackend) StopCrawl(context.Context) (filebrain.ActionResponse, error) {
	return f.record("stop-crawl")
}
func (f *fakeBackend) StartMonitoring(context.Context) (filebrain.ActionResponse, error) {
	return f.record("start-monitoring")
}
func (f *fakeBackend) StopMonitoring(context.Context) (filebrain.ActionResponse, error) {
	return f.record("stop-monitoring")
}
func (f *fakeBackend) ClearIndexes(context.Context) (filebrain.ActionResponse, error) {
	return f.record("clear-indexes")
}
func (f *fakeBackend) FetchRoots(context.Context) ([]filebrain.FSRoot, error) {
	return nil, nil
}
func (f *fakeBackend) ListDirectory(context.Context, string) (filebrain.FSListing, error) {
	return filebrain.FSListing{}, nil
}

type fakeWizard struct {
	started []filebrain.WizardStatus
	state   wizard.State
	changes chan struct{}
}

func newFakeWizard() *fakeWizard {
	return &fakeWizard{changes: make(chan struct{}, 1)}
}

func (f *fakeWizard) Start(status filebrain.WizardStatus) error {
	f.started = append(f.started, status)
	f.state = wizard.State{Step: wizard.Step(status.CurrentStep), Phase: wizard.PhaseChecking}
	return nil
}
func (f *fakeWizard) Snapshot() wizard.State { return f.state }
func (f *fakeWizard) Changes() <-chan struct{} { return f.changes }
func (f *fakeWizard) Run() error { return nil }
func (f *fakeWizard) Retry() error { return nil }
func (f *fakeWizard) Back() error { return nil }
func (f *fakeWizard) Next() error { return wizard.ErrNoAction }
func (f *fakeWizard) ResetCollection() error { return nil }

type fakeFiles struct {
	calls []string
}

func (f *fakeFiles) Do(_ context.Context, op fileops.Op, path string, hits []search.Hit) fileops.Outcome {
	f.calls = append(f.calls, op.String()+" "+path)
	return fileops.Outcome{
		Op:    op,
		Path:  path,
		Hits:  search.RemovePath(hits, path),
		Toast: fileops.Toast{Kind: fileops.ToastSuccess, Text: "Deleted " + path},
	}
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok, "Update returned %T", next)
	return out, cmd
}

func mainModel(t *testing.T, opts Options) Model {
	t.Helper()
	m := New(opts)
	m.screen = screenMain
	m.statusPending = false
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 140, Height: 40})
	return m
}

func TestWizardStatusGatesScreens(t *testing.T) {
	t.Run("completed shows main views", func(t *testing.T) {
		w := newFakeWizard()
		m := New(Options{Backend: &fakeBackend{}, Wizard: w})
		require.Equal(t, screenConnecting, m.screen)

		m, _ = update(t, m, wizardStatusMsg{status: filebrain.WizardStatus{WizardCompleted: true}})
		assert.Equal(t, screenMain, m.screen)
		assert.Empty(t, w.started)
	})

	t.Run("incomplete resumes wizard at current step", func(t *testing.T) {
		w := newFakeWizard()
		m := New(Options{Backend: &fakeBackend{}, Wizard: w})

		m, _ = update(t, m, wizardStatusMsg{status: filebrain.WizardStatus{CurrentStep: 2}})
		assert.Equal(t, screenWizard, m.screen)
		require.Len(t, w.started, 1)
		assert.Equal(t, 2, w.started[0].CurrentStep)
		assert.Equal(t, wizard.StepStartServices, m.wizardState.Step)
	})

	t.Run("error keeps connecting", func(t *testing.T) {
		m := New(Options{Backend: &fakeBackend{}, Wizard: newFakeWizard()})
		m, _ = update(t, m, wizardStatusMsg{err: assert.AnError})
		assert.Equal(t, screenConnecting, m.screen)
		assert.False(t, m.statusPending)
		assert.Error(t, m.wizardErr)
	})
}

func TestWizardCompletionSwitchesToStatus(t *testing.T) {
	w := newFakeWizard()
	m := New(Options{Backend: &fakeBackend{}, Wizard: w})
	m, _ = update(t, m, wizardStatusMsg{status: filebrain.WizardStatus{CurrentStep: 5}})
	require.Equal(t, screenWizard, m.screen)

	w.state = wizard.State{Step: wizard.StepComplete, Phase: wizard.PhaseDone, Completed: true}
	m, _ = update(t, m, wizardChangedMsg{})

	assert.Equal(t, screenMain, m.screen)
	assert.Equal(t, ViewStatus, m.currentView)
	require.NotNil(t, m.toast)
	assert.Equal(t, "Setup complete", m.toast.text)
}

func TestHeaderShowsCrawlProgress(t *testing.T) {
	store := &state.Store{}
	job := "full"
	store.Apply(state.Update{Status: &filebrain.CrawlStatus{
		Running:         true,
		JobType:         &job,
		FilesDiscovered: 100,
		FilesIndexed:    10,
	}})

	m := mainModel(t, Options{Store: store})
	m, _ = update(t, m, snapshotMsg(store.Snapshot()))

	header := m.renderHeader()
	assert.Contains(t, header, "● ON")
	assert.Contains(t, header, "10/100")
	assert.Contains(t, header, "POLLING")

	status := m.renderCrawlSection(m.theme.Styles(), 60)
	assert.Contains(t, status, "10/100")
	assert.Contains(t, status, "Running")
}

func TestHeaderShowsConnectionError(t *testing.T) {
	store := &state.Store{}
	store.RecordError(state.SourceStatus, assert.AnError)

	m := mainModel(t, Options{Store: store})
	m, _ = update(t, m, snapshotMsg(store.Snapshot()))
	assert.Contains(t, m.renderHeader(), "Retrying")
}

func TestStaleSearchResultsAreDropped(t *testing.T) {
	m := mainModel(t, Options{})
	first := m.search.tracker.Next()
	second := m.search.tracker.Next()

	m, _ = update(t, m, searchResultMsg{seq: first, result: search.Result{
		Found: 1, Hits: []search.Hit{{FilePath: "/old.txt"}},
	}})
	assert.Empty(t, m.search.hits)

	m, _ = update(t, m, searchResultMsg{seq: second, result: search.Result{
		Found: 1, Hits: []search.Hit{{FilePath: "/new.txt"}},
	}})
	require.Len(t, m.search.hits, 1)
	assert.Equal(t, "/new.txt", m.search.hits[0].FilePath)
}

func TestFilteredResultKeepsFacetList(t *testing.T) {
	m := mainModel(t, Options{})
	all := []search.FacetCount{{Value: "pdf", Count: 3}, {Value: "txt", Count: 2}}

	seq := m.search.tracker.Next()
	m, _ = update(t, m, searchResultMsg{seq: seq, result: search.Result{Facets: all}})
	require.Len(t, m.search.facets, 2)

	seq = m.search.tracker.Next()
	m, _ = update(t, m, searchResultMsg{
		seq:    seq,
		query:  search.Query{Extensions: []string{"pdf"}},
		result: search.Result{Facets: all[:1]},
	})
	assert.Len(t, m.search.facets, 2)
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	files := &fakeFiles{}
	m := mainModel(t, Options{Files: files})
	m.search.input.Blur()
	m.search.hits = []search.Hit{{FilePath: "/a.txt"}, {FilePath: "/b.txt"}}
	m.search.result.Found = 2

	m, cmd := update(t, m, keyPress("D"))
	require.NotNil(t, m.confirm)
	assert.Nil(t, cmd)
	assert.Empty(t, files.calls)

	m, cmd = update(t, m, keyPress("y"))
	assert.Nil(t, m.confirm)
	require.NotNil(t, cmd)
	assert.True(t, m.inflight[fileOpKey(fileops.OpDelete, "/a.txt")])

	m, _ = update(t, m, cmd())
	assert.Equal(t, []string{"delete /a.txt"}, files.calls)
	require.Len(t, m.search.hits, 1)
	assert.Equal(t, "/b.txt", m.search.hits[0].FilePath)
	assert.Equal(t, 1, m.search.result.Found)
	assert.Empty(t, m.inflight)
	require.NotNil(t, m.toast)
	assert.Equal(t, fileops.ToastSuccess, m.toast.kind)
}

func TestCancelledConfirmRunsNothing(t *testing.T) {
	files := &fakeFiles{}
	m := mainModel(t, Options{Files: files})
	m.search.input.Blur()
	m.search.hits = []search.Hit{{FilePath: "/a.txt"}}

	m, _ = update(t, m, keyPress("x"))
	require.NotNil(t, m.confirm)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, m.confirm)
	assert.Nil(t, cmd)
	assert.Empty(t, m.inflight)
	assert.Len(t, m.search.hits, 1)
}

func TestRepeatedCrawlToggleIsIgnoredWhileInFlight(t *testing.T) {
	backend := &fakeBackend{}
	m := mainModel(t, Options{Backend: backend})
	m.currentView = ViewStatus

	m, cmd := update(t, m, keyPress("c"))
	require.NotNil(t, cmd)
	m, again := update(t, m, keyPress("c"))
	assert.Nil(t, again)

	m, _ = update(t, m, cmd())
	assert.Equal(t, []string{"start-crawl"}, backend.calls)
	assert.False(t, m.inflight[keyCrawl])
	require.NotNil(t, m.toast)
	assert.Equal(t, "Crawl started", m.toast.text)
}

func TestCrawlToggleRespectsCapability(t *testing.T) {
	backend := &fakeBackend{}
	m := mainModel(t, Options{Backend: backend})
	m.currentView = ViewStatus
	m.snapshot.HasInitialization = true
	m.snapshot.Initialization.Capabilities = map[string]bool{filebrain.CapabilityCrawlAPI: false}

	m, cmd := update(t, m, keyPress("c"))
	assert.Nil(t, cmd)
	require.NotNil(t, m.toast)
	assert.Equal(t, fileops.ToastError, m.toast.kind)
}

func TestCycleThemeKey(t *testing.T) {
	m := mainModel(t, Options{ThemeName: "Nightfox"})
	m.search.input.Blur()

	m, _ = update(t, m, keyPress("T"))
	assert.Equal(t, "Kanagawa", m.theme.Name)
	assert.Contains(t, m.renderCommandBar(), "Kanagawa")
}

func TestViewSwitchingWithNumberKeys(t *testing.T) {
	m := mainModel(t, Options{})
	m.search.input.Blur()

	m, _ = update(t, m, keyPress("3"))
	assert.Equal(t, ViewWatch, m.currentView)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, ViewSettings, m.currentView)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, ViewSearch, m.currentView)
	assert.True(t, m.search.input.Focused())
}

func TestLogLinesRespectBufferLimit(t *testing.T) {
	m := mainModel(t, Options{})
	lines := make([]string, LogBufferLimit+10)
	for i := range lines {
		lines[i] = "level=INFO msg=line"
	}
	m, _ = update(t, m, logMsg{lines: lines, offset: 42, reset: true})
	assert.Len(t, m.settings.lines, LogBufferLimit)
	assert.EqualValues(t, 42, m.settings.offset)
	assert.True(t, m.settings.loaded)
}
