package wizard

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/filebrain/console/internal/filebrain"
)

var (
	// ErrBusy is returned when a check or action is already in flight.
	ErrBusy = errors.New("wizard step is busy")
	// ErrNotReady is returned when Complete is called before every
	// preceding step has been satisfied in this session.
	ErrNotReady = errors.New("wizard is not ready to complete")
	// ErrTimeout marks a step whose poll loop ran out of time.
	ErrTimeout = errors.New("timed out")
	// ErrNoAction is returned when the current step has nothing to run.
	ErrNoAction = errors.New("step has no pending action")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("wizard closed")
)

// maxLogLines bounds the companion log buffer kept per step.
const maxLogLines = 200

// API is the backend surface the wizard drives.
type API interface {
	CheckDocker(ctx context.Context) (filebrain.DockerCheck, error)
	CheckImages(ctx context.Context) (filebrain.ImagesCheck, error)
	StartServices(ctx context.Context) (filebrain.ActionResponse, error)
	FetchDockerStatus(ctx context.Context) (filebrain.DockerStatus, error)
	FetchModelStatus(ctx context.Context) (filebrain.ModelStatus, error)
	CreateCollection(ctx context.Context) (filebrain.ActionResponse, error)
	FetchCollectionStatus(ctx context.Context) (filebrain.CollectionStatus, error)
	RestartSearchEngine(ctx context.Context) (filebrain.ActionResponse, error)
	CompleteWizard(ctx context.Context) (filebrain.ActionResponse, error)
	OpenStream(ctx context.Context, path string) (*filebrain.Stream, error)
}

var _ API = (*filebrain.Client)(nil)

// State is an immutable view of the machine.
type State struct {
	Step        Step
	Phase       Phase
	Message     string
	Err         error
	Progress    float64 // percent; meaningful when HasProgress
	HasProgress bool
	Logs        []string
	// Satisfied records which steps reported success in this session.
	Satisfied [StepCount]bool
	Completed bool
	// Generation identifies the transition that produced this state.
	Generation uint64
}

// Busy reports whether a check or action is in flight.
func (s State) Busy() bool {
	return s.Phase == PhaseChecking || s.Phase == PhaseRunning
}

// CanRun reports whether Run would start the step's action.
func (s State) CanRun() bool {
	return s.Phase == PhaseNeedsAction || s.Phase == PhaseFailed
}

// PriorStepsSatisfied reports whether every step before Complete succeeded.
func (s State) PriorStepsSatisfied() bool {
	for i := range int(StepComplete) {
		if !s.Satisfied[i] {
			return false
		}
	}
	return true
}

// Options configure a Machine.
type Options struct {
	Timings Timings
	Logger  *slog.Logger
}

// Machine is the setup wizard state machine. Every transition cancels the
// work of the previous one; results from a cancelled transition are dropped.
type Machine struct {
	api     API
	timings Timings
	logger  *slog.Logger

	root       context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup
	changes    chan struct{}

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
	closed bool
}

// New builds a Machine. Call Start to enter the first step.
func New(api API, opts Options) *Machine {
	root, cancel := context.WithCancel(context.Background())
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		api:        api,
		timings:    opts.Timings.withDefaults(),
		logger:     logger.With("component", "wizard"),
		root:       root,
		rootCancel: cancel,
		changes:    make(chan struct{}, 1),
		state:      State{Phase: PhaseChecking},
	}
}

// Changes delivers a coalesced signal after every state change.
func (m *Machine) Changes() <-chan struct{} {
	return m.changes
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.state
	snap.Logs = slices.Clone(m.state.Logs)
	return snap
}

// Start begins a session from the backend's persisted progress. The session
// resumes at current_step; a completed wizard goes straight to Done.
func (m *Machine) Start(status filebrain.WizardStatus) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.state = State{}
	if status.WizardCompleted {
		m.beginLocked(StepComplete, PhaseDone)
		m.state.Completed = true
		m.mu.Unlock()
		m.notify()
		return nil
	}
	step := clampStep(status.CurrentStep)
	gen, ctx := m.beginLocked(step, PhaseChecking)
	m.spawnLocked(func() { m.runCheck(ctx, gen, step) })
	m.mu.Unlock()
	m.notify()
	return nil
}

// Enter moves to step and runs its read-only check.
func (m *Machine) Enter(step Step) error {
	if !step.Valid() {
		return errors.New("invalid step")
	}
	m.mu.Lock()
	if err := m.guardLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	gen, ctx := m.beginLocked(step, PhaseChecking)
	m.spawnLocked(func() { m.runCheck(ctx, gen, step) })
	m.mu.Unlock()
	m.notify()
	return nil
}

// Retry re-runs the current step's check. It never repeats the action.
func (m *Machine) Retry() error {
	m.mu.Lock()
	if err := m.guardLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.state.Phase == PhaseRunning {
		m.mu.Unlock()
		return ErrBusy
	}
	step := m.state.Step
	m.mu.Unlock()
	return m.Enter(step)
}

// Back returns to the previous step and re-runs its check.
func (m *Machine) Back() error {
	m.mu.Lock()
	step := m.state.Step
	m.mu.Unlock()
	if step == StepDockerCheck {
		return nil
	}
	return m.Enter(step - 1)
}

// Next skips the remaining auto-advance delay of a satisfied step.
func (m *Machine) Next() error {
	m.mu.Lock()
	if err := m.guardLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.state.Phase != PhaseSatisfied || m.state.Step == StepComplete {
		m.mu.Unlock()
		return ErrNoAction
	}
	step := m.state.Step
	m.mu.Unlock()
	return m.Enter(step + 1)
}

// Run starts the provisioning action of the current step. On the Complete
// step it completes the wizard.
func (m *Machine) Run() error {
	m.mu.Lock()
	if err := m.guardLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	st := m.state
	if st.Busy() {
		m.mu.Unlock()
		return ErrBusy
	}
	if !st.CanRun() {
		m.mu.Unlock()
		return ErrNoAction
	}
	switch st.Step {
	case StepComplete:
		m.mu.Unlock()
		return m.Complete()
	case StepDockerCheck:
		// The runtime must be installed by the user; running re-checks it.
		m.mu.Unlock()
		return m.Enter(StepDockerCheck)
	}
	gen, ctx := m.beginLocked(st.Step, PhaseRunning)
	step := st.Step
	m.spawnLocked(func() { m.runAction(ctx, gen, step) })
	m.mu.Unlock()
	m.notify()
	return nil
}

// ResetCollection restarts the search engine and re-creates the collection.
// It is only available on the collection step.
func (m *Machine) ResetCollection() error {
	m.mu.Lock()
	if err := m.guardLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.state.Step != StepCreateCollection {
		m.mu.Unlock()
		return ErrNoAction
	}
	if m.state.Busy() {
		m.mu.Unlock()
		return ErrBusy
	}
	gen, ctx := m.beginLocked(StepCreateCollection, PhaseRunning)
	m.spawnLocked(func() { m.runResetCollection(ctx, gen) })
	m.mu.Unlock()
	m.notify()
	return nil
}

// Complete persists wizard completion. Every preceding step must have been
// satisfied in this session.
func (m *Machine) Complete() error {
	m.mu.Lock()
	if err := m.guardLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.state.Step != StepComplete || !m.state.PriorStepsSatisfied() {
		m.mu.Unlock()
		return ErrNotReady
	}
	if m.state.Busy() {
		m.mu.Unlock()
		return ErrBusy
	}
	gen, ctx := m.beginLocked(StepComplete, PhaseRunning)
	m.spawnLocked(func() { m.runComplete(ctx, gen) })
	m.mu.Unlock()
	m.notify()
	return nil
}

// Close cancels all pending timers, polls and streams and waits for them.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.gen++
	m.mu.Unlock()

	m.rootCancel()
	m.wg.Wait()
}

func (m *Machine) guardLocked() error {
	if m.closed {
		return ErrClosed
	}
	if m.state.Phase == PhaseDone {
		return ErrNoAction
	}
	return nil
}

// beginLocked starts a new transition: the previous token is cancelled and
// a fresh context and generation are issued.
func (m *Machine) beginLocked(step Step, phase Phase) (uint64, context.Context) {
	if m.cancel != nil {
		m.cancel()
	}
	m.gen++
	ctx, cancel := context.WithCancel(m.root)
	m.cancel = cancel

	if step != m.state.Step {
		m.state.Logs = nil
	}
	m.state.Step = step
	m.state.Phase = phase
	m.state.Message = ""
	m.state.Err = nil
	m.state.Progress = 0
	m.state.HasProgress = false
	m.state.Generation = m.gen
	return m.gen, ctx
}

func (m *Machine) spawnLocked(fn func()) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn()
	}()
}

// update applies fn when gen is still the current transition.
func (m *Machine) update(gen uint64, fn func(*State)) bool {
	m.mu.Lock()
	if gen != m.gen || m.closed {
		m.mu.Unlock()
		return false
	}
	fn(&m.state)
	m.mu.Unlock()
	m.notify()
	return true
}

func (m *Machine) notify() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

func (m *Machine) appendLog(gen uint64, line string) {
	if line == "" {
		return
	}
	m.update(gen, func(s *State) {
		s.Logs = append(s.Logs, line)
		if over := len(s.Logs) - maxLogLines; over > 0 {
			s.Logs = slices.Delete(s.Logs, 0, over)
		}
	})
}
