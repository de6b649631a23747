package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/filebrain/console/internal/filebrain"
)

// checkResult is the outcome of a read-only satisfied-check.
type checkResult struct {
	satisfied bool
	message   string
}

// check runs the read-only probe for step. It never provisions anything.
func (m *Machine) check(ctx context.Context, step Step) (checkResult, error) {
	switch step {
	case StepDockerCheck:
		res, err := m.api.CheckDocker(ctx)
		if err != nil {
			return checkResult{}, err
		}
		if !res.Available {
			return checkResult{message: firstNonEmpty(res.Error, res.Message, "Docker is not installed or not running")}, nil
		}
		msg := "Docker is available"
		if res.Version != "" {
			msg = fmt.Sprintf("Docker %s is available", res.Version)
		}
		return checkResult{satisfied: true, message: msg}, nil

	case StepPullImages:
		res, err := m.api.CheckImages(ctx)
		if err != nil {
			return checkResult{}, err
		}
		if !res.Available {
			msg := res.Message
			if msg == "" && len(res.Missing) > 0 {
				msg = "Missing images: " + strings.Join(res.Missing, ", ")
			}
			return checkResult{message: firstNonEmpty(msg, "Service images need to be pulled")}, nil
		}
		return checkResult{satisfied: true, message: firstNonEmpty(res.Message, "All images are present")}, nil

	case StepStartServices:
		res, err := m.api.FetchDockerStatus(ctx)
		if err != nil {
			return checkResult{}, err
		}
		if !res.Ready() {
			return checkResult{message: firstNonEmpty(res.Message, "Services are not running")}, nil
		}
		return checkResult{satisfied: true, message: firstNonEmpty(res.Message, "All services are healthy")}, nil

	case StepDownloadModel:
		res, err := m.api.FetchModelStatus(ctx)
		if err != nil {
			// Backends without the probe endpoint cannot report the model.
			if filebrain.IsStatus(err, http.StatusNotFound) {
				return checkResult{message: "Embedding model needs to be downloaded"}, nil
			}
			return checkResult{}, err
		}
		if !res.Downloaded {
			return checkResult{message: firstNonEmpty(res.Message, "Embedding model needs to be downloaded")}, nil
		}
		return checkResult{satisfied: true, message: firstNonEmpty(res.Message, "Embedding model is present")}, nil

	case StepCreateCollection:
		res, err := m.api.FetchCollectionStatus(ctx)
		if err != nil {
			return checkResult{}, err
		}
		if res.Error != "" {
			return checkResult{}, errors.New(res.Error)
		}
		if !res.Exists || !res.Ready {
			return checkResult{message: firstNonEmpty(res.Message, "Search collection needs to be created")}, nil
		}
		return checkResult{satisfied: true, message: fmt.Sprintf("Collection ready (%d documents)", res.DocumentCount)}, nil
	}
	return checkResult{}, fmt.Errorf("no check for step %s", step)
}

// runCheck performs a step's check and settles the phase. Satisfied steps
// schedule their auto-advance under the same token.
func (m *Machine) runCheck(ctx context.Context, gen uint64, step Step) {
	if step == StepComplete {
		m.runReadiness(ctx, gen)
		return
	}
	res, err := m.check(ctx, step)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		m.fail(gen, err)
		return
	}
	if !res.satisfied {
		m.update(gen, func(s *State) {
			s.Phase = PhaseNeedsAction
			s.Message = res.message
		})
		return
	}
	m.succeed(ctx, gen, step, res.message)
}

// runReadiness is the Complete step's check: every earlier step not yet
// satisfied in this session is probed now.
func (m *Machine) runReadiness(ctx context.Context, gen uint64) {
	snap := m.Snapshot()
	for _, step := range Steps()[:StepComplete] {
		if snap.Satisfied[step] {
			continue
		}
		res, err := m.check(ctx, step)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			m.fail(gen, fmt.Errorf("%s: %w", step, err))
			return
		}
		if !res.satisfied {
			m.update(gen, func(s *State) {
				s.Phase = PhaseFailed
				s.Err = fmt.Errorf("%s: %w", step, ErrNotReady)
				s.Message = res.message
			})
			return
		}
		m.update(gen, func(s *State) { s.Satisfied[step] = true })
	}
	m.update(gen, func(s *State) {
		s.Phase = PhaseNeedsAction
		s.Message = "Setup is ready to finish"
	})
}

func (m *Machine) succeed(ctx context.Context, gen uint64, step Step, message string) {
	ok := m.update(gen, func(s *State) {
		s.Phase = PhaseSatisfied
		s.Message = message
		s.Satisfied[step] = true
		if s.HasProgress {
			s.Progress = 100
		}
	})
	if !ok {
		return
	}
	if !sleepCtx(ctx, m.timings.advanceDelay(step)) {
		return
	}
	m.advance(gen, step)
}

// advance enters the step after from, provided no other transition happened
// while the delay ran.
func (m *Machine) advance(gen uint64, from Step) {
	m.mu.Lock()
	if gen != m.gen || m.closed || from == StepComplete {
		m.mu.Unlock()
		return
	}
	next := from + 1
	ngen, ctx := m.beginLocked(next, PhaseChecking)
	m.spawnLocked(func() { m.runCheck(ctx, ngen, next) })
	m.mu.Unlock()
	m.notify()
}

func (m *Machine) fail(gen uint64, err error) {
	m.logger.Warn("wizard step failed", "error", err)
	m.update(gen, func(s *State) {
		s.Phase = PhaseFailed
		s.Err = err
		s.Message = filebrain.ErrorMessage(err)
	})
}

// runAction performs the provisioning action of step.
func (m *Machine) runAction(ctx context.Context, gen uint64, step Step) {
	var err error
	switch step {
	case StepPullImages:
		err = m.followProgress(ctx, gen, filebrain.StreamDockerPull)
	case StepDownloadModel:
		err = m.followProgress(ctx, gen, filebrain.StreamModelDownload)
	case StepStartServices:
		err = m.startServices(ctx, gen)
	case StepCreateCollection:
		err = m.createCollection(ctx, gen)
	default:
		err = fmt.Errorf("no action for step %s", step)
	}
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		m.fail(gen, err)
		return
	}
	m.succeed(ctx, gen, step, step.String()+" finished")
}

func (m *Machine) runResetCollection(ctx context.Context, gen uint64) {
	m.update(gen, func(s *State) { s.Message = "Restarting search engine" })
	if _, err := m.api.RestartSearchEngine(ctx); err != nil {
		if ctx.Err() == nil {
			m.fail(gen, fmt.Errorf("restart search engine: %w", err))
		}
		return
	}
	m.update(gen, func(s *State) { s.Message = "Waiting for search engine" })
	if !sleepCtx(ctx, m.timings.ResetSettle) {
		return
	}
	m.runAction(ctx, gen, StepCreateCollection)
}

func (m *Machine) runComplete(ctx context.Context, gen uint64) {
	if _, err := m.api.CompleteWizard(ctx); err != nil {
		if ctx.Err() == nil {
			m.fail(gen, fmt.Errorf("complete wizard: %w", err))
		}
		return
	}
	m.update(gen, func(s *State) {
		s.Phase = PhaseDone
		s.Completed = true
		s.Message = "Setup complete"
	})
}

func (m *Machine) startServices(ctx context.Context, gen uint64) error {
	if _, err := m.api.StartServices(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}
	m.spawnLogs(ctx, gen, filebrain.StreamDockerLogs)
	err := pollUntil(ctx, m.timings.ServicePollInterval, m.timings.ServiceTimeout, func(ctx context.Context) (bool, string, error) {
		res, err := m.api.FetchDockerStatus(ctx)
		if err != nil {
			return false, "", err
		}
		return res.Ready(), res.Message, nil
	}, func(msg string) { m.update(gen, func(s *State) { s.Message = msg }) })
	if errors.Is(err, ErrTimeout) {
		return fmt.Errorf("services did not become healthy within %s: %w", m.timings.ServiceTimeout, err)
	}
	return err
}

func (m *Machine) createCollection(ctx context.Context, gen uint64) error {
	if _, err := m.api.CreateCollection(ctx); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	m.spawnLogs(ctx, gen, filebrain.StreamCollectionLogs)
	err := pollUntil(ctx, m.timings.CollectionPollInterval, m.timings.CollectionTimeout, func(ctx context.Context) (bool, string, error) {
		res, err := m.api.FetchCollectionStatus(ctx)
		if err != nil {
			return false, "", err
		}
		if res.Error != "" {
			return false, "", errors.New(res.Error)
		}
		return res.Exists && res.Ready, res.Message, nil
	}, func(msg string) { m.update(gen, func(s *State) { s.Message = msg }) })
	if errors.Is(err, ErrTimeout) {
		return fmt.Errorf("collection was not ready within %s: %w", m.timings.CollectionTimeout, err)
	}
	return err
}

// pollUntil probes immediately and then every interval until probe reports
// ready, ctx ends, or timeout elapses. Probe errors are retried; the last one
// is attached to the timeout error.
func pollUntil(ctx context.Context, interval, timeout time.Duration, probe func(context.Context) (bool, string, error), progress func(string)) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		ready, msg, err := probe(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		switch {
		case err != nil:
			lastErr = err
		case ready:
			return nil
		case msg != "":
			progress(msg)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			if lastErr != nil {
				return fmt.Errorf("%w (last error: %s)", ErrTimeout, filebrain.ErrorMessage(lastErr))
			}
			return ErrTimeout
		case <-ticker.C:
		}
	}
}

// progressMessage is the payload of image pull and model download events.
type progressMessage struct {
	Message  string   `json:"message"`
	Status   string   `json:"status"`
	Line     string   `json:"line"`
	Log      string   `json:"log"`
	Image    string   `json:"image"`
	Progress *float64 `json:"progress"`
	Percent  *float64 `json:"percent"`
}

func (p progressMessage) text() string {
	text := firstNonEmpty(p.Message, p.Line, p.Log, p.Status)
	if p.Image != "" && text != "" {
		return p.Image + ": " + text
	}
	return text
}

func (p progressMessage) percent() (float64, bool) {
	switch {
	case p.Progress != nil:
		return clampPercent(*p.Progress), true
	case p.Percent != nil:
		return clampPercent(*p.Percent), true
	}
	return 0, false
}

// followProgress consumes a progress stream until its complete or error
// event. A stream that ends without either is re-checked.
func (m *Machine) followProgress(ctx context.Context, gen uint64, path string) error {
	stream, err := m.api.OpenStream(ctx, path)
	if err != nil {
		return err
	}
	defer func() { _ = stream.Close() }()

	for {
		evt, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			return m.confirmAfterStream(ctx, gen)
		}
		if err != nil {
			return err
		}
		switch evt.Kind {
		case filebrain.EventComplete:
			return nil
		case filebrain.EventError:
			return errors.New(firstNonEmpty(evt.Message, "operation failed"))
		case filebrain.EventUpdate:
			m.applyProgress(gen, evt)
		}
	}
}

func (m *Machine) applyProgress(gen uint64, evt filebrain.StreamEvent) {
	var msg progressMessage
	text := strings.TrimSpace(evt.Text)
	if len(evt.Data) > 0 && json.Unmarshal(evt.Data, &msg) == nil {
		text = msg.text()
	}
	pct, hasPct := msg.percent()
	m.update(gen, func(s *State) {
		if text != "" {
			s.Message = text
		}
		if hasPct {
			s.Progress = pct
			s.HasProgress = true
		}
	})
	m.appendLog(gen, text)
}

func (m *Machine) confirmAfterStream(ctx context.Context, gen uint64) error {
	snap := m.Snapshot()
	if snap.Generation != gen {
		return ctx.Err()
	}
	res, err := m.check(ctx, snap.Step)
	if err != nil {
		return err
	}
	if !res.satisfied {
		return errors.New("stream closed before completion")
	}
	return nil
}

// spawnLogs follows a companion log stream for the lifetime of ctx. Log
// streams are auxiliary, so failures are only logged.
func (m *Machine) spawnLogs(ctx context.Context, gen uint64, path string) {
	m.mu.Lock()
	if gen != m.gen || m.closed {
		m.mu.Unlock()
		return
	}
	m.spawnLocked(func() {
		stream, err := m.api.OpenStream(ctx, path)
		if err != nil {
			m.logger.Debug("log stream unavailable", "path", path, "error", err)
			return
		}
		defer func() { _ = stream.Close() }()
		for {
			evt, err := stream.Next(ctx)
			if err != nil {
				return
			}
			m.appendLog(gen, logLine(evt))
		}
	})
	m.mu.Unlock()
}

func logLine(evt filebrain.StreamEvent) string {
	if len(evt.Data) > 0 {
		var msg progressMessage
		if json.Unmarshal(evt.Data, &msg) == nil {
			if text := msg.text(); text != "" {
				return text
			}
		}
	}
	if evt.Message != "" {
		return evt.Message
	}
	return strings.TrimSpace(evt.Text)
}

func clampPercent(v float64) float64 {
	return min(max(v, 0), 100)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
