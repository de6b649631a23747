package watchpaths

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/filebrain/console/internal/filebrain"
	"github.com/filebrain/console/internal/state"
)

// API is the subset of the backend client used for watch paths.
type API interface {
	FetchWatchPaths(ctx context.Context) ([]filebrain.WatchPath, error)
	CreateWatchPath(ctx context.Context, req filebrain.WatchPathCreate) (filebrain.WatchPath, error)
	UpdateWatchPath(ctx context.Context, id int64, req filebrain.WatchPathUpdate) (filebrain.WatchPath, error)
	DeleteWatchPath(ctx context.Context, id int64) error
	BatchAddWatchPaths(ctx context.Context, req filebrain.BatchWatchPathRequest) (filebrain.BatchWatchPathResponse, error)
}

var _ API = (*filebrain.Client)(nil)

// Sink receives the refreshed list after each mutation.
type Sink interface {
	Apply(u state.Update)
	RecordError(source string, err error)
	ClearError(source string)
}

var _ Sink = (*state.Store)(nil)

// Options are the flags applied to newly added paths.
type Options struct {
	IncludeSubdirectories bool
	Enabled               bool
	IsExcluded            bool
}

// DefaultOptions returns recursive, enabled, non-excluded.
func DefaultOptions() Options {
	return Options{IncludeSubdirectories: true, Enabled: true}
}

// BatchReport is the outcome of a batch add.
type BatchReport struct {
	Added   []filebrain.WatchPath
	Skipped []filebrain.SkippedPath
}

// Summary is a one-line count of added and skipped paths.
func (r BatchReport) Summary() string {
	return fmt.Sprintf("%d added, %d skipped", len(r.Added), len(r.Skipped))
}

// SkipLines renders one "path: reason" line per skipped entry, with the
// backend's reason unchanged.
func (r BatchReport) SkipLines() []string {
	lines := make([]string, 0, len(r.Skipped))
	for _, s := range r.Skipped {
		lines = append(lines, s.Path+": "+s.Reason)
	}
	return lines
}

// Manager mutates watch paths and keeps the store's copy current.
type Manager struct {
	api    API
	sink   Sink
	logger *slog.Logger
}

// NewManager returns a Manager. sink may be nil.
func NewManager(api API, sink Sink, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{api: api, sink: sink, logger: logger}
}

// Refresh re-reads the list and applies it to the sink.
func (m *Manager) Refresh(ctx context.Context) ([]filebrain.WatchPath, error) {
	paths, err := m.api.FetchWatchPaths(ctx)
	if err != nil {
		err = fmt.Errorf("fetch watch paths: %w", err)
		if m.sink != nil && !errors.Is(err, context.Canceled) {
			m.sink.RecordError(state.SourceWatchPaths, err)
		}
		return nil, err
	}
	if m.sink != nil {
		m.sink.Apply(state.WatchPathsUpdate(paths))
		m.sink.ClearError(state.SourceWatchPaths)
	}
	return paths, nil
}

// Add registers one directory.
func (m *Manager) Add(ctx context.Context, path string, opts Options) (filebrain.WatchPath, error) {
	created, err := m.api.CreateWatchPath(ctx, filebrain.WatchPathCreate{
		Path:                  path,
		IncludeSubdirectories: opts.IncludeSubdirectories,
		Enabled:               opts.Enabled,
		IsExcluded:            opts.IsExcluded,
	})
	if err != nil {
		return filebrain.WatchPath{}, err
	}
	m.logger.Info("watch path added", "path", created.Path, "id", created.ID)
	m.refreshAfter(ctx)
	return created, nil
}

// AddBatch registers several directories. Skipped entries keep the backend's
// reason text.
func (m *Manager) AddBatch(ctx context.Context, paths []string, opts Options) (BatchReport, error) {
	paths = normalizePaths(paths)
	if len(paths) == 0 {
		return BatchReport{}, errors.New("no paths given")
	}
	resp, err := m.api.BatchAddWatchPaths(ctx, filebrain.BatchWatchPathRequest{
		Paths:                 paths,
		IncludeSubdirectories: &opts.IncludeSubdirectories,
		Enabled:               &opts.Enabled,
		IsExcluded:            &opts.IsExcluded,
	})
	if err != nil {
		return BatchReport{}, err
	}
	report := BatchReport{Added: resp.Added, Skipped: resp.Skipped}
	m.logger.Info("watch paths batch added", "added", len(report.Added), "skipped", len(report.Skipped))
	for _, s := range report.Skipped {
		m.logger.Debug("watch path skipped", "path", s.Path, "reason", s.Reason)
	}
	m.refreshAfter(ctx)
	return report, nil
}

// Toggle flips the enabled flag of wp.
func (m *Manager) Toggle(ctx context.Context, wp filebrain.WatchPath) (filebrain.WatchPath, error) {
	enabled := !wp.Enabled
	updated, err := m.api.UpdateWatchPath(ctx, wp.ID, filebrain.WatchPathUpdate{Enabled: &enabled})
	if err != nil {
		return filebrain.WatchPath{}, err
	}
	m.logger.Info("watch path toggled", "id", wp.ID, "enabled", enabled)
	m.refreshAfter(ctx)
	return updated, nil
}

// ToggleSubdirectories flips include_subdirectories of wp.
func (m *Manager) ToggleSubdirectories(ctx context.Context, wp filebrain.WatchPath) (filebrain.WatchPath, error) {
	include := !wp.IncludeSubdirectories
	updated, err := m.api.UpdateWatchPath(ctx, wp.ID, filebrain.WatchPathUpdate{IncludeSubdirectories: &include})
	if err != nil {
		return filebrain.WatchPath{}, err
	}
	m.refreshAfter(ctx)
	return updated, nil
}

// Delete removes a watch path.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	if err := m.api.DeleteWatchPath(ctx, id); err != nil {
		return err
	}
	m.logger.Info("watch path deleted", "id", id)
	m.refreshAfter(ctx)
	return nil
}

// refreshAfter re-reads the list after a successful mutation. A failed
// refresh is recorded on the sink and does not fail the mutation.
func (m *Manager) refreshAfter(ctx context.Context) {
	if _, err := m.Refresh(ctx); err != nil {
		m.logger.Warn("watch path refresh failed", "error", err)
	}
}
