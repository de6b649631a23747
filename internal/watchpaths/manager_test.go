package watchpaths

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filebrain/console/internal/filebrain"
	"github.com/filebrain/console/internal/state"
)

type fakeBackend struct {
	mu       sync.Mutex
	nextID   int64
	paths    []filebrain.WatchPath
	lastBody filebrain.BatchWatchPathRequest
	listHits int
	failList bool
}

func (f *fakeBackend) router() http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1/config/watch-paths", func(r chi.Router) {
		r.Get("/", f.list)
		r.Post("/", f.create)
		r.Post("/batch", f.batch)
		r.Put("/{id}", f.update)
		r.Delete("/{id}", f.remove)
	})
	return r
}

func (f *fakeBackend) list(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listHits++
	if f.failList {
		http.Error(w, `{"detail":"database locked"}`, http.StatusServiceUnavailable)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"watch_paths": f.paths})
}

func (f *fakeBackend) create(w http.ResponseWriter, r *http.Request) {
	var req filebrain.WatchPathCreate
	_ = json.NewDecoder(r.Body).Decode(&req)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	wp := filebrain.WatchPath{ID: f.nextID, Path: req.Path, Enabled: req.Enabled, IncludeSubdirectories: req.IncludeSubdirectories}
	f.paths = append(f.paths, wp)
	_ = json.NewEncoder(w).Encode(wp)
}

func (f *fakeBackend) batch(w http.ResponseWriter, r *http.Request) {
	var req filebrain.BatchWatchPathRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastBody = req
	var resp filebrain.BatchWatchPathResponse
	for _, p := range req.Paths {
		if strings.HasPrefix(p, "/missing") {
			resp.Skipped = append(resp.Skipped, filebrain.SkippedPath{Path: p, Reason: "Path does not exist"})
			continue
		}
		if f.watchedLocked(p) {
			resp.Skipped = append(resp.Skipped, filebrain.SkippedPath{Path: p, Reason: "Path already being watched"})
			continue
		}
		f.nextID++
		wp := filebrain.WatchPath{ID: f.nextID, Path: p, Enabled: true}
		f.paths = append(f.paths, wp)
		resp.Added = append(resp.Added, wp)
	}
	resp.TotalAdded, resp.TotalSkipped = len(resp.Added), len(resp.Skipped)
	_ = json.NewEncoder(w).Encode(resp)
}

func (f *fakeBackend) watchedLocked(path string) bool {
	for _, wp := range f.paths {
		if wp.Path == path {
			return true
		}
	}
	return false
}

func (f *fakeBackend) update(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req filebrain.WatchPathUpdate
	_ = json.NewDecoder(r.Body).Decode(&req)
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.paths {
		if f.paths[i].ID != id {
			continue
		}
		if req.Enabled != nil {
			f.paths[i].Enabled = *req.Enabled
		}
		if req.IncludeSubdirectories != nil {
			f.paths[i].IncludeSubdirectories = *req.IncludeSubdirectories
		}
		_ = json.NewEncoder(w).Encode(f.paths[i])
		return
	}
	http.Error(w, `{"detail":"Watch path not found"}`, http.StatusNotFound)
}

func (f *fakeBackend) remove(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.paths {
		if f.paths[i].ID == id {
			f.paths = append(f.paths[:i], f.paths[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	http.Error(w, `{"detail":"Watch path not found"}`, http.StatusNotFound)
}

func newManager(t *testing.T) (*Manager, *fakeBackend, *state.Store) {
	t.Helper()
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.router())
	t.Cleanup(srv.Close)

	client, err := filebrain.NewClient(srv.URL, "")
	require.NoError(t, err)
	store := &state.Store{}
	return NewManager(client, store, nil), backend, store
}

func TestAddRefreshesStore(t *testing.T) {
	m, _, store := newManager(t)

	created, err := m.Add(context.Background(), "/home/me/Documents", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	snap := store.Snapshot()
	require.True(t, snap.HasWatchPaths)
	require.Len(t, snap.WatchPaths, 1)
	assert.Equal(t, "/home/me/Documents", snap.WatchPaths[0].Path)
	assert.True(t, snap.WatchPaths[0].IncludeSubdirectories)
}

func TestBatchSkipReasonsVerbatim(t *testing.T) {
	m, backend, store := newManager(t)

	report, err := m.AddBatch(context.Background(), []string{"/data", " /missing/one ", "/data", ""}, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"/data", "/missing/one", "/data"}, backend.lastBody.Paths)
	require.NotNil(t, backend.lastBody.IncludeSubdirectories)
	assert.True(t, *backend.lastBody.IncludeSubdirectories)

	assert.Len(t, report.Added, 1)
	assert.Equal(t, []string{
		"/missing/one: Path does not exist",
		"/data: Path already being watched",
	}, report.SkipLines())
	assert.Equal(t, "1 added, 2 skipped", report.Summary())
	assert.Len(t, store.Snapshot().WatchPaths, 1)
}

func TestBatchRejectsEmpty(t *testing.T) {
	m, backend, _ := newManager(t)

	_, err := m.AddBatch(context.Background(), []string{" ", ""}, DefaultOptions())
	require.Error(t, err)
	assert.Zero(t, backend.listHits)
}

func TestToggleAndDelete(t *testing.T) {
	m, _, store := newManager(t)
	ctx := context.Background()

	created, err := m.Add(ctx, "/srv", DefaultOptions())
	require.NoError(t, err)

	updated, err := m.Toggle(ctx, created)
	require.NoError(t, err)
	assert.False(t, updated.Enabled)
	assert.False(t, store.Snapshot().WatchPaths[0].Enabled)

	updated, err = m.ToggleSubdirectories(ctx, updated)
	require.NoError(t, err)
	assert.False(t, updated.IncludeSubdirectories)

	require.NoError(t, m.Delete(ctx, created.ID))
	snap := store.Snapshot()
	assert.True(t, snap.HasWatchPaths)
	assert.Empty(t, snap.WatchPaths)
}

func TestDeleteMissingKeepsStore(t *testing.T) {
	m, backend, store := newManager(t)
	ctx := context.Background()
	_, err := m.Add(ctx, "/srv", DefaultOptions())
	require.NoError(t, err)
	hits := backend.listHits

	err = m.Delete(ctx, 99)
	require.Error(t, err)
	assert.Equal(t, "Watch path not found", filebrain.ErrorMessage(err))
	assert.Equal(t, hits, backend.listHits)
	assert.Len(t, store.Snapshot().WatchPaths, 1)
}

func TestRefreshFailureRecordedNotReturned(t *testing.T) {
	m, backend, store := newManager(t)
	backend.failList = true

	_, err := m.Add(context.Background(), "/srv", DefaultOptions())
	require.NoError(t, err)

	snap := store.Snapshot()
	assert.False(t, snap.HasWatchPaths)
	require.Error(t, snap.LastError)
	assert.Contains(t, snap.LastError.Error(), "database locked")

	backend.failList = false
	_, err = m.Refresh(context.Background())
	require.NoError(t, err)
	assert.NoError(t, store.Snapshot().LastError)
}

func TestParseImport(t *testing.T) {
	doc := `
paths:
  - /srv/share
  - /srv/share
  - "  /data  "
include_subdirectories: false
`
	f, err := ParseImport(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"/srv/share", "/srv/share", "/data"}, f.Paths)

	opts := f.Options()
	assert.False(t, opts.IncludeSubdirectories)
	assert.True(t, opts.Enabled)
	assert.False(t, opts.IsExcluded)
}

func TestParseImportErrors(t *testing.T) {
	_, err := ParseImport(strings.NewReader(""))
	assert.ErrorContains(t, err, "empty")

	_, err = ParseImport(strings.NewReader("paths: []\n"))
	assert.ErrorContains(t, err, "no paths")

	_, err = ParseImport(strings.NewReader("paths: [/a]\nrecursive: true\n"))
	assert.ErrorContains(t, err, "parse import file")
}

func TestImportFromFile(t *testing.T) {
	m, backend, _ := newManager(t)
	path := filepath.Join(t.TempDir(), "paths.yaml")
	require.NoError(t, os.WriteFile(path, []byte("paths:\n  - /a\n  - /missing/b\nenabled: false\n"), 0o644))

	report, err := m.Import(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, report.Added, 1)
	assert.Len(t, report.Skipped, 1)
	require.NotNil(t, backend.lastBody.Enabled)
	assert.False(t, *backend.lastBody.Enabled)
}

func TestImportReportsDuplicatesFromBackend(t *testing.T) {
	m, backend, _ := newManager(t)
	path := filepath.Join(t.TempDir(), "paths.yaml")
	require.NoError(t, os.WriteFile(path, []byte("paths:\n  - /srv\n  - \" /srv \"\n"), 0o644))

	report, err := m.Import(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/srv", "/srv"}, backend.lastBody.Paths)
	assert.Len(t, report.Added, 1)
	assert.Equal(t, []string{"/srv: Path already being watched"}, report.SkipLines())
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "Documents"), expandHome("~/Documents"))
	assert.Equal(t, "/abs", expandHome("/abs"))
	assert.Equal(t, "~other", expandHome("~other"))
}
