package filebrain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" {
		t.Fatalf("scheme = %q, want http", u.Scheme)
	}
	if u.Host != "127.0.0.1:8000" {
		t.Fatalf("host = %q, want 127.0.0.1:8000", u.Host)
	}

	u, err = parseBaseURL("example.com:1234/path?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

func TestNormalizePrefix(t *testing.T) {
	cases := map[string]string{
		"":         "/api/v1",
		"/api":     "/api",
		"api/v1/":  "/api/v1",
		" /api/ ":  "/api",
		"/":        "",
	}
	for in, want := range cases {
		if got := normalizePrefix(in); got != want {
			t.Errorf("normalizePrefix(%q) = %q, want %q", in, got, want)
		}
	}
}

func newTestClient(t *testing.T, router http.Handler, prefix string) *Client {
	t.Helper()
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	c, err := NewClient(server.URL, prefix)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_FetchesStatusSlices(t *testing.T) {
	t.Parallel()

	var gotRequestID, gotUserAgent string
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/crawler/status", func(w http.ResponseWriter, req *http.Request) {
			gotRequestID = req.Header.Get("X-Request-ID")
			gotUserAgent = req.Header.Get("User-Agent")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"running":true,"job_type":"crawl","files_indexed":10,"files_discovered":100,"estimated_completion":"2026-01-02T03:04:05.123456"}`))
		})
		r.Get("/crawler/stats", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, CrawlStats{Discovered: 100, Indexed: 10, FileTypes: map[string]int64{".pdf": 3}})
		})
		r.Get("/config/watch-paths", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"watch_paths": []WatchPath{{ID: 1, Path: "/docs", Enabled: true}}})
		})
		r.Get("/system/initialization", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, SystemInitialization{OverallStatus: "healthy", Progress: 100})
		})
	})
	c := newTestClient(t, r, "")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	status, err := c.FetchStatus(ctx)
	if err != nil {
		t.Fatalf("FetchStatus returned error: %v", err)
	}
	if !status.Running || status.FilesIndexed != 10 || status.FilesDiscovered != 100 {
		t.Fatalf("FetchStatus payload = %#v, want running 10/100", status)
	}
	if status.JobLabel() != "crawl" {
		t.Fatalf("JobLabel = %q, want crawl", status.JobLabel())
	}
	if status.ParsedEstimatedCompletion().IsZero() {
		t.Fatalf("expected naive timestamp to parse")
	}
	if gotRequestID == "" {
		t.Fatalf("expected X-Request-ID header")
	}
	if gotUserAgent != defaultUserAgent {
		t.Fatalf("User-Agent = %q, want %q", gotUserAgent, defaultUserAgent)
	}

	stats, err := c.FetchStats(ctx)
	if err != nil {
		t.Fatalf("FetchStats returned error: %v", err)
	}
	if stats.IndexedRatio() != 0.1 {
		t.Fatalf("IndexedRatio = %v, want 0.1", stats.IndexedRatio())
	}

	paths, err := c.FetchWatchPaths(ctx)
	if err != nil {
		t.Fatalf("FetchWatchPaths returned error: %v", err)
	}
	if len(paths) != 1 || paths[0].Path != "/docs" {
		t.Fatalf("FetchWatchPaths = %#v, want /docs", paths)
	}

	initState, err := c.FetchInitialization(ctx)
	if err != nil {
		t.Fatalf("FetchInitialization returned error: %v", err)
	}
	if initState.Progress != 100 {
		t.Fatalf("Progress = %v, want 100", initState.Progress)
	}
}

func TestClient_LegacyPrefixAndBareWatchPathArray(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Get("/api/config/watch-paths", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, []WatchPath{{ID: 7, Path: "/a"}, {ID: 8, Path: "/b"}})
	})
	c := newTestClient(t, r, "/api")

	paths, err := c.FetchWatchPaths(context.Background())
	if err != nil {
		t.Fatalf("FetchWatchPaths returned error: %v", err)
	}
	if len(paths) != 2 || paths[1].ID != 8 {
		t.Fatalf("FetchWatchPaths = %#v, want two entries", paths)
	}
}

func TestClient_APIErrorCarriesBackendDetail(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Post("/api/v1/crawler/start", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"detail": "Crawl already running"})
	})
	r.Get("/api/v1/crawler/status", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	c := newTestClient(t, r, "")

	_, err := c.StartCrawl(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusConflict {
		t.Fatalf("StatusCode = %d, want 409", apiErr.StatusCode)
	}
	if ErrorMessage(err) != "Crawl already running" {
		t.Fatalf("ErrorMessage = %q, want backend detail", ErrorMessage(err))
	}
	if !IsStatus(err, http.StatusConflict) {
		t.Fatalf("IsStatus(409) = false")
	}

	_, err = c.FetchStatus(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if err.Error() != "api /api/v1/crawler/status returned status 500" {
		t.Fatalf("error = %q", err.Error())
	}
}

func TestExtractErrorMessage(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`{"detail":"nope"}`, "nope"},
		{`{"detail":{"message":"nested"}}`, "nested"},
		{`{"error":"boom"}`, "boom"},
		{`{"message":"said"}`, "said"},
		{`plain text body`, "plain text body"},
		{`{"other":1}`, ""},
	}
	for _, tc := range cases {
		if got := extractErrorMessage([]byte(tc.raw)); got != tc.want {
			t.Errorf("extractErrorMessage(%s) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestClient_WatchPathMutations(t *testing.T) {
	t.Parallel()

	var created WatchPathCreate
	var updated WatchPathUpdate
	var updatedID, deletedID string
	var batch BatchWatchPathRequest

	r := chi.NewRouter()
	r.Route("/api/v1/config/watch-paths", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, req *http.Request) {
			_ = json.NewDecoder(req.Body).Decode(&created)
			writeJSON(w, http.StatusOK, WatchPath{ID: 3, Path: created.Path, Enabled: created.Enabled})
		})
		r.Put("/{id}", func(w http.ResponseWriter, req *http.Request) {
			updatedID = chi.URLParam(req, "id")
			_ = json.NewDecoder(req.Body).Decode(&updated)
			writeJSON(w, http.StatusOK, WatchPath{ID: 3, Enabled: false})
		})
		r.Delete("/{id}", func(w http.ResponseWriter, req *http.Request) {
			deletedID = chi.URLParam(req, "id")
			w.WriteHeader(http.StatusNoContent)
		})
		r.Post("/batch", func(w http.ResponseWriter, req *http.Request) {
			_ = json.NewDecoder(req.Body).Decode(&batch)
			writeJSON(w, http.StatusOK, BatchWatchPathResponse{
				Added:        []WatchPath{{ID: 4, Path: "/new"}},
				Skipped:      []SkippedPath{{Path: "/docs", Reason: "Path already exists"}},
				TotalAdded:   1,
				TotalSkipped: 1,
			})
		})
	})
	c := newTestClient(t, r, "")
	ctx := context.Background()

	wp, err := c.CreateWatchPath(ctx, WatchPathCreate{Path: "/docs", Enabled: true, IncludeSubdirectories: true})
	if err != nil {
		t.Fatalf("CreateWatchPath returned error: %v", err)
	}
	if wp.ID != 3 || created.Path != "/docs" || !created.IncludeSubdirectories {
		t.Fatalf("CreateWatchPath sent %#v, got %#v", created, wp)
	}

	disabled := false
	if _, err := c.UpdateWatchPath(ctx, 3, WatchPathUpdate{Enabled: &disabled}); err != nil {
		t.Fatalf("UpdateWatchPath returned error: %v", err)
	}
	if updatedID != "3" || updated.Enabled == nil || *updated.Enabled {
		t.Fatalf("UpdateWatchPath sent id=%s body=%#v", updatedID, updated)
	}
	if updated.IncludeSubdirectories != nil {
		t.Fatalf("omitted fields must not be sent")
	}

	if err := c.DeleteWatchPath(ctx, 3); err != nil {
		t.Fatalf("DeleteWatchPath returned error: %v", err)
	}
	if deletedID != "3" {
		t.Fatalf("deleted id = %q, want 3", deletedID)
	}

	resp, err := c.BatchAddWatchPaths(ctx, BatchWatchPathRequest{Paths: []string{"/new", "/docs"}})
	if err != nil {
		t.Fatalf("BatchAddWatchPaths returned error: %v", err)
	}
	if len(batch.Paths) != 2 {
		t.Fatalf("batch paths = %v", batch.Paths)
	}
	if resp.TotalSkipped != 1 || resp.Skipped[0].Reason != "Path already exists" {
		t.Fatalf("batch response = %#v", resp)
	}

	if _, err := c.BatchAddWatchPaths(ctx, BatchWatchPathRequest{}); err == nil {
		t.Fatalf("expected error for empty batch")
	}
}

func TestClient_ListDirectoryFiltersFiles(t *testing.T) {
	t.Parallel()

	var gotPath string
	r := chi.NewRouter()
	r.Get("/api/v1/fs/list", func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Query().Get("path")
		writeJSON(w, http.StatusOK, FSListing{
			Path:   "/home/me",
			Parent: "/home",
			Entries: []FSEntry{
				{Name: "docs", Path: "/home/me/docs", IsDir: true},
				{Name: "a.txt", Path: "/home/me/a.txt"},
			},
		})
	})
	r.Get("/api/v1/fs/roots", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"roots": []FSRoot{{Name: "Home", Path: "/home/me"}}})
	})
	c := newTestClient(t, r, "")

	listing, err := c.ListDirectory(context.Background(), "/home/me")
	if err != nil {
		t.Fatalf("ListDirectory returned error: %v", err)
	}
	if gotPath != "/home/me" {
		t.Fatalf("path query = %q", gotPath)
	}
	if len(listing.Entries) != 1 || listing.Entries[0].Name != "docs" {
		t.Fatalf("entries = %#v, want only docs", listing.Entries)
	}

	roots, err := c.FetchRoots(context.Background())
	if err != nil {
		t.Fatalf("FetchRoots returned error: %v", err)
	}
	if len(roots) != 1 || roots[0].Name != "Home" {
		t.Fatalf("roots = %#v", roots)
	}
}

func TestClient_FileOperations(t *testing.T) {
	t.Parallel()

	var openReq FileOpRequest
	r := chi.NewRouter()
	r.Post("/api/v1/files/open", func(w http.ResponseWriter, req *http.Request) {
		_ = json.NewDecoder(req.Body).Decode(&openReq)
		writeJSON(w, http.StatusOK, FileOpResult{Success: true})
	})
	r.Post("/api/v1/files/delete", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, FileOpResult{Success: false, Error: "Permission denied: /x"})
	})
	r.Post("/api/v1/files/forget", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "File not indexed"})
	})
	c := newTestClient(t, r, "")
	ctx := context.Background()

	if _, err := c.OpenFolder(ctx, "/x/y.pdf"); err != nil {
		t.Fatalf("OpenFolder returned error: %v", err)
	}
	if openReq.FilePath != "/x/y.pdf" || openReq.Operation != OpenAsFolder {
		t.Fatalf("open request = %#v", openReq)
	}

	_, err := c.DeleteFile(ctx, "/x")
	if ErrorMessage(err) != "Permission denied: /x" {
		t.Fatalf("DeleteFile error = %v, want backend text", err)
	}

	_, err = c.ForgetFile(ctx, "/x")
	if ErrorMessage(err) != "File not indexed" {
		t.Fatalf("ForgetFile error = %v, want backend detail", err)
	}

	if _, err := c.OpenFile(ctx, "  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestClient_WizardEndpoints(t *testing.T) {
	t.Parallel()

	var posted []string
	r := chi.NewRouter()
	r.Route("/api/v1/wizard", func(r chi.Router) {
		r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, WizardStatus{CurrentStep: 2, DockerCheckPassed: true})
		})
		r.Get("/docker-check", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, DockerCheck{Available: true, Version: "27.0"})
		})
		r.Get("/docker-status", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, DockerStatus{Running: true, Healthy: true, Services: []ServiceHealth{{Name: "typesense", Healthy: false}}})
		})
		for _, p := range []string{"/docker-start", "/collection-create", "/restart-typesense", "/complete", "/reset"} {
			path := p
			r.Post(path, func(w http.ResponseWriter, req *http.Request) {
				posted = append(posted, path)
				writeJSON(w, http.StatusOK, ActionResponse{Success: true})
			})
		}
	})
	c := newTestClient(t, r, "")
	ctx := context.Background()

	status, err := c.FetchWizardStatus(ctx)
	if err != nil || status.CurrentStep != 2 {
		t.Fatalf("FetchWizardStatus = %#v, %v", status, err)
	}
	check, err := c.CheckDocker(ctx)
	if err != nil || !check.Available {
		t.Fatalf("CheckDocker = %#v, %v", check, err)
	}
	ds, err := c.FetchDockerStatus(ctx)
	if err != nil {
		t.Fatalf("FetchDockerStatus returned error: %v", err)
	}
	if ds.Ready() {
		t.Fatalf("Ready = true with an unhealthy service")
	}

	for _, call := range []func(context.Context) (ActionResponse, error){
		c.StartServices, c.CreateCollection, c.RestartSearchEngine, c.CompleteWizard, c.ResetWizard,
	} {
		if _, err := call(ctx); err != nil {
			t.Fatalf("wizard action returned error: %v", err)
		}
	}
	if len(posted) != 5 {
		t.Fatalf("posted = %v, want 5 actions", posted)
	}
}

func TestClient_ActionRefusalIsError(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Post("/api/v1/wizard/complete", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "failed to persist wizard state"})
	})
	r.Post("/api/v1/wizard/docker-start", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "compose file missing", "message": "ignored"})
	})
	r.Post("/api/v1/crawler/start", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false})
	})
	c := newTestClient(t, r, "")
	ctx := context.Background()

	tests := []struct {
		name string
		call func(context.Context) (ActionResponse, error)
		want string
	}{
		{"message only", c.CompleteWizard, "failed to persist wizard state"},
		{"error wins over message", c.StartServices, "compose file missing"},
		{"no text", c.StartCrawl, "operation failed"},
	}
	for _, tt := range tests {
		res, err := tt.call(ctx)
		if err == nil {
			t.Fatalf("%s: expected error for success=false", tt.name)
		}
		if res.Success {
			t.Fatalf("%s: Success = true, want false", tt.name)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("%s: error %T is not *APIError", tt.name, err)
		}
		if got := ErrorMessage(err); got != tt.want {
			t.Fatalf("%s: ErrorMessage = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestClient_NilClient(t *testing.T) {
	var c *Client
	if _, err := c.FetchStatus(context.Background()); err == nil {
		t.Fatalf("expected error from nil client")
	}
	if c.BaseURL() != "" {
		t.Fatalf("BaseURL on nil client should be empty")
	}
}
