package filebrain

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// CrawlStatus mirrors /crawler/status and the "status" slice of crawler
// stream messages. It is always replaced wholesale.
type CrawlStatus struct {
	Running              bool    `json:"running"`
	JobType              *string `json:"job_type"`
	DiscoveryProgress    float64 `json:"discovery_progress"`
	IndexingProgress     float64 `json:"indexing_progress"`
	VerificationProgress float64 `json:"verification_progress"`
	FilesDiscovered      int64   `json:"files_discovered"`
	FilesIndexed         int64   `json:"files_indexed"`
	FilesSkipped         int64   `json:"files_skipped"`
	OrphanCount          int64   `json:"orphan_count"`
	QueueSize            int64   `json:"queue_size"`
	MonitoringActive     bool    `json:"monitoring_active"`
	EstimatedCompletion  *string `json:"estimated_completion"`
}

// ParsedEstimatedCompletion returns the estimated completion time, or the
// zero time when the backend did not provide one.
func (s CrawlStatus) ParsedEstimatedCompletion() time.Time {
	if s.EstimatedCompletion == nil {
		return time.Time{}
	}
	return parseTime(*s.EstimatedCompletion)
}

// JobLabel returns the job type or an empty string when none is running.
func (s CrawlStatus) JobLabel() string {
	if s.JobType == nil {
		return ""
	}
	return strings.TrimSpace(*s.JobType)
}

// IndexedRatio returns files_indexed / files_discovered in [0,1].
func (s CrawlStatus) IndexedRatio() float64 {
	return ratio(s.FilesIndexed, s.FilesDiscovered)
}

// CrawlStats mirrors /crawler/stats.
type CrawlStats struct {
	Discovered int64            `json:"discovered"`
	Indexed    int64            `json:"indexed"`
	Ratio      float64          `json:"ratio"`
	FileTypes  map[string]int64 `json:"file_types"`
	Runtime    StatsRuntime     `json:"runtime"`
	Healthy    bool             `json:"healthy"`
}

// StatsRuntime reports whether a crawl job is active.
type StatsRuntime struct {
	Running bool `json:"running"`
}

// IndexedRatio prefers the backend ratio and derives it from the totals
// when the backend omitted it.
func (s CrawlStats) IndexedRatio() float64 {
	if s.Ratio > 0 {
		if s.Ratio > 1 {
			return s.Ratio / 100
		}
		return s.Ratio
	}
	return ratio(s.Indexed, s.Discovered)
}

// ExtensionCount is one row of the file-type breakdown.
type ExtensionCount struct {
	Extension string
	Count     int64
}

// TopFileTypes returns the file-type counts sorted by count descending,
// then extension ascending. limit <= 0 returns all of them.
func (s CrawlStats) TopFileTypes(limit int) []ExtensionCount {
	out := make([]ExtensionCount, 0, len(s.FileTypes))
	for ext, count := range s.FileTypes {
		out = append(out, ExtensionCount{Extension: ext, Count: count})
	}
	sortExtensionCounts(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// WatchPath is a directory registered for indexing.
type WatchPath struct {
	ID                    int64  `json:"id"`
	Path                  string `json:"path"`
	Enabled               bool   `json:"enabled"`
	IncludeSubdirectories bool   `json:"include_subdirectories"`
	IsExcluded            bool   `json:"is_excluded"`
	CreatedAt             string `json:"created_at"`
	UpdatedAt             string `json:"updated_at"`
}

// ParsedUpdatedAt returns the parsed UpdatedAt timestamp.
func (w WatchPath) ParsedUpdatedAt() time.Time {
	return parseTime(w.UpdatedAt)
}

// WatchPathCreate is the body of POST /config/watch-paths.
type WatchPathCreate struct {
	Path                  string `json:"path"`
	IncludeSubdirectories bool   `json:"include_subdirectories"`
	Enabled               bool   `json:"enabled"`
	IsExcluded            bool   `json:"is_excluded"`
}

// WatchPathUpdate is the body of PUT /config/watch-paths/{id}. Nil fields
// are left unchanged by the backend.
type WatchPathUpdate struct {
	Enabled               *bool `json:"enabled,omitempty"`
	IncludeSubdirectories *bool `json:"include_subdirectories,omitempty"`
	IsExcluded            *bool `json:"is_excluded,omitempty"`
}

// BatchWatchPathRequest is the body of POST /config/watch-paths/batch.
type BatchWatchPathRequest struct {
	Paths                 []string `json:"paths"`
	IncludeSubdirectories *bool    `json:"include_subdirectories,omitempty"`
	Enabled               *bool    `json:"enabled,omitempty"`
	IsExcluded            *bool    `json:"is_excluded,omitempty"`
}

// SkippedPath explains why a batch entry was not added. Reason is the
// backend's text and is shown to the user as-is.
type SkippedPath struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// BatchWatchPathResponse reports the outcome of a batch add.
type BatchWatchPathResponse struct {
	Added        []WatchPath   `json:"added"`
	Skipped      []SkippedPath `json:"skipped"`
	TotalAdded   int           `json:"total_added"`
	TotalSkipped int           `json:"total_skipped"`
}

// Service states reported by the system initialisation endpoints.
const (
	ServiceHealthy        = "healthy"
	ServiceUnhealthy      = "unhealthy"
	ServiceInitializing   = "initializing"
	ServiceDisabled       = "disabled"
	ServiceError          = "error"
	ServiceRetryScheduled = "retry_scheduled"
)

// Capability names exposed by SystemInitialization.
const (
	CapabilitySearchAPI         = "search_api"
	CapabilityCrawlAPI          = "crawl_api"
	CapabilityConfigurationAPI  = "configuration_api"
	CapabilityFullFunctionality = "full_functionality"
)

// ServiceState is the per-service entry of SystemInitialization.
type ServiceState struct {
	State      string `json:"state"`
	Message    string `json:"message,omitempty"`
	RetryCount int    `json:"retry_count,omitempty"`
}

// SystemInitialization mirrors /system/initialization.
type SystemInitialization struct {
	OverallStatus string                  `json:"overall_status"`
	Progress      float64                 `json:"progress"`
	Services      map[string]ServiceState `json:"services"`
	Capabilities  map[string]bool         `json:"capabilities"`
	DegradedMode  bool                    `json:"degraded_mode"`
	Message       string                  `json:"message,omitempty"`
}

// UnhealthyServices lists services whose state is not healthy or disabled,
// sorted by name.
func (s SystemInitialization) UnhealthyServices() []string {
	var out []string
	for name, svc := range s.Services {
		switch strings.ToLower(strings.TrimSpace(svc.State)) {
		case ServiceHealthy, ServiceDisabled:
			continue
		}
		out = append(out, name)
	}
	sortStrings(out)
	return out
}

// WizardStatus mirrors /wizard/status.
type WizardStatus struct {
	DockerCheckPassed     bool `json:"docker_check_passed"`
	DockerServicesStarted bool `json:"docker_services_started"`
	CollectionCreated     bool `json:"collection_created"`
	CurrentStep           int  `json:"current_step"`
	LastStepCompleted     int  `json:"last_step_completed"`
	WizardCompleted       bool `json:"wizard_completed"`
}

// DockerCheck mirrors /wizard/docker-check.
type DockerCheck struct {
	Available      bool   `json:"available"`
	Version        string `json:"version,omitempty"`
	ComposeVersion string `json:"compose_version,omitempty"`
	Message        string `json:"message,omitempty"`
	Error          string `json:"error,omitempty"`
}

// ImagesCheck mirrors /wizard/docker-images-check.
type ImagesCheck struct {
	Available bool     `json:"available"`
	Missing   []string `json:"missing,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// ServiceHealth is one container reported by /wizard/docker-status.
type ServiceHealth struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	Healthy bool   `json:"healthy"`
}

// DockerStatus mirrors /wizard/docker-status.
type DockerStatus struct {
	Running  bool            `json:"running"`
	Healthy  bool            `json:"healthy"`
	Services []ServiceHealth `json:"services,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// Ready reports whether every service is up and healthy.
func (s DockerStatus) Ready() bool {
	if !s.Running || !s.Healthy {
		return false
	}
	for _, svc := range s.Services {
		if !svc.Healthy {
			return false
		}
	}
	return true
}

// ModelStatus mirrors /wizard/model-status.
type ModelStatus struct {
	Downloaded bool   `json:"downloaded"`
	Model      string `json:"model,omitempty"`
	Message    string `json:"message,omitempty"`
}

// CollectionStatus mirrors /wizard/collection-status.
type CollectionStatus struct {
	Exists        bool   `json:"exists"`
	Ready         bool   `json:"ready"`
	DocumentCount int64  `json:"document_count"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ActionResponse is the generic {success, message, timestamp} reply of
// crawler and wizard actions.
type ActionResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// FSRoot is a browse starting point for the folder picker.
type FSRoot struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// FSEntry is a directory entry returned by /fs/list.
type FSEntry struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
}

// FSListing mirrors /fs/list.
type FSListing struct {
	Path    string    `json:"path"`
	Parent  string    `json:"parent,omitempty"`
	Entries []FSEntry `json:"entries"`
}

// Directories returns only the directory entries.
func (l FSListing) Directories() []FSEntry {
	out := make([]FSEntry, 0, len(l.Entries))
	for _, e := range l.Entries {
		if e.IsDir {
			out = append(out, e)
		}
	}
	return out
}

// File operation kinds accepted by /files/open.
const (
	OpenAsFile   = "file"
	OpenAsFolder = "folder"
)

// FileOpRequest is the body of the /files/* endpoints.
type FileOpRequest struct {
	FilePath  string `json:"file_path"`
	Operation string `json:"operation,omitempty"`
}

// FileOpResult is the reply of the /files/* endpoints.
type FileOpResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ratio(num, den int64) float64 {
	if den <= 0 || num <= 0 {
		return 0
	}
	r := float64(num) / float64(den)
	if r > 1 {
		return 1
	}
	return r
}

func sortExtensionCounts(items []ExtensionCount) {
	slices.SortFunc(items, func(a, b ExtensionCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Extension, b.Extension)
	})
}

func sortStrings(values []string) {
	slices.Sort(values)
}

// The backend emits ISO timestamps with or without a zone offset.
const naiveTimestampLayout = "2006-01-02T15:04:05.999999999"

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(naiveTimestampLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
