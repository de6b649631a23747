package state

import (
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/filebrain/console/internal/filebrain"
)

// Snapshot represents the latest data available to the views.
type Snapshot struct {
	Status            filebrain.CrawlStatus
	HasStatus         bool
	Stats             filebrain.CrawlStats
	HasStats          bool
	WatchPaths        []filebrain.WatchPath
	HasWatchPaths     bool
	Initialization    filebrain.SystemInitialization
	HasInitialization bool

	Live        bool // push stream connected; false while polling
	LastUpdated time.Time
	// LastError is the most recent error of any source still failing.
	LastError error
	// ConsecutiveFailures counts failures since the last successful fetch
	// of any source.
	ConsecutiveFailures int
}

// IsOffline returns true when the API has been unreachable for multiple fetches.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// IsInitializationComplete reports whether backend services finished starting.
func (s Snapshot) IsInitializationComplete() bool {
	return s.HasInitialization && s.Initialization.Progress >= 100
}

// IsSystemHealthy reports whether the backend declares itself healthy.
func (s Snapshot) IsSystemHealthy() bool {
	return s.HasInitialization && s.Initialization.OverallStatus == filebrain.ServiceHealthy
}

// Capability reports whether the named capability is available. Before the
// first initialisation report arrives every capability is assumed available;
// the backend still rejects calls it cannot serve.
func (s Snapshot) Capability(name string) bool {
	if !s.HasInitialization || s.Initialization.Capabilities == nil {
		return true
	}
	return s.Initialization.Capabilities[name]
}

// DegradedMode reports whether the backend runs with reduced functionality.
func (s Snapshot) DegradedMode() bool {
	return s.HasInitialization && s.Initialization.DegradedMode
}

// CrawlerRunning reports whether a crawl job is active according to either
// the status or the stats slice.
func (s Snapshot) CrawlerRunning() bool {
	if s.HasStatus {
		return s.Status.Running
	}
	return s.HasStats && s.Stats.Runtime.Running
}

// Update carries the slices to replace. Nil pointers and a false
// ReplaceWatchPaths leave the corresponding slice untouched.
type Update struct {
	Status            *filebrain.CrawlStatus
	Stats             *filebrain.CrawlStats
	WatchPaths        []filebrain.WatchPath
	ReplaceWatchPaths bool
	Initialization    *filebrain.SystemInitialization
}

// WatchPathsUpdate builds an Update replacing only the watch path list.
func WatchPathsUpdate(paths []filebrain.WatchPath) Update {
	return Update{WatchPaths: paths, ReplaceWatchPaths: true}
}

// Empty reports whether the update would change nothing.
func (u Update) Empty() bool {
	return u.Status == nil && u.Stats == nil && !u.ReplaceWatchPaths && u.Initialization == nil
}

// Error sources. A source's error stays visible until that same source
// recovers.
const (
	SourceStatus         = "status"
	SourceStats          = "stats"
	SourceWatchPaths     = "watch paths"
	SourceInitialization = "initialization"
	SourceCrawlerStream  = "crawler stream"
	SourceInitStream     = "initialization stream"
)

// Store coordinates concurrent updates to the snapshot. The zero value is
// ready to use.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	errs     map[string]error
	errOrder []string // failing sources, most recent last

	subMu  sync.Mutex
	subs   map[int]chan struct{}
	nextID int
}

// Apply replaces exactly the slices present in u. Omitted slices keep their
// previous values. The error state is left alone; see ClearError.
func (s *Store) Apply(u Update) {
	if u.Empty() {
		return
	}
	s.mu.Lock()
	if u.Status != nil {
		s.snapshot.Status = *u.Status
		s.snapshot.HasStatus = true
	}
	if u.Stats != nil {
		s.snapshot.Stats = cloneStats(*u.Stats)
		s.snapshot.HasStats = true
	}
	if u.ReplaceWatchPaths {
		s.snapshot.WatchPaths = cloneWatchPaths(u.WatchPaths)
		s.snapshot.HasWatchPaths = true
	}
	if u.Initialization != nil {
		s.snapshot.Initialization = cloneInitialization(*u.Initialization)
		s.snapshot.HasInitialization = true
	}
	s.snapshot.LastUpdated = time.Now()
	s.mu.Unlock()

	s.notify()
}

// RecordError keeps the previous data but records err against source. It
// stays in LastError until ClearError is called for the same source.
func (s *Store) RecordError(source string, err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	if s.errs == nil {
		s.errs = make(map[string]error)
	}
	s.errs[source] = err
	s.errOrder = append(removeSource(s.errOrder, source), source)
	s.snapshot.LastError = err
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures++
	s.mu.Unlock()

	s.notify()
}

// ClearError marks source as healthy and resets the failure counter. Errors
// of other sources stay in LastError.
func (s *Store) ClearError(source string) {
	s.mu.Lock()
	_, failing := s.errs[source]
	changed := failing || s.snapshot.ConsecutiveFailures != 0
	s.snapshot.ConsecutiveFailures = 0
	if failing {
		delete(s.errs, source)
		s.errOrder = removeSource(s.errOrder, source)
		s.snapshot.LastError = nil
		if n := len(s.errOrder); n > 0 {
			s.snapshot.LastError = s.errs[s.errOrder[n-1]]
		}
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

func removeSource(order []string, source string) []string {
	out := order[:0]
	for _, name := range order {
		if name != source {
			out = append(out, name)
		}
	}
	return out
}

// SetLive records whether the push stream is connected.
func (s *Store) SetLive(live bool) {
	s.mu.Lock()
	changed := s.snapshot.Live != live
	s.snapshot.Live = live
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.WatchPaths = cloneWatchPaths(s.snapshot.WatchPaths)
	snap.Stats = cloneStats(s.snapshot.Stats)
	snap.Initialization = cloneInitialization(s.snapshot.Initialization)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

// Subscribe returns a channel that receives a signal after every change.
// Signals coalesce: a slow reader sees one pending signal, not a backlog.
// The returned function unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.subMu.Lock()
	if s.subs == nil {
		s.subs = make(map[int]chan struct{})
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func cloneWatchPaths(items []filebrain.WatchPath) []filebrain.WatchPath {
	if len(items) == 0 {
		return nil
	}
	dup := make([]filebrain.WatchPath, len(items))
	copy(dup, items)
	return dup
}

func cloneStats(stats filebrain.CrawlStats) filebrain.CrawlStats {
	stats.FileTypes = maps.Clone(stats.FileTypes)
	return stats
}

func cloneInitialization(si filebrain.SystemInitialization) filebrain.SystemInitialization {
	si.Services = maps.Clone(si.Services)
	si.Capabilities = maps.Clone(si.Capabilities)
	return si
}
