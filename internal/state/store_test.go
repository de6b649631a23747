package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/filebrain/console/internal/filebrain"
)

func TestStore_ApplyAndSnapshotClone(t *testing.T) {
	var s Store

	before := time.Now()
	s.Apply(Update{
		Status:            &filebrain.CrawlStatus{Running: true, FilesIndexed: 10, FilesDiscovered: 100},
		Stats:             &filebrain.CrawlStats{FileTypes: map[string]int64{".pdf": 2}},
		WatchPaths:        []filebrain.WatchPath{{ID: 1, Path: "/docs"}, {ID: 2, Path: "/src"}},
		ReplaceWatchPaths: true,
	})

	snap := s.Snapshot()
	if !snap.HasStatus || !snap.Status.Running || snap.Status.FilesIndexed != 10 {
		t.Fatalf("snapshot status = %#v, want running 10 indexed", snap.Status)
	}
	if len(snap.WatchPaths) != 2 || snap.WatchPaths[0].ID != 1 {
		t.Fatalf("snapshot watch paths = %#v, want 2 items", snap.WatchPaths)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError != nil {
		t.Fatalf("LastError = %v, want nil", snap.LastError)
	}

	// Returned snapshot should be independent of the stored one.
	snap.WatchPaths[0].ID = 999
	snap.Stats.FileTypes[".pdf"] = 999
	snap2 := s.Snapshot()
	if snap2.WatchPaths[0].ID != 1 {
		t.Fatalf("Snapshot should clone watch paths; got id %d want 1", snap2.WatchPaths[0].ID)
	}
	if snap2.Stats.FileTypes[".pdf"] != 2 {
		t.Fatalf("Snapshot should clone file types; got %d want 2", snap2.Stats.FileTypes[".pdf"])
	}
}

func TestStore_PartialApplyLeavesOtherSlices(t *testing.T) {
	var s Store

	s.Apply(Update{
		Status:            &filebrain.CrawlStatus{Running: true, FilesIndexed: 5},
		Stats:             &filebrain.CrawlStats{Discovered: 50, Indexed: 5},
		WatchPaths:        []filebrain.WatchPath{{ID: 1}},
		ReplaceWatchPaths: true,
		Initialization:    &filebrain.SystemInitialization{Progress: 40},
	})
	before := s.Snapshot()

	s.Apply(Update{Stats: &filebrain.CrawlStats{Discovered: 60, Indexed: 30}})

	after := s.Snapshot()
	if after.Stats.Indexed != 30 || after.Stats.Discovered != 60 {
		t.Fatalf("stats = %#v, want replaced", after.Stats)
	}
	if after.Status != before.Status {
		t.Fatalf("status changed: got %#v want %#v", after.Status, before.Status)
	}
	if !reflect.DeepEqual(after.WatchPaths, before.WatchPaths) {
		t.Fatalf("watch paths changed: got %#v want %#v", after.WatchPaths, before.WatchPaths)
	}
	if after.Initialization.Progress != 40 {
		t.Fatalf("initialization changed: got %#v", after.Initialization)
	}
}

func TestStore_ApplyReplacesSliceWholesale(t *testing.T) {
	var s Store

	s.Apply(Update{Stats: &filebrain.CrawlStats{FileTypes: map[string]int64{".pdf": 1, ".md": 2}}})
	s.Apply(Update{Stats: &filebrain.CrawlStats{FileTypes: map[string]int64{".txt": 3}}})

	snap := s.Snapshot()
	if len(snap.Stats.FileTypes) != 1 || snap.Stats.FileTypes[".txt"] != 3 {
		t.Fatalf("file types = %v, want only .txt", snap.Stats.FileTypes)
	}
}

func TestStore_EmptyWatchPathListIsApplied(t *testing.T) {
	var s Store

	s.Apply(WatchPathsUpdate([]filebrain.WatchPath{{ID: 1}}))
	s.Apply(WatchPathsUpdate(nil))

	snap := s.Snapshot()
	if !snap.HasWatchPaths || len(snap.WatchPaths) != 0 {
		t.Fatalf("watch paths = %#v, want empty replaced list", snap.WatchPaths)
	}
}

func TestStore_RecordErrorKeepsPreviousData(t *testing.T) {
	var s Store

	s.Apply(Update{Status: &filebrain.CrawlStatus{FilesIndexed: 1}})
	prev := s.Snapshot()

	before := time.Now()
	origErr := errors.New("boom")
	s.RecordError(SourceStatus, origErr)

	snap := s.Snapshot()
	if snap.HasStatus != prev.HasStatus || snap.Status.FilesIndexed != prev.Status.FilesIndexed {
		t.Fatalf("status changed on error: got %#v want %#v", snap.Status, prev.Status)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError == nil || snap.LastError.Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store

	if s.Snapshot().IsOffline() {
		t.Fatal("IsOffline() = true, want false with 0 failures")
	}

	s.RecordError(SourceStatus, errors.New("fail 1"))
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 1 || snap.IsOffline() {
		t.Fatalf("after one failure: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	s.RecordError(SourceStatus, errors.New("fail 2"))
	if !s.Snapshot().IsOffline() {
		t.Fatal("IsOffline() = false, want true with 2 failures")
	}

	s.ClearError(SourceStatus)
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 0 || snap.LastError != nil {
		t.Fatalf("recovery should reset failures: failures=%d err=%v", snap.ConsecutiveFailures, snap.LastError)
	}

	s.RecordError(SourceStatus, nil)
	if s.Snapshot().ConsecutiveFailures != 0 {
		t.Fatal("RecordError(nil) should be a no-op")
	}
}

func TestStore_ErrorsAreTrackedPerSource(t *testing.T) {
	var s Store

	s.RecordError(SourceStats, errors.New("stats down"))
	s.Apply(Update{Status: &filebrain.CrawlStatus{Running: true}})
	s.ClearError(SourceStatus)
	if err := s.Snapshot().LastError; err == nil || err.Error() != "stats down" {
		t.Fatalf("LastError = %v, want stats down to survive another slice's success", err)
	}

	s.RecordError(SourceCrawlerStream, errors.New("crawler crashed"))
	s.ClearError(SourceStats)
	snap := s.Snapshot()
	if snap.LastError == nil || snap.LastError.Error() != "crawler crashed" {
		t.Fatalf("LastError = %v, want crawler crashed", snap.LastError)
	}
	if snap.ConsecutiveFailures != 0 || snap.IsOffline() {
		t.Fatalf("ConsecutiveFailures = %d, want 0 after a successful fetch", snap.ConsecutiveFailures)
	}

	s.RecordError(SourceStats, errors.New("stats down again"))
	s.ClearError(SourceStats)
	if err := s.Snapshot().LastError; err == nil || err.Error() != "crawler crashed" {
		t.Fatalf("LastError = %v, want the older still-failing source", err)
	}

	s.ClearError(SourceCrawlerStream)
	if snap := s.Snapshot(); snap.LastError != nil || snap.ConsecutiveFailures != 0 {
		t.Fatalf("all recovered: err=%v failures=%d", snap.LastError, snap.ConsecutiveFailures)
	}
}

func TestSnapshot_DerivedFlags(t *testing.T) {
	var s Store

	snap := s.Snapshot()
	if snap.IsInitializationComplete() || snap.IsSystemHealthy() || snap.DegradedMode() {
		t.Fatalf("empty snapshot should report nothing complete or healthy")
	}
	if !snap.Capability(filebrain.CapabilitySearchAPI) {
		t.Fatalf("unknown capability should default to available")
	}

	s.Apply(Update{Initialization: &filebrain.SystemInitialization{
		OverallStatus: "initializing",
		Progress:      60,
		Capabilities:  map[string]bool{filebrain.CapabilitySearchAPI: false, filebrain.CapabilityCrawlAPI: true},
		DegradedMode:  true,
	}})
	snap = s.Snapshot()
	if snap.IsInitializationComplete() {
		t.Fatalf("progress 60 should not be complete")
	}
	if snap.IsSystemHealthy() {
		t.Fatalf("initializing should not be healthy")
	}
	if snap.Capability(filebrain.CapabilitySearchAPI) || !snap.Capability(filebrain.CapabilityCrawlAPI) {
		t.Fatalf("capabilities = %v", snap.Initialization.Capabilities)
	}
	if snap.Capability(filebrain.CapabilityFullFunctionality) {
		t.Fatalf("missing capability should be unavailable once reported")
	}
	if !snap.DegradedMode() {
		t.Fatalf("DegradedMode = false, want true")
	}

	s.Apply(Update{Initialization: &filebrain.SystemInitialization{OverallStatus: "healthy", Progress: 100}})
	snap = s.Snapshot()
	if !snap.IsInitializationComplete() || !snap.IsSystemHealthy() {
		t.Fatalf("progress 100 healthy should be complete and healthy")
	}
}

func TestSnapshot_CrawlerRunning(t *testing.T) {
	var s Store
	s.Apply(Update{Stats: &filebrain.CrawlStats{Runtime: filebrain.StatsRuntime{Running: true}}})
	if !s.Snapshot().CrawlerRunning() {
		t.Fatalf("stats runtime should count when status is unknown")
	}
	s.Apply(Update{Status: &filebrain.CrawlStatus{Running: false}})
	if s.Snapshot().CrawlerRunning() {
		t.Fatalf("status slice should win once known")
	}
}

func TestStore_SubscribeCoalesces(t *testing.T) {
	var s Store

	ch, unsubscribe := s.Subscribe()
	s.Apply(Update{Status: &filebrain.CrawlStatus{}})
	s.SetLive(true)
	s.RecordError(SourceStats, errors.New("x"))

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected change signal")
	}
	select {
	case <-ch:
		t.Fatal("signals should coalesce into one")
	default:
	}

	s.SetLive(true)
	select {
	case <-ch:
		t.Fatal("SetLive without change should not notify")
	default:
	}

	unsubscribe()
	unsubscribe()
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
	s.Apply(Update{Status: &filebrain.CrawlStatus{}})
}
