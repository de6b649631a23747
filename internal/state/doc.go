// Package state provides thread-safe state management for the console.
//
// # Overview
//
// This package holds the latest known crawl status, crawl statistics, watch
// path list and system initialisation report. It is the coordination point
// where stream messages and poll results meet view rendering.
//
// # Architecture
//
//	Producer (Syncer):              Consumers (views):
//	┌──────────────────┐            ┌──────────────────┐
//	│ stream message   │            │                  │
//	│ or poll result   │            │ <-Subscribe()    │
//	│      ↓           │            │      ↓           │
//	│ store.Apply()    │───────────→│ store.Snapshot() │
//	│ store.SetLive()  │  (mutex)   │      ↓           │
//	│ store.RecordErr()│            │  render          │
//	└──────────────────┘            └──────────────────┘
//
// Only Apply, RecordError, ClearError and SetLive mutate the store.
//
// # Update Semantics
//
// An Update names the slices it replaces. Apply swaps exactly those slices
// wholesale and leaves the rest alone:
//
//	store.Apply(state.Update{Stats: stats})
//	→ snapshot.Stats = stats
//	→ snapshot.Status, WatchPaths, Initialization = <unchanged>
//	→ error state = <unchanged>
//
//	store.RecordError(state.SourceStats, err)
//	→ every slice = <unchanged>
//	→ snapshot.LastError = err, ConsecutiveFailures++
//
//	store.ClearError(state.SourceStats)
//	→ snapshot.LastError = latest error of another failing source, or nil
//	→ ConsecutiveFailures = 0
//
// Errors are tracked per source, so a healthy endpoint never hides the
// failure of another one, and a push stream error survives the poll rounds
// it triggers.
//
// Updates are applied in the order they arrive. The store does not compare
// timestamps between transports, so the most recently applied update wins.
//
// # Derived Flags
//
// IsInitializationComplete, IsSystemHealthy, Capability and DegradedMode are
// methods on Snapshot and are computed from the initialisation slice on every
// read. Nothing derived is stored.
//
// # Change Notification
//
// Subscribe returns a channel with a one-slot buffer. Notifications never
// block the writer; several changes between two reads collapse into a single
// signal, after which the reader takes a fresh Snapshot.
//
// # Defensive Copying
//
// Snapshot clones the watch path slice and the maps inside the stats and
// initialisation slices, so callers may modify what they receive.
package state
