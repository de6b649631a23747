// Package wizard implements the first-run setup wizard as an explicit state
// machine.
//
// The steps run in a fixed order:
//
//	DockerCheck → PullImages → StartServices → DownloadModel → CreateCollection → Complete
//
// Entering a step runs a read-only check. A satisfied step shows success and
// advances on its own after a short delay. Otherwise the step waits for Run,
// which either consumes a progress stream (image pull, model download) or
// triggers the operation and polls a status endpoint until it is ready or a
// timeout expires (service start, collection creation). Retry, Back and Enter
// only repeat checks; provisioning happens from Run and ResetCollection.
//
// Each transition receives a fresh context and generation number. Starting a
// transition cancels the previous one's timers, polls and streams, and any
// result carrying an old generation is dropped. Close cancels everything.
//
// Views observe the machine through Snapshot and the coalescing Changes
// channel. Every delay and timeout lives in Timings.
package wizard
