// Package app wires configuration, logging, tracing, the API clients, the
// status synchroniser and the UI into the fbconsole program.
//
// # Startup
//
//  1. Load console.toml and FILEBRAIN_* overrides
//  2. Open the log file and install the OpenTelemetry tracer provider
//  3. Build the File Brain and search engine clients
//  4. Start the Syncer, which fills state.Store
//  5. Run the Bubble Tea program until the user quits
//
// # Synchronisation
//
// The Syncer keeps the store current from two server-sent event streams:
// crawler status and system initialisation. While the crawler stream is down
// a fallback poller fetches status, stats, watch paths and initialisation at
// a fixed interval; reconnect attempts back off exponentially up to 30s.
//
// Each fetched slice is applied on its own. A failing endpoint records an
// error in the store and never clears the data already shown.
//
// # Shutdown
//
// Cancelling the context stops the UI, the streams and the poller. Run waits
// for the Syncer to exit and then flushes pending trace spans.
package app
