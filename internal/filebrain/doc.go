// Package filebrain provides an HTTP client for the File Brain backend API.
//
// # Overview
//
// The backend owns crawling, indexing, watch-path configuration, container
// orchestration and the setup wizard's persisted progress. This package is
// the console's only way to reach it: typed request/response shapes for
// every endpoint plus a reader for its Server-Sent-Events streams.
//
// # Architecture
//
//   - client.go: Client construction, request execution, APIError
//   - crawler.go: crawler control, statistics, watch paths, folder browsing
//   - wizard.go: setup wizard endpoints
//   - files.go: open, delete and forget operations on indexed files
//   - sse.go: low-level event-stream framing
//   - stream.go: typed stream events and the Stream reader
//   - types.go: data structures mirroring the backend schema
//
// # Client Usage
//
//	client, err := filebrain.NewClient("http://127.0.0.1:8000", "/api/v1")
//	if err != nil {
//		return err
//	}
//	status, err := client.FetchStatus(ctx)
//
// The prefix selects the API generation. Current backends serve "/api/v1";
// older deployments serve "/api".
//
// # Streams
//
// OpenStream returns a Stream whose Next method yields StreamEvent values.
// Each message is classified once into update, heartbeat, complete or error.
// Heartbeats are dropped by Next; complete and error end the logical stream,
// after which Next returns io.EOF.
//
//	stream, err := client.OpenStream(ctx, filebrain.StreamCrawler)
//	if err != nil {
//		return err
//	}
//	defer stream.Close()
//	for {
//		evt, err := stream.Next(ctx)
//		if err != nil {
//			return err
//		}
//		...
//	}
//
// NewStream wraps any io.ReadCloser, which lets tests feed streams through
// an io.Pipe without a server.
//
// # Errors
//
// Transport failures are wrapped with context. Non-2xx replies become
// *APIError with the backend's detail/error/message text preserved exactly;
// ErrorMessage extracts that text for display.
//
// # Tracing
//
// Every request runs inside an OpenTelemetry client span and carries the
// global propagator's headers plus a fresh X-Request-ID. With no tracer
// provider installed the spans are no-ops.
package filebrain
