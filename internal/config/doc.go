// Package config loads fbconsole's connection settings.
//
// # Resolution order
//
//  1. Built-in defaults (Default)
//  2. The TOML file given with -config, or ~/.config/filebrain/console.toml
//  3. Environment variables (FILEBRAIN_* and OTEL_EXPORTER_OTLP_ENDPOINT),
//     which callers may populate from a .env file before calling Load
//
// A missing file is not an error. Empty values in the file or environment
// keep the previous layer's value.
//
// # TOML format
//
//	api_url = "http://127.0.0.1:8000"
//	api_prefix = "/api/v1"          # "/api" for older backends, "/" for none
//	search_url = "http://127.0.0.1:8108"
//	search_api_key = "xyz"
//	search_collection = "files"
//	log_file = "~/.local/state/filebrain/fbconsole.log"
//	otel_endpoint = ""              # OTLP/HTTP collector; empty disables tracing
//	poll_interval_seconds = 5
//
// The sample search key is the engine's development default. Real
// deployments should configure a search-only scoped key; the console logs a
// warning when the sample key is in use.
//
// # Path expansion
//
// The config path and log_file accept ~ and relative paths; both are
// resolved to absolute paths.
package config
