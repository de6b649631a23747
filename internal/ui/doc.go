// Package ui provides the fbconsole terminal interface, built on Bubble Tea.
//
// # Screens
//
// The model starts on a connecting screen until /wizard/status answers.
// An incomplete setup shows the wizard; a completed one shows the main
// views. Exactly one of the two is visible at any time.
//
// # Main views
//
//   - Search: search-as-you-type against the search engine, a file-type
//     facet sidebar, paging, and open/delete/forget on the selected hit
//   - Status: crawl phases and counters, index statistics, service health
//   - Watch Paths: the watched folder list, a folder picker for adding
//     folders, and YAML imports
//   - Settings: theme, clear indexes, reset wizard, and the console log
//
// # Event flow
//
//  1. Run subscribes to state.Store and starts the Bubble Tea program
//  2. Store and wizard change signals arrive as messages and re-arm
//  3. Backend calls run as commands; their replies come back as messages
//  4. Actions are keyed while in flight, so repeated triggers are ignored
//  5. Context cancellation ends the program
//
// # Key bindings
//
//   - 1-4, Tab: switch views
//   - /: focus the search input
//   - c, m: toggle crawling and monitoring
//   - T: cycle theme (persisted to the preferences file)
//   - ?: help
//   - q or Ctrl+C: exit
package ui
