package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutDetailWidth is the minimum width to show the search detail panel.
	LayoutDetailWidth = 120

	// FacetSidebarWidth is the width of the file-type facet column.
	FacetSidebarWidth = 18
)

// Display limits.
const (
	// SearchPerPage is the number of hits requested per page.
	SearchPerPage = 20

	// TopFileTypes is the number of extensions in the status breakdown.
	TopFileTypes = 10

	// LogTailLines is the number of filtered log lines shown in the settings view.
	LogTailLines = 500

	// LogBufferLimit is the maximum number of log lines kept in memory.
	LogBufferLimit = 5000

	// SettingsMenuHeight is the number of rows used by the settings menu.
	SettingsMenuHeight = 8

	// WizardLogLines is the number of companion log lines shown per step.
	WizardLogLines = 12
)

// Timing constants.
const (
	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = time.Second

	// RequestTimeout bounds every request issued from the UI.
	RequestTimeout = 15 * time.Second

	// ToastDuration is how long a toast stays visible.
	ToastDuration = 4 * time.Second
)
