package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Escape     key.Binding
	Refresh    key.Binding

	// View switching
	ViewSearch   key.Binding
	ViewStatus   key.Binding
	ViewWatch    key.Binding
	ViewSettings key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Search
	FocusInput key.Binding
	CycleFacet key.Binding
	ClearFacet key.Binding
	NextPage   key.Binding
	PrevPage   key.Binding
	OpenFile   key.Binding
	OpenFolder key.Binding
	DeleteFile key.Binding
	ForgetFile key.Binding

	// Status
	ToggleCrawl      key.Binding
	ToggleMonitoring key.Binding

	// Watch paths
	AddPath       key.Binding
	ImportPaths   key.Binding
	ToggleEnabled key.Binding
	ToggleSubdirs key.Binding
	DeletePath    key.Binding
	MarkFolder    key.Binding
	AddMarked     key.Binding
	ParentFolder  key.Binding

	// Settings
	ClearIndexes key.Binding
	ResetWizard  key.Binding
	CycleLevel   key.Binding
	ToggleFollow key.Binding

	// Wizard
	WizardRun     key.Binding
	WizardRetry   key.Binding
	WizardBack    key.Binding
	WizardNext    key.Binding
	WizardResetDB key.Binding

	// Modals
	Confirm key.Binding
	Cancel  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next view"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous view"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Refresh"),
		),

		ViewSearch: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "Search"),
		),
		ViewStatus: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "Status"),
		),
		ViewWatch: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "Watch paths"),
		),
		ViewSettings: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "Settings"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("ctrl+u", "Page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("ctrl+d", "Page down"),
		),

		FocusInput: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Edit query"),
		),
		CycleFacet: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Next file type"),
		),
		ClearFacet: key.NewBinding(
			key.WithKeys("F"),
			key.WithHelp("F", "All file types"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("n", "right"),
			key.WithHelp("n", "Next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("p", "left"),
			key.WithHelp("p", "Previous page"),
		),
		OpenFile: key.NewBinding(
			key.WithKeys("o", "enter"),
			key.WithHelp("o", "Open file"),
		),
		OpenFolder: key.NewBinding(
			key.WithKeys("O"),
			key.WithHelp("O", "Open folder"),
		),
		DeleteFile: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "Delete file"),
		),
		ForgetFile: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Remove from index"),
		),

		ToggleCrawl: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Start/stop crawl"),
		),
		ToggleMonitoring: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "Start/stop monitoring"),
		),

		AddPath: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Add folder"),
		),
		ImportPaths: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "Import YAML"),
		),
		ToggleEnabled: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "Enable/disable"),
		),
		ToggleSubdirs: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Toggle subfolders"),
		),
		DeletePath: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Remove path"),
		),
		MarkFolder: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "Mark folder"),
		),
		AddMarked: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Add marked or current"),
		),
		ParentFolder: key.NewBinding(
			key.WithKeys("backspace", "h"),
			key.WithHelp("backspace", "Parent folder"),
		),

		ClearIndexes: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "Clear indexes"),
		),
		ResetWizard: key.NewBinding(
			key.WithKeys("W"),
			key.WithHelp("W", "Reset setup wizard"),
		),
		CycleLevel: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Cycle log level"),
		),
		ToggleFollow: key.NewBinding(
			key.WithKeys("F"),
			key.WithHelp("F", "Follow log"),
		),

		WizardRun: key.NewBinding(
			key.WithKeys("enter", "r"),
			key.WithHelp("enter", "Run step"),
		),
		WizardRetry: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "Retry check"),
		),
		WizardBack: key.NewBinding(
			key.WithKeys("b", "left"),
			key.WithHelp("b", "Back"),
		),
		WizardNext: key.NewBinding(
			key.WithKeys("n", "right"),
			key.WithHelp("n", "Next"),
		),
		WizardResetDB: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "Reset collection"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y", "Confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n", "Cancel"),
		),
	}
}

// FullHelp returns key bindings grouped as in the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ViewSearch, k.ViewStatus, k.ViewWatch, k.ViewSettings, k.Refresh},
		{k.Up, k.Down, k.Top, k.Bottom, k.PageUp, k.PageDown},
		{k.FocusInput, k.CycleFacet, k.ClearFacet, k.NextPage, k.PrevPage, k.OpenFile, k.OpenFolder, k.DeleteFile, k.ForgetFile},
		{k.ToggleCrawl, k.ToggleMonitoring},
		{k.AddPath, k.ImportPaths, k.ToggleEnabled, k.ToggleSubdirs, k.DeletePath},
		{k.ClearIndexes, k.ResetWizard, k.CycleLevel, k.ToggleFollow},
		{k.WizardRun, k.WizardRetry, k.WizardBack, k.WizardNext, k.WizardResetDB},
		{k.CycleTheme, k.Help, k.Quit},
	}
}
