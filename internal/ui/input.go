package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/filebrain/console/internal/prefs"
)

// handleKey routes keyboard input: overlays first, then the active screen.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.confirm != nil {
		_, cmd, closed := m.confirm.Update(msg, m.keys)
		if !closed {
			return m, nil
		}
		c := m.confirm
		m.confirm = nil
		if cmd == nil || !m.begin(c.inflightKey) {
			return m, nil
		}
		return m, cmd
	}

	if m.prompt != nil {
		_, cmd, closed := m.prompt.Update(msg, m.keys)
		if !closed {
			return m, cmd
		}
		p := m.prompt
		m.prompt = nil
		if cmd == nil || !m.begin(p.inflightKey) {
			return m, nil
		}
		return m, cmd
	}

	switch m.screen {
	case screenConnecting:
		return m.handleConnectingKey(msg)
	case screenWizard:
		return m.handleWizardKey(msg)
	}

	if m.picker != nil {
		return m.handlePickerKey(msg)
	}
	if m.currentView == ViewSearch && m.search.input.Focused() {
		return m.handleSearchInputKey(msg)
	}
	return m.handleMainKey(msg)
}

// handleGlobalKey handles keys shared by every screen. It reports whether
// the key was consumed.
func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit, true
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return nil, true
	case key.Matches(msg, m.keys.CycleTheme):
		m.cycleTheme()
		return nil, true
	}
	return nil, false
}

func (m *Model) cycleTheme() {
	m.theme = GetTheme(NextTheme(m.theme.Name))
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name}); err != nil {
		m.logger.Warn("save preferences failed", "error", err)
		m.showError(err)
	}
}

func (m Model) handleConnectingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if cmd, ok := m.handleGlobalKey(msg); ok {
		return m, cmd
	}
	if key.Matches(msg, m.keys.Refresh) && !m.statusPending && m.backend != nil {
		m.statusPending = true
		return m, fetchWizardStatusCmd(m.ctx, m.backend)
	}
	return m, nil
}

// handleMainKey processes keys for the main views.
func (m Model) handleMainKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if cmd, ok := m.handleGlobalKey(msg); ok {
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Tab):
		return m, m.switchView(m.offsetView(1))
	case key.Matches(msg, m.keys.ShiftTab):
		return m, m.switchView(m.offsetView(-1))
	case key.Matches(msg, m.keys.ViewSearch):
		return m, m.switchView(ViewSearch)
	case key.Matches(msg, m.keys.ViewStatus):
		return m, m.switchView(ViewStatus)
	case key.Matches(msg, m.keys.ViewWatch):
		return m, m.switchView(ViewWatch)
	case key.Matches(msg, m.keys.ViewSettings):
		return m, m.switchView(ViewSettings)
	case key.Matches(msg, m.keys.Refresh):
		cmds := []tea.Cmd{m.refreshStatusCmd()}
		if m.currentView == ViewSearch {
			cmds = append(cmds, m.issueSearch())
		}
		return m, tea.Batch(cmds...)
	}

	switch m.currentView {
	case ViewSearch:
		return m.handleSearchKey(msg)
	case ViewStatus:
		return m.handleStatusKey(msg)
	case ViewWatch:
		return m.handleWatchKey(msg)
	case ViewSettings:
		return m.handleSettingsKey(msg)
	}
	return m, nil
}

func (m Model) offsetView(delta int) View {
	n := len(viewOrder)
	for i, v := range viewOrder {
		if v == m.currentView {
			return viewOrder[((i+delta)%n+n)%n]
		}
	}
	return ViewSearch
}

// switchView activates v and loads whatever it shows on first entry.
func (m *Model) switchView(v View) tea.Cmd {
	m.currentView = v
	switch v {
	case ViewSettings:
		if !m.settings.loaded {
			return m.readLogCmd(true)
		}
	case ViewSearch:
		return m.search.input.Focus()
	}
	return nil
}
