package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/filebrain/console/internal/logtail"
)

// settingsState holds the maintenance menu and the console log tail.
type settingsState struct {
	viewport viewport.Model
	lines    []string
	offset   int64
	level    logtail.Level
	follow   bool
	loaded   bool
	reading  bool
	err      error
}

func newSettingsState() settingsState {
	return settingsState{
		viewport: viewport.New(80, 10),
		follow:   true,
	}
}

// nextLevel cycles all -> info -> warn -> error -> all.
func nextLevel(l logtail.Level) logtail.Level {
	switch l {
	case logtail.LevelUnknown, logtail.LevelDebug:
		return logtail.LevelInfo
	case logtail.LevelInfo:
		return logtail.LevelWarn
	case logtail.LevelWarn:
		return logtail.LevelError
	default:
		return logtail.LevelUnknown
	}
}

func levelLabel(l logtail.Level) string {
	if l == logtail.LevelUnknown {
		return "all"
	}
	return strings.ToLower(l.String()) + "+"
}

func (m Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ClearIndexes):
		if m.backend == nil || m.inflight[keyClearIndex] {
			return m, nil
		}
		m.confirm = newConfirm("Clear all indexes?",
			"Every indexed document is removed. Files on disk are not touched; a new crawl rebuilds the index.",
			keyClearIndex,
			m.actionCmd(keyClearIndex, "Indexes cleared", m.backend.ClearIndexes, true))
		return m, nil

	case key.Matches(msg, m.keys.ResetWizard):
		if m.backend == nil || m.inflight[keyResetWizard] {
			return m, nil
		}
		m.confirm = newConfirm("Reset setup wizard?",
			"The setup wizard runs again from the first step. Watch paths and indexes are kept.",
			keyResetWizard,
			m.actionCmd(keyResetWizard, "Setup wizard reset", m.backend.ResetWizard, false))
		return m, nil

	case key.Matches(msg, m.keys.CycleLevel):
		m.settings.level = nextLevel(m.settings.level)
		m.refreshLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.ToggleFollow):
		m.settings.follow = !m.settings.follow
		if m.settings.follow {
			m.settings.viewport.GotoBottom()
			return m, m.readLogCmd(false)
		}
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.settings.follow = false
		m.settings.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.settings.viewport.GotoBottom()
		return m, nil
	}

	// Manual scrolling stops following the tail.
	var cmd tea.Cmd
	before := m.settings.viewport.YOffset
	m.settings.viewport, cmd = m.settings.viewport.Update(msg)
	if m.settings.viewport.YOffset < before {
		m.settings.follow = false
	}
	return m, cmd
}

func (m *Model) handleLogLines(msg logMsg) {
	s := &m.settings
	s.reading = false
	if msg.err != nil {
		s.err = msg.err
		s.loaded = true
		m.refreshLogViewport()
		return
	}
	s.err = nil
	if msg.reset {
		s.lines = msg.lines
	} else if len(msg.lines) > 0 {
		s.lines = append(s.lines, msg.lines...)
	}
	if over := len(s.lines) - LogBufferLimit; over > 0 {
		s.lines = append([]string(nil), s.lines[over:]...)
	}
	s.offset = msg.offset
	s.loaded = true
	if msg.reset || len(msg.lines) > 0 {
		m.refreshLogViewport()
	}
}

// refreshLogViewport re-applies the level filter to the buffered lines.
func (m *Model) refreshLogViewport() {
	s := &m.settings
	switch {
	case s.err != nil:
		s.viewport.SetContent(m.theme.Styles().DangerText.Render("Log unavailable: " + s.err.Error()))
		return
	case !s.loaded:
		return
	}
	lines := logtail.Filter(s.lines, s.level)
	if len(lines) > LogTailLines {
		lines = lines[len(lines)-LogTailLines:]
	}
	if len(lines) == 0 {
		s.viewport.SetContent(m.theme.Styles().MutedText.Render("No log lines"))
		return
	}
	s.viewport.SetContent(strings.Join(lines, "\n"))
	if s.follow {
		s.viewport.GotoBottom()
	}
}

func (m Model) renderSettings() string {
	styles := m.theme.Styles()
	width := max(m.width-4, 20)
	s := m.settings

	label := func(name, value string) string {
		return styles.MutedText.Render(padRight(name, 12)) + styles.Text.Render(value)
	}
	logPath := m.logPath
	if logPath == "" {
		logPath = "(stderr only)"
	}
	menu := []string{
		styles.AccentText.Bold(true).Render("Settings"),
		label("Theme", m.theme.Name),
		label("Log file", truncateMiddle(logPath, width-14)),
		label("Log level", levelLabel(s.level)) + "   " + label("Follow", ternary(s.follow, "on", "off")),
		"",
		styles.WarningText.Render("C") + styles.MutedText.Render(" clear all indexes   ") +
			styles.WarningText.Render("W") + styles.MutedText.Render(" reset setup wizard"),
	}
	if m.inflight[keyClearIndex] {
		menu = append(menu, styles.InfoText.Render(m.spinner.View()+" Clearing indexes..."))
	}
	if m.inflight[keyResetWizard] {
		menu = append(menu, styles.InfoText.Render(m.spinner.View()+" Resetting wizard..."))
	}
	menuBlock := strings.Join(clipSlice(menu, SettingsMenuHeight), "\n")

	var logBody string
	switch {
	case m.logPath == "":
		logBody = styles.MutedText.Render("Logging to a file is disabled")
	case !s.loaded:
		logBody = styles.MutedText.Render("Loading log...")
	default:
		logBody = s.viewport.View()
	}
	logPanel := styles.Panel.Width(width).Render(logBody)
	return menuBlock + "\n" + logPanel
}

