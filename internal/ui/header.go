package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/filebrain/console/internal/fileops"
	"github.com/filebrain/console/internal/wizard"
)

// renderHeader renders the status bar with all information.
func (m Model) renderHeader() string {
	// Header uses Surface background
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	if !m.snapshot.HasStatus && !m.snapshot.HasStats {
		return m.renderConnectingHeader(styles, bg)
	}

	content := m.buildStatusContent(styles, bg)
	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		Render(content)
}

// renderConnectingHeader shows the connecting/error state.
func (m Model) renderConnectingHeader(styles Styles, bg BgStyle) string {
	sep := bg.Spaces(2)

	if err := m.snapshot.LastError; err != nil {
		last := "soon"
		if !m.snapshot.LastUpdated.IsZero() {
			last = m.snapshot.LastUpdated.Format("15:04:05")
		}
		parts := []string{
			bg.Render("filebrain", styles.Logo),
			bg.Render("API "+classifyConnectionError(err), styles.DangerText.Bold(true)),
			bg.Render("Retrying...", styles.WarningText.Bold(true)),
			bg.Render(last, styles.MutedText),
		}
		if m.logPath != "" {
			parts = append(parts,
				bg.Render("logs", styles.FaintText)+bg.Space()+
					bg.Render(truncateMiddle(m.logPath, 50), styles.MutedText))
		}
		return styles.Header.Width(m.width).Render(bg.Join(parts, sep))
	}

	return styles.Header.Width(m.width).Render(
		bg.Render("filebrain", styles.Logo) + sep +
			bg.Render("Connecting to File Brain...", styles.WarningText.Bold(true)),
	)
}

// buildStatusContent builds the status bar content string.
func (m Model) buildStatusContent(styles Styles, bg BgStyle) string {
	compact := m.width < LayoutCompactWidth
	snap := m.snapshot
	st := snap.Status

	parts := []string{bg.Render("filebrain", styles.Logo)}

	if snap.CrawlerRunning() {
		parts = append(parts, bg.Render("● ON", styles.SuccessText))
	} else {
		parts = append(parts, bg.Render("● OFF", styles.DangerText))
	}

	switch {
	case snap.IsOffline():
		parts = append(parts, bg.Render("OFFLINE", styles.DangerText.Bold(true)))
	case snap.Live:
		parts = append(parts, bg.Render("LIVE", styles.InfoText))
	default:
		parts = append(parts, bg.Render("POLLING", styles.WarningText))
	}

	if snap.HasStatus {
		label := "Indexed:"
		if compact {
			label = "Idx:"
		}
		parts = append(parts,
			bg.Label(label, fmt.Sprintf("%d/%d", st.FilesIndexed, st.FilesDiscovered), styles.MutedText, styles.Text))
		if job := st.JobLabel(); job != "" && st.Running && !compact {
			parts = append(parts, bg.Render("⚙ "+titleCase(job), styles.AccentText))
		}
		if st.Running {
			if eta := formatETA(st.ParsedEstimatedCompletion(), m.now()); eta != "" {
				parts = append(parts, bg.Label("ETA:", eta, styles.MutedText, styles.InfoText))
			}
		}
	}

	if st.MonitoringActive && !compact {
		parts = append(parts, bg.Render("watching", styles.FaintText))
	}

	if ts := m.formatTimestamp(); ts != "" {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	if warn := m.formatHealthWarning(compact, styles, bg); warn != "" {
		parts = append(parts, warn)
	}

	if snap.LastError != nil {
		maxErr := ternaryInt(compact, 40, 80)
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText.Bold(true))+bg.Space()+
				bg.Render(truncate(errorText(snap.LastError), maxErr), styles.DangerText))
	}

	return bg.Join(parts, "  ")
}

// formatTimestamp formats the last update time with relative indicator.
func (m Model) formatTimestamp() string {
	last := m.snapshot.LastUpdated
	if last.IsZero() {
		return ""
	}
	return last.Format("15:04:05") + " (" + formatAge(last, m.now()) + ")"
}

// formatHealthWarning summarises degraded mode and unhealthy services.
func (m Model) formatHealthWarning(compact bool, styles Styles, bg BgStyle) string {
	if !m.snapshot.HasInitialization {
		return ""
	}
	unhealthy := m.snapshot.Initialization.UnhealthyServices()
	degraded := m.snapshot.DegradedMode()
	if len(unhealthy) == 0 && !degraded {
		return ""
	}

	label := "HEALTH"
	if degraded {
		label = "DEGRADED"
	}
	if len(unhealthy) == 0 {
		return bg.Render(label, styles.WarningText.Bold(true))
	}

	detail := unhealthy[0]
	if len(unhealthy) > 1 {
		detail = fmt.Sprintf("%s +%d more", detail, len(unhealthy)-1)
	}
	detail = truncate(detail, ternaryInt(compact, 40, 80))
	return bg.Render(label, styles.DangerText.Bold(true)) + bg.Space() +
		bg.Render(detail, styles.DangerText)
}

// classifyConnectionError returns a short description of the connection error.
func classifyConnectionError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "TIMEOUT"
	default:
		return "ERROR"
	}
}

// renderCommandBar renders the key hints for the active screen.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch {
	case m.screen == screenConnecting:
		commands = []cmd{{"R", "Retry"}, {"?", "Help"}, {"q", "Quit"}}
	case m.screen == screenWizard:
		commands = []cmd{{"enter", "Run"}, {"t", "Retry"}, {"b", "Back"}, {"n", "Next"}}
		if m.wizardState.Step == wizard.StepCreateCollection {
			commands = append(commands, cmd{"X", "Reset DB"})
		}
		commands = append(commands, cmd{"q", "Quit"})
	case m.picker != nil:
		commands = []cmd{{"enter", "Open"}, {"bksp", "Up"}, {"space", "Mark"}, {"a", "Add"}, {"esc", "Cancel"}}
	default:
		switch m.currentView {
		case ViewSearch:
			if m.search.input.Focused() {
				commands = []cmd{{"enter", "Browse"}, {"↑/↓", "Select"}, {"tab", "Next view"}}
			} else {
				commands = []cmd{{"/", "Search"}, {"f", facetHint(m.search.facet)}, {"n/p", "Page"},
					{"o", "Open"}, {"O", "Folder"}, {"D", "Delete"}, {"x", "Forget"}}
			}
		case ViewStatus:
			commands = []cmd{{"c", ternary(m.snapshot.CrawlerRunning(), "Stop crawl", "Start crawl")},
				{"m", ternary(m.snapshot.Status.MonitoringActive, "Stop monitor", "Monitor")}, {"R", "Refresh"}}
		case ViewWatch:
			commands = []cmd{{"a", "Add"}, {"i", "Import"}, {"space", "Enable"}, {"s", "Subfolders"}, {"d", "Remove"}}
		case ViewSettings:
			commands = []cmd{{"C", "Clear indexes"}, {"W", "Reset wizard"}, {"l", "Level"},
				{"F", ternary(m.settings.follow, "Pause", "Follow")}}
		}
		commands = append(commands, cmd{"1-4", m.currentView.String()}, cmd{"?", "More"})
	}

	colon := bg.Sep(":")
	sep := bg.Spaces(2)

	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, sep))
}

func facetHint(facet string) string {
	if facet == "" {
		return "Type"
	}
	return "Type:" + facet
}

// renderToast renders the toast line, or a blank line when none is shown.
func (m Model) renderToast() string {
	if m.toast == nil {
		return ""
	}
	styles := m.theme.Styles()
	style := styles.SuccessText
	icon := "✓ "
	if m.toast.kind == fileops.ToastError {
		style = styles.DangerText
		icon = "✗ "
	}
	return style.Render(truncate(icon+m.toast.text, max(m.width-1, 10)))
}

// renderConnecting is shown until the wizard status has been read.
func (m Model) renderConnecting() string {
	styles := m.theme.Styles()
	lines := []string{
		styles.Text.Render(m.spinner.View() + " Connecting to File Brain..."),
	}
	if m.wizardErr != nil {
		lines = append(lines,
			"",
			styles.DangerText.Render(errorText(m.wizardErr)),
			styles.MutedText.Render("Retrying automatically. Press R to retry now."),
		)
	}
	content := strings.Join(lines, "\n")
	return lipgloss.Place(max(m.width, 1), m.contentHeight(), lipgloss.Center, lipgloss.Center, content)
}

func ternaryInt(cond bool, a, b int) int {
	if cond {
		return a
	}
	return b
}
