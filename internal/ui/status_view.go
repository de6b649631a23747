package ui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/filebrain/console/internal/filebrain"
	"github.com/filebrain/console/internal/fileops"
	"github.com/filebrain/console/internal/search"
)

// handleStatusKey starts or stops crawling and monitoring.
func (m Model) handleStatusKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.backend == nil {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.ToggleCrawl):
		if !m.snapshot.Capability(filebrain.CapabilityCrawlAPI) {
			m.showToast(fileops.ToastError, "Crawler is not available yet")
			return m, nil
		}
		if !m.begin(keyCrawl) {
			return m, nil
		}
		if m.snapshot.CrawlerRunning() {
			return m, m.actionCmd(keyCrawl, "Crawl stopping", m.backend.StopCrawl, true)
		}
		return m, m.actionCmd(keyCrawl, "Crawl started", m.backend.StartCrawl, true)

	case key.Matches(msg, m.keys.ToggleMonitoring):
		if !m.snapshot.Capability(filebrain.CapabilityCrawlAPI) {
			m.showToast(fileops.ToastError, "Crawler is not available yet")
			return m, nil
		}
		if !m.begin(keyMonitoring) {
			return m, nil
		}
		if m.snapshot.Status.MonitoringActive {
			return m, m.actionCmd(keyMonitoring, "Monitoring stopped", m.backend.StopMonitoring, true)
		}
		return m, m.actionCmd(keyMonitoring, "Monitoring started", m.backend.StartMonitoring, true)
	}
	return m, nil
}

// handleAction reconciles the reply of a crawler or wizard action.
func (m Model) handleAction(msg actionMsg) (tea.Model, tea.Cmd) {
	m.finish(msg.key)
	if msg.err != nil {
		m.logger.Warn("action failed", "action", msg.key, "error", msg.err)
		m.showError(msg.err)
		return m, nil
	}
	text := strings.TrimSpace(msg.resp.Message)
	if text == "" {
		text = msg.label
	}
	m.showToast(fileops.ToastSuccess, text)

	switch msg.key {
	case keyResetWizard:
		m.statusPending = true
		return m, fetchWizardStatusCmd(m.ctx, m.backend)
	case keyClearIndex:
		m.search.hits = nil
		m.search.facets = nil
		m.search.result = search.Result{}
		return m, m.issueSearch()
	}
	return m, nil
}

// renderStatus renders crawl progress, index stats and backend health.
func (m Model) renderStatus() string {
	styles := m.theme.Styles()
	snap := m.snapshot

	if !snap.HasStatus && !snap.HasStats && !snap.HasInitialization {
		msg := "Waiting for status..."
		if snap.LastError != nil {
			msg = "Status unavailable: " + errorText(snap.LastError)
		}
		return styles.MutedText.Render(msg)
	}

	colWidth := max((m.width-6)/2, 30)
	if m.width < LayoutCompactWidth {
		colWidth = max(m.width-4, 30)
	}

	crawl := styles.Panel.Width(colWidth).Render(m.renderCrawlSection(styles, colWidth-2))
	stats := styles.Panel.Width(colWidth).Render(m.renderStatsSection(styles, colWidth-2))
	system := styles.Panel.Width(colWidth).Render(m.renderSystemSection(styles, colWidth-2))

	if m.width < LayoutCompactWidth {
		return clipLines(lipgloss.JoinVertical(lipgloss.Left, crawl, stats, system), m.contentHeight())
	}
	left := lipgloss.JoinVertical(lipgloss.Left, crawl, system)
	return clipLines(lipgloss.JoinHorizontal(lipgloss.Top, left, stats), m.contentHeight())
}

func (m Model) renderCrawlSection(styles Styles, width int) string {
	st := m.snapshot.Status
	lines := []string{styles.AccentText.Bold(true).Render("Crawler")}

	state := styles.DangerText.Render("● Stopped")
	if m.snapshot.CrawlerRunning() {
		state = styles.SuccessText.Render("● Running")
		if job := st.JobLabel(); job != "" {
			state += styles.MutedText.Render("  " + titleCase(job))
		}
	}
	lines = append(lines, state)

	monitor := styles.MutedText.Render("Monitoring off")
	if st.MonitoringActive {
		monitor = styles.InfoText.Render("Monitoring for changes")
	}
	lines = append(lines, monitor, "")

	if !m.snapshot.HasStatus {
		return strings.Join(append(lines, styles.FaintText.Render("No crawl status yet")), "\n")
	}

	barWidth := max(width-24, 10)
	phase := func(label string, pct float64) string {
		return styles.MutedText.Render(padRight(label, 13)) +
			styles.InfoText.Render(progressBar(pct/100, barWidth)) + " " +
			styles.Text.Render(formatPercent(pct))
	}
	lines = append(lines,
		phase("Discovery", st.DiscoveryProgress),
		phase("Indexing", st.IndexingProgress),
		phase("Verification", st.VerificationProgress),
		"",
		styles.MutedText.Render(padRight("Indexed", 13))+
			styles.Text.Render(fmt.Sprintf("%d/%d", st.FilesIndexed, st.FilesDiscovered)),
		styles.MutedText.Render(padRight("Skipped", 13))+styles.Text.Render(formatCount(st.FilesSkipped)),
		styles.MutedText.Render(padRight("Orphans", 13))+styles.Text.Render(formatCount(st.OrphanCount)),
		styles.MutedText.Render(padRight("Queue", 13))+styles.Text.Render(formatCount(st.QueueSize)),
	)
	if eta := formatETA(st.ParsedEstimatedCompletion(), m.now()); eta != "" && st.Running {
		lines = append(lines, styles.MutedText.Render(padRight("ETA", 13))+styles.InfoText.Render(eta))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderStatsSection(styles Styles, width int) string {
	lines := []string{styles.AccentText.Bold(true).Render("Index")}
	if !m.snapshot.HasStats {
		return strings.Join(append(lines, styles.FaintText.Render("No statistics yet")), "\n")
	}
	stats := m.snapshot.Stats

	ratio := stats.IndexedRatio()
	barWidth := max(width-8, 10)
	lines = append(lines,
		styles.Text.Render(fmt.Sprintf("%s of %s files indexed", formatCount(stats.Indexed), formatCount(stats.Discovered))),
		styles.SuccessText.Render(progressBar(ratio, barWidth))+" "+styles.Text.Render(formatPercent(ratio*100)),
	)
	if !stats.Healthy {
		lines = append(lines, styles.WarningText.Render("Index reports problems"))
	}

	types := stats.TopFileTypes(TopFileTypes)
	if len(types) == 0 {
		return strings.Join(lines, "\n")
	}
	lines = append(lines, "", styles.AccentText.Bold(true).Render("File types"))
	top := types[0].Count
	countWidth := len(formatCount(top))
	extWidth := 10
	typeBar := max(width-extWidth-countWidth-2, 5)
	for _, t := range types {
		share := 0.0
		if top > 0 {
			share = float64(t.Count) / float64(top)
		}
		lines = append(lines,
			styles.Text.Render(padRight(truncate(t.Extension, extWidth-1), extWidth))+
				styles.InfoText.Render(progressBar(share, typeBar))+" "+
				styles.MutedText.Render(fmt.Sprintf("%*s", countWidth, formatCount(t.Count))))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderSystemSection(styles Styles, width int) string {
	lines := []string{styles.AccentText.Bold(true).Render("System")}
	snap := m.snapshot
	if !snap.HasInitialization {
		return strings.Join(append(lines, styles.FaintText.Render("No health report yet")), "\n")
	}
	si := snap.Initialization

	overall := si.OverallStatus
	if overall == "" {
		overall = "unknown"
	}
	head := styles.StateStyle(overall).Render(titleCase(overall))
	if !snap.IsInitializationComplete() {
		head += styles.MutedText.Render(" " + formatPercent(si.Progress) + " started")
	}
	lines = append(lines, head)
	if snap.DegradedMode() {
		lines = append(lines, styles.WarningText.Render("Running in degraded mode"))
	}
	if msg := strings.TrimSpace(si.Message); msg != "" {
		lines = append(lines, styles.MutedText.Render(truncate(msg, width)))
	}

	if len(si.Services) > 0 {
		lines = append(lines, "")
		for _, name := range slices.Sorted(maps.Keys(si.Services)) {
			svc := si.Services[name]
			row := styles.Text.Render(padRight(titleCase(name), 18)) + styles.StateStyle(svc.State).Render(titleCase(svc.State))
			if svc.RetryCount > 0 {
				row += styles.FaintText.Render(fmt.Sprintf(" retry %d", svc.RetryCount))
			}
			lines = append(lines, row)
			if svc.Message != "" && svc.State != filebrain.ServiceHealthy {
				lines = append(lines, styles.FaintText.Render("  "+truncate(svc.Message, width-2)))
			}
		}
	}

	if len(si.Capabilities) > 0 {
		lines = append(lines, "")
		for _, name := range slices.Sorted(maps.Keys(si.Capabilities)) {
			mark := styles.SuccessText.Render("✓ ")
			if !si.Capabilities[name] {
				mark = styles.DangerText.Render("✗ ")
			}
			lines = append(lines, mark+styles.Text.Render(titleCase(name)))
		}
	}
	return strings.Join(lines, "\n")
}
