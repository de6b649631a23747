package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/filebrain/console/internal/filebrain"
	"github.com/filebrain/console/internal/fileops"
	"github.com/filebrain/console/internal/watchpaths"
)

// watchState holds the watch path list selection and the last batch report.
type watchState struct {
	selected int
	report   *watchpaths.BatchReport
}

func (w *watchState) clamp(n int) {
	w.selected = max(min(w.selected, n-1), 0)
}

func (m Model) selectedWatchPath() (filebrain.WatchPath, bool) {
	paths := m.snapshot.WatchPaths
	i := m.watchUI.selected
	if i < 0 || i >= len(paths) {
		return filebrain.WatchPath{}, false
	}
	return paths[i], true
}

// watchReady reports whether watch path mutations can be sent, showing a
// toast when they cannot.
func (m *Model) watchReady() bool {
	if m.watch == nil {
		return false
	}
	if !m.snapshot.Capability(filebrain.CapabilityConfigurationAPI) {
		m.showToast(fileops.ToastError, "Configuration is not available yet")
		return false
	}
	return true
}

func (m Model) handleWatchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.snapshot.WatchPaths)
	switch {
	case key.Matches(msg, m.keys.Up):
		m.watchUI.selected--
		m.watchUI.clamp(n)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.watchUI.selected++
		m.watchUI.clamp(n)
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.watchUI.selected -= 10
		m.watchUI.clamp(n)
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.watchUI.selected += 10
		m.watchUI.clamp(n)
		return m, nil
	case key.Matches(msg, m.keys.Top):
		m.watchUI.selected = 0
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.watchUI.selected = n - 1
		m.watchUI.clamp(n)
		return m, nil
	}

	if !m.watchReady() {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.AddPath):
		if m.backend == nil {
			return m, nil
		}
		m.picker = &folderPicker{loading: true, marked: make(map[string]bool)}
		return m, m.fetchRootsCmd()

	case key.Matches(msg, m.keys.ImportPaths):
		m.prompt = newPrompt("Import watch paths from YAML", "~/filebrain-paths.yaml", keyWatchPaths, m.importCmd)
		return m, nil

	case key.Matches(msg, m.keys.ToggleEnabled):
		wp, ok := m.selectedWatchPath()
		if !ok || !m.begin(keyWatchPaths) {
			return m, nil
		}
		api := m.watch
		return m, m.watchCmd(keyWatchPaths, func(ctx context.Context) (string, *watchpaths.BatchReport, error) {
			updated, err := api.Toggle(ctx, wp)
			if err != nil {
				return "", nil, err
			}
			return fmt.Sprintf("%s %s", ternary(updated.Enabled, "Enabled", "Disabled"), updated.Path), nil, nil
		})

	case key.Matches(msg, m.keys.ToggleSubdirs):
		wp, ok := m.selectedWatchPath()
		if !ok || !m.begin(keyWatchPaths) {
			return m, nil
		}
		api := m.watch
		return m, m.watchCmd(keyWatchPaths, func(ctx context.Context) (string, *watchpaths.BatchReport, error) {
			updated, err := api.ToggleSubdirectories(ctx, wp)
			if err != nil {
				return "", nil, err
			}
			return fmt.Sprintf("%s now %s", updated.Path, ternary(updated.IncludeSubdirectories, "includes subfolders", "skips subfolders")), nil, nil
		})

	case key.Matches(msg, m.keys.DeletePath):
		wp, ok := m.selectedWatchPath()
		if !ok || m.inflight[keyWatchPaths] {
			return m, nil
		}
		api := m.watch
		m.confirm = newConfirm("Remove watch path?",
			fmt.Sprintf("%s will no longer be watched. Files already indexed stay in the index.", wp.Path),
			keyWatchPaths,
			m.watchCmd(keyWatchPaths, func(ctx context.Context) (string, *watchpaths.BatchReport, error) {
				if err := api.Delete(ctx, wp.ID); err != nil {
					return "", nil, err
				}
				return "Removed " + wp.Path, nil, nil
			}))
		return m, nil
	}
	return m, nil
}

// importCmd adds every path listed in a YAML file.
func (m Model) importCmd(path string) tea.Cmd {
	api := m.watch
	return m.watchCmd(keyWatchPaths, func(ctx context.Context) (string, *watchpaths.BatchReport, error) {
		report, err := api.Import(ctx, path)
		if err != nil {
			return "", nil, err
		}
		return "Import: " + report.Summary(), &report, nil
	})
}

func (m *Model) handleWatchResult(msg watchMsg) {
	m.finish(msg.key)
	if msg.err != nil {
		m.logger.Warn("watch path update failed", "error", msg.err)
		m.showError(msg.err)
		return
	}
	m.picker = nil
	if msg.report != nil {
		m.watchUI.report = msg.report
	}
	kind := fileops.ToastSuccess
	if msg.report != nil && len(msg.report.Added) == 0 && len(msg.report.Skipped) > 0 {
		kind = fileops.ToastError
	}
	m.showToast(kind, msg.text)
}

func (m Model) renderWatch() string {
	styles := m.theme.Styles()
	height := m.contentHeight()
	width := max(m.width-4, 20)

	var reportLines []string
	if r := m.watchUI.report; r != nil && len(r.Skipped) > 0 {
		reportLines = append(reportLines, styles.WarningText.Render("Skipped in last batch ("+r.Summary()+")"))
		for _, line := range r.SkipLines() {
			reportLines = append(reportLines, styles.MutedText.Render("  "+truncate(line, width-2)))
		}
		reportLines = clipSlice(reportLines, max(height/3, 2))
	}

	listHeight := max(height-len(reportLines)-3, 3)
	list := styles.FocusedPanel.Width(width).Height(listHeight).Render(m.renderWatchList(styles, width-2, listHeight))
	if len(reportLines) == 0 {
		return list
	}
	return list + "\n" + strings.Join(reportLines, "\n")
}

func (m Model) renderWatchList(styles Styles, width, height int) string {
	paths := m.snapshot.WatchPaths
	header := styles.AccentText.Bold(true).Render(fmt.Sprintf("Watch paths (%d)", len(paths)))
	if !m.snapshot.HasWatchPaths {
		return header + "\n" + styles.MutedText.Render("Loading...")
	}
	if len(paths) == 0 {
		return header + "\n" + styles.MutedText.Render("No folders are watched. Press a to add one or i to import a list.")
	}

	rows := max(height-1, 1)
	start, end := visibleRange(len(paths), m.watchUI.selected, rows)
	lines := []string{header}
	flagsWidth := 24
	pathWidth := max(width-flagsWidth-2, 10)
	for i := start; i < end; i++ {
		wp := paths[i]
		check := ternary(wp.Enabled, "[x]", "[ ]")
		flags := ternary(wp.IncludeSubdirectories, "recursive", "top level")
		if wp.IsExcluded {
			flags += " excluded"
		}
		row := check + " " + padRight(truncateMiddle(wp.Path, pathWidth), pathWidth) + " " + flags
		switch {
		case i == m.watchUI.selected:
			lines = append(lines, styles.Selected.Render(padRight(row, width)))
		case !wp.Enabled:
			lines = append(lines, styles.FaintText.Render(row))
		default:
			lines = append(lines, styles.Text.Render(row))
		}
	}
	return strings.Join(lines, "\n")
}

func clipSlice(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return append(lines[:n-1:n-1], fmt.Sprintf("  ... %d more", len(lines)-n+1))
}
