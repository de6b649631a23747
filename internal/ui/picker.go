package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/filebrain/console/internal/filebrain"
	"github.com/filebrain/console/internal/watchpaths"
)

// folderPicker browses the backend's filesystem to choose watch paths.
// At the top level it lists the roots; below that, directories only.
type folderPicker struct {
	roots   []filebrain.FSRoot
	listing *filebrain.FSListing
	entries []pickerEntry

	selected int
	marked   map[string]bool
	order    []string // marked paths in marking order
	loading  bool
	err      error
}

type pickerEntry struct {
	name string
	path string
}

func (p *folderPicker) current() (pickerEntry, bool) {
	if p.selected < 0 || p.selected >= len(p.entries) {
		return pickerEntry{}, false
	}
	return p.entries[p.selected], true
}

func (p *folderPicker) showRoots() {
	p.listing = nil
	p.entries = p.entries[:0]
	for _, r := range p.roots {
		name := r.Name
		if name == "" {
			name = r.Path
		}
		p.entries = append(p.entries, pickerEntry{name: name, path: r.Path})
	}
	p.selected = 0
}

func (p *folderPicker) showListing(l filebrain.FSListing) {
	p.listing = &l
	dirs := l.Directories()
	p.entries = make([]pickerEntry, 0, len(dirs))
	for _, d := range dirs {
		p.entries = append(p.entries, pickerEntry{name: d.Name, path: d.Path})
	}
	p.selected = 0
}

func (p *folderPicker) toggleMark(path string) {
	if p.marked[path] {
		delete(p.marked, path)
		for i, v := range p.order {
			if v == path {
				p.order = append(p.order[:i], p.order[i+1:]...)
				break
			}
		}
		return
	}
	p.marked[path] = true
	p.order = append(p.order, path)
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.picker
	if cmd, ok := m.handleGlobalKey(msg); ok && !key.Matches(msg, m.keys.Quit) {
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Quit):
		m.picker = nil
		return m, nil
	case p.loading:
		return m, nil
	case key.Matches(msg, m.keys.Up):
		p.selected = max(p.selected-1, 0)
	case key.Matches(msg, m.keys.Down):
		p.selected = min(p.selected+1, max(len(p.entries)-1, 0))
	case key.Matches(msg, m.keys.Top):
		p.selected = 0
	case key.Matches(msg, m.keys.Bottom):
		p.selected = max(len(p.entries)-1, 0)
	case msg.Type == tea.KeyEnter, msg.Type == tea.KeyRight, msg.String() == "l":
		entry, ok := p.current()
		if !ok {
			return m, nil
		}
		p.loading = true
		return m, m.listDirectoryCmd(entry.path)
	case key.Matches(msg, m.keys.ParentFolder):
		if p.listing == nil {
			return m, nil
		}
		if parent := strings.TrimSpace(p.listing.Parent); parent != "" && parent != p.listing.Path {
			p.loading = true
			return m, m.listDirectoryCmd(parent)
		}
		p.showRoots()
	case key.Matches(msg, m.keys.MarkFolder):
		if entry, ok := p.current(); ok {
			p.toggleMark(entry.path)
		}
	case key.Matches(msg, m.keys.AddMarked):
		return m.addFromPicker()
	}
	return m, nil
}

// addFromPicker adds the marked folders as a batch, or the folder being
// browsed (the highlighted root at the top level) when nothing is marked.
func (m Model) addFromPicker() (tea.Model, tea.Cmd) {
	p := m.picker
	api := m.watch
	if api == nil || !m.begin(keyWatchPaths) {
		return m, nil
	}
	opts := watchpaths.DefaultOptions()

	if len(p.order) > 0 {
		paths := append([]string(nil), p.order...)
		return m, m.watchCmd(keyWatchPaths, func(ctx context.Context) (string, *watchpaths.BatchReport, error) {
			report, err := api.AddBatch(ctx, paths, opts)
			if err != nil {
				return "", nil, err
			}
			return report.Summary(), &report, nil
		})
	}

	var target string
	if p.listing != nil {
		target = p.listing.Path
	} else if entry, ok := p.current(); ok {
		target = entry.path
	}
	if target == "" {
		m.finish(keyWatchPaths)
		return m, nil
	}
	return m, m.watchCmd(keyWatchPaths, func(ctx context.Context) (string, *watchpaths.BatchReport, error) {
		wp, err := api.Add(ctx, target, opts)
		if err != nil {
			return "", nil, err
		}
		return "Watching " + wp.Path, nil, nil
	})
}

func (m *Model) handleRoots(msg rootsMsg) {
	p := m.picker
	if p == nil {
		return
	}
	p.loading = false
	if msg.err != nil {
		p.err = msg.err
		return
	}
	p.err = nil
	p.roots = msg.roots
	p.showRoots()
}

func (m *Model) handleListing(msg listingMsg) {
	p := m.picker
	if p == nil {
		return
	}
	p.loading = false
	if msg.err != nil {
		p.err = msg.err
		return
	}
	p.err = nil
	p.showListing(msg.listing)
}

func (m Model) renderPicker() string {
	styles := m.theme.Styles()
	p := m.picker
	width := max(m.width-4, 20)
	height := max(m.contentHeight()-2, 4)

	location := "Roots"
	if p.listing != nil {
		location = p.listing.Path
	}
	lines := []string{
		styles.AccentText.Bold(true).Render("Add folder") + "  " + styles.Text.Render(truncateMiddle(location, width-14)),
	}
	if len(p.order) > 0 {
		lines = append(lines, styles.InfoText.Render(fmt.Sprintf("%d marked", len(p.order))))
	}

	switch {
	case p.loading:
		lines = append(lines, styles.MutedText.Render("Loading..."))
	case p.err != nil:
		lines = append(lines, styles.DangerText.Render(errorText(p.err)))
	case len(p.entries) == 0:
		lines = append(lines, styles.MutedText.Render("No subfolders"))
	default:
		rows := max(height-len(lines), 1)
		start, end := visibleRange(len(p.entries), p.selected, rows)
		for i := start; i < end; i++ {
			e := p.entries[i]
			mark := ternary(p.marked[e.path], "[x] ", "[ ] ")
			row := mark + truncate(e.name, width-6) + "/"
			if i == p.selected {
				lines = append(lines, styles.Selected.Render(padRight(row, width-2)))
			} else {
				lines = append(lines, styles.Text.Render(row))
			}
		}
	}
	return styles.FocusedPanel.Width(width).Height(height).Render(strings.Join(lines, "\n"))
}
