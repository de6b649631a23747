package ui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/filebrain/console/internal/fileops"
	"github.com/filebrain/console/internal/search"
)

// searchState holds the search view. Hits are replaced wholesale by the
// newest result and trimmed locally after delete or forget.
type searchState struct {
	input   textinput.Model
	tracker *search.Tracker
	cancel  context.CancelFunc

	page   int
	facet  string
	facets []search.FacetCount

	result   search.Result
	hits     []search.Hit
	selected int
	loading  bool
	err      error
}

func newSearchState() searchState {
	ti := textinput.New()
	ti.Placeholder = "Search files"
	ti.Prompt = "/ "
	ti.CharLimit = 512
	ti.Focus()
	return searchState{input: ti, tracker: &search.Tracker{}, page: 1}
}

func (s *searchState) current() (search.Hit, bool) {
	if s.selected < 0 || s.selected >= len(s.hits) {
		return search.Hit{}, false
	}
	return s.hits[s.selected], true
}

func (s *searchState) move(delta int) {
	s.selected += delta
	s.clamp()
}

func (s *searchState) clamp() {
	s.selected = min(s.selected, len(s.hits)-1)
	s.selected = max(s.selected, 0)
}

func (s searchState) lastPage() int {
	if s.result.Found <= 0 {
		return 1
	}
	return (s.result.Found + SearchPerPage - 1) / SearchPerPage
}

// handleSearchInputKey edits the query. Every change issues a new search.
func (m Model) handleSearchInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyEnter:
		m.search.input.Blur()
		return m, nil
	case tea.KeyUp:
		m.search.move(-1)
		return m, nil
	case tea.KeyDown:
		m.search.move(1)
		return m, nil
	case tea.KeyTab, tea.KeyShiftTab:
		m.search.input.Blur()
		return m.handleMainKey(msg)
	}

	before := m.search.input.Value()
	var cmd tea.Cmd
	m.search.input, cmd = m.search.input.Update(msg)
	if m.search.input.Value() == before {
		return m, cmd
	}
	m.search.page = 1
	m.search.selected = 0
	return m, tea.Batch(cmd, m.issueSearch())
}

// handleSearchKey processes keys while the query input is not focused.
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := &m.search
	switch {
	case key.Matches(msg, m.keys.FocusInput):
		return m, s.input.Focus()
	case key.Matches(msg, m.keys.Up):
		s.move(-1)
	case key.Matches(msg, m.keys.Down):
		s.move(1)
	case key.Matches(msg, m.keys.PageUp):
		s.move(-SearchPerPage / 2)
	case key.Matches(msg, m.keys.PageDown):
		s.move(SearchPerPage / 2)
	case key.Matches(msg, m.keys.Top):
		s.selected = 0
	case key.Matches(msg, m.keys.Bottom):
		s.selected = len(s.hits) - 1
		s.clamp()
	case key.Matches(msg, m.keys.CycleFacet):
		s.facet = nextFacet(s.facets, s.facet)
		s.page, s.selected = 1, 0
		return m, m.issueSearch()
	case key.Matches(msg, m.keys.ClearFacet):
		if s.facet == "" {
			return m, nil
		}
		s.facet = ""
		s.page, s.selected = 1, 0
		return m, m.issueSearch()
	case key.Matches(msg, m.keys.NextPage):
		if s.page >= s.lastPage() {
			return m, nil
		}
		s.page++
		s.selected = 0
		return m, m.issueSearch()
	case key.Matches(msg, m.keys.PrevPage):
		if s.page <= 1 {
			return m, nil
		}
		s.page--
		s.selected = 0
		return m, m.issueSearch()
	case key.Matches(msg, m.keys.OpenFile):
		return m.runFileOp(fileops.OpOpen)
	case key.Matches(msg, m.keys.OpenFolder):
		return m.runFileOp(fileops.OpOpenFolder)
	case key.Matches(msg, m.keys.DeleteFile):
		return m.runFileOp(fileops.OpDelete)
	case key.Matches(msg, m.keys.ForgetFile):
		return m.runFileOp(fileops.OpForget)
	}
	return m, nil
}

// nextFacet cycles "" -> first facet -> ... -> last facet -> "".
func nextFacet(facets []search.FacetCount, current string) string {
	if len(facets) == 0 {
		return ""
	}
	if current == "" {
		return facets[0].Value
	}
	for i, f := range facets {
		if f.Value == current {
			if i+1 < len(facets) {
				return facets[i+1].Value
			}
			return ""
		}
	}
	return ""
}

func fileOpKey(op fileops.Op, path string) string {
	return "file:" + op.String() + ":" + path
}

// runFileOp starts op on the selected hit. Delete and forget ask first.
func (m Model) runFileOp(op fileops.Op) (tea.Model, tea.Cmd) {
	hit, ok := m.search.current()
	if !ok || m.files == nil {
		return m, nil
	}
	opKey := fileOpKey(op, hit.FilePath)
	if m.inflight[opKey] {
		return m, nil
	}

	switch op {
	case fileops.OpDelete:
		m.confirm = newConfirm("Delete file?",
			fmt.Sprintf("%s will be deleted from disk and removed from the index.", hit.FilePath),
			opKey, m.fileOpCmd(op, hit.FilePath))
		return m, nil
	case fileops.OpForget:
		m.confirm = newConfirm("Remove from index?",
			fmt.Sprintf("%s stays on disk but will no longer appear in results.", hit.FilePath),
			opKey, m.fileOpCmd(op, hit.FilePath))
		return m, nil
	}

	m.begin(opKey)
	return m, m.fileOpCmd(op, hit.FilePath)
}

func (m *Model) handleSearchResult(msg searchResultMsg) {
	if !m.search.tracker.IsLatest(msg.seq) {
		return
	}
	m.search.loading = false
	if msg.err != nil {
		if errors.Is(msg.err, context.Canceled) {
			return
		}
		m.search.err = msg.err
		m.logger.Warn("search failed", "query", msg.query.Text, "error", msg.err)
		return
	}
	m.search.err = nil
	m.search.result = msg.result
	m.search.hits = msg.result.Hits
	// A filtered result only counts the selected type; keep the full list.
	if len(msg.query.Extensions) == 0 {
		m.search.facets = msg.result.Facets
	}
	m.search.clamp()
}

func (m *Model) handleFileOp(out fileops.Outcome) {
	m.finish(fileOpKey(out.Op, out.Path))
	if errors.Is(out.Err, fileops.ErrInFlight) {
		return
	}
	if out.Err == nil && out.Op.Destructive() {
		// Trim the current list; a newer search may have replaced the one
		// the operation started from.
		before := len(m.search.hits)
		m.search.hits = search.RemovePath(m.search.hits, out.Path)
		if removed := before - len(m.search.hits); removed > 0 {
			m.search.result.Found = max(m.search.result.Found-removed, 0)
		}
		m.search.clamp()
	}
	m.showToast(out.Toast.Kind, out.Toast.Text)
}

// renderSearch renders the input line, facet sidebar, results and detail.
func (m Model) renderSearch() string {
	styles := m.theme.Styles()
	height := m.contentHeight()

	inputLine := m.search.input.View() + "  " + m.searchSummary(styles)
	bodyHeight := max(height-1, 3)

	facetWidth := FacetSidebarWidth
	facets := m.renderFacets(styles, facetWidth-2, bodyHeight-2)
	facetPanel := styles.Panel.Width(facetWidth).Height(bodyHeight - 2).Render(facets)

	remaining := max(m.width-facetWidth-4, 20)
	if m.width >= LayoutDetailWidth {
		listWidth := remaining * 55 / 100
		detailWidth := remaining - listWidth - 4
		list := styles.FocusedPanel.Width(listWidth).Height(bodyHeight - 2).
			Render(m.renderHitList(styles, listWidth-2, bodyHeight-2))
		detail := styles.Panel.Width(detailWidth).Height(bodyHeight - 2).
			Render(m.renderHitDetail(styles, detailWidth-2, bodyHeight-2))
		return inputLine + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, facetPanel, list, detail)
	}

	listHeight := max(bodyHeight/2, 3)
	detailHeight := max(bodyHeight-listHeight, 3)
	list := styles.FocusedPanel.Width(remaining - 2).Height(listHeight - 2).
		Render(m.renderHitList(styles, remaining-4, listHeight-2))
	detail := styles.Panel.Width(remaining - 2).Height(detailHeight - 2).
		Render(m.renderHitDetail(styles, remaining-4, detailHeight-2))
	column := lipgloss.JoinVertical(lipgloss.Left, list, detail)
	return inputLine + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, facetPanel, column)
}

func (m Model) searchSummary(styles Styles) string {
	s := m.search
	switch {
	case m.searcher == nil:
		return styles.WarningText.Render("Search engine not configured")
	case s.err != nil:
		return styles.DangerText.Render(truncate(errorText(s.err), 60))
	case s.loading:
		return styles.MutedText.Render("Searching...")
	}
	summary := fmt.Sprintf("%s results", formatCount(int64(s.result.Found)))
	if s.result.SearchTimeMS > 0 {
		summary += fmt.Sprintf(" in %d ms", s.result.SearchTimeMS)
	}
	if last := s.lastPage(); last > 1 {
		summary += fmt.Sprintf("  page %d/%d", s.page, last)
	}
	return styles.MutedText.Render(summary)
}

func (m Model) renderFacets(styles Styles, width, height int) string {
	lines := []string{styles.AccentText.Bold(true).Render("File types")}
	allLabel := "All"
	if m.search.facet == "" {
		lines = append(lines, styles.Selected.Render(padRight(allLabel, width)))
	} else {
		lines = append(lines, styles.Text.Render(allLabel))
	}
	for _, f := range m.search.facets {
		if len(lines) >= height {
			break
		}
		count := fmt.Sprintf("%d", f.Count)
		label := truncate(f.Value, max(width-len(count)-1, 3))
		row := padRight(label, width-len(count)) + count
		if f.Value == m.search.facet {
			lines = append(lines, styles.Selected.Render(row))
		} else {
			lines = append(lines, styles.Text.Render(row))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderHitList(styles Styles, width, height int) string {
	hits := m.search.hits
	if len(hits) == 0 {
		switch {
		case m.search.loading:
			return styles.MutedText.Render("Searching...")
		case strings.TrimSpace(m.search.input.Value()) == "":
			return styles.MutedText.Render("Type to search indexed files")
		default:
			return styles.MutedText.Render("No matching files")
		}
	}

	start, end := visibleRange(len(hits), m.search.selected, height)
	sizeWidth := 10
	nameWidth := max(width-sizeWidth-2, 8)

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		h := hits[i]
		name := truncate(h.DisplayName(), nameWidth)
		row := padRight(name, nameWidth) + " " + fmt.Sprintf("%*s", sizeWidth, formatBytes(h.FileSize))
		if i == m.search.selected {
			lines = append(lines, styles.Selected.Render(padRight(row, width)))
			continue
		}
		lines = append(lines, styles.Text.Render(row))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderHitDetail(styles Styles, width, height int) string {
	hit, ok := m.search.current()
	if !ok {
		return styles.FaintText.Render("No file selected")
	}

	field := func(label, value string) string {
		if value == "" {
			return ""
		}
		return styles.MutedText.Render(padRight(label, 10)) + styles.Text.Render(truncateMiddle(value, max(width-10, 10)))
	}

	lines := []string{
		styles.Text.Bold(true).Render(truncate(hit.DisplayName(), width)),
		field("Path", hit.FilePath),
		field("Type", strings.TrimPrefix(hit.FileExtension, ".")),
		field("Size", formatBytes(hit.FileSize)),
		field("MIME", hit.MimeType),
	}
	if !hit.ModifiedTime.IsZero() {
		lines = append(lines, field("Modified", hit.ModifiedTime.Local().Format("2006-01-02 15:04")))
	}
	for _, k := range metadataKeys(hit.Metadata) {
		lines = append(lines, field(titleCase(k), fmt.Sprint(hit.Metadata[k])))
	}

	if len(hit.Snippets) > 0 {
		lines = append(lines, "", styles.AccentText.Bold(true).Render("Matches"))
		wrap := lipgloss.NewStyle().Width(width)
		for _, sn := range hit.Snippets {
			lines = append(lines, styles.FaintText.Render(sn.Field))
			lines = append(lines, wrap.Render(renderSegments(styles, sn.Segments())))
		}
	}

	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" || (len(out) > 0 && out[len(out)-1] != "") {
			out = append(out, l)
		}
	}
	return clipLines(strings.Join(out, "\n"), height)
}

// renderSegments styles highlighted runs of a snippet.
func renderSegments(styles Styles, segs []search.Segment) string {
	var b strings.Builder
	for _, seg := range segs {
		text := strings.ReplaceAll(seg.Text, "\n", " ")
		if seg.Marked {
			b.WriteString(styles.Mark.Render(text))
		} else {
			b.WriteString(styles.Text.Render(text))
		}
	}
	return b.String()
}

// metadataKeys returns the scalar metadata keys in a stable order.
func metadataKeys(md map[string]any) []string {
	keys := make([]string, 0, len(md))
	for k, v := range md {
		switch v.(type) {
		case map[string]any, []any, nil:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// visibleRange returns the window of rows to render so that selected stays
// in view.
func visibleRange(total, selected, height int) (int, int) {
	if height <= 0 || total <= height {
		return 0, total
	}
	start := max(selected-height/2, 0)
	end := start + height
	if end > total {
		end = total
		start = end - height
	}
	return start, end
}

// clipLines keeps the first n lines of s.
func clipLines(s string, n int) string {
	if n <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "\n")
}
