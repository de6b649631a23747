package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/filebrain/console/internal/filebrain"
	"github.com/filebrain/console/internal/fileops"
	"github.com/filebrain/console/internal/logtail"
	"github.com/filebrain/console/internal/search"
	"github.com/filebrain/console/internal/watchpaths"
)

// In-flight keys for backend actions.
const (
	keyCrawl       = "crawl"
	keyMonitoring  = "monitoring"
	keyClearIndex  = "clear-indexes"
	keyResetWizard = "reset-wizard"
	keyWatchPaths  = "watch-paths"
)

type searchResultMsg struct {
	seq    uint64
	query  search.Query
	result search.Result
	err    error
}

type fileOpMsg fileops.Outcome

type actionMsg struct {
	key   string
	label string
	resp  filebrain.ActionResponse
	err   error
}

type watchMsg struct {
	key    string
	text   string
	report *watchpaths.BatchReport
	err    error
}

type rootsMsg struct {
	roots []filebrain.FSRoot
	err   error
}

type listingMsg struct {
	listing filebrain.FSListing
	err     error
}

type logMsg struct {
	lines  []string
	offset int64
	reset  bool
	err    error
}

// begin marks key as in flight. It reports false when key is already
// pending, in which case the trigger is ignored.
func (m *Model) begin(key string) bool {
	if key == "" {
		return true
	}
	if m.inflight[key] {
		return false
	}
	m.inflight[key] = true
	return true
}

func (m *Model) finish(key string) {
	delete(m.inflight, key)
}

// issueSearch sends the current query. The previous request is cancelled
// and its result, should it still arrive, is dropped by sequence number.
func (m *Model) issueSearch() tea.Cmd {
	if m.searcher == nil {
		return nil
	}
	q := search.Query{
		Text:    m.search.input.Value(),
		Page:    m.search.page,
		PerPage: SearchPerPage,
	}
	if m.search.facet != "" {
		q.Extensions = []string{m.search.facet}
	}
	if m.search.cancel != nil {
		m.search.cancel()
	}
	ctx, cancel := context.WithTimeout(m.ctx, RequestTimeout)
	m.search.cancel = cancel
	seq := m.search.tracker.Next()
	m.search.loading = true

	searcher := m.searcher
	return func() tea.Msg {
		defer cancel()
		res, err := searcher.Search(ctx, q)
		return searchResultMsg{seq: seq, query: q, result: res, err: err}
	}
}

// actionCmd runs a crawler or wizard action. With refresh set, the status
// slices are re-read after a successful call so the views catch up even
// while the push stream is down.
func (m Model) actionCmd(key, label string, call func(context.Context) (filebrain.ActionResponse, error), refresh bool) tea.Cmd {
	ctx, sync := m.ctx, m.sync
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
		resp, err := call(ctx)
		if err == nil && refresh && sync != nil {
			sync.Refresh(ctx)
		}
		return actionMsg{key: key, label: label, resp: resp, err: err}
	}
}

// refreshStatusCmd re-reads every status slice into the store.
func (m Model) refreshStatusCmd() tea.Cmd {
	if m.sync == nil {
		return nil
	}
	ctx, sync := m.ctx, m.sync
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
		sync.Refresh(ctx)
		return nil
	}
}

func (m Model) fileOpCmd(op fileops.Op, path string) tea.Cmd {
	files, ctx, hits := m.files, m.ctx, m.search.hits
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
		return fileOpMsg(files.Do(ctx, op, path, hits))
	}
}

// watchCmd runs one watch path mutation. call returns the toast text.
func (m Model) watchCmd(key string, call func(context.Context) (string, *watchpaths.BatchReport, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
		text, report, err := call(ctx)
		return watchMsg{key: key, text: text, report: report, err: err}
	}
}

func (m Model) fetchRootsCmd() tea.Cmd {
	backend, ctx := m.backend, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
		roots, err := backend.FetchRoots(ctx)
		return rootsMsg{roots: roots, err: err}
	}
}

func (m Model) listDirectoryCmd(path string) tea.Cmd {
	backend, ctx := m.backend, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
		listing, err := backend.ListDirectory(ctx, path)
		return listingMsg{listing: listing, err: err}
	}
}

// readLogCmd loads the log file from the start (reset) or reads what was
// appended since the last read.
func (m *Model) readLogCmd(reset bool) tea.Cmd {
	if m.logPath == "" || m.settings.reading {
		return nil
	}
	m.settings.reading = true
	path := m.logPath
	offset := m.settings.offset
	if reset {
		offset = 0
	}
	return func() tea.Msg {
		lines, next, err := logtail.ReadFrom(path, offset)
		return logMsg{lines: lines, offset: next, reset: reset, err: err}
	}
}
