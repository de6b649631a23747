package search

import (
	"encoding/json"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Hit is one indexed file returned by the search engine. Hits are read-only.
type Hit struct {
	FilePath      string         `json:"file_path"`
	FileName      string         `json:"file_name"`
	FileExtension string         `json:"file_extension"`
	FileSize      int64          `json:"file_size"`
	MimeType      string         `json:"mime_type"`
	ModifiedTime  Timestamp      `json:"modified_time"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Snippets      []Snippet      `json:"-"`
}

// DisplayName returns the file name, falling back to the path's base.
func (h Hit) DisplayName() string {
	if h.FileName != "" {
		return h.FileName
	}
	return filepath.Base(h.FilePath)
}

// Snippet is a highlighted fragment of one field. Matches are wrapped in
// <mark> tags exactly as the engine returned them.
type Snippet struct {
	Field string
	Text  string
}

// Segments splits the snippet into plain and highlighted runs.
func (s Snippet) Segments() []Segment {
	return SplitHighlights(s.Text)
}

// Segment is a run of snippet text.
type Segment struct {
	Text   string
	Marked bool
}

// SplitHighlights splits text on <mark>…</mark> pairs. An unterminated mark
// highlights the rest of the text.
func SplitHighlights(text string) []Segment {
	var out []Segment
	for text != "" {
		start := strings.Index(text, "<mark>")
		if start < 0 {
			out = append(out, Segment{Text: text})
			break
		}
		if start > 0 {
			out = append(out, Segment{Text: text[:start]})
		}
		text = text[start+len("<mark>"):]
		end := strings.Index(text, "</mark>")
		if end < 0 {
			out = append(out, Segment{Text: text, Marked: true})
			break
		}
		if end > 0 {
			out = append(out, Segment{Text: text[:end], Marked: true})
		}
		text = text[end+len("</mark>"):]
	}
	return out
}

// Timestamp accepts epoch seconds or an ISO-8601 string.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		t.Time = time.Time{}
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
			if ts, err := time.Parse(layout, s); err == nil {
				t.Time = ts
				return nil
			}
		}
		t.Time = time.Time{}
		return nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return err
	}
	whole := int64(secs)
	t.Time = time.Unix(whole, int64((secs-float64(whole))*1e9))
	return nil
}

// FacetCount is one value of the file-type facet.
type FacetCount struct {
	Value string
	Count int
}

// Result is one page of hits.
type Result struct {
	Found        int
	Page         int
	SearchTimeMS int
	Hits         []Hit
	Facets       []FacetCount
}

type rawResponse struct {
	Found        int `json:"found"`
	Page         int `json:"page"`
	SearchTimeMS int `json:"search_time_ms"`
	FacetCounts  []struct {
		FieldName string `json:"field_name"`
		Counts    []struct {
			Value string `json:"value"`
			Count int    `json:"count"`
		} `json:"counts"`
	} `json:"facet_counts"`
	Hits []struct {
		Document   Hit `json:"document"`
		Highlights []struct {
			Field   string `json:"field"`
			Snippet string `json:"snippet"`
		} `json:"highlights"`
	} `json:"hits"`
}

func (r rawResponse) result() Result {
	out := Result{Found: r.Found, Page: r.Page, SearchTimeMS: r.SearchTimeMS}
	for _, h := range r.Hits {
		hit := h.Document
		for _, hl := range h.Highlights {
			if hl.Snippet == "" {
				continue
			}
			hit.Snippets = append(hit.Snippets, Snippet{Field: hl.Field, Text: hl.Snippet})
		}
		out.Hits = append(out.Hits, hit)
	}
	for _, fc := range r.FacetCounts {
		if fc.FieldName != FacetField {
			continue
		}
		for _, c := range fc.Counts {
			out.Facets = append(out.Facets, FacetCount{Value: c.Value, Count: c.Count})
		}
	}
	return out
}

// Tracker numbers search-as-you-type queries so only the newest result is
// rendered.
type Tracker struct {
	latest atomic.Uint64
}

// Next issues the sequence number for a new query.
func (t *Tracker) Next() uint64 {
	return t.latest.Add(1)
}

// IsLatest reports whether seq belongs to the most recent query.
func (t *Tracker) IsLatest(seq uint64) bool {
	return seq == t.latest.Load()
}

// RemovePath returns hits without the entry for path. The input is not
// modified.
func RemovePath(hits []Hit, path string) []Hit {
	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		if h.FilePath != path {
			out = append(out, h)
		}
	}
	return out
}
