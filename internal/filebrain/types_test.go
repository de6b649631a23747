package filebrain

import (
	"testing"
	"time"
)

func TestCrawlStats_IndexedRatio(t *testing.T) {
	cases := []struct {
		stats CrawlStats
		want  float64
	}{
		{CrawlStats{Ratio: 0.25}, 0.25},
		{CrawlStats{Ratio: 50}, 0.5},
		{CrawlStats{Discovered: 100, Indexed: 10}, 0.1},
		{CrawlStats{Discovered: 0, Indexed: 10}, 0},
		{CrawlStats{Discovered: 5, Indexed: 10}, 1},
	}
	for _, tc := range cases {
		if got := tc.stats.IndexedRatio(); got != tc.want {
			t.Errorf("IndexedRatio(%+v) = %v, want %v", tc.stats, got, tc.want)
		}
	}
}

func TestCrawlStats_TopFileTypes(t *testing.T) {
	stats := CrawlStats{FileTypes: map[string]int64{".txt": 4, ".pdf": 9, ".md": 4, ".docx": 1}}

	got := stats.TopFileTypes(3)
	want := []ExtensionCount{{".pdf", 9}, {".md", 4}, {".txt", 4}}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("TopFileTypes[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
	if all := stats.TopFileTypes(0); len(all) != 4 {
		t.Fatalf("TopFileTypes(0) len = %d, want 4", len(all))
	}
}

func TestSystemInitialization_UnhealthyServices(t *testing.T) {
	sys := SystemInitialization{Services: map[string]ServiceState{
		"typesense": {State: ServiceRetryScheduled},
		"database":  {State: ServiceHealthy},
		"ollama":    {State: ServiceDisabled},
		"crawler":   {State: ServiceInitializing},
	}}
	got := sys.UnhealthyServices()
	if len(got) != 2 || got[0] != "crawler" || got[1] != "typesense" {
		t.Fatalf("UnhealthyServices = %v, want [crawler typesense]", got)
	}
}

func TestParseTime_Layouts(t *testing.T) {
	if ts := parseTime("2026-03-01T10:00:00Z"); ts.IsZero() || ts.Location() != time.UTC {
		t.Fatalf("RFC3339 parse = %v", ts)
	}
	if ts := parseTime("2026-03-01T10:00:00.123456"); ts.IsZero() || ts.Location() != time.Local {
		t.Fatalf("naive parse = %v, want local time", ts)
	}
	if ts := parseTime("yesterday"); !ts.IsZero() {
		t.Fatalf("invalid value parsed to %v", ts)
	}
	if ts := parseTime(""); !ts.IsZero() {
		t.Fatalf("empty value parsed to %v", ts)
	}
}

func TestCrawlStatus_NilOptionals(t *testing.T) {
	var s CrawlStatus
	if s.JobLabel() != "" {
		t.Fatalf("JobLabel = %q, want empty", s.JobLabel())
	}
	if !s.ParsedEstimatedCompletion().IsZero() {
		t.Fatalf("expected zero estimated completion")
	}
	if s.IndexedRatio() != 0 {
		t.Fatalf("IndexedRatio = %v, want 0", s.IndexedRatio())
	}
}
