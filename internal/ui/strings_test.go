package ui

import (
	"testing"
	"time"
)

func TestTruncateMiddle(t *testing.T) {
	if got := truncateMiddle("  ", 10); got != "" {
		t.Fatalf("truncateMiddle blank = %q, want empty", got)
	}
	if got := truncateMiddle("abcd", 2); got != "ab" {
		t.Fatalf("truncateMiddle limit<=3 = %q, want ab", got)
	}
	got := truncateMiddle("/home/user/docs/report.pdf", 12)
	if len([]rune(got)) != 12 {
		t.Fatalf("got %q (%d runes), want 12", got, len([]rune(got)))
	}
	if got[len(got)-3:] != "pdf" {
		t.Fatalf("truncateMiddle dropped the file name: %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello world", 8); got != "hello..." {
		t.Fatalf("truncate = %q, want hello...", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q, want short", got)
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{999, "999 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1024 * 1024, "1.0 MiB"},
	}
	for _, tc := range cases {
		if got := formatBytes(tc.in); got != tc.want {
			t.Fatalf("formatBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatCount(t *testing.T) {
	cases := map[int64]string{
		0:       "0",
		999:     "999",
		1000:    "1,000",
		1234567: "1,234,567",
		-12345:  "-12,345",
		100000:  "100,000",
	}
	for in, want := range cases {
		if got := formatCount(in); got != want {
			t.Fatalf("formatCount(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestProgressBar(t *testing.T) {
	if got := progressBar(0.5, 4); got != "██░░" {
		t.Fatalf("progressBar(0.5) = %q", got)
	}
	if got := progressBar(2, 3); got != "███" {
		t.Fatalf("progressBar clamps high: %q", got)
	}
	if got := progressBar(-1, 3); got != "░░░" {
		t.Fatalf("progressBar clamps low: %q", got)
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{50 * time.Hour, "2d ago"},
	}
	for _, tc := range cases {
		if got := formatAge(now.Add(-tc.ago), now); got != tc.want {
			t.Fatalf("formatAge(-%s) = %q, want %q", tc.ago, got, tc.want)
		}
	}
	if got := formatAge(time.Time{}, now); got != "" {
		t.Fatalf("formatAge(zero) = %q, want empty", got)
	}
}

func TestFormatETA(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if got := formatETA(now.Add(-time.Minute), now); got != "any moment" {
		t.Fatalf("formatETA(past) = %q", got)
	}
	if got := formatETA(now.Add(90*time.Minute), now); got != "~1h 30m" {
		t.Fatalf("formatETA(90m) = %q", got)
	}
	if got := formatETA(now.Add(20*time.Second), now); got != "<1m" {
		t.Fatalf("formatETA(20s) = %q", got)
	}
}

func TestTitleCase(t *testing.T) {
	if got := titleCase("retry_scheduled"); got != "Retry Scheduled" {
		t.Fatalf("titleCase = %q, want Retry Scheduled", got)
	}
}

func TestVisibleRangeKeepsSelectionInView(t *testing.T) {
	start, end := visibleRange(100, 99, 10)
	if start != 90 || end != 100 {
		t.Fatalf("visibleRange end = (%d,%d), want (90,100)", start, end)
	}
	start, end = visibleRange(5, 2, 10)
	if start != 0 || end != 5 {
		t.Fatalf("visibleRange short = (%d,%d), want (0,5)", start, end)
	}
	start, end = visibleRange(100, 50, 10)
	if start > 50 || end <= 50 {
		t.Fatalf("visibleRange middle = (%d,%d) does not contain 50", start, end)
	}
}
