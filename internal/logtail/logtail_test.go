package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{name: "read all (0)", maxLines: 0, expected: expectedAll},
		{name: "read all (negative)", maxLines: -1, expected: expectedAll},
		{name: "read partial (5)", maxLines: 5, expected: expectedAll[5:]},
		{name: "read exactly all (10)", maxLines: 10, expected: expectedAll},
		{name: "read more than exists (20)", maxLines: 20, expected: expectedAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read returned error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Fatalf("Read(%d) = %v, want %v", tt.maxLines, got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	lines, err := Read(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if lines != nil {
		t.Fatalf("Read = %v, want nil", lines)
	}
}

func TestReadFrom_Incremental(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "follow.log")
	if err := os.WriteFile(logPath, []byte("one\ntwo\npart"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	lines, offset, err := ReadFrom(logPath, 0)
	if err != nil {
		t.Fatalf("ReadFrom returned error: %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"one", "two"}) {
		t.Fatalf("lines = %v, want [one two]", lines)
	}
	if offset != int64(len("one\ntwo\n")) {
		t.Fatalf("offset = %d, want %d", offset, len("one\ntwo\n"))
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if _, err := f.WriteString("ial\nthree\n"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	_ = f.Close()

	lines, offset, err = ReadFrom(logPath, offset)
	if err != nil {
		t.Fatalf("ReadFrom returned error: %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"partial", "three"}) {
		t.Fatalf("lines = %v, want [partial three]", lines)
	}

	lines, next, err := ReadFrom(logPath, offset)
	if err != nil {
		t.Fatalf("ReadFrom returned error: %v", err)
	}
	if len(lines) != 0 || next != offset {
		t.Fatalf("ReadFrom at EOF = (%v, %d), want (nil, %d)", lines, next, offset)
	}
}

func TestReadFrom_TruncatedRestarts(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "rotate.log")
	if err := os.WriteFile(logPath, []byte("fresh\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	lines, offset, err := ReadFrom(logPath, 4096)
	if err != nil {
		t.Fatalf("ReadFrom returned error: %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"fresh"}) {
		t.Fatalf("lines = %v, want [fresh]", lines)
	}
	if offset != 6 {
		t.Fatalf("offset = %d, want 6", offset)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		line string
		want Level
	}{
		{`time=2025-01-01T10:00:00Z level=INFO msg="stream connected"`, LevelInfo},
		{`time=2025-01-01T10:00:00Z level=WARN msg="stream dropped"`, LevelWarn},
		{`time=2025-01-01T10:00:00Z level=ERROR msg=boom`, LevelError},
		{`time=2025-01-01T10:00:00Z level=DEBUG msg=poll`, LevelDebug},
		{`time=2025-01-01T10:00:00Z level=INFO+2 msg=custom`, LevelInfo},
		{`[WARN] disk nearly full`, LevelWarn},
		{`ERROR: something`, LevelError},
		{`plain continuation line`, LevelUnknown},
		{``, LevelUnknown},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.line); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestFilter(t *testing.T) {
	lines := []string{
		"level=DEBUG msg=a",
		"level=WARN msg=b",
		"  continuation of b",
		"level=INFO msg=c",
		"level=ERROR msg=d",
	}

	got := Filter(lines, LevelWarn)
	want := []string{"level=WARN msg=b", "  continuation of b", "level=ERROR msg=d"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Filter(WARN) = %v, want %v", got, want)
	}

	if got := Filter(lines, LevelUnknown); len(got) != len(lines) {
		t.Fatalf("Filter(Unknown) returned %d lines, want %d", len(got), len(lines))
	}
}

func TestLevelString(t *testing.T) {
	if LevelWarn.String() != "WARN" {
		t.Fatalf("LevelWarn.String() = %q, want WARN", LevelWarn.String())
	}
	if LevelUnknown.String() != "" {
		t.Fatalf("LevelUnknown.String() = %q, want empty", LevelUnknown.String())
	}
}
