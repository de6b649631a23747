package logtail

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const maxLineBytes = 1024 * 1024

// Read returns at most maxLines from the end of the file at path. A
// maxLines of zero or less returns every line. A missing file yields no
// lines and no error.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = file.Close() }()

	scanner := newScanner(file)
	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := range count {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// ReadFrom returns the complete lines written after offset and the offset
// to resume from. A trailing partial line is left for the next call. When
// the file shrank below offset (rotation or truncation) reading restarts at
// the beginning.
func ReadFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, offset, fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return nil, offset, fmt.Errorf("stat log: %w", err)
	}
	if offset < 0 || info.Size() < offset {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log: %w", err)
	}

	data, err := io.ReadAll(io.LimitReader(file, info.Size()-offset))
	if err != nil {
		return nil, offset, fmt.Errorf("read log: %w", err)
	}
	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		return nil, offset, nil
	}
	complete := data[:end]
	var lines []string
	for line := range strings.SplitSeq(string(complete), "\n") {
		lines = append(lines, strings.TrimRight(line, "\r"))
	}
	return lines, offset + int64(end) + 1, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return scanner
}

// Level is the severity parsed from a log line.
type Level int

const (
	LevelUnknown Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return ""
	}
}

// ParseLevel extracts the level from a slog text line ("level=WARN") or a
// line that starts with a bracketed or bare level word.
func ParseLevel(line string) Level {
	if _, rest, ok := strings.Cut(line, "level="); ok {
		word, _, _ := strings.Cut(rest, " ")
		return levelWord(strings.Trim(word, `"`))
	}
	fields := strings.Fields(line)
	for i, f := range fields {
		if i > 2 {
			break
		}
		if lvl := levelWord(strings.Trim(f, "[]:")); lvl != LevelUnknown {
			return lvl
		}
	}
	return LevelUnknown
}

func levelWord(word string) Level {
	word = strings.ToUpper(word)
	// slog renders offsets as "INFO+2"; keep the base level.
	if base, _, ok := strings.Cut(word, "+"); ok {
		word = base
	}
	if base, _, ok := strings.Cut(word, "-"); ok && base != "" {
		word = base
	}
	switch word {
	case "DEBUG", "DBG":
		return LevelDebug
	case "INFO", "INF":
		return LevelInfo
	case "WARN", "WARNING", "WRN":
		return LevelWarn
	case "ERROR", "ERR", "FATAL":
		return LevelError
	default:
		return LevelUnknown
	}
}

// Filter returns the lines at or above min. Lines without a level inherit
// the previous line's level so multi-line entries stay together.
func Filter(lines []string, min Level) []string {
	if min <= LevelUnknown {
		return lines
	}
	out := make([]string, 0, len(lines))
	current := LevelUnknown
	for _, line := range lines {
		if lvl := ParseLevel(line); lvl != LevelUnknown {
			current = lvl
		}
		if current >= min {
			out = append(out, line)
		}
	}
	return out
}
