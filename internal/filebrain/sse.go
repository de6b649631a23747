package filebrain

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// sseFrame is one dispatched Server-Sent Event before JSON classification.
type sseFrame struct {
	Type string
	Data string
}

// Lines longer than this are rejected by the scanner. Log streams can carry
// long container output lines.
const (
	sseInitialBuffer = 64 * 1024
	sseMaxLine       = 512 * 1024
)

// readSSE parses r as an event stream. Frames are dispatched on blank
// lines; multiple data lines are joined with "\n"; comments are skipped.
// A clean EOF closes frames without sending on the error channel. Both
// channels are closed when the reader exits.
func readSSE(ctx context.Context, r io.Reader) (<-chan sseFrame, <-chan error) {
	frames := make(chan sseFrame, 8)
	errCh := make(chan error, 1)

	go func() {
		defer close(frames)
		defer close(errCh)

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, sseInitialBuffer), sseMaxLine)
		var eventType string
		var data []string

		emit := func() bool {
			if len(data) == 0 && eventType == "" {
				return true
			}
			frame := sseFrame{Type: eventType, Data: strings.Join(data, "\n")}
			eventType = ""
			data = data[:0]
			select {
			case frames <- frame:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for scanner.Scan() {
			if ctx.Err() != nil {
				return
			}
			line := strings.TrimSuffix(scanner.Text(), "\r")
			switch {
			case line == "":
				if !emit() {
					return
				}
			case strings.HasPrefix(line, ":"):
			default:
				field, value, _ := strings.Cut(line, ":")
				value = strings.TrimPrefix(value, " ")
				switch field {
				case "event":
					eventType = strings.TrimSpace(value)
				case "data":
					data = append(data, value)
				}
			}
		}

		if err := scanner.Err(); err != nil {
			if ctx.Err() == nil {
				errCh <- err
			}
			return
		}
		emit()
	}()

	return frames, errCh
}
