package filebrain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Stream endpoint paths, relative to the API prefix.
const (
	StreamCrawler        = "/crawler/stream"
	StreamInitialization = "/system/initialization/stream"
	StreamDockerPull     = "/wizard/docker-pull"
	StreamDockerLogs     = "/wizard/docker-logs"
	StreamCollectionLogs = "/wizard/collection-logs"
	StreamModelDownload  = "/wizard/model-download"
)

// EventKind classifies a stream message.
type EventKind int

const (
	// EventUpdate carries a payload to apply.
	EventUpdate EventKind = iota
	// EventHeartbeat is a keep-alive and carries nothing.
	EventHeartbeat
	// EventComplete ends the logical stream successfully.
	EventComplete
	// EventError ends the logical stream with a backend-reported failure.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventUpdate:
		return "update"
	case EventHeartbeat:
		return "heartbeat"
	case EventComplete:
		return "complete"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Terminal reports whether the kind ends the logical stream.
func (k EventKind) Terminal() bool {
	return k == EventComplete || k == EventError
}

// StreamEvent is one classified message from an event stream.
type StreamEvent struct {
	Kind EventKind
	// Type is the SSE "event:" field, usually empty.
	Type string
	// Data is the raw JSON payload; nil when the message was not JSON.
	Data json.RawMessage
	// Text is the raw message text, set for every message.
	Text string
	// Message is the human-readable text of complete/error events and of
	// progress updates that carry one.
	Message string
}

// Decode unmarshals the event payload into v.
func (e StreamEvent) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("decode %s event: no JSON payload", e.Kind)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s event: %w", e.Kind, err)
	}
	return nil
}

// Stream is an open event stream. Next returns classified events in arrival
// order; after a terminal event or the end of the body Next returns io.EOF.
type Stream struct {
	body   io.Closer
	frames <-chan sseFrame
	errs   <-chan error
	cancel context.CancelFunc

	mu   sync.Mutex
	done bool
	once sync.Once
}

// NewStream wraps an event-stream body. The stream owns body and closes it
// on Close, on a terminal event, or when ctx ends.
func NewStream(ctx context.Context, body io.ReadCloser) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	frames, errs := readSSE(ctx, body)
	s := &Stream{body: body, frames: frames, errs: errs, cancel: cancel}
	go func() {
		<-ctx.Done()
		_ = s.closeBody()
	}()
	return s
}

// OpenStream opens the event stream at path (relative to the API prefix).
func (c *Client) OpenStream(ctx context.Context, path string) (*Stream, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	rel := c.rel(path, nil)
	req, err := c.newRequest(ctx, http.MethodGet, rel, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open stream %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		defer func() { _ = resp.Body.Close() }()
		return nil, newAPIError(http.MethodGet, rel.Path, resp)
	}
	return NewStream(ctx, resp.Body), nil
}

// Next blocks until the next non-heartbeat event. It returns io.EOF once the
// stream has ended cleanly or delivered a terminal event, the read error if
// the connection failed, and ctx.Err() if ctx ends first.
func (s *Stream) Next(ctx context.Context) (StreamEvent, error) {
	for {
		s.mu.Lock()
		done := s.done
		s.mu.Unlock()
		if done {
			return StreamEvent{}, io.EOF
		}

		select {
		case <-ctx.Done():
			return StreamEvent{}, ctx.Err()
		case frame, ok := <-s.frames:
			if !ok {
				s.finish()
				if err, ok := <-s.errs; ok && err != nil {
					return StreamEvent{}, fmt.Errorf("read stream: %w", err)
				}
				return StreamEvent{}, io.EOF
			}
			evt := classify(frame)
			if evt.Kind == EventHeartbeat {
				continue
			}
			if evt.Kind.Terminal() {
				s.finish()
			}
			return evt, nil
		}
	}
}

// Close releases the connection. It is safe to call more than once.
func (s *Stream) Close() error {
	s.finish()
	return nil
}

func (s *Stream) finish() {
	s.mu.Lock()
	s.done = true
	s.mu.Unlock()
	s.cancel()
}

func (s *Stream) closeBody() error {
	var err error
	s.once.Do(func() { err = s.body.Close() })
	return err
}

// classify turns a raw frame into a typed event. The SSE event type wins when
// it names a known kind; otherwise the JSON keys decide: "heartbeat" marks a
// keep-alive, a non-empty "error" ends the stream with a failure, and a
// truthy "complete" (or status "complete") ends it successfully.
func classify(frame sseFrame) StreamEvent {
	evt := StreamEvent{Kind: EventUpdate, Type: frame.Type, Text: frame.Data}

	var fields map[string]json.RawMessage
	trimmed := strings.TrimSpace(frame.Data)
	if strings.HasPrefix(trimmed, "{") && json.Unmarshal([]byte(trimmed), &fields) == nil {
		evt.Data = json.RawMessage(trimmed)
		evt.Message = stringField(fields, "message")
	}

	switch strings.ToLower(frame.Type) {
	case "heartbeat", "ping":
		evt.Kind = EventHeartbeat
		return evt
	case "error":
		evt.Kind = EventError
		if msg := errorField(fields); msg != "" {
			evt.Message = msg
		} else if evt.Message == "" {
			evt.Message = trimmed
		}
		return evt
	case "complete", "done":
		evt.Kind = EventComplete
		return evt
	}
	if fields == nil {
		return evt
	}

	if _, ok := fields["heartbeat"]; ok {
		evt.Kind = EventHeartbeat
		return evt
	}
	if msg := errorField(fields); msg != "" {
		evt.Kind = EventError
		evt.Message = msg
		return evt
	}
	if truthy(fields["complete"]) || strings.EqualFold(stringField(fields, "status"), "complete") {
		evt.Kind = EventComplete
	}
	return evt
}

func errorField(fields map[string]json.RawMessage) string {
	raw, ok := fields["error"]
	if !ok {
		return ""
	}
	var text string
	if json.Unmarshal(raw, &text) == nil {
		return strings.TrimSpace(text)
	}
	var nested struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &nested) == nil && nested.Message != "" {
		return nested.Message
	}
	if truthy(raw) {
		if msg := stringField(fields, "message"); msg != "" {
			return msg
		}
		return "stream reported an error"
	}
	return ""
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var text string
	if json.Unmarshal(raw, &text) != nil {
		return ""
	}
	return text
}

func truthy(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	switch strings.TrimSpace(string(raw)) {
	case "", "null", "false", "0", `""`:
		return false
	default:
		return true
	}
}
