package filebrain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StatusFetcher defines the reads the status synchroniser needs.
// This interface is implemented by *Client and can be used for testing.
type StatusFetcher interface {
	FetchStatus(ctx context.Context) (*CrawlStatus, error)
	FetchStats(ctx context.Context) (*CrawlStats, error)
	FetchWatchPaths(ctx context.Context) ([]WatchPath, error)
	FetchInitialization(ctx context.Context) (*SystemInitialization, error)
	OpenStream(ctx context.Context, path string) (*Stream, error)
}

// Ensure Client implements StatusFetcher at compile time.
var _ StatusFetcher = (*Client)(nil)

// Client talks to the File Brain HTTP API.
type Client struct {
	baseURL   *url.URL
	prefix    string
	http      *http.Client
	stream    *http.Client
	userAgent string
	tracer    trace.Tracer
}

const (
	defaultAPIURL    = "http://127.0.0.1:8000"
	defaultAPIPrefix = "/api/v1"
	defaultUserAgent = "fbconsole/0.1"
	requestTimeout   = 10 * time.Second
	maxErrorBody     = 64 * 1024
	tracerName       = "github.com/filebrain/console/internal/filebrain"
)

// NewClient builds a Client for the backend at apiURL. prefix selects the
// API generation ("/api/v1" for current backends, "/api" for older ones);
// an empty prefix uses the default.
func NewClient(apiURL, prefix string) (*Client, error) {
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		prefix:  normalizePrefix(prefix),
		http: &http.Client{
			Timeout: requestTimeout,
		},
		// Streams stay open indefinitely; the caller's context ends them.
		stream:    &http.Client{},
		userAgent: defaultUserAgent,
		tracer:    otel.Tracer(tracerName),
	}, nil
}

// BaseURL returns the backend origin, without the API prefix.
func (c *Client) BaseURL() string {
	if c == nil || c.baseURL == nil {
		return ""
	}
	return c.baseURL.String()
}

// APIError is returned for non-2xx responses. Message carries the backend's
// own explanation (FastAPI "detail", or "error"/"message") unchanged.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api %s returned status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("api %s returned status %d: %s", e.Path, e.StatusCode, e.Message)
}

// ErrorMessage returns the backend-provided text for err when it is an
// *APIError with a message, and err.Error() otherwise.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// IsStatus reports whether err is an *APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	return c.doURL(ctx, http.MethodGet, c.rel(path, nil), nil, dest)
}

func (c *Client) post(ctx context.Context, path string, body, dest any) error {
	return c.doURL(ctx, http.MethodPost, c.rel(path, nil), body, dest)
}

func (c *Client) rel(path string, query url.Values) *url.URL {
	rel := &url.URL{Path: path}
	if c != nil {
		rel.Path = c.prefix + path
	}
	if len(query) > 0 {
		rel.RawQuery = query.Encode()
	}
	return rel
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	ctx, span := c.tracer.Start(ctx, method+" "+rel.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", rel.Path),
		))
	defer span.End()

	err := c.execute(ctx, span, method, rel, body, dest)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) execute(ctx context.Context, span trace.Span, method string, rel *url.URL, body, dest any) error {
	req, err := c.newRequest(ctx, method, rel, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode >= 400 {
		return newAPIError(method, rel.Path, resp)
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method string, rel *url.URL, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	return req, nil
}

func newAPIError(method, path string, resp *http.Response) *APIError {
	apiErr := &APIError{Method: method, Path: path, StatusCode: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return apiErr
	}
	apiErr.Message = extractErrorMessage(raw)
	return apiErr
}

func extractErrorMessage(raw []byte) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return strings.TrimSpace(string(raw))
	}
	for _, key := range []string{"detail", "error", "message"} {
		value, ok := payload[key]
		if !ok {
			continue
		}
		var text string
		if err := json.Unmarshal(value, &text); err == nil && strings.TrimSpace(text) != "" {
			return text
		}
		var nested struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(value, &nested); err == nil {
			if nested.Message != "" {
				return nested.Message
			}
			if nested.Error != "" {
				return nested.Error
			}
		}
	}
	return ""
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = defaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", apiURL, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return defaultAPIPrefix
	}
	if prefix == "/" {
		return ""
	}
	return "/" + strings.Trim(prefix, "/")
}
