package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultURL        = "http://127.0.0.1:8108"
	defaultCollection = "files"
	defaultPerPage    = 20
	maxPerPage        = 250
	requestTimeout    = 5 * time.Second
	highlightFields   = "content,file_name"
	tracerName        = "github.com/filebrain/console/internal/search"

	// FacetField is the document field used for the file-type facet.
	FacetField = "file_extension"
)

// defaultQueryBy lists the fields matched by free-text queries, in weight order.
var defaultQueryBy = []string{"file_name", "content", "file_path"}

// Config selects the search engine and collection.
type Config struct {
	URL        string
	APIKey     string // search-only key
	Collection string
	QueryBy    []string
}

// Client queries the search engine directly.
type Client struct {
	baseURL    *url.URL
	collection string
	queryBy    []string
	engine     *typesense.Client
	tracer     trace.Tracer
}

// NewClient builds a search Client.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		raw = defaultURL
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse search url %q: %w", cfg.URL, err)
	}
	base.Path = strings.TrimRight(base.Path, "/")
	base.RawQuery = ""
	base.Fragment = ""

	collection := strings.TrimSpace(cfg.Collection)
	if collection == "" {
		collection = defaultCollection
	}
	queryBy := cfg.QueryBy
	if len(queryBy) == 0 {
		queryBy = defaultQueryBy
	}
	engine := typesense.NewClient(
		typesense.WithServer(base.String()),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(requestTimeout),
	)
	return &Client{
		baseURL:    base,
		collection: collection,
		queryBy:    queryBy,
		engine:     engine,
		tracer:     otel.Tracer(tracerName),
	}, nil
}

// Collection returns the queried collection name.
func (c *Client) Collection() string {
	return c.collection
}

// Query describes one search request.
type Query struct {
	Text string
	// Extensions restricts hits to these file extensions; empty means all.
	Extensions []string
	Page       int
	PerPage    int
}

// Params renders the query as search engine parameters.
func (q Query) Params(queryBy []string) *api.SearchCollectionParams {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		text = "*"
	}
	perPage := q.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	params := &api.SearchCollectionParams{
		Q:               pointer.String(text),
		QueryBy:         pointer.String(strings.Join(queryBy, ",")),
		FacetBy:         pointer.String(FacetField),
		HighlightFields: pointer.String(highlightFields),
		Page:            pointer.Int(max(q.Page, 1)),
		PerPage:         pointer.Int(min(perPage, maxPerPage)),
	}
	if filter := extensionFilter(q.Extensions); filter != "" {
		params.FilterBy = pointer.String(filter)
	}
	return params
}

func extensionFilter(exts []string) string {
	var quoted []string
	for _, ext := range exts {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		quoted = append(quoted, "`"+strings.ReplaceAll(ext, "`", "")+"`")
	}
	if len(quoted) == 0 {
		return ""
	}
	return FacetField + ":=[" + strings.Join(quoted, ",") + "]"
}

// Error is returned for non-2xx replies from the search engine.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("search returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("search returned status %d: %s", e.StatusCode, e.Message)
}

// Search runs q against the collection.
func (c *Client) Search(ctx context.Context, q Query) (Result, error) {
	if c == nil {
		return Result{}, errors.New("search client is nil")
	}
	ctx, span := c.tracer.Start(ctx, "search "+c.collection,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("search.collection", c.collection)))
	defer span.End()

	result, err := c.execute(ctx, q.Params(c.queryBy))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	span.SetAttributes(attribute.Int("search.found", result.Found))
	return result, nil
}

func (c *Client) execute(ctx context.Context, params *api.SearchCollectionParams) (Result, error) {
	res, err := c.engine.Collection(c.collection).Documents().Search(ctx, params)
	if err != nil {
		var httpErr *typesense.HTTPError
		if errors.As(err, &httpErr) {
			return Result{}, &Error{StatusCode: httpErr.Status, Message: engineMessage(httpErr.Body)}
		}
		return Result{}, fmt.Errorf("execute search: %w", err)
	}
	return decodeResult(res)
}

// decodeResult maps the engine's generic document maps onto Hit through
// their JSON form.
func decodeResult(res *api.SearchResult) (Result, error) {
	if res == nil {
		return Result{}, nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return Result{}, fmt.Errorf("encode search result: %w", err)
	}
	var raw rawResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return Result{}, fmt.Errorf("decode search result: %w", err)
	}
	return raw.result(), nil
}

func engineMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}
