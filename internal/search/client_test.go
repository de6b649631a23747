package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResponse = `{
  "found": 2,
  "page": 1,
  "search_time_ms": 4,
  "facet_counts": [
    {"field_name": "file_extension", "counts": [{"value": ".pdf", "count": 7}, {"value": ".md", "count": 3}]},
    {"field_name": "mime_type", "counts": [{"value": "application/pdf", "count": 7}]}
  ],
  "hits": [
    {
      "document": {
        "file_path": "/docs/report.pdf",
        "file_name": "report.pdf",
        "file_extension": ".pdf",
        "file_size": 2048,
        "mime_type": "application/pdf",
        "modified_time": 1700000000,
        "metadata": {"pages": 12}
      },
      "highlights": [{"field": "content", "snippet": "quarterly <mark>budget</mark> review"}]
    },
    {
      "document": {
        "file_path": "/notes/budget.md",
        "file_extension": ".md",
        "modified_time": "2024-03-01T10:00:00Z"
      },
      "highlights": [{"field": "content", "snippet": ""}]
    }
  ]
}`

const apiKeyHeader = "X-TYPESENSE-API-KEY"

func newSearchServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/collections/{collection}/documents/search", handler)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{URL: srv.URL, APIKey: "search-key", Collection: "files"})
	require.NoError(t, err)
	return client
}

func TestSearchDecodesHitsAndFacets(t *testing.T) {
	var gotKey, gotCollection string
	var gotQuery map[string]string
	client := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get(apiKeyHeader)
		gotCollection = chi.URLParam(r, "collection")
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	})

	res, err := client.Search(context.Background(), Query{Text: "budget", Extensions: []string{".pdf"}})
	require.NoError(t, err)

	assert.Equal(t, "search-key", gotKey)
	assert.Equal(t, "files", gotCollection)
	assert.Equal(t, "budget", gotQuery["q"])
	assert.Equal(t, "file_extension", gotQuery["facet_by"])
	assert.Equal(t, "file_extension:=[`.pdf`]", gotQuery["filter_by"])
	assert.Equal(t, "20", gotQuery["per_page"])

	assert.Equal(t, 2, res.Found)
	assert.Equal(t, 4, res.SearchTimeMS)
	require.Len(t, res.Hits, 2)

	first := res.Hits[0]
	assert.Equal(t, "report.pdf", first.DisplayName())
	assert.Equal(t, int64(2048), first.FileSize)
	assert.Equal(t, int64(1700000000), first.ModifiedTime.Unix())
	assert.EqualValues(t, 12, first.Metadata["pages"])
	require.Len(t, first.Snippets, 1)
	assert.Equal(t, "content", first.Snippets[0].Field)

	second := res.Hits[1]
	assert.Equal(t, "budget.md", second.DisplayName())
	assert.Empty(t, second.Snippets)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), second.ModifiedTime.UTC())

	assert.Equal(t, []FacetCount{{Value: ".pdf", Count: 7}, {Value: ".md", Count: 3}}, res.Facets)
}

func TestSearchEmptyTextMatchesAll(t *testing.T) {
	var gotQ, gotFilter string
	client := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQ = r.URL.Query().Get("q")
		gotFilter = r.URL.Query().Get("filter_by")
		_, _ = w.Write([]byte(`{"found":0,"hits":[]}`))
	})

	res, err := client.Search(context.Background(), Query{Text: "   ", Extensions: []string{" "}})
	require.NoError(t, err)
	assert.Equal(t, "*", gotQ)
	assert.Empty(t, gotFilter)
	assert.Empty(t, res.Hits)
}

func TestSearchErrorCarriesEngineMessage(t *testing.T) {
	client := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Forbidden - a valid `x-typesense-api-key` header must be sent."})
	})

	_, err := client.Search(context.Background(), Query{Text: "x"})
	require.Error(t, err)

	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusUnauthorized, serr.StatusCode)
	assert.Contains(t, serr.Error(), "valid `x-typesense-api-key`")
}

func TestQueryParamsClampPaging(t *testing.T) {
	params := Query{Page: -3, PerPage: 1000, Extensions: []string{".md", ".txt"}}.Params([]string{"content", "file_name"})
	require.NotNil(t, params.Page)
	require.NotNil(t, params.PerPage)
	assert.Equal(t, 1, *params.Page)
	assert.Equal(t, 250, *params.PerPage)
	require.NotNil(t, params.QueryBy)
	assert.Equal(t, "content,file_name", *params.QueryBy)
	require.NotNil(t, params.FilterBy)
	assert.Equal(t, "file_extension:=[`.md`,`.txt`]", *params.FilterBy)

	params = Query{Text: "  "}.Params([]string{"content"})
	require.NotNil(t, params.Q)
	assert.Equal(t, "*", *params.Q)
	assert.Equal(t, 20, *params.PerPage)
	assert.Nil(t, params.FilterBy)
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(Config{URL: "localhost:8108/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8108", client.baseURL.String())
	assert.Equal(t, defaultCollection, client.Collection())
	assert.Equal(t, defaultQueryBy, client.queryBy)
}

func TestNilClientSearch(t *testing.T) {
	var client *Client
	_, err := client.Search(context.Background(), Query{})
	assert.Error(t, err)
}
