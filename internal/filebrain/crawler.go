package filebrain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// FetchStatus retrieves the current crawl status.
func (c *Client) FetchStatus(ctx context.Context) (*CrawlStatus, error) {
	var payload CrawlStatus
	if err := c.get(ctx, "/crawler/status", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchStats retrieves aggregate crawl statistics.
func (c *Client) FetchStats(ctx context.Context) (*CrawlStats, error) {
	var payload CrawlStats
	if err := c.get(ctx, "/crawler/stats", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchInitialization retrieves the backend's service initialisation state.
func (c *Client) FetchInitialization(ctx context.Context) (*SystemInitialization, error) {
	var payload SystemInitialization
	if err := c.get(ctx, "/system/initialization", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// StartCrawl starts a crawl job over the enabled watch paths.
func (c *Client) StartCrawl(ctx context.Context) (ActionResponse, error) {
	return c.action(ctx, "/crawler/start")
}

// StopCrawl stops the running crawl job.
func (c *Client) StopCrawl(ctx context.Context) (ActionResponse, error) {
	return c.action(ctx, "/crawler/stop")
}

// StartMonitoring enables filesystem monitoring of the watch paths.
func (c *Client) StartMonitoring(ctx context.Context) (ActionResponse, error) {
	return c.action(ctx, "/crawler/monitor/start")
}

// StopMonitoring disables filesystem monitoring.
func (c *Client) StopMonitoring(ctx context.Context) (ActionResponse, error) {
	return c.action(ctx, "/crawler/monitor/stop")
}

// ClearIndexes drops every indexed document. Callers must confirm first.
func (c *Client) ClearIndexes(ctx context.Context) (ActionResponse, error) {
	return c.action(ctx, "/crawler/clear-indexes")
}

// action posts to an action endpoint. A reply with success=false is an
// *APIError carrying the backend's error or message text.
func (c *Client) action(ctx context.Context, path string) (ActionResponse, error) {
	var payload ActionResponse
	if err := c.post(ctx, path, nil, &payload); err != nil {
		return ActionResponse{}, err
	}
	if !payload.Success {
		msg := firstNonEmpty(payload.Error, payload.Message, "operation failed")
		return payload, &APIError{Method: http.MethodPost, Path: c.prefix + path, StatusCode: http.StatusOK, Message: msg}
	}
	return payload, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// FetchWatchPaths retrieves the configured watch paths. Both a bare array
// and a {"watch_paths": [...]} envelope are accepted.
func (c *Client) FetchWatchPaths(ctx context.Context) ([]WatchPath, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/config/watch-paths", &raw); err != nil {
		return nil, err
	}
	return decodeWatchPaths(raw)
}

func decodeWatchPaths(raw json.RawMessage) ([]WatchPath, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var list []WatchPath
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode watch paths: %w", err)
		}
		return list, nil
	}
	var envelope struct {
		WatchPaths []WatchPath `json:"watch_paths"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode watch paths: %w", err)
	}
	return envelope.WatchPaths, nil
}

// CreateWatchPath registers a single directory.
func (c *Client) CreateWatchPath(ctx context.Context, req WatchPathCreate) (WatchPath, error) {
	if strings.TrimSpace(req.Path) == "" {
		return WatchPath{}, fmt.Errorf("path required")
	}
	var payload WatchPath
	if err := c.post(ctx, "/config/watch-paths", req, &payload); err != nil {
		return WatchPath{}, err
	}
	return payload, nil
}

// UpdateWatchPath changes the flags of an existing watch path.
func (c *Client) UpdateWatchPath(ctx context.Context, id int64, req WatchPathUpdate) (WatchPath, error) {
	var payload WatchPath
	rel := c.rel("/config/watch-paths/"+strconv.FormatInt(id, 10), nil)
	if err := c.doURL(ctx, http.MethodPut, rel, req, &payload); err != nil {
		return WatchPath{}, err
	}
	return payload, nil
}

// DeleteWatchPath removes a watch path.
func (c *Client) DeleteWatchPath(ctx context.Context, id int64) error {
	rel := c.rel("/config/watch-paths/"+strconv.FormatInt(id, 10), nil)
	return c.doURL(ctx, http.MethodDelete, rel, nil, nil)
}

// BatchAddWatchPaths registers several directories at once. Paths the
// backend refuses are reported in Skipped with its reason.
func (c *Client) BatchAddWatchPaths(ctx context.Context, req BatchWatchPathRequest) (BatchWatchPathResponse, error) {
	if len(req.Paths) == 0 {
		return BatchWatchPathResponse{}, fmt.Errorf("no paths given")
	}
	var payload BatchWatchPathResponse
	if err := c.post(ctx, "/config/watch-paths/batch", req, &payload); err != nil {
		return BatchWatchPathResponse{}, err
	}
	return payload, nil
}

// FetchRoots lists the folder picker's starting points.
func (c *Client) FetchRoots(ctx context.Context) ([]FSRoot, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/fs/roots", &raw); err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var roots []FSRoot
		if err := json.Unmarshal(raw, &roots); err != nil {
			return nil, fmt.Errorf("decode roots: %w", err)
		}
		return roots, nil
	}
	var envelope struct {
		Roots []FSRoot `json:"roots"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode roots: %w", err)
	}
	return envelope.Roots, nil
}

// ListDirectory lists the subdirectories of path.
func (c *Client) ListDirectory(ctx context.Context, path string) (FSListing, error) {
	values := url.Values{}
	if p := strings.TrimSpace(path); p != "" {
		values.Set("path", p)
	}
	var payload FSListing
	if err := c.doURL(ctx, http.MethodGet, c.rel("/fs/list", values), nil, &payload); err != nil {
		return FSListing{}, err
	}
	payload.Entries = payload.Directories()
	return payload, nil
}
