package filebrain

import (
	"context"
	"fmt"
	"strings"
)

// OpenFile opens path with the desktop's default application.
func (c *Client) OpenFile(ctx context.Context, path string) (FileOpResult, error) {
	return c.fileOp(ctx, "/files/open", FileOpRequest{FilePath: path, Operation: OpenAsFile})
}

// OpenFolder opens the folder containing path.
func (c *Client) OpenFolder(ctx context.Context, path string) (FileOpResult, error) {
	return c.fileOp(ctx, "/files/open", FileOpRequest{FilePath: path, Operation: OpenAsFolder})
}

// DeleteFile deletes path from disk and from the index.
func (c *Client) DeleteFile(ctx context.Context, path string) (FileOpResult, error) {
	return c.fileOp(ctx, "/files/delete", FileOpRequest{FilePath: path})
}

// ForgetFile removes path from the index and leaves the file on disk.
func (c *Client) ForgetFile(ctx context.Context, path string) (FileOpResult, error) {
	return c.fileOp(ctx, "/files/forget", FileOpRequest{FilePath: path})
}

// fileOp returns an error for transport failures, non-2xx replies, and
// replies with success=false. The error text is the backend's own message.
func (c *Client) fileOp(ctx context.Context, path string, req FileOpRequest) (FileOpResult, error) {
	if strings.TrimSpace(req.FilePath) == "" {
		return FileOpResult{}, fmt.Errorf("file path required")
	}
	var payload FileOpResult
	if err := c.post(ctx, path, req, &payload); err != nil {
		return FileOpResult{}, err
	}
	if !payload.Success {
		msg := firstNonEmpty(payload.Error, payload.Message, "operation failed")
		return payload, &APIError{Method: "POST", Path: c.prefix + path, StatusCode: 200, Message: msg}
	}
	return payload, nil
}
