package fileops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/filebrain/console/internal/filebrain"
	"github.com/filebrain/console/internal/search"
)

// ErrInFlight is returned when the same operation on the same path is
// already running.
var ErrInFlight = errors.New("operation already in progress")

// Op is a file operation triggered from a search hit.
type Op int

const (
	OpOpen Op = iota
	OpOpenFolder
	OpDelete
	OpForget
)

func (o Op) String() string {
	switch o {
	case OpOpen:
		return "open"
	case OpOpenFolder:
		return "open folder"
	case OpDelete:
		return "delete"
	case OpForget:
		return "forget"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Destructive reports whether the view must confirm before running o.
func (o Op) Destructive() bool {
	return o == OpDelete || o == OpForget
}

// removesHit reports whether a successful o drops the file from results.
func (o Op) removesHit() bool {
	return o.Destructive()
}

// API is the subset of the backend client used by the bridge.
type API interface {
	OpenFile(ctx context.Context, path string) (filebrain.FileOpResult, error)
	OpenFolder(ctx context.Context, path string) (filebrain.FileOpResult, error)
	DeleteFile(ctx context.Context, path string) (filebrain.FileOpResult, error)
	ForgetFile(ctx context.Context, path string) (filebrain.FileOpResult, error)
}

var _ API = (*filebrain.Client)(nil)

// ToastKind selects toast styling.
type ToastKind int

const (
	ToastSuccess ToastKind = iota
	ToastError
)

// Toast is a one-line notification shown after an operation.
type Toast struct {
	Kind ToastKind
	Text string
}

// Outcome is the reconciled result of one operation.
type Outcome struct {
	Op    Op
	Path  string
	Hits  []search.Hit
	Toast Toast
	Err   error
}

// Bridge runs file operations and reconciles the visible hit list.
type Bridge struct {
	api    API
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
}

// NewBridge returns a Bridge backed by api.
func NewBridge(api API, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{api: api, logger: logger, pending: make(map[string]struct{})}
}

// Do runs op on path. On success, delete and forget return hits without the
// file; on failure hits are returned unchanged and the toast carries the
// backend's error text.
func (b *Bridge) Do(ctx context.Context, op Op, path string, hits []search.Hit) Outcome {
	out := Outcome{Op: op, Path: path, Hits: hits}

	key := op.String() + "\x00" + path
	if !b.acquire(key) {
		out.Err = ErrInFlight
		out.Toast = Toast{Kind: ToastError, Text: ErrInFlight.Error()}
		return out
	}
	defer b.release(key)

	res, err := b.call(ctx, op, path)
	if err != nil {
		out.Err = err
		out.Toast = Toast{Kind: ToastError, Text: filebrain.ErrorMessage(err)}
		b.logger.Warn("file operation failed", "op", op.String(), "path", path, "error", err)
		return out
	}

	if op.removesHit() {
		out.Hits = search.RemovePath(hits, path)
	}
	out.Toast = Toast{Kind: ToastSuccess, Text: successText(op, path, res.Message)}
	b.logger.Info("file operation succeeded", "op", op.String(), "path", path)
	return out
}

func (b *Bridge) call(ctx context.Context, op Op, path string) (filebrain.FileOpResult, error) {
	switch op {
	case OpOpen:
		return b.api.OpenFile(ctx, path)
	case OpOpenFolder:
		return b.api.OpenFolder(ctx, path)
	case OpDelete:
		return b.api.DeleteFile(ctx, path)
	case OpForget:
		return b.api.ForgetFile(ctx, path)
	default:
		return filebrain.FileOpResult{}, fmt.Errorf("unknown file operation %d", int(op))
	}
}

func (b *Bridge) acquire(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, busy := b.pending[key]; busy {
		return false
	}
	b.pending[key] = struct{}{}
	return true
}

func (b *Bridge) release(key string) {
	b.mu.Lock()
	delete(b.pending, key)
	b.mu.Unlock()
}

func successText(op Op, path, message string) string {
	if msg := strings.TrimSpace(message); msg != "" {
		return msg
	}
	name := filepath.Base(path)
	switch op {
	case OpOpen:
		return "Opened " + name
	case OpOpenFolder:
		return "Opened folder for " + name
	case OpDelete:
		return "Deleted " + name
	case OpForget:
		return "Removed " + name + " from index"
	default:
		return "Done"
	}
}
