package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/filebrain/console/internal/filebrain"
	"github.com/filebrain/console/internal/state"
)

const (
	defaultPollInterval = 5 * time.Second
	// maxBackoff caps the delay between stream reconnect attempts.
	maxBackoff = 30 * time.Second
)

// calculateBackoff doubles base once per consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for range failures {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// fallbackPoller refreshes the store at a fixed cadence while the push
// stream is down.
type fallbackPoller struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// startPoller launches the poller. The first refresh runs immediately.
func startPoller(ctx context.Context, store *state.Store, source filebrain.StatusFetcher, interval time.Duration, logger *slog.Logger) *fallbackPoller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	p := &fallbackPoller{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		logger.Debug("fallback polling started", "interval", interval)
		for {
			refresh(ctx, store, source, logger)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return p
}

// stop cancels the poller and waits until it can no longer touch the store.
func (p *fallbackPoller) stop() {
	if p == nil {
		return
	}
	p.cancel()
	<-p.done
}

// refresh issues the four status fetches in parallel. Each result is applied
// on its own, so one failing endpoint does not hold back the others. A
// slice's error is cleared only by that slice's own successful fetch.
func refresh(ctx context.Context, store *state.Store, source filebrain.StatusFetcher, logger *slog.Logger) {
	var wg sync.WaitGroup
	apply := func(name string, fetch func() (state.Update, error)) {
		defer wg.Done()
		update, err := fetch()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			store.RecordError(name, fmt.Errorf("fetch %s: %w", name, err))
			logger.Warn("poll failed", "slice", name, "error", err)
			return
		}
		store.Apply(update)
		store.ClearError(name)
	}

	wg.Add(4)
	go apply(state.SourceStatus, func() (state.Update, error) {
		status, err := source.FetchStatus(ctx)
		return state.Update{Status: status}, err
	})
	go apply(state.SourceStats, func() (state.Update, error) {
		stats, err := source.FetchStats(ctx)
		return state.Update{Stats: stats}, err
	})
	go apply(state.SourceWatchPaths, func() (state.Update, error) {
		paths, err := source.FetchWatchPaths(ctx)
		return state.WatchPathsUpdate(paths), err
	})
	go apply(state.SourceInitialization, func() (state.Update, error) {
		si, err := source.FetchInitialization(ctx)
		return state.Update{Initialization: si}, err
	})
	wg.Wait()
}
