package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/filebrain/console/internal/filebrain"
	"github.com/filebrain/console/internal/state"
)

const defaultReconnectBase = 2 * time.Second

// SyncerOptions tune the synchroniser. Zero values use the defaults.
type SyncerOptions struct {
	PollInterval  time.Duration
	ReconnectBase time.Duration
	Logger        *slog.Logger
}

// Syncer keeps a state.Store current. It prefers the crawler push stream and
// falls back to polling while the stream is down.
type Syncer struct {
	store         *state.Store
	source        filebrain.StatusFetcher
	interval      time.Duration
	reconnectBase time.Duration
	logger        *slog.Logger
}

// NewSyncer builds a Syncer writing into store.
func NewSyncer(store *state.Store, source filebrain.StatusFetcher, opts SyncerOptions) *Syncer {
	s := &Syncer{
		store:         store,
		source:        source,
		interval:      opts.PollInterval,
		reconnectBase: opts.ReconnectBase,
		logger:        opts.Logger,
	}
	if s.interval <= 0 {
		s.interval = defaultPollInterval
	}
	if s.reconnectBase <= 0 {
		s.reconnectBase = defaultReconnectBase
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Run loads the initial snapshot and then follows the crawler and
// initialisation streams until ctx is cancelled. It returns only after every
// stream and poller it started has exited.
func (s *Syncer) Run(ctx context.Context) error {
	refresh(ctx, s.store, s.source, s.logger)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.followCrawler(ctx)
	}()
	go func() {
		defer wg.Done()
		s.followInitialization(ctx)
	}()
	wg.Wait()
	return nil
}

// Refresh fetches every slice once, outside the regular schedule.
func (s *Syncer) Refresh(ctx context.Context) {
	refresh(ctx, s.store, s.source, s.logger)
}

func (s *Syncer) followCrawler(ctx context.Context) {
	var poller *fallbackPoller
	defer func() { poller.stop() }()

	attempt := 0
	for {
		if attempt > 0 && !sleepCtx(ctx, calculateBackoff(attempt-1, s.reconnectBase)) {
			return
		}
		stream, err := s.source.OpenStream(ctx, filebrain.StreamCrawler)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("crawler stream unavailable", "attempt", attempt+1, "error", err)
			s.store.SetLive(false)
			if poller == nil {
				poller = startPoller(ctx, s.store, s.source, s.interval, s.logger)
			}
			attempt++
			continue
		}

		// The poller must be gone before the first stream message lands.
		poller.stop()
		poller = nil
		attempt = 0
		s.store.ClearError(state.SourceCrawlerStream)
		s.store.SetLive(true)
		s.logger.Info("crawler stream connected")

		err = s.consume(ctx, stream, s.dispatch)
		_ = stream.Close()
		s.store.SetLive(false)
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("crawler stream closed", "error", err)
		poller = startPoller(ctx, s.store, s.source, s.interval, s.logger)
		attempt = 1
	}
}

func (s *Syncer) consume(ctx context.Context, stream *filebrain.Stream, handle func(filebrain.StreamEvent)) error {
	for {
		evt, err := stream.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		handle(evt)
	}
}

// crawlerMessage is the payload of crawler stream updates.
type crawlerMessage struct {
	Status *filebrain.CrawlStatus `json:"status"`
	Stats  *filebrain.CrawlStats  `json:"stats"`
}

// dispatch applies one crawler stream event to the store.
func (s *Syncer) dispatch(evt filebrain.StreamEvent) {
	switch evt.Kind {
	case filebrain.EventHeartbeat, filebrain.EventComplete:
	case filebrain.EventError:
		s.store.RecordError(state.SourceCrawlerStream, fmt.Errorf("crawler stream: %s", evt.Message))
	case filebrain.EventUpdate:
		var msg crawlerMessage
		if err := evt.Decode(&msg); err != nil {
			s.logger.Debug("ignoring crawler message", "error", err)
			return
		}
		s.store.Apply(state.Update{Status: msg.Status, Stats: msg.Stats})
	}
}

// followInitialization keeps the initialisation slice current. It reads the
// initialisation stream until start-up completes, then re-fetches the slice
// every interval. Ticks are skipped while the fallback poller is covering
// the slice.
func (s *Syncer) followInitialization(ctx context.Context) {
	if !s.store.Snapshot().IsInitializationComplete() {
		stream, err := s.source.OpenStream(ctx, filebrain.StreamInitialization)
		if err == nil {
			err = s.consume(ctx, stream, s.dispatchInitialization)
			_ = stream.Close()
		}
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Debug("initialization stream unavailable, polling", "error", err)
		}
	}

	for sleepCtx(ctx, s.interval) {
		snap := s.store.Snapshot()
		if !snap.Live && snap.IsInitializationComplete() {
			continue
		}
		si, err := s.source.FetchInitialization(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.store.RecordError(state.SourceInitialization, fmt.Errorf("fetch initialization: %w", err))
			continue
		}
		s.store.Apply(state.Update{Initialization: si})
		s.store.ClearError(state.SourceInitialization)
		s.store.ClearError(state.SourceInitStream)
	}
}

func (s *Syncer) dispatchInitialization(evt filebrain.StreamEvent) {
	switch evt.Kind {
	case filebrain.EventError:
		s.store.RecordError(state.SourceInitStream, fmt.Errorf("initialization stream: %s", evt.Message))
	case filebrain.EventUpdate, filebrain.EventComplete:
		var si filebrain.SystemInitialization
		if err := evt.Decode(&si); err != nil {
			return
		}
		if si.OverallStatus == "" && si.Services == nil && si.Progress == 0 {
			return
		}
		s.store.Apply(state.Update{Initialization: &si})
		s.store.ClearError(state.SourceInitStream)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
