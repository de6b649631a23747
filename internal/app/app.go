package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/filebrain/console/internal/config"
	"github.com/filebrain/console/internal/filebrain"
	"github.com/filebrain/console/internal/fileops"
	"github.com/filebrain/console/internal/logging"
	"github.com/filebrain/console/internal/prefs"
	"github.com/filebrain/console/internal/search"
	"github.com/filebrain/console/internal/state"
	"github.com/filebrain/console/internal/telemetry"
	"github.com/filebrain/console/internal/ui"
	"github.com/filebrain/console/internal/watchpaths"
	"github.com/filebrain/console/internal/wizard"
)

const shutdownTimeout = 5 * time.Second

// Options configure the console.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses ~/.config/filebrain/prefs.toml
	PollEvery  int    // seconds; zero uses the configured interval
	Verbose    bool
	Version    string
}

// Run boots the console until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = cfg.WithPollSeconds(opts.PollEvery)

	logger, logCloser, err := logging.Open(logging.Options{Path: cfg.LogFile, Verbose: opts.Verbose})
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()
	slog.SetDefault(logger)

	shutdown, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    "fbconsole",
		ServiceVersion: opts.Version,
		Endpoint:       cfg.OTelEndpoint,
	})
	if err != nil {
		logger.Warn("telemetry disabled", "error", err)
	} else {
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				logger.Warn("telemetry shutdown", "error", err)
			}
		}()
	}

	logger.Info("starting fbconsole", "version", opts.Version, "config", cfg.String())
	if cfg.UsesDefaultSearchKey() {
		logger.Warn("search engine uses the sample API key; set FILEBRAIN_SEARCH_API_KEY for anything but a local setup")
	}

	client, err := filebrain.NewClient(cfg.APIURL, cfg.APIPrefix)
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}

	searcher, err := search.NewClient(search.Config{
		URL:        cfg.SearchURL,
		APIKey:     cfg.SearchAPIKey,
		Collection: cfg.SearchCollection,
	})
	if err != nil {
		return fmt.Errorf("init search client: %w", err)
	}

	store := &state.Store{}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	syncer := NewSyncer(store, client, SyncerOptions{
		PollInterval: cfg.PollInterval,
		Logger:       logger.With("component", "sync"),
	})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = syncer.Run(runCtx)
	}()

	machine := wizard.New(client, wizard.Options{Logger: logger})
	defer machine.Close()

	userPrefs := prefs.Load(opts.PrefsPath)
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	err = ui.Run(ui.Options{
		Context:   runCtx,
		Backend:   client,
		Store:     store,
		Wizard:    machine,
		Search:    searcher,
		Files:     fileops.NewBridge(client, logger.With("component", "files")),
		Watch:     watchpaths.NewManager(client, store, logger.With("component", "watchpaths")),
		Sync:      syncer,
		Logger:    logger,
		LogPath:   cfg.LogFile,
		ThemeName: userPrefs.Theme,
		PrefsPath: prefsPath,
	})

	cancel()
	wg.Wait()
	if err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	logger.Info("fbconsole stopped")
	return nil
}
