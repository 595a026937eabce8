package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/sitedir/internal/config"
	"github.com/MrSnakeDoc/sitedir/internal/directory"
	"github.com/MrSnakeDoc/sitedir/internal/docstore"
	"github.com/MrSnakeDoc/sitedir/internal/httpserver"
	"github.com/MrSnakeDoc/sitedir/internal/httpserver/deps"
	"github.com/MrSnakeDoc/sitedir/internal/httpserver/mw"
	"github.com/MrSnakeDoc/sitedir/internal/icon"
	"github.com/MrSnakeDoc/sitedir/internal/logger"
	"github.com/MrSnakeDoc/sitedir/internal/metrics"
	"github.com/MrSnakeDoc/sitedir/internal/mutate"
	"github.com/MrSnakeDoc/sitedir/internal/scheduler"
	"github.com/MrSnakeDoc/sitedir/internal/seed"
	"github.com/MrSnakeDoc/sitedir/internal/version"
)

type App struct {
	cfg       *config.Config
	logger    logger.Logger
	server    *httpserver.Server
	backend   backend
	scheduler *scheduler.Scheduler
	importer  *seed.Importer
	watcher   *seed.Watcher
}

func New() (*App, error) {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	be, err := openBackend(cfg, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to open %s store: %v", cfg.StoreBackend, err)
		return nil, err
	}
	loggerClient.Info("document store initialized", logger.String("backend", cfg.StoreBackend))

	mut := mutate.New(be.store, loggerClient.Named("mutate"),
		mutate.WithMaxAttempts(cfg.MutateMaxAttempts),
		mutate.WithObserver(observeMutation),
	)
	dir := directory.New(mut, loggerClient.Named("directory"))

	pipeline := icon.NewPipeline(&http.Client{}, loggerClient.Named("icon"),
		icon.WithTimeout(cfg.IconFetchTimeout),
		icon.WithUserAgent(cfg.IconUserAgent),
	)
	icons := icon.NewManager(be.store, pipeline, loggerClient.Named("icon"))
	batch := icon.NewBatchRefresher(icons, icon.RatePolicy{
		MaxConcurrency: cfg.IconBatchParallel,
		Delay:          cfg.IconBatchDelay,
	}, loggerClient.Named("batch"))

	sched := scheduler.New(dir, batch, dir, loggerClient.Named("scheduler"),
		scheduler.WithIconSchedule(cfg.IconRefreshCron),
		scheduler.WithReconcileSchedule(cfg.ReconcileCron),
	)

	var (
		importer *seed.Importer
		watcher  *seed.Watcher
	)
	if cfg.SeedFile != "" {
		importer = seed.NewImporter(seed.NewLoader(cfg.SeedFile), dir, loggerClient.Named("seed"))
		if cfg.WatchSeedFile {
			watcher = seed.NewWatcher(importer, loggerClient.Named("seed"))
		}
	} else {
		loggerClient.Info("seed file not configured, starting from stored documents only")
	}

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:       loggerClient,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		TimeNow:      time.Now,
		AllowedHosts: cfg.AllowedHosts,
		AllowedCIDRS: cfg.AllowedCIDRS,
		TrustProxy:   cfg.TrustProxy,
		StoreBackend: cfg.StoreBackend,
		Store:        be.store,
		StorePinger:  be.pinger,
		Icons:        icons,
		Scheduler:    sched,
		Directory:    dir,
		PublicLimiter: mw.NewRateLimiter(mw.RateLimitConfig{
			Burst:             cfg.PublicRateBurst,
			RefillPerIPPerMin: cfg.PublicRatePerMin,
			MaxEntries:        10000,
			TrustProxy:        cfg.TrustProxy,
		}),
		PublicRequestLimit: cfg.PublicRequestLimit,
		AdminRequestLimit:  cfg.AdminRequestLimit,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:       cfg,
		logger:    loggerClient,
		server:    server,
		backend:   be,
		scheduler: sched,
		importer:  importer,
		watcher:   watcher,
	}, nil
}

func observeMutation(_ string, attempts int, err error) {
	result := "ok"
	switch {
	case errors.Is(err, docstore.ErrConflict):
		result = "conflict"
	case err != nil:
		result = "error"
	}
	metrics.DocumentMutations.WithLabelValues(result).Inc()
	metrics.DocumentMutationAttempts.Observe(float64(attempts))
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Sitedir v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Sitedir %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.importer != nil {
		report, err := a.importer.Import(ctx)
		if err != nil {
			return fmt.Errorf("failed to import seed file: %w", err)
		}
		if report.Err != nil {
			a.logger.Warn("seed import finished with errors", logger.Error(report.Err))
		}
	}

	if a.watcher != nil {
		go func() {
			if err := a.watcher.Run(ctx); err != nil {
				a.logger.Error("seed watcher stopped", logger.Error(err))
			}
		}()
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	// Let a running batch finish, bounded by the shutdown budget.
	select {
	case <-a.scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		a.logger.Warn("scheduler jobs still running at shutdown")
	}

	if a.backend.closer != nil {
		if err := a.backend.closer.Close(); err != nil {
			a.logger.Warnf("failed to close %s store: %v", a.cfg.StoreBackend, err)
		} else {
			a.logger.Infof("✅ %s store closed cleanly", a.cfg.StoreBackend)
		}
	}

	a.logger.Info("✅ Sitedir stopped cleanly")
	return nil
}
