// Package worker runs the background match pass: unresolved catalog apps
// are periodically looked up against the store.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/appgrove/ingest-api/internal/repository"
	"github.com/appgrove/ingest-api/internal/service"
)

// Worker polls for unmatched apps and runs the match service on them.
type Worker struct {
	appRepo      repository.AppRepository
	matchSvc     *service.MatchService
	pollInterval time.Duration
	batchSize    int
	concurrency  int
	stop         chan struct{}
	wg           sync.WaitGroup
	logger       *slog.Logger
}

// Config holds worker configuration.
type Config struct {
	PollInterval time.Duration
	BatchSize    int
	Concurrency  int
}

// New creates a new match worker.
func New(appRepo repository.AppRepository, matchSvc *service.MatchService, cfg Config, logger *slog.Logger) *Worker {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 20
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		appRepo:      appRepo,
		matchSvc:     matchSvc,
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		concurrency:  cfg.Concurrency,
		stop:         make(chan struct{}),
		logger:       logger.With("component", "match-worker"),
	}
}

// Start begins the polling loop.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("starting", "poll_interval", w.pollInterval, "batch_size", w.batchSize)
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop gracefully stops the worker, waiting for the in-flight pass.
func (w *Worker) Stop() {
	w.logger.Info("stopping")
	close(w.stop)
	w.wg.Wait()
	w.logger.Info("stopped")
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runPass(ctx)
		}
	}
}

// runPass matches one batch of unresolved apps with bounded concurrency.
// Per-app failures are logged and do not stop the pass.
func (w *Worker) runPass(ctx context.Context) {
	apps, err := w.appRepo.ListUnmatched(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("failed to list unmatched apps", "error", err)
		return
	}
	if len(apps) == 0 {
		return
	}

	w.logger.Info("match pass started", "apps", len(apps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, app := range apps {
		g.Go(func() error {
			result, err := w.matchSvc.MatchApp(gctx, app.ID)
			if err != nil {
				w.logger.Warn("match failed", "app_id", app.ID, "error", err)
				return nil
			}
			w.logger.Debug("match finished",
				"app_id", app.ID,
				"status", result.Status,
				"confidence", result.Confidence,
			)
			return nil
		})
	}
	_ = g.Wait()
}
