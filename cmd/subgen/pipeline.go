package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"subgen/internal/batch"
	"subgen/internal/config"
	"subgen/internal/fetch"
	"subgen/internal/history"
	"subgen/internal/logging"
	"subgen/internal/metrics"
	"subgen/internal/notifications"
	"subgen/internal/preflight"
	"subgen/internal/runner"
	"subgen/internal/transcribe"
	"subgen/internal/workspace"
)

type pipelineOptions struct {
	concurrency int
	metrics     bool
}

// pipeline owns everything a run needs and releases it in Close.
type pipeline struct {
	scheduler     *batch.Scheduler
	notifier      notifications.Service
	history       *history.Store
	metricsServer *metrics.Server
	workspace     *workspace.Manager
	logger        *slog.Logger
}

func buildPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts pipelineOptions) (*pipeline, error) {
	ws, err := workspace.Open(cfg.Paths.WorkDir, logger)
	if err != nil {
		return nil, fmt.Errorf("open work directory: %w", err)
	}
	p := &pipeline{
		workspace: ws,
		notifier:  notifications.NewService(cfg),
		logger:    logger,
	}

	concurrency := opts.concurrency
	if concurrency < 1 {
		concurrency = cfg.Batch.Concurrency
	}
	pool := transcribe.NewEnginePool(concurrency)
	jobRunner := runner.New(
		fetch.NewFromConfig(cfg, fetch.WithLogger(logger)),
		transcribe.NewFromConfig(cfg, transcribe.WithLogger(logger)),
		ws,
		runner.WithLogger(logger),
		runner.WithEnginePool(pool),
	)

	schedOpts := []batch.Option{
		batch.WithConcurrency(concurrency),
		batch.WithPreflight(batch.PreflightFunc(preflight.ForBatch(cfg))),
		batch.WithLogger(logger),
	}

	store, err := history.Open(ctx, cfg.Paths.HistoryPath)
	if err != nil {
		logger.Warn("batch history unavailable; continuing without it",
			logging.String(logging.FieldEventType, "history_unavailable"),
			logging.Error(err),
		)
	} else {
		p.history = store
		schedOpts = append(schedOpts, batch.WithRecorder(store))
	}

	if opts.metrics || cfg.Metrics.Enabled {
		m := metrics.New(pool)
		srv, err := m.Start(cfg.Metrics.Bind, logger)
		if err != nil {
			p.Close(ctx)
			return nil, fmt.Errorf("start metrics endpoint: %w", err)
		}
		p.metricsServer = srv
		schedOpts = append(schedOpts, batch.WithObserver(m))
	}

	p.scheduler = batch.New(jobRunner, schedOpts...)
	return p, nil
}

// Close stops the metrics endpoint and releases the history store and work
// directory lock.
func (p *pipeline) Close(ctx context.Context) error {
	var errs []error
	if p.metricsServer != nil {
		if err := p.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop metrics endpoint: %w", err))
		}
	}
	if p.history != nil {
		if err := p.history.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close history: %w", err))
		}
	}
	if p.workspace != nil {
		if err := p.workspace.Close(); err != nil {
			errs = append(errs, fmt.Errorf("release work directory: %w", err))
		}
	}
	return errors.Join(errs...)
}
