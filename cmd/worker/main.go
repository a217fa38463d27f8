package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/marketdesk/internal/app"
	"github.com/odyssey-erp/marketdesk/internal/export"
	jobmetrics "github.com/odyssey-erp/marketdesk/internal/jobs"
	"github.com/odyssey-erp/marketdesk/internal/observability"
	"github.com/odyssey-erp/marketdesk/internal/platform/cache"
	"github.com/odyssey-erp/marketdesk/jobs"
	"github.com/odyssey-erp/marketdesk/report"
)

func main() {
	if app.SkipStartup("worker") {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.Connect(ctx, cache.Options{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	formatter, err := export.NewFormatter(cfg.Locale, cfg.Currency)
	if err != nil {
		logger.Error("init formatter", slog.Any("error", err))
		os.Exit(1)
	}
	renderer, err := export.NewPDFRenderer(report.NewClient(cfg.GotenbergURL, 0), formatter)
	if err != nil {
		logger.Error("init pdf renderer", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics(nil)
	exportJob := jobs.NewExportPDFJob(
		renderer,
		export.NewResults(redisClient, cfg.ExportTTL),
		logger,
		jobmetrics.NewMetrics(metrics.Registerer()),
	)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskExportPDF, Handler: exportJob.Handle},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving worker metrics", slog.String("addr", cfg.WorkerMetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
