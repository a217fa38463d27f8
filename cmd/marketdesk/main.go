package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/marketdesk/internal/app"
	"github.com/odyssey-erp/marketdesk/internal/export"
	"github.com/odyssey-erp/marketdesk/internal/fraud"
	"github.com/odyssey-erp/marketdesk/internal/marketapi"
	"github.com/odyssey-erp/marketdesk/internal/mutation"
	"github.com/odyssey-erp/marketdesk/internal/notify"
	"github.com/odyssey-erp/marketdesk/internal/observability"
	"github.com/odyssey-erp/marketdesk/internal/orders"
	"github.com/odyssey-erp/marketdesk/internal/platform/cache"
	"github.com/odyssey-erp/marketdesk/internal/products"
	"github.com/odyssey-erp/marketdesk/internal/screen"
	"github.com/odyssey-erp/marketdesk/internal/session"
	"github.com/odyssey-erp/marketdesk/internal/shared"
	"github.com/odyssey-erp/marketdesk/internal/vouchers"
	"github.com/odyssey-erp/marketdesk/internal/workspace"
	"github.com/odyssey-erp/marketdesk/jobs"
	"github.com/odyssey-erp/marketdesk/report"
)

func main() {
	if app.SkipStartup("http server") {
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

	formatter, err := export.NewFormatter(cfg.Locale, cfg.Currency)
	if err != nil {
		logger.Error("init formatter", slog.Any("error", err))
		os.Exit(1)
	}

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

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	credentials := session.NewRedisStore(redisClient, cfg.SessionTTL)
	notifications := notify.NewQueue(redisClient, cfg.NotifyTTL)
	results := export.NewResults(redisClient, cfg.ExportTTL)

	var registry *workspace.Registry
	metrics := observability.NewMetrics(func() int { return registry.Len() })

	api := marketapi.NewClient(cfg.MarketAPIURL, &http.Client{Timeout: cfg.MarketAPITimeout}, nil)
	registry = workspace.NewRegistry(workspace.Deps{
		API:             api,
		Credentials:     credentials,
		Notifications:   notifications,
		Metrics:         metrics,
		Formatter:       formatter,
		Validate:        mutation.NewValidator(),
		MutationTimeout: cfg.MutationTimeout,
		Logger:          logger,
	}, cfg.WorkspaceMax, cfg.WorkspaceIdleTTL)

	pdfClient := report.NewClient(cfg.GotenbergURL, 0)
	renderer, err := export.NewPDFRenderer(pdfClient, formatter)
	if err != nil {
		logger.Error("init pdf renderer", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	screenDeps := screen.HandlerDeps{
		Logger: logger,
		PDF:    renderer,
		Queue:  jobs.NewExportQueue(jobClient, results),
	}

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		SessionManager:      sessionManager,
		CSRFManager:         csrfManager,
		SessionHandler:      session.NewHandler(credentials, csrfManager, registry.Drop, logger),
		NotificationHandler: notify.NewHandler(notifications, logger),
		ExportHandler:       export.NewHandler(results, logger),
		FraudHandler:        fraud.NewHandler(registry.FraudService(), screenDeps),
		OrderHandler:        orders.NewHandler(registry.OrderService(), screenDeps),
		VoucherHandler:      vouchers.NewHandler(registry.VoucherService(), screenDeps),
		ProductHandler:      products.NewHandler(registry.ProductService(), screenDeps),
		ReportHandler:       report.NewHandler(pdfClient, logger),
		JobHandler:          jobs.NewHandler(inspector, logger),
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("marketplace", cfg.MarketAPIURL))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
