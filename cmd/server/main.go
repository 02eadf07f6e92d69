package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/anilytics/agriwarehouse/internal/config"
	"github.com/anilytics/agriwarehouse/internal/domain/allocation"
	"github.com/anilytics/agriwarehouse/internal/domain/risk"
	"github.com/anilytics/agriwarehouse/internal/repository/mongodb"
	"github.com/anilytics/agriwarehouse/internal/repository/postgres"
	"github.com/anilytics/agriwarehouse/internal/repository/sheets"
	"github.com/anilytics/agriwarehouse/internal/scheduler"
	"github.com/anilytics/agriwarehouse/internal/server/handlers"
	"github.com/anilytics/agriwarehouse/internal/server/router"
	alertsvc "github.com/anilytics/agriwarehouse/internal/service/alerts"
	batchsvc "github.com/anilytics/agriwarehouse/internal/service/batches"
	inventorysvc "github.com/anilytics/agriwarehouse/internal/service/inventory"
	reportingsvc "github.com/anilytics/agriwarehouse/internal/service/reporting"
	"github.com/anilytics/agriwarehouse/pkg/clients/anthropic"
	"github.com/anilytics/agriwarehouse/pkg/clients/gemini"
	whatsappclient "github.com/anilytics/agriwarehouse/pkg/clients/whatsapp"
	"github.com/anilytics/agriwarehouse/pkg/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("ENV_FILE"))
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.Connect(ctx, cfg.Database.URL, baseLogger.Named("repo.postgres"))
	if err != nil {
		baseLogger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		baseLogger.Fatal("failed to migrate schema", zap.Error(err))
	}

	scorer := risk.NewScorer(cfg.Risk)
	allocator := allocation.NewAllocator(nil)

	var reportOpts []reportingsvc.Option

	if cfg.MongoDB.Enabled() {
		mongoRepo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		reportOpts = append(reportOpts, reportingsvc.WithArchive(mongoRepo))
		baseLogger.Info("distribution archive enabled")
	} else {
		baseLogger.Warn("MONGODB_URI missing, distribution archive disabled")
	}

	switch cfg.AI.Provider {
	case config.AIProviderAnthropic:
		client := anthropic.NewClient(cfg.AI.AnthropicKey, anthropic.WithLogger(baseLogger.Named("ai.anthropic")))
		reportOpts = append(reportOpts, reportingsvc.WithAdvisor(client))
		baseLogger.Info("anthropic ai advisor enabled")
	case config.AIProviderGemini:
		client, err := gemini.NewClient(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiModel, baseLogger.Named("ai.gemini"))
		if err != nil {
			baseLogger.Fatal("failed to init gemini client", zap.Error(err))
		}
		defer func() { _ = client.Close() }()
		reportOpts = append(reportOpts, reportingsvc.WithAdvisor(client))
		baseLogger.Info("gemini ai advisor enabled", zap.String("model", cfg.AI.GeminiModel))
	default:
		baseLogger.Warn("no ai provider configured, distribution plans are rule-based only")
	}

	var sender alertsvc.Sender
	if cfg.WhatsApp.AccessToken != "" && cfg.WhatsApp.PhoneNumberID != "" {
		sender = whatsappclient.NewClient(cfg.WhatsApp)
	}
	alerts := alertsvc.NewService(sender, cfg.WhatsApp.AlertRecipient, baseLogger.Named("svc.alerts"))
	if !alerts.Enabled() {
		baseLogger.Warn("whatsapp credentials or ALERT_RECIPIENT missing, alerts disabled")
	}

	batchService := batchsvc.NewService(store, scorer, alerts, baseLogger.Named("svc.batches"))
	inventoryService := inventorysvc.NewService(store, nil, baseLogger.Named("svc.inventory"))
	reportingService := reportingsvc.NewService(store, scorer, allocator, reportingsvc.Settings{
		Channels:          cfg.Channels,
		AveragePricePerKg: cfg.Reporting.AveragePricePerKg,
		AITimeout:         cfg.AI.Timeout,
	}, baseLogger.Named("svc.reporting"), reportOpts...)

	jobs := scheduler.Jobs{
		Rescorer: batchService,
		Planner:  reportingService,
		Capacity: inventoryService,
		Notifier: alerts,
	}
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		jobs.Exporter = sheets.NewPlanExporter(sheetsRepo, baseLogger.Named("export.sheets"))
		baseLogger.Info("google sheets export enabled")
	}

	sched, err := scheduler.NewScheduler(cfg.Reporting, jobs, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	engine := router.New(router.Handlers{
		Batches:    handlers.NewBatchHandler(batchService, baseLogger.Named("handlers.batches")),
		Inventory:  handlers.NewInventoryHandler(inventoryService, baseLogger.Named("handlers.inventory")),
		Reports:    handlers.NewReportHandler(reportingService, baseLogger.Named("handlers.reports")),
		Simulation: handlers.NewSimulationHandler(scorer, allocator, cfg.Channels, baseLogger.Named("handlers.simulation")),
		Alerts:     handlers.NewAlertHandler(alerts, baseLogger.Named("handlers.alerts")),
	}, baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
