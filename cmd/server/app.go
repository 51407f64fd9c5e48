package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/n1kh11p/blokt-sub000/internal/analysis"
	"github.com/n1kh11p/blokt-sub000/internal/config"
	"github.com/n1kh11p/blokt-sub000/internal/database"
	"github.com/n1kh11p/blokt-sub000/internal/logger"
	"github.com/n1kh11p/blokt-sub000/internal/metrics"
	"github.com/n1kh11p/blokt-sub000/internal/notify"
	"github.com/n1kh11p/blokt-sub000/internal/repository"
	"github.com/n1kh11p/blokt-sub000/internal/server"
	"github.com/n1kh11p/blokt-sub000/internal/services"
	"github.com/n1kh11p/blokt-sub000/internal/storage"
	"gorm.io/gorm"
)

// app holds everything a command needs after startup. Fields stay nil for
// commands that do not need them.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	db       *gorm.DB
	store    *repository.Store
	metrics  *metrics.Metrics
	backend  storage.Backend
	notifier notify.Notifier
	runner   *analysis.Runner
	services server.Services
}

// bootstrap loads config and opens the database; every command needs both.
func bootstrap() (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	gin.SetMode(cfg.GinMode)

	log := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Release:     "blokt@" + version,
			Environment: cfg.GinMode,
		}); err != nil {
			return nil, fmt.Errorf("sentry initialization failed: %w", err)
		}
	}

	db, err := database.Connect(cfg, log)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, db: db, store: repository.NewStore(db)}, nil
}

// buildServices wires the service graph, including storage, notifiers and the
// analysis runner.
func (a *app) buildServices() error {
	m, err := metrics.New()
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}
	a.metrics = m

	if a.backend, err = storage.New(a.cfg); err != nil {
		return fmt.Errorf("failed to open %s storage: %w", a.cfg.StorageBackend, err)
	}
	if a.notifier, err = notify.New(a.cfg, logger.Module(a.log, "notify")); err != nil {
		return fmt.Errorf("failed to create notifiers: %w", err)
	}

	dashboard := services.NewDashboardService(a.store, a.cfg.DashboardCacheTTL, m)

	var analyzer services.Analyzer
	if a.cfg.OpenAIAPIKey != "" {
		analyzer = services.NewOpenAIAnalyzer(services.OpenAIConfig{
			APIKey:  a.cfg.OpenAIAPIKey,
			Model:   a.cfg.OpenAIModel,
			BaseURL: a.cfg.OpenAIBaseURL,
		})
	} else {
		a.log.Warn("OPENAI_API_KEY not set, video analysis is disabled")
	}

	video := services.NewVideoService(services.VideoServiceConfig{
		Store:        a.store,
		Backend:      a.backend,
		Analyzer:     analyzer,
		Cache:        dashboard,
		Metrics:      m,
		Log:          logger.Module(a.log, "video"),
		MinFreeBytes: a.cfg.UploadMinFreeBytes,
	})
	if analyzer != nil {
		a.runner = analysis.NewRunner(analysis.Config{
			Workers:   a.cfg.AnalysisWorkers,
			QueueSize: a.cfg.AnalysisQueueSize,
			Timeout:   a.cfg.AnalysisTimeout,
		}, logger.Module(a.log, "analysis"), m)
		a.runner.Start(video.ProcessAnalysis)
		video.SetQueue(a.runner)
	}

	a.services = server.Services{
		Auth:         services.NewAuthService(a.store, a.cfg.JWTSecret),
		Organization: services.NewOrganizationService(a.store, dashboard),
		Project:      services.NewProjectService(a.store, dashboard),
		Task:         services.NewTaskService(a.store, dashboard),
		Safety: services.NewSafetyService(a.store, dashboard, a.notifier, a.cfg.NotifyTimeout, m,
			logger.Module(a.log, "safety")),
		Video:     video,
		Procore:   services.NewProcoreService(a.store, dashboard, m, logger.Module(a.log, "procore")),
		Dashboard: dashboard,
		Analytics: services.NewAnalyticsService(a.store),
	}
	return nil
}

func (a *app) close() {
	if a.notifier != nil {
		a.notifier.Close()
	}
	if err := database.Close(a.db); err != nil {
		a.log.Error("failed to close database", "error", err)
	}
	sentry.Flush(sentryFlushTimeout)
}
