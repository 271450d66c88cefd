package main

import (
	"context"
	"time"

	"github.com/BarreraSlzr/automate-workloads-sub003/internal/config"
	"github.com/BarreraSlzr/automate-workloads-sub003/internal/handlers"
	"github.com/BarreraSlzr/automate-workloads-sub003/internal/models"
	"github.com/BarreraSlzr/automate-workloads-sub003/internal/services"
	"github.com/BarreraSlzr/automate-workloads-sub003/internal/utils"
	"github.com/BarreraSlzr/automate-workloads-sub003/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg          *config.Config
	registry     *services.ProviderRegistry
	orchestrator *services.Orchestrator
	tracker      *services.UsageTracker
	fossils      *services.FossilPipeline
	events       *services.EventHub
	exporter     *services.SnapshotExporter
	scheduler    *services.SnapshotScheduler
	holidays     *services.HolidayService
	taskQueue    services.TaskQueue
	worker       *services.Worker
	authHandler  *handlers.AuthHandler
}

// bootstrap initializes all application dependencies: database, providers,
// orchestrator, fossil pipeline, schedulers and the task queue.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.Auth.JWTSecret)

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Usage tracking and fossil audit trail
	tracker := services.NewUsageTracker(cfg.Storage.UsageFile, models.GetDB())

	fossils, err := services.NewFossilPipeline(cfg.Storage.FossilDir, models.GetDB())
	if err != nil {
		logger.Fatalf("Failed to initialize fossil pipeline: %v", err)
	}

	events := services.NewEventHub()

	// Register enabled providers
	registry := services.NewProviderRegistry()
	if cfg.Providers.OpenAI.Enabled {
		registry.Register(services.NewOpenAIProvider(cfg.Providers.OpenAI))
	}
	if cfg.Providers.Anthropic.Enabled {
		registry.Register(services.NewAnthropicProvider(cfg.Providers.Anthropic))
	}
	if cfg.Providers.Gemini.Enabled {
		registry.Register(services.NewGeminiProvider(cfg.Providers.Gemini))
	}
	if cfg.Providers.Ollama.Enabled {
		registry.Register(services.NewOllamaProvider(cfg.Providers.Ollama))
	}
	if registry.Len() == 0 {
		logger.Warnf("No providers enabled, all calls will fail over to the fallback response")
	}

	orchestrator := services.NewOrchestrator(cfg.Orchestrator, registry, tracker, fossils, events)

	// Snapshot exporter and its daily scheduler
	exporter := services.NewSnapshotExporter(cfg.Storage.SnapshotDir, tracker, fossils, orchestrator.SessionID())
	holidays := services.NewHolidayService()
	scheduler := services.NewSnapshotScheduler(cfg.Snapshot, exporter, holidays)
	if cfg.Snapshot.Enabled {
		scheduler.Start()
	}

	// Initialize task queue (uses Redis if enabled, otherwise sync mode)
	processor := func(ctx context.Context, task *services.CallTask) error {
		_, err := orchestrator.Execute(ctx, task.Request)
		return err
	}
	taskQueue := services.InitTaskQueue(cfg)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(processor)
	}

	// Start async worker if Redis is enabled
	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.InitWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(processor)
			worker.Start()
		}
	}

	// Create default admin user
	authHandler := handlers.NewAuthHandler(models.GetDB(), cfg)
	if err := authHandler.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	return &appServices{
		cfg:          cfg,
		registry:     registry,
		orchestrator: orchestrator,
		tracker:      tracker,
		fossils:      fossils,
		events:       events,
		exporter:     exporter,
		scheduler:    scheduler,
		holidays:     holidays,
		taskQueue:    taskQueue,
		worker:       worker,
		authHandler:  authHandler,
	}
}

// shutdown gracefully stops all services in reverse dependency order.
func (s *appServices) shutdown() {
	s.scheduler.Stop()

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}

	// Drain in-flight calls and flush pending usage writes.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.orchestrator.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("Orchestrator shutdown incomplete")
	}

	// Final snapshot of the trailing window before exit.
	if s.cfg.Snapshot.Enabled {
		now := time.Now()
		from := now.AddDate(0, 0, -s.cfg.Snapshot.WindowDays)
		if _, err := s.exporter.Export(from, now, s.cfg.Snapshot.Format); err != nil {
			logger.Warn().Err(err).Msg("Final snapshot export failed")
		}
	}

	s.tracker.Close()

	if db := models.GetDB(); db != nil {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	logger.Info().Msg("All services stopped")
}
