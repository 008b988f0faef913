// ============================================================================
// FILE: cmd/worker/main.go
// PURPOSE: Background worker binary: dispatcher pool, reaper, checkbacks,
// lens sweep
// ============================================================================

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/IsaiahDupree/mediaposter/internal/application/common"
	apppeople "github.com/IsaiahDupree/mediaposter/internal/application/people"
	"github.com/IsaiahDupree/mediaposter/internal/checkback"
	"github.com/IsaiahDupree/mediaposter/internal/clock"
	"github.com/IsaiahDupree/mediaposter/internal/config"
	"github.com/IsaiahDupree/mediaposter/internal/dispatcher"
	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
	"github.com/IsaiahDupree/mediaposter/internal/infrastructure/persistence"
	"github.com/IsaiahDupree/mediaposter/internal/infrastructure/services"
	"github.com/IsaiahDupree/mediaposter/internal/social"
	"github.com/IsaiahDupree/mediaposter/internal/social/adapters"
)

// WorkerApp holds all worker dependencies
type WorkerApp struct {
	DB         *sql.DB
	Redis      *redis.Client
	Bus        *services.WatermillBus
	Logger     common.Logger
	Processors []JobProcessor
}

// JobProcessor interface for all background processors
type JobProcessor interface {
	Name() string
	Run(ctx context.Context) error
	Stop(ctx context.Context) error
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	app, err := NewWorkerApp(cfg)
	if err != nil {
		log.Fatalf("failed to initialize worker: %v", err)
	}
	defer app.Cleanup()

	app.Start()
}

// NewWorkerApp wires the worker's component graph.
func NewWorkerApp(cfg *config.Config) (*WorkerApp, error) {
	logger := services.NewLogger(cfg.Environment, cfg.LogLevel)
	clk := clock.System()

	db, err := persistence.Open(cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	gormDB, err := persistence.OpenGorm(db)
	if err != nil {
		return nil, err
	}
	redisClient, err := services.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to postgres and redis")

	registry := social.NewRegistry()
	if cfg.Relay.Enabled {
		platforms := make([]content.Platform, 0, len(cfg.Relay.Platforms))
		for _, p := range cfg.Relay.Platforms {
			platforms = append(platforms, content.Platform(p))
		}
		if err := registry.Register(adapters.NewRelayAdapter(cfg.Relay.BaseURL, cfg.Relay.APIKey, platforms)); err != nil {
			return nil, fmt.Errorf("registering relay adapter: %w", err)
		}
	}
	limiter := social.NewRateLimiter(registry)

	bus := services.NewWatermillBus(logger)
	engineMetrics := services.NewEngineMetrics(prometheus.DefaultRegisterer)

	contentRepo := persistence.NewContentRepository(db)
	queueRepo := persistence.NewQueueRepository(db)
	checkbackRepo := persistence.NewCheckbackRepository(db)
	snapshotRepo := persistence.NewSnapshotRepository(db)
	rollupRepo := persistence.NewRollupRepository(db)
	peopleRepo := persistence.NewPeopleRepository(gormDB)

	peopleService := apppeople.NewService(peopleRepo, logger, clk, engineMetrics, cfg.Lens.WindowDays)

	// Checkback scheduling and rollup recompute ride the event bus.
	cbScheduler := checkback.NewScheduler(checkbackRepo, logger, clk, cfg.Checkback.OffsetsHours)
	if err := cbScheduler.Subscribe(bus); err != nil {
		return nil, err
	}
	aggregator := checkback.NewAggregator(snapshotRepo, rollupRepo, logger, clk, engineMetrics)
	if err := aggregator.Subscribe(bus); err != nil {
		return nil, err
	}

	disp := dispatcher.New(
		queueRepo, contentRepo, registry, limiter, bus, logger, clk,
		dispatcher.NewBackoff(cfg.Queue.BackoffBase, cfg.Queue.BackoffCap),
		engineMetrics,
		dispatcher.Config{
			LeaseTTL:       cfg.Queue.LeaseTTL,
			BatchSize:      cfg.Queue.BatchSize,
			BatchSizeMax:   cfg.Queue.BatchSizeMax,
			PublishTimeout: cfg.Queue.PublishTimeout,
			LatencyTarget:  cfg.Queue.LatencyTarget,
			WorkerCount:    cfg.Queue.WorkerCount,
		},
	)
	reaper := dispatcher.NewReaper(queueRepo, logger, clk, engineMetrics)

	cbWorker := checkback.NewWorker(
		checkbackRepo, snapshotRepo, contentRepo, registry, limiter, bus,
		logger, clk, engineMetrics,
		checkback.WorkerConfig{
			GraceWindow:    cfg.Checkback.GraceWindow,
			MaxAttempts:    cfg.Checkback.MaxAttempts,
			MetricsTimeout: cfg.Queue.MetricsTimeout,
		},
	)
	cbWorker.SetCommentIngestor(peopleService)

	processors := []JobProcessor{
		NewDispatchProcessor(disp, logger, cfg.Queue.PollInterval),
		NewReaperProcessor(reaper, logger, cfg.Queue.ReaperInterval),
		NewCheckbackProcessor(cbWorker, logger, cfg.Checkback.PollInterval),
		NewLensSweepProcessor(peopleService, logger, cfg.Lens.SweepInterval),
	}

	return &WorkerApp{
		DB:         db,
		Redis:      redisClient,
		Bus:        bus,
		Logger:     logger,
		Processors: processors,
	}, nil
}

// Start runs all processors until SIGINT/SIGTERM.
func (app *WorkerApp) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, processor := range app.Processors {
		go func(p JobProcessor) {
			app.Logger.Info("starting processor", "name", p.Name())
			if err := p.Run(ctx); err != nil {
				app.Logger.Error("processor failed", "name", p.Name(), "error", err)
			}
		}(processor)
	}
	app.Logger.Info("worker started", "processors", len(app.Processors))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	for _, processor := range app.Processors {
		if err := processor.Stop(shutdownCtx); err != nil {
			app.Logger.Error("failed to stop processor", "name", processor.Name(), "error", err)
		}
	}
	app.Logger.Info("worker stopped")
}

// Cleanup closes all connections
func (app *WorkerApp) Cleanup() {
	if app.Bus != nil {
		app.Bus.Close()
	}
	if app.Redis != nil {
		app.Redis.Close()
	}
	if app.DB != nil {
		app.DB.Close()
	}
}
