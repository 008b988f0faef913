// ============================================================================
// FILE: cmd/api/container.go
// PURPOSE: Application container wiring every component at startup
// ============================================================================
package main

import (
	"database/sql"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/IsaiahDupree/mediaposter/internal/application/common"
	apppeople "github.com/IsaiahDupree/mediaposter/internal/application/people"
	"github.com/IsaiahDupree/mediaposter/internal/application/metricsops"
	"github.com/IsaiahDupree/mediaposter/internal/application/queueops"
	"github.com/IsaiahDupree/mediaposter/internal/application/schedule"
	"github.com/IsaiahDupree/mediaposter/internal/auth"
	"github.com/IsaiahDupree/mediaposter/internal/checkback"
	"github.com/IsaiahDupree/mediaposter/internal/clock"
	"github.com/IsaiahDupree/mediaposter/internal/config"
	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
	"github.com/IsaiahDupree/mediaposter/internal/handlers"
	"github.com/IsaiahDupree/mediaposter/internal/infrastructure/persistence"
	"github.com/IsaiahDupree/mediaposter/internal/infrastructure/services"
	"github.com/IsaiahDupree/mediaposter/internal/scheduler"
	"github.com/IsaiahDupree/mediaposter/internal/social"
	"github.com/IsaiahDupree/mediaposter/internal/social/adapters"
)

// Container holds every constructed component. No global singletons: the
// container is built once in main and threaded through.
type Container struct {
	Config *config.Config
	Logger common.Logger
	Clock  clock.Clock

	DB    *sql.DB
	Redis *redis.Client
	Bus   *services.WatermillBus

	Registry *social.Registry
	Limiter  *social.RateLimiter
	Metrics  *services.EngineMetrics

	SchedulerHandler *handlers.SchedulerHandler
	QueueHandler     *handlers.QueueHandler
	MetricsHandler   *handlers.MetricsHandler
	PeopleHandler    *handlers.PeopleHandler

	AuthMiddleware *middlewareBundle
}

type middlewareBundle struct {
	Tokens *auth.TokenService
}

// NewContainer wires the application.
func NewContainer(cfg *config.Config) (*Container, error) {
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

	// Adapter registration: collisions abort startup.
	registry := social.NewRegistry()
	if cfg.Relay.Enabled {
		platforms := make([]content.Platform, 0, len(cfg.Relay.Platforms))
		for _, p := range cfg.Relay.Platforms {
			platforms = append(platforms, content.Platform(p))
		}
		relay := adapters.NewRelayAdapter(cfg.Relay.BaseURL, cfg.Relay.APIKey, platforms)
		if err := registry.Register(relay); err != nil {
			return nil, fmt.Errorf("registering relay adapter: %w", err)
		}
	}
	limiter := social.NewRateLimiter(registry)

	bus := services.NewWatermillBus(logger)
	engineMetrics := services.NewEngineMetrics(prometheus.DefaultRegisterer)

	// Repositories
	contentRepo := persistence.NewContentRepository(db)
	artifactRepo := persistence.NewArtifactRepository(db)
	queueRepo := persistence.NewQueueRepository(db)
	checkbackRepo := persistence.NewCheckbackRepository(db)
	snapshotRepo := persistence.NewSnapshotRepository(db)
	rollupRepo := persistence.NewRollupRepository(db)
	peopleRepo := persistence.NewPeopleRepository(gormDB)
	planStore := persistence.NewPlanStore(db, contentRepo, queueRepo)

	// Engine components
	aggregator := checkback.NewAggregator(snapshotRepo, rollupRepo, logger, clk, engineMetrics)

	scheduleService := schedule.NewService(
		scheduler.NewScanner(artifactRepo), queueRepo, planStore,
		services.NewWorkspaceLock(redisClient), logger, clk, cfg.Scheduler,
	)
	queueService := queueops.NewService(queueRepo, contentRepo, checkbackRepo, logger, clk, cfg.Queue.MaxAttempts)
	metricsService := metricsops.NewService(
		contentRepo, snapshotRepo, rollupRepo, aggregator,
		registry, limiter, logger, clk, cfg.Queue.MetricsTimeout,
	)
	peopleService := apppeople.NewService(peopleRepo, logger, clk, engineMetrics, cfg.Lens.WindowDays)

	tokens := auth.NewTokenService(cfg.Security.JWTSecret, 0)

	return &Container{
		Config:           cfg,
		Logger:           logger,
		Clock:            clk,
		DB:               db,
		Redis:            redisClient,
		Bus:              bus,
		Registry:         registry,
		Limiter:          limiter,
		Metrics:          engineMetrics,
		SchedulerHandler: handlers.NewSchedulerHandler(scheduleService),
		QueueHandler:     handlers.NewQueueHandler(queueService),
		MetricsHandler:   handlers.NewMetricsHandler(metricsService),
		PeopleHandler:    handlers.NewPeopleHandler(peopleService),
		AuthMiddleware:   &middlewareBundle{Tokens: tokens},
	}, nil
}

// Cleanup closes every connection the container owns.
func (c *Container) Cleanup() {
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
}
