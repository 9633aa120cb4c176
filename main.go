// Package main provides the main entry point for the Lovelify Dash backend
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/Lovelify-Dash/app/handlers"
	"github.com/amirphl/Lovelify-Dash/app/middleware"
	"github.com/amirphl/Lovelify-Dash/app/router"
	"github.com/amirphl/Lovelify-Dash/app/scheduler"
	"github.com/amirphl/Lovelify-Dash/app/services"
	businessflow "github.com/amirphl/Lovelify-Dash/business_flow"
	"github.com/amirphl/Lovelify-Dash/config"
	applogger "github.com/amirphl/Lovelify-Dash/logger"
	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const serviceName = "lovelify-dash-api"

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	logger    *zap.Logger
	stopFuncs []func()
}

func main() {
	cfg, err := config.LoadProductionConfig()
	var missing *config.MissingEnvError
	if errors.As(err, &missing) {
		runSetupMode(missing)
		return
	}
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := applogger.New(cfg.Logging, cfg.Deployment.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting Lovelify Dash",
		zap.String("version", cfg.Deployment.Version),
		zap.String("environment", cfg.Deployment.Environment))

	app, err := initializeApplication(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.router.Start(address)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Shutting down gracefully", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("Server stopped unexpectedly", zap.Error(err))
	}

	if err := app.router.Shutdown(cfg.Server.ShutdownTimeout); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	// Stop background workers in reverse start order
	for i := len(app.stopFuncs) - 1; i >= 0; i-- {
		app.stopFuncs[i]()
	}

	logger.Info("Server stopped")
}

// runSetupMode serves only the setup instructions, without touching any backing service
func runSetupMode(missing *config.MissingEnvError) {
	logger, err := applogger.New(config.LoggingConfig{Level: "info", Output: "stdout"}, os.Getenv("APP_ENV"))
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	r := router.NewSetupRequiredRouter(missing, logger)
	r.SetupRoutes()

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if err := r.Start(":" + port); err != nil {
			logger.Error("Setup server stopped", zap.Error(err))
		}
	}()
	<-sigChan
	_ = r.Shutdown(5 * time.Second)
}

// initializeDatabase opens the backend store with connection pooling
func initializeDatabase(cfg *config.ProductionConfig, logger *zap.Logger) (*gorm.DB, error) {
	gormLog := gormlogger.New(zap.NewStdLog(logger.Named("gorm")), gormlogger.Config{
		SlowThreshold:             cfg.Database.SlowQueryTime,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(postgres.Open(cfg.Backend.URL), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(models.All()...); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.Info("Database schema migrated")
	}

	logger.Info("Database connection established",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns))

	return db, nil
}

// initializeCache connects to Redis. A nil client means caching, pub/sub and revocation run in process.
func initializeCache(cfg config.CacheConfig, logger *zap.Logger) (*redis.Client, error) {
	if !cfg.Enabled || cfg.RedisURL == "" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis connection established", zap.String("addr", opt.Addr), zap.Int("db", cfg.RedisDB))
	return rc, nil
}

// startCacheHealthMonitor periodically pings Redis to surface connectivity issues.
// The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, logger *zap.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					logger.Warn("Redis healthcheck failed", zap.Error(err))
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeSyncQueue uses RabbitMQ when configured and an in-process queue otherwise
func initializeSyncQueue(cfg config.QueueConfig, logger *zap.Logger) (services.SyncQueue, error) {
	if cfg.AMQPURL == "" {
		logger.Info("Using in-memory sync queue")
		return services.NewInMemorySyncQueue(256, 2, cfg.MaxRetries, logger), nil
	}
	q, err := services.NewAMQPSyncQueue(cfg.AMQPURL, cfg.SyncQueueName, cfg.PrefetchCount, cfg.MaxRetries, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to amqp: %w", err)
	}
	logger.Info("Using AMQP sync queue", zap.String("queue", cfg.SyncQueueName))
	return q, nil
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig, logger *zap.Logger) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}
	stopFuncs = append(stopFuncs, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	rc, err := initializeCache(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		stopFuncs = append(stopFuncs, func() { _ = rc.Close() })
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, cfg.Cache.HealthCheckInterval, logger))
	}

	// Repositories
	workspaceRepo := repository.NewWorkspaceRepository(db)
	userRepo := repository.NewUserRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	adSetRepo := repository.NewAdSetRepository(db)
	adRepo := repository.NewAdRepository(db)
	creativeRepo := repository.NewCreativeRepository(db)
	metricRepo := repository.NewMetricRecordRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	syncJobRepo := repository.NewSyncJobRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Services
	tokenService, err := services.NewTokenService(cfg.JWT, rc)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	logger.Info("Token service initialized", zap.String("issuer", cfg.JWT.Issuer), zap.String("audience", cfg.JWT.Audience))

	storage, err := services.NewCreativeStorage(cfg.Storage.UploadDir, cfg.Storage.MaxUploadBytes, cfg.Storage.MaxImagePixels, cfg.Storage.ThumbnailSize)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize creative storage: %w", err)
	}

	dashboardCache := services.NewDashboardCache(rc, cfg.Cache.DefaultTTL)

	hub := services.NewNotificationService(rc, logger.Named("notifications"))
	hubCtx, stopHub := context.WithCancel(context.Background())
	go func() {
		if err := hub.Run(hubCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Notification hub stopped", zap.Error(err))
		}
	}()
	stopFuncs = append(stopFuncs, func() {
		stopHub()
		hub.Close()
	})

	queue, err := initializeSyncQueue(cfg.Queue, logger.Named("sync_queue"))
	if err != nil {
		return nil, err
	}
	stopFuncs = append(stopFuncs, func() { _ = queue.Close() })

	notifier := businessflow.NewNotifier(notificationRepo, hub, logger.Named("notifier"))

	// Flows
	authFlow := businessflow.NewAuthFlow(workspaceRepo, userRepo, auditRepo, tokenService, cfg.Security.BcryptCost, db)
	campaignFlow := businessflow.NewCampaignFlow(campaignRepo, workspaceRepo, metricRepo, auditRepo, notifier, dashboardCache, logger.Named("campaigns"), db)
	adSetFlow := businessflow.NewAdSetFlow(campaignRepo, adSetRepo, auditRepo, notifier, db)
	adFlow := businessflow.NewAdFlow(adSetRepo, adRepo, creativeRepo, auditRepo, db)
	creativeFlow := businessflow.NewCreativeFlow(creativeRepo, adRepo, auditRepo, storage, db)
	metricsFlow := businessflow.NewMetricsFlow(workspaceRepo, campaignRepo, adSetRepo, adRepo, metricRepo, auditRepo, dashboardCache, logger.Named("metrics"), db)
	notificationFlow := businessflow.NewNotificationFlow(notificationRepo, auditRepo, notifier, hub, db)
	syncFlow := businessflow.NewSyncFlow(syncJobRepo, auditRepo, queue, dashboardCache, logger.Named("sync"), db)

	// Health checks
	checks := map[string]handlers.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if rc != nil {
		checks["redis"] = func(ctx context.Context) error { return rc.Ping(ctx).Err() }
	}

	h := router.Handlers{
		Auth:         handlers.NewAuthHandler(authFlow, logger),
		Campaign:     handlers.NewCampaignHandler(campaignFlow, logger),
		AdSet:        handlers.NewAdSetHandler(adSetFlow, adFlow, logger),
		Creative:     handlers.NewCreativeHandler(creativeFlow, logger),
		Dashboard:    handlers.NewDashboardHandler(metricsFlow, logger),
		Notification: handlers.NewNotificationHandler(notificationFlow, logger),
		Sync:         handlers.NewSyncHandler(syncFlow, logger),
		Health:       handlers.NewHealthHandler(serviceName, cfg.Deployment.Version, checks),
	}

	authMiddleware := middleware.NewAuthMiddleware(authFlow, cfg.Backend.Key, cfg.Security.APIKeyHeader)
	appRouter := router.NewFiberRouter(cfg, h, authMiddleware, logger)

	if cfg.Scheduler.SyncEnabled {
		sched := scheduler.NewSyncScheduler(
			syncJobRepo,
			campaignRepo,
			metricRepo,
			auditRepo,
			notifier,
			queue,
			dashboardCache,
			db,
			logger.Named("scheduler"),
			cfg.Scheduler,
		)
		stopFuncs = append(stopFuncs, sched.Start(context.Background()))
	}

	return &Application{
		router:    appRouter,
		config:    cfg,
		logger:    logger,
		stopFuncs: stopFuncs,
	}, nil
}
