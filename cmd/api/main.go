package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stationhub/internal/config"
	httpDelivery "github.com/stationhub/internal/delivery/http"
	"github.com/stationhub/internal/delivery/http/handler"
	"github.com/stationhub/internal/infrastructure/monitoring"
	"github.com/stationhub/internal/infrastructure/provider"
	"github.com/stationhub/internal/loader"
	"github.com/stationhub/internal/pkg/logger"
	"github.com/stationhub/internal/repository/cache"
	"github.com/stationhub/internal/repository/postgres"
	redisRepo "github.com/stationhub/internal/repository/redis"
	"github.com/stationhub/internal/repository/stationcache"
	"github.com/stationhub/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Station Photo Hub API")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
		zap.Int("countries", len(cfg.Loader.Countries)),
	)

	// 3. Connect to PostgreSQL
	db, err := postgres.New(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close PostgreSQL connection", zap.Error(err))
		}
	}()

	// 4. Connect to Redis
	redisClient, err := cache.NewRedis(&cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis connection", zap.Error(err))
		}
	}()

	// 5. Health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Health(ctx); err != nil {
		log.Fatal("PostgreSQL health check failed", zap.Error(err))
	}
	if err := redisClient.Health(ctx); err != nil {
		log.Fatal("Redis health check failed", zap.Error(err))
	}

	log.Info("All connections healthy")

	// 6. Initialize infrastructure
	monitor := monitoring.NewWebhook(cfg.Monitoring.WebhookURL, log)
	fetcher := provider.NewClient(cfg.Loader.ConnectTimeout, cfg.Loader.ReadTimeout, log)

	registry, err := loader.NewRegistry(cfg.Loader, fetcher, monitor, log)
	if err != nil {
		log.Fatal("Failed to build loader registry", zap.Error(err))
	}

	// 7. Initialize repositories
	photographerCache := stationcache.NewPhotographerCache(
		fetcher,
		cfg.Loader.PhotographersURL,
		cfg.Cache.PhotographerRefreshInterval,
		monitor,
		log,
	)
	stationCache := stationcache.New(
		registry,
		photographerCache,
		monitor,
		cfg.Cache.StationRefreshInterval,
		cfg.Loader.PhotoBaseURL,
		log,
	)
	defer stationCache.Close()

	inboxRepo := postgres.NewInboxRepository(db)

	importQueue, err := redisRepo.NewImportQueue(redisClient.Client(), cfg.Worker.ConsumerGroup, log)
	if err != nil {
		log.Fatal("Failed to initialize import queue", zap.Error(err))
	}

	statsCache := cache.NewStatsCache(redisClient)

	log.Info("Repositories initialized")

	// 8. Initialize use cases
	stationUC := usecase.NewStationUseCase(stationCache, log)
	inboxUC := usecase.NewInboxUseCase(inboxRepo, stationCache, photographerCache, importQueue, monitor, log)
	statsUC := usecase.NewStatsUseCase(stationCache, statsCache, cfg.Cache.StatsCacheTTL, log)

	// 9. Initialize HTTP handlers and server
	stationHandler := handler.NewStationHandler(stationUC, log)
	inboxHandler := handler.NewInboxHandler(inboxUC, log)
	statsHandler := handler.NewStatsHandler(statsUC, log)

	server := httpDelivery.NewServer(cfg, log, stationHandler, inboxHandler, statsHandler)

	// 10. Schedule background refreshes; reads stay non-blocking either way
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Worker.RefreshSchedule, func() {
		stationCache.Refresh(context.Background())
	}); err != nil {
		log.Fatal("Failed to schedule station refresh", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	// 11. Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started successfully",
		zap.String("address", cfg.GetServerAddr()),
		zap.String("env", cfg.Server.Env),
	)

	// 12. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	log.Info("Server stopped successfully")
}
