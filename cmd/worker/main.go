package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/stationhub/internal/config"
	"github.com/stationhub/internal/infrastructure/mailer"
	"github.com/stationhub/internal/infrastructure/monitoring"
	"github.com/stationhub/internal/infrastructure/provider"
	"github.com/stationhub/internal/pkg/logger"
	"github.com/stationhub/internal/repository/cache"
	"github.com/stationhub/internal/repository/postgres"
	redisRepo "github.com/stationhub/internal/repository/redis"
	"github.com/stationhub/internal/worker"
	"github.com/stationhub/internal/worker/imports"
	"github.com/stationhub/internal/worker/inbox"
	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if !cfg.Worker.Enabled {
		fmt.Println("Worker is disabled in configuration. Set WORKER_ENABLED=true to enable.")
		os.Exit(0)
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Station Photo Hub worker")
	log.Info("Configuration loaded",
		zap.String("consumer_group", cfg.Worker.ConsumerGroup),
		zap.Duration("notify_interval", cfg.Worker.NotifyInterval),
		zap.Int("max_retries", cfg.Worker.MaxRetries))

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

	// 5. Initialize collaborators
	monitor := monitoring.NewWebhook(cfg.Monitoring.WebhookURL, log)
	mail := mailer.NewSMTP(cfg.Mail, log)
	fetcher := provider.NewClient(cfg.Loader.ConnectTimeout, cfg.Loader.ReadTimeout, log)

	inboxRepo := postgres.NewInboxRepository(db)

	importQueue, err := redisRepo.NewImportQueue(redisClient.Client(), cfg.Worker.ConsumerGroup, log)
	if err != nil {
		log.Fatal("Failed to initialize import queue", zap.Error(err))
	}

	// 6. Register workers
	// every replica needs a distinct consumer name within the group
	consumer := fmt.Sprintf("importer-%s", uuid.NewString())

	manager := worker.NewManager(log)
	manager.Register(inbox.NewNotifierWorker(inboxRepo, mail, monitor, cfg.Worker.NotifyInterval, log))
	manager.Register(imports.NewImportWorker(
		importQueue,
		fetcher,
		monitor,
		cfg.Worker.UpstreamImportURL,
		cfg.Worker.MaxRetries,
		consumer,
		log,
	))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.Start(ctx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	// 7. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down workers gracefully...")
	cancel()

	if err := manager.Stop(); err != nil {
		log.Error("Worker shutdown error", zap.Error(err))
	}

	log.Info("Workers stopped successfully")
}
