package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/easner-transaction-sync/internal/config"
	"github.com/easner-transaction-sync/internal/data/mongo"
	"github.com/easner-transaction-sync/internal/data/postgres"
	"github.com/easner-transaction-sync/internal/gateway/bridge"
	"github.com/easner-transaction-sync/internal/logger"
	"github.com/easner-transaction-sync/internal/platform/messaging/producers"
	"github.com/easner-transaction-sync/internal/platform/persistence"
	"github.com/easner-transaction-sync/internal/reconciliation"
	"github.com/easner-transaction-sync/internal/syncservice"
	"github.com/easner-transaction-sync/internal/syncservice/middleware"
	"github.com/easner-transaction-sync/internal/syncservice/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("sync_service")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	if cfg.Postgres.MigrationsPath != "" {
		if err := persistence.RunMigrations(cfg.Postgres.URL, cfg.Postgres.MigrationsPath); err != nil {
			log.Error("Failed to run database migrations", "error", err)
			os.Exit(1)
		}
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for status-change events
	statusProducer, err := producers.NewStatusEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize status event producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories and the raw event archive
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	legacyRepo := postgres.NewLegacyRepository(log, postgresDB)
	userRepo := postgres.NewUserRepository(log, postgresDB)

	eventArchive, err := mongo.NewEventArchive(appCtx, log, mongoDB.Database())
	if err != nil {
		log.Error("Failed to initialize event archive", "error", err)
		os.Exit(1)
	}

	// Initialize the provider gateway and the reconciliation core
	bridgeClient := bridge.NewClient(log, &cfg.Bridge)
	engine := reconciliation.NewEngine(log, ledgerRepo, userRepo, bridgeClient, eventArchive, statusProducer)
	matcher := reconciliation.NewMatcher(log, legacyRepo)

	// Initialize services
	syncService := service.NewSyncService(log, userRepo, engine, eventArchive)
	transactionService := service.NewTransactionService(log, ledgerRepo)
	paymentService := service.NewPaymentService(log, matcher)

	limiter := middleware.NewRedisRateLimiter(redisClient, "easner:rate_limit", cfg.Redis.WebhookRateLimit, cfg.Redis.WebhookRateWindow)

	// Initialize REST server
	server := syncservice.NewServer(log, cfg, syncService, transactionService, paymentService, limiter)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = statusProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	if err = redisClient.Close(); err != nil {
		log.Error("Error closing Redis client", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
