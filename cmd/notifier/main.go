package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/easner-transaction-sync/internal/config"
	"github.com/easner-transaction-sync/internal/logger"
	"github.com/easner-transaction-sync/internal/notification"
	"github.com/easner-transaction-sync/internal/platform/messaging/consumers"
	"github.com/easner-transaction-sync/internal/platform/messaging/producers"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("notifier")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting notifier",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize Kafka consumer for status-change events
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer is nil if DLQTopic is not configured. Dispatcher is nil-safe.

	// Initialize the email gateway and the dispatcher
	emailer := notification.NewEmailer(log, &cfg.Email)
	dispatcher := notification.NewDispatcher(log, emailer, dlqProducer)

	// Create error channel for consumer errors
	errChan := make(chan error, 1)

	log.Info("Starting Kafka consumer",
		"topic", cfg.Kafka.StatusTopic,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.StatusTopic, cfg.Kafka.ConsumerGroup, dispatcher.HandleMessage); err != nil {
		errChan <- fmt.Errorf("kafka consumer error: %w", err)
	}

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var consumerErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Consumer error occurred", "error", err)
		consumerErr = err
	}

	// Cancel the application context to stop the fetch loop
	cancelAppCtx()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ producer", "error", err)
		}
	}

	if consumerErr != nil {
		log.Error("Notifier shutdown with errors", "error", consumerErr)
		os.Exit(1)
	}
	log.Info("Notifier shutdown completed successfully")
}
