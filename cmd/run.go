package cmd

import (
	"context"
	"fmt"
	"time"

	"squares/application"
	"squares/config"
	"squares/database"
	"squares/infrastructure"
	"squares/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// Run wires the settlement engine and blocks until ctx is cancelled
func Run(ctx context.Context) error {
	log.Info("Starting squares settlement engine...")

	cfg := config.Get()

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	// Initialize metrics
	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics := observability.GetMetrics()

	// Initialize NATS and the domain event stream
	log.WithField("servers", cfg.NATSServers).Info("Connecting to NATS...")
	natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := natsClient.Connect(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	eventPublisher := infrastructure.NewNATSEventPublisher(natsClient, infrastructure.NewEventSubjectMapper())
	if err := eventPublisher.EnsureDomainEventStream(natsClient); err != nil {
		log.WithError(err).Warn("Failed to ensure domain event stream, events may not persist")
	}
	observability.RegisterEventMetrics(eventPublisher, metrics)

	// Initialize unit of work factory
	uowFactory := infrastructure.NewUnitOfWorkFactory(db, eventPublisher)
	clock := infrastructure.NewSystemClock()

	// Start the assignment worker
	worker := application.NewAssignmentWorker(uowFactory, clock, infrastructure.NewCryptoEntropy(), metrics)
	stopWorker, err := worker.Start(ctx)
	if err != nil {
		_ = natsClient.Close()
		db.Close()
		return fmt.Errorf("failed to start assignment worker: %w", err)
	}

	// Start consuming the score feed
	settlementHandler := application.NewSettlementHandler(uowFactory, clock, metrics)
	consumer := infrastructure.NewMessageConsumer(natsClient, settlementHandler, metrics)
	consumerDone := make(chan error, 1)
	go func() {
		consumerDone <- consumer.Start(ctx)
	}()

	log.WithField("environment", cfg.Environment).Info("Settlement engine is running")

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-consumerDone:
		if err != nil {
			runErr = fmt.Errorf("message consumer failed: %w", err)
		}
	}

	// Cleanup resources
	log.Info("Shutting down settlement engine...")
	consumer.Stop()
	stopWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := natsClient.Close(); err != nil {
		log.WithError(err).Error("Error closing NATS connection")
	}
	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics")
	}

	log.Info("Closing database connection...")
	db.Close()

	log.Info("Shutdown completed")
	return runErr
}
