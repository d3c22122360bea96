package infrastructure

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"squares/application"
	"squares/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// MessageHandler defines a function that handles raw message bytes
type MessageHandler func(ctx context.Context, data []byte) error

// MessageConsumer manages NATS subscriptions and routes messages to handlers
type MessageConsumer struct {
	natsClient *NATSClient
	handlers   map[string]MessageHandler
	mu         sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

// NewMessageConsumer creates a consumer routing the score feed to the settlement handler.
// The NATS client is shared; closing it stays with the caller.
func NewMessageConsumer(natsClient *NATSClient, scoreHandler application.ScoreFeedHandler, metrics *observability.MetricsProvider) *MessageConsumer {
	ctx, cancel := context.WithCancel(context.Background())

	mc := &MessageConsumer{
		natsClient: natsClient,
		handlers:   make(map[string]MessageHandler),
		ctx:        ctx,
		cancel:     cancel,
	}

	listener := NewScoreFeedListener(scoreHandler, metrics)
	mc.RegisterHandler(ScoreUpdatedSubject, listener.HandleScoreUpdate)

	return mc
}

// RegisterHandler registers a handler for a specific subject pattern
func (mc *MessageConsumer) RegisterHandler(subject string, handler MessageHandler) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.handlers[subject] = handler
	log.WithField("subject", subject).Info("Registered message handler")
}

// Start subscribes every registered subject and blocks until ctx ends or Stop is called
func (mc *MessageConsumer) Start(ctx context.Context) error {
	log.Info("Starting message consumer")

	if err := mc.natsClient.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	if err := mc.natsClient.EnsureScoreFeedStream(); err != nil {
		return fmt.Errorf("failed to ensure score feed stream: %w", err)
	}

	mc.mu.RLock()
	subjects := make([]string, 0, len(mc.handlers))
	for subject := range mc.handlers {
		subjects = append(subjects, subject)
	}
	mc.mu.RUnlock()
	sort.Strings(subjects)

	for _, subject := range subjects {
		if err := mc.subscribe(subject); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
	}

	log.WithField("subjects", subjects).Info("Message consumer started and subscribed to subjects")

	select {
	case <-ctx.Done():
	case <-mc.ctx.Done():
	}
	log.Info("Message consumer stopped")
	return nil
}

// Stop gracefully shuts down the consumer
func (mc *MessageConsumer) Stop() {
	log.Info("Stopping message consumer")
	mc.cancel()
}

// subscribe sets up a subscription for a specific subject
func (mc *MessageConsumer) subscribe(subject string) error {
	return mc.natsClient.Subscribe(subject, func(data []byte) error {
		mc.mu.RLock()
		handler, exists := mc.handlers[subject]
		mc.mu.RUnlock()

		if !exists {
			return fmt.Errorf("no handler registered for subject: %s", subject)
		}

		// in-flight messages finish even while the consumer stops
		if err := handler(context.Background(), data); err != nil {
			log.WithFields(log.Fields{
				"subject": subject,
				"error":   err,
			}).Error("Failed to handle message")
			return err
		}

		return nil
	})
}
