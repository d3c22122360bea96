package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"

	"squares/domain/entities"
	"squares/infrastructure/observability"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// NATSNotifier sends operator alerts as core NATS messages. There is no
// stream behind the alert subject, so delivery is best effort.
type NATSNotifier struct {
	client  MessagePublisher
	subject string
	metrics *observability.MetricsProvider
}

// NewNATSNotifier creates a notifier publishing to subject
func NewNATSNotifier(client MessagePublisher, subject string, metrics *observability.MetricsProvider) *NATSNotifier {
	return &NATSNotifier{
		client:  client,
		subject: subject,
		metrics: metrics,
	}
}

// NotifyOperator publishes the alert and returns any send error for the caller to log
func (n *NATSNotifier) NotifyOperator(ctx context.Context, alert entities.OperatorAlert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		n.metrics.RecordNotifierFailure(string(alert.Kind))
		return fmt.Errorf("failed to marshal operator alert: %w", err)
	}

	envelope := &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     string(alert.Kind),
		Timestamp:     timestamppb.New(alert.RaisedAt),
		SourceService: sourceService,
		Payload:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		n.metrics.RecordNotifierFailure(string(alert.Kind))
		return fmt.Errorf("failed to marshal alert envelope: %w", err)
	}

	if err := n.client.PublishCore(n.subject, data); err != nil {
		n.metrics.RecordNotifierFailure(string(alert.Kind))
		return fmt.Errorf("failed to send operator alert for transaction %d: %w", alert.TransactionID, err)
	}

	log.WithFields(log.Fields{
		"kind":          alert.Kind,
		"transactionId": alert.TransactionID,
		"subject":       n.subject,
	}).Debug("Sent operator alert")
	return nil
}
