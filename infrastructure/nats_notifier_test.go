package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"squares/domain/entities"
	"squares/infrastructure/observability"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNATSNotifier_NotifyOperator(t *testing.T) {
	bus := &fakeBus{}
	notifier := NewNATSNotifier(bus, "squares.operator.alerts", nil)

	raisedAt := time.Date(2026, 9, 13, 12, 0, 0, 0, time.UTC)
	alert := entities.OperatorAlert{
		Kind:          entities.OperatorAlertWithdrawalRequest,
		TransactionID: 44,
		AccountID:     uuid.New(),
		Amount:        200,
		Description:   "cash out",
		RaisedAt:      raisedAt,
	}
	require.NoError(t, notifier.NotifyOperator(context.Background(), alert))

	sent := bus.messages()
	require.Len(t, sent, 1)
	assert.True(t, sent[0].core, "alerts bypass JetStream")
	assert.Equal(t, "squares.operator.alerts", sent[0].subject)

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(sent[0].data, &envelope))
	assert.Equal(t, "withdrawal_request", envelope.EventType)
	assert.True(t, envelope.Timestamp.AsTime().Equal(raisedAt))

	var decoded entities.OperatorAlert
	require.NoError(t, json.Unmarshal(envelope.Payload, &decoded))
	assert.Equal(t, alert.TransactionID, decoded.TransactionID)
	assert.Equal(t, alert.AccountID, decoded.AccountID)
	assert.Equal(t, int64(200), decoded.Amount)
}

func TestNATSNotifier_ReturnsSendError(t *testing.T) {
	metrics, total := newReadableMetrics(t)
	notifier := NewNATSNotifier(&fakeBus{err: errors.New("nats: connection closed")}, "alerts", metrics)

	err := notifier.NotifyOperator(context.Background(), entities.OperatorAlert{
		Kind:          entities.OperatorAlertPurchaseReview,
		TransactionID: 3,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transaction 3")
	assert.Equal(t, int64(1), total(observability.NotifierFailuresTotal))
}
