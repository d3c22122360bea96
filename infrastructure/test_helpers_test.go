package infrastructure

import (
	"context"
	"errors"
	"sync"
	"testing"

	"squares/config"
	"squares/domain/events"
	"squares/infrastructure/observability"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// MockEventPublisher records published events
type MockEventPublisher struct {
	PublishedEvents []events.Event
	PublishError    error
	failOn          events.EventType
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	if m.failOn != "" && event.Type() == m.failOn {
		return errors.New("publish failed")
	}
	m.PublishedEvents = append(m.PublishedEvents, event)
	return nil
}

type sentMessage struct {
	subject string
	msgID   string
	data    []byte
	core    bool
}

// fakeBus captures what the publishers hand to NATS
type fakeBus struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (b *fakeBus) PublishWithID(ctx context.Context, subject, msgID string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.sent = append(b.sent, sentMessage{subject: subject, msgID: msgID, data: data})
	return nil
}

func (b *fakeBus) PublishCore(subject string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.sent = append(b.sent, sentMessage{subject: subject, data: data, core: true})
	return nil
}

func (b *fakeBus) messages() []sentMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]sentMessage(nil), b.sent...)
}

// newReadableMetrics returns an enabled provider and a reader for its totals
func newReadableMetrics(t *testing.T) (*observability.MetricsProvider, func(name string) int64) {
	t.Helper()
	cfg := config.NewTestConfig()
	cfg.OTelEnabled = true
	cfg.OTelServiceName = "squares-test"

	reader := sdkmetric.NewManualReader()
	mp := observability.NewMetricsProviderWithReader(cfg, reader)
	require.NoError(t, mp.Initialize(context.Background()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	return mp, func(name string) int64 {
		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(context.Background(), &rm))
		var total int64
		for _, scope := range rm.ScopeMetrics {
			for _, m := range scope.Metrics {
				if sum, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == name {
					for _, dp := range sum.DataPoints {
						total += dp.Value
					}
				}
			}
		}
		return total
	}
}
