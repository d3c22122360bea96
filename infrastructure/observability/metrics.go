package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"squares/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// MetricsProvider manages OpenTelemetry metrics for the squares service.
// Every Record method is safe on a nil or disabled provider.
type MetricsProvider struct {
	config        *config.Config
	reader        sdkmetric.Reader
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	recording     bool
	mu            sync.RWMutex

	assignmentsCounter           metric.Int64Counter
	settlementsCounter           metric.Int64Counter
	payoutAmountCounter          metric.Int64Counter
	settlementErrorsCounter      metric.Int64Counter
	ledgerTransactionsCounter    metric.Int64Counter
	notifierFailuresCounter      metric.Int64Counter
	natsMessagesReceivedCounter  metric.Int64Counter
	natsMessagesPublishedCounter metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// NewMetricsProviderWithReader creates a provider that exports through reader
// instead of the configured exporter
func NewMetricsProviderWithReader(cfg *config.Config, reader sdkmetric.Reader) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
		reader: reader,
	}
}

// serviceResource describes this service on top of the SDK defaults. The
// semconv import must track the schema the SDK version uses, or Merge fails.
func serviceResource(cfg *config.Config) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.OTelServiceName),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := serviceResource(mp.config)
	if err != nil {
		return err
	}

	reader := mp.reader
	if reader == nil {
		var exporter sdkmetric.Exporter
		switch mp.config.OTelExporterType {
		case "console":
			exporter, err = stdoutmetric.New()
			if err != nil {
				return fmt.Errorf("failed to create console exporter: %w", err)
			}
			log.Info("Using console metric exporter")

		case "otlp":
			dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			exporter, err = otlpmetricgrpc.New(dialCtx,
				otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
				otlpmetricgrpc.WithInsecure(),
			)
			if err != nil {
				return fmt.Errorf("failed to create OTLP exporter: %w", err)
			}
			log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

		case "none":
			log.Info("Metrics export disabled (exporter_type='none')")
			mp.initialized = true
			return nil

		default:
			return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
		}

		interval := time.Duration(mp.config.OTelExportIntervalMillis) * time.Millisecond
		if interval <= 0 {
			interval = time.Minute
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp.meterProvider)

	mp.meter = mp.meterProvider.Meter("squares")
	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	mp.recording = true
	log.WithField("exporter", mp.config.OTelExporterType).Info("OpenTelemetry metrics initialized")
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	var err error

	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
		unit        string
	}{
		{&mp.assignmentsCounter, AssignmentsTotal, "Number assignment attempts by outcome", "{attempt}"},
		{&mp.settlementsCounter, SettlementsTotal, "Period settlements by outcome", "{settlement}"},
		{&mp.payoutAmountCounter, PayoutAmountTotal, "HotCoins paid to period winners", "{hotcoin}"},
		{&mp.settlementErrorsCounter, SettlementErrorsTotal, "Period settlements that failed", "{settlement}"},
		{&mp.ledgerTransactionsCounter, LedgerTransactionsTotal, "Applied ledger transactions by type", "{transaction}"},
		{&mp.notifierFailuresCounter, NotifierFailuresTotal, "Operator alerts that could not be sent", "{alert}"},
		{&mp.natsMessagesReceivedCounter, NATSMessagesReceivedTotal, "NATS messages received", "{message}"},
		{&mp.natsMessagesPublishedCounter, NATSMessagesPublishedTotal, "NATS messages published", "{message}"},
	}

	for _, c := range counters {
		*c.target, err = mp.meter.Int64Counter(c.name,
			metric.WithDescription(c.description),
			metric.WithUnit(c.unit),
		)
		if err != nil {
			return fmt.Errorf("failed to create counter %s: %w", c.name, err)
		}
	}

	return nil
}

// Shutdown flushes and stops the meter provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	if mp == nil {
		return nil
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.recording = false
	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordAssignment counts one assignment attempt
func (mp *MetricsProvider) RecordAssignment(outcome string) {
	if !mp.isEnabled() {
		return
	}
	mp.assignmentsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelOutcome, outcome)),
	)
}

// RecordSettlement counts a settled period and the amount it paid
func (mp *MetricsProvider) RecordSettlement(outcome string, payout int64) {
	if !mp.isEnabled() {
		return
	}
	attrs := metric.WithAttributes(attribute.String(LabelOutcome, outcome))
	mp.settlementsCounter.Add(context.Background(), 1, attrs)
	if payout > 0 {
		mp.payoutAmountCounter.Add(context.Background(), payout, attrs)
	}
}

// RecordSettlementError counts a period whose settlement failed
func (mp *MetricsProvider) RecordSettlementError(errorType string) {
	if !mp.isEnabled() {
		return
	}
	mp.settlementErrorsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelErrorType, errorType)),
	)
}

// RecordLedgerTransaction counts an applied balance change
func (mp *MetricsProvider) RecordLedgerTransaction(transactionType string) {
	if !mp.isEnabled() {
		return
	}
	mp.ledgerTransactionsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelType, transactionType)),
	)
}

// RecordNotifierFailure counts an operator alert that was dropped
func (mp *MetricsProvider) RecordNotifierFailure(kind string) {
	if !mp.isEnabled() {
		return
	}
	mp.notifierFailuresCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelType, kind)),
	)
}

// RecordNATSMessageReceived records a NATS message being received
func (mp *MetricsProvider) RecordNATSMessageReceived(subject string) {
	if !mp.isEnabled() {
		return
	}
	mp.natsMessagesReceivedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelSubject, subject)),
	)
}

// RecordNATSMessagePublished records a NATS message being published
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string) {
	if !mp.isEnabled() {
		return
	}
	mp.natsMessagesPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, eventType)),
	)
}

// isEnabled reports whether instruments exist and may record
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.recording
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider; nil before initialization
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	return globalMetrics.Shutdown(ctx)
}
