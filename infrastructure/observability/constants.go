package observability

// Metric name prefixes
const (
	MetricPrefix = "squares"
)

// Metric names
const (
	// Assignment metrics
	AssignmentsTotal = MetricPrefix + ".assignments.total"

	// Settlement metrics
	SettlementsTotal      = MetricPrefix + ".settlements.total"
	PayoutAmountTotal     = MetricPrefix + ".settlements.payout_amount_total"
	SettlementErrorsTotal = MetricPrefix + ".settlements.errors_total"

	// Ledger metrics
	LedgerTransactionsTotal = MetricPrefix + ".ledger.transactions_total"

	// Notifier metrics
	NotifierFailuresTotal = MetricPrefix + ".notifier.failures_total"

	// NATS metrics
	NATSMessagesReceivedTotal  = MetricPrefix + ".nats.messages_received_total"
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"
)

// Label keys
const (
	LabelType      = "type"
	LabelOutcome   = "outcome"
	LabelEventType = "event_type"
	LabelSubject   = "subject"
	LabelErrorType = "error_type"
)
