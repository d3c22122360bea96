package observability

import (
	"context"

	"squares/domain/events"
)

// EventHandlerRegistrar accepts in-process handlers for published events
type EventHandlerRegistrar interface {
	RegisterLocalHandler(eventType events.EventType, handler func(context.Context, events.Event) error)
}

// RegisterEventMetrics counts committed domain events. Handlers only fire on
// flush, so rolled-back work is never counted.
func RegisterEventMetrics(registrar EventHandlerRegistrar, mp *MetricsProvider) {
	registrar.RegisterLocalHandler(events.EventTypeBalanceChange, func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.BalanceChangeEvent); ok {
			mp.RecordLedgerTransaction(string(e.TransactionType))
		}
		return nil
	})

	registrar.RegisterLocalHandler(events.EventTypePeriodSettled, func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.PeriodSettledEvent); ok {
			mp.RecordSettlement(string(e.Outcome), e.PayoutAmount)
		}
		return nil
	})

	for _, eventType := range []events.EventType{
		events.EventTypeBalanceChange,
		events.EventTypeTransactionStatusChanged,
		events.EventTypeNumbersAssigned,
		events.EventTypePeriodSettled,
		events.EventTypeBoxPurchased,
	} {
		eventType := eventType
		registrar.RegisterLocalHandler(eventType, func(ctx context.Context, event events.Event) error {
			mp.RecordNATSMessagePublished(string(eventType))
			return nil
		})
	}
}
