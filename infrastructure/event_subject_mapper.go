package infrastructure

import (
	"fmt"

	"squares/domain/events"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

var subjectsByEventType = map[events.EventType]string{
	events.EventTypeBalanceChange:            "squares.ledger.balance_changed",
	events.EventTypeTransactionStatusChanged: "squares.ledger.status_changed",
	events.EventTypeNumbersAssigned:          "squares.games.numbers_assigned",
	events.EventTypePeriodSettled:            "squares.games.period_settled",
	events.EventTypeBoxPurchased:             "squares.boxes.purchased",
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if subject, ok := subjectsByEventType[event.Type()]; ok {
		return subject
	}
	return fmt.Sprintf("squares.unknown.%s", event.Type())
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	for eventType, mapped := range subjectsByEventType {
		if mapped == subject {
			return eventType
		}
	}
	return events.EventType(subject)
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"squares.ledger.balance_changed",
		"squares.ledger.status_changed",
		"squares.games.numbers_assigned",
		"squares.games.period_settled",
		"squares.boxes.purchased",
	}
}
