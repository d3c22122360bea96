package events

import (
	"time"

	"squares/domain/entities"

	"github.com/google/uuid"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange            EventType = "balance_change"
	EventTypeNumbersAssigned          EventType = "numbers_assigned"
	EventTypePeriodSettled            EventType = "period_settled"
	EventTypeTransactionStatusChanged EventType = "transaction_status_changed"
	EventTypeBoxPurchased             EventType = "box_purchased"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent is raised for every applied ledger entry
type BalanceChangeEvent struct {
	AccountID       uuid.UUID                `json:"account_id"`
	TransactionID   int64                    `json:"transaction_id"`
	OldBalance      int64                    `json:"old_balance"`
	NewBalance      int64                    `json:"new_balance"`
	TransactionType entities.TransactionType `json:"transaction_type"`
	ChangeAmount    int64                    `json:"change_amount"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// NumbersAssignedEvent is raised once per game when its grid labels are drawn
type NumbersAssignedEvent struct {
	GameID      int64     `json:"game_id"`
	HomeNumbers []int     `json:"home_numbers"`
	AwayNumbers []int     `json:"away_numbers"`
	AssignedAt  time.Time `json:"assigned_at"`
}

func (e NumbersAssignedEvent) Type() EventType {
	return EventTypeNumbersAssigned
}

// PeriodSettledEvent is raised when a (game, period) settlement is recorded
type PeriodSettledEvent struct {
	GameID        int64                      `json:"game_id"`
	PeriodIndex   int                        `json:"period_index"`
	Row           int                        `json:"row"`
	Col           int                        `json:"col"`
	WinnerID      *uuid.UUID                 `json:"winner_id,omitempty"`
	PayoutAmount  int64                      `json:"payout_amount"`
	TransactionID *int64                     `json:"transaction_id,omitempty"`
	Outcome       entities.SettlementOutcome `json:"outcome"`
}

func (e PeriodSettledEvent) Type() EventType {
	return EventTypePeriodSettled
}

// TransactionStatusChangedEvent is raised when a pending entry is resolved
type TransactionStatusChangedEvent struct {
	TransactionID int64                       `json:"transaction_id"`
	AccountID     uuid.UUID                   `json:"account_id"`
	OldStatus     entities.VerificationStatus `json:"old_status"`
	NewStatus     entities.VerificationStatus `json:"new_status"`
}

func (e TransactionStatusChangedEvent) Type() EventType {
	return EventTypeTransactionStatusChanged
}

// BoxPurchasedEvent is raised when a box gets its owner
type BoxPurchasedEvent struct {
	GameID  int64     `json:"game_id"`
	Row     int       `json:"row"`
	Col     int       `json:"col"`
	OwnerID uuid.UUID `json:"owner_id"`
	Price   int64     `json:"price"`
}

func (e BoxPurchasedEvent) Type() EventType {
	return EventTypeBoxPurchased
}
