package entities

import (
	"time"

	"github.com/google/uuid"
)

// SettlementOutcome records how a period was resolved
type SettlementOutcome string

const (
	SettlementOutcomePaid         SettlementOutcome = "paid"
	SettlementOutcomeNoWinner     SettlementOutcome = "no_winner"     // winning box unsold
	SettlementOutcomeUnconfigured SettlementOutcome = "unconfigured" // period has no payout slot
)

// PeriodSettlement is the idempotency record for one (game, period) pair
type PeriodSettlement struct {
	GameID        int64             `db:"game_id"`
	PeriodIndex   int               `db:"period_index"`
	WinningRow    int               `db:"winning_row"`
	WinningCol    int               `db:"winning_col"`
	WinnerID      *uuid.UUID        `db:"winner_id"`
	PayoutAmount  int64             `db:"payout_amount"`
	TransactionID *int64            `db:"transaction_id"`
	Outcome       SettlementOutcome `db:"outcome"`
	SettledAt     time.Time         `db:"settled_at"`
}

// Position returns the winning grid position
func (s *PeriodSettlement) Position() GridPosition {
	return GridPosition{Row: s.WinningRow, Col: s.WinningCol}
}

// PeriodResult reports one period of a batch settlement.
// Exactly one of Settlement and Err is set.
type PeriodResult struct {
	PeriodIndex int
	Settlement  *PeriodSettlement
	Err         error
}

// Succeeded returns true if the period settled
func (r PeriodResult) Succeeded() bool {
	return r.Err == nil
}
