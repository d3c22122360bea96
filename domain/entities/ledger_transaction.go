package entities

import (
	"time"

	"github.com/google/uuid"
)

// LedgerTransaction is one append-only HotCoin ledger entry.
// BalanceBefore/BalanceAfter are nil while the entry has not moved the balance.
type LedgerTransaction struct {
	ID                 int64               `db:"id"`
	AccountID          uuid.UUID           `db:"profile_id"`
	Type               TransactionType     `db:"type"`
	Amount             int64               `db:"amount"` // signed
	BalanceBefore      *int64              `db:"balance_before"`
	BalanceAfter       *int64              `db:"balance_after"`
	Description        string              `db:"description"`
	GameID             *int64              `db:"game_id"`
	VerificationStatus *VerificationStatus `db:"verification_status"`
	AutoApproved       bool                `db:"auto_approved"`
	Metadata           map[string]any      `db:"metadata"`
	CreatedAt          time.Time           `db:"created_at"`
	ResolvedAt         *time.Time          `db:"resolved_at"`
}

// Magnitude returns the unsigned amount
func (t *LedgerTransaction) Magnitude() int64 {
	if t.Amount < 0 {
		return -t.Amount
	}
	return t.Amount
}

// IsPending returns true while the entry awaits review or fulfilment
func (t *LedgerTransaction) IsPending() bool {
	return t.VerificationStatus != nil && *t.VerificationStatus == VerificationStatusPending
}

// HasStatus compares the verification status
func (t *LedgerTransaction) HasStatus(status VerificationStatus) bool {
	return t.VerificationStatus != nil && *t.VerificationStatus == status
}

// IsApplied returns true if the entry has moved the balance
func (t *LedgerTransaction) IsApplied() bool {
	return t.BalanceAfter != nil
}

// StatusPtr is a convenience for building entries
func StatusPtr(s VerificationStatus) *VerificationStatus {
	return &s
}
