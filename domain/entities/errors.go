package entities

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds surfaced by the settlement engine
var (
	ErrTooEarly               = errors.New("too early to assign numbers")
	ErrAlreadyAssigned        = errors.New("numbers already assigned")
	ErrInvalidGridState       = errors.New("invalid grid state")
	ErrNumbersNotAssigned     = errors.New("numbers not assigned")
	ErrAlreadySettled         = errors.New("period already settled")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrDailyLimitExceeded     = errors.New("daily withdrawal limit exceeded")
	ErrBelowMinimumWithdrawal = errors.New("withdrawal below minimum")
	ErrNotFoundWinner         = errors.New("winning box has no owner")
	ErrStoreUnavailable       = errors.New("data store unavailable")

	// ErrTransactionRolledBack marks a commit the store refused and undid,
	// so running the whole transaction again cannot apply it twice
	ErrTransactionRolledBack = errors.New("transaction rolled back by the store")

	ErrGameInactive        = errors.New("game is not active")
	ErrGameNotFound        = errors.New("game not found")
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrPeriodOutOfRange    = errors.New("period has no recorded score")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidTransition   = errors.New("invalid transaction status transition")
	ErrInvalidScore        = errors.New("score must not be negative")
	ErrBoxNotFound         = errors.New("box not found")
	ErrBoxTaken            = errors.New("box already owned")
	ErrGridLocked          = errors.New("grid is locked")
	ErrScoreConflict       = errors.New("period score already recorded with different values")
)

// TooEarlyError carries how long a caller must wait before assignment opens
type TooEarlyError struct {
	GameID    int64
	OpensAt   time.Time
	Remaining time.Duration
}

func (e *TooEarlyError) Error() string {
	return fmt.Sprintf("too early to assign numbers for game %d: opens at %s (in %s)",
		e.GameID, e.OpensAt.UTC().Format(time.RFC3339), e.Remaining)
}

// Is matches ErrTooEarly
func (e *TooEarlyError) Is(target error) bool {
	return target == ErrTooEarly
}

// Ledger rule names reported in RuleViolationError
const (
	RuleNonNegativeBalance = "non_negative_balance"
	RuleMinimumWithdrawal  = "minimum_withdrawal"
	RuleDailyWithdrawalCap = "daily_withdrawal_cap"
)

// RuleViolationError names the ledger rule a request broke and by how much
type RuleViolationError struct {
	Err       error  // one of the error kinds above
	Rule      string // which rule
	Limit     int64  // the bound in force (balance, minimum or cap)
	Current   int64  // amount already counted against the bound
	Requested int64
}

func (e *RuleViolationError) Error() string {
	switch e.Rule {
	case RuleNonNegativeBalance:
		return fmt.Sprintf("%s: requested %d but balance is %d (short by %d)",
			e.Err, e.Requested, e.Limit, e.Excess())
	case RuleMinimumWithdrawal:
		return fmt.Sprintf("%s: requested %d, minimum is %d", e.Err, e.Requested, e.Limit)
	case RuleDailyWithdrawalCap:
		return fmt.Sprintf("%s: %d already withdrawn today, requested %d, cap is %d (over by %d)",
			e.Err, e.Current, e.Requested, e.Limit, e.Excess())
	default:
		return e.Err.Error()
	}
}

func (e *RuleViolationError) Unwrap() error {
	return e.Err
}

// Excess is how far the request goes past the rule's bound
func (e *RuleViolationError) Excess() int64 {
	switch e.Rule {
	case RuleMinimumWithdrawal:
		return e.Limit - e.Requested
	default:
		return e.Current + e.Requested - e.Limit
	}
}
