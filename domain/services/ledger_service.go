package services

import (
	"context"
	"fmt"
	"time"

	"squares/config"
	"squares/domain/entities"
	"squares/domain/events"
	"squares/domain/interfaces"
	"squares/domain/utils"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const defaultHistoryLimit = 50

type ledgerService struct {
	config         *config.Config
	accountRepo    interfaces.AccountRepository
	txnRepo        interfaces.LedgerTransactionRepository
	clock          interfaces.Clock
	eventPublisher interfaces.EventPublisher
}

// NewLedgerService creates a new ledger service.
// Callers run it inside a unit of work; every mutation locks the account row first.
func NewLedgerService(
	accountRepo interfaces.AccountRepository,
	txnRepo interfaces.LedgerTransactionRepository,
	clock interfaces.Clock,
	eventPublisher interfaces.EventPublisher,
) interfaces.LedgerService {
	return &ledgerService{
		config:         config.Get(),
		accountRepo:    accountRepo,
		txnRepo:        txnRepo,
		clock:          clock,
		eventPublisher: eventPublisher,
	}
}

// ApplyTransaction dispatches a request to the rule set of its type
func (s *ledgerService) ApplyTransaction(ctx context.Context, req interfaces.LedgerRequest) (*entities.LedgerTransaction, error) {
	switch req.Type {
	case entities.TransactionTypePurchase:
		return s.Purchase(ctx, req.AccountID, req.Amount, req.Description)
	case entities.TransactionTypeBet:
		return s.PlaceBet(ctx, req.AccountID, req.Amount, req.Description, req.GameID)
	case entities.TransactionTypePayout, entities.TransactionTypeRefund:
		return s.Credit(ctx, req)
	case entities.TransactionTypeWithdrawal:
		return s.RequestWithdrawal(ctx, req.AccountID, req.Amount, req.Description)
	default:
		return nil, fmt.Errorf("unknown transaction type %q", req.Type)
	}
}

// Purchase credits immediately at or below the auto-approval threshold and
// otherwise records a pending entry with no balance effect
func (s *ledgerService) Purchase(ctx context.Context, accountID uuid.UUID, amount int64, description string) (*entities.LedgerTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: purchase of %d", entities.ErrInvalidAmount, amount)
	}

	now := s.clock.Now()
	txn := &entities.LedgerTransaction{
		AccountID:   accountID,
		Type:        entities.TransactionTypePurchase,
		Amount:      amount,
		Description: description,
		CreatedAt:   now,
	}

	if amount <= s.config.AutoApprovalThreshold {
		txn.VerificationStatus = entities.StatusPtr(entities.VerificationStatusApproved)
		txn.AutoApproved = true
		txn.ResolvedAt = &now

		account, err := s.lockAccount(ctx, accountID)
		if err != nil {
			return nil, err
		}
		if err := s.applyLocked(ctx, account, txn); err != nil {
			return nil, err
		}
		return txn, nil
	}

	// Pending purchases only need the account to exist
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: %s", entities.ErrAccountNotFound, accountID)
	}

	txn.VerificationStatus = entities.StatusPtr(entities.VerificationStatusPending)
	if err := utils.RecordLedgerEntry(ctx, s.txnRepo, s.eventPublisher, txn); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"accountID":     accountID,
		"transactionID": txn.ID,
		"amount":        amount,
		"threshold":     s.config.AutoApprovalThreshold,
	}).Info("Purchase recorded pending manual approval")

	return txn, nil
}

// PlaceBet debits a box purchase
func (s *ledgerService) PlaceBet(ctx context.Context, accountID uuid.UUID, amount int64, description string, gameID *int64) (*entities.LedgerTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: bet of %d", entities.ErrInvalidAmount, amount)
	}

	account, err := s.lockAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	txn := &entities.LedgerTransaction{
		AccountID:   accountID,
		Type:        entities.TransactionTypeBet,
		Amount:      -amount,
		Description: description,
		GameID:      gameID,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.applyLocked(ctx, account, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// Credit applies a payout or refund
func (s *ledgerService) Credit(ctx context.Context, req interfaces.LedgerRequest) (*entities.LedgerTransaction, error) {
	if req.Type != entities.TransactionTypePayout && req.Type != entities.TransactionTypeRefund {
		return nil, fmt.Errorf("credit does not accept %q entries", req.Type)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: %s of %d", entities.ErrInvalidAmount, req.Type, req.Amount)
	}

	account, err := s.lockAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	txn := &entities.LedgerTransaction{
		AccountID:   req.AccountID,
		Type:        req.Type,
		Amount:      req.Amount,
		Description: req.Description,
		GameID:      req.GameID,
		Metadata:    req.Metadata,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.applyLocked(ctx, account, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// RequestWithdrawal checks the minimum first, then the daily cap, then the
// balance. Once the cap is used up every request at or above the minimum
// reports the cap, whatever the balance.
func (s *ledgerService) RequestWithdrawal(ctx context.Context, accountID uuid.UUID, amount int64, description string) (*entities.LedgerTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: withdrawal of %d", entities.ErrInvalidAmount, amount)
	}
	if amount < s.config.MinimumWithdrawal {
		return nil, &entities.RuleViolationError{
			Err:       entities.ErrBelowMinimumWithdrawal,
			Rule:      entities.RuleMinimumWithdrawal,
			Limit:     s.config.MinimumWithdrawal,
			Requested: amount,
		}
	}

	// The row lock also serializes the daily sum for this account
	account, err := s.lockAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	dayStart, dayEnd := s.withdrawalDay(now)
	used, err := s.txnRepo.SumWithdrawalsBetween(ctx, accountID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to sum daily withdrawals: %w", err)
	}
	if used+amount > s.config.DailyWithdrawalLimit {
		return nil, &entities.RuleViolationError{
			Err:       entities.ErrDailyLimitExceeded,
			Rule:      entities.RuleDailyWithdrawalCap,
			Limit:     s.config.DailyWithdrawalLimit,
			Current:   used,
			Requested: amount,
		}
	}
	if !account.CanAfford(amount) {
		return nil, insufficientBalance(account.HotcoinBalance, amount)
	}

	txn := &entities.LedgerTransaction{
		AccountID:          accountID,
		Type:               entities.TransactionTypeWithdrawal,
		Amount:             -amount,
		Description:        description,
		VerificationStatus: entities.StatusPtr(entities.VerificationStatusPending),
		CreatedAt:          now,
	}
	if err := s.applyLocked(ctx, account, txn); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"accountID":     accountID,
		"transactionID": txn.ID,
		"amount":        amount,
		"withdrawnDay":  used + amount,
	}).Info("Withdrawal requested")

	return txn, nil
}

// Approve credits a pending purchase
func (s *ledgerService) Approve(ctx context.Context, transactionID int64) (*entities.LedgerTransaction, error) {
	return s.resolve(ctx, transactionID, entities.TransactionTypePurchase, entities.VerificationStatusApproved,
		func(txn *entities.LedgerTransaction, account *entities.Account) (*int64, *int64, error) {
			before := account.HotcoinBalance
			after := before + txn.Amount
			if err := s.accountRepo.UpdateBalance(ctx, account.ID, after); err != nil {
				return nil, nil, fmt.Errorf("failed to update balance: %w", err)
			}
			return &before, &after, nil
		})
}

// Reject closes a pending purchase without crediting it
func (s *ledgerService) Reject(ctx context.Context, transactionID int64) (*entities.LedgerTransaction, error) {
	return s.resolve(ctx, transactionID, entities.TransactionTypePurchase, entities.VerificationStatusRejected, nil)
}

// CompleteWithdrawal marks an already-debited withdrawal as paid out
func (s *ledgerService) CompleteWithdrawal(ctx context.Context, transactionID int64) (*entities.LedgerTransaction, error) {
	return s.resolve(ctx, transactionID, entities.TransactionTypeWithdrawal, entities.VerificationStatusCompleted, nil)
}

// FailWithdrawal marks a withdrawal failed and returns the debited amount with a refund entry
func (s *ledgerService) FailWithdrawal(ctx context.Context, transactionID int64) (*entities.LedgerTransaction, error) {
	var refund *entities.LedgerTransaction
	txn, err := s.resolve(ctx, transactionID, entities.TransactionTypeWithdrawal, entities.VerificationStatusFailed,
		func(txn *entities.LedgerTransaction, account *entities.Account) (*int64, *int64, error) {
			refund = &entities.LedgerTransaction{
				AccountID:   account.ID,
				Type:        entities.TransactionTypeRefund,
				Amount:      txn.Magnitude(),
				Description: fmt.Sprintf("Refund for failed withdrawal #%d", txn.ID),
				Metadata:    map[string]any{"withdrawal_id": txn.ID},
				CreatedAt:   s.clock.Now(),
			}
			if err := s.applyLocked(ctx, account, refund); err != nil {
				return nil, nil, err
			}
			// The withdrawal row keeps the balances of its original debit
			return nil, nil, nil
		})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"withdrawalID": txn.ID,
		"refundID":     refund.ID,
		"amount":       refund.Amount,
	}).Info("Failed withdrawal refunded")

	return txn, nil
}

// GetBalance returns the current balance
func (s *ledgerService) GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return 0, fmt.Errorf("%w: %s", entities.ErrAccountNotFound, accountID)
	}
	return account.HotcoinBalance, nil
}

// GetHistory returns the newest ledger entries first
func (s *ledgerService) GetHistory(ctx context.Context, accountID uuid.UUID, limit int) ([]*entities.LedgerTransaction, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	history, err := s.txnRepo.ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	return history, nil
}

// resolveFunc applies the balance side of a status transition and returns the
// balances to store on the resolved entry (nil to leave them unchanged)
type resolveFunc func(txn *entities.LedgerTransaction, account *entities.Account) (before, after *int64, err error)

// resolve moves a pending entry of the given type to a terminal status.
// Locks are taken entry first, then account.
func (s *ledgerService) resolve(ctx context.Context, transactionID int64, wantType entities.TransactionType, to entities.VerificationStatus, apply resolveFunc) (*entities.LedgerTransaction, error) {
	txn, err := s.txnRepo.GetByIDForUpdate(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	if txn == nil {
		return nil, fmt.Errorf("%w: %d", entities.ErrTransactionNotFound, transactionID)
	}
	if txn.Type != wantType || !txn.IsPending() {
		return nil, fmt.Errorf("%w: cannot move %s #%d from %s to %s",
			entities.ErrInvalidTransition, txn.Type, txn.ID, statusName(txn.VerificationStatus), to)
	}

	account, err := s.lockAccount(ctx, txn.AccountID)
	if err != nil {
		return nil, err
	}

	var before, after *int64
	if apply != nil {
		if before, after, err = apply(txn, account); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	updated, err := s.txnRepo.UpdateStatus(ctx, txn.ID, entities.VerificationStatusPending, to, now, before, after)
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction status: %w", err)
	}
	if !updated {
		return nil, fmt.Errorf("%w: %s #%d is no longer pending", entities.ErrInvalidTransition, txn.Type, txn.ID)
	}

	txn.VerificationStatus = entities.StatusPtr(to)
	txn.ResolvedAt = &now
	if before != nil {
		txn.BalanceBefore = before
		txn.BalanceAfter = after
		utils.PublishBalanceChange(s.eventPublisher, txn)
	}

	if err := s.eventPublisher.Publish(events.TransactionStatusChangedEvent{
		TransactionID: txn.ID,
		AccountID:     txn.AccountID,
		OldStatus:     entities.VerificationStatusPending,
		NewStatus:     to,
	}); err != nil {
		log.WithError(err).WithField("transactionID", txn.ID).Error("Failed to publish status change event")
	}

	return txn, nil
}

// lockAccount loads the account row with FOR UPDATE
func (s *ledgerService) lockAccount(ctx context.Context, accountID uuid.UUID) (*entities.Account, error) {
	account, err := s.accountRepo.GetByIDForUpdate(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: %s", entities.ErrAccountNotFound, accountID)
	}
	return account, nil
}

// applyLocked moves the balance of a locked account by txn.Amount and records
// the entry in the same transaction. Nothing is written if the result would be negative.
func (s *ledgerService) applyLocked(ctx context.Context, account *entities.Account, txn *entities.LedgerTransaction) error {
	before := account.HotcoinBalance
	after := before + txn.Amount
	if after < 0 {
		return insufficientBalance(before, -txn.Amount)
	}

	if err := s.accountRepo.UpdateBalance(ctx, account.ID, after); err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	txn.BalanceBefore = &before
	txn.BalanceAfter = &after
	if err := utils.RecordLedgerEntry(ctx, s.txnRepo, s.eventPublisher, txn); err != nil {
		return err
	}

	account.HotcoinBalance = after
	return nil
}

// withdrawalDay returns the [start, end) window of the calendar day containing now
func (s *ledgerService) withdrawalDay(now time.Time) (time.Time, time.Time) {
	local := now.In(s.config.WithdrawalLocation())
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	return start, start.AddDate(0, 0, 1)
}

func insufficientBalance(balance, requested int64) error {
	return &entities.RuleViolationError{
		Err:       entities.ErrInsufficientBalance,
		Rule:      entities.RuleNonNegativeBalance,
		Limit:     balance,
		Requested: requested,
	}
}

func statusName(status *entities.VerificationStatus) string {
	if status == nil {
		return "none"
	}
	return string(*status)
}
