package application

import (
	"context"
	"fmt"

	"squares/domain/entities"
	"squares/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// WalletHandler runs ledger operations in their own unit of work and alerts
// operators once a purchase or withdrawal needs manual action
type WalletHandler struct {
	uowFactory UnitOfWorkFactory
	clock      interfaces.Clock
	notifier   interfaces.Notifier
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(uowFactory UnitOfWorkFactory, clock interfaces.Clock, notifier interfaces.Notifier) *WalletHandler {
	return &WalletHandler{
		uowFactory: uowFactory,
		clock:      clock,
		notifier:   notifier,
	}
}

// PurchaseHotCoins records a purchase. Amounts above the auto-approval
// threshold stay pending and raise a review alert after commit.
func (h *WalletHandler) PurchaseHotCoins(ctx context.Context, accountID uuid.UUID, amount int64, description string) (*entities.LedgerTransaction, error) {
	txn, err := h.runLedger(ctx, "purchase", func(ledger interfaces.LedgerService) (*entities.LedgerTransaction, error) {
		return ledger.Purchase(ctx, accountID, amount, description)
	})
	if err != nil {
		return nil, err
	}

	if txn.IsPending() {
		h.notify(ctx, entities.OperatorAlertPurchaseReview, txn)
	}
	return txn, nil
}

// RequestWithdrawal debits the balance and raises a fulfilment alert after commit
func (h *WalletHandler) RequestWithdrawal(ctx context.Context, accountID uuid.UUID, amount int64, description string) (*entities.LedgerTransaction, error) {
	txn, err := h.runLedger(ctx, "withdrawal", func(ledger interfaces.LedgerService) (*entities.LedgerTransaction, error) {
		return ledger.RequestWithdrawal(ctx, accountID, amount, description)
	})
	if err != nil {
		return nil, err
	}

	h.notify(ctx, entities.OperatorAlertWithdrawalRequest, txn)
	return txn, nil
}

// ApprovePurchase credits a pending purchase
func (h *WalletHandler) ApprovePurchase(ctx context.Context, transactionID int64) (*entities.LedgerTransaction, error) {
	return h.runLedger(ctx, "approve_purchase", func(ledger interfaces.LedgerService) (*entities.LedgerTransaction, error) {
		return ledger.Approve(ctx, transactionID)
	})
}

// RejectPurchase closes a pending purchase without a credit
func (h *WalletHandler) RejectPurchase(ctx context.Context, transactionID int64) (*entities.LedgerTransaction, error) {
	return h.runLedger(ctx, "reject_purchase", func(ledger interfaces.LedgerService) (*entities.LedgerTransaction, error) {
		return ledger.Reject(ctx, transactionID)
	})
}

// CompleteWithdrawal marks a pending withdrawal as paid out
func (h *WalletHandler) CompleteWithdrawal(ctx context.Context, transactionID int64) (*entities.LedgerTransaction, error) {
	return h.runLedger(ctx, "complete_withdrawal", func(ledger interfaces.LedgerService) (*entities.LedgerTransaction, error) {
		return ledger.CompleteWithdrawal(ctx, transactionID)
	})
}

// FailWithdrawal marks a pending withdrawal failed and refunds it
func (h *WalletHandler) FailWithdrawal(ctx context.Context, transactionID int64) (*entities.LedgerTransaction, error) {
	return h.runLedger(ctx, "fail_withdrawal", func(ledger interfaces.LedgerService) (*entities.LedgerTransaction, error) {
		return ledger.FailWithdrawal(ctx, transactionID)
	})
}

// GetBalance returns an account's current balance
func (h *WalletHandler) GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var balance int64
	err := withUnitOfWork(ctx, h.uowFactory, "get_balance", func(uow UnitOfWork) error {
		var err error
		balance, err = ledgerFor(uow, h.clock).GetBalance(ctx, accountID)
		return err
	})
	return balance, err
}

// GetHistory returns an account's newest ledger entries first
func (h *WalletHandler) GetHistory(ctx context.Context, accountID uuid.UUID, limit int) ([]*entities.LedgerTransaction, error) {
	var history []*entities.LedgerTransaction
	err := withUnitOfWork(ctx, h.uowFactory, "get_history", func(uow UnitOfWork) error {
		var err error
		history, err = ledgerFor(uow, h.clock).GetHistory(ctx, accountID, limit)
		return err
	})
	return history, err
}

func (h *WalletHandler) runLedger(ctx context.Context, operation string, fn func(interfaces.LedgerService) (*entities.LedgerTransaction, error)) (*entities.LedgerTransaction, error) {
	var txn *entities.LedgerTransaction
	err := withUnitOfWork(ctx, h.uowFactory, operation, func(uow UnitOfWork) error {
		var err error
		txn, err = fn(ledgerFor(uow, h.clock))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", operation, err)
	}
	return txn, nil
}

// notify sends an operator alert; failures are logged and never returned
func (h *WalletHandler) notify(ctx context.Context, kind entities.OperatorAlertKind, txn *entities.LedgerTransaction) {
	if h.notifier == nil {
		return
	}

	alert := entities.OperatorAlert{
		Kind:          kind,
		TransactionID: txn.ID,
		AccountID:     txn.AccountID,
		Amount:        txn.Magnitude(),
		Description:   txn.Description,
		RaisedAt:      h.clock.Now(),
	}
	if err := h.notifier.NotifyOperator(ctx, alert); err != nil {
		log.WithFields(log.Fields{
			"kind":          kind,
			"transactionID": txn.ID,
			"accountID":     txn.AccountID,
			"error":         err,
		}).Error("Failed to notify operator")
	}
}
