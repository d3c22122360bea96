package utils

import (
	"context"
	"fmt"

	"squares/domain/entities"
	"squares/domain/events"
	"squares/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// RecordLedgerEntry appends a ledger entry and, when it moved the balance,
// emits a BalanceChangeEvent. Publish failures are logged, not returned.
func RecordLedgerEntry(ctx context.Context, txnRepo interfaces.LedgerTransactionRepository, eventPublisher interfaces.EventPublisher, txn *entities.LedgerTransaction) error {
	if err := txnRepo.Record(ctx, txn); err != nil {
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}

	if txn.IsApplied() {
		PublishBalanceChange(eventPublisher, txn)
	}
	return nil
}

// PublishBalanceChange emits the event for an applied ledger entry
func PublishBalanceChange(eventPublisher interfaces.EventPublisher, txn *entities.LedgerTransaction) {
	event := events.BalanceChangeEvent{
		AccountID:       txn.AccountID,
		TransactionID:   txn.ID,
		OldBalance:      *txn.BalanceBefore,
		NewBalance:      *txn.BalanceAfter,
		TransactionType: txn.Type,
		ChangeAmount:    txn.Amount,
	}
	log.WithFields(log.Fields{
		"accountID":       event.AccountID,
		"transactionID":   event.TransactionID,
		"oldBalance":      event.OldBalance,
		"newBalance":      event.NewBalance,
		"transactionType": event.TransactionType,
		"changeAmount":    event.ChangeAmount,
	}).Debug("Publishing BalanceChangeEvent")
	if err := eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish balance change event")
	}
}
