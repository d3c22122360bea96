package application

import (
	"context"
	"errors"
	"time"

	"squares/domain/entities"
	"squares/domain/interfaces"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and then publishes the buffered events
	Commit() error

	// Rollback rolls back the transaction and drops the buffered events
	Rollback() error

	// Repository getters
	GameRepository() interfaces.GameRepository
	BoxRepository() interfaces.BoxRepository
	AccountRepository() interfaces.AccountRepository
	LedgerTransactionRepository() interfaces.LedgerTransactionRepository
	SettlementRepository() interfaces.SettlementRepository
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// newRetryBackOff builds the policy used for ErrStoreUnavailable
var newRetryBackOff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 10 * time.Second
	return backoff.WithMaxRetries(b, 5)
}

// runWithRetry repeats fn while it fails with ErrStoreUnavailable.
// Any other error stops immediately and is returned unchanged.
func runWithRetry(ctx context.Context, operation string, fn func() error) error {
	attempt := 0
	return backoff.RetryNotify(
		func() error {
			attempt++
			err := fn()
			var permanent *backoff.PermanentError
			if err == nil || errors.Is(err, entities.ErrStoreUnavailable) || errors.As(err, &permanent) {
				return err
			}
			return backoff.Permanent(err)
		},
		backoff.WithContext(newRetryBackOff(), ctx),
		func(err error, wait time.Duration) {
			log.WithFields(log.Fields{
				"operation": operation,
				"attempt":   attempt,
				"wait":      wait,
				"error":     err,
			}).Warn("Store unavailable, retrying")
		},
	)
}

// withUnitOfWork runs fn in a fresh unit of work and commits when it succeeds.
// Every retry starts a new transaction, so fn must not keep state between attempts.
// A failed commit is only retried when the store confirms it rolled back;
// otherwise the writes may have landed and a second run would apply them twice.
func withUnitOfWork(ctx context.Context, factory UnitOfWorkFactory, operation string, fn func(uow UnitOfWork) error) error {
	return runWithRetry(ctx, operation, func() error {
		uow := factory.Create()
		if err := uow.Begin(ctx); err != nil {
			return err
		}
		if err := fn(uow); err != nil {
			if rbErr := uow.Rollback(); rbErr != nil {
				log.WithError(rbErr).Warn("Failed to roll back unit of work")
			}
			return err
		}
		if err := uow.Commit(); err != nil {
			if errors.Is(err, entities.ErrTransactionRolledBack) {
				return err
			}
			log.WithFields(log.Fields{
				"operation": operation,
				"error":     err,
			}).Error("Commit outcome unknown, not retrying")
			return backoff.Permanent(err)
		}
		return nil
	})
}
