package repository

import (
	"context"
	"errors"
	"fmt"
	"net"

	"squares/domain/entities"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error codes that mean "try the whole transaction again"
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgAdminShutdown        = "57P01"
	pgCannotConnectNow     = "57P03"
)

// classify wraps transient database failures in ErrStoreUnavailable so callers
// can retry them. Other errors pass through with context added.
func classify(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	if isTransient(err) {
		return fmt.Errorf("%s: %w: %w", msg, entities.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// classifyCommit marks a failed COMMIT as rolled back only when Postgres
// reports that it undid the transaction. A dropped connection or a deadline
// during COMMIT is still ErrStoreUnavailable, but the outcome is unknown: the
// writes may already be durable, so the unit of work must not be replayed.
func classifyCommit(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected) {
		return fmt.Errorf("failed to commit transaction: %w: %w: %w",
			entities.ErrStoreUnavailable, entities.ErrTransactionRolledBack, err)
	}
	if isTransient(err) {
		return fmt.Errorf("failed to commit transaction, outcome unknown: %w: %w", entities.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("failed to commit transaction: %w", err)
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgAdminShutdown, pgCannotConnectNow:
			return true
		}
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return pgconn.SafeToRetry(err)
}
