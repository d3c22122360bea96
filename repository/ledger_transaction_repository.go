package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"squares/database"
	"squares/domain/entities"
	"squares/domain/interfaces"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const ledgerColumns = `
	id, profile_id, type, amount, balance_before, balance_after, description,
	game_id, verification_status, auto_approved, metadata, created_at, resolved_at`

// ledgerTransactionRepository implements interfaces.LedgerTransactionRepository
type ledgerTransactionRepository struct {
	q Queryable
}

// NewLedgerTransactionRepository creates a ledger repository on the pool
func NewLedgerTransactionRepository(db *database.DB) interfaces.LedgerTransactionRepository {
	return &ledgerTransactionRepository{q: db.Pool}
}

// newLedgerTransactionRepositoryWithTx creates a ledger repository bound to a transaction
func newLedgerTransactionRepositoryWithTx(tx Queryable) interfaces.LedgerTransactionRepository {
	return &ledgerTransactionRepository{q: tx}
}

// Record appends a ledger entry
func (r *ledgerTransactionRepository) Record(ctx context.Context, txn *entities.LedgerTransaction) error {
	metadata := txn.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO hotcoin_transactions (
			profile_id, type, amount, balance_before, balance_after, description,
			game_id, verification_status, auto_approved, metadata, created_at, resolved_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`

	createdAt := txn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	err = r.q.QueryRow(ctx, query,
		txn.AccountID,
		string(txn.Type),
		txn.Amount,
		txn.BalanceBefore,
		txn.BalanceAfter,
		txn.Description,
		txn.GameID,
		statusParam(txn.VerificationStatus),
		txn.AutoApproved,
		metadataJSON,
		createdAt,
		txn.ResolvedAt,
	).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return classify(err, "failed to record %s for profile %s", txn.Type, txn.AccountID)
	}
	return nil
}

// GetByID retrieves a ledger entry
func (r *ledgerTransactionRepository) GetByID(ctx context.Context, id int64) (*entities.LedgerTransaction, error) {
	return r.get(ctx, `SELECT`+ledgerColumns+` FROM hotcoin_transactions WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a ledger entry and locks its row
func (r *ledgerTransactionRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.LedgerTransaction, error) {
	return r.get(ctx, `SELECT`+ledgerColumns+` FROM hotcoin_transactions WHERE id = $1 FOR UPDATE`, id)
}

func (r *ledgerTransactionRepository) get(ctx context.Context, query string, id int64) (*entities.LedgerTransaction, error) {
	txn, err := scanLedgerTransaction(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err, "failed to get transaction %d", id)
	}
	return txn, nil
}

// ListByAccount returns the newest entries first
func (r *ledgerTransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*entities.LedgerTransaction, error) {
	query := `SELECT` + ledgerColumns + `
		FROM hotcoin_transactions
		WHERE profile_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, classify(err, "failed to get transactions for profile %s", accountID)
	}
	defer rows.Close()

	var history []*entities.LedgerTransaction
	for rows.Next() {
		txn, err := scanLedgerTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		history = append(history, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "error iterating transactions")
	}

	return history, nil
}

// SumWithdrawalsBetween totals the magnitude of pending and completed withdrawals
func (r *ledgerTransactionRepository) SumWithdrawalsBetween(ctx context.Context, accountID uuid.UUID, from, to time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(-amount), 0)::BIGINT
		FROM hotcoin_transactions
		WHERE profile_id = $1
		  AND type = 'withdrawal'
		  AND verification_status IN ('pending', 'completed')
		  AND created_at >= $2
		  AND created_at < $3
	`

	var total int64
	if err := r.q.QueryRow(ctx, query, accountID, from, to).Scan(&total); err != nil {
		return 0, classify(err, "failed to sum withdrawals for profile %s", accountID)
	}
	return total, nil
}

// UpdateStatus moves an entry between statuses if it is still in from.
// Balances are only overwritten when provided.
func (r *ledgerTransactionRepository) UpdateStatus(ctx context.Context, id int64, from, to entities.VerificationStatus, resolvedAt time.Time, balanceBefore, balanceAfter *int64) (bool, error) {
	query := `
		UPDATE hotcoin_transactions
		SET verification_status = $3,
		    resolved_at = $4,
		    balance_before = COALESCE($5, balance_before),
		    balance_after = COALESCE($6, balance_after)
		WHERE id = $1 AND verification_status = $2
	`

	tag, err := r.q.Exec(ctx, query, id, string(from), string(to), resolvedAt, balanceBefore, balanceAfter)
	if err != nil {
		return false, classify(err, "failed to move transaction %d from %s to %s", id, from, to)
	}
	return tag.RowsAffected() == 1, nil
}

func scanLedgerTransaction(row pgx.Row) (*entities.LedgerTransaction, error) {
	var txn entities.LedgerTransaction
	var txnType string
	var status *string
	var metadataJSON []byte

	err := row.Scan(
		&txn.ID,
		&txn.AccountID,
		&txnType,
		&txn.Amount,
		&txn.BalanceBefore,
		&txn.BalanceAfter,
		&txn.Description,
		&txn.GameID,
		&status,
		&txn.AutoApproved,
		&metadataJSON,
		&txn.CreatedAt,
		&txn.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}

	txn.Type = entities.TransactionType(txnType)
	if status != nil {
		txn.VerificationStatus = entities.StatusPtr(entities.VerificationStatus(*status))
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &txn.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
		}
	}
	return &txn, nil
}

func statusParam(status *entities.VerificationStatus) *string {
	if status == nil {
		return nil
	}
	s := string(*status)
	return &s
}
