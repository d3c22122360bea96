package repository

import (
	"context"
	"fmt"

	"squares/database"
	"squares/domain/entities"
	"squares/domain/interfaces"
)

// settlementRepository implements interfaces.SettlementRepository
type settlementRepository struct {
	q Queryable
}

// NewSettlementRepository creates a settlement repository on the pool
func NewSettlementRepository(db *database.DB) interfaces.SettlementRepository {
	return &settlementRepository{q: db.Pool}
}

// newSettlementRepositoryWithTx creates a settlement repository bound to a transaction
func newSettlementRepositoryWithTx(tx Queryable) interfaces.SettlementRepository {
	return &settlementRepository{q: tx}
}

// Claim inserts the (game, period) record. The primary key makes the second
// claim a no-op; concurrent claimers block on the first until it commits or rolls back.
func (r *settlementRepository) Claim(ctx context.Context, settlement *entities.PeriodSettlement) (bool, error) {
	query := `
		INSERT INTO period_settlements (
			game_id, period_index, winning_row, winning_col, winner_id,
			payout_amount, outcome, settled_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (game_id, period_index) DO NOTHING
	`

	tag, err := r.q.Exec(ctx, query,
		settlement.GameID,
		settlement.PeriodIndex,
		settlement.WinningRow,
		settlement.WinningCol,
		settlement.WinnerID,
		settlement.PayoutAmount,
		string(settlement.Outcome),
		settlement.SettledAt,
	)
	if err != nil {
		return false, classify(err, "failed to claim settlement for game %d period %d", settlement.GameID, settlement.PeriodIndex)
	}
	return tag.RowsAffected() == 1, nil
}

// AttachTransaction links the payout entry to its settlement
func (r *settlementRepository) AttachTransaction(ctx context.Context, gameID int64, period int, transactionID int64) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE period_settlements
		SET transaction_id = $3
		WHERE game_id = $1 AND period_index = $2
	`, gameID, period, transactionID)
	if err != nil {
		return classify(err, "failed to link transaction %d to game %d period %d", transactionID, gameID, period)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no settlement for game %d period %d", gameID, period)
	}
	return nil
}

// ListByGame returns settlements ordered by period
func (r *settlementRepository) ListByGame(ctx context.Context, gameID int64) ([]*entities.PeriodSettlement, error) {
	query := `
		SELECT game_id, period_index, winning_row, winning_col, winner_id,
		       payout_amount, transaction_id, outcome, settled_at
		FROM period_settlements
		WHERE game_id = $1
		ORDER BY period_index ASC
	`

	rows, err := r.q.Query(ctx, query, gameID)
	if err != nil {
		return nil, classify(err, "failed to list settlements for game %d", gameID)
	}
	defer rows.Close()

	var settlements []*entities.PeriodSettlement
	for rows.Next() {
		var settlement entities.PeriodSettlement
		var row, col int16
		var outcome string
		err := rows.Scan(
			&settlement.GameID,
			&settlement.PeriodIndex,
			&row,
			&col,
			&settlement.WinnerID,
			&settlement.PayoutAmount,
			&settlement.TransactionID,
			&outcome,
			&settlement.SettledAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlement.WinningRow = int(row)
		settlement.WinningCol = int(col)
		settlement.Outcome = entities.SettlementOutcome(outcome)
		settlements = append(settlements, &settlement)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "error iterating settlements")
	}

	return settlements, nil
}
