package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"squares/database"
	"squares/domain/entities"
	"squares/domain/interfaces"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// boxRepository implements interfaces.BoxRepository
type boxRepository struct {
	q Queryable
}

// NewBoxRepository creates a box repository on the pool
func NewBoxRepository(db *database.DB) interfaces.BoxRepository {
	return &boxRepository{q: db.Pool}
}

// newBoxRepositoryWithTx creates a box repository bound to a transaction
func newBoxRepositoryWithTx(tx Queryable) interfaces.BoxRepository {
	return &boxRepository{q: tx}
}

// CreateGrid inserts every position of the grid, unowned
func (r *boxRepository) CreateGrid(ctx context.Context, gameID int64) error {
	query := `
		INSERT INTO boxes (game_id, row_index, col_index)
		SELECT $1, r, c
		FROM generate_series(0, $2 - 1) AS r
		CROSS JOIN generate_series(0, $2 - 1) AS c
	`

	tag, err := r.q.Exec(ctx, query, gameID, entities.GridSize)
	if err != nil {
		return classify(err, "failed to create grid for game %d", gameID)
	}
	if tag.RowsAffected() != entities.GridSize*entities.GridSize {
		return fmt.Errorf("%w: created %d boxes for game %d", entities.ErrInvalidGridState, tag.RowsAffected(), gameID)
	}
	return nil
}

// GetByPosition retrieves one box
func (r *boxRepository) GetByPosition(ctx context.Context, gameID int64, row, col int) (*entities.Box, error) {
	query := `
		SELECT id, game_id, row_index, col_index, owner_id, purchased_at
		FROM boxes
		WHERE game_id = $1 AND row_index = $2 AND col_index = $3
	`

	box, err := scanBox(r.q.QueryRow(ctx, query, gameID, row, col))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err, "failed to get box (%d, %d) for game %d", row, col, gameID)
	}
	return box, nil
}

// ListByGame returns the grid in row-major order
func (r *boxRepository) ListByGame(ctx context.Context, gameID int64) ([]*entities.Box, error) {
	query := `
		SELECT id, game_id, row_index, col_index, owner_id, purchased_at
		FROM boxes
		WHERE game_id = $1
		ORDER BY row_index ASC, col_index ASC
	`

	rows, err := r.q.Query(ctx, query, gameID)
	if err != nil {
		return nil, classify(err, "failed to list boxes for game %d", gameID)
	}
	defer rows.Close()

	var boxes []*entities.Box
	for rows.Next() {
		box, err := scanBox(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan box: %w", err)
		}
		boxes = append(boxes, box)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "error iterating boxes")
	}

	return boxes, nil
}

// CountSold returns the number of owned boxes
func (r *boxRepository) CountSold(ctx context.Context, gameID int64) (int64, error) {
	var sold int64
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM boxes WHERE game_id = $1 AND owner_id IS NOT NULL`, gameID).Scan(&sold)
	if err != nil {
		return 0, classify(err, "failed to count sold boxes for game %d", gameID)
	}
	return sold, nil
}

// AssignOwner claims an unowned box
func (r *boxRepository) AssignOwner(ctx context.Context, gameID int64, row, col int, ownerID uuid.UUID, purchasedAt time.Time) (bool, error) {
	query := `
		UPDATE boxes
		SET owner_id = $4, purchased_at = $5
		WHERE game_id = $1 AND row_index = $2 AND col_index = $3
		  AND owner_id IS NULL
	`

	tag, err := r.q.Exec(ctx, query, gameID, row, col, ownerID, purchasedAt)
	if err != nil {
		return false, classify(err, "failed to assign box (%d, %d) for game %d", row, col, gameID)
	}
	return tag.RowsAffected() == 1, nil
}

func scanBox(row pgx.Row) (*entities.Box, error) {
	var box entities.Box
	var rowIndex, colIndex int16
	err := row.Scan(
		&box.ID,
		&box.GameID,
		&rowIndex,
		&colIndex,
		&box.OwnerID,
		&box.PurchasedAt,
	)
	if err != nil {
		return nil, err
	}
	box.Row = int(rowIndex)
	box.Col = int(colIndex)
	return &box, nil
}
