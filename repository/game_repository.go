package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"squares/database"
	"squares/domain/entities"
	"squares/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

const gameColumns = `
	id, home_team, away_team, sport, start_time, entry_fee, active,
	numbers_assigned, home_numbers, away_numbers, home_scores, away_scores,
	payout_q1, payout_q2, payout_q3, payout_final, created_at, updated_at`

// gameRepository implements interfaces.GameRepository
type gameRepository struct {
	q Queryable
}

// NewGameRepository creates a game repository on the pool
func NewGameRepository(db *database.DB) interfaces.GameRepository {
	return &gameRepository{q: db.Pool}
}

// newGameRepositoryWithTx creates a game repository bound to a transaction
func newGameRepositoryWithTx(tx Queryable) interfaces.GameRepository {
	return &gameRepository{q: tx}
}

// Create inserts a game with an empty score history
func (r *gameRepository) Create(ctx context.Context, game *entities.Game) error {
	query := `
		INSERT INTO games (
			home_team, away_team, sport, start_time, entry_fee, active,
			payout_q1, payout_q2, payout_q3, payout_final
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		game.HomeTeam,
		game.AwayTeam,
		game.Sport,
		game.StartTime,
		game.EntryFee,
		game.Active,
		game.PayoutQ1,
		game.PayoutQ2,
		game.PayoutQ3,
		game.PayoutFinal,
	).Scan(&game.ID, &game.CreatedAt, &game.UpdatedAt)
	if err != nil {
		return classify(err, "failed to create game %s", game.Matchup())
	}

	if game.HomeScores == nil {
		game.HomeScores = []int{}
	}
	if game.AwayScores == nil {
		game.AwayScores = []int{}
	}
	return nil
}

// GetByID retrieves a game by ID
func (r *gameRepository) GetByID(ctx context.Context, id int64) (*entities.Game, error) {
	return r.get(ctx, `SELECT`+gameColumns+` FROM games WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a game and locks its row
func (r *gameRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Game, error) {
	return r.get(ctx, `SELECT`+gameColumns+` FROM games WHERE id = $1 FOR UPDATE`, id)
}

func (r *gameRepository) get(ctx context.Context, query string, id int64) (*entities.Game, error) {
	game, err := scanGame(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err, "failed to get game %d", id)
	}
	return game, nil
}

// ListNeedingAssignment returns active games without numbers that start at or before cutoff
func (r *gameRepository) ListNeedingAssignment(ctx context.Context, cutoff time.Time) ([]*entities.Game, error) {
	query := `SELECT` + gameColumns + `
		FROM games
		WHERE active = TRUE
		  AND numbers_assigned = FALSE
		  AND start_time <= $1
		ORDER BY start_time ASC, id ASC
	`

	rows, err := r.q.Query(ctx, query, cutoff)
	if err != nil {
		return nil, classify(err, "failed to list games needing assignment")
	}
	defer rows.Close()

	var games []*entities.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "error iterating games")
	}

	return games, nil
}

// AssignNumbers writes both axes in one conditional update. Exactly one
// concurrent caller sees a row affected.
func (r *gameRepository) AssignNumbers(ctx context.Context, gameID int64, homeNumbers, awayNumbers []int) (bool, error) {
	query := `
		UPDATE games
		SET numbers_assigned = TRUE,
		    home_numbers = $2,
		    away_numbers = $3,
		    updated_at = NOW()
		WHERE id = $1
		  AND active = TRUE
		  AND numbers_assigned = FALSE
	`

	tag, err := r.q.Exec(ctx, query, gameID, homeNumbers, awayNumbers)
	if err != nil {
		return false, classify(err, "failed to assign numbers for game %d", gameID)
	}
	return tag.RowsAffected() == 1, nil
}

// AppendPeriodScore appends one score pair when exactly period pairs are recorded
func (r *gameRepository) AppendPeriodScore(ctx context.Context, gameID int64, period, homeScore, awayScore int) (bool, error) {
	query := `
		UPDATE games
		SET home_scores = array_append(home_scores, $3),
		    away_scores = array_append(away_scores, $4),
		    updated_at = NOW()
		WHERE id = $1
		  AND cardinality(home_scores) = $2
	`

	tag, err := r.q.Exec(ctx, query, gameID, period, homeScore, awayScore)
	if err != nil {
		return false, classify(err, "failed to record score for game %d period %d", gameID, period)
	}
	return tag.RowsAffected() == 1, nil
}

// Deactivate marks a game inactive
func (r *gameRepository) Deactivate(ctx context.Context, gameID int64) error {
	tag, err := r.q.Exec(ctx, `UPDATE games SET active = FALSE, updated_at = NOW() WHERE id = $1`, gameID)
	if err != nil {
		return classify(err, "failed to deactivate game %d", gameID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", entities.ErrGameNotFound, gameID)
	}
	return nil
}

func scanGame(row pgx.Row) (*entities.Game, error) {
	var game entities.Game
	err := row.Scan(
		&game.ID,
		&game.HomeTeam,
		&game.AwayTeam,
		&game.Sport,
		&game.StartTime,
		&game.EntryFee,
		&game.Active,
		&game.NumbersAssigned,
		&game.HomeNumbers,
		&game.AwayNumbers,
		&game.HomeScores,
		&game.AwayScores,
		&game.PayoutQ1,
		&game.PayoutQ2,
		&game.PayoutQ3,
		&game.PayoutFinal,
		&game.CreatedAt,
		&game.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &game, nil
}
