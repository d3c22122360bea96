package testutil

import (
	"context"
	"testing"
	"time"

	"squares/database"
	"squares/domain/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

// CreateTestAccount creates an account with default values
func CreateTestAccount(username string) *entities.Account {
	return &entities.Account{
		ID:             uuid.New(),
		Username:       username,
		HotcoinBalance: 1000,
	}
}

// CreateTestAccountWithBalance creates an account with a specific balance
func CreateTestAccountWithBalance(username string, balance int64) *entities.Account {
	account := CreateTestAccount(username)
	account.HotcoinBalance = balance
	return account
}

// CreateTestGame creates an active game starting at startTime
func CreateTestGame(startTime time.Time) *entities.Game {
	return &entities.Game{
		HomeTeam:    "Packers",
		AwayTeam:    "Bears",
		Sport:       "nfl",
		StartTime:   startTime,
		EntryFee:    10,
		Active:      true,
		PayoutQ1:    100,
		PayoutQ2:    150,
		PayoutQ3:    100,
		PayoutFinal: 400,
	}
}

// SeedGame inserts a game with its full grid in one transaction and returns its ID
func SeedGame(t *testing.T, db *database.DB, game *entities.Game) int64 {
	t.Helper()
	ctx := context.Background()

	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO games (home_team, away_team, sport, start_time, entry_fee, active,
			                   payout_q1, payout_q2, payout_q3, payout_final)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id
		`, game.HomeTeam, game.AwayTeam, game.Sport, game.StartTime, game.EntryFee, game.Active,
			game.PayoutQ1, game.PayoutQ2, game.PayoutQ3, game.PayoutFinal).Scan(&game.ID)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO boxes (game_id, row_index, col_index)
			SELECT $1, r, c FROM generate_series(0, 9) AS r CROSS JOIN generate_series(0, 9) AS c
		`, game.ID)
		return err
	})
	require.NoError(t, err)

	return game.ID
}

// SeedAccount inserts an account directly
func SeedAccount(t *testing.T, db *database.DB, account *entities.Account) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO profiles (id, username, hotcoin_balance, is_admin)
			VALUES ($1, $2, $3, $4)
		`, account.ID, account.Username, account.HotcoinBalance, account.IsAdmin)
		return err
	})
	require.NoError(t, err)

	return account.ID
}

// OwnBox assigns a box owner directly, bypassing the purchase flow
func OwnBox(t *testing.T, db *database.DB, gameID int64, row, col int, owner uuid.UUID) {
	t.Helper()
	_, err := db.Exec(context.Background(), `
		UPDATE boxes SET owner_id = $4, purchased_at = NOW()
		WHERE game_id = $1 AND row_index = $2 AND col_index = $3
	`, gameID, row, col, owner)
	require.NoError(t, err)
}
