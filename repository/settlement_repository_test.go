package repository

import (
	"context"
	"testing"
	"time"

	"squares/domain/entities"
	"squares/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettlementRepository_Claim(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewSettlementRepository(testDB.DB)
	ctx := context.Background()
	gameID := testutil.SeedGame(t, testDB.DB, testutil.CreateTestGame(time.Now()))

	settlement := &entities.PeriodSettlement{
		GameID:      gameID,
		PeriodIndex: 0,
		WinningRow:  5,
		WinningCol:  8,
		Outcome:     entities.SettlementOutcomeNoWinner,
		SettledAt:   time.Now(),
	}

	claimed, err := repo.Claim(ctx, settlement)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.Claim(ctx, settlement)
	require.NoError(t, err)
	assert.False(t, claimed)

	second := *settlement
	second.PeriodIndex = 1
	claimed, err = repo.Claim(ctx, &second)
	require.NoError(t, err)
	assert.True(t, claimed)

	stored, err := repo.ListByGame(ctx, gameID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, 0, stored[0].PeriodIndex)
	assert.Equal(t, entities.GridPosition{Row: 5, Col: 8}, stored[0].Position())
	assert.Equal(t, entities.SettlementOutcomeNoWinner, stored[1].Outcome)
	assert.Nil(t, stored[0].WinnerID)
	assert.Nil(t, stored[0].TransactionID)

	assert.Error(t, repo.AttachTransaction(ctx, gameID, 7, 1))
}
