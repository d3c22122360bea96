package application

import (
	"context"
	"testing"

	"squares/domain/entities"
	"squares/domain/events"
	"squares/domain/interfaces"
	"squares/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameHandler_Lifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	world := newFakeWorld()
	handler := NewGameHandler(world, testhelpers.NewFixedClock(walletTime))

	game, err := handler.CreateGame(ctx, interfaces.CreateGameParams{
		HomeTeam:    "Packers",
		AwayTeam:    "Bears",
		Sport:       "football",
		StartTime:   kickoff,
		EntryFee:    10,
		PayoutQ1:    100,
		PayoutQ2:    150,
		PayoutQ3:    100,
		PayoutFinal: 400,
	})
	require.NoError(t, err)
	assert.True(t, game.Active)
	assert.False(t, game.NumbersAssigned)

	boxes, err := world.boxes.ListByGame(ctx, game.ID)
	require.NoError(t, err)
	assert.Len(t, boxes, entities.GridSize*entities.GridSize)

	buyer := world.account(t, 25)
	box, err := handler.BuyBox(ctx, game.ID, 5, 8, buyer)
	require.NoError(t, err)
	require.NotNil(t, box.OwnerID)
	assert.Equal(t, buyer, *box.OwnerID)
	assert.Equal(t, int64(15), world.balance(t, buyer))
	assert.Len(t, world.publishedOfType(events.EventTypeBoxPurchased), 1)

	_, err = handler.BuyBox(ctx, game.ID, 5, 8, world.account(t, 25))
	assert.ErrorIs(t, err, entities.ErrBoxTaken)

	_, err = handler.BuyBox(ctx, game.ID, 10, 0, buyer)
	assert.ErrorIs(t, err, entities.ErrBoxNotFound)

	_, err = handler.BuyBox(ctx, game.ID, 0, 0, world.account(t, 5))
	assert.ErrorIs(t, err, entities.ErrInsufficientBalance)

	_, err = handler.BuyBox(ctx, game.ID, 1, 1, buyer)
	require.NoError(t, err)

	pool, err := handler.GetPrizePool(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pool.SoldBoxes)
	assert.Equal(t, int64(20), pool.TotalRevenue)
	assert.Equal(t, int64(18), pool.PrizePool)
	assert.Equal(t, int64(2), pool.PlatformFee)

	require.NoError(t, handler.DeactivateGame(ctx, game.ID))
	_, err = handler.BuyBox(ctx, game.ID, 2, 2, buyer)
	assert.ErrorIs(t, err, entities.ErrGridLocked)
}

func TestGameHandler_CreateGameValidation(t *testing.T) {
	t.Parallel()

	handler := NewGameHandler(newFakeWorld(), testhelpers.NewFixedClock(walletTime))

	_, err := handler.CreateGame(context.Background(), interfaces.CreateGameParams{HomeTeam: "Packers", StartTime: kickoff})
	assert.Error(t, err)

	_, err = handler.CreateGame(context.Background(), interfaces.CreateGameParams{
		HomeTeam:  "Packers",
		AwayTeam:  "Bears",
		StartTime: kickoff,
		EntryFee:  -1,
	})
	assert.ErrorIs(t, err, entities.ErrInvalidAmount)
}

func TestGameHandler_DeactivateUnknownGame(t *testing.T) {
	t.Parallel()

	handler := NewGameHandler(newFakeWorld(), testhelpers.NewFixedClock(walletTime))
	assert.ErrorIs(t, handler.DeactivateGame(context.Background(), 42), entities.ErrGameNotFound)
}
