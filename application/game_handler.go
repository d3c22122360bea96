package application

import (
	"context"
	"fmt"

	"squares/domain/entities"
	"squares/domain/interfaces"

	"github.com/google/uuid"
)

// GameHandler runs game lifecycle operations, one unit of work each
type GameHandler struct {
	uowFactory UnitOfWorkFactory
	clock      interfaces.Clock
}

// NewGameHandler creates a new game handler
func NewGameHandler(uowFactory UnitOfWorkFactory, clock interfaces.Clock) *GameHandler {
	return &GameHandler{
		uowFactory: uowFactory,
		clock:      clock,
	}
}

// CreateGame inserts a game together with its 100 empty boxes
func (h *GameHandler) CreateGame(ctx context.Context, params interfaces.CreateGameParams) (*entities.Game, error) {
	var game *entities.Game
	err := withUnitOfWork(ctx, h.uowFactory, "create_game", func(uow UnitOfWork) error {
		var err error
		game, err = gamesFor(uow, h.clock).CreateGame(ctx, params)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	return game, nil
}

// BuyBox sells one box. The entry fee debit and the ownership change commit
// together or not at all.
func (h *GameHandler) BuyBox(ctx context.Context, gameID int64, row, col int, accountID uuid.UUID) (*entities.Box, error) {
	var box *entities.Box
	err := withUnitOfWork(ctx, h.uowFactory, "buy_box", func(uow UnitOfWork) error {
		var err error
		box, err = gamesFor(uow, h.clock).PurchaseBox(ctx, gameID, row, col, accountID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to buy box: %w", err)
	}
	return box, nil
}

// DeactivateGame marks a game inactive
func (h *GameHandler) DeactivateGame(ctx context.Context, gameID int64) error {
	return withUnitOfWork(ctx, h.uowFactory, "deactivate_game", func(uow UnitOfWork) error {
		return gamesFor(uow, h.clock).DeactivateGame(ctx, gameID)
	})
}

// GetPrizePool reports revenue, pool and platform fee for a game
func (h *GameHandler) GetPrizePool(ctx context.Context, gameID int64) (*entities.PrizePool, error) {
	var pool *entities.PrizePool
	err := withUnitOfWork(ctx, h.uowFactory, "get_prize_pool", func(uow UnitOfWork) error {
		var err error
		pool, err = payoutsFor(uow, h.clock).GetPrizePool(ctx, gameID)
		return err
	})
	return pool, err
}
