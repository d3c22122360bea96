package services

import (
	"context"
	"fmt"
	"strings"

	"squares/domain/entities"
	"squares/domain/events"
	"squares/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type gameService struct {
	gameRepo       interfaces.GameRepository
	boxRepo        interfaces.BoxRepository
	ledger         interfaces.LedgerService
	clock          interfaces.Clock
	eventPublisher interfaces.EventPublisher
}

// NewGameService creates a new game service
func NewGameService(
	gameRepo interfaces.GameRepository,
	boxRepo interfaces.BoxRepository,
	ledger interfaces.LedgerService,
	clock interfaces.Clock,
	eventPublisher interfaces.EventPublisher,
) interfaces.GameService {
	return &gameService{
		gameRepo:       gameRepo,
		boxRepo:        boxRepo,
		ledger:         ledger,
		clock:          clock,
		eventPublisher: eventPublisher,
	}
}

// CreateGame inserts an active game with unassigned numbers and all of its boxes
func (s *gameService) CreateGame(ctx context.Context, params interfaces.CreateGameParams) (*entities.Game, error) {
	if strings.TrimSpace(params.HomeTeam) == "" || strings.TrimSpace(params.AwayTeam) == "" {
		return nil, fmt.Errorf("home and away teams are required")
	}
	if params.StartTime.IsZero() {
		return nil, fmt.Errorf("start time is required")
	}
	for name, amount := range map[string]int64{
		"entry fee":    params.EntryFee,
		"Q1 payout":    params.PayoutQ1,
		"Q2 payout":    params.PayoutQ2,
		"Q3 payout":    params.PayoutQ3,
		"final payout": params.PayoutFinal,
	} {
		if amount < 0 {
			return nil, fmt.Errorf("%w: %s is %d", entities.ErrInvalidAmount, name, amount)
		}
	}

	game := &entities.Game{
		HomeTeam:    params.HomeTeam,
		AwayTeam:    params.AwayTeam,
		Sport:       params.Sport,
		StartTime:   params.StartTime,
		EntryFee:    params.EntryFee,
		Active:      true,
		HomeScores:  []int{},
		AwayScores:  []int{},
		PayoutQ1:    params.PayoutQ1,
		PayoutQ2:    params.PayoutQ2,
		PayoutQ3:    params.PayoutQ3,
		PayoutFinal: params.PayoutFinal,
	}
	if err := s.gameRepo.Create(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	if err := s.boxRepo.CreateGrid(ctx, game.ID); err != nil {
		return nil, fmt.Errorf("failed to create grid for game %d: %w", game.ID, err)
	}

	log.WithFields(log.Fields{
		"gameID":    game.ID,
		"matchup":   game.Matchup(),
		"startTime": game.StartTime,
		"entryFee":  game.EntryFee,
	}).Info("Game created")

	return game, nil
}

// GetGame returns a game or ErrGameNotFound
func (s *gameService) GetGame(ctx context.Context, gameID int64) (*entities.Game, error) {
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, fmt.Errorf("%w: %d", entities.ErrGameNotFound, gameID)
	}
	return game, nil
}

// RecordPeriodScore appends the next period's score
func (s *gameService) RecordPeriodScore(ctx context.Context, gameID int64, period, homeScore, awayScore int) (*entities.Game, error) {
	if homeScore < 0 || awayScore < 0 {
		return nil, fmt.Errorf("%w: %d-%d", entities.ErrInvalidScore, homeScore, awayScore)
	}

	game, err := s.gameRepo.GetByIDForUpdate(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, fmt.Errorf("%w: %d", entities.ErrGameNotFound, gameID)
	}

	completed := game.CompletedPeriods()
	if period < 0 || period > completed {
		return nil, fmt.Errorf("%w: game %d expects period index %d next, got %d",
			entities.ErrPeriodOutOfRange, gameID, completed, period)
	}
	if period < completed {
		home, away, _ := game.ScoreForPeriod(period)
		if home == homeScore && away == awayScore {
			return game, nil
		}
		return nil, fmt.Errorf("%w: game %d %s is %d-%d, got %d-%d",
			entities.ErrScoreConflict, gameID, entities.PeriodLabel(period), home, away, homeScore, awayScore)
	}

	appended, err := s.gameRepo.AppendPeriodScore(ctx, gameID, period, homeScore, awayScore)
	if err != nil {
		return nil, fmt.Errorf("failed to record score: %w", err)
	}
	if !appended {
		return nil, fmt.Errorf("%w: game %d %s was recorded concurrently", entities.ErrScoreConflict, gameID, entities.PeriodLabel(period))
	}

	game.HomeScores = append(game.HomeScores, homeScore)
	game.AwayScores = append(game.AwayScores, awayScore)

	log.WithFields(log.Fields{
		"gameID":    gameID,
		"period":    entities.PeriodLabel(period),
		"homeScore": homeScore,
		"awayScore": awayScore,
	}).Info("Period score recorded")

	return game, nil
}

// DeactivateGame marks a game inactive
func (s *gameService) DeactivateGame(ctx context.Context, gameID int64) error {
	if err := s.gameRepo.Deactivate(ctx, gameID); err != nil {
		return fmt.Errorf("failed to deactivate game %d: %w", gameID, err)
	}
	return nil
}

// PurchaseBox debits the entry fee and takes ownership of an unowned box.
// The game row lock orders purchases against number assignment.
func (s *gameService) PurchaseBox(ctx context.Context, gameID int64, row, col int, accountID uuid.UUID) (*entities.Box, error) {
	position := entities.GridPosition{Row: row, Col: col}
	if !position.IsValid() {
		return nil, fmt.Errorf("%w: %s is off the grid", entities.ErrBoxNotFound, position)
	}

	game, err := s.gameRepo.GetByIDForUpdate(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, fmt.Errorf("%w: %d", entities.ErrGameNotFound, gameID)
	}
	if game.IsGridLocked() {
		return nil, fmt.Errorf("%w: game %d", entities.ErrGridLocked, gameID)
	}

	box, err := s.boxRepo.GetByPosition(ctx, gameID, row, col)
	if err != nil {
		return nil, fmt.Errorf("failed to get box: %w", err)
	}
	if box == nil {
		return nil, fmt.Errorf("%w: game %d %s", entities.ErrBoxNotFound, gameID, position)
	}
	if box.IsOwned() {
		return nil, fmt.Errorf("%w: game %d %s", entities.ErrBoxTaken, gameID, position)
	}

	if game.EntryFee > 0 {
		description := fmt.Sprintf("Box %s for %s (game %d)", position, game.Matchup(), game.ID)
		if _, err := s.ledger.PlaceBet(ctx, accountID, game.EntryFee, description, &game.ID); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	assigned, err := s.boxRepo.AssignOwner(ctx, gameID, row, col, accountID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to assign box owner: %w", err)
	}
	if !assigned {
		return nil, fmt.Errorf("%w: game %d %s", entities.ErrBoxTaken, gameID, position)
	}

	box.OwnerID = &accountID
	box.PurchasedAt = &now

	if err := s.eventPublisher.Publish(events.BoxPurchasedEvent{
		GameID:  gameID,
		Row:     row,
		Col:     col,
		OwnerID: accountID,
		Price:   game.EntryFee,
	}); err != nil {
		log.WithError(err).WithField("gameID", gameID).Error("Failed to publish box purchased event")
	}

	return box, nil
}
