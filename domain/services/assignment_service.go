package services

import (
	"context"
	"fmt"
	"time"

	"squares/config"
	"squares/domain/entities"
	"squares/domain/events"
	"squares/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

type assignmentService struct {
	gameRepo       interfaces.GameRepository
	allocator      *Allocator
	clock          interfaces.Clock
	eventPublisher interfaces.EventPublisher
	leadTime       time.Duration
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(
	gameRepo interfaces.GameRepository,
	allocator *Allocator,
	clock interfaces.Clock,
	eventPublisher interfaces.EventPublisher,
) interfaces.AssignmentService {
	return &assignmentService{
		gameRepo:       gameRepo,
		allocator:      allocator,
		clock:          clock,
		eventPublisher: eventPublisher,
		leadTime:       config.Get().AssignmentLeadTime,
	}
}

// TryAssign draws both axes and stores them with a compare-and-set on numbers_assigned
func (s *assignmentService) TryAssign(ctx context.Context, game *entities.Game) (*interfaces.AssignmentResult, error) {
	if game == nil {
		return nil, entities.ErrGameNotFound
	}
	if !game.Active {
		return nil, fmt.Errorf("%w: game %d", entities.ErrGameInactive, game.ID)
	}
	if game.NumbersAssigned {
		return nil, fmt.Errorf("%w: game %d", entities.ErrAlreadyAssigned, game.ID)
	}

	now := s.clock.Now()
	opensAt := game.AssignmentOpensAt(s.leadTime)
	if now.Before(opensAt) {
		return nil, &entities.TooEarlyError{
			GameID:    game.ID,
			OpensAt:   opensAt,
			Remaining: opensAt.Sub(now),
		}
	}

	homeNumbers, err := s.allocator.Allocate()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate home numbers: %w", err)
	}
	awayNumbers, err := s.allocator.Allocate()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate away numbers: %w", err)
	}

	assigned, err := s.gameRepo.AssignNumbers(ctx, game.ID, homeNumbers, awayNumbers)
	if err != nil {
		return nil, fmt.Errorf("failed to assign numbers for game %d: %w", game.ID, err)
	}
	if !assigned {
		return nil, fmt.Errorf("%w: game %d", entities.ErrAlreadyAssigned, game.ID)
	}

	game.HomeNumbers = homeNumbers
	game.AwayNumbers = awayNumbers
	game.NumbersAssigned = true

	if err := s.eventPublisher.Publish(events.NumbersAssignedEvent{
		GameID:      game.ID,
		HomeNumbers: homeNumbers,
		AwayNumbers: awayNumbers,
		AssignedAt:  now,
	}); err != nil {
		log.WithError(err).WithField("gameID", game.ID).Error("Failed to publish numbers assigned event")
	}

	log.WithFields(log.Fields{
		"gameID":      game.ID,
		"matchup":     game.Matchup(),
		"homeNumbers": homeNumbers,
		"awayNumbers": awayNumbers,
	}).Info("Grid numbers assigned")

	return &interfaces.AssignmentResult{
		GameID:      game.ID,
		HomeNumbers: homeNumbers,
		AwayNumbers: awayNumbers,
		AssignedAt:  now,
	}, nil
}

// GamesNeedingCheck lists games whose start is within the lead time of now
func (s *assignmentService) GamesNeedingCheck(ctx context.Context) ([]*entities.Game, error) {
	cutoff := s.clock.Now().Add(s.leadTime)
	games, err := s.gameRepo.ListNeedingAssignment(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list games needing assignment: %w", err)
	}
	return games, nil
}
