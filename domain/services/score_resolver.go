package services

import (
	"fmt"

	"squares/domain/entities"
	"squares/domain/interfaces"
)

type scoreResolver struct{}

// NewScoreResolver creates the stateless score resolver
func NewScoreResolver() interfaces.ScoreResolver {
	return scoreResolver{}
}

// ResolveWinner looks each score digit up in the inverse index of its axis.
// A broken permutation fails with ErrInvalidGridState instead of yielding no winner.
func (scoreResolver) ResolveWinner(period, homeScore, awayScore int, homeNumbers, awayNumbers []int) (entities.GridPosition, error) {
	if homeNumbers == nil || awayNumbers == nil {
		return entities.GridPosition{}, entities.ErrNumbersNotAssigned
	}
	if homeScore < 0 || awayScore < 0 {
		return entities.GridPosition{}, fmt.Errorf("%w: %s score %d-%d", entities.ErrInvalidScore, entities.PeriodLabel(period), homeScore, awayScore)
	}
	if err := entities.ValidatePermutation(homeNumbers); err != nil {
		return entities.GridPosition{}, fmt.Errorf("home axis: %w", err)
	}
	if err := entities.ValidatePermutation(awayNumbers); err != nil {
		return entities.GridPosition{}, fmt.Errorf("away axis: %w", err)
	}

	homeDigit := homeScore % entities.GridSize
	awayDigit := awayScore % entities.GridSize

	return entities.GridPosition{
		Row: entities.InverseIndex(awayNumbers)[awayDigit],
		Col: entities.InverseIndex(homeNumbers)[homeDigit],
	}, nil
}
