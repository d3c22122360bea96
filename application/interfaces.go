package application

import (
	"context"

	"squares/application/dto"
	"squares/domain/entities"
)

// ScoreFeedHandler defines the interface for handling score feed updates.
// It is implemented by the application layer and called by the infrastructure layer.
type ScoreFeedHandler interface {
	// HandleScoreUpdate records the score and settles every unsettled period of the game
	HandleScoreUpdate(ctx context.Context, update dto.ScoreUpdateDTO) ([]entities.PeriodResult, error)
}

// MetricsRecorder receives outcome counts that have no domain event of their own
type MetricsRecorder interface {
	RecordAssignment(outcome string)
	RecordSettlementError(errorType string)
}

// Assignment outcomes reported to MetricsRecorder
const (
	AssignmentOutcomeAssigned = "assigned"
	AssignmentOutcomeTooEarly = "too_early"
	AssignmentOutcomeLost     = "already_assigned"
	AssignmentOutcomeFailed   = "failed"
)

type noopMetrics struct{}

func (noopMetrics) RecordAssignment(string)      {}
func (noopMetrics) RecordSettlementError(string) {}
