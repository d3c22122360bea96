package application

import (
	"context"
	"errors"
	"fmt"

	"squares/application/dto"
	"squares/domain/entities"
	"squares/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// SettlementHandler turns score updates into per-period settlements
type SettlementHandler struct {
	uowFactory UnitOfWorkFactory
	clock      interfaces.Clock
	metrics    MetricsRecorder
}

// NewSettlementHandler creates a new settlement handler. metrics may be nil.
func NewSettlementHandler(uowFactory UnitOfWorkFactory, clock interfaces.Clock, metrics MetricsRecorder) *SettlementHandler {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &SettlementHandler{
		uowFactory: uowFactory,
		clock:      clock,
		metrics:    metrics,
	}
}

// HandleScoreUpdate records the period score in its own transaction, then
// settles whatever is still unsettled for the game. A redelivered update is
// harmless: the score append is a no-op and settled periods are skipped.
func (h *SettlementHandler) HandleScoreUpdate(ctx context.Context, update dto.ScoreUpdateDTO) ([]entities.PeriodResult, error) {
	log.WithFields(log.Fields{
		"gameID":    update.GameID,
		"period":    entities.PeriodLabel(update.Period),
		"homeScore": update.HomeScore,
		"awayScore": update.AwayScore,
	}).Info("Handling score update")

	err := withUnitOfWork(ctx, h.uowFactory, "record_period_score", func(uow UnitOfWork) error {
		_, err := gamesFor(uow, h.clock).RecordPeriodScore(ctx, update.GameID, update.Period, update.HomeScore, update.AwayScore)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record score for game %d: %w", update.GameID, err)
	}

	return h.SettleGame(ctx, update.GameID)
}

// SettleGame settles each scored but unsettled period in its own transaction.
// Per-period failures are reported in the results and never stop the batch.
func (h *SettlementHandler) SettleGame(ctx context.Context, gameID int64) ([]entities.PeriodResult, error) {
	var periods []int
	err := withUnitOfWork(ctx, h.uowFactory, "list_unsettled_periods", func(uow UnitOfWork) error {
		var err error
		periods, err = payoutsFor(uow, h.clock).UnsettledPeriods(ctx, gameID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list unsettled periods for game %d: %w", gameID, err)
	}

	results := make([]entities.PeriodResult, 0, len(periods))
	for _, period := range periods {
		var settlement *entities.PeriodSettlement
		err := withUnitOfWork(ctx, h.uowFactory, "settle_period", func(uow UnitOfWork) error {
			var err error
			settlement, err = payoutsFor(uow, h.clock).SettlePeriod(ctx, gameID, period)
			return err
		})

		if err != nil {
			fields := log.Fields{
				"gameID": gameID,
				"period": entities.PeriodLabel(period),
				"error":  err,
			}
			if errors.Is(err, entities.ErrAlreadySettled) {
				log.WithFields(fields).Info("Period settled by another consumer")
			} else {
				h.metrics.RecordSettlementError(settlementErrorType(err))
				log.WithFields(fields).Error("Failed to settle period")
			}
			results = append(results, entities.PeriodResult{PeriodIndex: period, Err: err})
			continue
		}

		results = append(results, entities.PeriodResult{PeriodIndex: period, Settlement: settlement})
	}

	return results, nil
}

// settlementErrorType names an error kind for the metrics label
func settlementErrorType(err error) string {
	kinds := []struct {
		err  error
		name string
	}{
		{entities.ErrNumbersNotAssigned, "numbers_not_assigned"},
		{entities.ErrInvalidGridState, "invalid_grid_state"},
		{entities.ErrPeriodOutOfRange, "period_out_of_range"},
		{entities.ErrAccountNotFound, "account_not_found"},
		{entities.ErrStoreUnavailable, "store_unavailable"},
	}
	for _, kind := range kinds {
		if errors.Is(err, kind.err) {
			return kind.name
		}
	}
	return "other"
}
