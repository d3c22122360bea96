package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"squares/config"
	"squares/domain/entities"
	"squares/domain/interfaces"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// sweepTimeout bounds one scheduled pass so a stuck store cannot pile up runs
const sweepTimeout = 45 * time.Second

// AssignmentSummary counts the outcomes of one sweep over due games
type AssignmentSummary struct {
	Checked         int
	Assigned        int
	AlreadyAssigned int
	TooEarly        int
	Failed          int
}

// AssignmentWorker is the periodic trigger for number assignment
type AssignmentWorker struct {
	uowFactory UnitOfWorkFactory
	clock      interfaces.Clock
	entropy    interfaces.EntropySource
	metrics    MetricsRecorder
	schedule   string
}

// NewAssignmentWorker creates a new assignment worker. metrics may be nil.
func NewAssignmentWorker(uowFactory UnitOfWorkFactory, clock interfaces.Clock, entropy interfaces.EntropySource, metrics MetricsRecorder) *AssignmentWorker {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &AssignmentWorker{
		uowFactory: uowFactory,
		clock:      clock,
		entropy:    entropy,
		metrics:    metrics,
		schedule:   config.Get().AssignmentSchedule,
	}
}

// Start schedules CheckDueGames on the configured cron spec (with seconds).
// Overlapping runs are skipped. The returned function stops the schedule and
// waits for a running sweep to finish.
func (w *AssignmentWorker) Start(ctx context.Context) (func(), error) {
	cronLogger := cron.PrintfLogger(log.StandardLogger())
	scheduler := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	_, err := scheduler.AddFunc(w.schedule, func() {
		if ctx.Err() != nil {
			return
		}
		sweepCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
		defer cancel()

		if _, err := w.CheckDueGames(sweepCtx); err != nil {
			log.WithError(err).Error("Assignment sweep failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid assignment schedule %q: %w", w.schedule, err)
	}

	scheduler.Start()
	log.WithField("schedule", w.schedule).Info("Assignment worker started")

	return func() {
		<-scheduler.Stop().Done()
		log.Info("Assignment worker stopped")
	}, nil
}

// CheckDueGames tries to assign numbers for every active unassigned game whose
// window has opened. Each game gets its own unit of work, so one failure does
// not block the rest. Losing a race or being early are not failures.
func (w *AssignmentWorker) CheckDueGames(ctx context.Context) (*AssignmentSummary, error) {
	var due []*entities.Game
	err := withUnitOfWork(ctx, w.uowFactory, "list_due_games", func(uow UnitOfWork) error {
		var err error
		due, err = assignmentFor(uow, w.clock, w.entropy).GamesNeedingCheck(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list games needing assignment: %w", err)
	}

	summary := &AssignmentSummary{Checked: len(due)}
	if len(due) == 0 {
		log.Debug("No games due for number assignment")
		return summary, nil
	}

	for _, game := range due {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		err := w.assignGame(ctx, game.ID)

		var tooEarly *entities.TooEarlyError
		switch {
		case err == nil:
			summary.Assigned++
			w.metrics.RecordAssignment(AssignmentOutcomeAssigned)
		case errors.Is(err, entities.ErrAlreadyAssigned):
			summary.AlreadyAssigned++
			w.metrics.RecordAssignment(AssignmentOutcomeLost)
			log.WithField("gameID", game.ID).Debug("Numbers already assigned by another caller")
		case errors.As(err, &tooEarly):
			summary.TooEarly++
			w.metrics.RecordAssignment(AssignmentOutcomeTooEarly)
			log.WithFields(log.Fields{
				"gameID":    game.ID,
				"remaining": tooEarly.Remaining,
			}).Debug("Assignment window not open yet")
		default:
			summary.Failed++
			w.metrics.RecordAssignment(AssignmentOutcomeFailed)
			log.WithFields(log.Fields{
				"gameID": game.ID,
				"error":  err,
			}).Error("Failed to assign numbers")
		}
	}

	log.WithFields(log.Fields{
		"checked":         summary.Checked,
		"assigned":        summary.Assigned,
		"alreadyAssigned": summary.AlreadyAssigned,
		"tooEarly":        summary.TooEarly,
		"failed":          summary.Failed,
	}).Info("Assignment sweep complete")

	return summary, nil
}

// assignGame reloads the game inside its own transaction and attempts the draw
func (w *AssignmentWorker) assignGame(ctx context.Context, gameID int64) error {
	return withUnitOfWork(ctx, w.uowFactory, "assign_numbers", func(uow UnitOfWork) error {
		game, err := uow.GameRepository().GetByID(ctx, gameID)
		if err != nil {
			return fmt.Errorf("failed to get game: %w", err)
		}
		if game == nil {
			return fmt.Errorf("%w: %d", entities.ErrGameNotFound, gameID)
		}

		result, err := assignmentFor(uow, w.clock, w.entropy).TryAssign(ctx, game)
		if err != nil {
			return err
		}

		log.WithFields(log.Fields{
			"gameID":      result.GameID,
			"homeNumbers": result.HomeNumbers,
			"awayNumbers": result.AwayNumbers,
		}).Info("Numbers assigned")
		return nil
	})
}
