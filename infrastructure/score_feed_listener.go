package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"squares/application"
	"squares/application/dto"
	"squares/domain/entities"
	"squares/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// ScoreUpdateMessage is the JSON payload of a scores.updated.<game> message
type ScoreUpdateMessage struct {
	GameID    int64 `json:"game_id"`
	Period    int   `json:"period"`
	HomeScore int   `json:"home_score"`
	AwayScore int   `json:"away_score"`
}

// ScoreFeedListener converts score feed messages to application DTOs
type ScoreFeedListener struct {
	handler application.ScoreFeedHandler
	metrics *observability.MetricsProvider
}

// NewScoreFeedListener creates a new score feed listener. metrics may be nil.
func NewScoreFeedListener(handler application.ScoreFeedHandler, metrics *observability.MetricsProvider) *ScoreFeedListener {
	return &ScoreFeedListener{
		handler: handler,
		metrics: metrics,
	}
}

// HandleScoreUpdate processes one message. Only ErrStoreUnavailable is
// returned, so the message is redelivered; rule failures would fail the same
// way again and are acked after logging.
func (l *ScoreFeedListener) HandleScoreUpdate(ctx context.Context, data []byte) error {
	l.metrics.RecordNATSMessageReceived(ScoreUpdatedSubject)

	update, receivedAt, err := decodeScoreUpdate(data)
	if err != nil {
		log.WithError(err).Warn("Dropping malformed score update")
		return nil
	}

	results, err := l.handler.HandleScoreUpdate(ctx, dto.ScoreUpdateDTO{
		GameID:     update.GameID,
		Period:     update.Period,
		HomeScore:  update.HomeScore,
		AwayScore:  update.AwayScore,
		ReceivedAt: receivedAt,
	})
	if err != nil {
		if errors.Is(err, entities.ErrStoreUnavailable) {
			return err
		}
		log.WithFields(log.Fields{
			"gameID": update.GameID,
			"period": update.Period,
			"error":  err,
		}).Warn("Score update rejected")
		return nil
	}

	for _, result := range results {
		if result.Err != nil && errors.Is(result.Err, entities.ErrStoreUnavailable) {
			return fmt.Errorf("settlement of game %d %s incomplete: %w",
				update.GameID, entities.PeriodLabel(result.PeriodIndex), result.Err)
		}
	}

	log.WithFields(log.Fields{
		"gameID":  update.GameID,
		"settled": len(results),
	}).Debug("Score update processed")
	return nil
}

// decodeScoreUpdate accepts an EventEnvelope or a bare payload
func decodeScoreUpdate(data []byte) (*ScoreUpdateMessage, time.Time, error) {
	var envelope EventEnvelope
	payload := data
	receivedAt := time.Now().UTC()

	if err := json.Unmarshal(data, &envelope); err == nil && len(envelope.Payload) > 0 {
		payload = envelope.Payload
		if envelope.Timestamp != nil {
			receivedAt = envelope.Timestamp.AsTime()
		}
	}

	var update ScoreUpdateMessage
	if err := json.Unmarshal(payload, &update); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to unmarshal score update: %w", err)
	}
	if update.GameID <= 0 {
		return nil, time.Time{}, fmt.Errorf("score update has no game id")
	}
	return &update, receivedAt, nil
}
