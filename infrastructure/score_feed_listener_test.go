package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"squares/application/dto"
	"squares/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"
)

type fakeScoreHandler struct {
	updates []dto.ScoreUpdateDTO
	results []entities.PeriodResult
	err     error
}

func (h *fakeScoreHandler) HandleScoreUpdate(ctx context.Context, update dto.ScoreUpdateDTO) ([]entities.PeriodResult, error) {
	h.updates = append(h.updates, update)
	return h.results, h.err
}

func scoreEnvelope(t *testing.T, update ScoreUpdateMessage, at time.Time) []byte {
	t.Helper()
	payload, err := json.Marshal(update)
	require.NoError(t, err)
	data, err := json.Marshal(EventEnvelope{
		EventID:       "evt-1",
		EventType:     "score_updated",
		Timestamp:     timestamppb.New(at),
		SourceService: "score-feed",
		Payload:       payload,
	})
	require.NoError(t, err)
	return data
}

func TestScoreFeedListener_Envelope(t *testing.T) {
	handler := &fakeScoreHandler{}
	listener := NewScoreFeedListener(handler, nil)
	at := time.Date(2026, 9, 13, 20, 15, 0, 0, time.UTC)

	data := scoreEnvelope(t, ScoreUpdateMessage{GameID: 42, Period: 0, HomeScore: 13, AwayScore: 21}, at)
	require.NoError(t, listener.HandleScoreUpdate(context.Background(), data))

	require.Len(t, handler.updates, 1)
	assert.Equal(t, dto.ScoreUpdateDTO{GameID: 42, Period: 0, HomeScore: 13, AwayScore: 21, ReceivedAt: at}, handler.updates[0])
}

func TestScoreFeedListener_BarePayload(t *testing.T) {
	handler := &fakeScoreHandler{}
	listener := NewScoreFeedListener(handler, nil)

	data := []byte(`{"game_id": 7, "period": 2, "home_score": 24, "away_score": 17}`)
	require.NoError(t, listener.HandleScoreUpdate(context.Background(), data))

	require.Len(t, handler.updates, 1)
	assert.Equal(t, int64(7), handler.updates[0].GameID)
	assert.Equal(t, 2, handler.updates[0].Period)
	assert.Equal(t, 17, handler.updates[0].AwayScore)
}

func TestScoreFeedListener_AckOrRedeliver(t *testing.T) {
	unavailable := fmt.Errorf("begin: %w", entities.ErrStoreUnavailable)

	tests := []struct {
		name        string
		data        []byte
		results     []entities.PeriodResult
		handlerErr  error
		wantErr     bool
		wantHandled bool
	}{
		{name: "malformed json is dropped", data: []byte(`{not json`), wantHandled: false},
		{name: "missing game id is dropped", data: []byte(`{"period": 1}`), wantHandled: false},
		{name: "rule violation is acked", handlerErr: entities.ErrScoreConflict, wantHandled: true},
		{name: "store outage is redelivered", handlerErr: unavailable, wantErr: true, wantHandled: true},
		{
			name:        "already settled period is acked",
			results:     []entities.PeriodResult{{PeriodIndex: 0, Err: entities.ErrAlreadySettled}},
			wantHandled: true,
		},
		{
			name:        "period hit by store outage is redelivered",
			results:     []entities.PeriodResult{{PeriodIndex: 0, Settlement: &entities.PeriodSettlement{}}, {PeriodIndex: 1, Err: unavailable}},
			wantErr:     true,
			wantHandled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &fakeScoreHandler{results: tt.results, err: tt.handlerErr}
			listener := NewScoreFeedListener(handler, nil)

			data := tt.data
			if data == nil {
				data = []byte(`{"game_id": 3, "period": 0, "home_score": 7, "away_score": 3}`)
			}

			err := listener.HandleScoreUpdate(context.Background(), data)
			if tt.wantErr {
				assert.True(t, errors.Is(err, entities.ErrStoreUnavailable))
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantHandled, len(handler.updates) == 1)
		})
	}
}
