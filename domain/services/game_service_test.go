package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"squares/domain/entities"
	"squares/domain/events"
	"squares/domain/interfaces"
	"squares/domain/testhelpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type gameFixture struct {
	gameRepo  *testhelpers.MockGameRepository
	boxRepo   *testhelpers.MockBoxRepository
	store     *testhelpers.MemoryLedgerStore
	publisher *testhelpers.MockEventPublisher
	clock     *testhelpers.FixedClock
	service   interfaces.GameService
}

func newGameFixture() *gameFixture {
	f := &gameFixture{
		gameRepo:  new(testhelpers.MockGameRepository),
		boxRepo:   new(testhelpers.MockBoxRepository),
		store:     testhelpers.NewMemoryLedgerStore(),
		publisher: new(testhelpers.MockEventPublisher),
		clock:     testhelpers.NewFixedClock(kickoff.Add(-24 * time.Hour)),
	}
	f.publisher.On("Publish", mock.Anything).Return(nil)
	ledger := NewLedgerService(f.store.Accounts(), f.store.Transactions(), f.clock, f.publisher)
	f.service = NewGameService(f.gameRepo, f.boxRepo, ledger, f.clock, f.publisher)
	return f
}

func TestGameService_CreateGame(t *testing.T) {
	t.Parallel()

	f := newGameFixture()
	f.gameRepo.On("Create", mock.Anything, mock.AnythingOfType("*entities.Game")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*entities.Game).ID = 31
		}).Return(nil)
	f.boxRepo.On("CreateGrid", mock.Anything, int64(31)).Return(nil)

	game, err := f.service.CreateGame(context.Background(), interfaces.CreateGameParams{
		HomeTeam:    "Chiefs",
		AwayTeam:    "Raiders",
		Sport:       "nfl",
		StartTime:   kickoff,
		EntryFee:    20,
		PayoutQ1:    50,
		PayoutQ2:    50,
		PayoutQ3:    50,
		PayoutFinal: 200,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(31), game.ID)
	assert.True(t, game.Active)
	assert.False(t, game.NumbersAssigned)
	assert.Nil(t, game.HomeNumbers)
	assert.Equal(t, 0, game.CompletedPeriods())
	assert.Equal(t, int64(350), game.TotalConfiguredPayout())
	f.boxRepo.AssertExpectations(t)
}

func TestGameService_CreateGameValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		params interfaces.CreateGameParams
		kind   error
	}{
		{name: "missing team", params: interfaces.CreateGameParams{HomeTeam: "Chiefs", StartTime: kickoff}},
		{name: "missing start", params: interfaces.CreateGameParams{HomeTeam: "Chiefs", AwayTeam: "Raiders"}},
		{name: "negative fee", params: interfaces.CreateGameParams{HomeTeam: "Chiefs", AwayTeam: "Raiders", StartTime: kickoff, EntryFee: -1}, kind: entities.ErrInvalidAmount},
		{name: "negative payout", params: interfaces.CreateGameParams{HomeTeam: "Chiefs", AwayTeam: "Raiders", StartTime: kickoff, PayoutFinal: -5}, kind: entities.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newGameFixture()

			_, err := f.service.CreateGame(context.Background(), tt.params)
			require.Error(t, err)
			if tt.kind != nil {
				assert.ErrorIs(t, err, tt.kind)
			}
			f.gameRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestGameService_RecordPeriodScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		scores     [2][]int
		period     int
		home       int
		away       int
		appendOK   bool
		expectCall bool
		kind       error
	}{
		{name: "first period", scores: [2][]int{{}, {}}, period: 0, home: 7, away: 3, appendOK: true, expectCall: true},
		{name: "next period", scores: [2][]int{{7}, {3}}, period: 1, home: 14, away: 10, appendOK: true, expectCall: true},
		{name: "same score again is a no-op", scores: [2][]int{{7}, {3}}, period: 0, home: 7, away: 3},
		{name: "different score for recorded period", scores: [2][]int{{7}, {3}}, period: 0, home: 7, away: 6, kind: entities.ErrScoreConflict},
		{name: "skipping a period", scores: [2][]int{{7}, {3}}, period: 2, home: 7, away: 3, kind: entities.ErrPeriodOutOfRange},
		{name: "negative score", scores: [2][]int{{}, {}}, period: 0, home: -1, away: 3, kind: entities.ErrInvalidScore},
		{name: "lost race", scores: [2][]int{{}, {}}, period: 0, home: 7, away: 3, expectCall: true, kind: entities.ErrScoreConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newGameFixture()
			game := createTestGame(8, withScores(tt.scores[0], tt.scores[1]))
			f.gameRepo.On("GetByIDForUpdate", mock.Anything, int64(8)).Return(game, nil)
			f.gameRepo.On("AppendPeriodScore", mock.Anything, int64(8), tt.period, tt.home, tt.away).Return(tt.appendOK, nil)

			updated, err := f.service.RecordPeriodScore(context.Background(), 8, tt.period, tt.home, tt.away)
			if tt.kind != nil {
				assert.ErrorIs(t, err, tt.kind)
			} else {
				require.NoError(t, err)
				home, away, ok := updated.ScoreForPeriod(tt.period)
				require.True(t, ok)
				assert.Equal(t, tt.home, home)
				assert.Equal(t, tt.away, away)
			}

			if tt.expectCall {
				f.gameRepo.AssertCalled(t, "AppendPeriodScore", mock.Anything, int64(8), tt.period, tt.home, tt.away)
			} else {
				f.gameRepo.AssertNotCalled(t, "AppendPeriodScore", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestGameService_PurchaseBox(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newGameFixture()
	buyer := uuid.New()
	require.NoError(t, f.store.Accounts().Create(ctx, &entities.Account{ID: buyer, HotcoinBalance: 25}))

	game := createTestGame(4)
	f.gameRepo.On("GetByIDForUpdate", mock.Anything, int64(4)).Return(game, nil)
	f.boxRepo.On("GetByPosition", mock.Anything, int64(4), 2, 3).Return(&entities.Box{ID: 23, GameID: 4, Row: 2, Col: 3}, nil)
	f.boxRepo.On("AssignOwner", mock.Anything, int64(4), 2, 3, buyer, f.clock.Now()).Return(true, nil)

	box, err := f.service.PurchaseBox(ctx, 4, 2, 3, buyer)
	require.NoError(t, err)
	require.NotNil(t, box.OwnerID)
	assert.Equal(t, buyer, *box.OwnerID)

	entries := f.store.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, entities.TransactionTypeBet, entries[0].Type)
	assert.Equal(t, int64(-10), entries[0].Amount)
	require.NotNil(t, entries[0].GameID)
	assert.Equal(t, int64(4), *entries[0].GameID)

	f.publisher.AssertCalled(t, "Publish", mock.MatchedBy(func(e events.BoxPurchasedEvent) bool {
		return e.GameID == 4 && e.Row == 2 && e.Col == 3 && e.OwnerID == buyer
	}))
}

func TestGameService_PurchaseBoxRejections(t *testing.T) {
	t.Parallel()

	owner := uuid.New()

	tests := []struct {
		name    string
		game    *entities.Game
		box     *entities.Box
		balance int64
		row     int
		col     int
		lostCAS bool
		kind    error
	}{
		{name: "off the grid", game: createTestGame(4), row: 10, col: 0, balance: 100, kind: entities.ErrBoxNotFound},
		{name: "grid locked after assignment", game: createTestGame(4, withNumbers(scenarioHome, scenarioAway)), balance: 100, kind: entities.ErrGridLocked},
		{name: "inactive game", game: createTestGame(4, func(g *entities.Game) { g.Active = false }), balance: 100, kind: entities.ErrGridLocked},
		{name: "already owned", game: createTestGame(4), box: &entities.Box{GameID: 4, OwnerID: &owner}, balance: 100, kind: entities.ErrBoxTaken},
		{name: "cannot afford", game: createTestGame(4), box: &entities.Box{GameID: 4}, balance: 9, kind: entities.ErrInsufficientBalance},
		{name: "lost race for the box", game: createTestGame(4), box: &entities.Box{GameID: 4}, balance: 100, lostCAS: true, kind: entities.ErrBoxTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			f := newGameFixture()
			buyer := uuid.New()
			require.NoError(t, f.store.Accounts().Create(ctx, &entities.Account{ID: buyer, HotcoinBalance: tt.balance}))

			f.gameRepo.On("GetByIDForUpdate", mock.Anything, int64(4)).Return(tt.game, nil)
			f.boxRepo.On("GetByPosition", mock.Anything, int64(4), tt.row, tt.col).Return(tt.box, nil)
			f.boxRepo.On("AssignOwner", mock.Anything, int64(4), tt.row, tt.col, buyer, mock.Anything).Return(!tt.lostCAS, nil)

			_, err := f.service.PurchaseBox(ctx, 4, tt.row, tt.col, buyer)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
		})
	}
}
