package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"squares/domain/entities"
	"squares/domain/events"
	"squares/domain/interfaces"
	"squares/domain/testhelpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeWorld is the shared store behind every fake unit of work. Memory
// repositories apply writes immediately, so a rollback only drops events.
type fakeWorld struct {
	games       *testhelpers.MemoryGameRepository
	boxes       *testhelpers.MemoryBoxRepository
	ledger      *testhelpers.MemoryLedgerStore
	settlements *testhelpers.MemorySettlementRepository

	mu            sync.Mutex
	begins        int
	commits       int
	rollbacks     int
	beginFailures int
	commitErrs    []error
	published     []events.Event
	discarded     int
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		games:       testhelpers.NewMemoryGameRepository(),
		boxes:       testhelpers.NewMemoryBoxRepository(),
		ledger:      testhelpers.NewMemoryLedgerStore(),
		settlements: testhelpers.NewMemorySettlementRepository(),
	}
}

func (w *fakeWorld) Create() UnitOfWork {
	return &fakeUnitOfWork{world: w}
}

// failNextBegins makes the next n Begin calls report a store outage
func (w *fakeWorld) failNextBegins(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.beginFailures = n
}

// failNextCommits makes the next Commit calls return errs in order. Memory
// writes are already applied, like a commit whose reply never arrived.
func (w *fakeWorld) failNextCommits(errs ...error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.commitErrs = append(w.commitErrs, errs...)
}

func (w *fakeWorld) counts() (begins, commits, rollbacks int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.begins, w.commits, w.rollbacks
}

func (w *fakeWorld) publishedOfType(eventType events.EventType) []events.Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []events.Event
	for _, event := range w.published {
		if event.Type() == eventType {
			out = append(out, event)
		}
	}
	return out
}

func (w *fakeWorld) account(t *testing.T, balance int64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, w.ledger.Accounts().Create(context.Background(), &entities.Account{
		ID:             id,
		Username:       "player-" + id.String()[:8],
		HotcoinBalance: balance,
	}))
	return id
}

func (w *fakeWorld) balance(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	account, err := w.ledger.Accounts().GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, account)
	return account.HotcoinBalance
}

type gameOption func(*entities.Game)

func withScenarioNumbers() gameOption {
	return func(g *entities.Game) {
		g.NumbersAssigned = true
		g.HomeNumbers = []int{4, 7, 2, 9, 0, 5, 1, 8, 3, 6}
		g.AwayNumbers = []int{9, 0, 4, 2, 7, 1, 8, 3, 6, 5}
	}
}

func withScores(home, away []int) gameOption {
	return func(g *entities.Game) {
		g.HomeScores = home
		g.AwayScores = away
	}
}

// seedGame stores a Bears @ Packers game with its grid
func (w *fakeWorld) seedGame(t *testing.T, start time.Time, opts ...gameOption) *entities.Game {
	t.Helper()
	game := &entities.Game{
		HomeTeam:    "Packers",
		AwayTeam:    "Bears",
		Sport:       "football",
		StartTime:   start,
		EntryFee:    10,
		Active:      true,
		HomeScores:  []int{},
		AwayScores:  []int{},
		PayoutQ1:    100,
		PayoutQ2:    150,
		PayoutQ3:    100,
		PayoutFinal: 400,
	}
	for _, opt := range opts {
		opt(game)
	}
	ctx := context.Background()
	require.NoError(t, w.games.Create(ctx, game))
	require.NoError(t, w.boxes.CreateGrid(ctx, game.ID))
	return game
}

type fakeUnitOfWork struct {
	world   *fakeWorld
	started bool
	pending []events.Event
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error {
	u.world.mu.Lock()
	defer u.world.mu.Unlock()
	u.world.begins++
	if u.world.beginFailures > 0 {
		u.world.beginFailures--
		return fmt.Errorf("failed to begin transaction: %w", entities.ErrStoreUnavailable)
	}
	u.started = true
	return nil
}

func (u *fakeUnitOfWork) Commit() error {
	u.world.mu.Lock()
	defer u.world.mu.Unlock()
	u.world.commits++
	if len(u.world.commitErrs) > 0 {
		err := u.world.commitErrs[0]
		u.world.commitErrs = u.world.commitErrs[1:]
		u.world.discarded += len(u.pending)
		u.pending = nil
		u.started = false
		return err
	}
	u.world.published = append(u.world.published, u.pending...)
	u.pending = nil
	u.started = false
	return nil
}

func (u *fakeUnitOfWork) Rollback() error {
	u.world.mu.Lock()
	defer u.world.mu.Unlock()
	u.world.rollbacks++
	u.world.discarded += len(u.pending)
	u.pending = nil
	u.started = false
	return nil
}

func (u *fakeUnitOfWork) mustStart() {
	if !u.started {
		panic("unit of work not started - call Begin() first")
	}
}

func (u *fakeUnitOfWork) GameRepository() interfaces.GameRepository {
	u.mustStart()
	return u.world.games
}

func (u *fakeUnitOfWork) BoxRepository() interfaces.BoxRepository {
	u.mustStart()
	return u.world.boxes
}

func (u *fakeUnitOfWork) AccountRepository() interfaces.AccountRepository {
	u.mustStart()
	return u.world.ledger.Accounts()
}

func (u *fakeUnitOfWork) LedgerTransactionRepository() interfaces.LedgerTransactionRepository {
	u.mustStart()
	return u.world.ledger.Transactions()
}

func (u *fakeUnitOfWork) SettlementRepository() interfaces.SettlementRepository {
	u.mustStart()
	return u.world.settlements
}

func (u *fakeUnitOfWork) EventBus() interfaces.EventPublisher {
	u.mustStart()
	return u
}

func (u *fakeUnitOfWork) Publish(event events.Event) error {
	u.pending = append(u.pending, event)
	return nil
}

// recordingMetrics counts what the handlers report
type recordingMetrics struct {
	mu               sync.Mutex
	assignments      map[string]int
	settlementErrors map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		assignments:      make(map[string]int),
		settlementErrors: make(map[string]int),
	}
}

func (m *recordingMetrics) RecordAssignment(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[outcome]++
}

func (m *recordingMetrics) RecordSettlementError(errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settlementErrors[errorType]++
}
