package testhelpers

import (
	"context"
	"time"

	"squares/domain/entities"
	"squares/domain/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockGameRepository is a mock implementation of GameRepository
type MockGameRepository struct {
	mock.Mock
}

func (m *MockGameRepository) Create(ctx context.Context, game *entities.Game) error {
	args := m.Called(ctx, game)
	return args.Error(0)
}

func (m *MockGameRepository) GetByID(ctx context.Context, id int64) (*entities.Game, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Game), args.Error(1)
}

func (m *MockGameRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Game, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Game), args.Error(1)
}

func (m *MockGameRepository) ListNeedingAssignment(ctx context.Context, cutoff time.Time) ([]*entities.Game, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Game), args.Error(1)
}

func (m *MockGameRepository) AssignNumbers(ctx context.Context, gameID int64, homeNumbers, awayNumbers []int) (bool, error) {
	args := m.Called(ctx, gameID, homeNumbers, awayNumbers)
	return args.Bool(0), args.Error(1)
}

func (m *MockGameRepository) AppendPeriodScore(ctx context.Context, gameID int64, period, homeScore, awayScore int) (bool, error) {
	args := m.Called(ctx, gameID, period, homeScore, awayScore)
	return args.Bool(0), args.Error(1)
}

func (m *MockGameRepository) Deactivate(ctx context.Context, gameID int64) error {
	args := m.Called(ctx, gameID)
	return args.Error(0)
}

// MockBoxRepository is a mock implementation of BoxRepository
type MockBoxRepository struct {
	mock.Mock
}

func (m *MockBoxRepository) CreateGrid(ctx context.Context, gameID int64) error {
	args := m.Called(ctx, gameID)
	return args.Error(0)
}

func (m *MockBoxRepository) GetByPosition(ctx context.Context, gameID int64, row, col int) (*entities.Box, error) {
	args := m.Called(ctx, gameID, row, col)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Box), args.Error(1)
}

func (m *MockBoxRepository) ListByGame(ctx context.Context, gameID int64) ([]*entities.Box, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Box), args.Error(1)
}

func (m *MockBoxRepository) CountSold(ctx context.Context, gameID int64) (int64, error) {
	args := m.Called(ctx, gameID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBoxRepository) AssignOwner(ctx context.Context, gameID int64, row, col int, ownerID uuid.UUID, purchasedAt time.Time) (bool, error) {
	args := m.Called(ctx, gameID, row, col, ownerID, purchasedAt)
	return args.Bool(0), args.Error(1)
}

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, account *entities.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, newBalance int64) error {
	args := m.Called(ctx, id, newBalance)
	return args.Error(0)
}

// MockLedgerTransactionRepository is a mock implementation of LedgerTransactionRepository
type MockLedgerTransactionRepository struct {
	mock.Mock
}

func (m *MockLedgerTransactionRepository) Record(ctx context.Context, txn *entities.LedgerTransaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockLedgerTransactionRepository) GetByID(ctx context.Context, id int64) (*entities.LedgerTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LedgerTransaction), args.Error(1)
}

func (m *MockLedgerTransactionRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.LedgerTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LedgerTransaction), args.Error(1)
}

func (m *MockLedgerTransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*entities.LedgerTransaction, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.LedgerTransaction), args.Error(1)
}

func (m *MockLedgerTransactionRepository) SumWithdrawalsBetween(ctx context.Context, accountID uuid.UUID, from, to time.Time) (int64, error) {
	args := m.Called(ctx, accountID, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerTransactionRepository) UpdateStatus(ctx context.Context, id int64, from, to entities.VerificationStatus, resolvedAt time.Time, balanceBefore, balanceAfter *int64) (bool, error) {
	args := m.Called(ctx, id, from, to, resolvedAt, balanceBefore, balanceAfter)
	return args.Bool(0), args.Error(1)
}

// MockSettlementRepository is a mock implementation of SettlementRepository
type MockSettlementRepository struct {
	mock.Mock
}

func (m *MockSettlementRepository) Claim(ctx context.Context, settlement *entities.PeriodSettlement) (bool, error) {
	args := m.Called(ctx, settlement)
	return args.Bool(0), args.Error(1)
}

func (m *MockSettlementRepository) AttachTransaction(ctx context.Context, gameID int64, period int, transactionID int64) error {
	args := m.Called(ctx, gameID, period, transactionID)
	return args.Error(0)
}

func (m *MockSettlementRepository) ListByGame(ctx context.Context, gameID int64) ([]*entities.PeriodSettlement, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PeriodSettlement), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyOperator(ctx context.Context, alert entities.OperatorAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}
