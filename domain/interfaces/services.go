package interfaces

import (
	"context"
	"time"

	"squares/domain/entities"

	"github.com/google/uuid"
)

// AssignmentResult describes a successful one-time number draw
type AssignmentResult struct {
	GameID      int64
	HomeNumbers []int
	AwayNumbers []int
	AssignedAt  time.Time
}

// AssignmentService decides and performs grid number assignment
type AssignmentService interface {
	// TryAssign draws numbers for a game once assignment has opened.
	// Fails with ErrAlreadyAssigned when numbers exist (also when a concurrent caller won)
	// and with a *entities.TooEarlyError before the window opens.
	TryAssign(ctx context.Context, game *entities.Game) (*AssignmentResult, error)

	// GamesNeedingCheck lists active unassigned games whose assignment window is open
	GamesNeedingCheck(ctx context.Context) ([]*entities.Game, error)
}

// ScoreResolver maps a period score onto the grid
type ScoreResolver interface {
	// ResolveWinner returns the box whose labels match the last digit of each score
	ResolveWinner(period, homeScore, awayScore int, homeNumbers, awayNumbers []int) (entities.GridPosition, error)
}

// PayoutService settles periods and reports prize pool accounting
type PayoutService interface {
	// SettlePeriod settles one period of a game at most once
	SettlePeriod(ctx context.Context, gameID int64, period int) (*entities.PeriodSettlement, error)

	// UnsettledPeriods returns scored periods that have no settlement record yet
	UnsettledPeriods(ctx context.Context, gameID int64) ([]int, error)

	// GetPrizePool computes the informational prize pool for a game
	GetPrizePool(ctx context.Context, gameID int64) (*entities.PrizePool, error)
}

// LedgerRequest is the generic input to LedgerService.ApplyTransaction.
// Amount is the positive magnitude; the type decides the sign.
type LedgerRequest struct {
	AccountID   uuid.UUID
	Type        entities.TransactionType
	Amount      int64
	Description string
	GameID      *int64
	Metadata    map[string]any
}

// LedgerService is the only path through which balances change
type LedgerService interface {
	// ApplyTransaction dispatches a request to the rule set of its type
	ApplyTransaction(ctx context.Context, req LedgerRequest) (*entities.LedgerTransaction, error)

	// Purchase records a HotCoin purchase, crediting immediately at or below the auto-approval threshold
	Purchase(ctx context.Context, accountID uuid.UUID, amount int64, description string) (*entities.LedgerTransaction, error)

	// PlaceBet debits a box purchase
	PlaceBet(ctx context.Context, accountID uuid.UUID, amount int64, description string, gameID *int64) (*entities.LedgerTransaction, error)

	// Credit applies a payout or refund
	Credit(ctx context.Context, req LedgerRequest) (*entities.LedgerTransaction, error)

	// RequestWithdrawal debits immediately and records a pending withdrawal
	RequestWithdrawal(ctx context.Context, accountID uuid.UUID, amount int64, description string) (*entities.LedgerTransaction, error)

	// Approve credits a pending purchase and marks it approved
	Approve(ctx context.Context, transactionID int64) (*entities.LedgerTransaction, error)

	// Reject marks a pending purchase rejected without touching the balance
	Reject(ctx context.Context, transactionID int64) (*entities.LedgerTransaction, error)

	// CompleteWithdrawal marks a pending withdrawal as paid out
	CompleteWithdrawal(ctx context.Context, transactionID int64) (*entities.LedgerTransaction, error)

	// FailWithdrawal marks a pending withdrawal failed and refunds the debit
	FailWithdrawal(ctx context.Context, transactionID int64) (*entities.LedgerTransaction, error)

	// GetBalance returns the current balance
	GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error)

	// GetHistory returns the newest ledger entries first
	GetHistory(ctx context.Context, accountID uuid.UUID, limit int) ([]*entities.LedgerTransaction, error)
}

// CreateGameParams holds the inputs for a new game
type CreateGameParams struct {
	HomeTeam    string
	AwayTeam    string
	Sport       string
	StartTime   time.Time
	EntryFee    int64
	PayoutQ1    int64
	PayoutQ2    int64
	PayoutQ3    int64
	PayoutFinal int64
}

// GameService manages the game lifecycle around settlement
type GameService interface {
	// CreateGame inserts a game together with its empty grid
	CreateGame(ctx context.Context, params CreateGameParams) (*entities.Game, error)

	// GetGame returns a game or ErrGameNotFound
	GetGame(ctx context.Context, gameID int64) (*entities.Game, error)

	// RecordPeriodScore appends the score for the next period. Re-sending a recorded
	// score is a no-op; a different score for a recorded period fails with ErrScoreConflict.
	RecordPeriodScore(ctx context.Context, gameID int64, period, homeScore, awayScore int) (*entities.Game, error)

	// DeactivateGame marks a game inactive
	DeactivateGame(ctx context.Context, gameID int64) error

	// PurchaseBox sells one unowned box to an account for the game's entry fee
	PurchaseBox(ctx context.Context, gameID int64, row, col int, accountID uuid.UUID) (*entities.Box, error)
}
