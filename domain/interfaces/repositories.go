package interfaces

import (
	"context"
	"time"

	"squares/domain/entities"
	"squares/domain/events"

	"github.com/google/uuid"
)

// GameRepository defines the interface for game data access
type GameRepository interface {
	// Create inserts a game and fills in its ID and timestamps
	Create(ctx context.Context, game *entities.Game) error

	// GetByID retrieves a game, returning nil when it does not exist
	GetByID(ctx context.Context, id int64) (*entities.Game, error)

	// GetByIDForUpdate retrieves a game with a row lock
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.Game, error)

	// ListNeedingAssignment returns active, unassigned games starting at or before cutoff
	ListNeedingAssignment(ctx context.Context, cutoff time.Time) ([]*entities.Game, error)

	// AssignNumbers stores both permutations only if the game is still active and unassigned.
	// It returns false when another caller won the race.
	AssignNumbers(ctx context.Context, gameID int64, homeNumbers, awayNumbers []int) (bool, error)

	// AppendPeriodScore appends a score pair only if exactly period scores are already recorded
	AppendPeriodScore(ctx context.Context, gameID int64, period, homeScore, awayScore int) (bool, error)

	// Deactivate marks a game inactive
	Deactivate(ctx context.Context, gameID int64) error
}

// BoxRepository defines the interface for grid box data access
type BoxRepository interface {
	// CreateGrid inserts all GridSize*GridSize unowned boxes for a game
	CreateGrid(ctx context.Context, gameID int64) error

	// GetByPosition retrieves a single box, returning nil when it does not exist
	GetByPosition(ctx context.Context, gameID int64, row, col int) (*entities.Box, error)

	// ListByGame returns every box of a game ordered by row then column
	ListByGame(ctx context.Context, gameID int64) ([]*entities.Box, error)

	// CountSold returns the number of owned boxes for a game
	CountSold(ctx context.Context, gameID int64) (int64, error)

	// AssignOwner sets the owner only if the box is still unowned
	AssignOwner(ctx context.Context, gameID int64, row, col int, ownerID uuid.UUID, purchasedAt time.Time) (bool, error)
}

// AccountRepository defines the interface for profile balance access
type AccountRepository interface {
	// Create inserts a new account
	Create(ctx context.Context, account *entities.Account) error

	// GetByID retrieves an account, returning nil when it does not exist
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Account, error)

	// GetByIDForUpdate retrieves an account with a row lock held until the transaction ends
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Account, error)

	// UpdateBalance sets the balance; only the ledger may call this
	UpdateBalance(ctx context.Context, id uuid.UUID, newBalance int64) error
}

// LedgerTransactionRepository defines the interface for the HotCoin ledger
type LedgerTransactionRepository interface {
	// Record appends an entry and fills in its ID
	Record(ctx context.Context, txn *entities.LedgerTransaction) error

	// GetByID retrieves an entry, returning nil when it does not exist
	GetByID(ctx context.Context, id int64) (*entities.LedgerTransaction, error)

	// GetByIDForUpdate retrieves an entry with a row lock
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.LedgerTransaction, error)

	// ListByAccount returns the newest entries for an account first
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*entities.LedgerTransaction, error)

	// SumWithdrawalsBetween totals pending and completed withdrawals created in [from, to)
	SumWithdrawalsBetween(ctx context.Context, accountID uuid.UUID, from, to time.Time) (int64, error)

	// UpdateStatus moves an entry from one status to another, optionally recording
	// the balance it produced. It returns false if the entry was not in the from status.
	UpdateStatus(ctx context.Context, id int64, from, to entities.VerificationStatus, resolvedAt time.Time, balanceBefore, balanceAfter *int64) (bool, error)
}

// SettlementRepository defines the interface for per-period settlement records
type SettlementRepository interface {
	// Claim inserts the settlement record for (game, period).
	// It returns false when the period was already claimed.
	Claim(ctx context.Context, settlement *entities.PeriodSettlement) (bool, error)

	// AttachTransaction links the payout entry to a claimed settlement
	AttachTransaction(ctx context.Context, gameID int64, period int, transactionID int64) error

	// ListByGame returns all settlements of a game ordered by period
	ListByGame(ctx context.Context, gameID int64) ([]*entities.PeriodSettlement, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher buffers events until the surrounding transaction ends
type TransactionalEventPublisher interface {
	EventPublisher
	// Flush publishes buffered events after a successful commit
	Flush(ctx context.Context) error
	// Discard drops buffered events after a rollback
	Discard()
}
