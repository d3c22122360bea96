package testhelpers

import (
	"context"
	"sort"
	"sync"
	"time"

	"squares/domain/entities"

	"github.com/google/uuid"
)

// MemoryLedgerStore is an in-memory account and ledger store for property tests.
// It does not lock rows; callers drive it from one goroutine.
type MemoryLedgerStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*entities.Account
	txns     []*entities.LedgerTransaction
}

// NewMemoryLedgerStore creates an empty store
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{accounts: make(map[uuid.UUID]*entities.Account)}
}

// Accounts returns an AccountRepository view of the store
func (s *MemoryLedgerStore) Accounts() *MemoryAccountRepository {
	return &MemoryAccountRepository{store: s}
}

// Transactions returns a LedgerTransactionRepository view of the store
func (s *MemoryLedgerStore) Transactions() *MemoryLedgerTransactionRepository {
	return &MemoryLedgerTransactionRepository{store: s}
}

// Entries returns a copy of every recorded entry
func (s *MemoryLedgerStore) Entries() []entities.LedgerTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.LedgerTransaction, len(s.txns))
	for i, txn := range s.txns {
		out[i] = *txn
	}
	return out
}

// MemoryAccountRepository implements AccountRepository over a MemoryLedgerStore
type MemoryAccountRepository struct {
	store *MemoryLedgerStore
}

func (r *MemoryAccountRepository) Create(ctx context.Context, account *entities.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *account
	r.store.accounts[account.ID] = &copied
	return nil
}

func (r *MemoryAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	account, ok := r.store.accounts[id]
	if !ok {
		return nil, nil
	}
	copied := *account
	return &copied, nil
}

func (r *MemoryAccountRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *MemoryAccountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, newBalance int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if account, ok := r.store.accounts[id]; ok {
		account.HotcoinBalance = newBalance
	}
	return nil
}

// MemoryLedgerTransactionRepository implements LedgerTransactionRepository over a MemoryLedgerStore
type MemoryLedgerTransactionRepository struct {
	store *MemoryLedgerStore
}

func (r *MemoryLedgerTransactionRepository) Record(ctx context.Context, txn *entities.LedgerTransaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	txn.ID = int64(len(r.store.txns) + 1)
	copied := *txn
	r.store.txns = append(r.store.txns, &copied)
	return nil
}

func (r *MemoryLedgerTransactionRepository) GetByID(ctx context.Context, id int64) (*entities.LedgerTransaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if id < 1 || int(id) > len(r.store.txns) {
		return nil, nil
	}
	copied := *r.store.txns[id-1]
	return &copied, nil
}

func (r *MemoryLedgerTransactionRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.LedgerTransaction, error) {
	return r.GetByID(ctx, id)
}

func (r *MemoryLedgerTransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*entities.LedgerTransaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entities.LedgerTransaction
	for i := len(r.store.txns) - 1; i >= 0 && len(out) < limit; i-- {
		if r.store.txns[i].AccountID == accountID {
			copied := *r.store.txns[i]
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *MemoryLedgerTransactionRepository) SumWithdrawalsBetween(ctx context.Context, accountID uuid.UUID, from, to time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var total int64
	for _, txn := range r.store.txns {
		if txn.AccountID != accountID || txn.Type != entities.TransactionTypeWithdrawal {
			continue
		}
		if !txn.HasStatus(entities.VerificationStatusPending) && !txn.HasStatus(entities.VerificationStatusCompleted) {
			continue
		}
		if txn.CreatedAt.Before(from) || !txn.CreatedAt.Before(to) {
			continue
		}
		total += txn.Magnitude()
	}
	return total, nil
}

func (r *MemoryLedgerTransactionRepository) UpdateStatus(ctx context.Context, id int64, from, to entities.VerificationStatus, resolvedAt time.Time, balanceBefore, balanceAfter *int64) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if id < 1 || int(id) > len(r.store.txns) {
		return false, nil
	}
	txn := r.store.txns[id-1]
	if !txn.HasStatus(from) {
		return false, nil
	}
	txn.VerificationStatus = entities.StatusPtr(to)
	txn.ResolvedAt = &resolvedAt
	if balanceBefore != nil {
		txn.BalanceBefore = balanceBefore
		txn.BalanceAfter = balanceAfter
	}
	return true, nil
}

// MemorySettlementRepository implements SettlementRepository with claim-once semantics
type MemorySettlementRepository struct {
	mu          sync.Mutex
	settlements map[[2]int64]*entities.PeriodSettlement
}

// NewMemorySettlementRepository creates an empty settlement store
func NewMemorySettlementRepository() *MemorySettlementRepository {
	return &MemorySettlementRepository{settlements: make(map[[2]int64]*entities.PeriodSettlement)}
}

func (r *MemorySettlementRepository) Claim(ctx context.Context, settlement *entities.PeriodSettlement) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]int64{settlement.GameID, int64(settlement.PeriodIndex)}
	if _, exists := r.settlements[key]; exists {
		return false, nil
	}
	copied := *settlement
	r.settlements[key] = &copied
	return true, nil
}

func (r *MemorySettlementRepository) AttachTransaction(ctx context.Context, gameID int64, period int, transactionID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if settlement, ok := r.settlements[[2]int64{gameID, int64(period)}]; ok {
		settlement.TransactionID = &transactionID
	}
	return nil
}

func (r *MemorySettlementRepository) ListByGame(ctx context.Context, gameID int64) ([]*entities.PeriodSettlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.PeriodSettlement
	for key, settlement := range r.settlements {
		if key[0] == gameID {
			copied := *settlement
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodIndex < out[j].PeriodIndex })
	return out, nil
}
