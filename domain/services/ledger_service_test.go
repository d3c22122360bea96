package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"squares/domain/entities"
	"squares/domain/interfaces"
	"squares/domain/testhelpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type ledgerFixture struct {
	store     *testhelpers.MemoryLedgerStore
	clock     *testhelpers.FixedClock
	publisher *testhelpers.MockEventPublisher
	service   interfaces.LedgerService
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	store := testhelpers.NewMemoryLedgerStore()
	clock := testhelpers.NewFixedClock(time.Date(2026, 9, 13, 12, 0, 0, 0, time.UTC))
	publisher := new(testhelpers.MockEventPublisher)
	publisher.On("Publish", mock.Anything).Return(nil)
	return &ledgerFixture{
		store:     store,
		clock:     clock,
		publisher: publisher,
		service:   NewLedgerService(store.Accounts(), store.Transactions(), clock, publisher),
	}
}

func (f *ledgerFixture) account(t *testing.T, balance int64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, f.store.Accounts().Create(context.Background(), &entities.Account{
		ID:             id,
		Username:       "player",
		HotcoinBalance: balance,
	}))
	return id
}

func (f *ledgerFixture) balance(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	balance, err := f.service.GetBalance(context.Background(), id)
	require.NoError(t, err)
	return balance
}

func TestLedgerService_PurchaseAutoApproval(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		amount        int64
		wantStatus    entities.VerificationStatus
		wantAuto      bool
		wantBalance   int64
		wantAppliedTx bool
	}{
		{name: "at threshold credits immediately", amount: 100, wantStatus: entities.VerificationStatusApproved, wantAuto: true, wantBalance: 100, wantAppliedTx: true},
		{name: "small purchase", amount: 1, wantStatus: entities.VerificationStatusApproved, wantAuto: true, wantBalance: 1, wantAppliedTx: true},
		{name: "over threshold waits for review", amount: 101, wantStatus: entities.VerificationStatusPending, wantAuto: false, wantBalance: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newLedgerFixture(t)
			id := f.account(t, 0)

			txn, err := f.service.Purchase(context.Background(), id, tt.amount, "HotCoin purchase")
			require.NoError(t, err)

			assert.True(t, txn.HasStatus(tt.wantStatus))
			assert.Equal(t, tt.wantAuto, txn.AutoApproved)
			assert.Equal(t, tt.amount, txn.Amount)
			assert.Equal(t, tt.wantAppliedTx, txn.IsApplied())
			assert.Equal(t, tt.wantBalance, f.balance(t, id))
			assert.Len(t, f.store.Entries(), 1)
		})
	}
}

func TestLedgerService_PendingPurchaseDoesNotTouchBalance(t *testing.T) {
	t.Parallel()

	accountRepo := new(testhelpers.MockAccountRepository)
	txnRepo := new(testhelpers.MockLedgerTransactionRepository)
	publisher := new(testhelpers.MockEventPublisher)
	id := uuid.New()

	accountRepo.On("GetByID", mock.Anything, id).Return(&entities.Account{ID: id, HotcoinBalance: 5}, nil)
	txnRepo.On("Record", mock.Anything, mock.AnythingOfType("*entities.LedgerTransaction")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*entities.LedgerTransaction).ID = 77
		}).Return(nil)

	service := NewLedgerService(accountRepo, txnRepo, testhelpers.NewFixedClock(kickoff), publisher)
	txn, err := service.Purchase(context.Background(), id, 101, "big purchase")

	require.NoError(t, err)
	assert.Equal(t, int64(77), txn.ID)
	assert.True(t, txn.IsPending())
	accountRepo.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything)
	accountRepo.AssertNotCalled(t, "GetByIDForUpdate", mock.Anything, mock.Anything)
	publisher.AssertNotCalled(t, "Publish", mock.Anything)
}

func TestLedgerService_ApproveAndReject(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newLedgerFixture(t)
	id := f.account(t, 10)

	pendingA, err := f.service.Purchase(ctx, id, 250, "purchase A")
	require.NoError(t, err)
	pendingB, err := f.service.Purchase(ctx, id, 300, "purchase B")
	require.NoError(t, err)
	assert.Equal(t, int64(10), f.balance(t, id))

	approved, err := f.service.Approve(ctx, pendingA.ID)
	require.NoError(t, err)
	assert.True(t, approved.HasStatus(entities.VerificationStatusApproved))
	assert.False(t, approved.AutoApproved)
	require.NotNil(t, approved.BalanceAfter)
	assert.Equal(t, int64(10), *approved.BalanceBefore)
	assert.Equal(t, int64(260), *approved.BalanceAfter)
	assert.Equal(t, int64(260), f.balance(t, id))

	rejected, err := f.service.Reject(ctx, pendingB.ID)
	require.NoError(t, err)
	assert.True(t, rejected.HasStatus(entities.VerificationStatusRejected))
	assert.Equal(t, int64(260), f.balance(t, id))

	// Terminal entries cannot move again
	_, err = f.service.Approve(ctx, pendingA.ID)
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)
	_, err = f.service.Approve(ctx, pendingB.ID)
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)
	assert.Equal(t, int64(260), f.balance(t, id))

	_, err = f.service.Approve(ctx, 9999)
	assert.ErrorIs(t, err, entities.ErrTransactionNotFound)
}

func TestLedgerService_ApproveRejectsAutoApprovedPurchase(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture(t)
	id := f.account(t, 0)

	txn, err := f.service.Purchase(context.Background(), id, 50, "small")
	require.NoError(t, err)

	_, err = f.service.Approve(context.Background(), txn.ID)
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)
	assert.Equal(t, int64(50), f.balance(t, id))
}

func TestLedgerService_WithdrawalRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		balance     int64
		prior       []int64
		amount      int64
		kind        error
		wantBalance int64
	}{
		{name: "below minimum with plenty of balance", balance: 10000, amount: 24, kind: entities.ErrBelowMinimumWithdrawal, wantBalance: 10000},
		{name: "below minimum with no balance", balance: 0, amount: 10, kind: entities.ErrBelowMinimumWithdrawal, wantBalance: 0},
		{name: "minimum accepted", balance: 25, amount: 25, wantBalance: 0},
		{name: "more than balance", balance: 40, amount: 41, kind: entities.ErrInsufficientBalance, wantBalance: 40},
		{name: "reaching the cap exactly", balance: 1000, prior: []int64{200, 200}, amount: 100, wantBalance: 500},
		{name: "crossing the cap", balance: 1000, prior: []int64{300, 150}, amount: 51, kind: entities.ErrDailyLimitExceeded, wantBalance: 550},
		{name: "zero amount", balance: 100, amount: 0, kind: entities.ErrInvalidAmount, wantBalance: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			f := newLedgerFixture(t)
			id := f.account(t, tt.balance)

			for _, amount := range tt.prior {
				_, err := f.service.RequestWithdrawal(ctx, id, amount, "earlier")
				require.NoError(t, err)
			}

			txn, err := f.service.RequestWithdrawal(ctx, id, tt.amount, "cash out")
			if tt.kind != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.kind)
				assert.Nil(t, txn)
			} else {
				require.NoError(t, err)
				assert.True(t, txn.IsPending())
				assert.Equal(t, -tt.amount, txn.Amount)
			}
			assert.Equal(t, tt.wantBalance, f.balance(t, id))
		})
	}
}

func TestLedgerService_DailyCapReportsExcess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newLedgerFixture(t)
	id := f.account(t, 2000)

	for _, amount := range []int64{250, 250} {
		_, err := f.service.RequestWithdrawal(ctx, id, amount, "split")
		require.NoError(t, err)
	}

	_, err := f.service.RequestWithdrawal(ctx, id, 25, "one more")
	require.Error(t, err)

	var violation *entities.RuleViolationError
	require.True(t, errors.As(err, &violation))
	assert.Equal(t, entities.RuleDailyWithdrawalCap, violation.Rule)
	assert.Equal(t, int64(500), violation.Limit)
	assert.Equal(t, int64(500), violation.Current)
	assert.Equal(t, int64(25), violation.Excess())
	assert.Contains(t, err.Error(), "over by 25")
}

func TestLedgerService_ExhaustedCap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newLedgerFixture(t)
	id := f.account(t, 500)

	for _, amount := range []int64{300, 200} {
		_, err := f.service.RequestWithdrawal(ctx, id, amount, "split")
		require.NoError(t, err)
	}
	require.Zero(t, f.balance(t, id))

	// The minimum still wins for small requests
	_, err := f.service.RequestWithdrawal(ctx, id, 10, "small")
	assert.ErrorIs(t, err, entities.ErrBelowMinimumWithdrawal)

	// The cap is reported ahead of the empty balance
	_, err = f.service.RequestWithdrawal(ctx, id, 30, "drained")
	assert.ErrorIs(t, err, entities.ErrDailyLimitExceeded)
	assert.NotErrorIs(t, err, entities.ErrInsufficientBalance)

	_, err = f.service.RequestWithdrawal(ctx, id, 25, "minimum")
	assert.ErrorIs(t, err, entities.ErrDailyLimitExceeded)
	assert.Zero(t, f.balance(t, id))
}

func TestLedgerService_DailyCapResetsAtMidnightUTC(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newLedgerFixture(t)
	id := f.account(t, 2000)

	f.clock.Set(time.Date(2026, 9, 13, 23, 59, 0, 0, time.UTC))
	_, err := f.service.RequestWithdrawal(ctx, id, 500, "late night")
	require.NoError(t, err)

	_, err = f.service.RequestWithdrawal(ctx, id, 25, "same day")
	assert.ErrorIs(t, err, entities.ErrDailyLimitExceeded)

	f.clock.Set(time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC))
	_, err = f.service.RequestWithdrawal(ctx, id, 500, "next day")
	assert.NoError(t, err)
}

func TestLedgerService_FailedWithdrawalRefunds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newLedgerFixture(t)
	id := f.account(t, 300)

	withdrawal, err := f.service.RequestWithdrawal(ctx, id, 200, "cash out")
	require.NoError(t, err)
	assert.Equal(t, int64(100), f.balance(t, id))

	failed, err := f.service.FailWithdrawal(ctx, withdrawal.ID)
	require.NoError(t, err)
	assert.True(t, failed.HasStatus(entities.VerificationStatusFailed))
	assert.Equal(t, int64(300), f.balance(t, id))

	entries := f.store.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, entities.TransactionTypeRefund, entries[1].Type)
	assert.Equal(t, int64(200), entries[1].Amount)

	// Failed withdrawals no longer count toward the daily cap
	_, err = f.service.RequestWithdrawal(ctx, id, 300, "retry")
	assert.NoError(t, err)

	_, err = f.service.CompleteWithdrawal(ctx, withdrawal.ID)
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)
}

func TestLedgerService_CompleteWithdrawal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newLedgerFixture(t)
	id := f.account(t, 100)

	withdrawal, err := f.service.RequestWithdrawal(ctx, id, 60, "cash out")
	require.NoError(t, err)

	completed, err := f.service.CompleteWithdrawal(ctx, withdrawal.ID)
	require.NoError(t, err)
	assert.True(t, completed.HasStatus(entities.VerificationStatusCompleted))
	assert.NotNil(t, completed.ResolvedAt)
	assert.Equal(t, int64(40), f.balance(t, id))

	_, err = f.service.Reject(ctx, withdrawal.ID)
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)
}

func TestLedgerService_BetAndCredit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newLedgerFixture(t)
	id := f.account(t, 30)
	gameID := int64(12)

	_, err := f.service.PlaceBet(ctx, id, 31, "too much", &gameID)
	assert.ErrorIs(t, err, entities.ErrInsufficientBalance)
	assert.Equal(t, int64(30), f.balance(t, id))
	assert.Empty(t, f.store.Entries())

	bet, err := f.service.PlaceBet(ctx, id, 30, "box", &gameID)
	require.NoError(t, err)
	assert.Equal(t, int64(-30), bet.Amount)
	assert.Equal(t, int64(0), f.balance(t, id))

	payout, err := f.service.ApplyTransaction(ctx, interfaces.LedgerRequest{
		AccountID:   id,
		Type:        entities.TransactionTypePayout,
		Amount:      150,
		Description: "Q1 payout",
		GameID:      &gameID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(150), payout.Amount)
	assert.Equal(t, int64(150), f.balance(t, id))

	_, err = f.service.Credit(ctx, interfaces.LedgerRequest{AccountID: id, Type: entities.TransactionTypeBet, Amount: 5})
	assert.Error(t, err)

	_, err = f.service.ApplyTransaction(ctx, interfaces.LedgerRequest{AccountID: uuid.New(), Type: entities.TransactionTypeRefund, Amount: 5})
	assert.ErrorIs(t, err, entities.ErrAccountNotFound)
}

func TestLedgerService_HistoryNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newLedgerFixture(t)
	id := f.account(t, 0)

	for _, amount := range []int64{10, 20, 30} {
		_, err := f.service.Purchase(ctx, id, amount, "purchase")
		require.NoError(t, err)
	}

	history, err := f.service.GetHistory(ctx, id, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(30), history[0].Amount)
	assert.Equal(t, int64(20), history[1].Amount)
}

// The balance never goes negative and always equals the sum of applied entries,
// whatever sequence of operations ran.
func TestLedgerService_RandomSequencesKeepInvariants(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	for seed := uint64(1); seed <= 20; seed++ {
		f := newLedgerFixture(t)
		id := f.account(t, 0)
		rng := rand.New(rand.NewPCG(seed, seed*31))
		var pending []int64

		for step := 0; step < 300; step++ {
			amount := int64(rng.IntN(300))
			switch rng.IntN(7) {
			case 0:
				txn, err := f.service.Purchase(ctx, id, amount, "purchase")
				if err == nil && txn.IsPending() {
					pending = append(pending, txn.ID)
				}
			case 1:
				_, _ = f.service.PlaceBet(ctx, id, amount, "bet", nil)
			case 2:
				_, _ = f.service.Credit(ctx, interfaces.LedgerRequest{AccountID: id, Type: entities.TransactionTypePayout, Amount: amount})
			case 3:
				txn, err := f.service.RequestWithdrawal(ctx, id, amount, "withdraw")
				if err == nil {
					pending = append(pending, txn.ID)
				}
			case 4:
				if len(pending) > 0 {
					_, _ = f.service.Approve(ctx, pending[rng.IntN(len(pending))])
				}
			case 5:
				if len(pending) > 0 {
					_, _ = f.service.FailWithdrawal(ctx, pending[rng.IntN(len(pending))])
				}
			case 6:
				f.clock.Advance(time.Duration(rng.IntN(6)) * time.Hour)
			}

			balance := f.balance(t, id)
			require.GreaterOrEqual(t, balance, int64(0), "seed %d step %d", seed, step)
		}

		var applied int64
		for _, entry := range f.store.Entries() {
			if !entry.IsApplied() {
				continue
			}
			require.GreaterOrEqual(t, *entry.BalanceAfter, int64(0))
			applied += entry.Amount
		}
		assert.Equal(t, applied, f.balance(t, id), "seed %d", seed)
	}
}
