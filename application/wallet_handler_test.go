package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"squares/domain/entities"
	"squares/domain/testhelpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var walletTime = time.Date(2026, 9, 14, 12, 0, 0, 0, time.UTC)

func newTestWallet(t *testing.T) (*WalletHandler, *fakeWorld, *testhelpers.MockNotifier) {
	t.Helper()
	world := newFakeWorld()
	notifier := new(testhelpers.MockNotifier)
	t.Cleanup(func() { notifier.AssertExpectations(t) })
	return NewWalletHandler(world, testhelpers.NewFixedClock(walletTime), notifier), world, notifier
}

func alertOf(kind entities.OperatorAlertKind, amount int64) interface{} {
	return mock.MatchedBy(func(alert entities.OperatorAlert) bool {
		return alert.Kind == kind && alert.Amount == amount && alert.RaisedAt.Equal(walletTime)
	})
}

func TestWalletHandler_PurchaseHotCoins(t *testing.T) {
	t.Run("at threshold credits immediately", func(t *testing.T) {
		wallet, world, notifier := newTestWallet(t)
		accountID := world.account(t, 0)

		txn, err := wallet.PurchaseHotCoins(context.Background(), accountID, 100, "starter pack")
		require.NoError(t, err)
		assert.True(t, txn.HasStatus(entities.VerificationStatusApproved))
		assert.True(t, txn.AutoApproved)
		assert.Equal(t, int64(100), world.balance(t, accountID))
		notifier.AssertNotCalled(t, "NotifyOperator", mock.Anything, mock.Anything)
	})

	t.Run("above threshold waits for review", func(t *testing.T) {
		wallet, world, notifier := newTestWallet(t)
		accountID := world.account(t, 0)
		notifier.On("NotifyOperator", mock.Anything, alertOf(entities.OperatorAlertPurchaseReview, 101)).Return(nil).Once()

		txn, err := wallet.PurchaseHotCoins(context.Background(), accountID, 101, "big pack")
		require.NoError(t, err)
		assert.True(t, txn.IsPending())
		assert.False(t, txn.IsApplied())
		assert.Zero(t, world.balance(t, accountID))
	})

	t.Run("invalid amount", func(t *testing.T) {
		wallet, world, _ := newTestWallet(t)
		accountID := world.account(t, 0)

		_, err := wallet.PurchaseHotCoins(context.Background(), accountID, 0, "nothing")
		require.Error(t, err)
		assert.ErrorIs(t, err, entities.ErrInvalidAmount)
		assert.Contains(t, err.Error(), "purchase failed")
	})
}

func TestWalletHandler_ReviewPurchase(t *testing.T) {
	wallet, world, notifier := newTestWallet(t)
	ctx := context.Background()
	accountID := world.account(t, 0)
	notifier.On("NotifyOperator", mock.Anything, mock.Anything).Return(nil).Twice()

	approved, err := wallet.PurchaseHotCoins(ctx, accountID, 250, "approve me")
	require.NoError(t, err)
	rejected, err := wallet.PurchaseHotCoins(ctx, accountID, 300, "reject me")
	require.NoError(t, err)

	txn, err := wallet.ApprovePurchase(ctx, approved.ID)
	require.NoError(t, err)
	assert.True(t, txn.HasStatus(entities.VerificationStatusApproved))
	assert.Equal(t, int64(250), world.balance(t, accountID))

	txn, err = wallet.RejectPurchase(ctx, rejected.ID)
	require.NoError(t, err)
	assert.True(t, txn.HasStatus(entities.VerificationStatusRejected))
	assert.Equal(t, int64(250), world.balance(t, accountID))

	_, err = wallet.ApprovePurchase(ctx, rejected.ID)
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)

	_, err = wallet.ApprovePurchase(ctx, 9999)
	assert.ErrorIs(t, err, entities.ErrTransactionNotFound)
}

func TestWalletHandler_RequestWithdrawal(t *testing.T) {
	t.Run("notifier failure does not fail the request", func(t *testing.T) {
		wallet, world, notifier := newTestWallet(t)
		accountID := world.account(t, 1000)
		notifier.On("NotifyOperator", mock.Anything, alertOf(entities.OperatorAlertWithdrawalRequest, 30)).
			Return(errors.New("nats: connection closed")).Once()

		txn, err := wallet.RequestWithdrawal(context.Background(), accountID, 30, "cash out")
		require.NoError(t, err)
		assert.True(t, txn.IsPending())
		assert.Equal(t, int64(-30), txn.Amount)
		assert.Equal(t, int64(970), world.balance(t, accountID))
	})

	t.Run("below minimum", func(t *testing.T) {
		wallet, world, notifier := newTestWallet(t)
		accountID := world.account(t, 1000)

		_, err := wallet.RequestWithdrawal(context.Background(), accountID, 10, "too small")
		require.Error(t, err)
		assert.ErrorIs(t, err, entities.ErrBelowMinimumWithdrawal)

		var violation *entities.RuleViolationError
		require.ErrorAs(t, err, &violation)
		assert.Equal(t, entities.RuleMinimumWithdrawal, violation.Rule)

		_, _, rollbacks := world.counts()
		assert.Equal(t, 1, rollbacks)
		assert.Equal(t, int64(1000), world.balance(t, accountID))
		notifier.AssertNotCalled(t, "NotifyOperator", mock.Anything, mock.Anything)
	})

	t.Run("without a notifier", func(t *testing.T) {
		world := newFakeWorld()
		wallet := NewWalletHandler(world, testhelpers.NewFixedClock(walletTime), nil)
		accountID := world.account(t, 100)

		_, err := wallet.RequestWithdrawal(context.Background(), accountID, 50, "quiet")
		require.NoError(t, err)
		assert.Equal(t, int64(50), world.balance(t, accountID))
	})
}

func TestWalletHandler_ResolveWithdrawal(t *testing.T) {
	wallet, world, notifier := newTestWallet(t)
	ctx := context.Background()
	accountID := world.account(t, 200)
	notifier.On("NotifyOperator", mock.Anything, mock.Anything).Return(nil).Twice()

	paid, err := wallet.RequestWithdrawal(ctx, accountID, 50, "paid out")
	require.NoError(t, err)
	bounced, err := wallet.RequestWithdrawal(ctx, accountID, 40, "bounced")
	require.NoError(t, err)
	assert.Equal(t, int64(110), world.balance(t, accountID))

	txn, err := wallet.CompleteWithdrawal(ctx, paid.ID)
	require.NoError(t, err)
	assert.True(t, txn.HasStatus(entities.VerificationStatusCompleted))
	assert.Equal(t, int64(110), world.balance(t, accountID))

	txn, err = wallet.FailWithdrawal(ctx, bounced.ID)
	require.NoError(t, err)
	assert.True(t, txn.HasStatus(entities.VerificationStatusFailed))
	assert.Equal(t, int64(150), world.balance(t, accountID))

	_, err = wallet.FailWithdrawal(ctx, bounced.ID)
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)

	balance, err := wallet.GetBalance(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), balance)

	history, err := wallet.GetHistory(ctx, accountID, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, entities.TransactionTypeRefund, history[0].Type)
	assert.Equal(t, int64(40), history[0].Amount)
}

func TestWalletHandler_UnknownAccount(t *testing.T) {
	wallet, _, _ := newTestWallet(t)

	_, err := wallet.GetBalance(context.Background(), uuid.New())
	assert.ErrorIs(t, err, entities.ErrAccountNotFound)
}
