package cmd

import (
	"errors"
	"testing"

	"squares/config"
	"squares/domain/entities"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminArgs(t *testing.T) {
	args := adminArgs{"42", "6f1c2d8e-4b7a-4c1e-9f0d-2a3b4c5d6e7f", "abc"}

	id, err := args.int64At(0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	account, err := args.accountAt(1)
	require.NoError(t, err)
	assert.Equal(t, uuid.MustParse("6f1c2d8e-4b7a-4c1e-9f0d-2a3b4c5d6e7f"), account)

	_, err = args.int64At(2)
	assert.ErrorIs(t, err, errBadArgument)
	assert.Contains(t, err.Error(), `"abc"`)

	_, err = args.accountAt(0)
	assert.ErrorIs(t, err, errBadArgument)

	_, err = args.ints()
	assert.ErrorIs(t, err, errBadArgument)

	values, err := adminArgs{"7", "0", "13", "21"}.ints()
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 0, 13, 21}, values)
}

func TestAdminCommands(t *testing.T) {
	for _, name := range []string{"approve", "reject", "complete", "fail", "purchase", "withdraw", "balance", "history", "score", "settle", "assign-due", "prize-pool", "deactivate"} {
		assert.True(t, IsAdminCommand(name), name)
	}
	assert.False(t, IsAdminCommand("migrate"))

	usages := AdminUsage()
	assert.Len(t, usages, len(adminCommands))
	assert.IsIncreasing(t, usages)

	for name, command := range adminCommands {
		assert.LessOrEqual(t, command.minArgs, command.maxArgs, name)
		assert.NotNil(t, command.run, name)
	}
}

func TestBuildNotifier(t *testing.T) {
	cfg := config.NewTestConfig()
	assert.Nil(t, buildNotifier(cfg, nil, nil))

	cfg.DiscordToken = "token"
	cfg.DiscordOperatorChannelID = "998877"
	assert.NotNil(t, buildNotifier(cfg, nil, nil))
}

func TestPrintResults(t *testing.T) {
	ok := entities.PeriodResult{PeriodIndex: 0, Settlement: &entities.PeriodSettlement{Outcome: entities.SettlementOutcomeNoWinner}}
	assert.NoError(t, printResults(1, nil))
	assert.NoError(t, printResults(1, []entities.PeriodResult{ok}))

	err := printResults(1, []entities.PeriodResult{ok, {PeriodIndex: 1, Err: errors.New("boom")}})
	require.Error(t, err)
	assert.Equal(t, "1 of 2 periods failed to settle", err.Error())
}
