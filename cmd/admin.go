package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"squares/application"
	"squares/application/dto"
	"squares/config"
	"squares/database"
	"squares/domain/entities"
	"squares/domain/interfaces"
	"squares/infrastructure"
	"squares/infrastructure/observability"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const defaultHistoryRows = 20

var errBadArgument = errors.New("invalid argument")

// adminEnv holds what operator subcommands need for one invocation
type adminEnv struct {
	clock      interfaces.Clock
	wallet     *application.WalletHandler
	games      *application.GameHandler
	settlement *application.SettlementHandler
	worker     *application.AssignmentWorker
}

// adminArgs are the positional arguments after the subcommand name
type adminArgs []string

func (a adminArgs) int64At(i int) (int64, error) {
	parsed, err := strconv.ParseInt(a[i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q: expected a number", errBadArgument, a[i])
	}
	return parsed, nil
}

func (a adminArgs) accountAt(i int) (uuid.UUID, error) {
	parsed, err := uuid.Parse(a[i])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w %q: expected an account id", errBadArgument, a[i])
	}
	return parsed, nil
}

// ints parses every argument as a number
func (a adminArgs) ints() ([]int64, error) {
	out := make([]int64, len(a))
	for i := range a {
		parsed, err := a.int64At(i)
		if err != nil {
			return nil, err
		}
		out[i] = parsed
	}
	return out, nil
}

type adminCommand struct {
	usage   string
	minArgs int
	maxArgs int
	run     func(ctx context.Context, env *adminEnv, args adminArgs) error
}

// transactionCommand resolves one pending ledger entry by id
func transactionCommand(usage string, resolve func(env *adminEnv) func(context.Context, int64) (*entities.LedgerTransaction, error)) adminCommand {
	return adminCommand{
		usage:   usage,
		minArgs: 1,
		maxArgs: 1,
		run: func(ctx context.Context, env *adminEnv, args adminArgs) error {
			id, err := args.int64At(0)
			if err != nil {
				return err
			}
			return printTransaction(resolve(env)(ctx, id))
		},
	}
}

// walletCommand moves an amount for an account, with an optional description
func walletCommand(usage string, apply func(env *adminEnv) func(context.Context, uuid.UUID, int64, string) (*entities.LedgerTransaction, error)) adminCommand {
	return adminCommand{
		usage:   usage,
		minArgs: 2,
		maxArgs: 3,
		run: func(ctx context.Context, env *adminEnv, args adminArgs) error {
			accountID, err := args.accountAt(0)
			if err != nil {
				return err
			}
			amount, err := args.int64At(1)
			if err != nil {
				return err
			}
			description := ""
			if len(args) == 3 {
				description = args[2]
			}
			return printTransaction(apply(env)(ctx, accountID, amount, description))
		},
	}
}

var adminCommands = map[string]adminCommand{
	"approve": transactionCommand("approve <transaction-id>", func(env *adminEnv) func(context.Context, int64) (*entities.LedgerTransaction, error) {
		return env.wallet.ApprovePurchase
	}),
	"reject": transactionCommand("reject <transaction-id>", func(env *adminEnv) func(context.Context, int64) (*entities.LedgerTransaction, error) {
		return env.wallet.RejectPurchase
	}),
	"complete": transactionCommand("complete <transaction-id>", func(env *adminEnv) func(context.Context, int64) (*entities.LedgerTransaction, error) {
		return env.wallet.CompleteWithdrawal
	}),
	"fail": transactionCommand("fail <transaction-id>", func(env *adminEnv) func(context.Context, int64) (*entities.LedgerTransaction, error) {
		return env.wallet.FailWithdrawal
	}),
	"purchase": walletCommand("purchase <account-id> <amount> [description]", func(env *adminEnv) func(context.Context, uuid.UUID, int64, string) (*entities.LedgerTransaction, error) {
		return env.wallet.PurchaseHotCoins
	}),
	"withdraw": walletCommand("withdraw <account-id> <amount> [description]", func(env *adminEnv) func(context.Context, uuid.UUID, int64, string) (*entities.LedgerTransaction, error) {
		return env.wallet.RequestWithdrawal
	}),
	"balance": {
		usage:   "balance <account-id>",
		minArgs: 1,
		maxArgs: 1,
		run: func(ctx context.Context, env *adminEnv, args adminArgs) error {
			accountID, err := args.accountAt(0)
			if err != nil {
				return err
			}
			balance, err := env.wallet.GetBalance(ctx, accountID)
			if err != nil {
				return err
			}
			fmt.Printf("account=%s balance=%d\n", accountID, balance)
			return nil
		},
	},
	"history": {
		usage:   "history <account-id> [limit]",
		minArgs: 1,
		maxArgs: 2,
		run: func(ctx context.Context, env *adminEnv, args adminArgs) error {
			accountID, err := args.accountAt(0)
			if err != nil {
				return err
			}
			limit := int64(defaultHistoryRows)
			if len(args) == 2 {
				if limit, err = args.int64At(1); err != nil {
					return err
				}
			}
			history, err := env.wallet.GetHistory(ctx, accountID, int(limit))
			if err != nil {
				return err
			}
			for _, txn := range history {
				if err := printTransaction(txn, nil); err != nil {
					return err
				}
			}
			return nil
		},
	},
	"score": {
		usage:   "score <game-id> <period-index> <home-score> <away-score>",
		minArgs: 4,
		maxArgs: 4,
		run: func(ctx context.Context, env *adminEnv, args adminArgs) error {
			values, err := args.ints()
			if err != nil {
				return err
			}
			results, err := env.settlement.HandleScoreUpdate(ctx, dto.ScoreUpdateDTO{
				GameID:     values[0],
				Period:     int(values[1]),
				HomeScore:  int(values[2]),
				AwayScore:  int(values[3]),
				ReceivedAt: env.clock.Now(),
			})
			if err != nil {
				return err
			}
			return printResults(values[0], results)
		},
	},
	"settle": {
		usage:   "settle <game-id>",
		minArgs: 1,
		maxArgs: 1,
		run: func(ctx context.Context, env *adminEnv, args adminArgs) error {
			gameID, err := args.int64At(0)
			if err != nil {
				return err
			}
			results, err := env.settlement.SettleGame(ctx, gameID)
			if err != nil {
				return err
			}
			return printResults(gameID, results)
		},
	},
	"assign-due": {
		usage: "assign-due",
		run: func(ctx context.Context, env *adminEnv, args adminArgs) error {
			summary, err := env.worker.CheckDueGames(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("checked=%d assigned=%d already_assigned=%d too_early=%d failed=%d\n",
				summary.Checked, summary.Assigned, summary.AlreadyAssigned, summary.TooEarly, summary.Failed)
			return nil
		},
	},
	"prize-pool": {
		usage:   "prize-pool <game-id>",
		minArgs: 1,
		maxArgs: 1,
		run: func(ctx context.Context, env *adminEnv, args adminArgs) error {
			gameID, err := args.int64At(0)
			if err != nil {
				return err
			}
			pool, err := env.games.GetPrizePool(ctx, gameID)
			if err != nil {
				return err
			}
			fmt.Printf("game=%d sold=%d revenue=%d pool=%d fee=%d\n",
				pool.GameID, pool.SoldBoxes, pool.TotalRevenue, pool.PrizePool, pool.PlatformFee)
			return nil
		},
	},
	"deactivate": {
		usage:   "deactivate <game-id>",
		minArgs: 1,
		maxArgs: 1,
		run: func(ctx context.Context, env *adminEnv, args adminArgs) error {
			gameID, err := args.int64At(0)
			if err != nil {
				return err
			}
			if err := env.games.DeactivateGame(ctx, gameID); err != nil {
				return err
			}
			fmt.Printf("game %d deactivated\n", gameID)
			return nil
		},
	},
}

// IsAdminCommand reports whether name is an operator subcommand
func IsAdminCommand(name string) bool {
	_, ok := adminCommands[name]
	return ok
}

// AdminUsage lists the operator subcommands
func AdminUsage() []string {
	usages := make([]string, 0, len(adminCommands))
	for _, command := range adminCommands {
		usages = append(usages, command.usage)
	}
	sort.Strings(usages)
	return usages
}

// RunAdmin executes one operator subcommand against the database.
// Events go to NATS when it is reachable and are dropped otherwise.
func RunAdmin(ctx context.Context, name string, rawArgs []string) error {
	command, ok := adminCommands[name]
	if !ok {
		return fmt.Errorf("unknown command: %s", name)
	}
	if len(rawArgs) < command.minArgs || len(rawArgs) > command.maxArgs {
		return fmt.Errorf("usage: squares %s", command.usage)
	}

	cfg := config.Get()
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// A missing collector must not block an operator command
	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		log.WithError(err).Warn("Metrics unavailable for this command")
	}
	metrics := observability.GetMetrics()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
			log.WithError(err).Warn("Failed to flush metrics")
		}
	}()

	var eventPublisher interfaces.EventPublisher = infrastructure.NewNoopEventPublisher()
	var natsNotifier interfaces.Notifier
	natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := natsClient.Connect(connectCtx); err != nil {
		log.WithError(err).Warn("NATS unavailable, domain events from this command will not be published")
	} else {
		defer natsClient.Close()
		natsPublisher := infrastructure.NewNATSEventPublisher(natsClient, infrastructure.NewEventSubjectMapper())
		observability.RegisterEventMetrics(natsPublisher, metrics)
		eventPublisher = natsPublisher
		natsNotifier = infrastructure.NewNATSNotifier(natsClient, cfg.OperatorAlertSubject, metrics)
	}

	uowFactory := infrastructure.NewUnitOfWorkFactory(db, eventPublisher)
	clock := infrastructure.NewSystemClock()
	env := &adminEnv{
		clock:      clock,
		wallet:     application.NewWalletHandler(uowFactory, clock, buildNotifier(cfg, natsNotifier, metrics)),
		games:      application.NewGameHandler(uowFactory, clock),
		settlement: application.NewSettlementHandler(uowFactory, clock, metrics),
		worker:     application.NewAssignmentWorker(uowFactory, clock, infrastructure.NewCryptoEntropy(), metrics),
	}

	if err := command.run(ctx, env, adminArgs(rawArgs)); err != nil {
		if errors.Is(err, errBadArgument) {
			return fmt.Errorf("%w: usage: squares %s", err, command.usage)
		}
		return err
	}
	return nil
}

// buildNotifier fans operator alerts out to NATS and, when configured, Discord
func buildNotifier(cfg *config.Config, natsNotifier interfaces.Notifier, metrics *observability.MetricsProvider) interfaces.Notifier {
	notifiers := []interfaces.Notifier{natsNotifier}

	if cfg.DiscordAlertsEnabled() {
		session, err := infrastructure.NewDiscordSession(cfg.DiscordToken)
		if err != nil {
			log.WithError(err).Warn("Discord operator alerts disabled")
		} else {
			notifiers = append(notifiers, infrastructure.NewDiscordNotifier(session, cfg.DiscordOperatorChannelID, metrics))
		}
	}

	multi := infrastructure.NewMultiNotifier(notifiers...)
	if multi.Len() == 0 {
		return nil
	}
	return multi
}

func printTransaction(txn *entities.LedgerTransaction, err error) error {
	if err != nil {
		return err
	}
	status := "none"
	if txn.VerificationStatus != nil {
		status = string(*txn.VerificationStatus)
	}
	fmt.Printf("transaction=%d type=%s amount=%d status=%s account=%s created=%s\n",
		txn.ID, txn.Type, txn.Amount, status, txn.AccountID, txn.CreatedAt.Format(time.RFC3339))
	return nil
}

func printResults(gameID int64, results []entities.PeriodResult) error {
	if len(results) == 0 {
		fmt.Printf("game %d: nothing to settle\n", gameID)
		return nil
	}
	failed := 0
	for _, result := range results {
		label := entities.PeriodLabel(result.PeriodIndex)
		if !result.Succeeded() {
			failed++
			fmt.Printf("game %d %s: error: %v\n", gameID, label, result.Err)
			continue
		}
		settlement := result.Settlement
		fmt.Printf("game %d %s: %s box=%s payout=%d\n",
			gameID, label, settlement.Outcome, settlement.Position(), settlement.PayoutAmount)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d periods failed to settle", failed, len(results))
	}
	return nil
}
