package services

import (
	"context"
	"errors"
	"fmt"

	"squares/config"
	"squares/domain/entities"
	"squares/domain/events"
	"squares/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type payoutService struct {
	config         *config.Config
	gameRepo       interfaces.GameRepository
	boxRepo        interfaces.BoxRepository
	settlementRepo interfaces.SettlementRepository
	ledger         interfaces.LedgerService
	resolver       interfaces.ScoreResolver
	clock          interfaces.Clock
	eventPublisher interfaces.EventPublisher
}

// NewPayoutService creates a new payout service
func NewPayoutService(
	gameRepo interfaces.GameRepository,
	boxRepo interfaces.BoxRepository,
	settlementRepo interfaces.SettlementRepository,
	ledger interfaces.LedgerService,
	resolver interfaces.ScoreResolver,
	clock interfaces.Clock,
	eventPublisher interfaces.EventPublisher,
) interfaces.PayoutService {
	return &payoutService{
		config:         config.Get(),
		gameRepo:       gameRepo,
		boxRepo:        boxRepo,
		settlementRepo: settlementRepo,
		ledger:         ledger,
		resolver:       resolver,
		clock:          clock,
		eventPublisher: eventPublisher,
	}
}

// SettlePeriod resolves the winning box, claims the (game, period) key and
// credits the owner the configured amount. The claim and the credit share the
// caller's transaction, so a failed credit also releases the claim.
func (s *payoutService) SettlePeriod(ctx context.Context, gameID int64, period int) (*entities.PeriodSettlement, error) {
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, fmt.Errorf("%w: %d", entities.ErrGameNotFound, gameID)
	}
	if !game.NumbersAssigned {
		return nil, fmt.Errorf("%w: game %d", entities.ErrNumbersNotAssigned, gameID)
	}

	homeScore, awayScore, ok := game.ScoreForPeriod(period)
	if !ok {
		return nil, fmt.Errorf("%w: game %d has %d scored periods, requested index %d",
			entities.ErrPeriodOutOfRange, gameID, game.CompletedPeriods(), period)
	}

	position, err := s.resolver.ResolveWinner(period, homeScore, awayScore, game.HomeNumbers, game.AwayNumbers)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve winner for game %d %s: %w", gameID, entities.PeriodLabel(period), err)
	}

	box, err := s.boxRepo.GetByPosition(ctx, gameID, position.Row, position.Col)
	if err != nil {
		return nil, fmt.Errorf("failed to get winning box: %w", err)
	}
	if box == nil {
		return nil, fmt.Errorf("%w: game %d has no box at %s", entities.ErrInvalidGridState, gameID, position)
	}

	settlement := &entities.PeriodSettlement{
		GameID:      gameID,
		PeriodIndex: period,
		WinningRow:  position.Row,
		WinningCol:  position.Col,
		SettledAt:   s.clock.Now(),
	}

	amount, configured := game.PayoutForPeriod(period)
	winner, err := winnerOf(box)
	switch {
	case errors.Is(err, entities.ErrNotFoundWinner):
		settlement.Outcome = entities.SettlementOutcomeNoWinner
	case !configured || amount == 0:
		settlement.Outcome = entities.SettlementOutcomeUnconfigured
		settlement.WinnerID = &winner
		log.WithFields(log.Fields{
			"gameID": gameID,
			"period": period,
		}).Warn("No payout configured for period, settling with zero payout")
	default:
		settlement.Outcome = entities.SettlementOutcomePaid
		settlement.WinnerID = &winner
		settlement.PayoutAmount = amount
	}

	claimed, err := s.settlementRepo.Claim(ctx, settlement)
	if err != nil {
		return nil, fmt.Errorf("failed to claim settlement: %w", err)
	}
	if !claimed {
		return nil, fmt.Errorf("%w: game %d %s", entities.ErrAlreadySettled, gameID, entities.PeriodLabel(period))
	}

	if settlement.Outcome == entities.SettlementOutcomePaid {
		txn, err := s.ledger.Credit(ctx, interfaces.LedgerRequest{
			AccountID:   winner,
			Type:        entities.TransactionTypePayout,
			Amount:      amount,
			Description: payoutDescription(game, period),
			GameID:      &game.ID,
			Metadata: map[string]any{
				"period": period,
				"row":    position.Row,
				"col":    position.Col,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to credit payout: %w", err)
		}
		if err := s.settlementRepo.AttachTransaction(ctx, gameID, period, txn.ID); err != nil {
			return nil, fmt.Errorf("failed to link payout transaction: %w", err)
		}
		settlement.TransactionID = &txn.ID
	}

	if err := s.eventPublisher.Publish(events.PeriodSettledEvent{
		GameID:        gameID,
		PeriodIndex:   period,
		Row:           position.Row,
		Col:           position.Col,
		WinnerID:      settlement.WinnerID,
		PayoutAmount:  settlement.PayoutAmount,
		TransactionID: settlement.TransactionID,
		Outcome:       settlement.Outcome,
	}); err != nil {
		log.WithError(err).WithField("gameID", gameID).Error("Failed to publish period settled event")
	}

	log.WithFields(log.Fields{
		"gameID":  gameID,
		"period":  entities.PeriodLabel(period),
		"row":     position.Row,
		"col":     position.Col,
		"outcome": settlement.Outcome,
		"payout":  settlement.PayoutAmount,
	}).Info("Period settled")

	return settlement, nil
}

// UnsettledPeriods returns scored periods without a settlement record, in order
func (s *payoutService) UnsettledPeriods(ctx context.Context, gameID int64) ([]int, error) {
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, fmt.Errorf("%w: %d", entities.ErrGameNotFound, gameID)
	}

	settled, err := s.settlementRepo.ListByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	done := make(map[int]bool, len(settled))
	for _, settlement := range settled {
		done[settlement.PeriodIndex] = true
	}

	var pending []int
	for period := 0; period < game.CompletedPeriods(); period++ {
		if !done[period] {
			pending = append(pending, period)
		}
	}
	return pending, nil
}

// GetPrizePool computes revenue, pool and platform fee from sold boxes
func (s *payoutService) GetPrizePool(ctx context.Context, gameID int64) (*entities.PrizePool, error) {
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, fmt.Errorf("%w: %d", entities.ErrGameNotFound, gameID)
	}

	sold, err := s.boxRepo.CountSold(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to count sold boxes: %w", err)
	}

	pool := entities.CalculatePrizePool(sold, game.EntryFee, s.config.PlatformFeePercent)
	pool.GameID = gameID
	return &pool, nil
}

// winnerOf returns the box owner or ErrNotFoundWinner for an unsold box
func winnerOf(box *entities.Box) (uuid.UUID, error) {
	if !box.IsOwned() {
		return uuid.Nil, entities.ErrNotFoundWinner
	}
	return *box.OwnerID, nil
}

func payoutDescription(game *entities.Game, period int) string {
	return fmt.Sprintf("%s payout for %s (game %d)", entities.PeriodLabel(period), game.Matchup(), game.ID)
}
