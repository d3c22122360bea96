package application

import (
	"squares/domain/interfaces"
	"squares/domain/services"
)

// The builders below bind domain services to one unit of work's repositories
// and event bus, so every mutation lands in that transaction.

func ledgerFor(uow UnitOfWork, clock interfaces.Clock) interfaces.LedgerService {
	return services.NewLedgerService(uow.AccountRepository(), uow.LedgerTransactionRepository(), clock, uow.EventBus())
}

func gamesFor(uow UnitOfWork, clock interfaces.Clock) interfaces.GameService {
	return services.NewGameService(uow.GameRepository(), uow.BoxRepository(), ledgerFor(uow, clock), clock, uow.EventBus())
}

func payoutsFor(uow UnitOfWork, clock interfaces.Clock) interfaces.PayoutService {
	return services.NewPayoutService(
		uow.GameRepository(),
		uow.BoxRepository(),
		uow.SettlementRepository(),
		ledgerFor(uow, clock),
		services.NewScoreResolver(),
		clock,
		uow.EventBus(),
	)
}

func assignmentFor(uow UnitOfWork, clock interfaces.Clock, entropy interfaces.EntropySource) interfaces.AssignmentService {
	return services.NewAssignmentService(uow.GameRepository(), services.NewAllocator(entropy), clock, uow.EventBus())
}
