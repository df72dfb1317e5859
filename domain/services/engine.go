package services

import (
	"raffle/domain/interfaces"
)

// Engine groups the raffle services that share one ledger store
type Engine struct {
	Rounds     interfaces.RoundService
	Tickets    interfaces.TicketService
	Settlement interfaces.SettlementService
	Claims     interfaces.ClaimService
	Queries    interfaces.QueryService
}

// NewEngine wires every service against store and eventPublisher
func NewEngine(
	store interfaces.LedgerStore,
	eventPublisher interfaces.EventPublisher,
	defaults interfaces.RoundParams,
	opts ...Option,
) *Engine {
	rounds := NewRoundService(store, eventPublisher, defaults, opts...)
	return &Engine{
		Rounds:     rounds,
		Tickets:    NewTicketService(store, opts...),
		Settlement: NewSettlementService(store, rounds, opts...),
		Claims:     NewClaimService(store, opts...),
		Queries:    NewQueryService(store),
	}
}
