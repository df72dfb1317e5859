package services

import (
	"context"
	"math"

	"raffle/domain/entities"
	"raffle/domain/events"
	"raffle/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// ticketService implements ticket accounting
type ticketService struct {
	store interfaces.LedgerStore
	opts  options
}

// NewTicketService creates a new ticket service
func NewTicketService(store interfaces.LedgerStore, opts ...Option) interfaces.TicketService {
	return &ticketService{
		store: store,
		opts:  applyOptions(opts),
	}
}

// BuyTickets buys tickets for an account in an Open round
func (s *ticketService) BuyTickets(ctx context.Context, roundID int64, account entities.Account, count int64, unitPrice int64) (*interfaces.PurchaseResult, error) {
	if count < 1 {
		return nil, entities.NewRoundError(roundID, entities.ErrInvalidAmount, "ticket count must be at least 1, got %d", count)
	}
	if unitPrice <= 0 {
		return nil, entities.NewRoundError(roundID, entities.ErrInvalidAmount, "unit price must be positive, got %d", unitPrice)
	}
	if count > math.MaxInt64/unitPrice {
		return nil, entities.NewRoundError(roundID, entities.ErrInvalidAmount, "%d tickets at %d overflows", count, unitPrice)
	}
	if account.IsZero() {
		return nil, entities.ErrInvalidAccount
	}

	cost := count * unitPrice
	var held int64

	round, err := s.store.UpdateRound(ctx, roundID, func(round *entities.Round) ([]events.Event, error) {
		if !round.IsOpen() {
			return nil, entities.NewRoundError(round.ID, entities.ErrRoundClosed, "round is %s", round.State)
		}
		if unitPrice != round.TicketPrice {
			return nil, entities.NewRoundError(round.ID, entities.ErrPriceMismatch, "offered %d, round price is %d", unitPrice, round.TicketPrice)
		}
		if round.TotalTickets > math.MaxInt64-count || round.PrizePool > math.MaxInt64-cost {
			return nil, entities.NewRoundError(round.ID, entities.ErrInvalidAmount, "purchase would overflow the prize pool")
		}

		held = addParticipantTickets(round, account, count)
		round.TotalTickets += count
		round.PrizePool += cost
		round.UpdatedAt = s.opts.clock()

		return []events.Event{
			events.TicketsPurchasedEvent{
				RoundID:      round.ID,
				Account:      account.String(),
				Count:        count,
				Cost:         cost,
				TotalTickets: round.TotalTickets,
				PrizePool:    round.PrizePool,
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"round_id": roundID,
		"account":  account.String(),
		"count":    count,
		"cost":     cost,
	}).Debug("tickets purchased")

	return &interfaces.PurchaseResult{
		Round: round,
		Ticket: &entities.Ticket{
			RoundID: roundID,
			Account: account,
			Count:   held,
		},
		Cost: cost,
	}, nil
}

// GetTickets returns the tickets an account holds in a round
func (s *ticketService) GetTickets(ctx context.Context, roundID int64, account entities.Account) (*entities.Ticket, error) {
	round, err := s.store.GetRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	return &entities.Ticket{
		RoundID: round.ID,
		Account: account,
		Count:   round.TicketsFor(account),
	}, nil
}

// addParticipantTickets merges count tickets into the account's entry,
// appending a new entry in commit order for first-time buyers
func addParticipantTickets(round *entities.Round, account entities.Account, count int64) int64 {
	for i := range round.Participants {
		if round.Participants[i].Account.Equal(account) {
			round.Participants[i].TicketCount += count
			return round.Participants[i].TicketCount
		}
	}
	round.Participants = append(round.Participants, entities.Participant{
		Account:     account,
		TicketCount: count,
	})
	return count
}

