package services

import (
	"context"
	"math/big"

	"raffle/domain/entities"
	"raffle/domain/events"
	"raffle/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// settlementService applies oracle randomness to Drawing rounds
type settlementService struct {
	store        interfaces.LedgerStore
	roundService interfaces.RoundService
	opts         options
}

// NewSettlementService creates a new settlement service. roundService opens
// the next round after a winner is resolved and may be nil.
func NewSettlementService(
	store interfaces.LedgerStore,
	roundService interfaces.RoundService,
	opts ...Option,
) interfaces.SettlementService {
	return &settlementService{
		store:        store,
		roundService: roundService,
		opts:         applyOptions(opts),
	}
}

// ResolveWinner selects the winner of a Drawing round and completes it.
// Delivering the value that already resolved the round is a no-op.
func (s *settlementService) ResolveWinner(ctx context.Context, roundID int64, randomValue *big.Int) (*interfaces.ResolveResult, error) {
	if err := ValidateRandomValue(randomValue); err != nil {
		return nil, entities.NewRoundError(roundID, err, "")
	}
	value := new(big.Int).Set(randomValue)
	duplicate := false

	round, err := s.store.UpdateRound(ctx, roundID, func(round *entities.Round) ([]events.Event, error) {
		if round.HasWinner() || round.IsCompleted() {
			if round.HasWinner() && round.RandomSeed != nil && round.WinningSlot != nil && round.RandomSeed.Cmp(value) == 0 {
				duplicate = true
				return nil, nil
			}
			return nil, entities.NewRoundError(round.ID, entities.ErrAlreadyResolved, "")
		}
		if round.IsOpen() {
			return nil, entities.NewRoundError(round.ID, entities.ErrNotReady, "round is still open")
		}

		idx, slot, err := SelectWinnerIndex(round.Participants, value)
		if err != nil {
			return nil, entities.NewRoundError(round.ID, err, "")
		}

		winner := round.Participants[idx].Account
		round.RandomSeed = value
		round.WinningSlot = &slot
		round.Winner = &winner

		completed, err := transitionToCompleted(round, s.opts.clock())
		if err != nil {
			return nil, err
		}

		return append([]events.Event{
			events.WinnerResolvedEvent{
				RoundID:     round.ID,
				Winner:      winner.String(),
				RandomValue: value.String(),
				WinningSlot: slot,
			},
		}, completed...), nil
	})
	if err != nil {
		return nil, err
	}

	result := &interfaces.ResolveResult{
		Round:     round,
		Winner:    *round.Winner,
		Slot:      *round.WinningSlot,
		Duplicate: duplicate,
	}

	if duplicate {
		log.WithField("round_id", roundID).Info("duplicate randomness delivery ignored")
		return result, nil
	}

	log.WithFields(log.Fields{
		"round_id":      round.ID,
		"winner":        round.Winner.String(),
		"winning_slot":  result.Slot,
		"total_tickets": round.TotalTickets,
		"prize_pool":    round.PrizePool,
	}).Info("round winner resolved")

	if s.roundService != nil {
		next, err := s.roundService.EnsureCurrentRound(ctx)
		if err != nil {
			// The settled round is durable; the close worker opens the next one later
			log.WithError(err).WithField("round_id", round.ID).Error("failed to open next round")
		} else {
			result.NextRound = next
		}
	}

	return result, nil
}
