package services

import (
	"context"

	"raffle/domain/entities"
	"raffle/domain/events"
	"raffle/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// claimService governs prize claim state. It never moves funds; the returned
// amount is what the execution layer should pay out.
type claimService struct {
	store interfaces.LedgerStore
	opts  options
}

// NewClaimService creates a new claim service
func NewClaimService(store interfaces.LedgerStore, opts ...Option) interfaces.ClaimService {
	return &claimService{
		store: store,
		opts:  applyOptions(opts),
	}
}

// checkClaim returns the reason claimant cannot claim round, or nil
func checkClaim(round *entities.Round, claimant entities.Account) error {
	if !round.IsCompleted() {
		return entities.NewRoundError(round.ID, entities.ErrRoundNotCompleted, "round is %s", round.State)
	}
	if !round.IsWinner(claimant) {
		return entities.NewRoundError(round.ID, entities.ErrNotWinner, "%s did not win", claimant)
	}
	if round.PrizeClaimed {
		return entities.NewRoundError(round.ID, entities.ErrAlreadyClaimed, "")
	}
	return nil
}

// ClaimPrize marks the round's prize claimed exactly once
func (s *claimService) ClaimPrize(ctx context.Context, roundID int64, claimant entities.Account) (*interfaces.ClaimResult, error) {
	if claimant.IsZero() {
		return nil, entities.ErrInvalidAccount
	}

	var amount int64
	round, err := s.store.UpdateRound(ctx, roundID, func(round *entities.Round) ([]events.Event, error) {
		if err := checkClaim(round, claimant); err != nil {
			return nil, err
		}

		now := s.opts.clock()
		round.PrizeClaimed = true
		round.ClaimedAt = &now
		round.UpdatedAt = now
		amount = round.PrizePool

		return []events.Event{
			events.PrizeClaimedEvent{
				RoundID: round.ID,
				Winner:  claimant.String(),
				Amount:  amount,
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"round_id": roundID,
		"winner":   claimant.String(),
		"amount":   amount,
	}).Info("prize claimed")

	return &interfaces.ClaimResult{
		Round:  round,
		Amount: amount,
	}, nil
}

// ClaimStatus reports whether account can claim the round's prize right now
func (s *claimService) ClaimStatus(ctx context.Context, roundID int64, account entities.Account) (*interfaces.ClaimStatus, error) {
	round, err := s.store.GetRound(ctx, roundID)
	if err != nil {
		return nil, err
	}

	status := &interfaces.ClaimStatus{
		RoundID:  round.ID,
		Account:  account,
		IsWinner: round.IsWinner(account),
		Claimed:  round.PrizeClaimed,
	}
	if status.IsWinner {
		status.Amount = round.PrizePool
	}
	if err := checkClaim(round, account); err != nil {
		status.Reason = entities.ErrorKind(err)
	} else {
		status.Eligible = true
	}
	return status, nil
}
