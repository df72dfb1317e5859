package services

import (
	"time"

	"raffle/domain/entities"
	"raffle/domain/events"
)

// transitionToDrawing closes an Open round for ticket sales. The caller holds
// the round's lock.
func transitionToDrawing(round *entities.Round, now time.Time) ([]events.Event, error) {
	if !round.IsOpen() {
		return nil, nil
	}
	if err := round.CanClose(now); err != nil {
		return nil, err
	}

	closedAt := now
	round.State = entities.RoundStateDrawing
	round.ClosedAt = &closedAt
	round.UpdatedAt = now

	return []events.Event{
		events.RoundDrawingEvent{
			RoundID:      round.ID,
			TotalTickets: round.TotalTickets,
			PrizePool:    round.PrizePool,
			ClosedAt:     closedAt,
		},
	}, nil
}

// transitionToCompleted finalizes a Drawing round that already has a winner
func transitionToCompleted(round *entities.Round, now time.Time) ([]events.Event, error) {
	switch round.State {
	case entities.RoundStateCompleted:
		return nil, nil
	case entities.RoundStateOpen:
		return nil, entities.NewRoundError(round.ID, entities.ErrNotReady, "round is still open")
	}
	if round.RandomSeed == nil || !round.HasWinner() {
		return nil, entities.NewRoundError(round.ID, entities.ErrRandomnessPending, "")
	}

	completedAt := now
	round.State = entities.RoundStateCompleted
	round.CompletedAt = &completedAt
	round.UpdatedAt = now

	return []events.Event{
		events.RoundCompletedEvent{
			RoundID:      round.ID,
			Winner:       round.Winner.String(),
			PrizePool:    round.PrizePool,
			TotalTickets: round.TotalTickets,
			Participants: round.UniqueParticipants(),
			CompletedAt:  completedAt,
		},
	}, nil
}
