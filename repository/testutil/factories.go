package testutil

import (
	"fmt"
	"time"

	"raffle/domain/entities"
)

// TestAccount returns a distinct, deterministic account for index n
func TestAccount(n int) entities.Account {
	return entities.MustParseAccount(fmt.Sprintf("0x%040x", 0xA000+n))
}

// CreateTestRound creates an Open round with no entries. Times are truncated
// to the microsecond precision PostgreSQL stores.
func CreateTestRound(ticketPrice int64) *entities.Round {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &entities.Round{
		State:        entities.RoundStateOpen,
		StartTime:    now,
		EndTime:      now.Add(time.Hour),
		TicketPrice:  ticketPrice,
		Participants: []entities.Participant{},
		Policy: entities.RoundPolicy{
			MinParticipants: 2,
			MinDuration:     time.Hour,
			CloseRule:       entities.CloseRuleTimeAndParticipants,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WithEntries adds entries to a round and keeps the totals consistent
func WithEntries(round *entities.Round, entries ...entities.Participant) *entities.Round {
	for _, p := range entries {
		round.Participants = append(round.Participants, p)
		round.TotalTickets += p.TicketCount
		round.PrizePool += p.TicketCount * round.TicketPrice
	}
	return round
}
