package entities

import (
	"fmt"
	"math/big"
	"time"
)

// RoundState represents the lifecycle state of a raffle round
type RoundState string

const (
	RoundStateOpen      RoundState = "open"
	RoundStateDrawing   RoundState = "drawing"
	RoundStateCompleted RoundState = "completed"
)

// Valid reports whether the state is one of the known states
func (s RoundState) Valid() bool {
	switch s {
	case RoundStateOpen, RoundStateDrawing, RoundStateCompleted:
		return true
	}
	return false
}

// CloseRule selects which conditions must hold before a round can close
type CloseRule string

const (
	CloseRuleTimeAndParticipants CloseRule = "time_and_participants"
	CloseRuleTimeOnly            CloseRule = "time_only"
	CloseRuleParticipantsOnly    CloseRule = "participants_only"
)

// ParseCloseRule parses a close rule name, defaulting to time_and_participants
func ParseCloseRule(s string) (CloseRule, error) {
	switch CloseRule(s) {
	case "":
		return CloseRuleTimeAndParticipants, nil
	case CloseRuleTimeAndParticipants, CloseRuleTimeOnly, CloseRuleParticipantsOnly:
		return CloseRule(s), nil
	}
	return "", fmt.Errorf("unknown close rule %q", s)
}

// RoundPolicy is captured when a round opens and never changes afterwards
type RoundPolicy struct {
	MinParticipants int           `json:"min_participants"`
	MinDuration     time.Duration `json:"min_duration"`
	CloseRule       CloseRule     `json:"close_rule"`
}

// Participant is one account's merged entry in a round
type Participant struct {
	Account     Account `json:"account"`
	TicketCount int64   `json:"ticket_count"`
}

// Ticket is the derived per-account view of a round's entries
type Ticket struct {
	RoundID int64   `json:"round_id"`
	Account Account `json:"account"`
	Count   int64   `json:"count"`
}

// Round is one raffle instance from ticket sales to prize claim
type Round struct {
	ID           int64         `json:"id"`
	State        RoundState    `json:"state"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`              // Earliest close time, fixed at open
	ClosedAt     *time.Time    `json:"closed_at,omitempty"`   // Set on Open -> Drawing
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	TicketPrice  int64         `json:"ticket_price"`          // Captured at open
	PrizePool    int64         `json:"prize_pool"`
	Participants []Participant `json:"participants"`
	TotalTickets int64         `json:"total_tickets"`
	Winner       *Account      `json:"winner,omitempty"`
	RandomSeed   *big.Int      `json:"random_seed,omitempty"`
	WinningSlot  *int64        `json:"winning_slot,omitempty"`
	PrizeClaimed bool          `json:"prize_claimed"`
	ClaimedAt    *time.Time    `json:"claimed_at,omitempty"`
	Policy       RoundPolicy   `json:"policy"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// IsOpen returns true while tickets can be sold
func (r *Round) IsOpen() bool {
	return r.State == RoundStateOpen
}

// IsDrawing returns true while the round waits for randomness
func (r *Round) IsDrawing() bool {
	return r.State == RoundStateDrawing
}

// IsCompleted returns true once a winner has been finalized
func (r *Round) IsCompleted() bool {
	return r.State == RoundStateCompleted
}

// HasWinner returns true if a winner has been selected
func (r *Round) HasWinner() bool {
	return r.Winner != nil
}

// UniqueParticipants returns the number of distinct accounts holding tickets
func (r *Round) UniqueParticipants() int {
	return len(r.Participants)
}

// TicketsFor returns the number of tickets an account holds in the round
func (r *Round) TicketsFor(account Account) int64 {
	for _, p := range r.Participants {
		if p.Account.Equal(account) {
			return p.TicketCount
		}
	}
	return 0
}

// IsWinner checks if the account won this round
func (r *Round) IsWinner(account Account) bool {
	return r.Winner != nil && r.Winner.Equal(account)
}

// Clone returns a deep copy that shares no mutable state with r
func (r *Round) Clone() *Round {
	if r == nil {
		return nil
	}
	c := *r
	if r.Participants != nil {
		c.Participants = append(make([]Participant, 0, len(r.Participants)), r.Participants...)
	}
	if r.ClosedAt != nil {
		t := *r.ClosedAt
		c.ClosedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	if r.ClaimedAt != nil {
		t := *r.ClaimedAt
		c.ClaimedAt = &t
	}
	if r.Winner != nil {
		w := *r.Winner
		c.Winner = &w
	}
	if r.RandomSeed != nil {
		c.RandomSeed = new(big.Int).Set(r.RandomSeed)
	}
	if r.WinningSlot != nil {
		s := *r.WinningSlot
		c.WinningSlot = &s
	}
	return &c
}

// CheckInvariants verifies the ledger invariants of a round record
func (r *Round) CheckInvariants() error {
	if !r.State.Valid() {
		return fmt.Errorf("round %d: invalid state %q", r.ID, r.State)
	}

	var sum int64
	seen := make(map[Account]struct{}, len(r.Participants))
	for _, p := range r.Participants {
		if p.TicketCount < 1 {
			return fmt.Errorf("round %d: participant %s has %d tickets", r.ID, p.Account, p.TicketCount)
		}
		if _, dup := seen[p.Account]; dup {
			return fmt.Errorf("round %d: participant %s listed twice", r.ID, p.Account)
		}
		seen[p.Account] = struct{}{}
		sum += p.TicketCount
	}
	if sum != r.TotalTickets {
		return fmt.Errorf("round %d: total tickets %d != participant sum %d", r.ID, r.TotalTickets, sum)
	}
	if r.PrizePool != r.TotalTickets*r.TicketPrice {
		return fmt.Errorf("round %d: prize pool %d != %d tickets x %d", r.ID, r.PrizePool, r.TotalTickets, r.TicketPrice)
	}

	wantWinner := r.State == RoundStateCompleted && r.TotalTickets > 0
	if wantWinner != (r.Winner != nil) {
		return fmt.Errorf("round %d: winner presence does not match state %s with %d tickets", r.ID, r.State, r.TotalTickets)
	}
	if (r.RandomSeed != nil) != (r.Winner != nil) || (r.WinningSlot != nil) != (r.Winner != nil) {
		return fmt.Errorf("round %d: random seed and winning slot must be recorded together with the winner", r.ID)
	}
	if r.WinningSlot != nil && (*r.WinningSlot < 0 || *r.WinningSlot >= r.TotalTickets) {
		return fmt.Errorf("round %d: winning slot %d outside [0, %d)", r.ID, *r.WinningSlot, r.TotalTickets)
	}
	if r.PrizeClaimed && r.Winner == nil {
		return fmt.Errorf("round %d: prize claimed without a winner", r.ID)
	}
	return nil
}

// CanClose reports whether the round's close rule is satisfied at now.
// A round with no tickets never closes since there would be nobody to draw.
func (r *Round) CanClose(now time.Time) error {
	if r.TotalTickets < 1 {
		return NewRoundError(r.ID, ErrNotReady, "no tickets sold")
	}
	timeReached := !now.Before(r.EndTime)
	enoughPlayers := r.UniqueParticipants() >= r.Policy.MinParticipants

	switch r.Policy.CloseRule {
	case CloseRuleTimeOnly:
		if !timeReached {
			return NewRoundError(r.ID, ErrNotReady, "closes at %s", r.EndTime.UTC().Format(time.RFC3339))
		}
	case CloseRuleParticipantsOnly:
		if !enoughPlayers {
			return NewRoundError(r.ID, ErrNotReady, "%d of %d participants", r.UniqueParticipants(), r.Policy.MinParticipants)
		}
	default:
		if !timeReached {
			return NewRoundError(r.ID, ErrNotReady, "closes at %s", r.EndTime.UTC().Format(time.RFC3339))
		}
		if !enoughPlayers {
			return NewRoundError(r.ID, ErrNotReady, "%d of %d participants", r.UniqueParticipants(), r.Policy.MinParticipants)
		}
	}
	return nil
}
