package events

import "time"

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeRoundOpened       EventType = "round_opened"
	EventTypeTicketsPurchased  EventType = "tickets_purchased"
	EventTypeRoundDrawing      EventType = "round_drawing"
	EventTypeWinnerResolved    EventType = "winner_resolved"
	EventTypeRoundCompleted    EventType = "round_completed"
	EventTypePrizeClaimed      EventType = "prize_claimed"
	EventTypeRandomnessRequest EventType = "randomness_requested"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// RoundOpenedEvent is emitted when a new round starts selling tickets
type RoundOpenedEvent struct {
	RoundID     int64     `json:"round_id"`
	TicketPrice int64     `json:"ticket_price"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

func (e RoundOpenedEvent) Type() EventType {
	return EventTypeRoundOpened
}

// TicketsPurchasedEvent is emitted after a purchase commits
type TicketsPurchasedEvent struct {
	RoundID      int64  `json:"round_id"`
	Account      string `json:"account"`
	Count        int64  `json:"count"`
	Cost         int64  `json:"cost"`
	TotalTickets int64  `json:"total_tickets"`
	PrizePool    int64  `json:"prize_pool"`
}

func (e TicketsPurchasedEvent) Type() EventType {
	return EventTypeTicketsPurchased
}

// RoundDrawingEvent is emitted when a round closes and awaits randomness
type RoundDrawingEvent struct {
	RoundID      int64     `json:"round_id"`
	TotalTickets int64     `json:"total_tickets"`
	PrizePool    int64     `json:"prize_pool"`
	ClosedAt     time.Time `json:"closed_at"`
}

func (e RoundDrawingEvent) Type() EventType {
	return EventTypeRoundDrawing
}

// RandomnessRequestedEvent asks the oracle for a random value for a round
type RandomnessRequestedEvent struct {
	RoundID   int64  `json:"round_id"`
	RequestID string `json:"request_id"`
}

func (e RandomnessRequestedEvent) Type() EventType {
	return EventTypeRandomnessRequest
}

// WinnerResolvedEvent is emitted once the random value selects a winner
type WinnerResolvedEvent struct {
	RoundID     int64  `json:"round_id"`
	Winner      string `json:"winner"`
	RandomValue string `json:"random_value"`
	WinningSlot int64  `json:"winning_slot"`
}

func (e WinnerResolvedEvent) Type() EventType {
	return EventTypeWinnerResolved
}

// RoundCompletedEvent is emitted on the Drawing -> Completed transition
type RoundCompletedEvent struct {
	RoundID      int64     `json:"round_id"`
	Winner       string    `json:"winner"`
	PrizePool    int64     `json:"prize_pool"`
	TotalTickets int64     `json:"total_tickets"`
	Participants int       `json:"participants"`
	CompletedAt  time.Time `json:"completed_at"`
}

func (e RoundCompletedEvent) Type() EventType {
	return EventTypeRoundCompleted
}

// PrizeClaimedEvent is emitted when the winner claims the prize
type PrizeClaimedEvent struct {
	RoundID int64  `json:"round_id"`
	Winner  string `json:"winner"`
	Amount  int64  `json:"amount"`
}

func (e PrizeClaimedEvent) Type() EventType {
	return EventTypePrizeClaimed
}
