package infrastructure

import (
	"fmt"

	"raffle/domain/events"
)

// Subjects on the raffle and oracle streams
const (
	SubjectRoundOpened         = "raffle.round.opened"
	SubjectRoundDrawing        = "raffle.round.drawing"
	SubjectWinnerResolved      = "raffle.round.winner_resolved"
	SubjectRoundCompleted      = "raffle.round.completed"
	SubjectTicketsPurchased    = "raffle.tickets.purchased"
	SubjectPrizeClaimed        = "raffle.prize.claimed"
	SubjectRandomnessRequested = "oracle.randomness.requested"
	SubjectRandomnessFulfilled = "oracle.randomness.fulfilled"
)

// JetStream streams
const (
	RaffleEventStream = "raffle_events"
	OracleStream      = "oracle"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeRoundOpened:
		return SubjectRoundOpened
	case events.EventTypeRoundDrawing:
		return SubjectRoundDrawing
	case events.EventTypeWinnerResolved:
		return SubjectWinnerResolved
	case events.EventTypeRoundCompleted:
		return SubjectRoundCompleted
	case events.EventTypeTicketsPurchased:
		return SubjectTicketsPurchased
	case events.EventTypePrizeClaimed:
		return SubjectPrizeClaimed
	case events.EventTypeRandomnessRequest:
		return SubjectRandomnessRequested
	default:
		return fmt.Sprintf("unknown.%s", event.Type())
	}
}

// RaffleSubjects returns the subjects bound to the raffle event stream
func (m *EventSubjectMapper) RaffleSubjects() []string {
	return []string{"raffle.round.*", SubjectTicketsPurchased, SubjectPrizeClaimed}
}

// OracleSubjects returns the subjects bound to the oracle stream
func (m *EventSubjectMapper) OracleSubjects() []string {
	return []string{SubjectRandomnessRequested, SubjectRandomnessFulfilled}
}
