package observability

// Metric namespace and subsystems
const (
	Namespace = "raffle"

	SubsystemRounds     = "rounds"
	SubsystemTickets    = "tickets"
	SubsystemSettlement = "settlement"
	SubsystemNATS       = "nats"
	SubsystemHTTP       = "http"
)

// Label keys
const (
	LabelEventType = "event_type"
	LabelOutcome   = "outcome"
	LabelMethod    = "method"
	LabelRoute     = "route"
	LabelStatus    = "status"
)

// Randomness delivery outcomes
const (
	OutcomeResolved  = "resolved"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeRetry     = "retry"
	OutcomeMalformed = "malformed"
)

// Publish outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
