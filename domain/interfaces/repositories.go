package interfaces

import (
	"context"

	"raffle/domain/entities"
	"raffle/domain/events"
)

// RoundMutation mutates a locked round in place and returns the events to
// publish once the change is durable. Returning an error discards the change.
type RoundMutation func(round *entities.Round) ([]events.Event, error)

// LedgerStore is the authoritative storage of raffle rounds
type LedgerStore interface {
	// GetRound returns a consistent snapshot of a round or ErrRoundNotFound
	GetRound(ctx context.Context, id int64) (*entities.Round, error)

	// PutRound writes a full round record, replacing any existing one
	PutRound(ctx context.Context, round *entities.Round) error

	// CreateRound stores a new round under the next id. Fails with
	// ErrRoundInProgress while any round is not yet completed.
	CreateRound(ctx context.Context, round *entities.Round) (*entities.Round, error)

	// UpdateRound applies fn atomically with respect to every other mutation
	// of the same round id and returns the committed round
	UpdateRound(ctx context.Context, id int64, fn RoundMutation) (*entities.Round, error)

	// ListRounds returns rounds most recent first, optionally strictly before an id
	ListRounds(ctx context.Context, limit int, beforeID *int64) ([]*entities.Round, error)

	// ListRoundsByState returns all rounds in a state, oldest first
	ListRoundsByState(ctx context.Context, state entities.RoundState) ([]*entities.Round, error)

	// CurrentRound returns the latest round that is not completed, or nil
	CurrentRound(ctx context.Context) (*entities.Round, error)

	// ListWinnings returns completed rounds won by the account, most recent first
	ListWinnings(ctx context.Context, account entities.Account) ([]*entities.Round, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher holds events until the surrounding
// transaction commits
type TransactionalEventPublisher interface {
	EventPublisher
	// Flush publishes held events; called after commit
	Flush(ctx context.Context) error
	// Discard drops held events; called on rollback
	Discard()
}
