package repository

import (
	"context"
	"errors"
	"fmt"

	"raffle/database"
	"raffle/domain/events"
	"raffle/domain/interfaces"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// UnitOfWork scopes round and participant repositories to one transaction
// and releases staged events only after the transaction commits
type UnitOfWork struct {
	db              *database.DB
	tx              pgx.Tx
	ctx             context.Context
	publisher       interfaces.TransactionalEventPublisher
	roundRepo       *RoundRepository
	participantRepo *ParticipantRepository
}

// UnitOfWorkFactory creates units of work that share a pool and publisher source
type UnitOfWorkFactory struct {
	db           *database.DB
	newPublisher func() interfaces.TransactionalEventPublisher
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory. newPublisher is
// called once per unit of work and may be nil when events are not needed.
func NewUnitOfWorkFactory(db *database.DB, newPublisher func() interfaces.TransactionalEventPublisher) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{
		db:           db,
		newPublisher: newPublisher,
	}
}

// Create returns a unit of work that has not begun yet
func (f *UnitOfWorkFactory) Create() *UnitOfWork {
	uow := &UnitOfWork{db: f.db}
	if f.newPublisher != nil {
		uow.publisher = f.newPublisher()
	}
	return uow
}

// Begin starts a new transaction
func (u *UnitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx
	u.roundRepo = NewRoundRepository(tx)
	u.participantRepo = NewParticipantRepository(tx)
	return nil
}

// Commit commits the transaction and flushes staged events
func (u *UnitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		u.tx = nil
		if u.publisher != nil {
			u.publisher.Discard()
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	u.tx = nil

	// The commit is durable at this point; a failed flush must not be
	// reported as a failed write
	if u.publisher != nil {
		if err := u.publisher.Flush(u.ctx); err != nil {
			log.WithError(err).Error("failed to flush events after commit")
		}
	}
	return nil
}

// Rollback rolls back the transaction and drops staged events. Safe to call
// after Commit.
func (u *UnitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil
	if u.publisher != nil {
		u.publisher.Discard()
	}
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// Rounds returns the round repository for this unit of work
func (u *UnitOfWork) Rounds() *RoundRepository {
	if u.roundRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.roundRepo
}

// Participants returns the participant repository for this unit of work
func (u *UnitOfWork) Participants() *ParticipantRepository {
	if u.participantRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.participantRepo
}

// Stage queues events for publication after commit
func (u *UnitOfWork) Stage(evts []events.Event) error {
	if u.publisher == nil {
		return nil
	}
	for _, event := range evts {
		if err := u.publisher.Publish(event); err != nil {
			return fmt.Errorf("failed to stage %s event: %w", event.Type(), err)
		}
	}
	return nil
}
