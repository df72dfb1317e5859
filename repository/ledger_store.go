package repository

import (
	"context"
	"errors"
	"fmt"

	"raffle/database"
	"raffle/domain/entities"
	"raffle/domain/interfaces"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation       = "23505"
	singleInProgressIndex = "rounds_single_in_progress"
)

// LedgerStore is the PostgreSQL ledger. Mutations lock the round row with
// SELECT ... FOR UPDATE so writers on one round are serialized while other
// rounds proceed in parallel. Reads run in a repeatable read snapshot.
type LedgerStore struct {
	db         *database.DB
	uowFactory *UnitOfWorkFactory
}

// NewLedgerStore creates a PostgreSQL ledger store. newPublisher supplies a
// fresh transactional publisher for every mutation.
func NewLedgerStore(db *database.DB, newPublisher func() interfaces.TransactionalEventPublisher) *LedgerStore {
	return &LedgerStore{
		db:         db,
		uowFactory: NewUnitOfWorkFactory(db, newPublisher),
	}
}

// readSnapshot runs fn in a read-only transaction so that a round row and its
// participants are observed at the same instant
func (s *LedgerStore) readSnapshot(ctx context.Context, fn func(rounds *RoundRepository, participants *ParticipantRepository) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(NewRoundRepository(tx), NewParticipantRepository(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func attachParticipants(ctx context.Context, participants *ParticipantRepository, rounds ...*entities.Round) error {
	ids := make([]int64, 0, len(rounds))
	for _, round := range rounds {
		ids = append(ids, round.ID)
	}
	byRound, err := participants.ListByRounds(ctx, ids)
	if err != nil {
		return err
	}
	for _, round := range rounds {
		round.Participants = byRound[round.ID]
		if round.Participants == nil {
			round.Participants = []entities.Participant{}
		}
	}
	return nil
}

// GetRound returns a consistent snapshot of a round
func (s *LedgerStore) GetRound(ctx context.Context, id int64) (*entities.Round, error) {
	var round *entities.Round
	err := s.readSnapshot(ctx, func(rounds *RoundRepository, participants *ParticipantRepository) error {
		var err error
		round, err = rounds.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if round == nil {
			return entities.NewRoundError(id, entities.ErrRoundNotFound, "")
		}
		return attachParticipants(ctx, participants, round)
	})
	if err != nil {
		return nil, err
	}
	return round, nil
}

// PutRound writes a full round record
func (s *LedgerStore) PutRound(ctx context.Context, round *entities.Round) error {
	if round.ID <= 0 {
		return fmt.Errorf("round id must be positive, got %d", round.ID)
	}
	if err := round.CheckInvariants(); err != nil {
		return fmt.Errorf("refusing to store round: %w", err)
	}

	err := s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := NewRoundRepository(tx).Upsert(ctx, round); err != nil {
			return err
		}
		return NewParticipantRepository(tx).Replace(ctx, round.ID, round.Participants)
	})
	return translateError(err)
}

// CreateRound inserts a new round under the next id
func (s *LedgerStore) CreateRound(ctx context.Context, round *entities.Round) (*entities.Round, error) {
	stored := round.Clone()
	stored.ID = 0

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback() //nolint:errcheck

	existing, err := uow.Rounds().GetInProgress(ctx)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("round %d is %s: %w", existing.ID, existing.State, entities.ErrRoundInProgress)
	}

	id, err := uow.Rounds().Create(ctx, stored)
	if err != nil {
		return nil, translateError(err)
	}
	stored.ID = id
	if err := stored.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("refusing to store round: %w", err)
	}
	if err := uow.Participants().Save(ctx, id, nil, stored.Participants); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, translateError(err)
	}
	return stored, nil
}

// UpdateRound locks the round row, applies fn and commits the result
func (s *LedgerStore) UpdateRound(ctx context.Context, id int64, fn interfaces.RoundMutation) (*entities.Round, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback() //nolint:errcheck

	round, err := uow.Rounds().GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if round == nil {
		return nil, entities.NewRoundError(id, entities.ErrRoundNotFound, "")
	}
	if err := attachParticipants(ctx, uow.Participants(), round); err != nil {
		return nil, err
	}
	before := round.Clone()

	evts, err := fn(round)
	if err != nil {
		return nil, err
	}
	if round.ID != id {
		return nil, fmt.Errorf("mutation rejected: round id changed from %d to %d", id, round.ID)
	}
	if err := round.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("mutation rejected: %w", err)
	}

	if err := uow.Rounds().Update(ctx, round); err != nil {
		return nil, translateError(err)
	}
	if err := uow.Participants().Save(ctx, id, before.Participants, round.Participants); err != nil {
		return nil, err
	}
	if err := uow.Stage(evts); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return round, nil
}

func (s *LedgerStore) listWith(ctx context.Context, load func(rounds *RoundRepository) ([]*entities.Round, error)) ([]*entities.Round, error) {
	var result []*entities.Round
	err := s.readSnapshot(ctx, func(rounds *RoundRepository, participants *ParticipantRepository) error {
		var err error
		result, err = load(rounds)
		if err != nil {
			return err
		}
		return attachParticipants(ctx, participants, result...)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListRounds returns rounds most recent first
func (s *LedgerStore) ListRounds(ctx context.Context, limit int, beforeID *int64) ([]*entities.Round, error) {
	return s.listWith(ctx, func(rounds *RoundRepository) ([]*entities.Round, error) {
		return rounds.List(ctx, limit, beforeID)
	})
}

// ListRoundsByState returns rounds in a state, oldest first
func (s *LedgerStore) ListRoundsByState(ctx context.Context, state entities.RoundState) ([]*entities.Round, error) {
	return s.listWith(ctx, func(rounds *RoundRepository) ([]*entities.Round, error) {
		return rounds.ListByState(ctx, state)
	})
}

// CurrentRound returns the round in progress, or nil
func (s *LedgerStore) CurrentRound(ctx context.Context) (*entities.Round, error) {
	result, err := s.listWith(ctx, func(rounds *RoundRepository) ([]*entities.Round, error) {
		round, err := rounds.GetInProgress(ctx)
		if err != nil || round == nil {
			return nil, err
		}
		return []*entities.Round{round}, nil
	})
	if err != nil || len(result) == 0 {
		return nil, err
	}
	return result[0], nil
}

// ListWinnings returns completed rounds won by account, most recent first
func (s *LedgerStore) ListWinnings(ctx context.Context, account entities.Account) ([]*entities.Round, error) {
	return s.listWith(ctx, func(rounds *RoundRepository) ([]*entities.Round, error) {
		return rounds.ListWonBy(ctx, account)
	})
}

// translateError maps constraint violations onto domain errors
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == singleInProgressIndex {
		return fmt.Errorf("%s: %w", pgErr.Message, entities.ErrRoundInProgress)
	}
	return err
}
