package repository

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"raffle/domain/entities"

	"github.com/jackc/pgx/v5"
)

const roundColumns = `id, state, start_time, end_time, closed_at, completed_at, ticket_price,
	prize_pool, total_tickets, winner, random_seed::text, winning_slot, prize_claimed, claimed_at,
	min_participants, min_duration_ns, close_rule, created_at, updated_at`

// RoundRepository implements round row access. Participants are loaded
// separately by ParticipantRepository.
type RoundRepository struct {
	q Queryable
}

// NewRoundRepository creates a round repository over a pool or transaction
func NewRoundRepository(q Queryable) *RoundRepository {
	return &RoundRepository{q: q}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRound(row rowScanner) (*entities.Round, error) {
	var (
		round         entities.Round
		state         string
		winner        *string
		seed          *string
		minDurationNs int64
		closeRule     string
	)
	err := row.Scan(
		&round.ID,
		&state,
		&round.StartTime,
		&round.EndTime,
		&round.ClosedAt,
		&round.CompletedAt,
		&round.TicketPrice,
		&round.PrizePool,
		&round.TotalTickets,
		&winner,
		&seed,
		&round.WinningSlot,
		&round.PrizeClaimed,
		&round.ClaimedAt,
		&round.Policy.MinParticipants,
		&minDurationNs,
		&closeRule,
		&round.CreatedAt,
		&round.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	round.State = entities.RoundState(state)
	round.Policy.MinDuration = time.Duration(minDurationNs)
	round.Policy.CloseRule = entities.CloseRule(closeRule)
	round.StartTime = round.StartTime.UTC()
	round.EndTime = round.EndTime.UTC()
	round.CreatedAt = round.CreatedAt.UTC()
	round.UpdatedAt = round.UpdatedAt.UTC()
	round.ClosedAt = utcPtr(round.ClosedAt)
	round.CompletedAt = utcPtr(round.CompletedAt)
	round.ClaimedAt = utcPtr(round.ClaimedAt)

	if winner != nil {
		account, err := entities.ParseAccount(*winner)
		if err != nil {
			return nil, fmt.Errorf("round %d has malformed winner: %w", round.ID, err)
		}
		round.Winner = &account
	}
	if seed != nil {
		v, ok := new(big.Int).SetString(*seed, 10)
		if !ok {
			return nil, fmt.Errorf("round %d has malformed random seed %q", round.ID, *seed)
		}
		round.RandomSeed = v
	}
	return &round, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func winnerArg(round *entities.Round) *string {
	if round.Winner == nil {
		return nil
	}
	s := round.Winner.String()
	return &s
}

func seedArg(round *entities.Round) *string {
	if round.RandomSeed == nil {
		return nil
	}
	s := round.RandomSeed.String()
	return &s
}

func (r *RoundRepository) getOne(ctx context.Context, query string, args ...any) (*entities.Round, error) {
	round, err := scanRound(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return round, err
}

func (r *RoundRepository) getMany(ctx context.Context, query string, args ...any) ([]*entities.Round, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rounds := make([]*entities.Round, 0)
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, round)
	}
	return rounds, rows.Err()
}

// GetByID retrieves a round by its ID, or nil if it does not exist
func (r *RoundRepository) GetByID(ctx context.Context, id int64) (*entities.Round, error) {
	round, err := r.getOne(ctx, `SELECT `+roundColumns+` FROM rounds WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get round %d: %w", id, err)
	}
	return round, nil
}

// GetByIDForUpdate retrieves a round and locks its row until the transaction ends
func (r *RoundRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Round, error) {
	round, err := r.getOne(ctx, `SELECT `+roundColumns+` FROM rounds WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get round %d for update: %w", id, err)
	}
	return round, nil
}

// Create inserts a new round and assigns its id
func (r *RoundRepository) Create(ctx context.Context, round *entities.Round) (int64, error) {
	query := `
		INSERT INTO rounds (state, start_time, end_time, closed_at, completed_at, ticket_price,
		                    prize_pool, total_tickets, winner, random_seed, winning_slot,
		                    prize_claimed, claimed_at, min_participants, min_duration_ns,
		                    close_rule, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::numeric, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id
	`

	var id int64
	err := r.q.QueryRow(ctx, query,
		string(round.State),
		round.StartTime,
		round.EndTime,
		round.ClosedAt,
		round.CompletedAt,
		round.TicketPrice,
		round.PrizePool,
		round.TotalTickets,
		winnerArg(round),
		seedArg(round),
		round.WinningSlot,
		round.PrizeClaimed,
		round.ClaimedAt,
		round.Policy.MinParticipants,
		int64(round.Policy.MinDuration),
		string(round.Policy.CloseRule),
		round.CreatedAt,
		round.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create round: %w", err)
	}
	return id, nil
}

// Update writes every mutable column of a round
func (r *RoundRepository) Update(ctx context.Context, round *entities.Round) error {
	query := `
		UPDATE rounds
		SET state = $2,
		    closed_at = $3,
		    completed_at = $4,
		    prize_pool = $5,
		    total_tickets = $6,
		    winner = $7,
		    random_seed = $8::numeric,
		    winning_slot = $9,
		    prize_claimed = $10,
		    claimed_at = $11,
		    updated_at = $12
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query,
		round.ID,
		string(round.State),
		round.ClosedAt,
		round.CompletedAt,
		round.PrizePool,
		round.TotalTickets,
		winnerArg(round),
		seedArg(round),
		round.WinningSlot,
		round.PrizeClaimed,
		round.ClaimedAt,
		round.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update round %d: %w", round.ID, err)
	}
	if result.RowsAffected() == 0 {
		return entities.NewRoundError(round.ID, entities.ErrRoundNotFound, "")
	}
	return nil
}

// Upsert writes a full round record under its own id
func (r *RoundRepository) Upsert(ctx context.Context, round *entities.Round) error {
	query := `
		INSERT INTO rounds (id, state, start_time, end_time, closed_at, completed_at, ticket_price,
		                    prize_pool, total_tickets, winner, random_seed, winning_slot,
		                    prize_claimed, claimed_at, min_participants, min_duration_ns,
		                    close_rule, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::numeric, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (id) DO UPDATE
		SET state = EXCLUDED.state,
		    start_time = EXCLUDED.start_time,
		    end_time = EXCLUDED.end_time,
		    closed_at = EXCLUDED.closed_at,
		    completed_at = EXCLUDED.completed_at,
		    ticket_price = EXCLUDED.ticket_price,
		    prize_pool = EXCLUDED.prize_pool,
		    total_tickets = EXCLUDED.total_tickets,
		    winner = EXCLUDED.winner,
		    random_seed = EXCLUDED.random_seed,
		    winning_slot = EXCLUDED.winning_slot,
		    prize_claimed = EXCLUDED.prize_claimed,
		    claimed_at = EXCLUDED.claimed_at,
		    min_participants = EXCLUDED.min_participants,
		    min_duration_ns = EXCLUDED.min_duration_ns,
		    close_rule = EXCLUDED.close_rule,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := r.q.Exec(ctx, query,
		round.ID,
		string(round.State),
		round.StartTime,
		round.EndTime,
		round.ClosedAt,
		round.CompletedAt,
		round.TicketPrice,
		round.PrizePool,
		round.TotalTickets,
		winnerArg(round),
		seedArg(round),
		round.WinningSlot,
		round.PrizeClaimed,
		round.ClaimedAt,
		round.Policy.MinParticipants,
		int64(round.Policy.MinDuration),
		string(round.Policy.CloseRule),
		round.CreatedAt,
		round.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert round %d: %w", round.ID, err)
	}

	// Keep the id sequence ahead of explicitly written ids
	_, err = r.q.Exec(ctx, `SELECT setval(pg_get_serial_sequence('rounds', 'id'), (SELECT MAX(id) FROM rounds))`)
	if err != nil {
		return fmt.Errorf("failed to advance round id sequence: %w", err)
	}
	return nil
}

// List returns rounds most recent first, optionally strictly before an id
func (r *RoundRepository) List(ctx context.Context, limit int, beforeID *int64) ([]*entities.Round, error) {
	query := `
		SELECT ` + roundColumns + `
		FROM rounds
		WHERE ($2::bigint IS NULL OR id < $2)
		ORDER BY id DESC
		LIMIT $1
	`
	rounds, err := r.getMany(ctx, query, limit, beforeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	return rounds, nil
}

// ListByState returns every round in a state, oldest first
func (r *RoundRepository) ListByState(ctx context.Context, state entities.RoundState) ([]*entities.Round, error) {
	rounds, err := r.getMany(ctx, `SELECT `+roundColumns+` FROM rounds WHERE state = $1 ORDER BY id ASC`, string(state))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s rounds: %w", state, err)
	}
	return rounds, nil
}

// GetInProgress returns the round that is open or drawing, or nil
func (r *RoundRepository) GetInProgress(ctx context.Context) (*entities.Round, error) {
	round, err := r.getOne(ctx, `SELECT `+roundColumns+` FROM rounds WHERE state <> 'completed' ORDER BY id DESC LIMIT 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to get round in progress: %w", err)
	}
	return round, nil
}

// ListWonBy returns completed rounds won by account, most recent first
func (r *RoundRepository) ListWonBy(ctx context.Context, account entities.Account) ([]*entities.Round, error) {
	query := `
		SELECT ` + roundColumns + `
		FROM rounds
		WHERE state = 'completed' AND winner = $1
		ORDER BY id DESC
	`
	rounds, err := r.getMany(ctx, query, account.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds won by %s: %w", account, err)
	}
	return rounds, nil
}
