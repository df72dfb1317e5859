package repository

import (
	"context"
	"fmt"

	"raffle/domain/entities"
)

// ParticipantRepository implements per-round entry access. entry_seq keeps
// the order in which accounts first bought into a round.
type ParticipantRepository struct {
	q Queryable
}

// NewParticipantRepository creates a participant repository over a pool or transaction
func NewParticipantRepository(q Queryable) *ParticipantRepository {
	return &ParticipantRepository{q: q}
}

// ListByRounds returns the entries of each round in entry order
func (r *ParticipantRepository) ListByRounds(ctx context.Context, roundIDs []int64) (map[int64][]entities.Participant, error) {
	result := make(map[int64][]entities.Participant, len(roundIDs))
	if len(roundIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT round_id, account, ticket_count
		FROM round_participants
		WHERE round_id = ANY($1)
		ORDER BY round_id, entry_seq
	`
	rows, err := r.q.Query(ctx, query, roundIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			roundID int64
			account string
			p       entities.Participant
		)
		if err := rows.Scan(&roundID, &account, &p.TicketCount); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		p.Account, err = entities.ParseAccount(account)
		if err != nil {
			return nil, fmt.Errorf("round %d has malformed participant: %w", roundID, err)
		}
		result[roundID] = append(result[roundID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return result, nil
}

// Save writes the entries that differ between before and after. Entries are
// only ever appended or grown by a mutation, so after extends before.
func (r *ParticipantRepository) Save(ctx context.Context, roundID int64, before, after []entities.Participant) error {
	if len(after) < len(before) {
		return fmt.Errorf("round %d: participant entries cannot be removed", roundID)
	}

	query := `
		INSERT INTO round_participants (round_id, account, ticket_count, entry_seq)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (round_id, account) DO UPDATE
		SET ticket_count = EXCLUDED.ticket_count,
		    updated_at = NOW()
	`
	for i, p := range after {
		if i < len(before) {
			if !before[i].Account.Equal(p.Account) {
				return fmt.Errorf("round %d: participant order changed at entry %d", roundID, i)
			}
			if before[i].TicketCount == p.TicketCount {
				continue
			}
		}
		if _, err := r.q.Exec(ctx, query, roundID, p.Account.String(), p.TicketCount, i); err != nil {
			return fmt.Errorf("failed to save participant %s in round %d: %w", p.Account, roundID, err)
		}
	}
	return nil
}

// Replace overwrites every entry of a round
func (r *ParticipantRepository) Replace(ctx context.Context, roundID int64, participants []entities.Participant) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM round_participants WHERE round_id = $1`, roundID); err != nil {
		return fmt.Errorf("failed to clear participants of round %d: %w", roundID, err)
	}
	return r.Save(ctx, roundID, nil, participants)
}
