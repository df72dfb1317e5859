package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"raffle/domain/entities"
	"raffle/domain/events"
	"raffle/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// LedgerStore keeps rounds in process memory. Each round has its own mutex so
// writers on different rounds never wait on each other; readers always get a
// deep copy of the last committed record.
type LedgerStore struct {
	mu             sync.RWMutex
	rounds         map[int64]*entities.Round
	locks          map[int64]*sync.Mutex
	lastID         int64
	eventPublisher interfaces.EventPublisher
}

// NewLedgerStore creates an empty store. Events returned by round mutations
// are published to eventPublisher after they are applied.
func NewLedgerStore(eventPublisher interfaces.EventPublisher) *LedgerStore {
	return &LedgerStore{
		rounds:         make(map[int64]*entities.Round),
		locks:          make(map[int64]*sync.Mutex),
		eventPublisher: eventPublisher,
	}
}

func (s *LedgerStore) roundLock(id int64) (*sync.Mutex, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lock, ok := s.locks[id]
	return lock, ok
}

// GetRound returns a snapshot of the round
func (s *LedgerStore) GetRound(ctx context.Context, id int64) (*entities.Round, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	round, ok := s.rounds[id]
	if !ok {
		return nil, entities.NewRoundError(id, entities.ErrRoundNotFound, "")
	}
	return round.Clone(), nil
}

// PutRound replaces the full record of a round. Like the partial unique index
// in Postgres, it refuses a second round that is not yet completed.
func (s *LedgerStore) PutRound(ctx context.Context, round *entities.Round) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if round.ID <= 0 {
		return fmt.Errorf("round id must be positive, got %d", round.ID)
	}
	if err := round.CheckInvariants(); err != nil {
		return fmt.Errorf("refusing to store round: %w", err)
	}

	s.mu.Lock()
	lock, ok := s.locks[round.ID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[round.ID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !round.IsCompleted() {
		for id, existing := range s.rounds {
			if id != round.ID && !existing.IsCompleted() {
				return fmt.Errorf("round %d is %s: %w", id, existing.State, entities.ErrRoundInProgress)
			}
		}
	}
	s.rounds[round.ID] = round.Clone()
	if round.ID > s.lastID {
		s.lastID = round.ID
	}
	return nil
}

// CreateRound stores round under the next id
func (s *LedgerStore) CreateRound(ctx context.Context, round *entities.Round) (*entities.Round, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.rounds {
		if !existing.IsCompleted() {
			return nil, fmt.Errorf("round %d is %s: %w", id, existing.State, entities.ErrRoundInProgress)
		}
	}

	stored := round.Clone()
	stored.ID = s.lastID + 1
	if err := stored.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("refusing to store round: %w", err)
	}

	s.lastID = stored.ID
	s.rounds[stored.ID] = stored
	s.locks[stored.ID] = &sync.Mutex{}
	return stored.Clone(), nil
}

// UpdateRound applies fn to a private copy of the round while holding the
// round's lock and swaps the copy in only if fn and the invariant check pass
func (s *LedgerStore) UpdateRound(ctx context.Context, id int64, fn interfaces.RoundMutation) (*entities.Round, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lock, ok := s.roundLock(id)
	if !ok {
		return nil, entities.NewRoundError(id, entities.ErrRoundNotFound, "")
	}

	lock.Lock()
	s.mu.RLock()
	working := s.rounds[id].Clone()
	s.mu.RUnlock()

	evts, err := fn(working)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	if err := working.CheckInvariants(); err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("mutation rejected: %w", err)
	}

	s.mu.Lock()
	s.rounds[id] = working
	s.mu.Unlock()
	committed := working.Clone()
	lock.Unlock()

	s.publish(evts)
	return committed, nil
}

func (s *LedgerStore) publish(evts []events.Event) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range evts {
		if err := s.eventPublisher.Publish(event); err != nil {
			log.WithError(err).WithField("event_type", event.Type()).Error("failed to publish event")
		}
	}
}

// ListRounds returns rounds most recent first
func (s *LedgerStore) ListRounds(ctx context.Context, limit int, beforeID *int64) ([]*entities.Round, error) {
	return s.collect(ctx, limit, true, func(r *entities.Round) bool {
		return beforeID == nil || r.ID < *beforeID
	})
}

// ListRoundsByState returns rounds in state, oldest first
func (s *LedgerStore) ListRoundsByState(ctx context.Context, state entities.RoundState) ([]*entities.Round, error) {
	return s.collect(ctx, 0, false, func(r *entities.Round) bool {
		return r.State == state
	})
}

// CurrentRound returns the latest round that has not completed
func (s *LedgerStore) CurrentRound(ctx context.Context) (*entities.Round, error) {
	rounds, err := s.collect(ctx, 1, true, func(r *entities.Round) bool {
		return !r.IsCompleted()
	})
	if err != nil || len(rounds) == 0 {
		return nil, err
	}
	return rounds[0], nil
}

// ListWinnings returns completed rounds won by account, most recent first
func (s *LedgerStore) ListWinnings(ctx context.Context, account entities.Account) ([]*entities.Round, error) {
	return s.collect(ctx, 0, true, func(r *entities.Round) bool {
		return r.IsCompleted() && r.IsWinner(account)
	})
}

// collect returns clones of the matching rounds ordered by id. limit <= 0
// means no limit.
func (s *LedgerStore) collect(ctx context.Context, limit int, newestFirst bool, match func(*entities.Round) bool) ([]*entities.Round, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.rounds))
	for id, round := range s.rounds {
		if match(round) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		if newestFirst {
			return ids[i] > ids[j]
		}
		return ids[i] < ids[j]
	})
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	rounds := make([]*entities.Round, 0, len(ids))
	for _, id := range ids {
		rounds = append(rounds, s.rounds[id].Clone())
	}
	return rounds, nil
}
