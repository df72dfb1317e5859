package services

import (
	"context"
	"fmt"

	"raffle/domain/entities"
	"raffle/domain/interfaces"
)

const (
	// DefaultListLimit is used when a caller asks for no particular page size
	DefaultListLimit = 20
	// MaxListLimit caps history pages
	MaxListLimit = 100
)

// queryService serves read-only round history
type queryService struct {
	store interfaces.LedgerStore
}

// NewQueryService creates a new query service
func NewQueryService(store interfaces.LedgerStore) interfaces.QueryService {
	return &queryService{store: store}
}

// ClampLimit bounds a requested page size to [1, MaxListLimit]
func ClampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultListLimit
	case n > MaxListLimit:
		return MaxListLimit
	}
	return n
}

func (s *queryService) GetRound(ctx context.Context, roundID int64) (*entities.Round, error) {
	return s.store.GetRound(ctx, roundID)
}

// CurrentRound returns the round in progress or ErrRoundNotFound
func (s *queryService) CurrentRound(ctx context.Context) (*entities.Round, error) {
	round, err := s.store.CurrentRound(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current round: %w", err)
	}
	if round == nil {
		return nil, fmt.Errorf("no round in progress: %w", entities.ErrRoundNotFound)
	}
	return round, nil
}

// ListRecent returns up to n rounds, most recent first. Unlike ListRounds,
// where a zero limit means the default page size, n <= 0 asks for nothing.
func (s *queryService) ListRecent(ctx context.Context, n int) ([]*entities.Round, error) {
	if n <= 0 {
		return []*entities.Round{}, nil
	}
	return s.ListRounds(ctx, n, nil)
}

func (s *queryService) ListRounds(ctx context.Context, limit int, beforeID *int64) ([]*entities.Round, error) {
	rounds, err := s.store.ListRounds(ctx, ClampLimit(limit), beforeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	return rounds, nil
}

// GetUserWinnings returns every completed round won by account, most recent first
func (s *queryService) GetUserWinnings(ctx context.Context, account entities.Account) ([]*entities.Winning, error) {
	if account.IsZero() {
		return nil, entities.ErrInvalidAccount
	}
	rounds, err := s.store.ListWinnings(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to list winnings: %w", err)
	}

	winnings := make([]*entities.Winning, 0, len(rounds))
	for _, round := range rounds {
		if !round.IsCompleted() || !round.IsWinner(account) {
			continue
		}
		winnings = append(winnings, entities.NewWinning(round))
	}
	return winnings, nil
}
