package testhelpers

import (
	"context"
	"math/big"
	"time"

	"raffle/domain/entities"
	"raffle/domain/interfaces"

	"github.com/stretchr/testify/mock"
)

// MockRoundService is a mock implementation of RoundService
type MockRoundService struct {
	mock.Mock
}

func (m *MockRoundService) OpenRound(ctx context.Context, params interfaces.RoundParams) (*entities.Round, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

func (m *MockRoundService) EnsureCurrentRound(ctx context.Context) (*entities.Round, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

func (m *MockRoundService) BeginDrawing(ctx context.Context, roundID int64, now time.Time) (*entities.Round, error) {
	args := m.Called(ctx, roundID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

func (m *MockRoundService) CompleteRound(ctx context.Context, roundID int64) (*entities.Round, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

// MockSettlementService is a mock implementation of SettlementService
type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) ResolveWinner(ctx context.Context, roundID int64, randomValue *big.Int) (*interfaces.ResolveResult, error) {
	args := m.Called(ctx, roundID, randomValue)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.ResolveResult), args.Error(1)
}
