package services

import (
	"context"
	"sync"
	"testing"

	"raffle/domain/entities"
	"raffle/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completedRound returns a round won by B (value 13 over A:3, B:2)
func (e *testEngine) completedRound(t *testing.T) *entities.Round {
	t.Helper()
	round := e.drawingRound(t)
	res, err := e.Settlement.ResolveWinner(context.Background(), round.ID, bigInt(13))
	require.NoError(t, err)
	require.Equal(t, accountB, res.Winner)
	return res.Round
}

func TestClaimService_ClaimPrize(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, defaultTestParams())
	ctx := context.Background()
	round := e.completedRound(t)

	result, err := e.Claims.ClaimPrize(ctx, round.ID, accountB)
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.Amount)
	assert.True(t, result.Round.PrizeClaimed)
	require.NotNil(t, result.Round.ClaimedAt)
	assert.Equal(t, e.clock.Now(), *result.Round.ClaimedAt)

	_, err = e.Claims.ClaimPrize(ctx, round.ID, accountB)
	assert.ErrorIs(t, err, entities.ErrAlreadyClaimed)

	claimed := e.publisher.OfType(events.EventTypePrizeClaimed)
	require.Len(t, claimed, 1)
	assert.Equal(t, events.PrizeClaimedEvent{RoundID: round.ID, Winner: accountB.String(), Amount: 5}, claimed[0])
}

func TestClaimService_ClaimPrize_CheckOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		setup    func(*testing.T, *testEngine) int64
		claimant entities.Account
		wantErr  error
	}{
		{
			name: "open round",
			setup: func(t *testing.T, e *testEngine) int64 {
				return e.openRound(t).ID
			},
			claimant: accountB,
			wantErr:  entities.ErrRoundNotCompleted,
		},
		{
			name: "drawing round",
			setup: func(t *testing.T, e *testEngine) int64 {
				return e.drawingRound(t).ID
			},
			claimant: accountB,
			wantErr:  entities.ErrRoundNotCompleted,
		},
		{
			name: "loser",
			setup: func(t *testing.T, e *testEngine) int64 {
				return e.completedRound(t).ID
			},
			claimant: accountA,
			wantErr:  entities.ErrNotWinner,
		},
		{
			name: "loser after the winner claimed",
			setup: func(t *testing.T, e *testEngine) int64 {
				round := e.completedRound(t)
				_, err := e.Claims.ClaimPrize(context.Background(), round.ID, accountB)
				require.NoError(t, err)
				return round.ID
			},
			claimant: accountC,
			wantErr:  entities.ErrNotWinner,
		},
		{
			name: "unknown round",
			setup: func(t *testing.T, e *testEngine) int64 {
				return 77
			},
			claimant: accountB,
			wantErr:  entities.ErrRoundNotFound,
		},
		{
			name: "unset claimant",
			setup: func(t *testing.T, e *testEngine) int64 {
				return e.completedRound(t).ID
			},
			wantErr: entities.ErrInvalidAccount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newTestEngine(t, defaultTestParams())
			roundID := tt.setup(t, e)
			before := len(e.publisher.OfType(events.EventTypePrizeClaimed))

			_, err := e.Claims.ClaimPrize(context.Background(), roundID, tt.claimant)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, e.publisher.OfType(events.EventTypePrizeClaimed), before)
		})
	}
}

func TestClaimService_ConcurrentClaims(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, defaultTestParams())
	ctx := context.Background()
	round := e.completedRound(t)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		paid    int64
		winners int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := e.Claims.ClaimPrize(ctx, round.ID, accountB)
			if err != nil {
				assert.ErrorIs(t, err, entities.ErrAlreadyClaimed)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			paid += result.Amount
			winners++
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, int64(5), paid, "prize pool is paid exactly once")
}

func TestClaimService_ClaimStatus(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, defaultTestParams())
	ctx := context.Background()
	round := e.completedRound(t)

	status, err := e.Claims.ClaimStatus(ctx, round.ID, accountB)
	require.NoError(t, err)
	assert.True(t, status.Eligible)
	assert.True(t, status.IsWinner)
	assert.Equal(t, int64(5), status.Amount)
	assert.Empty(t, status.Reason)

	status, err = e.Claims.ClaimStatus(ctx, round.ID, accountA)
	require.NoError(t, err)
	assert.False(t, status.Eligible)
	assert.False(t, status.IsWinner)
	assert.Zero(t, status.Amount)
	assert.Equal(t, "not_winner", status.Reason)

	_, err = e.Claims.ClaimPrize(ctx, round.ID, accountB)
	require.NoError(t, err)

	status, err = e.Claims.ClaimStatus(ctx, round.ID, accountB)
	require.NoError(t, err)
	assert.False(t, status.Eligible)
	assert.True(t, status.Claimed)
	assert.Equal(t, "already_claimed", status.Reason)

	// Status checks never mutate
	stored, err := e.store.GetRound(ctx, round.ID)
	require.NoError(t, err)
	assert.True(t, stored.PrizeClaimed)
	assert.Len(t, e.publisher.OfType(events.EventTypePrizeClaimed), 1)
}
