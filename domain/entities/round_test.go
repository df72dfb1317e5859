package entities

import (
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testAccountA = MustParseAccount("0x00000000000000000000000000000000000000A1")
	testAccountB = MustParseAccount("0x00000000000000000000000000000000000000B2")
)

func createTestRound(opts ...func(*Round)) *Round {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	round := &Round{
		ID:          1,
		State:       RoundStateOpen,
		StartTime:   now,
		EndTime:     now.Add(time.Hour),
		TicketPrice: 2,
		Participants: []Participant{
			{Account: testAccountA, TicketCount: 3},
			{Account: testAccountB, TicketCount: 2},
		},
		TotalTickets: 5,
		PrizePool:    10,
		Policy: RoundPolicy{
			MinParticipants: 2,
			MinDuration:     time.Hour,
			CloseRule:       CloseRuleTimeAndParticipants,
		},
	}
	for _, opt := range opts {
		opt(round)
	}
	return round
}

func TestRound_CheckInvariants(t *testing.T) {
	t.Parallel()

	winner := testAccountB
	slot := int64(3)
	outside := int64(5)

	tests := []struct {
		name    string
		mutate  func(*Round)
		wantErr string
	}{
		{name: "valid open round", mutate: func(r *Round) {}},
		{
			name: "valid completed round",
			mutate: func(r *Round) {
				r.State = RoundStateCompleted
				r.Winner = &winner
				r.RandomSeed = big.NewInt(13)
				r.WinningSlot = &slot
				r.PrizeClaimed = true
			},
		},
		{
			name:    "unknown state",
			mutate:  func(r *Round) { r.State = "paused" },
			wantErr: "invalid state",
		},
		{
			name:    "total mismatch",
			mutate:  func(r *Round) { r.TotalTickets = 6; r.PrizePool = 12 },
			wantErr: "participant sum",
		},
		{
			name:    "prize pool mismatch",
			mutate:  func(r *Round) { r.PrizePool = 9 },
			wantErr: "prize pool",
		},
		{
			name: "duplicate participant",
			mutate: func(r *Round) {
				r.Participants = append(r.Participants, Participant{Account: testAccountA, TicketCount: 1})
				r.TotalTickets = 6
				r.PrizePool = 12
			},
			wantErr: "listed twice",
		},
		{
			name: "empty entry",
			mutate: func(r *Round) {
				r.Participants = append(r.Participants, Participant{Account: MustParseAccount("0x00000000000000000000000000000000000000C3")})
			},
			wantErr: "has 0 tickets",
		},
		{
			name:    "winner before completion",
			mutate:  func(r *Round) { r.State = RoundStateDrawing; r.Winner = &winner },
			wantErr: "winner presence",
		},
		{
			name:    "completed without winner",
			mutate:  func(r *Round) { r.State = RoundStateCompleted },
			wantErr: "winner presence",
		},
		{
			name: "winner without seed",
			mutate: func(r *Round) {
				r.State = RoundStateCompleted
				r.Winner = &winner
				r.WinningSlot = &slot
			},
			wantErr: "recorded together with the winner",
		},
		{
			name: "seed without winner",
			mutate: func(r *Round) {
				r.State = RoundStateCompleted
				r.Participants = nil
				r.TotalTickets = 0
				r.PrizePool = 0
				r.RandomSeed = big.NewInt(13)
			},
			wantErr: "recorded together with the winner",
		},
		{
			name: "winning slot beyond tickets",
			mutate: func(r *Round) {
				r.State = RoundStateCompleted
				r.Winner = &winner
				r.RandomSeed = big.NewInt(13)
				r.WinningSlot = &outside
			},
			wantErr: "outside [0, 5)",
		},
		{
			name:    "claimed without winner",
			mutate:  func(r *Round) { r.PrizeClaimed = true },
			wantErr: "claimed without a winner",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			round := createTestRound(tt.mutate)
			err := round.CheckInvariants()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestRound_CheckInvariants_EmptyCompletedRound(t *testing.T) {
	t.Parallel()

	round := createTestRound(func(r *Round) {
		r.State = RoundStateCompleted
		r.Participants = nil
		r.TotalTickets = 0
		r.PrizePool = 0
	})
	assert.NoError(t, round.CheckInvariants())
}

func TestRound_CanClose(t *testing.T) {
	t.Parallel()

	round := createTestRound()
	assert.ErrorIs(t, round.CanClose(round.EndTime.Add(-time.Second)), ErrNotReady)
	assert.NoError(t, round.CanClose(round.EndTime))

	round.Policy.MinParticipants = 3
	assert.ErrorIs(t, round.CanClose(round.EndTime), ErrNotReady)

	round.Policy.CloseRule = CloseRuleTimeOnly
	assert.NoError(t, round.CanClose(round.EndTime))

	round.Policy.CloseRule = CloseRuleParticipantsOnly
	round.Policy.MinParticipants = 2
	assert.NoError(t, round.CanClose(round.StartTime))
}

func TestRound_Clone(t *testing.T) {
	t.Parallel()

	winner := testAccountB
	slot := int64(3)
	closed := time.Now()
	round := createTestRound(func(r *Round) {
		r.State = RoundStateCompleted
		r.Winner = &winner
		r.RandomSeed = big.NewInt(13)
		r.WinningSlot = &slot
		r.ClosedAt = &closed
	})

	clone := round.Clone()
	require.Equal(t, round, clone)

	clone.Participants[0].TicketCount = 99
	clone.RandomSeed.SetInt64(1)
	*clone.WinningSlot = 0
	*clone.ClosedAt = closed.Add(time.Hour)

	assert.Equal(t, int64(3), round.Participants[0].TicketCount)
	assert.Equal(t, int64(13), round.RandomSeed.Int64())
	assert.Equal(t, int64(3), *round.WinningSlot)
	assert.Equal(t, closed, *round.ClosedAt)

	empty := createTestRound(func(r *Round) {
		r.Participants = []Participant{}
		r.TotalTickets = 0
		r.PrizePool = 0
	})
	assert.NotNil(t, empty.Clone().Participants)
	data, err := json.Marshal(empty.Clone())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"participants":[]`)
}

func TestRound_JSON(t *testing.T) {
	t.Parallel()

	winner := testAccountB
	round := createTestRound(func(r *Round) {
		r.State = RoundStateCompleted
		r.Winner = &winner
		r.RandomSeed, _ = new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
	})

	data, err := json.Marshal(round)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"winner":"`+winner.String()+`"`)
	assert.Contains(t, string(data), `"random_seed":115792089237316195423570985008687907853269984665640564039457584007913129639935`)
}

func TestParseCloseRule(t *testing.T) {
	t.Parallel()

	rule, err := ParseCloseRule("")
	require.NoError(t, err)
	assert.Equal(t, CloseRuleTimeAndParticipants, rule)

	rule, err = ParseCloseRule("time_only")
	require.NoError(t, err)
	assert.Equal(t, CloseRuleTimeOnly, rule)

	_, err = ParseCloseRule("sometimes")
	assert.Error(t, err)
}
