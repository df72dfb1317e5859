package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"raffle/domain/entities"
	"raffle/domain/events"
	"raffle/domain/interfaces"
	"raffle/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRoundService_OpenRound(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, defaultTestParams())
	ctx := context.Background()

	round, err := e.Rounds.OpenRound(ctx, defaultTestParams())
	require.NoError(t, err)

	assert.Equal(t, int64(1), round.ID)
	assert.Equal(t, entities.RoundStateOpen, round.State)
	assert.Equal(t, int64(1), round.TicketPrice)
	assert.Equal(t, e.clock.Now(), round.StartTime)
	assert.Equal(t, e.clock.Now().Add(time.Hour), round.EndTime)
	assert.Nil(t, round.Winner)
	assert.Nil(t, round.RandomSeed)
	assert.Nil(t, round.ClosedAt)

	opened := e.publisher.OfType(events.EventTypeRoundOpened)
	require.Len(t, opened, 1)
	assert.Equal(t, round.ID, opened[0].(events.RoundOpenedEvent).RoundID)

	_, err = e.Rounds.OpenRound(ctx, defaultTestParams())
	assert.ErrorIs(t, err, entities.ErrRoundInProgress)
}

func TestRoundService_OpenRound_InvalidParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*interfaces.RoundParams)
	}{
		{
			name:   "zero ticket price",
			mutate: func(p *interfaces.RoundParams) { p.TicketPrice = 0 },
		},
		{
			name:   "negative ticket price",
			mutate: func(p *interfaces.RoundParams) { p.TicketPrice = -5 },
		},
		{
			name:   "no minimum participants",
			mutate: func(p *interfaces.RoundParams) { p.Policy.MinParticipants = 0 },
		},
		{
			name:   "negative duration",
			mutate: func(p *interfaces.RoundParams) { p.Policy.MinDuration = -time.Second },
		},
		{
			name:   "unknown close rule",
			mutate: func(p *interfaces.RoundParams) { p.Policy.CloseRule = "whenever" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := new(testhelpers.MockLedgerStore)
			publisher := new(testhelpers.MockEventPublisher)
			service := NewRoundService(store, publisher, defaultTestParams())

			params := defaultTestParams()
			tt.mutate(&params)

			_, err := service.OpenRound(context.Background(), params)
			assert.Error(t, err)
			store.AssertNotCalled(t, "CreateRound", mock.Anything, mock.Anything)
			publisher.AssertNotCalled(t, "Publish", mock.Anything)
		})
	}
}

func TestRoundService_EnsureCurrentRound(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, defaultTestParams())
	ctx := context.Background()

	first, err := e.Rounds.EnsureCurrentRound(ctx)
	require.NoError(t, err)

	again, err := e.Rounds.EnsureCurrentRound(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID, "existing round is reused")

	e.buy(t, first.ID, accountA, 1)
	e.buy(t, first.ID, accountB, 1)
	e.clock.Advance(2 * time.Hour)
	_, err = e.Rounds.BeginDrawing(ctx, first.ID, e.clock.Now())
	require.NoError(t, err)

	// Drawing rounds are still in progress
	drawing, err := e.Rounds.EnsureCurrentRound(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, drawing.ID)

	res, err := e.Settlement.ResolveWinner(ctx, first.ID, bigInt(7))
	require.NoError(t, err)
	require.NotNil(t, res.NextRound)
	assert.Equal(t, first.ID+1, res.NextRound.ID)

	next, err := e.Rounds.EnsureCurrentRound(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.NextRound.ID, next.ID)
}

func TestRoundService_EnsureCurrentRound_StoreError(t *testing.T) {
	t.Parallel()

	store := new(testhelpers.MockLedgerStore)
	store.On("CurrentRound", mock.Anything).Return(nil, errors.New("connection refused"))

	service := NewRoundService(store, new(testhelpers.MockEventPublisher), defaultTestParams())
	_, err := service.EnsureCurrentRound(context.Background())
	assert.ErrorContains(t, err, "connection refused")
	store.AssertExpectations(t)
}

func TestRoundService_BeginDrawing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		rule      entities.CloseRule
		buys      map[entities.Account]int64
		advance   time.Duration
		wantErr   error
		wantState entities.RoundState
	}{
		{
			name:      "ready when time elapsed and enough players",
			rule:      entities.CloseRuleTimeAndParticipants,
			buys:      map[entities.Account]int64{accountA: 3, accountB: 2},
			advance:   time.Hour,
			wantState: entities.RoundStateDrawing,
		},
		{
			name:      "too early",
			rule:      entities.CloseRuleTimeAndParticipants,
			buys:      map[entities.Account]int64{accountA: 3, accountB: 2},
			advance:   59 * time.Minute,
			wantErr:   entities.ErrNotReady,
			wantState: entities.RoundStateOpen,
		},
		{
			name:      "one participant is not enough",
			rule:      entities.CloseRuleTimeAndParticipants,
			buys:      map[entities.Account]int64{accountA: 10},
			advance:   48 * time.Hour,
			wantErr:   entities.ErrNotReady,
			wantState: entities.RoundStateOpen,
		},
		{
			name:      "time only ignores participant count",
			rule:      entities.CloseRuleTimeOnly,
			buys:      map[entities.Account]int64{accountA: 1},
			advance:   time.Hour,
			wantState: entities.RoundStateDrawing,
		},
		{
			name:      "time only still needs a ticket",
			rule:      entities.CloseRuleTimeOnly,
			advance:   time.Hour,
			wantErr:   entities.ErrNotReady,
			wantState: entities.RoundStateOpen,
		},
		{
			name:      "participants only ignores time",
			rule:      entities.CloseRuleParticipantsOnly,
			buys:      map[entities.Account]int64{accountA: 1, accountB: 1},
			wantState: entities.RoundStateDrawing,
		},
		{
			name:      "participants only waits for players",
			rule:      entities.CloseRuleParticipantsOnly,
			buys:      map[entities.Account]int64{accountC: 4},
			advance:   time.Hour,
			wantErr:   entities.ErrNotReady,
			wantState: entities.RoundStateOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			params := defaultTestParams()
			params.Policy.CloseRule = tt.rule
			e := newTestEngine(t, params)
			ctx := context.Background()

			round := e.openRound(t)
			for account, count := range tt.buys {
				e.buy(t, round.ID, account, count)
			}
			e.clock.Advance(tt.advance)

			_, err := e.Rounds.BeginDrawing(ctx, round.ID, e.clock.Now())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}

			stored, err := e.store.GetRound(ctx, round.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, stored.State)
			if tt.wantState == entities.RoundStateDrawing {
				require.NotNil(t, stored.ClosedAt)
				assert.Equal(t, e.clock.Now(), *stored.ClosedAt)
				assert.Len(t, e.publisher.OfType(events.EventTypeRoundDrawing), 1)
			} else {
				assert.Nil(t, stored.ClosedAt)
				assert.Empty(t, e.publisher.OfType(events.EventTypeRoundDrawing))
			}
		})
	}
}

func TestRoundService_BeginDrawing_Idempotent(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, defaultTestParams())
	ctx := context.Background()
	round := e.drawingRound(t)
	closedAt := *round.ClosedAt

	e.clock.Advance(time.Minute)
	again, err := e.Rounds.BeginDrawing(ctx, round.ID, e.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, entities.RoundStateDrawing, again.State)
	assert.Equal(t, closedAt, *again.ClosedAt, "closing time is not moved by a retry")
	assert.Len(t, e.publisher.OfType(events.EventTypeRoundDrawing), 1)
}

func TestRoundService_BeginDrawing_NotFound(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, defaultTestParams())
	_, err := e.Rounds.BeginDrawing(context.Background(), 42, e.clock.Now())
	assert.ErrorIs(t, err, entities.ErrRoundNotFound)
}

func TestRoundService_CompleteRound(t *testing.T) {
	t.Parallel()

	t.Run("open round is not ready", func(t *testing.T) {
		t.Parallel()
		e := newTestEngine(t, defaultTestParams())
		round := e.openRound(t)

		_, err := e.Rounds.CompleteRound(context.Background(), round.ID)
		assert.ErrorIs(t, err, entities.ErrNotReady)
	})

	t.Run("drawing round waits for randomness", func(t *testing.T) {
		t.Parallel()
		e := newTestEngine(t, defaultTestParams())
		round := e.drawingRound(t)

		_, err := e.Rounds.CompleteRound(context.Background(), round.ID)
		assert.ErrorIs(t, err, entities.ErrRandomnessPending)

		stored, err := e.store.GetRound(context.Background(), round.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.RoundStateDrawing, stored.State)
	})

	t.Run("completed round is a no-op", func(t *testing.T) {
		t.Parallel()
		e := newTestEngine(t, defaultTestParams())
		round := e.drawingRound(t)
		_, err := e.Settlement.ResolveWinner(context.Background(), round.ID, bigInt(13))
		require.NoError(t, err)

		completed, err := e.Rounds.CompleteRound(context.Background(), round.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.RoundStateCompleted, completed.State)
		assert.Len(t, e.publisher.OfType(events.EventTypeRoundCompleted), 1)
	})
}

func TestCalculateEndTime(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 14, 12, 30, 0, 0, time.UTC) // Friday

	hourly, err := ParseSchedule("0 * * * *")
	require.NoError(t, err)
	weekly, err := ParseSchedule("0 14 * * 5")
	require.NoError(t, err)

	tests := []struct {
		name        string
		minDuration time.Duration
		expr        string
		want        time.Time
	}{
		{
			name:        "duration only",
			minDuration: 10 * time.Minute,
			want:        now.Add(10 * time.Minute),
		},
		{
			name:        "schedule later than duration",
			minDuration: 10 * time.Minute,
			expr:        "hourly",
			want:        time.Date(2025, 3, 14, 13, 0, 0, 0, time.UTC),
		},
		{
			name:        "duration later than schedule",
			minDuration: 2 * time.Hour,
			expr:        "hourly",
			want:        now.Add(2 * time.Hour),
		},
		{
			name:        "weekly draw",
			minDuration: time.Minute,
			expr:        "weekly",
			want:        time.Date(2025, 3, 14, 14, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			switch tt.expr {
			case "hourly":
				assert.Equal(t, tt.want, CalculateEndTime(now, tt.minDuration, hourly))
			case "weekly":
				assert.Equal(t, tt.want, CalculateEndTime(now, tt.minDuration, weekly))
			default:
				assert.Equal(t, tt.want, CalculateEndTime(now, tt.minDuration, nil))
			}
		})
	}
}

func TestParseSchedule(t *testing.T) {
	t.Parallel()

	schedule, err := ParseSchedule("")
	assert.NoError(t, err)
	assert.Nil(t, schedule)

	_, err = ParseSchedule("every tuesday")
	assert.Error(t, err)
}
