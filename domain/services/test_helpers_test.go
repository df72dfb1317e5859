package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"raffle/domain/entities"
	"raffle/domain/interfaces"
	"raffle/domain/testhelpers"
	"raffle/repository/memory"

	"github.com/stretchr/testify/require"
)

var (
	accountA = entities.MustParseAccount("0x00000000000000000000000000000000000000A1")
	accountB = entities.MustParseAccount("0x00000000000000000000000000000000000000B2")
	accountC = entities.MustParseAccount("0x00000000000000000000000000000000000000C3")
)

// testClock is a manually advanced time source
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func defaultTestParams() interfaces.RoundParams {
	return interfaces.RoundParams{
		TicketPrice: 1,
		Policy: entities.RoundPolicy{
			MinParticipants: 2,
			MinDuration:     time.Hour,
			CloseRule:       entities.CloseRuleTimeAndParticipants,
		},
	}
}

type testEngine struct {
	*Engine
	store     *memory.LedgerStore
	publisher *testhelpers.RecordingPublisher
	clock     *testClock
}

func newTestEngine(t *testing.T, params interfaces.RoundParams) *testEngine {
	t.Helper()
	publisher := &testhelpers.RecordingPublisher{}
	store := memory.NewLedgerStore(publisher)
	clock := newTestClock()
	return &testEngine{
		Engine:    NewEngine(store, publisher, params, WithClock(clock.Now)),
		store:     store,
		publisher: publisher,
		clock:     clock,
	}
}

// openRound opens a round with the engine defaults
func (e *testEngine) openRound(t *testing.T) *entities.Round {
	t.Helper()
	round, err := e.Rounds.EnsureCurrentRound(context.Background())
	require.NoError(t, err)
	return round
}

func (e *testEngine) buy(t *testing.T, roundID int64, account entities.Account, count int64) {
	t.Helper()
	_, err := e.Tickets.BuyTickets(context.Background(), roundID, account, count, 1)
	require.NoError(t, err)
}

// drawingRound returns a round where A holds 3 tickets and B holds 2, closed
// for drawing
func (e *testEngine) drawingRound(t *testing.T) *entities.Round {
	t.Helper()
	round := e.openRound(t)
	e.buy(t, round.ID, accountA, 3)
	e.buy(t, round.ID, accountB, 2)
	e.clock.Advance(2 * time.Hour)

	round, err := e.Rounds.BeginDrawing(context.Background(), round.ID, e.clock.Now())
	require.NoError(t, err)
	require.Equal(t, entities.RoundStateDrawing, round.State)
	return round
}
