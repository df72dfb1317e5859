package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"raffle/domain/entities"
	"raffle/domain/events"
	"raffle/domain/interfaces"
	"raffle/domain/services"
	"raffle/infrastructure"
	"raffle/repository/memory"

	"github.com/stretchr/testify/require"
)

var (
	accountA = entities.MustParseAccount("0x00000000000000000000000000000000000000A1")
	accountB = entities.MustParseAccount("0x00000000000000000000000000000000000000B2")
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)}
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

// harness runs the raffle in memory with the oracle round trip wired through
// local handlers, the way serve does without NATS
type harness struct {
	engine    *services.Engine
	store     *memory.LedgerStore
	publisher *infrastructure.LocalEventPublisher
	requester *OracleRequester
	handler   *RandomnessHandler
	worker    *RoundCloseWorker
	clock     *testClock
}

func newHarness(t *testing.T, withOracle bool) *harness {
	t.Helper()

	clock := newTestClock()
	publisher := infrastructure.NewLocalEventPublisher()
	store := memory.NewLedgerStore(publisher)
	engine := services.NewEngine(store, publisher, interfaces.RoundParams{
		TicketPrice: 2,
		Policy: entities.RoundPolicy{
			MinParticipants: 2,
			MinDuration:     time.Hour,
			CloseRule:       entities.CloseRuleTimeAndParticipants,
		},
	}, services.WithClock(clock.Now))

	requester := NewOracleRequester(publisher, time.Minute)
	requester.clock = clock.Now
	RegisterApplicationSubscriptions(publisher, requester)

	handler := NewRandomnessHandler(engine.Settlement, nil)
	if withOracle {
		oracle := infrastructure.NewLocalOracle(nil, handler.HandleMessage)
		publisher.RegisterLocalHandler(events.EventTypeRandomnessRequest, oracle.HandleEvent)
	}

	return &harness{
		engine:    engine,
		store:     store,
		publisher: publisher,
		requester: requester,
		handler:   handler,
		worker:    NewRoundCloseWorker(engine.Rounds, requester, 5*time.Millisecond).WithClock(clock.Now),
		clock:     clock,
	}
}

func (h *harness) buy(t *testing.T, roundID int64, account entities.Account, count int64) {
	t.Helper()
	_, err := h.engine.Tickets.BuyTickets(context.Background(), roundID, account, count, 2)
	require.NoError(t, err)
}
