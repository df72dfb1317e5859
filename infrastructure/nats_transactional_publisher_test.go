package infrastructure

import (
	"context"
	"errors"
	"sync"
	"testing"

	"raffle/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockEventPublisher records published events and can be told to fail
type MockEventPublisher struct {
	mu              sync.Mutex
	PublishedEvents []events.Event
	PublishError    error
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishError != nil {
		return m.PublishError
	}
	m.PublishedEvents = append(m.PublishedEvents, event)
	return nil
}

func TestNATSTransactionalPublisher_FlushPreservesOrder(t *testing.T) {
	t.Parallel()

	mockPublisher := &MockEventPublisher{}
	transPublisher := NewNATSTransactionalPublisher(mockPublisher)

	first := events.WinnerResolvedEvent{RoundID: 1, Winner: "a", RandomValue: "7", WinningSlot: 2}
	second := events.RoundCompletedEvent{RoundID: 1, Winner: "a", PrizePool: 10}
	require.NoError(t, transPublisher.Publish(first))
	require.NoError(t, transPublisher.Publish(second))

	assert.Empty(t, mockPublisher.PublishedEvents, "nothing is published before flush")

	require.NoError(t, transPublisher.Flush(context.Background()))
	assert.Equal(t, []events.Event{first, second}, mockPublisher.PublishedEvents)

	// A second flush has nothing left to send
	require.NoError(t, transPublisher.Flush(context.Background()))
	assert.Len(t, mockPublisher.PublishedEvents, 2)
}

func TestNATSTransactionalPublisher_HandlersRunAfterFlush(t *testing.T) {
	t.Parallel()

	realPublisher := NewLocalEventPublisher()
	transPublisher := NewNATSTransactionalPublisher(realPublisher)

	var calls []string
	realPublisher.RegisterLocalHandler(events.EventTypeRoundDrawing, func(ctx context.Context, event events.Event) error {
		calls = append(calls, "first")
		return errors.New("handler failure does not stop the others")
	})
	realPublisher.RegisterLocalHandler(events.EventTypeRoundDrawing, func(ctx context.Context, event events.Event) error {
		calls = append(calls, "second")
		return nil
	})

	require.NoError(t, transPublisher.Publish(events.RoundDrawingEvent{RoundID: 3, TotalTickets: 5}))
	assert.Empty(t, calls)

	require.NoError(t, transPublisher.Flush(context.Background()))
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestNATSTransactionalPublisher_Discard(t *testing.T) {
	t.Parallel()

	mockPublisher := &MockEventPublisher{}
	transPublisher := NewNATSTransactionalPublisher(mockPublisher)

	require.NoError(t, transPublisher.Publish(events.PrizeClaimedEvent{RoundID: 1, Amount: 5}))
	transPublisher.Discard()
	require.NoError(t, transPublisher.Flush(context.Background()))

	assert.Empty(t, mockPublisher.PublishedEvents)
}

func TestNATSTransactionalPublisher_PublishFailureContinues(t *testing.T) {
	t.Parallel()

	mockPublisher := &MockEventPublisher{PublishError: errors.New("nats down")}
	transPublisher := NewNATSTransactionalPublisher(mockPublisher)

	require.NoError(t, transPublisher.Publish(events.RoundOpenedEvent{RoundID: 1}))
	require.NoError(t, transPublisher.Publish(events.RoundOpenedEvent{RoundID: 2}))

	// Flush reports success; the commit it follows is already durable
	assert.NoError(t, transPublisher.Flush(context.Background()))
}

func TestLocalEventPublisher(t *testing.T) {
	t.Parallel()

	publisher := NewLocalEventPublisher()
	var received []events.Event
	publisher.RegisterLocalHandler(events.EventTypeRoundOpened, func(ctx context.Context, event events.Event) error {
		received = append(received, event)
		return nil
	})

	require.NoError(t, publisher.Publish(events.RoundOpenedEvent{RoundID: 9}))
	require.NoError(t, publisher.Publish(events.PrizeClaimedEvent{RoundID: 9}))

	assert.Equal(t, []events.Event{events.RoundOpenedEvent{RoundID: 9}}, received)
}
