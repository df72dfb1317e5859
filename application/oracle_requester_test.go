package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"raffle/domain/entities"
	"raffle/domain/events"
	"raffle/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestOracleRequester_RequestLifecycle(t *testing.T) {
	t.Parallel()

	publisher := &testhelpers.RecordingPublisher{}
	requester := NewOracleRequester(publisher, time.Minute)
	ctx := context.Background()

	require.NoError(t, requester.HandleRoundDrawing(ctx, events.RoundDrawingEvent{RoundID: 3}))
	requests := publisher.OfType(events.EventTypeRandomnessRequest)
	require.Len(t, requests, 1)
	request := requests[0].(events.RandomnessRequestedEvent)
	assert.Equal(t, int64(3), request.RoundID)
	assert.NotEmpty(t, request.RequestID)
	assert.Equal(t, []int64{3}, requester.Pending())

	require.NoError(t, requester.HandleRoundCompleted(ctx, events.RoundCompletedEvent{RoundID: 3}))
	assert.Empty(t, requester.Pending())

	assert.Error(t, requester.HandleRoundDrawing(ctx, events.RoundOpenedEvent{RoundID: 3}))
	assert.Error(t, requester.HandleRoundCompleted(ctx, events.RoundOpenedEvent{RoundID: 3}))
}

func TestOracleRequester_EnsureRequested(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	winner := accountA

	tests := []struct {
		name  string
		round *entities.Round
		want  int
	}{
		{"open round", &entities.Round{ID: 1, State: entities.RoundStateOpen}, 0},
		{"drawing round never requested", &entities.Round{ID: 1, State: entities.RoundStateDrawing}, 1},
		{"drawing round already resolved", &entities.Round{ID: 1, State: entities.RoundStateDrawing, Winner: &winner}, 0},
		{"completed round", &entities.Round{ID: 1, State: entities.RoundStateCompleted, Winner: &winner}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			publisher := &testhelpers.RecordingPublisher{}
			requester := NewOracleRequester(publisher, time.Minute)

			require.NoError(t, requester.EnsureRequested(context.Background(), tt.round, now))
			assert.Len(t, publisher.Events(), tt.want)
		})
	}
}

func TestOracleRequester_PublishFailure(t *testing.T) {
	t.Parallel()

	publisher := new(testhelpers.MockEventPublisher)
	publisher.On("Publish", mock.Anything).Return(errors.New("bus unavailable"))
	requester := NewOracleRequester(publisher, 0)

	err := requester.HandleRoundDrawing(context.Background(), events.RoundDrawingEvent{RoundID: 8})
	assert.ErrorContains(t, err, "bus unavailable")
	assert.Empty(t, requester.Pending(), "a failed request is retried by the next check")
}
