package application

import (
	"context"
	"fmt"

	"raffle/domain/events"
	"raffle/infrastructure"
)

// RegisterApplicationSubscriptions wires the oracle round trip into the event
// flow: Drawing rounds request randomness and completed rounds stop being chased
func RegisterApplicationSubscriptions(registry LocalHandlerRegistry, requester *OracleRequester) {
	registry.RegisterLocalHandler(events.EventTypeRoundDrawing, requester.HandleRoundDrawing)
	registry.RegisterLocalHandler(events.EventTypeRoundCompleted, requester.HandleRoundCompleted)
}

// SubscribeRandomness consumes oracle fulfillments from the message bus
func SubscribeRandomness(ctx context.Context, subscriber MessageSubscriber, handler *RandomnessHandler) error {
	if err := subscriber.Subscribe(ctx, infrastructure.SubjectRandomnessFulfilled, handler.HandleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to randomness fulfillments: %w", err)
	}
	return nil
}
