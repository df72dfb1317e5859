package application

import (
	"context"

	"raffle/domain/events"
)

// LocalHandlerRegistry runs handlers in process when an event is published
type LocalHandlerRegistry interface {
	RegisterLocalHandler(eventType events.EventType, handler func(ctx context.Context, event events.Event) error)
}

// MessageSubscriber delivers messages from a durable subscription. A handler
// error asks for redelivery.
type MessageSubscriber interface {
	Subscribe(ctx context.Context, subject string, handler func(ctx context.Context, data []byte) error) error
}

// RandomnessMetrics counts processed randomness fulfillments
type RandomnessMetrics interface {
	RecordRandomness(outcome string)
}
