package infrastructure

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"

	"raffle/domain/events"
	"raffle/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// FulfillmentSink receives an encoded RandomnessFulfilledMessage
type FulfillmentSink = func(ctx context.Context, data []byte) error

// LocalOracle answers randomness requests with values from crypto/rand. It is
// a development stand-in for the external VRF oracle and proves nothing.
type LocalOracle struct {
	source  io.Reader
	deliver FulfillmentSink
}

// NewLocalOracle creates an oracle that hands fulfillments to deliver. A nil
// source uses crypto/rand.
func NewLocalOracle(source io.Reader, deliver FulfillmentSink) *LocalOracle {
	if source == nil {
		source = rand.Reader
	}
	return &LocalOracle{source: source, deliver: deliver}
}

// NATSSink publishes fulfillments on the oracle stream
func NATSSink(client natsPublisher) FulfillmentSink {
	return func(ctx context.Context, data []byte) error {
		return client.Publish(ctx, SubjectRandomnessFulfilled, data)
	}
}

// Fulfill draws a uint256 for request and delivers it
func (o *LocalOracle) Fulfill(ctx context.Context, request events.RandomnessRequestMessage) error {
	value, err := rand.Int(o.source, interfaces.RandomValueBound)
	if err != nil {
		return fmt.Errorf("failed to draw random value: %w", err)
	}

	data, err := json.Marshal(events.RandomnessFulfilledMessage{
		RequestID:   request.RequestID,
		RoundID:     request.RoundID,
		RandomValue: value.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal randomness fulfillment: %w", err)
	}

	if err := o.deliver(ctx, data); err != nil {
		return fmt.Errorf("failed to deliver randomness for round %d: %w", request.RoundID, err)
	}

	log.WithFields(log.Fields{
		"round_id":   request.RoundID,
		"request_id": request.RequestID,
	}).Info("Local oracle fulfilled randomness request")
	return nil
}

// HandleMessage answers an enveloped request read from NATS
func (o *LocalOracle) HandleMessage(ctx context.Context, data []byte) error {
	var request events.RandomnessRequestMessage
	if _, err := DecodeEnvelope(data, &request); err != nil {
		// A malformed request can never succeed; acknowledge and drop it
		log.WithError(err).Error("Dropping malformed randomness request")
		return nil
	}
	return o.Fulfill(ctx, request)
}

// HandleEvent answers a request published in process
func (o *LocalOracle) HandleEvent(ctx context.Context, event events.Event) error {
	e, ok := event.(events.RandomnessRequestedEvent)
	if !ok {
		return fmt.Errorf("local oracle cannot handle %s", event.Type())
	}
	return o.Fulfill(ctx, events.RandomnessRequestMessage{RequestID: e.RequestID, RoundID: e.RoundID})
}
