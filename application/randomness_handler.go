package application

import (
	"context"
	"errors"

	"raffle/domain/entities"
	"raffle/domain/events"
	"raffle/domain/interfaces"
	"raffle/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// RandomnessHandler applies oracle fulfillments to Drawing rounds. The return
// value decides delivery: nil acknowledges, an error asks for redelivery.
type RandomnessHandler struct {
	settlement interfaces.SettlementService
	metrics    RandomnessMetrics
}

// NewRandomnessHandler creates a fulfillment handler. metrics may be nil.
func NewRandomnessHandler(settlement interfaces.SettlementService, metrics RandomnessMetrics) *RandomnessHandler {
	return &RandomnessHandler{
		settlement: settlement,
		metrics:    metrics,
	}
}

func (h *RandomnessHandler) record(outcome string) {
	if h.metrics != nil {
		h.metrics.RecordRandomness(outcome)
	}
}

// HandleMessage processes one encoded RandomnessFulfilledMessage
func (h *RandomnessHandler) HandleMessage(ctx context.Context, data []byte) error {
	msg, err := events.DecodeRandomnessFulfilled(data)
	if err != nil {
		log.WithError(err).Error("dropping malformed randomness fulfillment")
		h.record(observability.OutcomeMalformed)
		return nil
	}
	return h.Handle(ctx, msg)
}

// Handle resolves the round named by msg
func (h *RandomnessHandler) Handle(ctx context.Context, msg events.RandomnessFulfilledMessage) error {
	logger := log.WithFields(log.Fields{
		"round_id":   msg.RoundID,
		"request_id": msg.RequestID,
	})

	value, err := msg.Value()
	if err != nil {
		logger.WithError(err).Error("dropping randomness fulfillment with unparseable value")
		h.record(observability.OutcomeMalformed)
		return nil
	}

	result, err := h.settlement.ResolveWinner(ctx, msg.RoundID, value)
	switch {
	case err == nil && result.Duplicate:
		h.record(observability.OutcomeDuplicate)
		return nil
	case err == nil:
		h.record(observability.OutcomeResolved)
		logger.WithField("winner", result.Winner.String()).Info("randomness fulfillment applied")
		return nil
	case isPermanent(err):
		// Redelivery cannot change the outcome
		logger.WithError(err).Warn("randomness fulfillment rejected")
		h.record(observability.OutcomeRejected)
		return nil
	default:
		logger.WithError(err).Error("randomness fulfillment failed, will retry")
		h.record(observability.OutcomeRetry)
		return err
	}
}

func isPermanent(err error) bool {
	return errors.Is(err, entities.ErrAlreadyResolved) ||
		errors.Is(err, entities.ErrInvalidRandomValue) ||
		errors.Is(err, entities.ErrRoundNotFound) ||
		errors.Is(err, entities.ErrNotReady) ||
		errors.Is(err, entities.ErrRoundClosed)
}
