package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"raffle/domain/entities"
	"raffle/domain/events"
	"raffle/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// DefaultRequestRetry is how long a Drawing round waits for randomness
// before the request is sent again
const DefaultRequestRetry = 5 * time.Minute

// OracleRequester asks the oracle for randomness when a round starts drawing
// and repeats the request for rounds that stay unresolved
type OracleRequester struct {
	publisher  interfaces.EventPublisher
	retryAfter time.Duration
	clock      func() time.Time

	mu        sync.Mutex
	requested map[int64]time.Time
}

// NewOracleRequester creates a requester publishing through publisher
func NewOracleRequester(publisher interfaces.EventPublisher, retryAfter time.Duration) *OracleRequester {
	if retryAfter <= 0 {
		retryAfter = DefaultRequestRetry
	}
	return &OracleRequester{
		publisher:  publisher,
		retryAfter: retryAfter,
		clock:      func() time.Time { return time.Now().UTC() },
		requested:  make(map[int64]time.Time),
	}
}

// HandleRoundDrawing requests randomness for a round that just closed
func (r *OracleRequester) HandleRoundDrawing(ctx context.Context, event events.Event) error {
	e, ok := event.(events.RoundDrawingEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %s", event.Type())
	}
	return r.request(e.RoundID, r.clock())
}

// HandleRoundCompleted stops tracking a resolved round
func (r *OracleRequester) HandleRoundCompleted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.RoundCompletedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %s", event.Type())
	}
	r.mu.Lock()
	delete(r.requested, e.RoundID)
	r.mu.Unlock()
	return nil
}

// EnsureRequested re-sends the request for a Drawing round whose last request
// is older than the retry interval or was never sent by this process
func (r *OracleRequester) EnsureRequested(ctx context.Context, round *entities.Round, now time.Time) error {
	if !round.IsDrawing() || round.HasWinner() {
		return nil
	}

	r.mu.Lock()
	last, ok := r.requested[round.ID]
	r.mu.Unlock()
	if ok && now.Sub(last) < r.retryAfter {
		return nil
	}

	if ok {
		log.WithFields(log.Fields{
			"round_id":     round.ID,
			"last_request": last,
		}).Warn("randomness not delivered, requesting again")
	}
	return r.request(round.ID, now)
}

func (r *OracleRequester) request(roundID int64, now time.Time) error {
	requestID := uuid.New().String()

	// Recorded first: an in-process oracle may complete the round before
	// Publish returns
	r.mu.Lock()
	previous, hadPrevious := r.requested[roundID]
	r.requested[roundID] = now
	r.mu.Unlock()

	if err := r.publisher.Publish(events.RandomnessRequestedEvent{
		RoundID:   roundID,
		RequestID: requestID,
	}); err != nil {
		r.mu.Lock()
		if hadPrevious {
			r.requested[roundID] = previous
		} else {
			delete(r.requested, roundID)
		}
		r.mu.Unlock()
		return fmt.Errorf("failed to request randomness for round %d: %w", roundID, err)
	}

	log.WithFields(log.Fields{
		"round_id":   roundID,
		"request_id": requestID,
	}).Info("randomness requested")
	return nil
}

// Pending returns the rounds awaiting randomness
func (r *OracleRequester) Pending() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.requested))
	for id := range r.requested {
		ids = append(ids, id)
	}
	return ids
}
