package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raffle/domain/entities"
	"raffle/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// RoundCloseWorker keeps a round in progress, closes it once its close rule
// holds and chases randomness for rounds stuck in Drawing
type RoundCloseWorker struct {
	rounds    interfaces.RoundService
	requester *OracleRequester
	interval  time.Duration
	clock     func() time.Time
}

// NewRoundCloseWorker creates a new round close worker. requester may be nil
// when randomness is requested elsewhere.
func NewRoundCloseWorker(rounds interfaces.RoundService, requester *OracleRequester, interval time.Duration) *RoundCloseWorker {
	return &RoundCloseWorker{
		rounds:    rounds,
		requester: requester,
		interval:  interval,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the worker's time source
func (w *RoundCloseWorker) WithClock(clock func() time.Time) *RoundCloseWorker {
	w.clock = clock
	return w
}

// Start begins the worker loop and returns its stop function
func (w *RoundCloseWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		log.WithField("interval", w.interval).Info("Round close worker started")

		for {
			if err := w.RunOnce(ctx); err != nil {
				log.WithError(err).Error("Round close check failed")
			}

			select {
			case <-ctx.Done():
				log.Info("Round close worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Round close worker shutting down (stop requested)...")
				return
			case <-time.After(w.interval):
			}
		}
	}()

	return func() {
		close(stopChan)
		<-done
	}
}

// RunOnce performs one check of the current round
func (w *RoundCloseWorker) RunOnce(ctx context.Context) error {
	round, err := w.rounds.EnsureCurrentRound(ctx)
	if err != nil {
		return fmt.Errorf("failed to ensure current round: %w", err)
	}
	now := w.clock()

	switch round.State {
	case entities.RoundStateOpen:
		if err := round.CanClose(now); err != nil {
			return nil
		}
		closed, err := w.rounds.BeginDrawing(ctx, round.ID, now)
		if errors.Is(err, entities.ErrNotReady) {
			// The snapshot was stale
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to close round %d: %w", round.ID, err)
		}
		log.WithFields(log.Fields{
			"round_id":      closed.ID,
			"state":         closed.State,
			"total_tickets": closed.TotalTickets,
			"participants":  closed.UniqueParticipants(),
		}).Info("Round closed for drawing")
	case entities.RoundStateDrawing:
		if w.requester != nil {
			if err := w.requester.EnsureRequested(ctx, round, now); err != nil {
				return err
			}
		}
	}
	return nil
}
