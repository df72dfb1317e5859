package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raffle/domain/entities"
	"raffle/domain/events"
	"raffle/domain/interfaces"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Option configures the raffle services
type Option func(*options)

type options struct {
	clock    func() time.Time
	schedule cron.Schedule
}

func defaultOptions() options {
	return options{
		clock: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithSchedule aligns round end times to a cron schedule
func WithSchedule(schedule cron.Schedule) Option {
	return func(o *options) {
		o.schedule = schedule
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// roundService implements the round lifecycle
type roundService struct {
	store          interfaces.LedgerStore
	eventPublisher interfaces.EventPublisher
	defaults       interfaces.RoundParams
	opts           options
}

// NewRoundService creates a new round service. defaults are used whenever the
// service opens a round on its own.
func NewRoundService(
	store interfaces.LedgerStore,
	eventPublisher interfaces.EventPublisher,
	defaults interfaces.RoundParams,
	opts ...Option,
) interfaces.RoundService {
	return &roundService{
		store:          store,
		eventPublisher: eventPublisher,
		defaults:       defaults,
		opts:           applyOptions(opts),
	}
}

// ValidateRoundParams checks round creation parameters
func ValidateRoundParams(params interfaces.RoundParams) error {
	if params.TicketPrice <= 0 {
		return fmt.Errorf("%w: ticket price must be positive, got %d", entities.ErrInvalidAmount, params.TicketPrice)
	}
	if params.Policy.MinParticipants < 1 {
		return fmt.Errorf("%w: minimum participants must be at least 1, got %d", entities.ErrInvalidAmount, params.Policy.MinParticipants)
	}
	if params.Policy.MinDuration < 0 {
		return fmt.Errorf("minimum round duration must not be negative, got %s", params.Policy.MinDuration)
	}
	if _, err := entities.ParseCloseRule(string(params.Policy.CloseRule)); err != nil {
		return err
	}
	return nil
}

// OpenRound creates a new Open round
func (s *roundService) OpenRound(ctx context.Context, params interfaces.RoundParams) (*entities.Round, error) {
	if err := ValidateRoundParams(params); err != nil {
		return nil, err
	}
	if params.Policy.CloseRule == "" {
		params.Policy.CloseRule = entities.CloseRuleTimeAndParticipants
	}

	now := s.opts.clock()
	round := &entities.Round{
		State:        entities.RoundStateOpen,
		StartTime:    now,
		EndTime:      CalculateEndTime(now, params.Policy.MinDuration, s.opts.schedule),
		TicketPrice:  params.TicketPrice,
		Participants: []entities.Participant{},
		Policy:       params.Policy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.store.CreateRound(ctx, round)
	if err != nil {
		return nil, fmt.Errorf("failed to create round: %w", err)
	}

	log.WithFields(log.Fields{
		"round_id":     created.ID,
		"ticket_price": created.TicketPrice,
		"end_time":     created.EndTime,
		"close_rule":   created.Policy.CloseRule,
	}).Info("round opened")

	if err := s.eventPublisher.Publish(events.RoundOpenedEvent{
		RoundID:     created.ID,
		TicketPrice: created.TicketPrice,
		StartTime:   created.StartTime,
		EndTime:     created.EndTime,
	}); err != nil {
		log.WithError(err).WithField("round_id", created.ID).Error("failed to publish round opened event")
	}

	return created, nil
}

// EnsureCurrentRound returns the round in progress, opening one if needed
func (s *roundService) EnsureCurrentRound(ctx context.Context) (*entities.Round, error) {
	current, err := s.store.CurrentRound(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current round: %w", err)
	}
	if current != nil {
		return current, nil
	}

	round, err := s.OpenRound(ctx, s.defaults)
	if errors.Is(err, entities.ErrRoundInProgress) {
		// Another caller opened it first
		current, err = s.store.CurrentRound(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get current round: %w", err)
		}
		if current == nil {
			return nil, fmt.Errorf("round in progress but not found: %w", entities.ErrRoundNotFound)
		}
		return current, nil
	}
	return round, err
}

// BeginDrawing moves an Open round to Drawing
func (s *roundService) BeginDrawing(ctx context.Context, roundID int64, now time.Time) (*entities.Round, error) {
	round, err := s.store.UpdateRound(ctx, roundID, func(round *entities.Round) ([]events.Event, error) {
		return transitionToDrawing(round, now)
	})
	if err != nil {
		return nil, err
	}
	return round, nil
}

// CompleteRound moves a Drawing round with a resolved winner to Completed
func (s *roundService) CompleteRound(ctx context.Context, roundID int64) (*entities.Round, error) {
	now := s.opts.clock()
	round, err := s.store.UpdateRound(ctx, roundID, func(round *entities.Round) ([]events.Event, error) {
		return transitionToCompleted(round, now)
	})
	if err != nil {
		return nil, err
	}
	return round, nil
}
