package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"raffle/domain/events"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the raffle service. Each
// instance owns its registry so tests can create as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	domainEvents       *prometheus.CounterVec
	ticketsSold        prometheus.Counter
	revenue            prometheus.Counter
	roundsCompleted    prometheus.Counter
	prizesClaimed      prometheus.Counter
	prizeAmount        prometheus.Histogram
	randomness         *prometheus.CounterVec
	natsPublished      *prometheus.CounterVec
	httpInFlight       prometheus.Gauge
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	roundTicketsOnDraw prometheus.Histogram
}

// NewMetrics creates and registers all collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		domainEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemRounds,
			Name:      "events_total",
			Help:      "Domain events emitted by committed round mutations.",
		}, []string{LabelEventType}),
		ticketsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemTickets,
			Name:      "sold_total",
			Help:      "Tickets sold across all rounds.",
		}),
		revenue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemTickets,
			Name:      "revenue_total",
			Help:      "Ticket revenue added to prize pools.",
		}),
		roundsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemRounds,
			Name:      "completed_total",
			Help:      "Rounds that reached the completed state.",
		}),
		prizesClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemSettlement,
			Name:      "prizes_claimed_total",
			Help:      "Prizes claimed by winners.",
		}),
		prizeAmount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: SubsystemSettlement,
			Name:      "prize_amount",
			Help:      "Prize pool of completed rounds.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		}),
		randomness: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemSettlement,
			Name:      "randomness_deliveries_total",
			Help:      "Randomness fulfillments processed, by outcome.",
		}, []string{LabelOutcome}),
		natsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemNATS,
			Name:      "messages_published_total",
			Help:      "Events published to NATS, by outcome.",
		}, []string{LabelEventType, LabelOutcome}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: SubsystemHTTP,
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemHTTP,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{LabelMethod, LabelRoute, LabelStatus}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: SubsystemHTTP,
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{LabelMethod, LabelRoute}),
		roundTicketsOnDraw: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: SubsystemRounds,
			Name:      "tickets_at_close",
			Help:      "Total tickets of a round when it closes for drawing.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
		}),
	}

	m.Registry.MustRegister(
		m.domainEvents,
		m.ticketsSold,
		m.revenue,
		m.roundsCompleted,
		m.prizesClaimed,
		m.prizeAmount,
		m.randomness,
		m.natsPublished,
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.roundTicketsOnDraw,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// HandleEvent updates counters from a committed domain event. Registered as a
// local handler on the event publisher.
func (m *Metrics) HandleEvent(ctx context.Context, event events.Event) error {
	m.domainEvents.WithLabelValues(string(event.Type())).Inc()

	switch e := event.(type) {
	case events.TicketsPurchasedEvent:
		m.ticketsSold.Add(float64(e.Count))
		m.revenue.Add(float64(e.Cost))
	case events.RoundDrawingEvent:
		m.roundTicketsOnDraw.Observe(float64(e.TotalTickets))
	case events.RoundCompletedEvent:
		m.roundsCompleted.Inc()
		m.prizeAmount.Observe(float64(e.PrizePool))
	case events.PrizeClaimedEvent:
		m.prizesClaimed.Inc()
	}
	return nil
}

// EventTypes lists the event types HandleEvent understands
func (m *Metrics) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventTypeRoundOpened,
		events.EventTypeTicketsPurchased,
		events.EventTypeRoundDrawing,
		events.EventTypeWinnerResolved,
		events.EventTypeRoundCompleted,
		events.EventTypePrizeClaimed,
	}
}

// RecordRandomness counts a processed randomness fulfillment
func (m *Metrics) RecordRandomness(outcome string) {
	m.randomness.WithLabelValues(outcome).Inc()
}

// RecordPublish counts a NATS publish attempt
func (m *Metrics) RecordPublish(eventType events.EventType, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.natsPublished.WithLabelValues(string(eventType), outcome).Inc()
}

// ObserveHTTP records one finished HTTP request
func (m *Metrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns its decrement
func (m *Metrics) TrackInFlight() func() {
	m.httpInFlight.Inc()
	return m.httpInFlight.Dec
}
