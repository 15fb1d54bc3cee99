package monitoring

import (
	"time"

	"rosterbot/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector implements ports.Metrics.
type PrometheusCollector struct {
	eventsTotal       *prometheus.CounterVec
	eventFailures     prometheus.Counter
	eventDuration     *prometheus.HistogramVec
	mutationsTotal    *prometheus.CounterVec
	denialsTotal      *prometheus.CounterVec
	sessionsEvicted   prometheus.Counter
	sessionsActive    prometheus.Gauge
	promptsPending    prometheus.Gauge
	lookupFailures    *prometheus.CounterVec
	queueDroppedTotal prometheus.Counter
}

// NewPrometheusCollector registers the bot metrics on reg.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)

	return &PrometheusCollector{
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rosterbot_events_total",
			Help: "Inbound events processed, by classification",
		}, []string{"kind"}),

		eventFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "rosterbot_event_failures_total",
			Help: "Events that ended with an internal error",
		}),

		eventDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rosterbot_event_duration_seconds",
			Help:    "Time to process one inbound event",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"kind"}),

		mutationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rosterbot_roster_mutations_total",
			Help: "Roster add/remove calls by set, operation and outcome",
		}, []string{"set", "op", "outcome"}),

		denialsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rosterbot_authorization_denials_total",
			Help: "Privileged actions refused to non-management actors",
		}, []string{"action"}),

		sessionsEvicted: factory.NewCounter(prometheus.CounterOpts{
			Name: "rosterbot_sessions_evicted_total",
			Help: "Junior sessions removed by the expiry sweeper",
		}),

		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rosterbot_junior_sessions_active",
			Help: "Junior admins currently on duty",
		}),

		promptsPending: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rosterbot_pending_prompts",
			Help: "Management actors awaiting a target reference",
		}),

		lookupFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rosterbot_lookup_failures_total",
			Help: "Failed external identity or profile lookups",
		}, []string{"kind"}),

		queueDroppedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "rosterbot_queue_dropped_total",
			Help: "Inbound events rejected because the dispatch queue was full",
		}),
	}
}

func (c *PrometheusCollector) RecordEvent(kind string, duration time.Duration) {
	c.eventsTotal.WithLabelValues(kind).Inc()
	c.eventDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (c *PrometheusCollector) RecordEventFailure() {
	c.eventFailures.Inc()
}

func (c *PrometheusCollector) RecordMutation(group domain.Group, op string, outcome domain.Outcome) {
	c.mutationsTotal.WithLabelValues(string(group), op, outcome.String()).Inc()
}

func (c *PrometheusCollector) RecordDenial(action domain.ActionKind) {
	c.denialsTotal.WithLabelValues(string(action)).Inc()
}

func (c *PrometheusCollector) RecordEvictions(count int) {
	c.sessionsEvicted.Add(float64(count))
}

func (c *PrometheusCollector) SetActiveSessions(count int) {
	c.sessionsActive.Set(float64(count))
}

func (c *PrometheusCollector) SetPendingPrompts(count int) {
	c.promptsPending.Set(float64(count))
}

func (c *PrometheusCollector) RecordLookupFailure(kind string) {
	c.lookupFailures.WithLabelValues(kind).Inc()
}

// RecordQueueDropped counts events the webhook could not enqueue.
func (c *PrometheusCollector) RecordQueueDropped() {
	c.queueDroppedTotal.Inc()
}
