package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "impify_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "impify_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "impify_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ActivitiesRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "impify_activities_recorded_total",
			Help: "Total number of study activities recorded, by kind.",
		},
		[]string{"kind"},
	)

	RewardsGrantedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "impify_rewards_granted_total",
			Help: "Tokens granted as rewards, by reward type (level_up, streak_milestone).",
		},
		[]string{"reward"},
	)

	FlashcardsGradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "impify_flashcards_graded_total",
			Help: "Total number of flashcard reviews, by outcome.",
		},
		[]string{"outcome"},
	)

	GateDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "impify_gate_decisions_total",
			Help: "Admission decisions for token-gated actions.",
		},
		[]string{"action", "decision"},
	)

	AnalyticsEventsStored = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "impify_analytics_events_stored_total",
			Help: "Total number of analytics events persisted from NATS.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestsInFlight,
		HTTPRequestDuration,
		ActivitiesRecordedTotal,
		RewardsGrantedTotal,
		FlashcardsGradedTotal,
		GateDecisionsTotal,
		AnalyticsEventsStored,
	)
}
