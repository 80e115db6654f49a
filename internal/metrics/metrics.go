package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vkgptbot_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vkgptbot_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	MessagesHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vkgptbot_messages_handled_total",
			Help: "Total conversation requests by outcome",
		},
		[]string{"outcome"}, // "replied", "blocked_input", "blocked_output", "failed"
	)

	ModerationBlocked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vkgptbot_moderation_blocked_total",
			Help: "Total texts blocked by moderation",
		},
		[]string{"stage"}, // "input" or "output"
	)

	AccountsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vkgptbot_accounts_created_total",
			Help: "Total accounts created",
		},
	)

	PersonasCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vkgptbot_personas_created_total",
			Help: "Total personas created",
		},
	)

	// Gateway metrics
	GenerationLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vkgptbot_generation_latency_seconds",
			Help:    "Generation backend latency",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	ModerationLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vkgptbot_moderation_latency_seconds",
			Help:    "Moderation backend latency",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5},
		},
	)

	// Infrastructure metrics
	RedisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vkgptbot_redis_latency_seconds",
			Help:    "Redis operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)
)
