package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	MessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "producer_messages_sent_total",
		Help: "Total number of messages acknowledged by the broker",
	})

	SendFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "producer_send_failures_total",
		Help: "Total number of sends that resolved with an error",
	})

	ProducersCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "producer_sessions_created_total",
		Help: "Total number of producer sessions established with the broker",
	})

	CreateFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "producer_session_create_failures_total",
		Help: "Total number of failed producer session creation attempts",
	})

	ProducersClosed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "producer_sessions_closed_total",
		Help: "Total number of close notifications issued for producer sessions",
	})

	ActiveProducers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "producer_sessions_active",
		Help: "Current number of ready producer sessions held by the engine",
	})

	PendingCreations = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "producer_sessions_pending",
		Help: "Current number of in-flight producer session creations",
	})

	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "producer_inbound_queue_depth",
		Help: "Current number of publish requests waiting in the engine queue",
	})

	SendLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "producer_send_latency_seconds",
		Help:    "Histogram of broker send round-trip latency",
		Buckets: prometheus.DefBuckets,
	})
)
