package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the storage-layer metrics shared by the façade, the
// queue adapter and the drain consumers.
type Metrics struct {
	// Façade metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Notification hook metrics
	NotificationsTotal *prometheus.CounterVec

	// Consumer metrics
	ConsumerMessagesTotal *prometheus.CounterVec

	// NATS metrics
	NATSConnected prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all storage-layer metrics
func NewMetrics() *Metrics {
	return &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "retailstore",
				Subsystem: "storage",
				Name:      "operations_total",
				Help:      "Total number of façade operations",
			},
			[]string{"operation", "status"},
		),

		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "retailstore",
				Subsystem: "storage",
				Name:      "operation_duration_seconds",
				Help:      "Façade operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "retailstore",
				Subsystem: "notifications",
				Name:      "total",
				Help:      "Total number of post-write queue notifications",
			},
			[]string{"topic", "status"},
		),

		ConsumerMessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "retailstore",
				Subsystem: "consumer",
				Name:      "messages_total",
				Help:      "Total number of queue messages handled by drain consumers",
			},
			[]string{"topic", "status"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "retailstore",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),
	}
}

// RecordOperation records a completed façade operation with its outcome
func (m *Metrics) RecordOperation(operation, status string, duration time.Duration) {
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordNotification records a post-write notification attempt.
// status is "sent" or "lost".
func (m *Metrics) RecordNotification(topic, status string) {
	m.NotificationsTotal.WithLabelValues(topic, status).Inc()
}

// RecordConsumerMessage records a drain-consumer processing outcome.
// status is "processed" or "failed".
func (m *Metrics) RecordConsumerMessage(topic, status string) {
	m.ConsumerMessagesTotal.WithLabelValues(topic, status).Inc()
}

// collectors returns every collector owned by Metrics for registration
func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.OperationsTotal,
		m.OperationDuration,
		m.NotificationsTotal,
		m.ConsumerMessagesTotal,
		m.NATSConnected,
	}
}
