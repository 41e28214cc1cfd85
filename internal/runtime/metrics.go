package runtime

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PublishMetrics tracks operation-log delivery statistics.
type PublishMetrics struct {
	mu sync.Mutex

	publishedTotal *prometheus.CounterVec
	failedTotal    *prometheus.CounterVec
	ackSecondsHist *prometheus.HistogramVec
	batchSizeHist  prometheus.Histogram

	registerer prometheus.Registerer
	registered bool
}

// newPublishCounterVec creates a new counter vec with the standard oplog namespace.
func newPublishCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oplog",
			Subsystem: "publish",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// NewPublishMetrics creates a new publish metrics collector.
func NewPublishMetrics(registerer prometheus.Registerer) *PublishMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &PublishMetrics{
		registerer:     registerer,
		publishedTotal: newPublishCounterVec("events_total", "Total number of operation-log events acknowledged by the broker", []string{"transport", "topic", "status"}),
		failedTotal:    newPublishCounterVec("failures_total", "Total number of operation-log events that failed to publish", []string{"transport", "topic"}),
		ackSecondsHist: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "oplog",
				Subsystem: "publish",
				Name:      "ack_seconds",
				Help:      "Time from publish call to broker acknowledgment",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"transport", "topic"},
		),
		batchSizeHist: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "oplog",
				Subsystem: "publish",
				Name:      "batch_size",
				Help:      "Number of events submitted per batch",
				Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
			},
		),
	}
}

// Register registers the Prometheus collectors. Safe to call multiple times.
func (m *PublishMetrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		m.publishedTotal,
		m.failedTotal,
		m.ackSecondsHist,
		m.batchSizeHist,
	}

	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			// Check if it's already registered (not an error)
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	m.registered = true
	return nil
}

// RecordPublished records a broker-acknowledged event.
func (m *PublishMetrics) RecordPublished(transport, topic, status string, ackDuration time.Duration) {
	if m == nil {
		return
	}
	m.publishedTotal.WithLabelValues(transport, topic, status).Inc()
	m.ackSecondsHist.WithLabelValues(transport, topic).Observe(ackDuration.Seconds())
}

// RecordFailure records a publish that errored or timed out.
func (m *PublishMetrics) RecordFailure(transport, topic string) {
	if m == nil {
		return
	}
	m.failedTotal.WithLabelValues(transport, topic).Inc()
}

// RecordBatch records the size of a submitted batch.
func (m *PublishMetrics) RecordBatch(size int) {
	if m == nil {
		return
	}
	m.batchSizeHist.Observe(float64(size))
}

// Reset resets all metrics (useful for testing).
func (m *PublishMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.publishedTotal.Reset()
	m.failedTotal.Reset()
	m.ackSecondsHist.Reset()
}
