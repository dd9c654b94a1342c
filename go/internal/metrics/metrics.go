package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector is the set of measurements the draft engine reports.
type Collector interface {
	RecordTransition(eventType string, outcome string)
	RecordLockContention()
	RecordStoreDivergence(op string)
	RecordAutopick(tier string)
	RecordEventPublished(eventType string, success bool, duration time.Duration)
	RecordPublishAttempt(eventType string, attempt int, success bool)
	RecordOutboxBatch(count int, duration time.Duration)
	RecordDueDrafts(count int)
}

// NoOp discards every measurement.
type NoOp struct{}

func (NoOp) RecordTransition(string, string) {}
func (NoOp) RecordLockContention() {}
func (NoOp) RecordStoreDivergence(string) {}
func (NoOp) RecordAutopick(string) {}
func (NoOp) RecordEventPublished(string, bool, time.Duration) {}
func (NoOp) RecordPublishAttempt(string, int, bool) {}
func (NoOp) RecordOutboxBatch(int, time.Duration) {}
func (NoOp) RecordDueDrafts(int) {}

// Prometheus implements Collector with client_golang.
type Prometheus struct {
	transitions      *prometheus.CounterVec
	lockContention   prometheus.Counter
	storeDivergence  *prometheus.CounterVec
	autopicks        *prometheus.CounterVec
	eventsPublished  *prometheus.CounterVec
	publishDuration  *prometheus.HistogramVec
	publishAttempts  *prometheus.CounterVec
	outboxBatchSize  prometheus.Histogram
	outboxBatchTime  prometheus.Histogram
	schedulerDueSize prometheus.Gauge
}

// Option configures a Prometheus collector.
type Option func(*options)

type options struct {
	namespace string
	registry  prometheus.Registerer
	buckets   []float64
}

// WithNamespace sets the metric name prefix.
func WithNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// WithRegistry registers metrics on r instead of the default registerer.
func WithRegistry(r prometheus.Registerer) Option {
	return func(o *options) { o.registry = r }
}

// WithHistogramBuckets overrides latency buckets.
func WithHistogramBuckets(b []float64) Option {
	return func(o *options) { o.buckets = b }
}

// NewPrometheus creates and registers the draft engine metrics.
func NewPrometheus(opts ...Option) *Prometheus {
	o := options{
		namespace: "livedraft",
		registry:  prometheus.DefaultRegisterer,
		buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(&o)
	}
	auto := promauto.With(o.registry)

	return &Prometheus{
		transitions: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "transitions_total",
			Help:      "Draft state transitions by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		lockContention: auto.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "lock_contention_total",
			Help:      "Transitions rejected because the draft lock was held.",
		}),
		storeDivergence: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "store_divergence_total",
			Help:      "Cache writes that failed after the durable commit succeeded.",
		}, []string{"op"}),
		autopicks: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "autopicks_total",
			Help:      "Autopicks by the resolver tier that produced the player.",
		}, []string{"tier"}),
		eventsPublished: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: "outbox",
			Name:      "events_published_total",
			Help:      "Draft events relayed to the message bus.",
		}, []string{"event_type", "status"}),
		publishDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: o.namespace,
			Subsystem: "outbox",
			Name:      "publish_duration_seconds",
			Help:      "Latency of a single publish to the message bus.",
			Buckets:   o.buckets,
		}, []string{"event_type"}),
		publishAttempts: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: "outbox",
			Name:      "publish_attempts_total",
			Help:      "Publish attempts including retries.",
		}, []string{"event_type", "attempt", "status"}),
		outboxBatchSize: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: o.namespace,
			Subsystem: "outbox",
			Name:      "batch_size",
			Help:      "Events fetched per relay batch.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		outboxBatchTime: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: o.namespace,
			Subsystem: "outbox",
			Name:      "batch_duration_seconds",
			Help:      "Time to relay one batch.",
			Buckets:   o.buckets,
		}),
		schedulerDueSize: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: o.namespace,
			Subsystem: "scheduler",
			Name:      "due_drafts",
			Help:      "Drafts past their deadline in the last scheduler pass.",
		}),
	}
}

func (m *Prometheus) RecordTransition(eventType string, outcome string) {
	m.transitions.WithLabelValues(eventType, outcome).Inc()
}

func (m *Prometheus) RecordLockContention() {
	m.lockContention.Inc()
}

func (m *Prometheus) RecordStoreDivergence(op string) {
	m.storeDivergence.WithLabelValues(op).Inc()
}

func (m *Prometheus) RecordAutopick(tier string) {
	m.autopicks.WithLabelValues(tier).Inc()
}

func (m *Prometheus) RecordEventPublished(eventType string, success bool, duration time.Duration) {
	m.eventsPublished.WithLabelValues(eventType, status(success)).Inc()
	m.publishDuration.WithLabelValues(eventType).Observe(duration.Seconds())
}

func (m *Prometheus) RecordPublishAttempt(eventType string, attempt int, success bool) {
	m.publishAttempts.WithLabelValues(eventType, strconv.Itoa(attempt), status(success)).Inc()
}

func (m *Prometheus) RecordOutboxBatch(count int, duration time.Duration) {
	m.outboxBatchSize.Observe(float64(count))
	m.outboxBatchTime.Observe(duration.Seconds())
}

func (m *Prometheus) RecordDueDrafts(count int) {
	m.schedulerDueSize.Set(float64(count))
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
